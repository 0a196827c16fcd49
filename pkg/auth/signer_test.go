package auth

import (
	"bytes"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"standx/pkg/core"
)

func TestNewSigner(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, ed25519.SeedSize)

	fromSeed, err := NewSigner(seed)
	require.NoError(t, err)

	fromKey, err := NewSigner(ed25519.NewKeyFromSeed(seed))
	require.NoError(t, err)

	assert.Equal(t, fromSeed.PublicKey(), fromKey.PublicKey())
}

func TestNewSigner_BadKeyLength(t *testing.T) {
	_, err := NewSigner(make([]byte, 16))
	require.Error(t, err)
	assert.True(t, core.IsSigningError(err))
}

func TestSigner_KeyID(t *testing.T) {
	signer, err := GenerateSigner()
	require.NoError(t, err)

	decoded, err := base58.Decode(signer.KeyID())
	require.NoError(t, err)
	assert.Equal(t, []byte(signer.PublicKey()), decoded)
}

func TestCanonicalMessage(t *testing.T) {
	msg := CanonicalMessage("v1", "req-1", 1700000000123, []byte(`{"symbol":"BTC-USD"}`))
	assert.Equal(t, `v1,req-1,1700000000123,{"symbol":"BTC-USD"}`, string(msg))
}

func TestSigner_SignBodyAt_Deterministic(t *testing.T) {
	signer, err := NewSigner(bytes.Repeat([]byte{3}, ed25519.SeedSize))
	require.NoError(t, err)

	body := []byte(`{"qty":"1"}`)
	at := time.UnixMilli(1700000000000)

	first := signer.SignBodyAt(body, "req-7", at)
	second := signer.SignBodyAt(body, "req-7", at)

	assert.Equal(t, first, second)
	assert.Equal(t, SignVersion, first.Version)
	assert.Equal(t, "req-7", first.RequestID)
	assert.Equal(t, int64(1700000000000), first.Timestamp)
}

func TestSigner_SignBody_RoundTrip(t *testing.T) {
	signer, err := GenerateSigner()
	require.NoError(t, err)

	body := []byte(`{"symbol":"ETH-USD","qty":"0.5"}`)
	sig := signer.SignBody(body)

	assert.True(t, Verify(signer.PublicKey(), body, sig))
}

func TestVerify_RejectsMutation(t *testing.T) {
	signer, err := GenerateSigner()
	require.NoError(t, err)

	body := []byte(`{"qty":"1"}`)
	sig := signer.SignBodyAt(body, "req-1", time.Now())

	assert.False(t, Verify(signer.PublicKey(), []byte(`{"qty":"2"}`), sig))

	tampered := sig
	tampered.Timestamp++
	assert.False(t, Verify(signer.PublicKey(), body, tampered))

	tampered = sig
	tampered.RequestID = "req-2"
	assert.False(t, Verify(signer.PublicKey(), body, tampered))
}

func TestSignature_Headers(t *testing.T) {
	sig := Signature{
		Version:   "v1",
		RequestID: "req-9",
		Timestamp: 1700000000123,
		Value:     "c2ln",
	}

	h := sig.Headers("sess-1")
	assert.Equal(t, "v1", h["x-request-sign-version"])
	assert.Equal(t, "req-9", h["x-request-id"])
	assert.Equal(t, "1700000000123", h["x-request-timestamp"])
	assert.Equal(t, "c2ln", h["x-request-signature"])
	assert.Equal(t, "sess-1", h["x-session-id"])

	h = sig.Headers("")
	_, ok := h["x-session-id"]
	assert.False(t, ok)
}
