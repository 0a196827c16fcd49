package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"standx/pkg/core"
)

// SignVersion is the body-signature scheme version sent with every signed
// request.
const SignVersion = "v1"

// Signer produces per-request body signatures with the session's ed25519
// keypair. This keypair is distinct from the wallet key; it is seeded once
// per session during credential derivation.
type Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewSigner creates a Signer from a 32-byte ed25519 seed or a 64-byte
// private key. It fails with a SigningError on malformed key material.
func NewSigner(key []byte) (*Signer, error) {
	var priv ed25519.PrivateKey
	switch len(key) {
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(key)
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(key)
	default:
		return nil, &core.SigningError{Message: fmt.Sprintf("ed25519 key must be %d or %d bytes, got %d",
			ed25519.SeedSize, ed25519.PrivateKeySize, len(key))}
	}
	return &Signer{priv: priv, pub: priv.Public().(ed25519.PublicKey)}, nil
}

// GenerateSigner creates a Signer with a freshly generated keypair.
func GenerateSigner() (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, &core.SigningError{Message: "generate ed25519 keypair: " + err.Error()}
	}
	return &Signer{priv: priv, pub: pub}, nil
}

// PublicKey returns the raw ed25519 public key.
func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.pub
}

// PrivateKey returns the raw ed25519 private key.
func (s *Signer) PrivateKey() ed25519.PrivateKey {
	return s.priv
}

// KeyID returns the base58-encoded public key. The login flow uses it as the
// requestId binding the signing keypair to the session.
func (s *Signer) KeyID() string {
	return base58.Encode(s.pub)
}

// Signature is a computed body signature together with the fields that went
// into the canonical message.
type Signature struct {
	Version   string
	RequestID string
	Timestamp int64
	Value     string
}

// CanonicalMessage builds the exact byte sequence that is signed:
// "{version},{requestId},{timestampMs},{body}". Field order and the absence
// of any whitespace are load-bearing; any deviation invalidates the
// signature server-side.
func CanonicalMessage(version, requestID string, timestampMs int64, body []byte) []byte {
	msg := make([]byte, 0, len(version)+len(requestID)+24+len(body))
	msg = append(msg, version...)
	msg = append(msg, ',')
	msg = append(msg, requestID...)
	msg = append(msg, ',')
	msg = strconv.AppendInt(msg, timestampMs, 10)
	msg = append(msg, ',')
	msg = append(msg, body...)
	return msg
}

// SignBodyAt signs a request body with an explicit request id and timestamp.
// The signature is a pure function of its inputs: identical input yields an
// identical signature.
func (s *Signer) SignBodyAt(body []byte, requestID string, at time.Time) Signature {
	ts := at.UnixMilli()
	raw := ed25519.Sign(s.priv, CanonicalMessage(SignVersion, requestID, ts, body))
	return Signature{
		Version:   SignVersion,
		RequestID: requestID,
		Timestamp: ts,
		Value:     base64.StdEncoding.EncodeToString(raw),
	}
}

// SignBody signs a request body with a fresh request id and the current
// time.
func (s *Signer) SignBody(body []byte) Signature {
	return s.SignBodyAt(body, uuid.NewString(), time.Now())
}

// Headers returns the signature header set to attach to a signed request.
// sessionID is included when non-empty for order tracking.
func (sig Signature) Headers(sessionID string) map[string]string {
	h := map[string]string{
		"x-request-sign-version": sig.Version,
		"x-request-id":           sig.RequestID,
		"x-request-timestamp":    strconv.FormatInt(sig.Timestamp, 10),
		"x-request-signature":    sig.Value,
	}
	if sessionID != "" {
		h["x-session-id"] = sessionID
	}
	return h
}

// Verify checks a body signature against the given public key. It exists for
// round-trip verification in tests and tooling; the venue performs the real
// verification.
func Verify(pub ed25519.PublicKey, body []byte, sig Signature) bool {
	raw, err := base64.StdEncoding.DecodeString(sig.Value)
	if err != nil {
		return false
	}
	return ed25519.Verify(pub, CanonicalMessage(sig.Version, sig.RequestID, sig.Timestamp, body), raw)
}
