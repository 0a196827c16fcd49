package stream

import (
	"context"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"standx/pkg/auth"
	"standx/pkg/core"
)

const testSecret = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func testStreamConfig() *core.Config {
	return core.DefaultConfig(testSecret, core.ChainBSC).
		WithEndpoints("https://base.test", "https://auth.test", "ws://127.0.0.1:1/market", "ws://127.0.0.1:1/order").
		WithCommandTimeout(time.Minute)
}

func seededCreds(t *testing.T) *auth.Source {
	t.Helper()
	signer, err := auth.GenerateSigner()
	require.NoError(t, err)
	src := auth.NewSource(nil, 0)
	src.Seed(&auth.Credential{
		Token:     "test-token",
		ExpiresAt: time.Now().Add(time.Hour),
		Signer:    signer,
	})
	return src
}

func TestOrderChannel_BuildFrame(t *testing.T) {
	creds := seededCreds(t)
	c := NewOrderChannel(testStreamConfig(), creds)

	cred := creds.Current()
	params := []byte(`{"symbol":"BTC-USD","qty":"0.001"}`)

	data, err := c.buildFrame(cred, methodOrderNew, "req-1", params)
	require.NoError(t, err)

	var frame commandFrame
	require.NoError(t, sonic.Unmarshal(data, &frame))

	assert.Equal(t, c.SessionID(), frame.SessionID)
	assert.Equal(t, "req-1", frame.RequestID)
	assert.Equal(t, methodOrderNew, frame.Method)
	assert.Equal(t, string(params), frame.Params)

	// The signature covers the params string and shares the frame's id.
	assert.Equal(t, "req-1", frame.Header["x-request-id"])
	assert.Equal(t, auth.SignVersion, frame.Header["x-request-sign-version"])

	ts := frame.Header["x-request-timestamp"]
	require.NotEmpty(t, ts)
	tsMs, err := strconv.ParseInt(ts, 10, 64)
	require.NoError(t, err)

	ok := auth.Verify(cred.Signer.PublicKey(), params, auth.Signature{
		Version:   frame.Header["x-request-sign-version"],
		RequestID: frame.Header["x-request-id"],
		Timestamp: tsMs,
		Value:     frame.Header["x-request-signature"],
	})
	assert.True(t, ok)
}

func TestOrderChannel_HandleFrame_Success(t *testing.T) {
	c := NewOrderChannel(testStreamConfig(), seededCreds(t))

	pending, err := c.table.Add("req-1", time.Minute)
	require.NoError(t, err)

	c.handleFrame([]byte(`{"request_id":"req-1","code":0,"data":{"order_id":42}}`))

	result, err := pending.Wait(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"order_id":42}`, string(result))
}

func TestOrderChannel_HandleFrame_VenueError(t *testing.T) {
	c := NewOrderChannel(testStreamConfig(), seededCreds(t))

	pending, err := c.table.Add("req-1", time.Minute)
	require.NoError(t, err)

	c.handleFrame([]byte(`{"request_id":"req-1","code":1013,"message":"qty below minimum"}`))

	_, err = pending.Wait(context.Background())
	require.Error(t, err)

	var ge *core.GatewayError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, 1013, ge.Code)
	assert.Equal(t, "qty below minimum", ge.Message)
	assert.Equal(t, "req-1", ge.RequestID)
}

func TestOrderChannel_HandleFrame_UnknownOrMalformed(t *testing.T) {
	c := NewOrderChannel(testStreamConfig(), seededCreds(t))

	// None of these may panic or disturb the table.
	c.handleFrame([]byte(`{"request_id":"never-registered","code":0}`))
	c.handleFrame([]byte(`{"code":0}`))
	c.handleFrame([]byte(`not json`))

	assert.Equal(t, 0, c.table.Len())
}

func TestOrderChannel_SendCommand_NotConnected(t *testing.T) {
	c := NewOrderChannel(testStreamConfig(), seededCreds(t))

	_, err := c.SendCommand(context.Background(), methodOrderNew, &core.NewOrderRequest{Symbol: "BTC-USD"})
	assert.ErrorIs(t, err, core.ErrNotConnected)

	// The failed send must not leak a table entry.
	assert.Equal(t, 0, c.table.Len())
}

func TestOrderChannel_DisconnectFailsInFlight(t *testing.T) {
	c := NewOrderChannel(testStreamConfig(), seededCreds(t))

	pending, err := c.table.Add("42", time.Minute)
	require.NoError(t, err)

	c.handleDisconnect(core.ErrConnectionLost)

	_, err = pending.Wait(context.Background())
	assert.ErrorIs(t, err, core.ErrConnectionLost)
	assert.Equal(t, 0, c.table.Len())

	// The late response for id 42 on the next socket has nowhere to go.
	c.handleFrame([]byte(`{"request_id":"42","code":0,"data":{"order_id":42}}`))
	assert.Equal(t, 0, c.table.Len())
}

func TestOrderChannel_SweepStartsOnce(t *testing.T) {
	c := NewOrderChannel(testStreamConfig(), seededCreds(t))

	before := runtime.NumGoroutine()
	c.startSweep()
	c.startSweep()
	c.startSweep()
	time.Sleep(20 * time.Millisecond)

	assert.LessOrEqual(t, runtime.NumGoroutine(), before+1)
	require.NoError(t, c.Close())
}

func TestOrderChannel_Close_FailsInFlight(t *testing.T) {
	c := NewOrderChannel(testStreamConfig(), seededCreds(t))

	pending, err := c.table.Add("req-1", time.Minute)
	require.NoError(t, err)

	require.NoError(t, c.Close())

	_, err = pending.Wait(context.Background())
	assert.ErrorIs(t, err, core.ErrSessionClosed)
	assert.False(t, c.Ready())
}
