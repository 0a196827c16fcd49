package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"standx/pkg/core"
)

const testSecret = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestNew(t *testing.T) {
	cfg := core.DefaultConfig(testSecret, core.ChainBSC)

	cli, err := New(cfg)
	require.NoError(t, err)
	defer cli.Close()

	assert.NotNil(t, cli.Gateway())
	assert.NotNil(t, cli.Market())
	assert.NotNil(t, cli.Orders())
	assert.NotNil(t, cli.Credentials())
	assert.NotEmpty(t, cli.Orders().SessionID())
	assert.False(t, cli.Market().Ready())
	assert.False(t, cli.Orders().Ready())
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(core.DefaultConfig("", core.ChainBSC))
	assert.Error(t, err)

	_, err = New(core.DefaultConfig(testSecret, core.Chain(42)))
	assert.Error(t, err)
}

func TestClient_Close_Idempotent(t *testing.T) {
	cli, err := New(core.DefaultConfig(testSecret, core.ChainBSC))
	require.NoError(t, err)

	require.NoError(t, cli.Close())
	require.NoError(t, cli.Close())
}
