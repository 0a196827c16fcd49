package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig(testSecret, ChainBSC)

	assert.Equal(t, testSecret, cfg.RootSecret)
	assert.Equal(t, ChainBSC, cfg.Chain)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultAuthBaseURL, cfg.AuthBaseURL)
	assert.Equal(t, DefaultMarketStreamURL, cfg.MarketStreamURL)
	assert.Equal(t, DefaultOrderStreamURL, cfg.OrderStreamURL)

	assert.Equal(t, 10*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, 20*time.Second, cfg.PongWait)
	assert.Equal(t, 10*time.Second, cfg.CommandTimeout)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, time.Hour, cfg.TokenRefreshMargin)
	assert.Equal(t, 10, cfg.Backoff.MaxAttempts)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig(testSecret, ChainSolana)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate_MissingSecret(t *testing.T) {
	cfg := DefaultConfig("", ChainBSC)
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_BadURL(t *testing.T) {
	cfg := DefaultConfig(testSecret, ChainBSC)
	cfg.BaseURL = "not a url"
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_BadChain(t *testing.T) {
	cfg := DefaultConfig(testSecret, Chain(99))
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, IsCredentialError(err))
}

func TestConfig_Builders(t *testing.T) {
	cfg := DefaultConfig(testSecret, ChainBSC).
		WithEndpoints("https://base.test", "https://auth.test", "wss://market.test", "wss://order.test").
		WithHeartbeat(5*time.Second, 12*time.Second).
		WithBackoff(BackoffConfig{Initial: 100 * time.Millisecond, Max: time.Second, Jitter: 0.1, MaxAttempts: 3}).
		WithCommandTimeout(2 * time.Second).
		WithToken(24*time.Hour, 30*time.Minute).
		WithRateLimit(60, time.Minute)

	assert.Equal(t, "https://base.test", cfg.BaseURL)
	assert.Equal(t, "https://auth.test", cfg.AuthBaseURL)
	assert.Equal(t, "wss://market.test", cfg.MarketStreamURL)
	assert.Equal(t, "wss://order.test", cfg.OrderStreamURL)
	assert.Equal(t, 5*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, 12*time.Second, cfg.PongWait)
	assert.Equal(t, 3, cfg.Backoff.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.CommandTimeout)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 30*time.Minute, cfg.TokenRefreshMargin)
	assert.Equal(t, 60, cfg.RateLimitRequests)
}
