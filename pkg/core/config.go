package core

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Production endpoints for the StandX venue.
const (
	DefaultBaseURL         = "https://perps.standx.com"
	DefaultAuthBaseURL     = "https://api.standx.com/v1/offchain"
	DefaultMarketStreamURL = "wss://perps.standx.com/ws-stream/v1"
	DefaultOrderStreamURL  = "wss://perps.standx.com/ws-api/v1"
)

// BackoffConfig controls the reconnect backoff policy of a stream session.
type BackoffConfig struct {
	// Initial is the wait before the first reconnect attempt.
	Initial time.Duration `json:"initial" validate:"min=1ms"`
	// Max bounds the wait between attempts.
	Max time.Duration `json:"max" validate:"min=1ms"`
	// Jitter is the fraction (0..1) of random spread applied to each wait.
	Jitter float64 `json:"jitter" validate:"min=0,max=1"`
	// MaxAttempts is the retry ceiling before the channel is declared down.
	// Zero means unbounded.
	MaxAttempts int `json:"max_attempts" validate:"min=0"`
}

// Config contains all configuration options for a StandX client session.
// It covers credentials, endpoints, stream liveness, reconnect, command
// correlation, and REST transport settings.
type Config struct {
	// RootSecret is the wallet private key all credentials derive from.
	// Hex string for EVM chains, hex or base58 seed for Solana.
	RootSecret string `json:"-" validate:"required"`
	// Chain selects the wallet's network.
	Chain Chain `json:"chain"`

	BaseURL         string `json:"base_url" validate:"required,url"`
	AuthBaseURL     string `json:"auth_base_url" validate:"required,url"`
	MarketStreamURL string `json:"market_stream_url" validate:"required"`
	OrderStreamURL  string `json:"order_stream_url" validate:"required"`

	// HeartbeatInterval is the period between outbound pings on each stream.
	HeartbeatInterval time.Duration `json:"heartbeat_interval" validate:"min=1ms"`
	// PongWait is how long after a ping the session waits for a liveness
	// signal before declaring the connection dead.
	PongWait time.Duration `json:"pong_wait" validate:"min=1ms"`

	Backoff BackoffConfig `json:"backoff"`

	// CommandTimeout bounds how long a pending command may stay unresolved
	// before it is swept and resolved as timed out.
	CommandTimeout time.Duration `json:"command_timeout" validate:"min=1ms"`
	// AuthTimeout bounds the order-channel authentication handshake.
	AuthTimeout time.Duration `json:"auth_timeout" validate:"min=1ms"`

	// TokenTTL is the requested validity window of the derived bearer token.
	TokenTTL time.Duration `json:"token_ttl" validate:"min=1s"`
	// TokenRefreshMargin forces a refresh when the token is within this
	// margin of expiry. A token is never used past ExpiresAt minus margin.
	TokenRefreshMargin time.Duration `json:"token_refresh_margin" validate:"min=0"`

	Timeout      time.Duration `json:"timeout" validate:"min=1ms"`
	MaxRetries   int           `json:"max_retries" validate:"min=0"`
	RetryWaitMin time.Duration `json:"retry_wait_min" validate:"min=0"`
	RetryWaitMax time.Duration `json:"retry_wait_max" validate:"min=0"`

	RateLimitRequests int           `json:"rate_limit_requests" validate:"min=1"`
	RateLimitPeriod   time.Duration `json:"rate_limit_period" validate:"min=1ms"`

	CircuitBreakerEnabled          bool          `json:"circuit_breaker_enabled"`
	CircuitBreakerFailThreshold    int           `json:"circuit_breaker_fail_threshold"`
	CircuitBreakerSuccessThreshold int           `json:"circuit_breaker_success_threshold"`
	CircuitBreakerTimeout          time.Duration `json:"circuit_breaker_timeout"`

	LogLevel string `json:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultConfig returns a Config initialized with production endpoints and
// sensible defaults: 10s ping/20s pong, 1s-30s backoff with 20% jitter and a
// ceiling of 10 attempts, 10s command timeout, 7d token with 1h refresh
// margin, 10s HTTP timeout, 1200 req/min rate limit.
func DefaultConfig(rootSecret string, chain Chain) *Config {
	return &Config{
		RootSecret:      rootSecret,
		Chain:           chain,
		BaseURL:         DefaultBaseURL,
		AuthBaseURL:     DefaultAuthBaseURL,
		MarketStreamURL: DefaultMarketStreamURL,
		OrderStreamURL:  DefaultOrderStreamURL,

		HeartbeatInterval: 10 * time.Second,
		PongWait:          20 * time.Second,

		Backoff: BackoffConfig{
			Initial:     1 * time.Second,
			Max:         30 * time.Second,
			Jitter:      0.2,
			MaxAttempts: 10,
		},

		CommandTimeout: 10 * time.Second,
		AuthTimeout:    10 * time.Second,

		TokenTTL:           7 * 24 * time.Hour,
		TokenRefreshMargin: time.Hour,

		Timeout:      10 * time.Second,
		MaxRetries:   3,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 1 * time.Second,

		RateLimitRequests: 1200,
		RateLimitPeriod:   time.Minute,

		CircuitBreakerEnabled:          true,
		CircuitBreakerFailThreshold:    5,
		CircuitBreakerSuccessThreshold: 2,
		CircuitBreakerTimeout:          30 * time.Second,

		LogLevel: "info",
	}
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if !c.Chain.Valid() {
		return NewCredentialError(c.Chain.String(), "unrecognized chain", nil)
	}
	return nil
}

// WithEndpoints overrides the REST and stream endpoints and returns the
// config for chaining.
func (c *Config) WithEndpoints(base, authBase, marketStream, orderStream string) *Config {
	c.BaseURL = base
	c.AuthBaseURL = authBase
	c.MarketStreamURL = marketStream
	c.OrderStreamURL = orderStream
	return c
}

// WithHeartbeat sets the ping interval and pong wait and returns the config
// for chaining.
func (c *Config) WithHeartbeat(interval, pongWait time.Duration) *Config {
	c.HeartbeatInterval = interval
	c.PongWait = pongWait
	return c
}

// WithBackoff sets the reconnect backoff policy and returns the config for
// chaining.
func (c *Config) WithBackoff(backoff BackoffConfig) *Config {
	c.Backoff = backoff
	return c
}

// WithCommandTimeout sets the pending-command timeout and returns the config
// for chaining.
func (c *Config) WithCommandTimeout(timeout time.Duration) *Config {
	c.CommandTimeout = timeout
	return c
}

// WithToken sets the requested token validity and refresh margin and returns
// the config for chaining.
func (c *Config) WithToken(ttl, refreshMargin time.Duration) *Config {
	c.TokenTTL = ttl
	c.TokenRefreshMargin = refreshMargin
	return c
}

// WithRateLimit sets the gateway rate limiting parameters and returns the
// config for chaining.
func (c *Config) WithRateLimit(requests int, period time.Duration) *Config {
	c.RateLimitRequests = requests
	c.RateLimitPeriod = period
	return c
}
