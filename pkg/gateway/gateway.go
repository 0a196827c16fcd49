package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"resty.dev/v3"

	"standx/internal/circuitbreaker"
	"standx/internal/ratelimit"
	"standx/pkg/auth"
	"standx/pkg/core"
)

// Client is the stateless REST surface of the venue. It owns no protocol
// state beyond transport plumbing: rate limiting, circuit breaking, bearer
// and body-signature header injection.
type Client struct {
	rest    *resty.Client
	authAPI *resty.Client
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.Breaker
	logger  zerolog.Logger

	mu        sync.RWMutex
	creds     *auth.Source
	sessionID string
	closed    bool
}

// New creates a gateway client from the session configuration.
func New(cfg *core.Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	c := &Client{
		rest:    newRestClient(cfg, cfg.BaseURL),
		authAPI: newRestClient(cfg, cfg.AuthBaseURL),
		limiter: ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitPeriod),
		logger:  zerolog.Nop(),
	}

	if cfg.CircuitBreakerEnabled {
		c.breaker = circuitbreaker.New(circuitbreaker.Config{
			FailThreshold:    cfg.CircuitBreakerFailThreshold,
			SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
			Timeout:          cfg.CircuitBreakerTimeout,
		})
	}

	c.instrument(c.rest)
	c.instrument(c.authAPI)
	return c, nil
}

// instrument installs the request/response log hooks once per transport.
// The hooks read the current logger so SetLogger swaps do not stack
// middleware.
func (c *Client) instrument(client *resty.Client) {
	client.AddRequestMiddleware(func(_ *resty.Client, req *resty.Request) error {
		logger := c.currentLogger()
		logger.Debug().Str("method", req.Method).Str("url", req.URL).Msg("gateway request")
		return nil
	})
	client.AddResponseMiddleware(func(_ *resty.Client, resp *resty.Response) error {
		logger := c.currentLogger()
		logger.Debug().
			Str("method", resp.Request.Method).
			Str("url", resp.Request.URL).
			Int("status", resp.StatusCode()).
			Msg("gateway response")
		return nil
	})
}

func (c *Client) currentLogger() zerolog.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

func newRestClient(cfg *core.Config, baseURL string) *resty.Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(cfg.Timeout)
	client.SetRetryCount(cfg.MaxRetries)
	client.SetRetryWaitTime(cfg.RetryWaitMin)
	client.SetRetryMaxWaitTime(cfg.RetryWaitMax)
	client.SetHeader("Content-Type", "application/json")
	client.AddContentTypeEncoder("application/json", func(w io.Writer, v any) error {
		data, err := sonic.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
	client.AddContentTypeDecoder("application/json", func(r io.Reader, v any) error {
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		return sonic.Unmarshal(data, v)
	})
	return client
}

// SetLogger configures the logger for the gateway. Both the trading and the
// auth transports log through it.
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

// SetCredentials wires the credential source used for bearer and signed
// requests. The login endpoints never consult it.
func (c *Client) SetCredentials(src *auth.Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = src
}

// SetSessionID attaches a session id to signed requests so order-stream
// responses can be tied back to this client.
func (c *Client) SetSessionID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
}

// Close releases the underlying transports.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.rest.Close()
	return c.authAPI.Close()
}

type authMode int

const (
	authNone authMode = iota
	authBearer
	authSigned
)

// envelope is the venue's standard response wrapper. Successful responses
// may omit code entirely; data may be absent with the payload at top level.
type envelope struct {
	Code      *int            `json:"code,omitempty"`
	Message   string          `json:"message,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body any, mode authMode, out any) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return core.ErrSessionClosed
	}
	creds := c.creds
	sessionID := c.sessionID
	c.mu.RUnlock()

	if c.breaker != nil && !c.breaker.Allow() {
		return core.NewGatewayError(core.ErrorTypeServerError, 503, "circuit breaker is open")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req := c.rest.R().SetContext(ctx)
	if query != nil {
		req.SetQueryParams(query)
	}

	switch mode {
	case authSigned:
		if creds == nil {
			return core.ErrTokenExpired
		}
		cred, err := creds.Get(ctx)
		if err != nil {
			return err
		}
		// The signed bytes must be the exact bytes on the wire.
		raw := []byte("{}")
		if body != nil {
			raw, err = sonic.Marshal(body)
			if err != nil {
				return fmt.Errorf("marshal body: %w", err)
			}
		}
		sig := cred.Signer.SignBody(raw)
		req.SetHeaders(sig.Headers(sessionID))
		req.SetHeader("Authorization", cred.BearerHeader())
		req.SetBody(raw)
	case authBearer:
		if creds == nil {
			return core.ErrTokenExpired
		}
		cred, err := creds.Get(ctx)
		if err != nil {
			return err
		}
		req.SetHeader("Authorization", cred.BearerHeader())
		if body != nil {
			req.SetBody(body)
		}
	default:
		if body != nil {
			req.SetBody(body)
		}
	}

	resp, err := req.Execute(method, path)
	success := err == nil && resp != nil && resp.IsSuccess()
	if c.breaker != nil {
		c.breaker.Record(success)
	}
	if err != nil {
		return core.NewGatewayError(core.ErrorTypeNetwork, 0, err.Error())
	}

	return decodeResponse(resp, out)
}

func decodeResponse(resp *resty.Response, out any) error {
	payload := resp.Bytes()

	if resp.IsError() {
		ge := core.NewGatewayError(statusToErrorType(resp.StatusCode()), resp.StatusCode(), string(payload))
		var env envelope
		if err := sonic.Unmarshal(payload, &env); err == nil {
			if env.Message != "" {
				ge.Message = env.Message
			}
			if env.Code != nil {
				ge.Code = *env.Code
			}
			ge.RequestID = env.RequestID
		}
		return ge
	}

	var env envelope
	if err := sonic.Unmarshal(payload, &env); err == nil {
		if env.Code != nil && *env.Code != 0 {
			ge := core.NewGatewayError(core.ErrorTypeBadRequest, resp.StatusCode(), env.Message)
			ge.Code = *env.Code
			ge.RequestID = env.RequestID
			return ge
		}
		if len(env.Data) > 0 {
			payload = env.Data
		}
	}

	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusToErrorType(statusCode int) core.ErrorType {
	switch {
	case statusCode >= 500:
		return core.ErrorTypeServerError
	case statusCode == 429:
		return core.ErrorTypeRateLimit
	case statusCode == 401 || statusCode == 403:
		return core.ErrorTypeAuthentication
	case statusCode == 400 || statusCode == 422:
		return core.ErrorTypeBadRequest
	default:
		return core.ErrorTypeUnknown
	}
}
