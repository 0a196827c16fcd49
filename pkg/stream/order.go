package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"standx/internal/ws"
	"standx/pkg/auth"
	"standx/pkg/core"
)

const (
	methodAuthLogin    = "auth:login"
	methodOrderNew     = "order:new"
	methodOrderCancel  = "order:cancel"
	methodOrderCancels = "order:cancel_orders"
)

// commandFrame is the outbound envelope of the command channel. Params is a
// JSON document serialized to a string so the signature covers the exact
// bytes the venue parses.
type commandFrame struct {
	SessionID string            `json:"session_id"`
	RequestID string            `json:"request_id"`
	Method    string            `json:"method"`
	Header    map[string]string `json:"header"`
	Params    string            `json:"params"`
}

// commandResponse is the inbound envelope. Code zero means success; any
// other value carries a venue error for the correlated command.
type commandResponse struct {
	RequestID string          `json:"request_id"`
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
}

// OrderChannel is the command lane: a persistent stream carrying signed
// order mutations correlated to their responses by request id. Queries and
// anything not latency-sensitive belong on the REST gateway instead.
type OrderChannel struct {
	session   *ws.Session
	creds     *auth.Source
	table     *CorrelationTable
	sessionID string
	timeout   time.Duration
	logger    zerolog.Logger

	sweepOnce sync.Once
	sweepStop chan struct{}
}

// NewOrderChannel creates the command channel. Connect must be called before
// any command is sent.
func NewOrderChannel(cfg *core.Config, creds *auth.Source) *OrderChannel {
	c := &OrderChannel{
		session: ws.NewSession(ws.Config{
			URL:               cfg.OrderStreamURL,
			HeartbeatInterval: cfg.HeartbeatInterval,
			PongWait:          cfg.PongWait,
			Backoff:           cfg.Backoff,
			DialTimeout:       cfg.AuthTimeout,
		}),
		creds:     creds,
		table:     NewCorrelationTable(),
		sessionID: uuid.NewString(),
		timeout:   cfg.CommandTimeout,
		logger:    zerolog.Nop(),
		sweepStop: make(chan struct{}),
	}

	c.session.SetFrameHandler(c.handleFrame)
	c.session.SetAuthenticator(c.login)
	c.session.SetDisconnectHandler(c.handleDisconnect)
	c.session.SetDownHandler(func(err error) {
		c.table.FailAll(err)
	})
	return c
}

// handleDisconnect fails everything in flight. Responses for these commands
// can never arrive on the next socket, and the venue may or may not have
// processed them; callers reconcile through the query endpoints.
func (c *OrderChannel) handleDisconnect(error) {
	n := c.table.FailAll(core.ErrConnectionLost)
	if n > 0 {
		c.logger.Warn().Int("pending", n).Msg("failed in-flight commands on disconnect")
	}
}

// SetLogger configures the logger for the channel.
func (c *OrderChannel) SetLogger(logger zerolog.Logger) {
	c.logger = logger
	c.session.SetLogger(logger)
}

// SessionID returns the channel's session identifier, attached to every
// command so REST-side signed requests can reference the same session.
func (c *OrderChannel) SessionID() string {
	return c.sessionID
}

// Connect dials the command endpoint and performs the login handshake. It
// blocks until the channel is ready for commands.
func (c *OrderChannel) Connect(ctx context.Context) error {
	if err := c.session.Connect(ctx); err != nil {
		return err
	}
	c.startSweep()
	return nil
}

// startSweep spawns the timeout sweeper. At most one runs per channel no
// matter how often Connect is called.
func (c *OrderChannel) startSweep() {
	c.sweepOnce.Do(func() {
		go c.sweepLoop()
	})
}

// Close shuts the channel down and fails anything still in flight.
func (c *OrderChannel) Close() error {
	select {
	case <-c.sweepStop:
	default:
		close(c.sweepStop)
	}
	err := c.session.Close()
	c.table.FailAll(core.ErrSessionClosed)
	return err
}

// Ready reports whether the channel accepts commands.
func (c *OrderChannel) Ready() bool {
	return c.session.Ready()
}

// login is the channel handshake: an auth:login command carrying the bearer
// token, correlated and awaited like any other command but sent while the
// session is still authenticating.
func (c *OrderChannel) login(ctx context.Context) error {
	cred, err := c.creds.Get(ctx)
	if err != nil {
		return err
	}

	params, err := sonic.Marshal(map[string]string{"token": cred.Token})
	if err != nil {
		return fmt.Errorf("marshal login params: %w", err)
	}

	requestID := uuid.NewString()
	frame, err := c.buildFrame(cred, methodAuthLogin, requestID, params)
	if err != nil {
		return err
	}

	pending, err := c.table.Add(requestID, c.timeout)
	if err != nil {
		return err
	}

	if err := c.session.SendControl(frame); err != nil {
		c.table.Remove(requestID)
		return err
	}

	if _, err := pending.Wait(ctx); err != nil {
		c.table.Remove(requestID)
		if ctx.Err() != nil {
			return core.ErrAuthenticationTimeout
		}
		return err
	}
	c.logger.Info().Msg("order channel authenticated")
	return nil
}

// buildFrame assembles a signed command frame. The signature covers the
// serialized params and shares its request id with the frame, so the venue
// verifies and correlates with the same value.
func (c *OrderChannel) buildFrame(cred *auth.Credential, method, requestID string, params []byte) ([]byte, error) {
	sig := cred.Signer.SignBodyAt(params, requestID, time.Now())
	frame := commandFrame{
		SessionID: c.sessionID,
		RequestID: requestID,
		Method:    method,
		Header:    sig.Headers(""),
		Params:    string(params),
	}
	data, err := sonic.Marshal(&frame)
	if err != nil {
		return nil, fmt.Errorf("marshal %s frame: %w", method, err)
	}
	return data, nil
}

// SendCommand sends one signed command and blocks until its correlated
// response, the command timeout, the context, or a disconnect resolves it.
func (c *OrderChannel) SendCommand(ctx context.Context, method string, params any) ([]byte, error) {
	cred, err := c.creds.Get(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := sonic.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal %s params: %w", method, err)
	}

	requestID := uuid.NewString()
	frame, err := c.buildFrame(cred, method, requestID, raw)
	if err != nil {
		return nil, err
	}

	pending, err := c.table.Add(requestID, c.timeout)
	if err != nil {
		return nil, err
	}

	if err := c.session.Send(frame); err != nil {
		c.table.Remove(requestID)
		return nil, err
	}

	result, err := pending.Wait(ctx)
	if err != nil {
		c.table.Remove(requestID)
		return nil, err
	}
	return result, nil
}

// CreateOrder submits a new order over the command channel.
func (c *OrderChannel) CreateOrder(ctx context.Context, req *core.NewOrderRequest) (*core.OrderResponse, error) {
	data, err := c.SendCommand(ctx, methodOrderNew, req)
	if err != nil {
		return nil, err
	}
	var out core.OrderResponse
	if len(data) > 0 {
		if err := sonic.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode order response: %w", err)
		}
	}
	return &out, nil
}

// CancelOrder cancels one order over the command channel.
func (c *OrderChannel) CancelOrder(ctx context.Context, req *core.CancelOrderRequest) (*core.OrderResponse, error) {
	data, err := c.SendCommand(ctx, methodOrderCancel, req)
	if err != nil {
		return nil, err
	}
	var out core.OrderResponse
	if len(data) > 0 {
		if err := sonic.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode cancel response: %w", err)
		}
	}
	return &out, nil
}

// CancelOrders cancels a batch of orders over the command channel.
func (c *OrderChannel) CancelOrders(ctx context.Context, req *core.CancelOrdersRequest) (*core.StandardResponse, error) {
	data, err := c.SendCommand(ctx, methodOrderCancels, req)
	if err != nil {
		return nil, err
	}
	var out core.StandardResponse
	if len(data) > 0 {
		if err := sonic.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode cancel batch response: %w", err)
		}
	}
	return &out, nil
}

// handleFrame routes one inbound frame to its waiting command. Frames with
// unknown or absent request ids are dropped; late responses race the sweep
// and lose.
func (c *OrderChannel) handleFrame(data []byte) {
	var resp commandResponse
	if err := sonic.Unmarshal(data, &resp); err != nil {
		c.logger.Debug().Err(err).Msg("unparseable command frame")
		return
	}
	if resp.RequestID == "" {
		return
	}

	if resp.Code != 0 {
		ge := core.NewGatewayError(core.ErrorTypeBadRequest, 0, resp.Message)
		ge.Code = resp.Code
		ge.RequestID = resp.RequestID
		c.table.Resolve(resp.RequestID, nil, ge)
		return
	}
	c.table.Resolve(resp.RequestID, resp.Data, nil)
}

// sweepLoop periodically times out commands whose deadline passed without a
// response.
func (c *OrderChannel) sweepLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := c.table.Sweep(time.Now()); n > 0 {
				c.logger.Warn().Int("expired", n).Msg("timed out in-flight commands")
			}
		case <-c.sweepStop:
			return
		}
	}
}
