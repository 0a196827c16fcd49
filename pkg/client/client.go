// Package client assembles the full venue client: REST gateway, derived
// credentials, the market data stream, and the order command stream behind
// one handle.
package client

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"standx/pkg/auth"
	"standx/pkg/core"
	"standx/pkg/gateway"
	"standx/pkg/stream"
)

// Client is the top-level venue handle. The REST gateway is always
// available; the two stream channels connect on demand and reconnect on
// their own.
type Client struct {
	config  *core.Config
	gateway *gateway.Client
	creds   *auth.Source
	market  *stream.MarketChannel
	orders  *stream.OrderChannel
	logger  zerolog.Logger
}

// New builds a client from the configuration. No network traffic happens
// here; credentials derive lazily on the first authenticated call.
func New(cfg *core.Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	gw, err := gateway.New(cfg)
	if err != nil {
		return nil, err
	}

	creds := auth.NewSourceFromConfig(gw, cfg)
	gw.SetCredentials(creds)

	c := &Client{
		config:  cfg,
		gateway: gw,
		creds:   creds,
		market:  stream.NewMarketChannel(cfg, creds),
		orders:  stream.NewOrderChannel(cfg, creds),
		logger:  newLogger(cfg.LogLevel),
	}
	gw.SetSessionID(c.orders.SessionID())

	c.gateway.SetLogger(c.logger)
	c.market.SetLogger(c.logger.With().Str("channel", "market").Logger())
	c.orders.SetLogger(c.logger.With().Str("channel", "order").Logger())
	return c, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

// SetLogger replaces the client logger on the gateway and both channels.
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger
	c.gateway.SetLogger(logger)
	c.market.SetLogger(logger.With().Str("channel", "market").Logger())
	c.orders.SetLogger(logger.With().Str("channel", "order").Logger())
}

// Gateway exposes the REST surface.
func (c *Client) Gateway() *gateway.Client {
	return c.gateway
}

// Market exposes the data stream channel.
func (c *Client) Market() *stream.MarketChannel {
	return c.market
}

// Orders exposes the command stream channel.
func (c *Client) Orders() *stream.OrderChannel {
	return c.orders
}

// Credentials exposes the credential source, e.g. to seed a token obtained
// elsewhere or force a refresh after a venue-side rejection.
func (c *Client) Credentials() *auth.Source {
	return c.creds
}

// Login derives credentials now instead of on first use. Useful to fail
// fast on a bad root secret before opening streams.
func (c *Client) Login(ctx context.Context) error {
	_, err := c.creds.Get(ctx)
	return err
}

// ConnectMarket dials the data stream and blocks until it is ready.
func (c *Client) ConnectMarket(ctx context.Context) error {
	return c.market.Connect(ctx)
}

// ConnectOrders dials the command stream, performs its login handshake, and
// blocks until it is ready.
func (c *Client) ConnectOrders(ctx context.Context) error {
	return c.orders.Connect(ctx)
}

// Close shuts down both stream channels and the REST transports. In-flight
// commands resolve as failed.
func (c *Client) Close() error {
	var first error
	if err := c.orders.Close(); err != nil && first == nil {
		first = err
	}
	if err := c.market.Close(); err != nil && first == nil {
		first = err
	}
	if err := c.gateway.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
