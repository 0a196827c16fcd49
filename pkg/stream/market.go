package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"standx/internal/ws"
	"standx/pkg/auth"
	"standx/pkg/core"
)

// Market data channel names.
const (
	ChannelPrice     = "price"
	ChannelDepthBook = "depth_book"
	ChannelTrade     = "trade"
	ChannelOrder     = "order"
	ChannelPosition  = "position"
	ChannelBalance   = "balance"
)

func channelPrivate(channel string) bool {
	switch channel {
	case ChannelOrder, ChannelPosition, ChannelBalance, ChannelTrade:
		return true
	default:
		return false
	}
}

type subscription struct {
	channel string
	symbol  string
	handler func(json.RawMessage)
}

func subKey(channel, symbol string) string {
	return channel + "|" + symbol
}

// marketFrame is the inbound envelope of the data channel.
type marketFrame struct {
	Channel string          `json:"channel"`
	Symbol  string          `json:"symbol"`
	Data    json.RawMessage `json:"data"`
}

type subscribeFrame struct {
	Channel string `json:"channel"`
	Symbol  string `json:"symbol,omitempty"`
}

// MarketChannel is the data lane: a persistent stream fanning venue pushes
// out to per-topic consumers. The subscription set survives reconnects; on
// every transition to ready it is replayed in insertion order, after an auth
// frame when any private topic is held.
type MarketChannel struct {
	session *ws.Session
	creds   *auth.Source
	logger  zerolog.Logger
	send    func([]byte) error

	mu       sync.Mutex
	order    []string
	subs     map[string]*subscription
	authSent bool
}

// NewMarketChannel creates the data channel. A nil credential source limits
// it to public topics.
func NewMarketChannel(cfg *core.Config, creds *auth.Source) *MarketChannel {
	c := &MarketChannel{
		session: ws.NewSession(ws.Config{
			URL:               cfg.MarketStreamURL,
			HeartbeatInterval: cfg.HeartbeatInterval,
			PongWait:          cfg.PongWait,
			Backoff:           cfg.Backoff,
			DialTimeout:       cfg.AuthTimeout,
		}),
		creds:  creds,
		logger: zerolog.Nop(),
		subs:   make(map[string]*subscription),
	}
	c.send = c.session.Send
	c.session.SetFrameHandler(c.handleFrame)
	c.session.SetReadyHandler(c.replay)
	c.session.SetDisconnectHandler(func(error) {
		c.mu.Lock()
		c.authSent = false
		c.mu.Unlock()
	})
	return c
}

// SetLogger configures the logger for the channel.
func (c *MarketChannel) SetLogger(logger zerolog.Logger) {
	c.logger = logger
	c.session.SetLogger(logger)
}

// Connect dials the data endpoint and blocks until the channel is ready.
// Subscriptions registered before Connect are sent once ready.
func (c *MarketChannel) Connect(ctx context.Context) error {
	return c.session.Connect(ctx)
}

// Close shuts the channel down. The subscription set is retained so a
// subsequent Connect resumes the same topics.
func (c *MarketChannel) Close() error {
	return c.session.Close()
}

// Ready reports whether the channel is connected and serving frames.
func (c *MarketChannel) Ready() bool {
	return c.session.Ready()
}

// subscribe records one topic and sends it to the venue if the channel is
// ready. Registering an already-held topic replaces its consumer without a
// second wire subscription. A private topic without usable credentials fails
// here and is never queued.
func (c *MarketChannel) subscribe(ctx context.Context, channel, symbol string, handler func(json.RawMessage)) error {
	if channelPrivate(channel) {
		if c.creds == nil {
			return fmt.Errorf("%w: channel %s", core.ErrSubscriptionAuth, channel)
		}
		if _, err := c.creds.Get(ctx); err != nil {
			return fmt.Errorf("%w: %v", core.ErrSubscriptionAuth, err)
		}
	}

	key := subKey(channel, symbol)
	c.mu.Lock()
	_, held := c.subs[key]
	c.subs[key] = &subscription{channel: channel, symbol: symbol, handler: handler}
	if !held {
		c.order = append(c.order, key)
	}
	c.mu.Unlock()

	if held || !c.session.Ready() {
		return nil
	}
	if err := c.ensureAuth(ctx); err != nil {
		c.drop(key)
		return err
	}
	return c.sendSubscribe(channel, symbol)
}

// drop removes a key from the set and the replay order.
func (c *MarketChannel) drop(key string) {
	c.mu.Lock()
	delete(c.subs, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
}

// Unsubscribe removes a topic from the set and, when connected, tells the
// venue to stop sending it.
func (c *MarketChannel) Unsubscribe(channel, symbol string) error {
	key := subKey(channel, symbol)
	c.mu.Lock()
	_, held := c.subs[key]
	delete(c.subs, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	if !held || !c.session.Ready() {
		return nil
	}
	frame, err := sonic.Marshal(map[string]subscribeFrame{
		"unsubscribe": {Channel: channel, Symbol: symbol},
	})
	if err != nil {
		return err
	}
	return c.send(frame)
}

// SubscribePrice streams price snapshots for a symbol.
func (c *MarketChannel) SubscribePrice(ctx context.Context, symbol string, fn func(*core.SymbolPrice)) error {
	return c.subscribe(ctx, ChannelPrice, symbol, decodeTo(c, ChannelPrice, fn))
}

// SubscribeDepthBook streams order book updates for a symbol.
func (c *MarketChannel) SubscribeDepthBook(ctx context.Context, symbol string, fn func(*core.DepthBook)) error {
	return c.subscribe(ctx, ChannelDepthBook, symbol, decodeTo(c, ChannelDepthBook, fn))
}

// SubscribeTrades streams the account's fills. Requires credentials.
func (c *MarketChannel) SubscribeTrades(ctx context.Context, symbol string, fn func(*core.Trade)) error {
	return c.subscribe(ctx, ChannelTrade, symbol, decodeTo(c, ChannelTrade, fn))
}

// SubscribeOrders streams order state changes. Requires credentials.
func (c *MarketChannel) SubscribeOrders(ctx context.Context, fn func(*core.Order)) error {
	return c.subscribe(ctx, ChannelOrder, "", decodeTo(c, ChannelOrder, fn))
}

// SubscribePositions streams position updates. Requires credentials.
func (c *MarketChannel) SubscribePositions(ctx context.Context, fn func(*core.Position)) error {
	return c.subscribe(ctx, ChannelPosition, "", decodeTo(c, ChannelPosition, fn))
}

// SubscribeBalances streams balance updates. Requires credentials.
func (c *MarketChannel) SubscribeBalances(ctx context.Context, fn func(*core.Balance)) error {
	return c.subscribe(ctx, ChannelBalance, "", decodeTo(c, ChannelBalance, fn))
}

// decodeTo adapts a typed consumer to the raw demux. Undecodable payloads
// are logged and dropped; one bad frame must not kill the read loop.
func decodeTo[T any](c *MarketChannel, channel string, fn func(*T)) func(json.RawMessage) {
	return func(data json.RawMessage) {
		var v T
		if err := sonic.Unmarshal(data, &v); err != nil {
			c.logger.Debug().Err(err).Str("channel", channel).Msg("undecodable frame payload")
			return
		}
		fn(&v)
	}
}

// ensureAuth sends the stream auth frame once per connection when any held
// topic is private.
func (c *MarketChannel) ensureAuth(ctx context.Context) error {
	c.mu.Lock()
	if c.authSent {
		c.mu.Unlock()
		return nil
	}
	var streams []string
	seen := make(map[string]bool)
	for _, key := range c.order {
		sub := c.subs[key]
		if sub != nil && channelPrivate(sub.channel) && !seen[sub.channel] {
			streams = append(streams, sub.channel)
			seen[sub.channel] = true
		}
	}
	c.mu.Unlock()

	if len(streams) == 0 || c.creds == nil {
		return nil
	}

	cred, err := c.creds.Get(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrSubscriptionAuth, err)
	}
	frame, err := sonic.Marshal(map[string]any{
		"auth": map[string]any{
			"token":   cred.Token,
			"streams": streams,
		},
	})
	if err != nil {
		return err
	}
	if err := c.send(frame); err != nil {
		return err
	}

	c.mu.Lock()
	c.authSent = true
	c.mu.Unlock()
	return nil
}

func (c *MarketChannel) sendSubscribe(channel, symbol string) error {
	frame, err := sonic.Marshal(map[string]subscribeFrame{
		"subscribe": {Channel: channel, Symbol: symbol},
	})
	if err != nil {
		return err
	}
	return c.send(frame)
}

// replay re-establishes the held subscription set after every transition to
// ready, in the order topics were first registered.
func (c *MarketChannel) replay() {
	c.mu.Lock()
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	c.mu.Unlock()

	if len(keys) == 0 {
		return
	}
	if err := c.ensureAuth(context.Background()); err != nil {
		c.logger.Error().Err(err).Msg("stream auth replay failed")
		return
	}
	for _, key := range keys {
		c.mu.Lock()
		sub := c.subs[key]
		c.mu.Unlock()
		if sub == nil {
			continue
		}
		if err := c.sendSubscribe(sub.channel, sub.symbol); err != nil {
			c.logger.Error().Err(err).
				Str("channel", sub.channel).
				Str("symbol", sub.symbol).
				Msg("subscription replay failed")
			return
		}
	}
	c.logger.Info().Int("topics", len(keys)).Msg("subscriptions replayed")
}

// handleFrame demultiplexes one venue push to its consumer. Frames for
// topics nobody holds are dropped.
func (c *MarketChannel) handleFrame(data []byte) {
	var frame marketFrame
	if err := sonic.Unmarshal(data, &frame); err != nil {
		c.logger.Debug().Err(err).Msg("unparseable stream frame")
		return
	}
	if frame.Channel == "" {
		return
	}

	c.mu.Lock()
	sub := c.subs[subKey(frame.Channel, frame.Symbol)]
	if sub == nil && frame.Symbol != "" {
		sub = c.subs[subKey(frame.Channel, "")]
	}
	c.mu.Unlock()

	if sub == nil || sub.handler == nil {
		return
	}
	sub.handler(frame.Data)
}
