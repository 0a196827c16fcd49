package ws

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lxzan/gws"
	"github.com/rs/zerolog"

	"standx/pkg/core"
)

// Config holds configuration options for a stream session.
type Config struct {
	// URL is the websocket endpoint to connect to.
	URL string
	// HeartbeatInterval is the period between outbound pings.
	HeartbeatInterval time.Duration
	// PongWait is the maximum time to wait for a liveness signal after a
	// ping before the connection is considered dead.
	PongWait time.Duration
	// Backoff controls the reconnect policy.
	Backoff core.BackoffConfig
	// DialTimeout bounds a single connection attempt.
	DialTimeout time.Duration
	// CloseGrace bounds the orderly part of shutdown before resources are
	// released unconditionally.
	CloseGrace time.Duration
}

// Session manages one persistent websocket connection: dialing, heartbeat
// liveness, inbound frame delivery, and reconnection with bounded jittered
// backoff. A Session is owned by exactly one channel; it is not shared.
//
// Frame delivery is single-threaded: the frame handler is invoked from the
// read loop in arrival order. Each reconnect produces a fresh read loop; the
// owner observes the boundary through its disconnect and ready hooks.
type Session struct {
	config  Config
	state   *State
	handler *eventHandler
	logger  zerolog.Logger

	mu                sync.RWMutex
	conn              *gws.Conn
	readyChan         chan struct{}
	stopChan          chan struct{}
	hbStop            chan struct{}
	wg                sync.WaitGroup
	reconnectAttempts int
	reconnecting      atomic.Bool

	onFrame      func([]byte)
	authenticate func(context.Context) error
	onReady      func()
	onDisconnect func(error)
	onDown       func(error)
}

type eventHandler struct {
	session *Session
}

var textPing = []byte("ping")

// NewSession creates a stream session with the given configuration.
// Default values are applied for any zero-valued configuration fields.
func NewSession(config Config) *Session {
	if config.HeartbeatInterval == 0 {
		config.HeartbeatInterval = 10 * time.Second
	}
	if config.PongWait == 0 {
		config.PongWait = 20 * time.Second
	}
	if config.Backoff.Initial == 0 {
		config.Backoff.Initial = 1 * time.Second
	}
	if config.Backoff.Max == 0 {
		config.Backoff.Max = 30 * time.Second
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 10 * time.Second
	}
	if config.CloseGrace == 0 {
		config.CloseGrace = 3 * time.Second
	}

	s := &Session{
		config:    config,
		state:     &State{},
		readyChan: make(chan struct{}),
		stopChan:  make(chan struct{}),
		logger:    zerolog.Nop(),
	}
	s.state.Store(StateDisconnected)
	s.handler = &eventHandler{session: s}
	return s
}

// SetLogger configures the logger for the session.
func (s *Session) SetLogger(logger zerolog.Logger) {
	s.logger = logger
}

// SetFrameHandler registers the inbound frame consumer. The handler runs on
// the read loop; a slow handler delays subsequent frames on this session
// only, never the sibling channel.
func (s *Session) SetFrameHandler(fn func([]byte)) {
	s.onFrame = fn
}

// SetAuthenticator registers the channel handshake run between the socket
// opening and the session becoming ready. A nil authenticator means the
// session is ready as soon as the socket opens.
func (s *Session) SetAuthenticator(fn func(context.Context) error) {
	s.authenticate = fn
}

// SetReadyHandler registers a hook invoked on every transition into the
// ready state, including after each reconnect.
func (s *Session) SetReadyHandler(fn func()) {
	s.onReady = fn
}

// SetDisconnectHandler registers a hook invoked when an established
// connection is lost, before any reconnect attempt starts.
func (s *Session) SetDisconnectHandler(fn func(error)) {
	s.onDisconnect = fn
}

// SetDownHandler registers a hook invoked when reconnection exhausts the
// configured attempt ceiling.
func (s *Session) SetDownHandler(fn func(error)) {
	s.onDown = fn
}

func (h *eventHandler) OnOpen(socket *gws.Conn) {
	h.session.handleOpen(socket)
}

func (h *eventHandler) OnClose(socket *gws.Conn, err error) {
	h.session.handleClosed(err)
}

func (h *eventHandler) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(h.session.config.HeartbeatInterval + h.session.config.PongWait))
	_ = socket.WritePong(nil)
}

func (h *eventHandler) OnPong(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(h.session.config.HeartbeatInterval + h.session.config.PongWait))
}

func (h *eventHandler) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	h.session.dispatch(bytes.Clone(message.Bytes()))
}

func (s *Session) handleOpen(socket *gws.Conn) {
	s.state.Store(StateConnected)

	s.mu.Lock()
	s.reconnectAttempts = 0
	s.hbStop = make(chan struct{})
	hbStop := s.hbStop
	s.mu.Unlock()

	s.logger.Info().Str("url", s.config.URL).Msg("stream connected")

	if socket != nil {
		_ = socket.SetDeadline(time.Now().Add(s.config.HeartbeatInterval + s.config.PongWait))
		s.wg.Add(1)
		go s.heartbeatLoop(socket, hbStop)
	}

	s.wg.Add(1)
	go s.finishHandshake()
}

// finishHandshake runs the optional channel authentication and promotes the
// session to ready. Auth failure tears the socket down, which routes back
// through the reconnect path.
func (s *Session) finishHandshake() {
	defer s.wg.Done()

	if s.authenticate != nil {
		if !s.state.CompareAndSwap(StateConnected, StateAuthenticating) {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.config.DialTimeout)
		err := s.authenticate(ctx)
		cancel()
		if err != nil {
			s.logger.Error().Err(err).Msg("channel authentication failed")
			s.teardownConn()
			return
		}
		if !s.state.CompareAndSwap(StateAuthenticating, StateReady) {
			return
		}
	} else if !s.state.CompareAndSwap(StateConnected, StateReady) {
		return
	}

	s.mu.Lock()
	select {
	case <-s.readyChan:
	default:
		close(s.readyChan)
	}
	s.mu.Unlock()

	if s.onReady != nil {
		s.onReady()
	}
}

func (s *Session) heartbeatLoop(socket *gws.Conn, stop chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := socket.WritePing(nil); err != nil {
				s.logger.Debug().Err(err).Msg("ping write failed")
				return
			}
		case <-stop:
			return
		case <-s.stopChan:
			return
		}
	}
}

// dispatch hands one inbound frame to the owner. Venue-level text pings are
// answered here and never surfaced.
func (s *Session) dispatch(data []byte) {
	if len(data) == 0 {
		return
	}

	if bytes.Equal(data, textPing) {
		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()
		if conn != nil {
			_ = conn.WriteMessage(gws.OpcodeText, []byte("pong"))
		}
		return
	}

	if s.onFrame != nil {
		s.onFrame(data)
	}
}

func (s *Session) handleClosed(err error) {
	state := s.state.Load()
	if state == StateClosing || state == StateClosed {
		return
	}
	s.state.Store(StateDisconnected)

	s.mu.Lock()
	if s.hbStop != nil {
		select {
		case <-s.hbStop:
		default:
			close(s.hbStop)
		}
	}
	s.readyChan = make(chan struct{})
	s.conn = nil
	s.mu.Unlock()

	s.logger.Warn().Err(err).Str("url", s.config.URL).Msg("stream disconnected")

	if s.onDisconnect != nil {
		s.onDisconnect(err)
	}

	select {
	case <-s.stopChan:
	default:
		go s.attemptReconnect()
	}
}

// Connect establishes the connection and blocks until the session is ready,
// the context is done, or the session is closed.
func (s *Session) Connect(ctx context.Context) error {
	if !s.state.CompareAndSwap(StateDisconnected, StateConnecting) {
		current := s.state.Load()
		if current == StateReady || current == StateConnected {
			return nil
		}
		return fmt.Errorf("invalid state for connect: %s", current)
	}

	socket, _, err := gws.NewClient(s.handler, &gws.ClientOption{
		Addr: s.config.URL,
	})
	if err != nil {
		s.state.Store(StateDisconnected)
		return fmt.Errorf("dial %s: %w", s.config.URL, err)
	}

	s.mu.Lock()
	s.conn = socket
	ready := s.readyChan
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		socket.ReadLoop()
	}()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		s.abortDial(socket)
		return ctx.Err()
	case <-s.stopChan:
		_ = socket.NetConn().Close()
		s.state.Store(StateClosed)
		return core.ErrSessionClosed
	}
}

// abortDial tears down a dial the caller gave up on. The state only moves
// back to disconnected while still connecting: a background reconnect may
// already own a live session, and closing the stale socket must not clobber
// it. Any later state belonging to this socket unwinds through the close
// handler.
func (s *Session) abortDial(socket *gws.Conn) {
	if socket != nil {
		_ = socket.NetConn().Close()
	}
	s.state.CompareAndSwap(StateConnecting, StateDisconnected)
}

// Send transmits one application frame. It fails with core.ErrNotConnected
// outside the ready state.
func (s *Session) Send(data []byte) error {
	if s.state.Load() != StateReady {
		return core.ErrNotConnected
	}
	return s.write(data)
}

// SendControl transmits a handshake frame. It is allowed while connected,
// authenticating, or ready.
func (s *Session) SendControl(data []byte) error {
	switch s.state.Load() {
	case StateConnected, StateAuthenticating, StateReady:
		return s.write(data)
	default:
		return core.ErrNotConnected
	}
}

func (s *Session) write(data []byte) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()

	if conn == nil {
		return core.ErrNotConnected
	}
	return conn.WriteMessage(gws.OpcodeText, data)
}

// State returns the current connection state of the session.
func (s *Session) State() ConnState {
	return s.state.Load()
}

// Ready returns true if the session accepts application frames.
func (s *Session) Ready() bool {
	return s.state.Load() == StateReady
}

// Close shuts the session down: an orderly close handshake is attempted, and
// after the configured grace period all resources are released regardless.
// Close cancels the heartbeat and any pending reconnect timer.
func (s *Session) Close() error {
	prev := s.state.Load()
	if prev == StateClosed || prev == StateClosing {
		return nil
	}
	s.state.Store(StateClosing)

	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	if s.hbStop != nil {
		select {
		case <-s.hbStop:
		default:
			close(s.hbStop)
		}
	}
	s.mu.Unlock()

	if conn != nil {
		_ = conn.WriteClose(1000, nil)

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(s.config.CloseGrace):
			s.logger.Warn().Msg("close grace elapsed, forcing socket shutdown")
		}
		_ = conn.NetConn().Close()
	}

	s.state.Store(StateClosed)
	return nil
}

func (s *Session) teardownConn() {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn != nil {
		_ = conn.NetConn().Close()
	} else {
		// No socket to fail us over; route through the close path directly.
		s.handleClosed(core.ErrAuthenticationTimeout)
	}
}

func (s *Session) attemptReconnect() {
	if !s.reconnecting.CompareAndSwap(false, true) {
		return
	}
	defer s.reconnecting.Store(false)

	for {
		select {
		case <-s.stopChan:
			return
		default:
		}

		s.mu.Lock()
		attempts := s.reconnectAttempts
		s.reconnectAttempts++
		s.mu.Unlock()

		if s.config.Backoff.MaxAttempts > 0 && attempts >= s.config.Backoff.MaxAttempts {
			s.logger.Error().Int("attempts", attempts).Msg("reconnect ceiling reached")
			if s.onDown != nil {
				s.onDown(core.ErrChannelDown)
			}
			return
		}

		wait := s.backoffWait(attempts)
		s.logger.Info().
			Dur("wait", wait).
			Int("attempt", attempts+1).
			Msg("attempting reconnect")

		select {
		case <-time.After(wait):
		case <-s.stopChan:
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.config.DialTimeout)
		err := s.Connect(ctx)
		cancel()
		if err != nil {
			s.logger.Error().Err(err).
				Int("attempt", attempts+1).
				Msg("reconnect failed")
			s.state.Store(StateDisconnected)
			continue
		}

		s.logger.Info().Msg("reconnected")
		return
	}
}

// backoffWait computes the capped exponential wait with jitter applied as a
// symmetric fraction of the base wait.
func (s *Session) backoffWait(attempts int) time.Duration {
	if attempts > 30 {
		attempts = 30
	}
	wait := min(s.config.Backoff.Initial*time.Duration(1<<uint(attempts)), s.config.Backoff.Max)
	if s.config.Backoff.Jitter > 0 {
		spread := float64(wait) * s.config.Backoff.Jitter
		wait += time.Duration((rand.Float64()*2 - 1) * spread)
		if wait < 0 {
			wait = s.config.Backoff.Initial
		}
	}
	return wait
}
