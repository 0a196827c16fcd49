package ws

import "sync/atomic"

// ConnState represents the current lifecycle state of a stream session.
type ConnState int32

// Session lifecycle states. Frames may only be sent while the session is
// ready; control frames (auth handshake) are additionally allowed while
// connected or authenticating.
const (
	// StateDisconnected indicates no active connection.
	StateDisconnected ConnState = iota
	// StateConnecting indicates a dial is in progress.
	StateConnecting
	// StateConnected indicates the socket is open but the channel handshake
	// has not completed.
	StateConnected
	// StateAuthenticating indicates the auth handshake is in flight.
	StateAuthenticating
	// StateReady indicates the session accepts application frames.
	StateReady
	// StateClosing indicates an orderly shutdown is in progress.
	StateClosing
	// StateClosed indicates the session has been permanently closed.
	StateClosed
)

// String returns the string representation of the connection state.
func (s ConnState) String() string {
	return [...]string{
		"disconnected",
		"connecting",
		"connected",
		"authenticating",
		"ready",
		"closing",
		"closed",
	}[s]
}

// State provides thread-safe atomic access to a ConnState value.
type State struct {
	state atomic.Int32
}

// Load returns the current connection state.
func (s *State) Load() ConnState {
	return ConnState(s.state.Load())
}

// Store sets the connection state to the given value.
func (s *State) Store(state ConnState) {
	s.state.Store(int32(state))
}

// CompareAndSwap atomically compares the current state with old and swaps to
// new if equal. It returns true if the swap was performed.
func (s *State) CompareAndSwap(old, new ConnState) bool {
	return s.state.CompareAndSwap(int32(old), int32(new))
}
