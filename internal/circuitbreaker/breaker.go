package circuitbreaker

import (
	"sync"
	"time"
)

// State of the breaker.
type State int

const (
	// StateClosed admits all requests.
	StateClosed State = iota
	// StateOpen rejects requests until the cool-down elapses.
	StateOpen
	// StateHalfOpen admits probes while deciding whether to close again.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config for a Breaker.
type Config struct {
	// FailThreshold is the consecutive-failure count that opens the breaker.
	FailThreshold int
	// SuccessThreshold is the probe-success count that closes it again.
	SuccessThreshold int
	// Timeout is the cool-down before half-open probes are admitted.
	Timeout time.Duration
}

// Breaker shields the gateway from a venue outage: consecutive failures open
// it, a cool-down admits probes, and probe successes close it.
type Breaker struct {
	mu        sync.Mutex
	state     State
	failures  int
	successes int
	lastFail  time.Time
	config    Config
}

// New creates a Breaker in the closed state.
func New(config Config) *Breaker {
	return &Breaker{config: config}
}

// Allow reports whether a request may proceed under the current state.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(b.lastFail) >= b.config.Timeout {
			b.state = StateHalfOpen
			b.successes = 0
			return true
		}
		return false
	default:
		return true
	}
}

// Record feeds the outcome of a request back into the breaker.
func (b *Breaker) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		if success {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.config.FailThreshold {
			b.state = StateOpen
			b.lastFail = time.Now()
		}
	case StateHalfOpen:
		if success {
			b.successes++
			if b.successes >= b.config.SuccessThreshold {
				b.state = StateClosed
				b.failures = 0
				b.successes = 0
			}
			return
		}
		b.state = StateOpen
		b.lastFail = time.Now()
	case StateOpen:
		if !success {
			b.lastFail = time.Now()
		}
	}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the breaker back to closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}
