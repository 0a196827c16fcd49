package stream

import (
	"context"
	"sync"
	"time"

	"standx/pkg/core"
)

// Pending is one in-flight command awaiting its correlated response frame.
// It resolves exactly once: by response, by sweep, by fail-all, or by the
// caller abandoning it.
type Pending struct {
	requestID string
	deadline  time.Time
	done      chan struct{}

	mu     sync.Mutex
	result []byte
	err    error
	sealed bool
}

func (p *Pending) resolve(result []byte, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sealed {
		return false
	}
	p.sealed = true
	p.result = result
	p.err = err
	close(p.done)
	return true
}

// Wait blocks until the command resolves or ctx is done. Cancellation
// abandons the command: a response arriving afterwards is dropped.
func (p *Pending) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.result, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CorrelationTable tracks in-flight commands by request id so response
// frames can be routed back to their callers.
type CorrelationTable struct {
	mu      sync.Mutex
	entries map[string]*Pending
}

// NewCorrelationTable creates an empty table.
func NewCorrelationTable() *CorrelationTable {
	return &CorrelationTable{entries: make(map[string]*Pending)}
}

// Add registers a command under its request id. A second registration for a
// live id fails without touching the existing entry.
func (t *CorrelationTable) Add(requestID string, timeout time.Duration) (*Pending, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.entries[requestID]; exists {
		return nil, core.ErrDuplicateRequestID
	}
	p := &Pending{
		requestID: requestID,
		deadline:  time.Now().Add(timeout),
		done:      make(chan struct{}),
	}
	t.entries[requestID] = p
	return p, nil
}

// Resolve completes the command registered under requestID and removes it.
// Unknown ids are ignored: late responses after a sweep or disconnect have
// nowhere to go.
func (t *CorrelationTable) Resolve(requestID string, result []byte, err error) bool {
	t.mu.Lock()
	p, ok := t.entries[requestID]
	if ok {
		delete(t.entries, requestID)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	return p.resolve(result, err)
}

// Remove drops the entry without resolving it. Used when the caller
// abandons a command on context cancellation.
func (t *CorrelationTable) Remove(requestID string) {
	t.mu.Lock()
	delete(t.entries, requestID)
	t.mu.Unlock()
}

// Sweep fails every command whose deadline passed with ErrCommandTimeout
// and returns how many it failed.
func (t *CorrelationTable) Sweep(now time.Time) int {
	t.mu.Lock()
	var expired []*Pending
	for id, p := range t.entries {
		if now.After(p.deadline) {
			expired = append(expired, p)
			delete(t.entries, id)
		}
	}
	t.mu.Unlock()

	for _, p := range expired {
		p.resolve(nil, core.ErrCommandTimeout)
	}
	return len(expired)
}

// FailAll resolves every in-flight command with err and empties the table.
// Called on disconnect: the venue may or may not have processed them, and
// callers must reconcile through queries.
func (t *CorrelationTable) FailAll(err error) int {
	t.mu.Lock()
	pending := make([]*Pending, 0, len(t.entries))
	for _, p := range t.entries {
		pending = append(pending, p)
	}
	t.entries = make(map[string]*Pending)
	t.mu.Unlock()

	for _, p := range pending {
		p.resolve(nil, err)
	}
	return len(pending)
}

// Len reports the number of in-flight commands.
func (t *CorrelationTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
