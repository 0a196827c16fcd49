package auth

import (
	"context"
	"sync"
	"time"

	"standx/pkg/core"
)

// Credential is the full set of derived session credentials: the bearer
// token, its expiry, and the session signing keypair. A Credential is
// immutable after creation; expiry produces a new Credential, never a
// mutation.
type Credential struct {
	Token     string
	ExpiresAt time.Time
	Chain     core.Chain
	Address   string
	Signer    *Signer
}

// ValidFor reports whether the token remains usable for at least margin
// beyond now. Authenticated calls must never run with a token inside its
// refresh margin.
func (c *Credential) ValidFor(margin time.Duration) bool {
	return c != nil && time.Until(c.ExpiresAt) > margin
}

// BearerHeader returns the Authorization header value for the token.
func (c *Credential) BearerHeader() string {
	return "Bearer " + c.Token
}

// DeriveFunc produces a fresh Credential.
type DeriveFunc func(context.Context) (*Credential, error)

// Source owns the current Credential and coordinates refresh: at most one
// derivation is in flight at a time, and concurrent callers observing an
// expiring token await that single refresh rather than issuing duplicates.
type Source struct {
	mu        sync.Mutex
	current   *Credential
	margin    time.Duration
	derive    DeriveFunc
	inflight  chan struct{}
	lastErr   error
}

// NewSource creates a credential source. margin is subtracted from the token
// expiry when judging validity.
func NewSource(derive DeriveFunc, margin time.Duration) *Source {
	return &Source{derive: derive, margin: margin}
}

// Get returns a credential valid for at least the refresh margin, deriving
// or refreshing one if needed. Concurrent callers share a single in-flight
// derivation.
func (s *Source) Get(ctx context.Context) (*Credential, error) {
	for {
		s.mu.Lock()
		if s.current.ValidFor(s.margin) {
			cred := s.current
			s.mu.Unlock()
			return cred, nil
		}

		if s.inflight == nil {
			done := make(chan struct{})
			s.inflight = done
			s.mu.Unlock()

			cred, err := s.derive(ctx)

			s.mu.Lock()
			if err == nil {
				s.current = cred
			}
			s.lastErr = err
			s.inflight = nil
			close(done)
			s.mu.Unlock()

			return cred, err
		}

		wait := s.inflight
		s.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		s.mu.Lock()
		if s.current.ValidFor(s.margin) {
			cred := s.current
			s.mu.Unlock()
			return cred, nil
		}
		err := s.lastErr
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
		// Refresh landed but the token is already inside the margin again;
		// loop and trigger another one.
	}
}

// Current returns the credential as-is without validity checks or refresh.
// It may be nil or expired.
func (s *Source) Current() *Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Invalidate discards the current credential so the next Get derives a
// fresh one. Used when the venue rejects a token before its nominal expiry.
func (s *Source) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// Seed installs an externally derived credential, e.g. one obtained during
// client bootstrap.
func (s *Source) Seed(cred *Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = cred
}
