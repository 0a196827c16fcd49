package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of a client error.
type ErrorType int

// Error type constants categorize errors for proper handling and retry logic.
const (
	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeCredential indicates the root secret or chain is unusable.
	ErrorTypeCredential
	// ErrorTypeSigning indicates malformed signing key material.
	ErrorTypeSigning
	// ErrorTypeNetwork indicates a network connectivity issue.
	ErrorTypeNetwork
	// ErrorTypeTimeout indicates the request exceeded its deadline.
	ErrorTypeTimeout
	// ErrorTypeAuthentication indicates invalid or expired credentials.
	ErrorTypeAuthentication
	// ErrorTypeBadRequest indicates invalid request parameters.
	ErrorTypeBadRequest
	// ErrorTypeRateLimit indicates rate limit was exceeded.
	ErrorTypeRateLimit
	// ErrorTypeServerError indicates a venue-side error.
	ErrorTypeServerError
)

// String returns the string representation of the error type.
func (t ErrorType) String() string {
	return [...]string{
		"UNKNOWN",
		"CREDENTIAL",
		"SIGNING",
		"NETWORK",
		"TIMEOUT",
		"AUTHENTICATION",
		"BAD_REQUEST",
		"RATE_LIMIT",
		"SERVER_ERROR",
	}[t]
}

// Sentinel errors for common error conditions.
var (
	// ErrNotConnected is returned when a frame is sent outside the ready state.
	// Transient: the caller may retry after the session reconnects.
	ErrNotConnected = errors.New("session not connected")
	// ErrConnectionLost resolves in-flight commands when the underlying
	// connection drops before their responses arrive.
	ErrConnectionLost = errors.New("connection lost")
	// ErrCommandTimeout resolves a pending command whose response never
	// arrived within the configured command timeout. Retry policy is the
	// caller's decision since commands may not be idempotent.
	ErrCommandTimeout = errors.New("command timed out")
	// ErrAuthenticationTimeout is returned when the auth-ack for a channel
	// handshake does not arrive in time.
	ErrAuthenticationTimeout = errors.New("authentication timed out")
	// ErrSubscriptionAuth is returned when subscribing to a private topic
	// without valid credentials.
	ErrSubscriptionAuth = errors.New("subscription requires authentication")
	// ErrChannelDown is surfaced when reconnection exhausts its retry ceiling.
	ErrChannelDown = errors.New("channel down: reconnect attempts exhausted")
	// ErrDuplicateRequestID is returned when a request id is registered while
	// an unresolved entry for it already exists. This is a programming error.
	ErrDuplicateRequestID = errors.New("duplicate request id")
	// ErrSessionClosed is returned when attempting to use a closed session.
	ErrSessionClosed = errors.New("session is closed")
	// ErrTokenExpired is returned when an authenticated call is attempted
	// with an already-expired token and no refresh is possible.
	ErrTokenExpired = errors.New("token expired")
)

// CredentialError reports a fatal failure deriving session credentials from
// the root secret. It is surfaced immediately and never retried.
type CredentialError struct {
	Chain   string
	Message string
	Err     error
}

func (e *CredentialError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("credential derivation (%s): %s: %v", e.Chain, e.Message, e.Err)
	}
	return fmt.Sprintf("credential derivation (%s): %s", e.Chain, e.Message)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// NewCredentialError creates a CredentialError for the given chain.
func NewCredentialError(chain, message string, err error) *CredentialError {
	return &CredentialError{Chain: chain, Message: message, Err: err}
}

// SigningError reports malformed key material passed to the request signer.
type SigningError struct {
	Message string
}

func (e *SigningError) Error() string {
	return "signing: " + e.Message
}

// GatewayError represents a non-2xx response or venue-level error code
// returned by the REST gateway.
type GatewayError struct {
	// Type categorizes the error for programmatic handling.
	Type ErrorType `json:"type"`
	// StatusCode is the HTTP status code from the response.
	StatusCode int `json:"status_code"`
	// Code is the venue-specific error code.
	Code int `json:"code,omitempty"`
	// Message is the human-readable error description.
	Message string `json:"message"`
	// RequestID echoes the venue request id when present.
	RequestID string `json:"request_id,omitempty"`
	// Timestamp is when the error occurred.
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface for GatewayError.
func (e *GatewayError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("gateway %s (%d/%d): %s", e.Type, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("gateway %s (%d): %s", e.Type, e.StatusCode, e.Message)
}

// NewGatewayError creates a GatewayError with the specified details.
// The timestamp is automatically set to the current time.
func NewGatewayError(errorType ErrorType, statusCode int, message string) *GatewayError {
	return &GatewayError{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    message,
		Timestamp:  time.Now(),
	}
}

// IsCredentialError returns true if the error is a fatal credential
// derivation failure.
func IsCredentialError(err error) bool {
	var ce *CredentialError
	return errors.As(err, &ce)
}

// IsSigningError returns true if the error reports bad signing key material.
func IsSigningError(err error) bool {
	var se *SigningError
	return errors.As(err, &se)
}

// IsAuthenticationError returns true if the error is an authentication
// failure. Authentication errors require credential refresh and are not
// retryable as-is.
func IsAuthenticationError(err error) bool {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Type == ErrorTypeAuthentication
	}
	return errors.Is(err, ErrAuthenticationTimeout) || errors.Is(err, ErrTokenExpired)
}

// IsRetryable returns true for transient errors the caller may retry after
// the session recovers.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrNotConnected) || errors.Is(err, ErrConnectionLost) {
		return true
	}
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Type == ErrorTypeNetwork || ge.Type == ErrorTypeTimeout || ge.Type == ErrorTypeRateLimit || ge.Type == ErrorTypeServerError
	}
	return false
}
