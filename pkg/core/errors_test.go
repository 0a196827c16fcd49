package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorType_String(t *testing.T) {
	tests := []struct {
		name      string
		errorType ErrorType
		want      string
	}{
		{"unknown", ErrorTypeUnknown, "UNKNOWN"},
		{"credential", ErrorTypeCredential, "CREDENTIAL"},
		{"signing", ErrorTypeSigning, "SIGNING"},
		{"network", ErrorTypeNetwork, "NETWORK"},
		{"timeout", ErrorTypeTimeout, "TIMEOUT"},
		{"authentication", ErrorTypeAuthentication, "AUTHENTICATION"},
		{"bad_request", ErrorTypeBadRequest, "BAD_REQUEST"},
		{"rate_limit", ErrorTypeRateLimit, "RATE_LIMIT"},
		{"server_error", ErrorTypeServerError, "SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.errorType.String())
		})
	}
}

func TestGatewayError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *GatewayError
		want string
	}{
		{
			name: "without_code",
			err: &GatewayError{
				Type:       ErrorTypeRateLimit,
				StatusCode: 429,
				Message:    "too many requests",
			},
			want: "gateway RATE_LIMIT (429): too many requests",
		},
		{
			name: "with_code",
			err: &GatewayError{
				Type:       ErrorTypeBadRequest,
				StatusCode: 400,
				Code:       1013,
				Message:    "invalid order quantity",
			},
			want: "gateway BAD_REQUEST (400/1013): invalid order quantity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestNewGatewayError(t *testing.T) {
	err := NewGatewayError(ErrorTypeServerError, 503, "service unavailable")

	assert.NotNil(t, err)
	assert.Equal(t, ErrorTypeServerError, err.Type)
	assert.Equal(t, 503, err.StatusCode)
	assert.Equal(t, "service unavailable", err.Message)
	assert.False(t, err.Timestamp.IsZero())
}

func TestCredentialError(t *testing.T) {
	inner := errors.New("bad key length")
	err := NewCredentialError("bsc", "parse root secret", inner)

	assert.Equal(t, "credential derivation (bsc): parse root secret: bad key length", err.Error())
	assert.ErrorIs(t, err, inner)

	bare := NewCredentialError("solana", "unrecognized chain", nil)
	assert.Equal(t, "credential derivation (solana): unrecognized chain", bare.Error())
}

func TestIsCredentialError(t *testing.T) {
	err := NewCredentialError("bsc", "parse root secret", nil)

	assert.True(t, IsCredentialError(err))
	assert.True(t, IsCredentialError(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsCredentialError(ErrNotConnected))
	assert.False(t, IsCredentialError(nil))
}

func TestIsSigningError(t *testing.T) {
	err := &SigningError{Message: "ed25519 key must be 32 or 64 bytes, got 16"}

	assert.True(t, IsSigningError(err))
	assert.Equal(t, "signing: ed25519 key must be 32 or 64 bytes, got 16", err.Error())
	assert.False(t, IsSigningError(ErrCommandTimeout))
}

func TestIsAuthenticationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"gateway_auth", NewGatewayError(ErrorTypeAuthentication, 401, "token rejected"), true},
		{"auth_timeout", ErrAuthenticationTimeout, true},
		{"token_expired", ErrTokenExpired, true},
		{"wrapped_token_expired", fmt.Errorf("refresh: %w", ErrTokenExpired), true},
		{"gateway_server", NewGatewayError(ErrorTypeServerError, 500, "boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAuthenticationError(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not_connected", ErrNotConnected, true},
		{"connection_lost", ErrConnectionLost, true},
		{"wrapped_connection_lost", fmt.Errorf("send: %w", ErrConnectionLost), true},
		{"gateway_network", NewGatewayError(ErrorTypeNetwork, 0, "dial refused"), true},
		{"gateway_rate_limit", NewGatewayError(ErrorTypeRateLimit, 429, "slow down"), true},
		{"gateway_server", NewGatewayError(ErrorTypeServerError, 502, "bad gateway"), true},
		{"gateway_bad_request", NewGatewayError(ErrorTypeBadRequest, 400, "bad qty"), false},
		{"command_timeout", ErrCommandTimeout, false},
		{"duplicate_request_id", ErrDuplicateRequestID, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
