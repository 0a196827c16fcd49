package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"standx/pkg/core"
)

// LoginGateway is the slice of the REST collaborator the derivation flow
// needs: registering the session keypair and exchanging the wallet signature
// for a bearer token.
type LoginGateway interface {
	PrepareSignin(ctx context.Context, chain core.Chain, address, requestID string) (signedData string, err error)
	Login(ctx context.Context, chain core.Chain, signature, signedData string, expiresSeconds int64) (token string, err error)
}

// Derive runs the full credential derivation flow against the venue:
//
//  1. parse the root secret and derive the wallet address;
//  2. generate the session ed25519 signing keypair and register its base58
//     public key as the login requestId;
//  3. obtain the canonical login payload (a JWT carrying the message to
//     sign) from the gateway;
//  4. sign the message with the wallet key's native scheme;
//  5. exchange signature and payload for a bearer token.
//
// Steps 1, 2, and 4 are pure and testable offline; only 3 and 5 touch the
// network. Token expiry is read from the token's exp claim when present,
// falling back to the requested ttl.
func Derive(ctx context.Context, gw LoginGateway, rootSecret string, chain core.Chain, ttl time.Duration) (*Credential, error) {
	wallet, err := NewWallet(rootSecret, chain)
	if err != nil {
		return nil, err
	}

	signer, err := GenerateSigner()
	if err != nil {
		return nil, err
	}

	signedData, err := gw.PrepareSignin(ctx, chain, wallet.Address(), signer.KeyID())
	if err != nil {
		return nil, fmt.Errorf("prepare signin: %w", err)
	}

	message, err := LoginMessage(signedData)
	if err != nil {
		return nil, core.NewCredentialError(chain.String(), "parse signin payload", err)
	}

	signature, err := wallet.SignMessage(message)
	if err != nil {
		return nil, err
	}

	token, err := gw.Login(ctx, chain, signature, signedData, int64(ttl.Seconds()))
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	issued := time.Now()
	expires := issued.Add(ttl)
	if exp, ok := tokenExpiry(token); ok {
		expires = exp
	}

	return &Credential{
		Token:     token,
		ExpiresAt: expires,
		Chain:     chain,
		Address:   wallet.Address(),
		Signer:    signer,
	}, nil
}

// NewSourceFromConfig builds a credential source whose refresh re-runs the
// derivation flow with the configured root secret.
func NewSourceFromConfig(gw LoginGateway, cfg *core.Config) *Source {
	return NewSource(func(ctx context.Context) (*Credential, error) {
		return Derive(ctx, gw, cfg.RootSecret, cfg.Chain, cfg.TokenTTL)
	}, cfg.TokenRefreshMargin)
}

// LoginMessage extracts the human-readable message to sign from the
// prepare-signin payload, a JWT whose claims carry it in the "message"
// field.
func LoginMessage(signedData string) (string, error) {
	claims, err := decodeJWTClaims(signedData)
	if err != nil {
		return "", err
	}
	message, _ := claims["message"].(string)
	if message == "" {
		return "", fmt.Errorf("signin payload carries no message")
	}
	return message, nil
}

func tokenExpiry(token string) (time.Time, bool) {
	claims, err := decodeJWTClaims(token)
	if err != nil {
		return time.Time{}, false
	}
	switch exp := claims["exp"].(type) {
	case float64:
		return time.Unix(int64(exp), 0), true
	case int64:
		return time.Unix(exp, 0), true
	default:
		return time.Time{}, false
	}
}

// decodeJWTClaims parses the claims section of a JWT without verifying its
// signature. The venue signed it; the client only needs to read it.
func decodeJWTClaims(token string) (map[string]any, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed jwt: %d segments", len(parts))
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode jwt payload: %w", err)
	}
	var claims map[string]any
	if err := sonic.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("parse jwt claims: %w", err)
	}
	return claims, nil
}
