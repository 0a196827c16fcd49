package auth

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"

	"standx/pkg/core"
)

// Wallet wraps the root secret and exposes the chain-native address and
// message-signature scheme. All session credentials derive from it.
type Wallet struct {
	chain   core.Chain
	evmKey  *ecdsa.PrivateKey
	solKey  ed25519.PrivateKey
	address string
}

// NewWallet parses a root secret for the given chain. EVM chains take a hex
// private key (0x prefix optional); Solana takes a hex or base58 encoded
// 32-byte seed or 64-byte key. Fails with a CredentialError on malformed
// input or an unrecognized chain.
func NewWallet(rootSecret string, chain core.Chain) (*Wallet, error) {
	if rootSecret == "" {
		return nil, core.NewCredentialError(chain.String(), "empty root secret", nil)
	}

	switch {
	case chain.EVM():
		key, err := crypto.HexToECDSA(strings.TrimPrefix(rootSecret, "0x"))
		if err != nil {
			return nil, core.NewCredentialError(chain.String(), "parse secp256k1 key", err)
		}
		return &Wallet{
			chain:   chain,
			evmKey:  key,
			address: crypto.PubkeyToAddress(key.PublicKey).Hex(),
		}, nil

	case chain == core.ChainSolana:
		seed, err := decodeSolanaKey(rootSecret)
		if err != nil {
			return nil, core.NewCredentialError(chain.String(), "parse ed25519 key", err)
		}
		return &Wallet{
			chain:   chain,
			solKey:  seed,
			address: base58.Encode(seed.Public().(ed25519.PublicKey)),
		}, nil

	default:
		return nil, core.NewCredentialError(chain.String(), "unrecognized chain", nil)
	}
}

func decodeSolanaKey(secret string) (ed25519.PrivateKey, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(secret, "0x"))
	if err != nil {
		raw, err = base58.Decode(secret)
		if err != nil {
			return nil, fmt.Errorf("key is neither hex nor base58")
		}
	}

	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	default:
		return nil, fmt.Errorf("key must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
	}
}

// Chain returns the wallet's network.
func (w *Wallet) Chain() core.Chain {
	return w.chain
}

// Address returns the chain-native wallet address: checksummed hex for EVM
// chains, base58 public key for Solana.
func (w *Wallet) Address() string {
	return w.address
}

// SignMessage signs a login message with the root secret's native scheme.
// EVM chains produce a 0x-prefixed personal-sign signature; Solana produces
// a base64 ed25519 signature.
func (w *Wallet) SignMessage(message string) (string, error) {
	switch {
	case w.evmKey != nil:
		hash := personalSignHash([]byte(message))
		sig, err := crypto.Sign(hash, w.evmKey)
		if err != nil {
			return "", core.NewCredentialError(w.chain.String(), "sign login message", err)
		}
		// Recovery id on the wire is 27/28.
		sig[crypto.RecoveryIDOffset] += 27
		return "0x" + hex.EncodeToString(sig), nil

	case w.solKey != nil:
		sig := ed25519.Sign(w.solKey, []byte(message))
		return base64.StdEncoding.EncodeToString(sig), nil

	default:
		return "", core.NewCredentialError(w.chain.String(), "wallet has no key material", nil)
	}
}

// personalSignHash applies the EIP-191 personal message prefix before
// hashing.
func personalSignHash(message []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	return crypto.Keccak256([]byte(prefix), message)
}
