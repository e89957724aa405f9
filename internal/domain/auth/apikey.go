// Package auth verifies gateway API keys. A request carrying a valid key may
// assert the authenticated user it acts for.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"slices"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned for missing, unknown or inactive keys.
var ErrUnauthorized = errors.New("unauthorized")

// ScopeActAsUser allows a key to assert the end user via X-User-ID.
const ScopeActAsUser = "cart:user"

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key was granted scope.
func (i *APIKeyInfo) HasScope(scope string) bool {
	return slices.Contains(i.Scopes, scope)
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// HashKey returns the hex HMAC-SHA256 of key under pepper, the form stored
// in the api_keys table.
func HashKey(pepper []byte, key string) string {
	return hex.EncodeToString(sum(pepper, key))
}

func sum(pepper []byte, key string) []byte {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return mac.Sum(nil)
}

// Authenticator resolves raw API keys to APIKeyInfo.
type Authenticator struct {
	keys   Repository
	pepper []byte
}

// NewAuthenticator creates an Authenticator with the given key repository
// and HMAC pepper.
func NewAuthenticator(keys Repository, pepper []byte) *Authenticator {
	return &Authenticator{keys: keys, pepper: pepper}
}

// Authenticate hashes key, looks it up and compares the stored hash in
// constant time.
func (a *Authenticator) Authenticate(ctx context.Context, key string) (*APIKeyInfo, error) {
	if key == "" {
		return nil, ErrUnauthorized
	}
	hash := sum(a.pepper, key)

	info, err := a.keys.FindByHash(ctx, hex.EncodeToString(hash))
	if err != nil {
		return nil, ErrUnauthorized
	}
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if subtle.ConstantTimeCompare(hash, stored) != 1 {
		return nil, ErrUnauthorized
	}
	return info, nil
}
