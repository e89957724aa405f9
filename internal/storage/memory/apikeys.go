package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/auth"
)

var _ auth.Repository = (*APIKeyStore)(nil)

// APIKeyStore holds API keys in memory, indexed by hash.
type APIKeyStore struct {
	mu     sync.RWMutex
	byHash map[string]auth.APIKeyInfo
}

// NewAPIKeyStore returns an APIKeyStore seeded with keys.
func NewAPIKeyStore(keys ...auth.APIKeyInfo) *APIKeyStore {
	s := &APIKeyStore{byHash: make(map[string]auth.APIKeyInfo, len(keys))}
	for _, k := range keys {
		s.Put(k)
	}
	return s
}

// Put inserts or replaces a key.
func (s *APIKeyStore) Put(k auth.APIKeyInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byHash[k.KeyHash] = k
}

func (s *APIKeyStore) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.byHash[hash]
	if !ok {
		return nil, auth.ErrUnauthorized
	}
	k.Scopes = slices.Clone(k.Scopes)
	return &k, nil
}
