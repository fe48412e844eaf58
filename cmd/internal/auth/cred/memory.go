package cred

import "sync"

// MemStore is an in-memory Store. Used by tests and by callers that opt
// out of persistence entirely.
type MemStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemStore returns an empty in-memory credential store.
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

// Token implements Store.
func (s *MemStore) Token() (string, error) { return s.get(keyAccessToken) }

// SetToken implements Store.
func (s *MemStore) SetToken(token string) error { return s.set(keyAccessToken, token) }

// Identity implements Store.
func (s *MemStore) Identity() (string, error) { return s.get(keyIdentity) }

// SetIdentity implements Store.
func (s *MemStore) SetIdentity(identityJSON string) error { return s.set(keyIdentity, identityJSON) }

// Clear implements Store.
func (s *MemStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, keyAccessToken)
	delete(s.values, keyIdentity)
	return nil
}

func (s *MemStore) get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok || v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *MemStore) set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
