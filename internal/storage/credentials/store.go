// Package credentials holds API credentials for the lifetime of the process.
package credentials

import "sync"

// Keys under which the API key pair is kept.
const (
	KeyAPIKey    = "binance_api_key"
	KeyAPISecret = "binance_api_secret"
)

// Store is an opaque key-value store for credentials.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// MemoryStore keeps values in process memory only. Nothing is written to disk.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key.
func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
}

// Remove deletes key. Removing a missing key is a no-op.
func (s *MemoryStore) Remove(key string) {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
}
