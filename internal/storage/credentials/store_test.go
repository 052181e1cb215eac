package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	_, ok := s.Get(KeyAPIKey)
	assert.False(t, ok)

	s.Set(KeyAPIKey, "key")
	s.Set(KeyAPISecret, "secret")

	v, ok := s.Get(KeyAPIKey)
	assert.True(t, ok)
	assert.Equal(t, "key", v)

	s.Remove(KeyAPIKey)
	s.Remove("missing")

	_, ok = s.Get(KeyAPIKey)
	assert.False(t, ok)
	v, ok = s.Get(KeyAPISecret)
	assert.True(t, ok)
	assert.Equal(t, "secret", v)
}
