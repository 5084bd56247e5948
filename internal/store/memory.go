package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/carevault/medreports/internal/model"
)

// MemoryStore holds the serialized slot in process memory. It round-trips
// through the same codec as the durable backends so tests observe identical
// parse semantics.
type MemoryStore struct {
	mu      sync.RWMutex
	payload []byte
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load decodes the current slot payload.
func (s *MemoryStore) Load(ctx context.Context) (model.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return decode(s.payload), nil
}

// Save replaces the slot payload.
func (s *MemoryStore) Save(ctx context.Context, col model.Collection) error {
	data, err := encode(col)
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = data
	return nil
}

// Corrupt overwrites the payload with arbitrary bytes. Test hook for the
// fail-soft load path.
func (s *MemoryStore) Corrupt(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = append([]byte(nil), data...)
}
