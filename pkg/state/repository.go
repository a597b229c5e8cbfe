package state

import (
	"context"
	"sync"
)

// Persisted keys.
const (
	KeyRecording   = "recship.recording"
	KeyLastSession = "recship.lastSession"
)

// Repository is a durable string key/value store.
type Repository interface {
	// Get returns the value stored under key. found is false when the key
	// was never written.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value under key durably.
	Set(ctx context.Context, key, value string) error

	// Close releases the store.
	Close() error
}

// MemoryRepository is an in-process Repository, used by tests and when
// durability is disabled.
type MemoryRepository struct {
	mu   sync.RWMutex
	data map[string]string

	// FailWrites, when set, is returned by every Set.
	FailWrites error
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: make(map[string]string)}
}

func (m *MemoryRepository) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryRepository) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.data[key] = value
	return nil
}

func (m *MemoryRepository) Close() error { return nil }
