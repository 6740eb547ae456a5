package storage

import (
	"context"
	"sync"
)

// Memory is an in-process store for tests and simulation.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte

	// FailPuts makes every Put return an error.
	FailPuts bool
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPuts {
		return &PersistenceError{Op: "put", Key: key, Err: errWriteDisabled}
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Close() error {
	return nil
}
