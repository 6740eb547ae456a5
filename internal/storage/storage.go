// Package storage provides flat key/value blob stores for persisted game
// state.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when a key has never been written.
var ErrNotFound = errors.New("key not found")

var errWriteDisabled = errors.New("writes disabled")

// Store persists opaque blobs under fixed keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// PersistenceError wraps a backend failure with the operation and key.
type PersistenceError struct {
	Op  string // "get" or "put"
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Open returns the backend named by kind rooted at dir: "file" (also the
// default for ""), "sqlite", or "memory", which ignores dir.
func Open(kind, dir string) (Store, error) {
	switch kind {
	case "", "file":
		return NewFileStore(dir)
	case "sqlite":
		return NewSQLiteStore(dir)
	case "memory":
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", kind)
}
