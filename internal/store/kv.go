// Package store provides the persistent notification queue and the
// key-value backends it is stored in.
package store

import (
	"errors"
	"sync"
)

// KV is a scoped string store. Reads and writes are atomic per key.
type KV interface {
	// Get returns the value stored under key, or def if the key is unset.
	Get(key, def string) (string, error)

	// Put stores value under key, replacing any previous value.
	Put(key, value string) error

	// Close releases file handles and resources.
	Close() error
}

// ErrClosed is returned when operations are attempted on a closed store.
var ErrClosed = errors.New("store is closed")

// MemoryKV is an in-process KV. Contents do not survive a restart.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
	closed bool
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

// Get returns the value stored under key, or def if unset.
func (m *MemoryKV) Get(key, def string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", ErrClosed
	}
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return def, nil
}

// Put stores value under key.
func (m *MemoryKV) Put(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.values[key] = value
	return nil
}

// Close marks the store closed.
func (m *MemoryKV) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
