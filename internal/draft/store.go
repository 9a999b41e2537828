// Package draft persists the working report between sessions. A Store is a
// single key-value slot holding the serialized report; the Adapter turns
// that slot into report values and absorbs its failures.
package draft

import (
	"context"
	"errors"
	"sync"
)

// ErrNoDraft is returned by Store.Load when the slot is empty.
var ErrNoDraft = errors.New("no draft")

// #region store
// Store is the persistent slot behind the draft.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, payload []byte) error
	Clear(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
// #endregion store

// #region memory
// MemoryStore keeps the draft in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	payload []byte
	// Fail, when set, is returned by every Load and Save.
	Fail error
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	if m.payload == nil {
		return nil, ErrNoDraft
	}
	return append([]byte(nil), m.payload...), nil
}

func (m *MemoryStore) Save(ctx context.Context, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.payload = append([]byte{}, payload...)
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payload = nil
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }
func (m *MemoryStore) Close() error                   { return nil }
// #endregion memory
