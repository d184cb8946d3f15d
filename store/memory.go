package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/amp-labs/amp-fsm/fsm"
)

// Memory is an in-process Store. Snapshots are stored encoded, so callers
// never share a snapshot with the store.
type Memory struct {
	mu      sync.RWMutex
	engines map[string]map[string][]byte
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{engines: make(map[string]map[string][]byte)}
}

func (m *Memory) Save(_ context.Context, snap *fsm.Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.engines[snap.Engine]
	if !ok {
		bucket = make(map[string][]byte)
		m.engines[snap.Engine] = bucket
	}

	bucket[snap.ID] = data

	return nil
}

func (m *Memory) Load(_ context.Context, engine, id string) (*fsm.Snapshot, error) {
	m.mu.RLock()
	data, ok := m.engines[engine][id]
	m.mu.RUnlock()

	if !ok {
		return nil, NotFound(engine, id)
	}

	return Decode(data)
}

func (m *Memory) Delete(_ context.Context, engine, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.engines[engine][id]; !ok {
		return NotFound(engine, id)
	}

	delete(m.engines[engine], id)

	return nil
}

func (m *Memory) List(_ context.Context, engine string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Sorted(maps.Keys(m.engines[engine])), nil
}

func (m *Memory) Close() error {
	return nil
}
