package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// MemoryStore is an in-memory implementation of [Store].
//
// Records are held encoded, so callers never share memory with the store
// and a decode failure surfaces exactly as it would from a file backend.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string][]byte
}

// NewMemoryStore creates an empty [MemoryStore] with every collection present.
func NewMemoryStore() *MemoryStore {
	records := make(map[string]map[string][]byte, len(Collections))
	for _, c := range Collections {
		records[c] = make(map[string][]byte)
	}
	return &MemoryStore{records: records}
}

func (m *MemoryStore) Create(_ context.Context, collection, key string, v any) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	data, err := encode(v)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[collection][key]; ok {
		return fmt.Errorf("%s/%s: %w", collection, key, ErrExists)
	}
	m.records[collection][key] = data
	return nil
}

func (m *MemoryStore) Read(ctx context.Context, collection, key string, v any) error {
	data, err := m.ReadRaw(ctx, collection, key)
	if err != nil {
		return err
	}
	return decode(data, v)
}

func (m *MemoryStore) ReadRaw(_ context.Context, collection, key string) ([]byte, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.records[collection][key]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, key, ErrNotFound)
	}
	return slices.Clone(data), nil
}

func (m *MemoryStore) Update(_ context.Context, collection, key string, v any) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	data, err := encode(v)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[collection][key]; !ok {
		return fmt.Errorf("%s/%s: %w", collection, key, ErrNotFound)
	}
	m.records[collection][key] = data
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, collection, key string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[collection][key]; !ok {
		return fmt.Errorf("%s/%s: %w", collection, key, ErrNotFound)
	}
	delete(m.records[collection], key)
	return nil
}

// List returns a sorted snapshot of the collection's keys.
func (m *MemoryStore) List(_ context.Context, collection string) ([]string, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.records[collection]))
	for k := range m.records[collection] {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// Put writes raw bytes without encoding. Tests use it to plant malformed records.
func (m *MemoryStore) Put(collection, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.records[collection] == nil {
		m.records[collection] = make(map[string][]byte)
	}
	m.records[collection][key] = slices.Clone(data)
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
