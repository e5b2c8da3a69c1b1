package checkpointer

import "fmt"

// MemoryStore keeps checkpoints in memory. It is useful for runs which
// should not persist models and for tests.
type MemoryStore struct {
	blobs map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Save implements the Store interface
func (m *MemoryStore) Save(name string, data []byte) error {
	if err := validName(name); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	m.blobs[name] = append([]byte(nil), data...)
	return nil
}

// Load implements the Store interface
func (m *MemoryStore) Load(name string) ([]byte, error) {
	data, ok := m.blobs[name]
	if !ok {
		return nil, fmt.Errorf("load %q: %w", name, ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// Len returns the number of stored checkpoints
func (m *MemoryStore) Len() int {
	return len(m.blobs)
}
