package task

import (
	"context"
	"encoding/json"
	"sync"
)

// MockSnapshotStore implements SnapshotStore in memory for testing.
// Snapshots are round-tripped through JSON so tests exercise the same
// encoding as the real stores.
type MockSnapshotStore struct {
	mutex sync.Mutex
	data  []byte
	saves int

	SaveFn  func(ctx context.Context, snapshot *Snapshot) error
	LoadFn  func(ctx context.Context) (*Snapshot, error)
	ClearFn func(ctx context.Context) error
}

// NewMockSnapshotStore creates an empty MockSnapshotStore.
func NewMockSnapshotStore() *MockSnapshotStore {
	return &MockSnapshotStore{}
}

// Save implements SnapshotStore
func (m *MockSnapshotStore) Save(ctx context.Context, snapshot *Snapshot) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, snapshot)
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.data = data
	m.saves++
	return nil
}

// Load implements SnapshotStore
func (m *MockSnapshotStore) Load(ctx context.Context) (*Snapshot, error) {
	if m.LoadFn != nil {
		return m.LoadFn(ctx)
	}

	m.mutex.Lock()
	data := m.data
	m.mutex.Unlock()

	if data == nil {
		return nil, ErrNoSnapshot
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, ErrCorruptSnapshot
	}
	return &s, nil
}

// Clear implements SnapshotStore
func (m *MockSnapshotStore) Clear(ctx context.Context) error {
	if m.ClearFn != nil {
		return m.ClearFn(ctx)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.data = nil
	return nil
}

// SetRaw replaces the stored bytes, e.g. with corrupt content.
func (m *MockSnapshotStore) SetRaw(data []byte) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.data = data
}

// Raw returns the stored bytes.
func (m *MockSnapshotStore) Raw() []byte {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.data
}

// SaveCount returns the number of successful default saves.
func (m *MockSnapshotStore) SaveCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.saves
}
