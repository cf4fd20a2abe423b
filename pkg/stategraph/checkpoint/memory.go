package checkpoint

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory checkpoint store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string][]*Checkpoint
	closed  bool
}

// NewMemoryStore creates a new in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		threads: make(map[string][]*Checkpoint),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(ctx context.Context, cp *Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	history := m.threads[cp.ThreadID]
	cp.Sequence = 1
	if n := len(history); n > 0 {
		cp.Sequence = history[n-1].Sequence + 1
	}
	cp.CreatedAt = time.Now().UTC()

	// Copy so later mutation by the caller cannot corrupt history.
	stored := *cp
	stored.State = append([]byte(nil), cp.State...)
	m.threads[cp.ThreadID] = append(history, &stored)
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(ctx context.Context, threadID string) (*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	history := m.threads[threadID]
	if len(history) == 0 {
		return nil, ErrNotFound
	}
	latest := *history[len(history)-1]
	latest.State = append([]byte(nil), history[len(history)-1].State...)
	return &latest, nil
}

// List implements HistoryStore.
func (m *MemoryStore) List(ctx context.Context, threadID string) ([]Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	history := m.threads[threadID]
	infos := make([]Metadata, 0, len(history))
	for _, cp := range history {
		infos = append(infos, Metadata{Sequence: cp.Sequence, CreatedAt: cp.CreatedAt})
	}
	return infos, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.threads = nil
	return nil
}

// Len returns the total number of checkpoints across all threads.
// Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, history := range m.threads {
		count += len(history)
	}
	return count
}
