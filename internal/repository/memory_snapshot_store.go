package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CoinPulse/internal/domain/models"
	"CoinPulse/internal/domain/repository"
)

// MemorySnapshotStore keeps snapshots in insertion order. Used with driver "memory" and in tests.
type MemorySnapshotStore struct {
	mu    sync.RWMutex
	rows  []*models.Snapshot
	clock *monotonicClock
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{clock: newMonotonicClock(time.Now)}
}

var _ repository.SnapshotStore = (*MemorySnapshotStore)(nil)

func (m *MemorySnapshotStore) Init(context.Context) error { return nil }

func (m *MemorySnapshotStore) Append(_ context.Context, s *models.Snapshot) (*models.Snapshot, error) {
	if s == nil {
		return nil, fmt.Errorf("append: nil snapshot")
	}
	row := s.Clone()
	row.Timestamp = m.clock.Next()

	m.mu.Lock()
	m.rows = append(m.rows, row)
	m.mu.Unlock()
	return row.Clone(), nil
}

func (m *MemorySnapshotStore) Latest(context.Context) (*models.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.rows) == 0 {
		return nil, models.ErrNotFound
	}
	return m.rows[len(m.rows)-1].Clone(), nil
}

// Len reports the number of stored snapshots.
func (m *MemorySnapshotStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

func (m *MemorySnapshotStore) Health(context.Context) error { return nil }

func (m *MemorySnapshotStore) Close() error { return nil }
