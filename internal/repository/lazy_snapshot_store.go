package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"CoinPulse/internal/domain/models"
	"CoinPulse/internal/domain/repository"
)

// LazySnapshotStore defers Init of the wrapped store until it succeeds. A
// backend that is down at boot makes ticks fail with ErrStoreUnavailable
// instead of stopping the process, and the schema is applied on the first
// call after it comes back.
type LazySnapshotStore struct {
	inner repository.SnapshotStore
	mu    sync.Mutex
	ready atomic.Bool
}

func NewLazySnapshotStore(inner repository.SnapshotStore) *LazySnapshotStore {
	return &LazySnapshotStore{inner: inner}
}

var _ repository.SnapshotStore = (*LazySnapshotStore)(nil)

// Init runs the wrapped Init unless an earlier call already succeeded.
func (l *LazySnapshotStore) Init(ctx context.Context) error {
	if l.ready.Load() {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ready.Load() {
		return nil
	}
	if err := l.inner.Init(ctx); err != nil {
		return fmt.Errorf("%w: init: %v", models.ErrStoreUnavailable, err)
	}
	l.ready.Store(true)
	return nil
}

// Ready reports whether Init has succeeded.
func (l *LazySnapshotStore) Ready() bool { return l.ready.Load() }

func (l *LazySnapshotStore) Append(ctx context.Context, s *models.Snapshot) (*models.Snapshot, error) {
	if err := l.Init(ctx); err != nil {
		return nil, err
	}
	return l.inner.Append(ctx, s)
}

func (l *LazySnapshotStore) Latest(ctx context.Context) (*models.Snapshot, error) {
	if err := l.Init(ctx); err != nil {
		return nil, err
	}
	return l.inner.Latest(ctx)
}

func (l *LazySnapshotStore) Health(ctx context.Context) error {
	if err := l.Init(ctx); err != nil {
		return err
	}
	return l.inner.Health(ctx)
}

func (l *LazySnapshotStore) Close() error { return l.inner.Close() }
