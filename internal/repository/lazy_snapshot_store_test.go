package repository

import (
	"context"
	"errors"
	"testing"

	"CoinPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails Init until up is set.
type flakyStore struct {
	*MemorySnapshotStore
	up    bool
	inits int
}

func (f *flakyStore) Init(ctx context.Context) error {
	f.inits++
	if !f.up {
		return errors.New("dial tcp 127.0.0.1:9000: connect: connection refused")
	}
	return f.MemorySnapshotStore.Init(ctx)
}

func TestLazyStoreRetriesInitUntilBackendIsUp(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStore{MemorySnapshotStore: NewMemorySnapshotStore()}
	store := NewLazySnapshotStore(inner)

	require.Error(t, store.Init(ctx))
	_, err := store.Append(ctx, sample(1))
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	_, err = store.Latest(ctx)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.False(t, store.Ready())
	assert.Equal(t, 0, inner.Len())

	inner.up = true
	written, err := store.Append(ctx, sample(2))
	require.NoError(t, err)
	assert.True(t, store.Ready())

	got, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, written.Timestamp, got.Timestamp)
	require.NoError(t, store.Health(ctx))

	// schema applied once, not on every call
	assert.Equal(t, 4, inner.inits)
}

func TestSQLStoreBootstrapRunsBeforeSchema(t *testing.T) {
	base := newSQLiteStore(t)
	var calls int
	store := NewSQLSnapshotStore(base.db, SQLite, "crypto_data", WithBootstrap(func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("database not reachable")
		}
		return nil
	}))

	require.Error(t, store.Init(context.Background()))
	require.NoError(t, store.Init(context.Background()))
	assert.Equal(t, 2, calls)
}
