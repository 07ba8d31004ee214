package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinPulse/internal/domain/models"
	"CoinPulse/internal/repository"
)

func TestPublisher_LatestNoDataYet(t *testing.T) {
	p := NewPublisher(repository.NewMemorySnapshotStore(), newCountingMetrics(), nil)

	s, ok, err := p.Latest(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, s)
	assert.Nil(t, p.Current())
	require.NoError(t, p.Prime(context.Background()))
	assert.Nil(t, p.Current())
}

func TestPublisher_LatestReturnsStoredSnapshot(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	_, err := store.Append(context.Background(), &models.Snapshot{BTCPrice: 1})
	require.NoError(t, err)
	want, err := store.Append(context.Background(), &models.Snapshot{BTCPrice: 2})
	require.NoError(t, err)

	p := NewPublisher(store, newCountingMetrics(), nil)
	got, ok, err := p.Latest(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, p.Prime(context.Background()))
	require.NotNil(t, p.Current())
	assert.Equal(t, 2.0, p.Current().BTCPrice)
}

func TestPublisher_StoreErrorSurfaces(t *testing.T) {
	p := NewPublisher(failingStore{}, newCountingMetrics(), nil)
	_, _, err := p.Latest(context.Background())
	assert.Error(t, err)
	assert.Error(t, p.Health(context.Background()))
}

func TestPublisher_OnSnapshotUpdatesCurrent(t *testing.T) {
	p := NewPublisher(repository.NewMemorySnapshotStore(), newCountingMetrics(), nil)
	in := &models.Snapshot{ETHPrice: 3000, Sources: map[string]string{"global": "ok"}}
	require.NoError(t, p.OnSnapshot(context.Background(), in))

	in.Sources["global"] = "mutated"
	cur := p.Current()
	require.NotNil(t, cur)
	assert.Equal(t, 3000.0, cur.ETHPrice)
	assert.Equal(t, "ok", cur.Sources["global"])
}

func TestPublisher_SubscriberCount(t *testing.T) {
	m := newCountingMetrics()
	p := NewPublisher(repository.NewMemorySnapshotStore(), m, nil)

	release1 := p.Subscribe()
	release2 := p.Subscribe()
	assert.Equal(t, 2, p.Subscribers())
	assert.Equal(t, 2, m.subscribers)

	release1()
	release1()
	assert.Equal(t, 1, p.Subscribers())
	release2()
	assert.Equal(t, 0, m.subscribers)
}
