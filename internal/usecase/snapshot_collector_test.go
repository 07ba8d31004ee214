package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinPulse/internal/domain/models"
	"CoinPulse/internal/repository"
)

func risingSeries(n int) models.PriceSeries {
	s := make(models.PriceSeries, n)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range s {
		s[i] = models.PricePoint{Timestamp: t0.Add(time.Duration(i) * time.Hour), Price: 100 + float64(i)}
	}
	return s
}

type collectorFixture struct {
	global  *fakeGlobal
	prices  *fakePrices
	liq     *fakeLiq
	chart   *fakeChart
	store   *repository.MemorySnapshotStore
	metrics *countingMetrics
}

func newFixture() *collectorFixture {
	return &collectorFixture{
		global: &fakeGlobal{stats: models.GlobalStats{
			TotalMarketCapUSD: models.Some(2.5e12),
			BTCDominance:      models.Some(52.1),
		}},
		prices: &fakePrices{prices: models.SimplePrices{
			models.CoinBitcoin:  {Price: models.Some(65000), MarketCap: models.Some(1.28e12)},
			models.CoinEthereum: {Price: models.Some(3500), MarketCap: models.Some(4.2e11)},
			models.CoinDogecoin: {Price: models.Some(0.15), MarketCap: models.Some(2.1e10)},
		}},
		liq:     &fakeLiq{totals: models.LiquidationTotals{TotalUSD: models.Some(1.2e8)}},
		chart:   &fakeChart{series: risingSeries(40)},
		store:   repository.NewMemorySnapshotStore(),
		metrics: newCountingMetrics(),
	}
}

func (f *collectorFixture) collector(opts ...CollectorOption) *SnapshotCollector {
	return NewSnapshotCollector(f.global, f.prices, f.liq, f.chart, f.store, f.metrics, opts...)
}

func TestCollect_AllSourcesHealthy(t *testing.T) {
	f := newFixture()
	snap, err := f.collector().Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2.5e12, snap.MarketCapTotal)
	assert.Equal(t, 65000.0, snap.BTCPrice)
	assert.Equal(t, 4.2e11, snap.ETHMarketCap)
	assert.Equal(t, 0.15, snap.DOGEPrice)
	assert.Equal(t, 1.2e8, snap.LiquidationTotal)
	v, ok := snap.BTCDominance.Get()
	require.True(t, ok)
	assert.Equal(t, 52.1, v)
	// strictly rising closes: every defined RSI is 100
	rsi, ok := snap.AvgRSI.Get()
	require.True(t, ok)
	assert.InDelta(t, 100, rsi, 1e-9)
	assert.False(t, snap.Timestamp.IsZero())
	assert.Equal(t, models.TrackedCoins, f.prices.asked)

	for _, src := range []string{models.SourceGlobal, models.SourcePrices, models.SourceLiquidation, models.SourceHistory} {
		assert.Equal(t, models.SourceOK, snap.Sources[src], src)
	}

	latest, err := f.store.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snap, latest)
}

func TestCollect_LiquidationFailureStillWrites(t *testing.T) {
	f := newFixture()
	f.liq.err = errUpstream

	snap, err := f.collector().Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, snap.LiquidationTotal)
	assert.Equal(t, 65000.0, snap.BTCPrice)
	assert.NotEqual(t, models.SourceOK, snap.Sources[models.SourceLiquidation])
	assert.Equal(t, 1, f.store.Len())
	assert.Equal(t, 1, f.metrics.failures[models.SourceLiquidation])
}

func TestCollect_NoLiquidationProviderIsNotAFailure(t *testing.T) {
	f := newFixture()
	c := NewSnapshotCollector(f.global, f.prices, nil, f.chart, f.store, f.metrics)

	snap, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, snap.LiquidationTotal)
	assert.Zero(t, f.metrics.failures[models.SourceLiquidation])
}

func TestCollect_DefaultsForEachMissingSource(t *testing.T) {
	f := newFixture()
	f.global.err = errUpstream
	f.chart.err = errUpstream
	delete(f.prices.prices, models.CoinDogecoin)

	snap, err := f.collector().Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, snap.MarketCapTotal)
	assert.False(t, snap.BTCDominance.Valid())
	assert.False(t, snap.AvgRSI.Valid())
	assert.Equal(t, 0.0, snap.DOGEPrice)
	assert.Equal(t, 0.0, snap.DOGEMarketCap)
	assert.Equal(t, 3500.0, snap.ETHPrice)
}

func TestCollect_ShortHistoryLeavesRSIUndefined(t *testing.T) {
	f := newFixture()
	f.chart.series = risingSeries(10)

	snap, err := f.collector().Collect(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.AvgRSI.Valid())
	assert.Equal(t, models.SourceOK, snap.Sources[models.SourceHistory])
}

func TestCollect_AllSourcesFailSkipsWrite(t *testing.T) {
	f := newFixture()
	f.global.err = errUpstream
	f.prices.err = errUpstream
	f.liq.err = errUpstream
	f.chart.err = errUpstream

	snap, err := f.collector().Collect(context.Background())
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, models.ErrNoSourceData)
	assert.Equal(t, 0, f.store.Len())
}

func TestCollect_StoreErrorIsWrapped(t *testing.T) {
	f := newFixture()
	c := NewSnapshotCollector(f.global, f.prices, f.liq, f.chart, failingStore{}, f.metrics)

	_, err := c.Collect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.Equal(t, 1, f.metrics.errors["store_append"])
}

func TestCollect_NotifiesSinksAndToleratesSinkErrors(t *testing.T) {
	f := newFixture()
	bad := &recordingSink{fail: errUpstream}
	good := &recordingSink{}

	snap, err := f.collector(WithSinks(bad, nil, good)).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, good.got, 1)
	assert.Equal(t, snap.Timestamp, good.got[0].Timestamp)
	assert.Len(t, bad.got, 1)
	assert.Equal(t, 1, f.metrics.errors["sink_recording"])
}

func TestCollect_TimestampsIncrease(t *testing.T) {
	f := newFixture()
	c := f.collector()
	a, err := c.Collect(context.Background())
	require.NoError(t, err)
	b, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.True(t, b.Timestamp.After(a.Timestamp))

	latest, err := f.store.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, b.Timestamp, latest.Timestamp)
}
