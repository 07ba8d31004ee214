package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"CoinPulse/internal/domain/models"
)

var errUpstream = errors.New("upstream down")

type fakeGlobal struct {
	stats models.GlobalStats
	err   error
}

func (f *fakeGlobal) Global(context.Context) (models.GlobalStats, error) { return f.stats, f.err }

type fakePrices struct {
	prices models.SimplePrices
	err    error
	asked  []string
}

func (f *fakePrices) SimplePrices(_ context.Context, coins []string) (models.SimplePrices, error) {
	f.asked = coins
	return f.prices, f.err
}

type fakeLiq struct {
	totals models.LiquidationTotals
	err    error
}

func (f *fakeLiq) Liquidations(context.Context) (models.LiquidationTotals, error) {
	return f.totals, f.err
}

type fakeChart struct {
	mu     sync.Mutex
	series models.PriceSeries
	err    error
	calls  int
}

func (f *fakeChart) MarketChart(context.Context, string, int) (models.PriceSeries, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.series, f.err
}

func (f *fakeChart) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNews struct {
	items []models.NewsItem
	err   error
}

func (f *fakeNews) News(context.Context) ([]models.NewsItem, error) { return f.items, f.err }

type fakeMarkets struct {
	body json.RawMessage
	err  error
}

func (f *fakeMarkets) Markets(context.Context, int, int) (json.RawMessage, error) {
	return f.body, f.err
}

type recordingSink struct {
	mu   sync.Mutex
	got  []*models.Snapshot
	fail error
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) OnSnapshot(_ context.Context, s *models.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, s)
	return r.fail
}

// failingStore rejects every write.
type failingStore struct{}

func (failingStore) Init(context.Context) error { return nil }
func (failingStore) Append(context.Context, *models.Snapshot) (*models.Snapshot, error) {
	return nil, errors.New("connection refused")
}
func (failingStore) Latest(context.Context) (*models.Snapshot, error) {
	return nil, errors.New("connection refused")
}
func (failingStore) Health(context.Context) error { return errors.New("connection refused") }
func (failingStore) Close() error                 { return nil }

// countingMetrics keeps tick results and failures for assertions.
type countingMetrics struct {
	mu          sync.Mutex
	ticks       map[string]int
	failures    map[string]int
	errors      map[string]int
	subscribers int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{ticks: map[string]int{}, failures: map[string]int{}, errors: map[string]int{}}
}

func (m *countingMetrics) RecordTick(r string) {
	m.mu.Lock()
	m.ticks[r]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordSourceFailure(s string) {
	m.mu.Lock()
	m.failures[s]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordSnapshot(*models.Snapshot) {}

func (m *countingMetrics) RecordError(k string) {
	m.mu.Lock()
	m.errors[k]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordLatency(string, float64) {}

func (m *countingMetrics) SetSubscribers(n int) {
	m.mu.Lock()
	m.subscribers = n
	m.mu.Unlock()
}

func (m *countingMetrics) Tick(r string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticks[r]
}
