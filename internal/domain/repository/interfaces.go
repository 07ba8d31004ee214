package repository

import (
	"context"
	"encoding/json"

	"CoinPulse/internal/domain/models"
)

// SnapshotStore is the append-only time series of market snapshots.
// One writer and many readers may use it concurrently.
type SnapshotStore interface {
	Init(ctx context.Context) error // ensure tables, apply migrations
	// Append persists s, assigning its timestamp, and returns the stored row.
	Append(ctx context.Context, s *models.Snapshot) (*models.Snapshot, error)
	// Latest returns models.ErrNotFound when the store is empty.
	Latest(ctx context.Context) (*models.Snapshot, error)
	Health(ctx context.Context) error
	Close() error
}

// SnapshotSink receives every snapshot after it is stored.
type SnapshotSink interface {
	Name() string
	OnSnapshot(ctx context.Context, s *models.Snapshot) error
}

type GlobalSource interface {
	Global(ctx context.Context) (models.GlobalStats, error)
}

type PriceSource interface {
	SimplePrices(ctx context.Context, coins []string) (models.SimplePrices, error)
}

type LiquidationSource interface {
	Liquidations(ctx context.Context) (models.LiquidationTotals, error)
}

type ChartSource interface {
	MarketChart(ctx context.Context, coin string, days int) (models.PriceSeries, error)
}

type MarketsSource interface {
	Markets(ctx context.Context, perPage, page int) (json.RawMessage, error)
}

type NewsSource interface {
	News(ctx context.Context) ([]models.NewsItem, error)
}

type Metrics interface {
	RecordTick(result string)
	RecordSourceFailure(source string)
	RecordSnapshot(s *models.Snapshot)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	SetSubscribers(n int)
}
