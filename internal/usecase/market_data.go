package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"CoinPulse/internal/domain/models"
	domrepo "CoinPulse/internal/domain/repository"
	icache "CoinPulse/internal/service/cache"
	"CoinPulse/internal/services/indicators"
	xlogger "CoinPulse/pkg/logger"
)

// ErrInvalidRequest marks parameter errors that are the caller's fault.
var ErrInvalidRequest = errors.New("invalid request")

// MarketDataUseCase answers on-demand reads that bypass the snapshot store.
// Upstream payloads are cached for a short TTL to spare rate-limited providers.
type MarketDataUseCase struct {
	chart   domrepo.ChartSource
	news    domrepo.NewsSource
	markets domrepo.MarketsSource
	cache   icache.BytesCache
	ttl     time.Duration
	timeout time.Duration
	metrics domrepo.Metrics
	logger  *xlogger.Logger
}

// MarketDataOption configures MarketDataUseCase.
type MarketDataOption func(*MarketDataUseCase)

// WithCache enables response caching. A nil cache or zero ttl disables it.
func WithCache(c icache.BytesCache, ttl time.Duration) MarketDataOption {
	return func(uc *MarketDataUseCase) {
		uc.cache = c
		uc.ttl = ttl
	}
}

func WithMarketDataLogger(l *xlogger.Logger) MarketDataOption {
	return func(uc *MarketDataUseCase) {
		if l != nil {
			uc.logger = l
		}
	}
}

func NewMarketDataUseCase(
	chart domrepo.ChartSource,
	news domrepo.NewsSource,
	markets domrepo.MarketsSource,
	metrics domrepo.Metrics,
	opts ...MarketDataOption,
) *MarketDataUseCase {
	uc := &MarketDataUseCase{
		chart:   chart,
		news:    news,
		markets: markets,
		metrics: metrics,
		timeout: 20 * time.Second,
		logger:  xlogger.Nop(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// History returns the price series for coin over days, ascending.
func (uc *MarketDataUseCase) History(ctx context.Context, coin string, days int) (models.PriceSeries, error) {
	if coin == "" || days <= 0 {
		return nil, fmt.Errorf("%w: coin and positive days are required", ErrInvalidRequest)
	}
	key := fmt.Sprintf("history:%s:%d", coin, days)
	return cached(ctx, uc, "history", key, func(ctx context.Context) (models.PriceSeries, error) {
		return uc.chart.MarketChart(ctx, coin, days)
	})
}

// Indicators computes the requested indicators over a freshly fetched series.
func (uc *MarketDataUseCase) Indicators(ctx context.Context, coin string, days int, req indicators.Request) ([]models.IndicatorRow, error) {
	series, err := uc.History(ctx, coin, days)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := indicators.Compute(series, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	uc.metrics.RecordLatency("indicators", time.Since(start).Seconds())
	return rows, nil
}

// News returns the provider's news items unmodified.
func (uc *MarketDataUseCase) News(ctx context.Context) ([]models.NewsItem, error) {
	return cached(ctx, uc, "news", "news:en", uc.news.News)
}

// Markets returns the ranked listing unmodified.
func (uc *MarketDataUseCase) Markets(ctx context.Context, perPage, page int) (json.RawMessage, error) {
	if perPage <= 0 || page <= 0 {
		return nil, fmt.Errorf("%w: per_page and page must be positive", ErrInvalidRequest)
	}
	key := fmt.Sprintf("markets:%d:%d", perPage, page)
	return cached(ctx, uc, "markets", key, func(ctx context.Context) (json.RawMessage, error) {
		return uc.markets.Markets(ctx, perPage, page)
	})
}

// cached serves key from the cache or fetches and stores it. dataset labels metrics.
func cached[T any](ctx context.Context, uc *MarketDataUseCase, dataset, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	if uc.cache != nil && uc.ttl > 0 {
		b, ok, err := uc.cache.GetBytes(key)
		if err != nil {
			uc.logger.Warn("cache get failed", xlogger.String("key", key), xlogger.Error(err))
		} else if ok {
			var v T
			if err := json.Unmarshal(b, &v); err == nil {
				return v, nil
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	start := time.Now()
	v, err := fetch(ctx)
	uc.metrics.RecordLatency("upstream_"+dataset, time.Since(start).Seconds())
	if err != nil {
		uc.metrics.RecordError("upstream_" + dataset)
		return zero, err
	}

	if uc.cache != nil && uc.ttl > 0 {
		if b, err := json.Marshal(v); err == nil {
			if err := uc.cache.SetBytes(key, b, uc.ttl); err != nil {
				uc.logger.Warn("cache set failed", xlogger.String("key", key), xlogger.Error(err))
			}
		}
	}
	return v, nil
}
