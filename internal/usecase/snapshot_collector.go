package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"CoinPulse/internal/domain/models"
	domrepo "CoinPulse/internal/domain/repository"
	"CoinPulse/internal/service/upstream"
	"CoinPulse/internal/services/indicators"
	xlogger "CoinPulse/pkg/logger"
)

// SnapshotCollector fans out to every upstream source, combines whatever came back
// into one Snapshot and stores it. A missing source is replaced by its default.
type SnapshotCollector struct {
	global  domrepo.GlobalSource
	prices  domrepo.PriceSource
	liq     domrepo.LiquidationSource
	chart   domrepo.ChartSource
	store   domrepo.SnapshotStore
	sinks   []domrepo.SnapshotSink
	metrics domrepo.Metrics
	logger  *xlogger.Logger

	coins     []string
	timeout   time.Duration
	rsiCoin   string
	rsiDays   int
	rsiPeriod int
}

// CollectorOption configures SnapshotCollector.
type CollectorOption func(*SnapshotCollector)

func WithCollectTimeout(d time.Duration) CollectorOption {
	return func(c *SnapshotCollector) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRSIWindow selects the coin, lookback in days and RSI period used for AvgRSI.
func WithRSIWindow(coin string, days, period int) CollectorOption {
	return func(c *SnapshotCollector) {
		if coin != "" {
			c.rsiCoin = coin
		}
		if days > 0 {
			c.rsiDays = days
		}
		if period > 0 {
			c.rsiPeriod = period
		}
	}
}

// WithSinks registers receivers of every stored snapshot.
func WithSinks(sinks ...domrepo.SnapshotSink) CollectorOption {
	return func(c *SnapshotCollector) {
		for _, s := range sinks {
			if s != nil {
				c.sinks = append(c.sinks, s)
			}
		}
	}
}

func WithCollectorLogger(l *xlogger.Logger) CollectorOption {
	return func(c *SnapshotCollector) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewSnapshotCollector wires the sources. liq may be nil when no liquidation provider exists.
func NewSnapshotCollector(
	global domrepo.GlobalSource,
	prices domrepo.PriceSource,
	liq domrepo.LiquidationSource,
	chart domrepo.ChartSource,
	store domrepo.SnapshotStore,
	metrics domrepo.Metrics,
	opts ...CollectorOption,
) *SnapshotCollector {
	c := &SnapshotCollector{
		global:    global,
		prices:    prices,
		liq:       liq,
		chart:     chart,
		store:     store,
		metrics:   metrics,
		logger:    xlogger.Nop(),
		coins:     models.TrackedCoins,
		timeout:   60 * time.Second,
		rsiCoin:   models.CoinBitcoin,
		rsiDays:   14,
		rsiPeriod: indicators.DefaultRSIPeriod,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect runs one collection and returns the stored snapshot.
// It returns models.ErrNoSourceData when every source was unavailable and
// an error wrapping models.ErrStoreUnavailable when the write failed.
func (c *SnapshotCollector) Collect(ctx context.Context) (*models.Snapshot, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		wg      sync.WaitGroup
		global  models.SourceResult[models.GlobalStats]
		prices  models.SourceResult[models.SimplePrices]
		liq     models.SourceResult[models.LiquidationTotals]
		history models.SourceResult[models.PriceSeries]
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		global = fetch(ctx, models.SourceGlobal, c.global.Global)
	}()
	go func() {
		defer wg.Done()
		prices = fetch(ctx, models.SourcePrices, func(ctx context.Context) (models.SimplePrices, error) {
			return c.prices.SimplePrices(ctx, c.coins)
		})
	}()
	go func() {
		defer wg.Done()
		if c.liq == nil {
			liq = models.Unavailable[models.LiquidationTotals](models.SourceLiquidation, models.ErrCredentialMissing)
			return
		}
		liq = fetch(ctx, models.SourceLiquidation, c.liq.Liquidations)
	}()
	go func() {
		defer wg.Done()
		history = fetch(ctx, models.SourceHistory, func(ctx context.Context) (models.PriceSeries, error) {
			return c.chart.MarketChart(ctx, c.rsiCoin, c.rsiDays)
		})
	}()
	wg.Wait()

	snap := &models.Snapshot{Sources: map[string]string{}}
	available := 0

	// global
	c.report(snap, global.Source, global.Reason(), global.Err)
	if global.OK() {
		available++
		snap.MarketCapTotal = global.Data.TotalMarketCapUSD.OrZero()
		snap.BTCDominance = global.Data.BTCDominance
	} else {
		snap.MarketCapTotal = 0
		snap.BTCDominance = models.None()
	}

	// prices
	c.report(snap, prices.Source, prices.Reason(), prices.Err)
	if prices.OK() {
		available++
		for _, coin := range c.coins {
			q := prices.Data[coin]
			snap.SetQuote(coin, models.Quote{Price: q.Price.OrZero(), MarketCap: q.MarketCap.OrZero()})
		}
	}

	// liquidation
	c.report(snap, liq.Source, liq.Reason(), liq.Err)
	if liq.OK() {
		available++
		snap.LiquidationTotal = liq.Data.TotalUSD.OrZero()
	}

	// history
	c.report(snap, history.Source, history.Reason(), history.Err)
	snap.AvgRSI = models.None()
	if history.OK() {
		available++
		snap.AvgRSI = indicators.AverageDefined(indicators.RSI(history.Data.Closes(), c.rsiPeriod))
	}

	if available == 0 {
		c.logger.Warn("collect: every source unavailable, skipping write")
		return nil, models.ErrNoSourceData
	}

	written, err := c.store.Append(ctx, snap)
	if err != nil {
		c.metrics.RecordError("store_append")
		if !errors.Is(err, models.ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
		}
		return nil, fmt.Errorf("append snapshot: %w", err)
	}

	c.metrics.RecordSnapshot(written)
	c.metrics.RecordLatency("collect", time.Since(start).Seconds())
	c.logger.Info("snapshot stored",
		xlogger.Time("timestamp", written.Timestamp),
		xlogger.Float64("market_cap_total", written.MarketCapTotal),
		xlogger.Float64("btc_price", written.BTCPrice),
		xlogger.Int("sources_ok", available),
		xlogger.Duration("duration_ms", time.Since(start)),
	)

	for _, sink := range c.sinks {
		if err := sink.OnSnapshot(ctx, written); err != nil {
			c.metrics.RecordError("sink_" + sink.Name())
			c.logger.Warn("snapshot sink failed", xlogger.String("sink", sink.Name()), xlogger.Error(err))
		}
	}
	return written, nil
}

func (c *SnapshotCollector) report(snap *models.Snapshot, source, reason string, err error) {
	snap.Sources[source] = reason
	if err == nil {
		return
	}
	if errors.Is(err, models.ErrCredentialMissing) {
		c.logger.Debug("source disabled", xlogger.String("source", source))
		return
	}
	c.metrics.RecordSourceFailure(source)
	c.logger.Warn("source unavailable, using default",
		xlogger.String("source", source),
		xlogger.String("kind", upstream.Kind(err)),
		xlogger.Error(err),
	)
}

func fetch[T any](ctx context.Context, source string, fn func(context.Context) (T, error)) models.SourceResult[T] {
	start := time.Now()
	v, err := fn(ctx)
	var r models.SourceResult[T]
	if err != nil {
		r = models.Unavailable[T](source, err)
	} else {
		r = models.Available(source, v)
	}
	r.Elapsed = time.Since(start)
	return r
}
