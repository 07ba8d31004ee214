package metrics

import (
	"CoinPulse/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticks          *prometheus.CounterVec
	sourceFailures *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	marketCap      prometheus.Gauge
	lastPrice      *prometheus.GaugeVec
	liquidation    prometheus.Gauge
	avgRSI         prometheus.Gauge
	latency        *prometheus.HistogramVec
	subscribers    prometheus.Gauge
}

// New creates a recorder registered on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		ticks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpulse_scheduler_ticks_total",
				Help: "Scheduler ticks by outcome",
			},
			[]string{"result"},
		),
		sourceFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpulse_source_failures_total",
				Help: "Upstream sources that were unavailable during a collection run",
			},
			[]string{"source"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		marketCap: f.NewGauge(prometheus.GaugeOpts{
			Name: "coinpulse_market_cap_total_usd",
			Help: "Total market capitalization of the last snapshot",
		}),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coinpulse_last_price_usd",
				Help: "Last recorded price for a coin",
			},
			[]string{"coin"},
		),
		liquidation: f.NewGauge(prometheus.GaugeOpts{
			Name: "coinpulse_liquidation_total_usd",
			Help: "Aggregate liquidations of the last snapshot",
		}),
		avgRSI: f.NewGauge(prometheus.GaugeOpts{
			Name: "coinpulse_avg_rsi",
			Help: "Trailing average RSI of the last snapshot",
		}),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		subscribers: f.NewGauge(prometheus.GaugeOpts{
			Name: "coinpulse_ws_subscribers",
			Help: "Connected push subscribers",
		}),
	}
}

func (r *Recorder) RecordTick(result string) {
	r.ticks.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordSourceFailure(source string) {
	r.sourceFailures.WithLabelValues(source).Inc()
}

// RecordSnapshot exports the stored values as gauges. Unavailable RSI leaves the gauge untouched.
func (r *Recorder) RecordSnapshot(s *models.Snapshot) {
	if s == nil {
		return
	}
	r.marketCap.Set(s.MarketCapTotal)
	for _, coin := range models.TrackedCoins {
		if q, ok := s.Quote(coin); ok {
			r.lastPrice.WithLabelValues(coin).Set(q.Price)
		}
	}
	r.liquidation.Set(s.LiquidationTotal)
	if v, ok := s.AvgRSI.Get(); ok {
		r.avgRSI.Set(v)
	}
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) SetSubscribers(n int) {
	r.subscribers.Set(float64(n))
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTick(string)               {}
func (Nop) RecordSourceFailure(string)      {}
func (Nop) RecordSnapshot(*models.Snapshot) {}
func (Nop) RecordError(string)              {}
func (Nop) RecordLatency(string, float64)   {}
func (Nop) SetSubscribers(int)              {}
