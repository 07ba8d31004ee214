package metrics

import (
	"testing"

	"CoinPulse/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderSnapshotGauges(t *testing.T) {
	r := New(prometheus.NewRegistry())
	r.RecordSnapshot(&models.Snapshot{MarketCapTotal: 2.5e12, BTCPrice: 65000, LiquidationTotal: 1e8, AvgRSI: models.Some(55)})

	assert.Equal(t, 2.5e12, testutil.ToFloat64(r.marketCap))
	assert.Equal(t, 65000.0, testutil.ToFloat64(r.lastPrice.WithLabelValues(models.CoinBitcoin)))
	assert.Equal(t, 55.0, testutil.ToFloat64(r.avgRSI))

	r.RecordSnapshot(&models.Snapshot{AvgRSI: models.None()})
	assert.Equal(t, 55.0, testutil.ToFloat64(r.avgRSI))
}

func TestRecorderCounters(t *testing.T) {
	r := New(prometheus.NewRegistry())
	r.RecordTick("ok")
	r.RecordTick("ok")
	r.RecordTick("skipped_overlap")
	r.RecordSourceFailure(models.SourceLiquidation)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.ticks.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ticks.WithLabelValues("skipped_overlap")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sourceFailures.WithLabelValues(models.SourceLiquidation)))
}
