package indicators

import (
	"testing"
	"time"

	"CoinPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func countDefined(vals []models.Value) int {
	n := 0
	for _, v := range vals {
		if v.Valid() {
			n++
		}
	}
	return n
}

func firstDefined(vals []models.Value) int {
	for i, v := range vals {
		if v.Valid() {
			return i
		}
	}
	return -1
}

func TestRSIDefinedCount(t *testing.T) {
	closes := ramp(30)
	out := RSI(closes, 14)
	require.Len(t, out, 30)
	assert.Equal(t, 30-14, countDefined(out))
	assert.Equal(t, 14, firstDefined(out))
}

func TestRSIShortFlatSeriesUndefined(t *testing.T) {
	out := RSI(constant(14, 100), 14)
	assert.Equal(t, 0, countDefined(out))
}

func TestRSIFlatSeriesNeutral(t *testing.T) {
	out := RSI(constant(40, 100), 14)
	for i := 14; i < 40; i++ {
		v, ok := out[i].Get()
		require.True(t, ok)
		assert.Equal(t, 50.0, v)
	}
}

func TestRSIOnlyGains(t *testing.T) {
	out := RSI(ramp(20), 14)
	v, ok := out[19].Get()
	require.True(t, ok)
	assert.Equal(t, 100.0, v)
}

func TestRSIKnownValue(t *testing.T) {
	// Alternating +2/-1 changes: average gain 1, average loss 0.5 over an even window.
	closes := []float64{10}
	for i := 0; i < 14; i++ {
		if i%2 == 0 {
			closes = append(closes, closes[len(closes)-1]+2)
		} else {
			closes = append(closes, closes[len(closes)-1]-1)
		}
	}
	out := RSI(closes, 14)
	v, ok := out[14].Get()
	require.True(t, ok)
	assert.InDelta(t, 100-100/(1+2.0), v, 1e-9)
}

func TestConstantSeriesConvergence(t *testing.T) {
	const c = 42.5
	closes := constant(60, c)

	ema := EMA(closes, 14)
	assert.Equal(t, 13, firstDefined(ema))
	for i := 13; i < 60; i++ {
		assert.InDelta(t, c, ema[i].OrZero(), 1e-9)
	}

	m := MACD(closes, 12, 26, 9)
	assert.Equal(t, 25, firstDefined(m.MACD))
	assert.Equal(t, 33, firstDefined(m.Signal))
	assert.Equal(t, 33, firstDefined(m.Hist))
	for i := 33; i < 60; i++ {
		assert.InDelta(t, 0, m.MACD[i].OrZero(), 1e-9)
		assert.InDelta(t, 0, m.Signal[i].OrZero(), 1e-9)
		assert.InDelta(t, 0, m.Hist[i].OrZero(), 1e-9)
	}

	bb := Bollinger(closes, 20, 2)
	assert.Equal(t, 19, firstDefined(bb.Middle))
	for i := 19; i < 60; i++ {
		assert.InDelta(t, c, bb.Middle[i].OrZero(), 1e-9)
		assert.InDelta(t, c, bb.Upper[i].OrZero(), 1e-9)
		assert.InDelta(t, c, bb.Lower[i].OrZero(), 1e-9)
	}

	ich := Ichimoku(closes, closes, 9, 26)
	assert.Equal(t, 8, firstDefined(ich.Conversion))
	assert.Equal(t, 25, firstDefined(ich.Base))
	assert.Equal(t, c, ich.Base[59].OrZero())
}

func TestBollingerPopulationStd(t *testing.T) {
	closes := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	bb := Bollinger(closes, 8, 2)
	assert.InDelta(t, 5.0, bb.Middle[7].OrZero(), 1e-9)
	assert.InDelta(t, 9.0, bb.Upper[7].OrZero(), 1e-9)
	assert.InDelta(t, 1.0, bb.Lower[7].OrZero(), 1e-9)
}

func TestIchimokuMidpoint(t *testing.T) {
	closes := []float64{1, 5, 3, 9, 2}
	ich := Ichimoku(closes, closes, 3, 5)
	assert.InDelta(t, 3.0, ich.Conversion[2].OrZero(), 1e-9)
	assert.InDelta(t, 6.0, ich.Conversion[3].OrZero(), 1e-9)
	assert.InDelta(t, 5.0, ich.Base[4].OrZero(), 1e-9)
}

func TestShortSeriesAllUnavailable(t *testing.T) {
	closes := ramp(5)
	assert.Equal(t, 0, countDefined(EMA(closes, 14)))
	assert.Equal(t, 0, countDefined(MACD(closes, 12, 26, 9).MACD))
	assert.Equal(t, 0, countDefined(Bollinger(closes, 20, 2).Middle))
}

func TestAverageDefined(t *testing.T) {
	avg := AverageDefined([]models.Value{models.None(), models.Some(40), models.Some(60)})
	v, ok := avg.Get()
	require.True(t, ok)
	assert.Equal(t, 50.0, v)

	assert.False(t, AverageDefined([]models.Value{models.None()}).Valid())
	assert.False(t, AverageDefined(nil).Valid())
}

func TestComputeOnlyRequestedColumns(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(models.PriceSeries, 30)
	for i := range series {
		series[i] = models.PricePoint{Timestamp: base.Add(time.Duration(i) * time.Hour), Price: float64(100 + i)}
	}

	rows, err := Compute(series, Request{Kinds: []Kind{KindRSI}})
	require.NoError(t, err)
	require.Len(t, rows, 30)
	for _, r := range rows {
		assert.NotNil(t, r.RSI)
		assert.Nil(t, r.EMA)
		assert.Nil(t, r.MACD)
		assert.Nil(t, r.BBMiddle)
	}
	assert.False(t, rows[0].RSI.Valid())
	assert.True(t, rows[14].RSI.Valid())
	assert.Equal(t, series[3].Timestamp, rows[3].Timestamp)
}

func TestComputeRejectsBadParameters(t *testing.T) {
	_, err := Compute(models.PriceSeries{}, Request{RSIPeriod: -1})
	assert.Error(t, err)

	_, err = Compute(models.PriceSeries{}, Request{MACDFast: 30, MACDSlow: 26})
	assert.Error(t, err)
}

func TestParseKinds(t *testing.T) {
	kinds, err := ParseKinds("RSI, ema,rsi")
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindRSI, KindEMA}, kinds)

	kinds, err = ParseKinds("")
	require.NoError(t, err)
	assert.Equal(t, AllKinds, kinds)

	_, err = ParseKinds("rsi,stochastic")
	assert.Error(t, err)
}
