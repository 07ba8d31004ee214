// Package indicators computes technical indicators over a close-price series.
//
// Every function returns one cell per input point. Cells inside an indicator's
// warm-up window are unavailable rather than zero, so output rows stay aligned
// with the input series.
package indicators

import (
	"math"

	"CoinPulse/internal/domain/models"
)

const (
	DefaultRSIPeriod          = 14
	DefaultEMAWindow          = 14
	DefaultMACDFast           = 12
	DefaultMACDSlow           = 26
	DefaultMACDSignal         = 9
	DefaultBollingerPeriod    = 20
	DefaultBollingerK         = 2.0
	DefaultIchimokuConversion = 9
	DefaultIchimokuBase       = 26
)

func unavailable(n int) []models.Value {
	return make([]models.Value, n)
}

// RSI uses Wilder's smoothing. The first period cells are unavailable; the cell at
// index period is seeded from the simple average of the first period changes.
// A flat window reads 50 and a window with no losses reads 100.
func RSI(closes []float64, period int) []models.Value {
	out := unavailable(len(closes))
	if period <= 0 || len(closes) <= period {
		return out
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		g, l := change(closes[i-1], closes[i])
		gain += g
		loss += l
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	out[period] = models.Some(rsiFrom(avgGain, avgLoss))

	p := float64(period)
	for i := period + 1; i < len(closes); i++ {
		g, l := change(closes[i-1], closes[i])
		avgGain = (avgGain*(p-1) + g) / p
		avgLoss = (avgLoss*(p-1) + l) / p
		out[i] = models.Some(rsiFrom(avgGain, avgLoss))
	}
	return out
}

func change(prev, cur float64) (gain, loss float64) {
	d := cur - prev
	if d > 0 {
		return d, 0
	}
	return 0, -d
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	switch {
	case avgGain == 0 && avgLoss == 0:
		return 50
	case avgLoss == 0:
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// EMA is seeded at index window-1 with the simple average of the first window closes.
func EMA(closes []float64, window int) []models.Value {
	vals, start := ema(closes, window)
	return wrap(vals, start)
}

// ema returns raw values and the first defined index (len(in) when none).
func ema(in []float64, window int) ([]float64, int) {
	out := make([]float64, len(in))
	if window <= 0 || len(in) < window {
		return out, len(in)
	}
	var sum float64
	for i := 0; i < window; i++ {
		sum += in[i]
	}
	start := window - 1
	out[start] = sum / float64(window)
	alpha := 2 / (float64(window) + 1)
	for i := window; i < len(in); i++ {
		out[i] = alpha*in[i] + (1-alpha)*out[i-1]
	}
	return out, start
}

func wrap(vals []float64, start int) []models.Value {
	out := unavailable(len(vals))
	for i := start; i < len(vals); i++ {
		out[i] = models.Some(vals[i])
	}
	return out
}

// MACDResult holds the three MACD columns.
type MACDResult struct {
	MACD   []models.Value
	Signal []models.Value
	Hist   []models.Value
}

// MACD is EMA(fast) minus EMA(slow), defined from index slow-1. The signal line is an
// EMA over the defined MACD values and is defined from index slow-1+signal-1.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	n := len(closes)
	res := MACDResult{MACD: unavailable(n), Signal: unavailable(n), Hist: unavailable(n)}
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return res
	}

	fastVals, fastStart := ema(closes, fast)
	slowVals, slowStart := ema(closes, slow)
	start := max(fastStart, slowStart)
	if start >= n {
		return res
	}

	line := make([]float64, n-start)
	for i := start; i < n; i++ {
		line[i-start] = fastVals[i] - slowVals[i]
		res.MACD[i] = models.Some(line[i-start])
	}

	sig, sigStart := ema(line, signal)
	for j := sigStart; j < len(line); j++ {
		i := j + start
		res.Signal[i] = models.Some(sig[j])
		res.Hist[i] = models.Some(line[j] - sig[j])
	}
	return res
}

// BollingerResult holds the three band columns.
type BollingerResult struct {
	Upper  []models.Value
	Middle []models.Value
	Lower  []models.Value
}

// Bollinger bands use the population standard deviation of each window.
func Bollinger(closes []float64, period int, k float64) BollingerResult {
	n := len(closes)
	res := BollingerResult{Upper: unavailable(n), Middle: unavailable(n), Lower: unavailable(n)}
	if period <= 0 || n < period {
		return res
	}
	for i := period - 1; i < n; i++ {
		window := closes[i-period+1 : i+1]
		mean, std := meanStd(window)
		res.Middle[i] = models.Some(mean)
		res.Upper[i] = models.Some(mean + k*std)
		res.Lower[i] = models.Some(mean - k*std)
	}
	return res
}

func meanStd(xs []float64) (float64, float64) {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}

// IchimokuResult holds the conversion (tenkan) and base (kijun) lines.
type IchimokuResult struct {
	Conversion []models.Value
	Base       []models.Value
}

// Ichimoku computes the rolling midpoints of the highest high and lowest low.
// Close-only series pass the same slice as high and low.
func Ichimoku(high, low []float64, conversion, base int) IchimokuResult {
	n := min(len(high), len(low))
	return IchimokuResult{
		Conversion: midpoint(high[:n], low[:n], conversion),
		Base:       midpoint(high[:n], low[:n], base),
	}
}

func midpoint(high, low []float64, window int) []models.Value {
	out := unavailable(len(high))
	if window <= 0 || len(high) < window {
		return out
	}
	for i := window - 1; i < len(high); i++ {
		hi, lo := high[i-window+1], low[i-window+1]
		for j := i - window + 2; j <= i; j++ {
			hi = math.Max(hi, high[j])
			lo = math.Min(lo, low[j])
		}
		out[i] = models.Some((hi + lo) / 2)
	}
	return out
}

// AverageDefined is the mean of the defined cells, unavailable when there are none.
func AverageDefined(vals []models.Value) models.Value {
	var sum float64
	var n int
	for _, v := range vals {
		if f, ok := v.Get(); ok {
			sum += f
			n++
		}
	}
	if n == 0 {
		return models.None()
	}
	return models.Some(sum / float64(n))
}
