package indicators

import (
	"fmt"
	"strings"

	"CoinPulse/internal/domain/models"
)

// Kind names an indicator family that can be requested.
type Kind string

const (
	KindRSI       Kind = "rsi"
	KindEMA       Kind = "ema"
	KindMACD      Kind = "macd"
	KindBollinger Kind = "bollinger"
	KindIchimoku  Kind = "ichimoku"
)

var AllKinds = []Kind{KindRSI, KindEMA, KindMACD, KindBollinger, KindIchimoku}

// ParseKinds parses a comma separated list. An empty string selects every kind.
func ParseKinds(s string) ([]Kind, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return append([]Kind(nil), AllKinds...), nil
	}
	seen := map[Kind]bool{}
	var out []Kind
	for _, part := range strings.Split(s, ",") {
		k := Kind(strings.ToLower(strings.TrimSpace(part)))
		if k == "" {
			continue
		}
		if !k.valid() {
			return nil, fmt.Errorf("unknown indicator %q", part)
		}
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no indicators requested")
	}
	return out, nil
}

func (k Kind) valid() bool {
	for _, a := range AllKinds {
		if k == a {
			return true
		}
	}
	return false
}

// Request selects indicators and their parameters. Zero parameters take defaults.
type Request struct {
	Kinds              []Kind
	RSIPeriod          int
	EMAWindow          int
	MACDFast           int
	MACDSlow           int
	MACDSignal         int
	BollingerPeriod    int
	BollingerK         float64
	IchimokuConversion int
	IchimokuBase       int
}

func (r *Request) applyDefaults() {
	setDefault(&r.RSIPeriod, DefaultRSIPeriod)
	setDefault(&r.EMAWindow, DefaultEMAWindow)
	setDefault(&r.MACDFast, DefaultMACDFast)
	setDefault(&r.MACDSlow, DefaultMACDSlow)
	setDefault(&r.MACDSignal, DefaultMACDSignal)
	setDefault(&r.BollingerPeriod, DefaultBollingerPeriod)
	setDefault(&r.IchimokuConversion, DefaultIchimokuConversion)
	setDefault(&r.IchimokuBase, DefaultIchimokuBase)
	if r.BollingerK == 0 {
		r.BollingerK = DefaultBollingerK
	}
	if len(r.Kinds) == 0 {
		r.Kinds = AllKinds
	}
}

func setDefault(p *int, def int) {
	if *p == 0 {
		*p = def
	}
}

func (r *Request) validate() error {
	for name, v := range map[string]int{
		"rsi_period":          r.RSIPeriod,
		"ema_window":          r.EMAWindow,
		"macd_fast":           r.MACDFast,
		"macd_slow":           r.MACDSlow,
		"macd_signal":         r.MACDSignal,
		"bb_period":           r.BollingerPeriod,
		"ichimoku_conversion": r.IchimokuConversion,
		"ichimoku_base":       r.IchimokuBase,
	} {
		if v < 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	if r.MACDFast >= r.MACDSlow {
		return fmt.Errorf("macd fast window %d must be shorter than slow window %d", r.MACDFast, r.MACDSlow)
	}
	if r.BollingerK < 0 {
		return fmt.Errorf("bollinger k must not be negative")
	}
	return nil
}

// Compute builds one row per point of series with the requested columns filled.
func Compute(series models.PriceSeries, req Request) ([]models.IndicatorRow, error) {
	req.applyDefaults()
	if err := req.validate(); err != nil {
		return nil, err
	}

	closes := series.Closes()
	rows := make([]models.IndicatorRow, len(series))
	for i, p := range series {
		rows[i] = models.IndicatorRow{Timestamp: p.Timestamp, Price: p.Price}
	}

	for _, k := range req.Kinds {
		switch k {
		case KindRSI:
			fill(rows, RSI(closes, req.RSIPeriod), func(r *models.IndicatorRow, v *models.Value) { r.RSI = v })
		case KindEMA:
			fill(rows, EMA(closes, req.EMAWindow), func(r *models.IndicatorRow, v *models.Value) { r.EMA = v })
		case KindMACD:
			m := MACD(closes, req.MACDFast, req.MACDSlow, req.MACDSignal)
			fill(rows, m.MACD, func(r *models.IndicatorRow, v *models.Value) { r.MACD = v })
			fill(rows, m.Signal, func(r *models.IndicatorRow, v *models.Value) { r.MACDSignal = v })
			fill(rows, m.Hist, func(r *models.IndicatorRow, v *models.Value) { r.MACDHist = v })
		case KindBollinger:
			b := Bollinger(closes, req.BollingerPeriod, req.BollingerK)
			fill(rows, b.Upper, func(r *models.IndicatorRow, v *models.Value) { r.BBUpper = v })
			fill(rows, b.Middle, func(r *models.IndicatorRow, v *models.Value) { r.BBMiddle = v })
			fill(rows, b.Lower, func(r *models.IndicatorRow, v *models.Value) { r.BBLower = v })
		case KindIchimoku:
			// No OHLC upstream: high and low degenerate to the close.
			ich := Ichimoku(closes, closes, req.IchimokuConversion, req.IchimokuBase)
			fill(rows, ich.Conversion, func(r *models.IndicatorRow, v *models.Value) { r.IchimokuConversion = v })
			fill(rows, ich.Base, func(r *models.IndicatorRow, v *models.Value) { r.IchimokuBase = v })
		default:
			return nil, fmt.Errorf("unknown indicator %q", k)
		}
	}
	return rows, nil
}

func fill(rows []models.IndicatorRow, col []models.Value, set func(*models.IndicatorRow, *models.Value)) {
	for i := range rows {
		v := col[i]
		set(&rows[i], &v)
	}
}
