package models

import (
	"encoding/json"
	"time"
)

type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// PriceSeries is ordered by ascending timestamp.
type PriceSeries []PricePoint

func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Price
	}
	return out
}

// IndicatorRow is aligned with one PriceSeries index. Nil fields were not requested;
// requested fields inside their warm-up window encode as null.
type IndicatorRow struct {
	Timestamp          time.Time `json:"timestamp"`
	Price              float64   `json:"price"`
	RSI                *Value    `json:"rsi,omitempty"`
	EMA                *Value    `json:"ema,omitempty"`
	MACD               *Value    `json:"macd,omitempty"`
	MACDSignal         *Value    `json:"macd_signal,omitempty"`
	MACDHist           *Value    `json:"macd_hist,omitempty"`
	BBUpper            *Value    `json:"bb_upper,omitempty"`
	BBMiddle           *Value    `json:"bb_middle,omitempty"`
	BBLower            *Value    `json:"bb_lower,omitempty"`
	IchimokuConversion *Value    `json:"ichimoku_conversion,omitempty"`
	IchimokuBase       *Value    `json:"ichimoku_base,omitempty"`
}

// NewsItem is passed through from the news provider unmodified.
type NewsItem = json.RawMessage
