package models

import "time"

// Source names used in logs, metrics and the snapshot availability report.
const (
	SourceGlobal      = "global"
	SourcePrices      = "prices"
	SourceLiquidation = "liquidation"
	SourceHistory     = "history"
)

// SourceOK is the availability report value of a source that returned data.
const SourceOK = "ok"

// SourceResult is the outcome of one upstream fetch: either data, or the reason
// the source is unavailable for this run.
type SourceResult[T any] struct {
	Source  string
	Data    T
	Err     error
	Elapsed time.Duration
}

func Available[T any](source string, data T) SourceResult[T] {
	return SourceResult[T]{Source: source, Data: data}
}

func Unavailable[T any](source string, err error) SourceResult[T] {
	return SourceResult[T]{Source: source, Err: err}
}

func (r SourceResult[T]) OK() bool { return r.Err == nil }

// Reason is SourceOK or the failure text.
func (r SourceResult[T]) Reason() string {
	if r.Err == nil {
		return SourceOK
	}
	return r.Err.Error()
}

// GlobalStats is the parsed global market dataset.
type GlobalStats struct {
	TotalMarketCapUSD Value
	BTCDominance      Value
}

// PriceQuote is one asset of the simple price dataset.
type PriceQuote struct {
	Price     Value
	MarketCap Value
}

// SimplePrices maps a coin id to its quote. Coins absent upstream have no entry.
type SimplePrices map[string]PriceQuote

// LiquidationTotals is the aggregate liquidation dataset.
type LiquidationTotals struct {
	TotalUSD Value
}
