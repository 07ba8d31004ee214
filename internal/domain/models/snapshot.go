package models

import "time"

// Coins sampled on every snapshot, by upstream id.
const (
	CoinBitcoin  = "bitcoin"
	CoinEthereum = "ethereum"
	CoinDogecoin = "dogecoin"
)

// TrackedCoins is the fixed asset set of a Snapshot, in column order.
var TrackedCoins = []string{CoinBitcoin, CoinEthereum, CoinDogecoin}

// Quote is a price and market cap pair in USD.
type Quote struct {
	Price     float64 `json:"price"`
	MarketCap float64 `json:"market_cap"`
}

// Snapshot is one persisted observation of the market. The JSON layout is the
// public payload of the pull and push endpoints.
type Snapshot struct {
	Timestamp        time.Time         `json:"timestamp"`
	MarketCapTotal   float64           `json:"market_cap_total"`
	BTCPrice         float64           `json:"btc_price"`
	BTCMarketCap     float64           `json:"btc_market_cap"`
	ETHPrice         float64           `json:"eth_price"`
	ETHMarketCap     float64           `json:"eth_market_cap"`
	DOGEPrice        float64           `json:"doge_price"`
	DOGEMarketCap    float64           `json:"doge_market_cap"`
	BTCDominance     Value             `json:"btc_dominance"`
	LiquidationTotal float64           `json:"liquidation_total"`
	AvgRSI           Value             `json:"avg_rsi"`
	Sources          map[string]string `json:"sources,omitempty"`
}

// SetQuote assigns the price columns for a tracked coin. Unknown coins are ignored.
func (s *Snapshot) SetQuote(coin string, q Quote) {
	switch coin {
	case CoinBitcoin:
		s.BTCPrice, s.BTCMarketCap = q.Price, q.MarketCap
	case CoinEthereum:
		s.ETHPrice, s.ETHMarketCap = q.Price, q.MarketCap
	case CoinDogecoin:
		s.DOGEPrice, s.DOGEMarketCap = q.Price, q.MarketCap
	}
}

// Quote returns the price columns for a tracked coin.
func (s *Snapshot) Quote(coin string) (Quote, bool) {
	switch coin {
	case CoinBitcoin:
		return Quote{s.BTCPrice, s.BTCMarketCap}, true
	case CoinEthereum:
		return Quote{s.ETHPrice, s.ETHMarketCap}, true
	case CoinDogecoin:
		return Quote{s.DOGEPrice, s.DOGEMarketCap}, true
	}
	return Quote{}, false
}

// Clone returns a deep copy so readers never share the Sources map with a writer.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	if s.Sources != nil {
		c.Sources = make(map[string]string, len(s.Sources))
		for k, v := range s.Sources {
			c.Sources[k] = v
		}
	}
	return &c
}
