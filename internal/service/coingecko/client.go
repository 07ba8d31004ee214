// Package coingecko reads global stats, spot prices, market charts and the
// ranked market listing from the CoinGecko v3 REST API.
package coingecko

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"CoinPulse/internal/domain/models"
	"CoinPulse/internal/domain/repository"
	"CoinPulse/internal/service/upstream"
	xhttp "CoinPulse/pkg/http"
)

const (
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
	apiKeyHeader   = "x-cg-demo-api-key"
)

type Client struct {
	base *upstream.Base
}

// Options configures the client. APIKey is optional.
type Options struct {
	BaseURL string
	APIKey  string
	RPS     float64
	Timeout time.Duration
}

func New(o Options, opts ...xhttp.ClientOption) *Client {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	headers := map[string]string{}
	if o.APIKey != "" {
		headers[apiKeyHeader] = o.APIKey
	}
	return &Client{base: upstream.NewBase(upstream.Config{
		Name:    "coingecko",
		BaseURL: o.BaseURL,
		Timeout: o.Timeout,
		RPS:     o.RPS,
		Headers: headers,
	}, opts...)}
}

var (
	_ repository.GlobalSource  = (*Client)(nil)
	_ repository.PriceSource   = (*Client)(nil)
	_ repository.ChartSource   = (*Client)(nil)
	_ repository.MarketsSource = (*Client)(nil)
)

type globalResponse struct {
	Data *struct {
		TotalMarketCap      map[string]*float64 `json:"total_market_cap"`
		MarketCapPercentage map[string]*float64 `json:"market_cap_percentage"`
	} `json:"data"`
}

// Global reads data.total_market_cap.usd and data.market_cap_percentage.btc.
func (c *Client) Global(ctx context.Context) (models.GlobalStats, error) {
	var resp globalResponse
	if err := c.base.GetJSON(ctx, "/global", nil, &resp); err != nil {
		return models.GlobalStats{}, err
	}
	if resp.Data == nil {
		return models.GlobalStats{}, upstream.Malformed("global", "missing data object")
	}
	return models.GlobalStats{
		TotalMarketCapUSD: cell(resp.Data.TotalMarketCap, "usd"),
		BTCDominance:      cell(resp.Data.MarketCapPercentage, "btc"),
	}, nil
}

// SimplePrices reads usd and usd_market_cap for each coin. Coins missing from the
// payload are absent from the result.
func (c *Client) SimplePrices(ctx context.Context, coins []string) (models.SimplePrices, error) {
	if len(coins) == 0 {
		return models.SimplePrices{}, nil
	}
	var resp map[string]map[string]*float64
	err := c.base.GetJSON(ctx, "/simple/price", map[string][]string{
		"ids":                {strings.Join(coins, ",")},
		"vs_currencies":      {"usd"},
		"include_market_cap": {"true"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, upstream.Malformed("simple price", "empty payload")
	}
	out := make(models.SimplePrices, len(coins))
	for _, coin := range coins {
		fields, ok := resp[coin]
		if !ok {
			continue
		}
		out[coin] = models.PriceQuote{
			Price:     cell(fields, "usd"),
			MarketCap: cell(fields, "usd_market_cap"),
		}
	}
	return out, nil
}

type marketChartResponse struct {
	Prices [][]float64 `json:"prices"`
}

// MarketChart returns the price series of coin over the last days, ascending by time.
func (c *Client) MarketChart(ctx context.Context, coin string, days int) (models.PriceSeries, error) {
	if coin == "" {
		return nil, fmt.Errorf("coin is required")
	}
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}
	var resp marketChartResponse
	path := "/coins/" + url.PathEscape(coin) + "/market_chart"
	err := c.base.GetJSON(ctx, path, map[string][]string{
		"vs_currency": {"usd"},
		"days":        {strconv.Itoa(days)},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Prices == nil {
		return nil, upstream.Malformed("market chart", "missing prices array")
	}
	series := make(models.PriceSeries, 0, len(resp.Prices))
	for _, pair := range resp.Prices {
		if len(pair) < 2 {
			continue
		}
		series = append(series, models.PricePoint{
			Timestamp: time.UnixMilli(int64(pair[0])).UTC(),
			Price:     pair[1],
		})
	}
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Timestamp.Before(series[j].Timestamp)
	})
	return series, nil
}

// Markets returns the ranked market listing unmodified.
func (c *Client) Markets(ctx context.Context, perPage, page int) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.base.GetJSON(ctx, "/coins/markets", map[string][]string{
		"vs_currency": {"usd"},
		"order":       {"market_cap_desc"},
		"per_page":    {strconv.Itoa(perPage)},
		"page":        {strconv.Itoa(page)},
	}, &raw)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		return nil, upstream.Malformed("markets", "expected a JSON array")
	}
	return raw, nil
}

func cell(m map[string]*float64, key string) models.Value {
	if m == nil {
		return models.None()
	}
	return models.FromPtr(m[key])
}
