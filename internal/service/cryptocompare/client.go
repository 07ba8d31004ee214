// Package cryptocompare proxies the CryptoCompare news feed.
package cryptocompare

import (
	"context"
	"time"

	"CoinPulse/internal/domain/models"
	"CoinPulse/internal/domain/repository"
	"CoinPulse/internal/service/upstream"
	xhttp "CoinPulse/pkg/http"
)

const DefaultBaseURL = "https://min-api.cryptocompare.com"

type Options struct {
	BaseURL string
	APIKey  string
	RPS     float64
	Timeout time.Duration
}

type Client struct {
	base   *upstream.Base
	apiKey string
}

func New(o Options, opts ...xhttp.ClientOption) *Client {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	return &Client{
		apiKey: o.APIKey,
		base: upstream.NewBase(upstream.Config{
			Name:    "cryptocompare",
			BaseURL: o.BaseURL,
			Timeout: o.Timeout,
			RPS:     o.RPS,
		}, opts...),
	}
}

var _ repository.NewsSource = (*Client)(nil)

type newsResponse struct {
	Data []models.NewsItem `json:"Data"`
}

// News returns the English news feed items unmodified.
func (c *Client) News(ctx context.Context) ([]models.NewsItem, error) {
	q := map[string][]string{"lang": {"EN"}}
	if c.apiKey != "" {
		q["api_key"] = []string{c.apiKey}
	}
	var resp newsResponse
	if err := c.base.GetJSON(ctx, "/data/v2/news/", q, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, upstream.Malformed("news", "missing Data array")
	}
	return resp.Data, nil
}
