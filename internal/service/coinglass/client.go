// Package coinglass reads aggregate liquidation totals. The API needs a key;
// without one the client reports the source as disabled.
package coinglass

import (
	"context"
	"fmt"
	"time"

	"CoinPulse/internal/domain/models"
	"CoinPulse/internal/domain/repository"
	"CoinPulse/internal/service/upstream"
	xhttp "CoinPulse/pkg/http"
)

const (
	DefaultBaseURL  = "https://open-api.coinglass.com"
	apiKeyHeader    = "CG-API-KEY"
	liquidationPath = "/public/v2/liquidation_info"
)

type Options struct {
	BaseURL string
	APIKey  string
	RPS     float64
	Timeout time.Duration
}

type Client struct {
	base    *upstream.Base
	enabled bool
}

func New(o Options, opts ...xhttp.ClientOption) *Client {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	return &Client{
		enabled: o.APIKey != "",
		base: upstream.NewBase(upstream.Config{
			Name:    "coinglass",
			BaseURL: o.BaseURL,
			Timeout: o.Timeout,
			RPS:     o.RPS,
			Headers: map[string]string{apiKeyHeader: o.APIKey},
		}, opts...),
	}
}

var _ repository.LiquidationSource = (*Client)(nil)

// Enabled is false when no API key was configured.
func (c *Client) Enabled() bool { return c.enabled }

type liquidationResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data *struct {
		TotalVolUsd *float64 `json:"totalVolUsd"`
	} `json:"data"`
}

// Liquidations returns the 24h liquidation volume across all symbols.
func (c *Client) Liquidations(ctx context.Context) (models.LiquidationTotals, error) {
	if !c.enabled {
		return models.LiquidationTotals{}, fmt.Errorf("coinglass: %w", models.ErrCredentialMissing)
	}
	var resp liquidationResponse
	err := c.base.GetJSON(ctx, liquidationPath, map[string][]string{
		"time_type": {"h24"},
		"symbol":    {"all"},
	}, &resp)
	if err != nil {
		return models.LiquidationTotals{}, err
	}
	if resp.Code != "0" {
		return models.LiquidationTotals{}, fmt.Errorf("coinglass: upstream error code=%s msg=%s", resp.Code, resp.Msg)
	}
	if resp.Data == nil {
		return models.LiquidationTotals{}, upstream.Malformed("liquidation", "missing data object")
	}
	return models.LiquidationTotals{TotalUSD: models.FromPtr(resp.Data.TotalVolUsd)}, nil
}
