package coingecko

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"CoinPulse/internal/domain/models"
	"CoinPulse/internal/service/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL, APIKey: "demo"})
}

func TestGlobal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/global", r.URL.Path)
		assert.Equal(t, "demo", r.Header.Get(apiKeyHeader))
		_, _ = w.Write([]byte(`{"data":{"total_market_cap":{"usd":2.5e12,"eur":2.3e12},"market_cap_percentage":{"eth":17.1}}}`))
	})

	g, err := c.Global(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2.5e12, g.TotalMarketCapUSD.OrZero())
	assert.False(t, g.BTCDominance.Valid())
}

func TestGlobalMissingData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":{"error_code":429}}`))
	})
	_, err := c.Global(context.Background())
	assert.True(t, errors.Is(err, upstream.ErrMalformed))
}

func TestSimplePricesMissingCoin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin,ethereum,dogecoin", r.URL.Query().Get("ids"))
		assert.Equal(t, "true", r.URL.Query().Get("include_market_cap"))
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":65000,"usd_market_cap":1.28e12},"ethereum":{"usd":3400}}`))
	})

	prices, err := c.SimplePrices(context.Background(), models.TrackedCoins)
	require.NoError(t, err)
	assert.Equal(t, 65000.0, prices[models.CoinBitcoin].Price.OrZero())
	assert.Equal(t, 3400.0, prices[models.CoinEthereum].Price.OrZero())
	assert.False(t, prices[models.CoinEthereum].MarketCap.Valid())
	_, ok := prices[models.CoinDogecoin]
	assert.False(t, ok)
}

func TestMarketChartAscending(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin/market_chart", r.URL.Path)
		assert.Equal(t, "30", r.URL.Query().Get("days"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		_, _ = w.Write([]byte(`{"prices":[[1700000200000,102],[1700000000000,100],[1700000100000],[1700000100000,101]]}`))
	})

	series, err := c.MarketChart(context.Background(), "bitcoin", 30)
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, []float64{100, 101, 102}, series.Closes())
	for i := 1; i < len(series); i++ {
		assert.True(t, series[i-1].Timestamp.Before(series[i].Timestamp))
	}
}

func TestMarketChartRejectsBadArgs(t *testing.T) {
	c := New(Options{BaseURL: "http://127.0.0.1:1"})
	_, err := c.MarketChart(context.Background(), "", 30)
	assert.Error(t, err)
	_, err = c.MarketChart(context.Background(), "bitcoin", 0)
	assert.Error(t, err)
}

func TestMarketsPassthrough(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "25", r.URL.Query().Get("per_page"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(`[{"id":"bitcoin","market_cap_rank":1}]`))
	})

	raw, err := c.Markets(context.Background(), 25, 2)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"bitcoin","market_cap_rank":1}]`, string(raw))
}

func TestRateLimitedStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.Global(context.Background())
	require.Error(t, err)
	assert.True(t, upstream.IsRateLimited(err))
	assert.Equal(t, "rate_limited", upstream.Kind(err))
}
