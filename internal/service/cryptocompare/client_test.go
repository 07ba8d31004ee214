package cryptocompare

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"CoinPulse/internal/service/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewsPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/v2/news/", r.URL.Path)
		assert.Equal(t, "EN", r.URL.Query().Get("lang"))
		assert.Equal(t, "k", r.URL.Query().Get("api_key"))
		_, _ = w.Write([]byte(`{"Type":100,"Data":[{"id":"1","title":"BTC up","extra":{"a":1}},{"id":"2"}]}`))
	}))
	defer srv.Close()

	items, err := New(Options{BaseURL: srv.URL, APIKey: "k"}).News(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.JSONEq(t, `{"id":"1","title":"BTC up","extra":{"a":1}}`, string(items[0]))
}

func TestNewsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := New(Options{BaseURL: srv.URL}).News(context.Background())
	assert.True(t, errors.Is(err, upstream.ErrMalformed))
}
