package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

type routeFunc func(e *echo.Echo)

func (f routeFunc) RegisterRoutes(e *echo.Echo) { f(e) }

func clientIP(t *testing.T, opts []ServerOption, remote, xff string) string {
	t.Helper()
	reg := prometheus.NewRegistry()
	opts = append(opts, WithMetrics("", reg, reg))
	srv := NewServer(routeFunc(func(e *echo.Echo) {
		e.GET("/ip", func(c echo.Context) error { return c.String(http.StatusOK, c.RealIP()) })
	}), opts...)

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.RemoteAddr = remote
	if xff != "" {
		req.Header.Set(echo.HeaderXForwardedFor, xff)
	}
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	return rec.Body.String()
}

func TestRealIPDefaultsToPeer(t *testing.T) {
	assert.Equal(t, "10.0.0.1", clientIP(t, nil, "10.0.0.1:5000", "203.0.113.9"))
	assert.Equal(t, "127.0.0.1", clientIP(t, nil, "127.0.0.1:5000", "203.0.113.9"))
}

func TestRealIPBehindTrustedProxy(t *testing.T) {
	opts := []ServerOption{WithTrustedProxies([]string{"10.0.0.0/8"})}
	assert.Equal(t, "203.0.113.9", clientIP(t, opts, "10.1.2.3:5000", "203.0.113.9"))
	// peer outside the trusted range cannot pick its own address
	assert.Equal(t, "192.168.1.5", clientIP(t, opts, "192.168.1.5:5000", "203.0.113.9"))
	// a client-prepended entry is skipped, the proxy-appended one wins
	assert.Equal(t, "198.51.100.4", clientIP(t, opts, "10.1.2.3:5000", "203.0.113.9, 198.51.100.4"))
}

func TestRealIPInvalidProxyIgnored(t *testing.T) {
	opts := []ServerOption{WithTrustedProxies([]string{"not-a-cidr"})}
	assert.Equal(t, "10.1.2.3", clientIP(t, opts, "10.1.2.3:5000", "203.0.113.9"))
}
