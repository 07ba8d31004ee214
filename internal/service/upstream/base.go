// Package upstream is the shared transport of the market data providers: one
// rate-limited GET returning decoded JSON. It never retries.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"CoinPulse/internal/domain/models"
	xhttp "CoinPulse/pkg/http"

	"golang.org/x/time/rate"
)

// ErrMalformed marks a payload that does not have the expected shape.
var ErrMalformed = errors.New("malformed upstream payload")

// Malformed wraps a shape error with the dataset name.
func Malformed(dataset, format string, a ...any) error {
	return fmt.Errorf("%s: %w: %s", dataset, ErrMalformed, fmt.Sprintf(format, a...))
}

// Config describes one provider.
type Config struct {
	Name    string
	BaseURL string
	Timeout time.Duration
	// RPS is the sustained outbound request rate. Zero disables limiting.
	RPS     float64
	Burst   int
	Headers map[string]string
}

// Base performs GET requests against one provider.
type Base struct {
	name    string
	baseURL string
	headers map[string]string
	client  *xhttp.Client
	limiter *rate.Limiter
}

func NewBase(cfg Config, opts ...xhttp.ClientOption) *Base {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 10
	}
	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	copts := append([]xhttp.ClientOption{
		xhttp.WithTimeout(timeout),
		xhttp.WithUserAgent("coinpulse/1.0"),
	}, opts...)
	return &Base{
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		headers: cfg.Headers,
		client:  xhttp.NewClient(copts...),
		limiter: limiter,
	}
}

func (b *Base) Name() string { return b.name }

// GetJSON waits for the limiter, GETs path under the base URL and decodes JSON into dest.
// Decode failures are reported as ErrMalformed.
func (b *Base) GetJSON(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s %s: rate limiter: %w", b.name, path, err)
		}
	}
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         b.baseURL + path,
		Headers:     b.headers,
		QueryParams: query,
	}, dest)
	if err == nil {
		return nil
	}
	var de *xhttp.DecodeError
	if errors.As(err, &de) {
		return fmt.Errorf("%s %s: %w: %v", b.name, path, ErrMalformed, de.Err)
	}
	return fmt.Errorf("%s %s: %w", b.name, path, err)
}

// IsRateLimited reports whether err carries an upstream 429.
func IsRateLimited(err error) bool {
	var se *xhttp.StatusError
	return errors.As(err, &se) && se.RateLimited()
}

// Kind classifies err for logs and metrics.
func Kind(err error) string {
	var se *xhttp.StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrCredentialMissing):
		return "disabled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.As(err, &se) && se.RateLimited():
		return "rate_limited"
	case errors.As(err, &se):
		return "status"
	}
	return "unreachable"
}
