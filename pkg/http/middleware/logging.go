package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	applogger "CoinPulse/pkg/logger"
)

// RequestLogging logs HTTP requests at debug level; failures are logged by Metrics.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			err := next(c)

			l.Debug("http request",
				applogger.String("method", req.Method),
				applogger.String("uri", req.RequestURI),
				applogger.String("remote_ip", c.RealIP()),
				applogger.Int("status", res.Status),
				applogger.Duration("duration_ms", time.Since(start)),
			)
			return err
		}
	}
}

type routeKey struct{}

// RouteContext stores the matched route template in the request context so
// net/http middleware can label by route instead of raw path.
func RouteContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if p := c.Path(); p != "" {
				req := c.Request()
				c.SetRequest(req.WithContext(withRoute(req.Context(), p)))
			}
			return next(c)
		}
	}
}
