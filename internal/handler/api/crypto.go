package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"CoinPulse/internal/usecase"
	xhttp "CoinPulse/pkg/http"
	xlogger "CoinPulse/pkg/logger"
)

// CryptoHandler serves the stored snapshot and service health.
type CryptoHandler struct {
	logger *xlogger.Logger
	pub    *usecase.Publisher
}

func NewCryptoHandler(logger *xlogger.Logger, pub *usecase.Publisher) *CryptoHandler {
	return &CryptoHandler{logger: logger, pub: pub}
}

func (h *CryptoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/crypto", h.Latest)
	e.GET("/health", h.Health)
}

// Latest returns the most recent snapshot, or a "no data yet" envelope with null data.
func (h *CryptoHandler) Latest(c echo.Context) error {
	snap, ok, err := h.pub.Latest(c.Request().Context())
	if err != nil {
		h.logger.Error("latest snapshot read failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("snapshot store unavailable").WithError(err))
	}
	if !ok {
		return xhttp.MessageResponse(c, "no data yet", nil)
	}
	return xhttp.SuccessResponse(c, snap)
}

func (h *CryptoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	data := xhttp.HealthData{Status: "ok", Store: "ok", Subscribers: h.pub.Subscribers()}
	if err := h.pub.Health(ctx); err != nil {
		h.logger.Warn("health: store ping failed", xlogger.Error(err))
		data.Status = "degraded"
		data.Store = err.Error()
	}
	if cur := h.pub.Current(); cur != nil {
		ts := cur.Timestamp
		data.LatestTimestamp = &ts
	}
	return xhttp.SuccessResponse(c, data)
}
