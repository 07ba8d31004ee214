package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"CoinPulse/internal/domain/models"
	"CoinPulse/internal/service/ratelimit"
	"CoinPulse/internal/services/indicators"
	"CoinPulse/internal/usecase"
	xhttp "CoinPulse/pkg/http"
	xlogger "CoinPulse/pkg/logger"
)

// RateLimit is the per-client token bucket applied to routes that call upstream providers.
type RateLimit struct {
	Capacity     float64
	RefillPerSec float64
}

// MarketHandler proxies on-demand reads (history, indicators, news, markets).
type MarketHandler struct {
	logger  *xlogger.Logger
	market  *usecase.MarketDataUseCase
	limiter *ratelimit.Limiter
	rl      RateLimit
}

func NewMarketHandler(logger *xlogger.Logger, market *usecase.MarketDataUseCase, limiter *ratelimit.Limiter, rl RateLimit) *MarketHandler {
	return &MarketHandler{logger: logger, market: market, limiter: limiter, rl: rl}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	mw := []echo.MiddlewareFunc{}
	if h.limiter != nil && h.rl.Capacity > 0 {
		mw = append(mw, h.rateLimit)
	}
	e.GET("/crypto/history", h.History, mw...)
	e.GET("/crypto/indicators", h.Indicators, mw...)
	e.GET("/news", h.News, mw...)
	e.GET("/markets", h.Markets, mw...)
}

func (h *MarketHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.limiter.Allow(c.RealIP(), h.rl.Capacity, h.rl.RefillPerSec) {
			appErr := xhttp.TooManyRequestsError("rate limit exceeded, retry later")
			return c.JSON(http.StatusTooManyRequests, xhttp.APIResponse{
				Status:  http.StatusTooManyRequests,
				Message: http.StatusText(http.StatusTooManyRequests),
				Data:    []*xhttp.AppError{appErr},
			})
		}
		return next(c)
	}
}

func (h *MarketHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	series, err := h.market.History(c.Request().Context(), strings.ToLower(req.Coin), req.Days)
	if err != nil {
		return h.fail(c, "coingecko", err)
	}
	return xhttp.SuccessResponse(c, series)
}

func (h *MarketHandler) Indicators(c echo.Context) error {
	req := &models.IndicatorsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	kinds, err := indicators.ParseKinds(req.Indicators)
	if err != nil {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
			Code:    "ERR_ONEOF",
			Field:   "indicators",
			Message: err.Error(),
			Params:  map[string]interface{}{"options": indicators.AllKinds},
		}})
	}

	rows, err := h.market.Indicators(c.Request().Context(), strings.ToLower(req.Coin), req.Days, indicators.Request{
		Kinds:           kinds,
		RSIPeriod:       req.RSIPeriod,
		EMAWindow:       req.EMAWindow,
		BollingerPeriod: req.BBPeriod,
	})
	if err != nil {
		return h.fail(c, "coingecko", err)
	}
	return xhttp.SuccessResponse(c, rows)
}

func (h *MarketHandler) News(c echo.Context) error {
	items, err := h.market.News(c.Request().Context())
	if err != nil {
		return h.fail(c, "cryptocompare", err)
	}
	return xhttp.SuccessResponse(c, items)
}

func (h *MarketHandler) Markets(c echo.Context) error {
	req := &models.MarketsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	body, err := h.market.Markets(c.Request().Context(), req.PerPage, req.Page)
	if err != nil {
		return h.fail(c, "coingecko", err)
	}
	return xhttp.SuccessResponse(c, body)
}

func (h *MarketHandler) fail(c echo.Context, provider string, err error) error {
	if errors.Is(err, usecase.ErrInvalidRequest) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	h.logger.Warn("upstream request failed",
		xlogger.String("provider", provider),
		xlogger.String("path", c.Path()),
		xlogger.Error(err),
	)
	return xhttp.AppErrorResponse(c, xhttp.UpstreamError(provider, err))
}
