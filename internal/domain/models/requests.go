package models

// Query parameters of the on-demand market endpoints.

type HistoryRequest struct {
	Coin string `query:"coin" json:"coin" default:"bitcoin" validate:"required,max=64"`
	Days int    `query:"days" json:"days" default:"30" validate:"gte=1,lte=365"`
}

type IndicatorsRequest struct {
	Coin       string `query:"coin" json:"coin" default:"bitcoin" validate:"required,max=64"`
	Days       int    `query:"days" json:"days" default:"30" validate:"gte=1,lte=365"`
	Indicators string `query:"indicators" json:"indicators" default:"rsi,ema,macd,bollinger,ichimoku"`
	RSIPeriod  int    `query:"rsi_period" json:"rsi_period" default:"14" validate:"gte=2,lte=200"`
	EMAWindow  int    `query:"ema_window" json:"ema_window" default:"14" validate:"gte=1,lte=200"`
	BBPeriod   int    `query:"bb_period" json:"bb_period" default:"20" validate:"gte=2,lte=200"`
}

type MarketsRequest struct {
	PerPage int `query:"per_page" json:"per_page" default:"50" validate:"gte=1,lte=250"`
	Page    int `query:"page" json:"page" default:"1" validate:"gte=1,lte=100"`
}
