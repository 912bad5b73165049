package price

import "github.com/shopspring/decimal"

// Response is the raw CryptoCompare daily-history API response.
type Response struct {
	Status  string       `json:"Response"`
	Message string       `json:"Message"`
	Data    ResponseData `json:"Data"`
}

// ResponseData wraps the daily candle list.
type ResponseData struct {
	TimeFrom int64    `json:"TimeFrom"`
	TimeTo   int64    `json:"TimeTo"`
	Data     []Candle `json:"Data"`
}

// Candle is one daily OHLC price point. Values unmarshal straight into
// decimals so no binary floating point enters the pipeline.
type Candle struct {
	Time  int64           `json:"time"`
	Open  decimal.Decimal `json:"open"`
	High  decimal.Decimal `json:"high"`
	Low   decimal.Decimal `json:"low"`
	Close decimal.Decimal `json:"close"`
}
