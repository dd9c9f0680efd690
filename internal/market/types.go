package market

// StockData is a normalized live quote produced from the provider's raw
// payload.
type StockData struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	CurrentPrice  float64 `json:"current_price"`
	OpenPrice     float64 `json:"open_price"`
	HighPrice     float64 `json:"high_price"`
	LowPrice      float64 `json:"low_price"`
	PrevClose     float64 `json:"prev_close"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        int64   `json:"volume"`
	YearHigh      float64 `json:"year_high,omitempty"`
	YearLow       float64 `json:"year_low,omitempty"`
	LastUpdated   int64   `json:"last_updated"` // unix seconds
}

// Candle is one OHLCV record of a historical series.
type Candle struct {
	Timestamp int64   `json:"timestamp"` // unix seconds
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume,omitempty"`
}

// SearchResult is one instrument match from the provider's search endpoint.
type SearchResult struct {
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	Exchange   string `json:"exchange,omitempty"`
	EntityType string `json:"entity_type"`
}
