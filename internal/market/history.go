package market

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"
)

// CandleSource fetches a historical OHLCV series. Implementations are
// selected at construction time depending on which upstream is configured.
type CandleSource interface {
	Candles(ctx context.Context, tradingSymbol, exchange, duration string) ([]Candle, error)
}

// granularity pairs a lookback span with a sampling interval.
type granularity struct {
	period   string
	interval string
}

// durationMap converts a user-facing duration code into the chart API's
// (period, interval) pairing. Unknown codes fall back to the 3-month view.
var durationMap = map[string]granularity{
	"1d": {"1d", "5m"},
	"1w": {"5d", "15m"},
	"1M": {"1mo", "1d"},
	"3M": {"3mo", "1d"},
	"6M": {"6mo", "1d"},
	"1y": {"1y", "1wk"},
	"5y": {"5y", "1mo"},
}

func granularityFor(duration string) granularity {
	if g, ok := durationMap[duration]; ok {
		return g
	}
	return durationMap["3M"]
}

// HistoricalData returns the candle series for a symbol over a duration
// code ("1d", "1w", "1M", "3M", "6M", "1y", "5y"). Fetches run on a
// bounded worker pool since the chart upstream is slow; results are cached
// for minutes. Prices are rounded to two decimals.
func (c *Client) HistoricalData(ctx context.Context, tradingSymbol, exchange, duration string) ([]Candle, error) {
	if c.candles == nil {
		return nil, NewProviderError(tradingSymbol, "no historical data source configured", nil)
	}

	cacheKey := fmt.Sprintf("history:%s:%s:%s", exchange, tradingSymbol, duration)
	if v, ok := c.histry.Get(cacheKey); ok {
		return v.([]Candle), nil
	}

	res, err := c.coalescer.Do(ctx, cacheKey, func(ctx context.Context) (any, error) {
		select {
		case c.workers <- struct{}{}:
			defer func() { <-c.workers }()
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		candles, err := c.candles.Candles(ctx, tradingSymbol, exchange, duration)
		if err != nil {
			c.log.Error().Str("symbol", tradingSymbol).Str("duration", duration).
				Err(err).Msg("historical fetch failed")
			return nil, err
		}
		if len(candles) == 0 {
			return nil, NewNotFoundError(tradingSymbol)
		}

		for i := range candles {
			candles[i].Open = round2(candles[i].Open)
			candles[i].High = round2(candles[i].High)
			candles[i].Low = round2(candles[i].Low)
			candles[i].Close = round2(candles[i].Close)
		}
		c.histry.Set(cacheKey, candles)
		return candles, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]Candle), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// YahooCandleSource reads candles from the Yahoo Finance chart API, which
// needs no credentials. NSE symbols carry a ".NS" suffix, BSE ".BO".
type YahooCandleSource struct {
	BaseURL string
	httpc   *http.Client
}

// NewYahooCandleSource creates a chart source against the public Yahoo
// endpoint, or baseURL if non-empty.
func NewYahooCandleSource(baseURL string, timeout time.Duration) *YahooCandleSource {
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &YahooCandleSource{
		BaseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

func (y *YahooCandleSource) Candles(ctx context.Context, tradingSymbol, exchange, duration string) ([]Candle, error) {
	g := granularityFor(duration)
	suffix := ".NS"
	if exchange == "BSE" {
		suffix = ".BO"
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s",
		y.BaseURL, url.PathEscape(tradingSymbol+suffix), g.period, g.interval)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, NewBadSymbolError(tradingSymbol, err.Error())
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := y.httpc.Do(req)
	if err != nil {
		return nil, NewNetworkError(tradingSymbol, "chart request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, NewProviderError(tradingSymbol,
			fmt.Sprintf("chart request returned %d", resp.StatusCode), nil)
	}

	var parsed yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, NewProviderError(tradingSymbol, "decoding chart response", err)
	}
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := parsed.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	candles := make([]Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Rows with null prices are gaps in the series, skip them.
		if i >= len(quote.Open) || quote.Open[i] == nil || quote.Close[i] == nil {
			continue
		}
		cd := Candle{
			Timestamp: ts,
			Open:      *quote.Open[i],
			Close:     *quote.Close[i],
		}
		if i < len(quote.High) && quote.High[i] != nil {
			cd.High = *quote.High[i]
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			cd.Low = *quote.Low[i]
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			cd.Volume = *quote.Volume[i]
		}
		candles = append(candles, cd)
	}
	return candles, nil
}

// GrowwCandleSource reads candles from the Groww charting service. Used
// when an API key is configured, since it serves exchange-native data with
// richer intraday coverage.
type GrowwCandleSource struct {
	BaseURL string
	APIKey  string
	httpc   *http.Client
	now     func() time.Time
}

// NewGrowwCandleSource creates a chart source against the Groww charting
// service, or baseURL if non-empty.
func NewGrowwCandleSource(baseURL, apiKey string, timeout time.Duration) *GrowwCandleSource {
	if baseURL == "" {
		baseURL = "https://groww.in/v1/api/charting_service/v2/chart"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GrowwCandleSource{
		BaseURL: baseURL,
		APIKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// intervalMinutes maps a duration code to the charting service's candle
// interval and lookback span.
var growwSpans = map[string]struct {
	minutes  int
	lookback time.Duration
}{
	"1d": {5, 24 * time.Hour},
	"1w": {15, 7 * 24 * time.Hour},
	"1M": {1440, 31 * 24 * time.Hour},
	"3M": {1440, 92 * 24 * time.Hour},
	"6M": {1440, 183 * 24 * time.Hour},
	"1y": {10080, 366 * 24 * time.Hour},
	"5y": {43200, 5 * 366 * 24 * time.Hour},
}

type growwChartResponse struct {
	Candles [][]json.Number `json:"candles"`
}

func (g *GrowwCandleSource) Candles(ctx context.Context, tradingSymbol, exchange, duration string) ([]Candle, error) {
	span, ok := growwSpans[duration]
	if !ok {
		span = growwSpans["3M"]
	}
	end := g.now()
	start := end.Add(-span.lookback)

	u := fmt.Sprintf("%s/exchange/%s/segment/CASH/%s?intervalInMinutes=%d&startTimeInMillis=%d&endTimeInMillis=%d",
		g.BaseURL, exchange, url.PathEscape(tradingSymbol),
		span.minutes, start.UnixMilli(), end.UnixMilli())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, NewBadSymbolError(tradingSymbol, err.Error())
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if g.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.APIKey)
	}

	resp, err := g.httpc.Do(req)
	if err != nil {
		return nil, NewNetworkError(tradingSymbol, "chart request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, NewProviderError(tradingSymbol,
			fmt.Sprintf("chart request returned %d", resp.StatusCode), nil)
	}

	var parsed growwChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, NewProviderError(tradingSymbol, "decoding chart response", err)
	}

	candles := make([]Candle, 0, len(parsed.Candles))
	for _, row := range parsed.Candles {
		// Rows are [timestamp, open, high, low, close, volume].
		if len(row) < 6 {
			continue
		}
		ts, err := row[0].Int64()
		if err != nil {
			continue
		}
		o, _ := row[1].Float64()
		h, _ := row[2].Float64()
		l, _ := row[3].Float64()
		cl, _ := row[4].Float64()
		vol, _ := row[5].Int64()
		candles = append(candles, Candle{
			Timestamp: ts, Open: o, High: h, Low: l, Close: cl, Volume: vol,
		})
	}
	return candles, nil
}
