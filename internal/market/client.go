// Package market serves live quotes, historical candles, and instrument
// search from the Groww web API, fronted by a TTL cache, a request
// coalescer, per-provider rate budgets, and retry with backoff. Under rate
// pressure or upstream failure the quote path degrades to stale cached data
// before giving up.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockbro/stockbro/internal/cache"
	"github.com/stockbro/stockbro/internal/coalesce"
	"github.com/stockbro/stockbro/internal/observ"
	"github.com/stockbro/stockbro/internal/ratelimit"
	"github.com/stockbro/stockbro/internal/retry"
)

const (
	growwWebAPI    = "https://groww.in/v1/api/stocks_data/v1"
	growwSearchAPI = "https://groww.in/v1/api/search/v3/query/globalSuggestion/exchange/NSE_EQ"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Config holds tunables for the market data client.
type Config struct {
	BaseURL   string
	SearchURL string

	TimeoutSeconds int
	MaxRetries     int
	BackoffBaseMs  int

	PriceCacheSize  int
	PriceTTLSeconds int
	StaleWindowSecs int
	HistoryTTLSecs  int
	SearchTTLSecs   int
	HistoryWorkers  int
}

// Client is the market data access layer. All methods are safe for
// concurrent use; the caches, limiter, and coalescer are shared state
// guarded internally.
type Client struct {
	cfg    Config
	httpc  *http.Client
	prices *cache.Cache
	histry *cache.Cache
	search *cache.Cache

	limiter   *ratelimit.Limiter
	coalescer *coalesce.Group
	retrier   *retry.Policy
	candles   CandleSource
	workers   chan struct{}

	log zerolog.Logger
}

// NewClient wires the quote data layer. limiter must be the shared
// per-provider limiter from the registry so budgets hold across callers.
// candles may be nil, in which case historical data is unavailable.
func NewClient(cfg Config, limiter *ratelimit.Limiter, candles CandleSource, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = growwWebAPI
	}
	if cfg.SearchURL == "" {
		cfg.SearchURL = growwSearchAPI
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 10
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.BackoffBaseMs <= 0 {
		cfg.BackoffBaseMs = 500
	}
	if cfg.PriceCacheSize <= 0 {
		cfg.PriceCacheSize = 200
	}
	if cfg.PriceTTLSeconds <= 0 {
		cfg.PriceTTLSeconds = 30
	}
	if cfg.StaleWindowSecs <= 0 {
		cfg.StaleWindowSecs = 300
	}
	if cfg.HistoryTTLSecs <= 0 {
		cfg.HistoryTTLSecs = 300
	}
	if cfg.SearchTTLSecs <= 0 {
		cfg.SearchTTLSecs = 600
	}
	if cfg.HistoryWorkers <= 0 {
		cfg.HistoryWorkers = 4
	}

	return &Client{
		cfg: cfg,
		httpc: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		prices: cache.New("price", cfg.PriceCacheSize,
			time.Duration(cfg.PriceTTLSeconds)*time.Second,
			time.Duration(cfg.StaleWindowSecs)*time.Second),
		histry: cache.New("history", 50,
			time.Duration(cfg.HistoryTTLSecs)*time.Second, 0),
		search: cache.New("search", 50,
			time.Duration(cfg.SearchTTLSecs)*time.Second, 0),
		limiter:   limiter,
		coalescer: coalesce.NewGroup("market"),
		retrier: retry.NewPolicy("market", cfg.MaxRetries,
			time.Duration(cfg.BackoffBaseMs)*time.Millisecond, 8*time.Second),
		candles: candles,
		workers: make(chan struct{}, cfg.HistoryWorkers),
		log:     log.With().Str("component", "market").Logger(),
	}
}

// quoteResult pairs a raw payload with whether it was served past its TTL.
type quoteResult struct {
	data  map[string]any
	stale bool
}

// LivePrice returns the raw quote payload for a symbol. The stale flag is
// true when the payload was served from the stale window because fresh data
// could not be fetched. A *FetchError with Kind "not_found" means the
// provider has no data; "rate_limit" means budgets are exhausted and no
// stale copy exists.
func (c *Client) LivePrice(ctx context.Context, tradingSymbol, exchange string) (map[string]any, bool, error) {
	if tradingSymbol == "" {
		return nil, false, NewBadSymbolError(tradingSymbol, "empty symbol")
	}
	cacheKey := fmt.Sprintf("price:%s:%s", exchange, tradingSymbol)
	if v, ok := c.prices.Get(cacheKey); ok {
		return v.(quoteResult).data, false, nil
	}

	// One upstream call per symbol regardless of fan-in.
	res, err := c.coalescer.Do(ctx, cacheKey, func(ctx context.Context) (any, error) {
		return c.fetchLivePrice(ctx, cacheKey, tradingSymbol, exchange)
	})
	if err != nil {
		return nil, false, err
	}
	qr := res.(quoteResult)
	return qr.data, qr.stale, nil
}

// fetchLivePrice runs once per coalescing key. It consults the local
// budget, then the upstream, falling back to stale cache on local
// exhaustion, upstream 429, or exhausted network retries.
func (c *Client) fetchLivePrice(ctx context.Context, cacheKey, tradingSymbol, exchange string) (any, error) {
	if !c.limiter.Acquire() {
		if qr, ok := c.staleQuote(cacheKey); ok {
			c.log.Warn().Str("symbol", tradingSymbol).Msg("budget exhausted, serving stale quote")
			return qr, nil
		}
		return nil, NewRateLimitError(tradingSymbol, "local budget exhausted, no stale data")
	}

	url := fmt.Sprintf("%s/accord_points/exchange/%s/segment/CASH/latest_prices_ohlc/%s",
		c.cfg.BaseURL, exchange, tradingSymbol)

	var payload map[string]any
	var status int
	start := time.Now()
	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		p, s, reqErr := c.getJSON(ctx, url, tradingSymbol)
		payload, status = p, s
		return reqErr
	})
	observ.RecordDuration("upstream_latency", time.Since(start), map[string]string{"provider": "groww"})
	observ.IncCounter("upstream_requests_total", map[string]string{"provider": "groww"})

	if err != nil {
		observ.IncCounter("upstream_errors_total", map[string]string{"provider": "groww"})
		if qr, ok := c.staleQuote(cacheKey); ok {
			c.log.Warn().Str("symbol", tradingSymbol).Err(err).Msg("upstream unreachable, serving stale quote")
			return qr, nil
		}
		return nil, err
	}

	switch {
	case status == http.StatusOK:
		c.prices.Set(cacheKey, quoteResult{data: payload})
		return quoteResult{data: payload}, nil
	case status == http.StatusTooManyRequests:
		observ.IncCounter("upstream_errors_total", map[string]string{"provider": "groww"})
		if qr, ok := c.staleQuote(cacheKey); ok {
			c.log.Warn().Str("symbol", tradingSymbol).Msg("upstream rate limited, serving stale quote")
			return qr, nil
		}
		return nil, NewRateLimitError(tradingSymbol, "upstream rate limited, no stale data")
	default:
		observ.IncCounter("upstream_errors_total", map[string]string{"provider": "groww"})
		c.log.Error().Str("symbol", tradingSymbol).Int("status", status).Msg("quote request failed")
		return nil, NewNotFoundError(tradingSymbol)
	}
}

func (c *Client) staleQuote(cacheKey string) (quoteResult, bool) {
	v, _, ok := c.prices.GetStale(cacheKey)
	if !ok {
		return quoteResult{}, false
	}
	return quoteResult{data: v.(quoteResult).data, stale: true}, true
}

// getJSON performs one GET attempt. Transport failures come back as
// retryable network errors; HTTP status handling is left to the caller so
// a 429 is not blindly retried against an already saturated provider.
func (c *Client) getJSON(ctx context.Context, url, symbol string) (map[string]any, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, NewBadSymbolError(symbol, err.Error())
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, 0, NewNetworkError(symbol, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, resp.StatusCode, NewNetworkError(symbol, "decoding response", err)
	}
	return payload, resp.StatusCode, nil
}

// GetStockData returns the normalized quote for a symbol, accepting either
// bare ("RELIANCE") or exchange-prefixed ("NSE-RELIANCE") forms.
func (c *Client) GetStockData(ctx context.Context, symbol string) (*StockData, bool, error) {
	exchange, trading := ParseSymbol(symbol)
	raw, stale, err := c.LivePrice(ctx, trading, exchange)
	if err != nil {
		return nil, false, err
	}
	if len(raw) == 0 {
		return nil, false, NewNotFoundError(trading)
	}

	sd := &StockData{
		Symbol:        trading,
		Name:          stringField(raw, "displayName", trading),
		CurrentPrice:  floatField(raw, "ltp"),
		OpenPrice:     floatField(raw, "open"),
		HighPrice:     floatField(raw, "high"),
		LowPrice:      floatField(raw, "low"),
		PrevClose:     floatField(raw, "close"),
		Change:        floatField(raw, "dayChange"),
		ChangePercent: floatField(raw, "dayChangePerc"),
		Volume:        int64(floatField(raw, "volume")),
		YearHigh:      floatField(raw, "yearHighPrice"),
		YearLow:       floatField(raw, "yearLowPrice"),
		LastUpdated:   time.Now().Unix(),
	}
	return sd, stale, nil
}

func floatField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case json.Number:
		f, _ := v.Float64()
		return f
	default:
		return 0
	}
}

func stringField(m map[string]any, key, fallback string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

// LimiterStatus exposes the provider budget for the status endpoint.
func (c *Client) LimiterStatus() ratelimit.Status {
	return c.limiter.Status()
}

// CacheSizes reports entries held per cache, also for the status endpoint.
func (c *Client) CacheSizes() map[string]int {
	return map[string]int{
		"price":   c.prices.Len(),
		"history": c.histry.Len(),
		"search":  c.search.Len(),
	}
}
