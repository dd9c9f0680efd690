// Package news fetches and normalizes Indian market news from the
// NewsData.io API. News is an enrichment, never a required capability, so
// every failure path degrades to an empty list instead of an error.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/stockbro/stockbro/internal/cache"
	"github.com/stockbro/stockbro/internal/observ"
	"github.com/stockbro/stockbro/internal/ratelimit"
	"github.com/stockbro/stockbro/internal/retry"
)

const newsdataBaseURL = "https://newsdata.io/api/1/latest"

// Article is a normalized news item. Missing upstream fields degrade to
// empty strings rather than failing the batch.
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Image       string `json:"image,omitempty"`
	PublishedAt string `json:"published_at"`
	Source      string `json:"source"`
}

// Config holds tunables for the news client.
type Config struct {
	BaseURL  string
	APIKey   string
	Language string
	Country  string

	TimeoutSeconds int
	CacheTTLSecs   int
	MaxRetries     int
	BackoffBaseMs  int
	MinIntervalMs  int // global pacing between upstream calls; negative disables
}

// Client is the news data access layer.
type Client struct {
	cfg     Config
	httpc   *http.Client
	cache   *cache.Cache
	pacer   *rate.Limiter
	limiter *ratelimit.Limiter
	retrier *retry.Policy

	log zerolog.Logger
}

// NewClient wires the news layer. A client without an API key is disabled
// and answers every query with an empty list.
func NewClient(cfg Config, limiter *ratelimit.Limiter, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = newsdataBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Country == "" {
		cfg.Country = "in"
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 15
	}
	if cfg.CacheTTLSecs <= 0 {
		cfg.CacheTTLSecs = 600
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.BackoffBaseMs <= 0 {
		cfg.BackoffBaseMs = 1000
	}
	if cfg.MinIntervalMs < 0 {
		cfg.MinIntervalMs = 0
	} else if cfg.MinIntervalMs == 0 {
		cfg.MinIntervalMs = 7000 // free tier is roughly one call per 7s
	}

	pace := rate.Inf
	if cfg.MinIntervalMs > 0 {
		pace = rate.Every(time.Duration(cfg.MinIntervalMs) * time.Millisecond)
	}

	return &Client{
		cfg:     cfg,
		httpc:   &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		cache:   cache.New("news", 100, time.Duration(cfg.CacheTTLSecs)*time.Second, 0),
		pacer:   rate.NewLimiter(pace, 1),
		limiter: limiter,
		retrier: retry.NewPolicy("news", cfg.MaxRetries,
			time.Duration(cfg.BackoffBaseMs)*time.Millisecond, 10*time.Second),
		log: log.With().Str("component", "news").Logger(),
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.cfg.APIKey != ""
}

// SearchNews returns articles about a topic, at most maxResults. Cached for
// minutes; globally paced so the free-tier daily budget survives a busy day.
func (c *Client) SearchNews(ctx context.Context, query string, maxResults int) []Article {
	if maxResults <= 0 {
		maxResults = 5
	}
	cacheKey := fmt.Sprintf("news_search:%s:%s:%s",
		strings.ToLower(query), c.cfg.Language, c.cfg.Country)

	params := url.Values{}
	params.Set("q", query)
	params.Set("language", c.cfg.Language)
	params.Set("country", c.cfg.Country)
	return c.fetch(ctx, cacheKey, params, maxResults)
}

// TopHeadlines returns the latest articles for a category such as
// "business".
func (c *Client) TopHeadlines(ctx context.Context, category string, maxResults int) []Article {
	if category == "" {
		category = "business"
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	cacheKey := "news_headlines:" + strings.ToLower(category)

	params := url.Values{}
	params.Set("category", category)
	params.Set("language", c.cfg.Language)
	params.Set("country", c.cfg.Country)
	return c.fetch(ctx, cacheKey, params, maxResults)
}

func (c *Client) fetch(ctx context.Context, cacheKey string, params url.Values, maxResults int) []Article {
	if !c.Enabled() {
		return []Article{}
	}
	if v, ok := c.cache.Get(cacheKey); ok {
		return clip(v.([]Article), maxResults)
	}

	if !c.limiter.Acquire() {
		c.log.Warn().Str("key", cacheKey).Msg("news budget exhausted")
		return []Article{}
	}
	if err := c.pacer.Wait(ctx); err != nil {
		return []Article{}
	}

	params.Set("apikey", c.cfg.APIKey)
	reqURL := c.cfg.BaseURL + "?" + params.Encode()

	var articles []Article
	start := time.Now()
	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		got, reqErr := c.doRequest(ctx, reqURL)
		articles = got
		return reqErr
	})
	observ.RecordDuration("upstream_latency", time.Since(start), map[string]string{"provider": "newsdata"})
	observ.IncCounter("upstream_requests_total", map[string]string{"provider": "newsdata"})
	if err != nil {
		observ.IncCounter("upstream_errors_total", map[string]string{"provider": "newsdata"})
		c.log.Warn().Err(err).Str("key", cacheKey).Msg("news fetch failed")
		return []Article{}
	}

	c.cache.Set(cacheKey, articles)
	return clip(articles, maxResults)
}

// doRequest performs one GET attempt. Transport failures and upstream 429s
// come back as retryable; any other non-200 is a definite empty answer.
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &upstreamError{msg: "request failed", cause: err, retryable: true}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, &upstreamError{msg: "rate limited by provider", retryable: true}
	default:
		return nil, &upstreamError{msg: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	var parsed struct {
		Results []rawArticle `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &upstreamError{msg: "decoding response", cause: err}
	}
	return formatArticles(parsed.Results), nil
}

type rawArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Link        string `json:"link"`
	ImageURL    string `json:"image_url"`
	PubDate     string `json:"pubDate"`
	SourceID    string `json:"source_id"`
}

func formatArticles(raw []rawArticle) []Article {
	articles := make([]Article, 0, len(raw))
	for _, a := range raw {
		desc := a.Description
		if desc == "" {
			desc = a.Content
		}
		source := a.SourceID
		if source == "" {
			source = "Unknown"
		}
		articles = append(articles, Article{
			Title:       a.Title,
			Description: truncate(desc, 200),
			URL:         a.Link,
			Image:       a.ImageURL,
			PublishedAt: a.PubDate,
			Source:      source,
		})
	}
	return articles
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func clip(articles []Article, max int) []Article {
	if len(articles) > max {
		return articles[:max]
	}
	return articles
}

type upstreamError struct {
	msg       string
	cause     error
	retryable bool
}

func (e *upstreamError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("newsdata: %s: %v", e.msg, e.cause)
	}
	return "newsdata: " + e.msg
}

func (e *upstreamError) Unwrap() error   { return e.cause }
func (e *upstreamError) Transient() bool { return e.retryable }
