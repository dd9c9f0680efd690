package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// trendingSymbols is a curated set of high-volume NIFTY 50 names used when
// no personalized list applies.
var trendingSymbols = []string{
	"RELIANCE", "TCS", "HDFCBANK", "ICICIBANK", "INFY", "SBIN", "ITC", "BHARTIARTL",
}

type searchResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		EntityType string `json:"entity_type"`
		NseCode    string `json:"nse_scrip_code"`
	} `json:"data"`
}

// SearchStocks queries the provider's instrument search and returns equity
// matches only. Transport failures degrade to an empty list since search is
// best-effort; nothing matching is also an empty list, never an error.
func (c *Client) SearchStocks(ctx context.Context, query string, size int) []SearchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}
	}
	if size <= 0 {
		size = 10
	}

	cacheKey := fmt.Sprintf("search:%s:%d", strings.ToLower(query), size)
	if v, ok := c.search.Get(cacheKey); ok {
		return v.([]SearchResult)
	}

	u := c.cfg.SearchURL + "?query=" + url.QueryEscape(query) + "&size=" + strconv.Itoa(size)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return []SearchResult{}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("query", query).Msg("search request failed")
		return []SearchResult{}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Str("query", query).Msg("search request rejected")
		return []SearchResult{}
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.log.Warn().Err(err).Str("query", query).Msg("decoding search response")
		return []SearchResult{}
	}

	results := make([]SearchResult, 0, len(parsed.Data))
	for _, r := range parsed.Data {
		if r.EntityType != "STOCKS" {
			continue
		}
		symbol := r.NseCode
		if symbol == "" {
			symbol = r.ID
		}
		results = append(results, SearchResult{
			Symbol:     strings.ToUpper(symbol),
			Name:       r.Title,
			Exchange:   DefaultExchange,
			EntityType: r.EntityType,
		})
	}
	c.search.Set(cacheKey, results)
	return results
}

// TrendingStocks resolves the curated large-cap list concurrently and
// returns whichever symbols fetched successfully, in list order. Individual
// failures are dropped so one bad symbol never empties the whole answer.
func (c *Client) TrendingStocks(ctx context.Context) []StockData {
	results := make([]*StockData, len(trendingSymbols))
	var wg sync.WaitGroup
	for i, sym := range trendingSymbols {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			sd, _, err := c.GetStockData(ctx, sym)
			if err != nil {
				c.log.Debug().Str("symbol", sym).Err(err).Msg("trending fetch failed")
				return
			}
			results[i] = sd
		}(i, sym)
	}
	wg.Wait()

	out := make([]StockData, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
