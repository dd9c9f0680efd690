package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockbro/stockbro/internal/ratelimit"
)

type fakeCandleSource struct {
	calls   int64
	candles []Candle
	err     error
}

func (f *fakeCandleSource) Candles(_ context.Context, _, _, _ string) ([]Candle, error) {
	atomic.AddInt64(&f.calls, 1)
	return f.candles, f.err
}

func newHistoryClient(src CandleSource) *Client {
	return NewClient(Config{BackoffBaseMs: 1},
		ratelimit.NewLimiter("test", 100, 100), src, testLog)
}

func TestGranularityTable(t *testing.T) {
	tests := []struct {
		duration string
		period   string
		interval string
	}{
		{"1d", "1d", "5m"},
		{"1w", "5d", "15m"},
		{"1M", "1mo", "1d"},
		{"3M", "3mo", "1d"},
		{"6M", "6mo", "1d"},
		{"1y", "1y", "1wk"},
		{"5y", "5y", "1mo"},
		{"bogus", "3mo", "1d"}, // unknown falls back to 3M
	}
	for _, tt := range tests {
		t.Run(tt.duration, func(t *testing.T) {
			g := granularityFor(tt.duration)
			assert.Equal(t, tt.period, g.period)
			assert.Equal(t, tt.interval, g.interval)
		})
	}
}

func TestHistoricalDataRoundsAndCaches(t *testing.T) {
	src := &fakeCandleSource{candles: []Candle{
		{Timestamp: 1717300000, Open: 100.12345, High: 101.999, Low: 99.001, Close: 100.505, Volume: 1000},
	}}
	c := newHistoryClient(src)

	got, err := c.HistoricalData(context.Background(), "RELIANCE", "NSE", "3M")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 100.12, got[0].Open)
	assert.Equal(t, 102.0, got[0].High)
	assert.Equal(t, 99.0, got[0].Low)
	assert.Equal(t, 100.51, got[0].Close)

	_, err = c.HistoricalData(context.Background(), "RELIANCE", "NSE", "3M")
	require.NoError(t, err)
	assert.Equal(t, int64(1), atomic.LoadInt64(&src.calls), "second read served from cache")
}

func TestHistoricalDataDistinctDurationsNotShared(t *testing.T) {
	src := &fakeCandleSource{candles: []Candle{{Timestamp: 1, Open: 1, High: 1, Low: 1, Close: 1}}}
	c := newHistoryClient(src)

	_, err := c.HistoricalData(context.Background(), "TCS", "NSE", "1M")
	require.NoError(t, err)
	_, err = c.HistoricalData(context.Background(), "TCS", "NSE", "1y")
	require.NoError(t, err)
	assert.Equal(t, int64(2), atomic.LoadInt64(&src.calls))
}

func TestHistoricalDataEmptySeriesIsNotFound(t *testing.T) {
	c := newHistoryClient(&fakeCandleSource{})
	_, err := c.HistoricalData(context.Background(), "NOSUCH", "NSE", "1M")
	assert.True(t, IsNotFound(err))
}

func TestHistoricalDataNoSourceConfigured(t *testing.T) {
	c := newHistoryClient(nil)
	_, err := c.HistoricalData(context.Background(), "TCS", "NSE", "1M")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindProvider, fe.Kind)
}

func TestYahooCandleSourceParsesChart(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(map[string]any{
			"chart": map[string]any{
				"result": []map[string]any{{
					"timestamp": []int64{1717300000, 1717386400, 1717472800},
					"indicators": map[string]any{
						"quote": []map[string]any{{
							"open":   []any{100.5, nil, 102.0},
							"high":   []any{101.0, nil, 103.0},
							"low":    []any{99.5, nil, 101.5},
							"close":  []any{100.8, nil, 102.7},
							"volume": []any{5000, nil, 7000},
						}},
					},
				}},
			},
		})
	}))
	defer srv.Close()

	src := NewYahooCandleSource(srv.URL, 0)
	candles, err := src.Candles(context.Background(), "RELIANCE", "NSE", "1M")
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/RELIANCE.NS", gotPath)
	assert.Contains(t, gotQuery, "range=1mo")
	assert.Contains(t, gotQuery, "interval=1d")

	// The null row is a gap and must be skipped.
	require.Len(t, candles, 2)
	assert.Equal(t, int64(1717300000), candles[0].Timestamp)
	assert.Equal(t, 100.5, candles[0].Open)
	assert.Equal(t, int64(7000), candles[1].Volume)
}

func TestYahooCandleSourceBSESuffix(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{"chart": map[string]any{"result": []any{}}})
	}))
	defer srv.Close()

	src := NewYahooCandleSource(srv.URL, 0)
	candles, err := src.Candles(context.Background(), "TCS", "BSE", "1M")
	require.NoError(t, err)
	assert.Empty(t, candles)
	assert.Equal(t, "/v8/finance/chart/TCS.BO", gotPath)
}

func TestGrowwCandleSourceParsesRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/exchange/NSE/segment/CASH/RELIANCE")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candles": [][]any{
				{1717300000, 100.5, 101.0, 99.5, 100.8, 5000},
				{1717386400}, // short row, skipped
				{1717472800, 102.0, 103.0, 101.5, 102.7, 7000},
			},
		})
	}))
	defer srv.Close()

	src := NewGrowwCandleSource(srv.URL, "", 0)
	candles, err := src.Candles(context.Background(), "RELIANCE", "NSE", "1d")
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 100.8, candles[0].Close)
	assert.Equal(t, int64(7000), candles[1].Volume)
}
