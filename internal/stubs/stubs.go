// Package stubs serves deterministic upstream fixtures so the whole stack
// runs offline. Point the market and news base URLs at this server:
//
//	market.base_url:   http://localhost:9091/v1/api/stocks_data/v1
//	market.search_url: http://localhost:9091/v1/api/search/v3/query/globalSuggestion/exchange/NSE_EQ
//	market.candle_url: http://localhost:9091 (Yahoo-shaped chart endpoint)
//	news.base_url:     http://localhost:9091/api/1/latest
package stubs

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Options tunes the simulator's failure behavior.
type Options struct {
	Latency   time.Duration // added to every response
	FailEvery int           // every Nth quote request returns 500; 0 disables
}

// Server answers quote, search, chart, and news requests with canned but
// internally consistent data.
type Server struct {
	opts     Options
	log      zerolog.Logger
	mux      *chi.Mux
	requests atomic.Int64
}

type stubStock struct {
	name  string
	price float64
}

var stocks = map[string]stubStock{
	"RELIANCE":   {"Reliance Industries", 2850.50},
	"TCS":        {"Tata Consultancy Services", 4120.00},
	"HDFCBANK":   {"HDFC Bank", 1545.25},
	"ICICIBANK":  {"ICICI Bank", 1190.60},
	"INFY":       {"Infosys", 1835.40},
	"SBIN":       {"State Bank of India", 822.15},
	"ITC":        {"ITC", 455.90},
	"BHARTIARTL": {"Bharti Airtel", 1420.70},
	"LT":         {"Larsen & Toubro", 3610.00},
	"ZOMATO":     {"Zomato", 265.35},
	"PAYTM":      {"One97 Communications", 420.80},
	"TATAMOTORS": {"Tata Motors", 985.45},
	"ADANIGREEN": {"Adani Green Energy", 950.20},
}

func New(opts Options, log zerolog.Logger) *Server {
	s := &Server{
		opts: opts,
		log:  log.With().Str("component", "stubs").Logger(),
		mux:  chi.NewRouter(),
	}

	s.mux.Get("/v1/api/stocks_data/v1/accord_points/exchange/{exchange}/segment/CASH/latest_prices_ohlc/{symbol}", s.handleQuote)
	s.mux.Get("/v1/api/search/v3/query/globalSuggestion/exchange/NSE_EQ", s.handleSearch)
	s.mux.Get("/v8/finance/chart/{symbol}", s.handleChart)
	s.mux.Get("/api/1/latest", s.handleNews)

	return s
}

// Handler exposes the route table.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	s.pause()
	n := s.requests.Add(1)
	if s.opts.FailEvery > 0 && n%int64(s.opts.FailEvery) == 0 {
		s.log.Debug().Int64("request", n).Msg("injected quote failure")
		http.Error(w, "injected failure", http.StatusInternalServerError)
		return
	}

	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	st, ok := stocks[symbol]
	if !ok {
		http.NotFound(w, r)
		return
	}

	// Previous close sits 0.8% under the live price so change figures are
	// always non-zero and positive.
	prevClose := round2(st.price / 1.008)
	writeJSON(w, map[string]any{
		"displayName":   st.name,
		"ltp":           st.price,
		"open":          round2(prevClose * 1.002),
		"high":          round2(st.price * 1.012),
		"low":           round2(prevClose * 0.991),
		"close":         prevClose,
		"dayChange":     round2(st.price - prevClose),
		"dayChangePerc": round2((st.price - prevClose) / prevClose * 100),
		"volume":        1_000_000 + int64(st.price*1000),
		"yearHighPrice": round2(st.price * 1.25),
		"yearLowPrice":  round2(st.price * 0.70),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.pause()
	query := strings.ToLower(r.URL.Query().Get("query"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if size <= 0 {
		size = 10
	}

	var matches []map[string]any
	for symbol, st := range stocks {
		if len(matches) >= size {
			break
		}
		if query == "" ||
			strings.Contains(strings.ToLower(symbol), query) ||
			strings.Contains(strings.ToLower(st.name), query) {
			matches = append(matches, map[string]any{
				"id":             symbol,
				"title":          st.name,
				"entity_type":    "STOCKS",
				"nse_scrip_code": symbol,
			})
		}
	}
	writeJSON(w, map[string]any{"data": matches})
}

// rangePoints maps a Yahoo range code to the number of candles served.
var rangePoints = map[string]struct {
	points int
	step   time.Duration
}{
	"1d":  {75, 5 * time.Minute},
	"5d":  {25, 90 * time.Minute},
	"1mo": {22, 24 * time.Hour},
	"3mo": {66, 24 * time.Hour},
	"6mo": {130, 24 * time.Hour},
	"1y":  {52, 7 * 24 * time.Hour},
	"5y":  {60, 30 * 24 * time.Hour},
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	s.pause()
	symbol := strings.ToUpper(strings.TrimSuffix(strings.TrimSuffix(
		chi.URLParam(r, "symbol"), ".NS"), ".BO"))
	st, ok := stocks[symbol]
	if !ok {
		http.NotFound(w, r)
		return
	}

	span, ok := rangePoints[r.URL.Query().Get("range")]
	if !ok {
		span = rangePoints["3mo"]
	}

	end := time.Now().Truncate(time.Minute)
	timestamps := make([]int64, span.points)
	opens := make([]float64, span.points)
	highs := make([]float64, span.points)
	lows := make([]float64, span.points)
	closes := make([]float64, span.points)
	volumes := make([]int64, span.points)
	for i := 0; i < span.points; i++ {
		ts := end.Add(-time.Duration(span.points-1-i) * span.step)
		// A deterministic sawtooth around the base price keeps charts stable
		// across runs.
		drift := float64(i%7-3) / 100
		c := round2(st.price * (1 + drift))
		timestamps[i] = ts.Unix()
		opens[i] = round2(c * 0.998)
		highs[i] = round2(c * 1.006)
		lows[i] = round2(c * 0.994)
		closes[i] = c
		volumes[i] = 500_000 + int64(i)*10_000
	}

	writeJSON(w, map[string]any{
		"chart": map[string]any{
			"result": []map[string]any{{
				"timestamp": timestamps,
				"indicators": map[string]any{
					"quote": []map[string]any{{
						"open":   opens,
						"high":   highs,
						"low":    lows,
						"close":  closes,
						"volume": volumes,
					}},
				},
			}},
		},
	})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	s.pause()
	if r.URL.Query().Get("apikey") == "" {
		http.Error(w, `{"status":"error","message":"missing apikey"}`, http.StatusUnauthorized)
		return
	}

	topic := r.URL.Query().Get("q")
	if topic == "" {
		topic = r.URL.Query().Get("category")
	}
	if topic == "" {
		topic = "markets"
	}

	now := time.Now().UTC()
	results := make([]map[string]any, 0, 3)
	for i := 0; i < 3; i++ {
		results = append(results, map[string]any{
			"title":       fmt.Sprintf("Stub headline %d about %s", i+1, topic),
			"description": fmt.Sprintf("Deterministic fixture story %d covering %s for offline development.", i+1, topic),
			"link":        fmt.Sprintf("https://example.com/news/%s/%d", topic, i+1),
			"pubDate":     now.Add(-time.Duration(i) * time.Hour).Format("2006-01-02 15:04:05"),
			"source_id":   "stubwire",
		})
	}
	writeJSON(w, map[string]any{"status": "success", "results": results})
}

func (s *Server) pause() {
	if s.opts.Latency > 0 {
		time.Sleep(s.opts.Latency)
	}
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
