// Package assistant turns a parsed query into a structured answer by
// invoking the market data and news layers plus the static knowledge base.
// Tool selection is deterministic and driven entirely by the router's
// intent; the language-model layer, when present, sits in front of this and
// is out of scope here.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/stockbro/stockbro/internal/knowledge"
	"github.com/stockbro/stockbro/internal/market"
	"github.com/stockbro/stockbro/internal/news"
	"github.com/stockbro/stockbro/internal/router"
)

const disclaimer = "This is not financial advice. DYOR."

// MarketData is the slice of the market client the assistant needs.
type MarketData interface {
	GetStockData(ctx context.Context, symbol string) (*market.StockData, bool, error)
	HistoricalData(ctx context.Context, tradingSymbol, exchange, duration string) ([]market.Candle, error)
	SearchStocks(ctx context.Context, query string, size int) []market.SearchResult
	TrendingStocks(ctx context.Context) []market.StockData
}

// NewsProvider is the slice of the news client the assistant needs.
type NewsProvider interface {
	SearchNews(ctx context.Context, query string, maxResults int) []news.Article
	TopHeadlines(ctx context.Context, category string, maxResults int) []news.Article
}

// Answer is the structured response for one query: narrative text plus
// whatever cards the intent called for.
type Answer struct {
	Text          string                `json:"text"`
	Intent        router.Intent         `json:"intent"`
	Symbols       []string              `json:"symbols,omitempty"`
	Timeframe     string                `json:"timeframe,omitempty"`
	Stocks        []market.StockData    `json:"stocks,omitempty"`
	Candles       []market.Candle       `json:"candles,omitempty"`
	ChartURL      string                `json:"chart_url,omitempty"`
	Articles      []news.Article        `json:"articles,omitempty"`
	SearchResults []market.SearchResult `json:"search_results,omitempty"`
	Stale         bool                  `json:"stale,omitempty"`
}

// Service answers user queries.
type Service struct {
	router *router.Router
	market MarketData
	news   NewsProvider
	log    zerolog.Logger
}

// New wires the assistant.
func New(r *router.Router, m MarketData, n NewsProvider, log zerolog.Logger) *Service {
	return &Service{
		router: r,
		market: m,
		news:   n,
		log:    log.With().Str("component", "assistant").Logger(),
	}
}

// Answer routes one query and assembles the response. It never returns an
// error: data-layer failures degrade to an apologetic text answer.
func (s *Service) Answer(ctx context.Context, query string) Answer {
	parsed := s.router.Parse(query)
	ans := Answer{
		Intent:    parsed.Intent,
		Symbols:   parsed.Symbols,
		Timeframe: parsed.Timeframe,
	}

	switch parsed.Intent {
	case router.IntentPriceQuote:
		s.answerPrice(ctx, parsed, &ans)
	case router.IntentChart:
		s.answerChart(ctx, parsed, &ans)
	case router.IntentNews:
		s.answerNews(ctx, parsed, &ans)
	case router.IntentSearch:
		s.answerSearch(ctx, parsed, &ans)
	case router.IntentOptions:
		ans.Text = knowledge.OptionsBasics()
	case router.IntentIPO:
		ans.Text = knowledge.IPOChecklistTemplate(parsed.SearchTerm)
	case router.IntentIntraday:
		s.answerIntraday(ctx, parsed, &ans)
	case router.IntentLongTerm:
		s.answerLongTerm(ctx, parsed, &ans)
	case router.IntentEducational:
		s.answerEducational(parsed, &ans)
	default:
		s.answerGeneral(ctx, parsed, &ans)
	}

	// A complex query wants price and news together regardless of which
	// intent won the tie-break.
	if parsed.IsComplex && len(ans.Articles) == 0 && len(parsed.Symbols) > 0 {
		ans.Articles = s.news.SearchNews(ctx, parsed.Symbols[0], 3)
	}
	return ans
}

func (s *Service) answerPrice(ctx context.Context, parsed router.ParsedQuery, ans *Answer) {
	symbols := parsed.Symbols
	if len(symbols) == 0 && parsed.SearchTerm != "" {
		// No recognized ticker; try resolving the company name first.
		if results := s.market.SearchStocks(ctx, parsed.SearchTerm, 3); len(results) > 0 {
			symbols = []string{results[0].Symbol}
			ans.SearchResults = results
		}
	}
	if len(symbols) == 0 {
		ans.Text = "I couldn't identify a stock in that query. Try a symbol like RELIANCE or TCS."
		return
	}

	var lines []string
	for _, sym := range symbols {
		sd, stale, err := s.market.GetStockData(ctx, sym)
		if err != nil {
			s.log.Debug().Str("symbol", sym).Err(err).Msg("quote unavailable")
			if market.IsNotFound(err) {
				lines = append(lines, fmt.Sprintf("No data found for %s.", sym))
			} else {
				lines = append(lines, fmt.Sprintf("%s is temporarily unavailable, please retry shortly.", sym))
			}
			continue
		}
		ans.Stocks = append(ans.Stocks, *sd)
		ans.Stale = ans.Stale || stale
		lines = append(lines, fmt.Sprintf("%s (%s) is trading at ₹%.2f (%+.2f%%).",
			sd.Name, sd.Symbol, sd.CurrentPrice, sd.ChangePercent))
	}
	if ans.Stale {
		lines = append(lines, "Note: some prices are from the last cached snapshot.")
	}
	ans.Text = strings.Join(lines, "\n")
}

func (s *Service) answerChart(ctx context.Context, parsed router.ParsedQuery, ans *Answer) {
	if len(parsed.Symbols) == 0 {
		ans.Text = "Tell me which stock to chart, for example: show RELIANCE chart for 1 year."
		return
	}
	sym := parsed.Symbols[0]
	duration := parsed.Timeframe
	if duration == "" {
		duration = "3M"
		ans.Timeframe = duration
	}

	candles, err := s.market.HistoricalData(ctx, sym, market.DefaultExchange, duration)
	if err != nil {
		s.log.Debug().Str("symbol", sym).Err(err).Msg("chart data unavailable")
		ans.Text = fmt.Sprintf("Chart data for %s is unavailable right now.", sym)
		return
	}
	ans.Candles = candles
	ans.ChartURL = fmt.Sprintf("/api/v1/stocks/%s/history?duration=%s", sym, duration)
	ans.Text = fmt.Sprintf("Here is the %s chart for %s (%d candles).", duration, sym, len(candles))
}

func (s *Service) answerNews(ctx context.Context, parsed router.ParsedQuery, ans *Answer) {
	if len(parsed.Symbols) > 0 {
		ans.Articles = s.news.SearchNews(ctx, parsed.Symbols[0], 5)
	} else {
		ans.Articles = s.news.TopHeadlines(ctx, "business", 5)
	}
	if len(ans.Articles) == 0 {
		ans.Text = "No fresh news right now, try again in a few minutes."
		return
	}
	var lines []string
	for _, a := range ans.Articles {
		lines = append(lines, "- "+a.Title)
	}
	ans.Text = "Here are the latest stories:\n" + strings.Join(lines, "\n")
}

func (s *Service) answerSearch(ctx context.Context, parsed router.ParsedQuery, ans *Answer) {
	term := parsed.SearchTerm
	if term == "" {
		term = parsed.QueryText
	}
	ans.SearchResults = s.market.SearchStocks(ctx, term, 10)
	if len(ans.SearchResults) == 0 {
		ans.Text = fmt.Sprintf("No instruments matched %q.", term)
		return
	}
	var lines []string
	for _, r := range ans.SearchResults {
		lines = append(lines, fmt.Sprintf("- %s (%s)", r.Name, r.Symbol))
	}
	ans.Text = "Matching instruments:\n" + strings.Join(lines, "\n")
}

func (s *Service) answerIntraday(ctx context.Context, parsed router.ParsedQuery, ans *Answer) {
	sym := ""
	if len(parsed.Symbols) > 0 {
		sym = parsed.Symbols[0]
		if sd, stale, err := s.market.GetStockData(ctx, sym); err == nil {
			ans.Stocks = append(ans.Stocks, *sd)
			ans.Stale = stale
		}
	}
	ans.Text = knowledge.IntradayPlanTemplate(sym)
}

func (s *Service) answerLongTerm(ctx context.Context, parsed router.ParsedQuery, ans *Answer) {
	text, _ := knowledge.Strategy("Long Term")
	for _, sym := range parsed.Symbols {
		if sd, stale, err := s.market.GetStockData(ctx, sym); err == nil {
			ans.Stocks = append(ans.Stocks, *sd)
			ans.Stale = ans.Stale || stale
		}
	}
	ans.Text = fmt.Sprintf("Long-term investing: %s\n%s", text, disclaimer)
}

func (s *Service) answerEducational(parsed router.ParsedQuery, ans *Answer) {
	if term, def, ok := knowledge.FindTerm(parsed.QueryText); ok {
		ans.Text = fmt.Sprintf("%s: %s", term, def)
		return
	}
	if syms, ok := sectorFromQuery(parsed.QueryText); ok {
		ans.Text = "Notable stocks in that sector: " + strings.Join(syms, ", ")
		return
	}
	ans.Text = "I don't have a definition for that yet. Try terms like IPO, LTP, or SENSEX."
}

func (s *Service) answerGeneral(ctx context.Context, parsed router.ParsedQuery, ans *Answer) {
	if syms, ok := sectorFromQuery(parsed.QueryText); ok {
		ans.Text = "Notable stocks in that sector: " + strings.Join(syms, ", ")
		return
	}
	trending := s.market.TrendingStocks(ctx)
	if len(trending) > 0 {
		ans.Stocks = trending
		var lines []string
		for _, sd := range trending {
			lines = append(lines, fmt.Sprintf("- %s: ₹%.2f (%+.2f%%)", sd.Symbol, sd.CurrentPrice, sd.ChangePercent))
		}
		ans.Text = "Here's how the large caps look right now:\n" + strings.Join(lines, "\n")
		return
	}
	ans.Text = "Ask me about Indian stocks: prices, charts, news, or market terms."
}

// sectorFromQuery finds a curated sector mentioned in free text.
func sectorFromQuery(query string) ([]string, bool) {
	lower := strings.ToLower(query)
	for _, sector := range []string{"Banking", "IT", "Defense", "Automobile", "Energy", "Pharma", "Consumer"} {
		if strings.Contains(lower, strings.ToLower(sector)+" stock") ||
			strings.Contains(lower, strings.ToLower(sector)+" sector") {
			syms, _ := knowledge.SectorStocks(sector)
			return syms, true
		}
	}
	return nil, false
}
