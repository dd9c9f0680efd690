package assistant

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockbro/stockbro/internal/market"
	"github.com/stockbro/stockbro/internal/news"
	"github.com/stockbro/stockbro/internal/router"
)

type fakeMarket struct {
	quotes  map[string]*market.StockData
	stale   bool
	candles []market.Candle
	results []market.SearchResult
}

func (f *fakeMarket) GetStockData(_ context.Context, symbol string) (*market.StockData, bool, error) {
	_, trading := market.ParseSymbol(symbol)
	if sd, ok := f.quotes[trading]; ok {
		return sd, f.stale, nil
	}
	return nil, false, market.NewNotFoundError(trading)
}

func (f *fakeMarket) HistoricalData(_ context.Context, sym, _, _ string) ([]market.Candle, error) {
	if len(f.candles) == 0 {
		return nil, market.NewNotFoundError(sym)
	}
	return f.candles, nil
}

func (f *fakeMarket) SearchStocks(context.Context, string, int) []market.SearchResult {
	return f.results
}

func (f *fakeMarket) TrendingStocks(context.Context) []market.StockData {
	out := make([]market.StockData, 0, len(f.quotes))
	for _, sd := range f.quotes {
		out = append(out, *sd)
	}
	return out
}

type fakeNews struct {
	articles []news.Article
}

func (f *fakeNews) SearchNews(context.Context, string, int) []news.Article { return f.articles }
func (f *fakeNews) TopHeadlines(context.Context, string, int) []news.Article { return f.articles }

var testLog = zerolog.New(nil).Level(zerolog.Disabled)

func newService(m *fakeMarket, n *fakeNews) *Service {
	return New(router.NewRouter(), m, n, testLog)
}

func TestPriceAnswer(t *testing.T) {
	m := &fakeMarket{quotes: map[string]*market.StockData{
		"RELIANCE": {Symbol: "RELIANCE", Name: "Reliance Industries", CurrentPrice: 2850.5, ChangePercent: 0.43},
	}}
	s := newService(m, &fakeNews{})

	ans := s.Answer(context.Background(), "What is the price of Reliance?")
	assert.Equal(t, router.IntentPriceQuote, ans.Intent)
	require.Len(t, ans.Stocks, 1)
	assert.Contains(t, ans.Text, "2850.50")
	assert.False(t, ans.Stale)
}

func TestPriceAnswerStaleNoted(t *testing.T) {
	m := &fakeMarket{
		quotes: map[string]*market.StockData{"TCS": {Symbol: "TCS", Name: "TCS", CurrentPrice: 4100}},
		stale:  true,
	}
	s := newService(m, &fakeNews{})

	ans := s.Answer(context.Background(), "TCS price")
	assert.True(t, ans.Stale)
	assert.Contains(t, ans.Text, "cached")
}

func TestPriceAnswerUnknownSymbol(t *testing.T) {
	s := newService(&fakeMarket{}, &fakeNews{})
	ans := s.Answer(context.Background(), "price of SENSEX")
	assert.Contains(t, ans.Text, "No data found for SENSEX")
}

func TestPriceResolvesViaSearch(t *testing.T) {
	m := &fakeMarket{
		quotes:  map[string]*market.StockData{"ADANIGREEN": {Symbol: "ADANIGREEN", Name: "Adani Green", CurrentPrice: 950}},
		results: []market.SearchResult{{Symbol: "ADANIGREEN", Name: "Adani Green Energy"}},
	}
	s := newService(m, &fakeNews{})

	ans := s.Answer(context.Background(), "price of adani green")
	require.Len(t, ans.Stocks, 1)
	assert.Equal(t, "ADANIGREEN", ans.Stocks[0].Symbol)
}

func TestChartAnswer(t *testing.T) {
	m := &fakeMarket{candles: []market.Candle{{Timestamp: 1, Close: 10}, {Timestamp: 2, Close: 11}}}
	s := newService(m, &fakeNews{})

	ans := s.Answer(context.Background(), "Show me RELIANCE chart for 1 year")
	assert.Equal(t, router.IntentChart, ans.Intent)
	assert.Len(t, ans.Candles, 2)
	assert.Equal(t, "/api/v1/stocks/RELIANCE/history?duration=1y", ans.ChartURL)
}

func TestChartDefaultsDuration(t *testing.T) {
	m := &fakeMarket{candles: []market.Candle{{Timestamp: 1, Close: 10}}}
	s := newService(m, &fakeNews{})

	ans := s.Answer(context.Background(), "RELIANCE chart")
	assert.Equal(t, "3M", ans.Timeframe)
	assert.Contains(t, ans.ChartURL, "duration=3M")
}

func TestNewsAnswer(t *testing.T) {
	n := &fakeNews{articles: []news.Article{{Title: "Sensex hits record"}, {Title: "RBI preview"}}}
	s := newService(&fakeMarket{}, n)

	ans := s.Answer(context.Background(), "latest news on infosys")
	assert.Equal(t, router.IntentNews, ans.Intent)
	assert.Len(t, ans.Articles, 2)
	assert.Contains(t, ans.Text, "Sensex hits record")
}

func TestSearchAnswer(t *testing.T) {
	m := &fakeMarket{results: []market.SearchResult{{Symbol: "TATAMOTORS", Name: "Tata Motors"}}}
	s := newService(m, &fakeNews{})

	ans := s.Answer(context.Background(), "Find Tata Motors stock symbol")
	assert.Equal(t, router.IntentSearch, ans.Intent)
	require.Len(t, ans.SearchResults, 1)
	assert.Contains(t, ans.Text, "TATAMOTORS")
}

func TestOptionsAndEducationalAnswers(t *testing.T) {
	s := newService(&fakeMarket{}, &fakeNews{})

	ans := s.Answer(context.Background(), "Explain call options for NIFTY")
	assert.Equal(t, router.IntentOptions, ans.Intent)
	assert.Contains(t, ans.Text, "call option")

	ans = s.Answer(context.Background(), "what is ltp?")
	assert.Equal(t, router.IntentEducational, ans.Intent)
	assert.Contains(t, ans.Text, "Last Traded Price")
}

func TestIntradayIncludesTemplateAndQuote(t *testing.T) {
	m := &fakeMarket{quotes: map[string]*market.StockData{"SBIN": {Symbol: "SBIN", CurrentPrice: 820}}}
	s := newService(m, &fakeNews{})

	ans := s.Answer(context.Background(), "intraday plan for SBIN")
	assert.Equal(t, router.IntentIntraday, ans.Intent)
	assert.Contains(t, ans.Text, "SBIN")
	assert.Len(t, ans.Stocks, 1)
}

func TestComplexQueryAddsNews(t *testing.T) {
	m := &fakeMarket{quotes: map[string]*market.StockData{"RELIANCE": {Symbol: "RELIANCE", CurrentPrice: 2850}}}
	n := &fakeNews{articles: []news.Article{{Title: "Reliance results"}}}
	s := newService(m, n)

	ans := s.Answer(context.Background(), "show reliance price and latest news")
	assert.Equal(t, router.IntentPriceQuote, ans.Intent)
	assert.NotEmpty(t, ans.Stocks)
	assert.NotEmpty(t, ans.Articles, "complex query pulls news alongside the quote")
}

func TestGeneralFallsBackToTrending(t *testing.T) {
	m := &fakeMarket{quotes: map[string]*market.StockData{"ITC": {Symbol: "ITC", CurrentPrice: 455}}}
	s := newService(m, &fakeNews{})

	ans := s.Answer(context.Background(), "hello")
	assert.Equal(t, router.IntentGeneral, ans.Intent)
	assert.NotEmpty(t, ans.Stocks)
}

func TestSectorQuery(t *testing.T) {
	s := newService(&fakeMarket{}, &fakeNews{})
	ans := s.Answer(context.Background(), "best banking stocks?")
	assert.Contains(t, ans.Text, "HDFCBANK")
}
