package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntentClassification(t *testing.T) {
	r := NewRouter()

	tests := []struct {
		name    string
		query   string
		intent  Intent
		symbols []string
	}{
		{"price with symbol", "What is the price of Reliance?", IntentPriceQuote, []string{"RELIANCE"}},
		{"chart with timeframe", "Show me RELIANCE chart for 1 year", IntentChart, []string{"RELIANCE"}},
		{"options preempt symbol", "Explain call options for NIFTY", IntentOptions, []string{"NIFTY"}},
		{"bare ticker", "INFY", IntentPriceQuote, []string{"INFY"}},
		{"search by company name", "Find Tata Motors stock symbol", IntentSearch, nil},
		{"ipo", "Any good upcoming IPO this month?", IntentIPO, nil},
		{"intraday", "Give me an intraday plan for SBIN", IntentIntraday, []string{"SBIN"}},
		{"long term", "Is ITC good for long term investing?", IntentLongTerm, []string{"ITC"}},
		{"news", "Latest news about Infosys", IntentNews, []string{"INFY"}},
		{"educational", "What is a stop loss?", IntentEducational, nil},
		{"general", "hello there", IntentGeneral, nil},
		{"price keyword no symbol", "how much is one share worth", IntentPriceQuote, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Parse(tt.query)
			assert.Equal(t, tt.intent, got.Intent)
			if tt.symbols == nil {
				assert.Empty(t, got.Symbols)
			} else {
				assert.Equal(t, tt.symbols, got.Symbols)
			}
			assert.Equal(t, tt.query, got.QueryText)
		})
	}
}

func TestTimeframeExtraction(t *testing.T) {
	r := NewRouter()

	tests := []struct {
		query     string
		timeframe string
	}{
		{"How is the market today?", "1d"},
		{"RELIANCE over 1 day", "1d"},
		{"one week trend for TCS", "1w"},
		{"show 1 month chart", "1M"},
		{"last 3 months performance", "3M"},
		{"six month view", "6M"},
		{"one year returns", "1y"},
		{"5 year history of ITC", "5y"},
		{"price of SBIN", ""},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.timeframe, r.Parse(tt.query).Timeframe)
		})
	}
}

func TestMarketTodayHasNoSymbols(t *testing.T) {
	r := NewRouter()
	got := r.Parse("How is the market today?")
	assert.Empty(t, got.Symbols)
	assert.Equal(t, "1d", got.Timeframe)
}

func TestSymbolExtractionForms(t *testing.T) {
	r := NewRouter()

	t.Run("nickname", func(t *testing.T) {
		got := r.Parse("how is airtel doing")
		assert.Equal(t, []string{"BHARTIARTL"}, got.Symbols)
	})

	t.Run("exchange prefixed", func(t *testing.T) {
		got := r.Parse("quote for NSE-TATAMOTORS please")
		assert.Equal(t, []string{"TATAMOTORS"}, got.Symbols)
	})

	t.Run("multiple deduplicated and sorted", func(t *testing.T) {
		got := r.Parse("compare reliance RELIANCE and tcs price")
		assert.Equal(t, []string{"RELIANCE", "TCS"}, got.Symbols)
	})

	t.Run("uppercase token validated against known set", func(t *testing.T) {
		got := r.Parse("price of SENSEX")
		assert.Equal(t, []string{"SENSEX"}, got.Symbols)
		got = r.Parse("price of AMAZING things")
		assert.Empty(t, got.Symbols)
	})
}

func TestShortTickerWordBoundary(t *testing.T) {
	r := NewRouter()

	// "LT" is a known ticker; it must not fire inside longer words.
	got := r.Parse("ALTERNATIVELY, consider the itchy BUILT market")
	assert.Empty(t, got.Symbols)

	got = r.Parse("what is lt trading at")
	assert.Equal(t, []string{"LT"}, got.Symbols)
	assert.Equal(t, IntentPriceQuote, got.Intent)
}

func TestSearchTermExtraction(t *testing.T) {
	r := NewRouter()

	got := r.Parse("Find Tata Motors stock symbol")
	require.Equal(t, IntentSearch, got.Intent)
	assert.Equal(t, "tata motors", got.SearchTerm)

	// PRICE_QUOTE without a recognized symbol also yields a search term.
	got = r.Parse("price of adani green")
	require.Equal(t, IntentPriceQuote, got.Intent)
	assert.Empty(t, got.Symbols)
	assert.Equal(t, "adani green", got.SearchTerm)

	// A resolved symbol means no search term is needed.
	got = r.Parse("price of reliance")
	assert.Empty(t, got.SearchTerm)
}

func TestComplexityFlag(t *testing.T) {
	r := NewRouter()

	assert.True(t, r.Parse("show reliance price and latest news").IsComplex)
	assert.True(t, r.Parse("chart and price of TCS").IsComplex)
	assert.False(t, r.Parse("price of TCS").IsComplex)
	assert.False(t, r.Parse("latest news on banks").IsComplex)
}

func TestDeterminism(t *testing.T) {
	r := NewRouter()
	const q = "show me reliance and tcs chart with latest news for 3 months"
	first := r.Parse(q)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, r.Parse(q))
	}
}
