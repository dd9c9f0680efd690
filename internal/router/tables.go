package router

import "regexp"

// nicknames maps an exchange symbol to its colloquial names. Matching is
// word-boundary based, so short aliases never fire inside longer words.
// Multi-word full company names are left out on purpose: a query like
// "find Tata Motors stock symbol" must stay a SEARCH, not collapse into a
// quote lookup.
var nicknames = map[string][]string{
	"RELIANCE":   {"reliance", "ril", "mukesh ambani"},
	"TCS":        {"tcs", "tata consultancy"},
	"INFY":       {"infosys", "infy"},
	"HDFCBANK":   {"hdfc bank", "hdfc", "hdfcb"},
	"ICICIBANK":  {"icici bank", "icici"},
	"SBIN":       {"sbi", "state bank", "sbin"},
	"ITC":        {"itc"},
	"BHARTIARTL": {"airtel", "bharti airtel"},
	"LT":         {"l&t", "larsen", "lt"},
	"ZOMATO":     {"zomato"},
	"PAYTM":      {"paytm", "one97"},
	"NIFTY":      {"nifty", "nifty 50"},
	"SENSEX":     {"sensex", "bse index"},
}

// Keyword sets for intent classification. Matching is substring based on
// the lowercased query, like "how much" inside a longer sentence.
var (
	priceKeywords       = []string{"price", "current", "trading", "ltp", "quote", "value", "worth", "how much", "rate"}
	chartKeywords       = []string{"chart", "graph", "candlestick", "historical", "trend", "performance", "movement", "show me"}
	newsKeywords        = []string{"news", "headlines", "latest", "updates", "sentiment", "articles", "market buzz", "happening"}
	searchKeywords      = []string{"find", "search", "lookup", "which stock", "symbol for", "ticker", "suggest"}
	optionsKeywords     = []string{"call option", "put option", "f&o", "futures", "derivatives", "strike", "premium", "expiry"}
	intradayKeywords    = []string{"intraday", "day trade", "scalping", "short term", "today", "swing trade", "entry", "exit"}
	longTermKeywords    = []string{"invest", "long term", "hold", "portfolio", "fundamentals", "value investing", "dividend", "multibagger"}
	ipoKeywords         = []string{"ipo", "upcoming ipo", "listing", "subscription", "allotment", "gmp", "grey market"}
	educationalKeywords = []string{"what is", "define", "explain", "how does", "meaning of", "learn"}
)

// timeframePattern maps a duration phrasing to its canonical code. The
// table is ordered; the first match wins.
type timeframePattern struct {
	re   *regexp.Regexp
	code string
}

var timeframePatterns = []timeframePattern{
	{regexp.MustCompile(`\b(1|one)\s*day\b`), "1d"},
	{regexp.MustCompile(`\btoday\b`), "1d"},
	{regexp.MustCompile(`\b(1|one)\s*week\b`), "1w"},
	{regexp.MustCompile(`\b(1|one)\s*month\b`), "1M"},
	{regexp.MustCompile(`\b(3|three)\s*month`), "3M"},
	{regexp.MustCompile(`\b(6|six)\s*month`), "6M"},
	{regexp.MustCompile(`\b(1|one)\s*year\b`), "1y"},
	{regexp.MustCompile(`\b(5|five)\s*year`), "5y"},
}

// stopWords are stripped when deriving a search term from the raw query.
var stopWords = []string{"find", "search", "stock", "symbol", "for", "what", "is", "the", "lookup", "price", "of"}

var exchangeSymbolRe = regexp.MustCompile(`\b(nse|bse)-([a-z0-9&]+)\b`)

var upperTokenRe = regexp.MustCompile(`\b[A-Z]{3,10}\b`)
