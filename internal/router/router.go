// Package router turns free-text user queries into a structured intent plus
// extracted entities. Classification is entirely table driven, so identical
// input always produces the identical result.
package router

import (
	"regexp"
	"sort"
	"strings"
)

// Intent is the classified purpose of a query.
type Intent string

const (
	IntentPriceQuote  Intent = "PRICE_QUOTE"
	IntentChart       Intent = "CHART"
	IntentNews        Intent = "NEWS"
	IntentSearch      Intent = "SEARCH"
	IntentIPO         Intent = "IPO"
	IntentOptions     Intent = "OPTIONS"
	IntentIntraday    Intent = "INTRADAY"
	IntentLongTerm    Intent = "LONG_TERM"
	IntentGeneral     Intent = "GENERAL"
	IntentEducational Intent = "EDUCATIONAL"
)

// ParsedQuery is the structured form of one user query. Immutable once
// produced.
type ParsedQuery struct {
	Intent     Intent   `json:"intent"`
	Symbols    []string `json:"symbols"`
	Timeframe  string   `json:"timeframe,omitempty"`
	QueryText  string   `json:"query_text"`
	SearchTerm string   `json:"search_term,omitempty"`
	IsComplex  bool     `json:"is_complex"`
}

// aliasPattern is a precompiled word-boundary matcher for one nickname.
type aliasPattern struct {
	re     *regexp.Regexp
	symbol string
}

// Router parses user queries. Construct once with NewRouter and share; it
// holds only immutable compiled tables.
type Router struct {
	aliases      []aliasPattern
	knownSymbols map[string]bool
}

// NewRouter compiles the nickname and keyword tables.
func NewRouter() *Router {
	r := &Router{knownSymbols: make(map[string]bool, len(nicknames))}
	for sym, names := range nicknames {
		r.knownSymbols[sym] = true
		for _, name := range names {
			r.aliases = append(r.aliases, aliasPattern{
				re:     regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`),
				symbol: sym,
			})
		}
	}
	// Compile order is map-dependent; sort so behavior never varies.
	sort.Slice(r.aliases, func(i, j int) bool {
		if r.aliases[i].symbol != r.aliases[j].symbol {
			return r.aliases[i].symbol < r.aliases[j].symbol
		}
		return r.aliases[i].re.String() < r.aliases[j].re.String()
	})
	return r
}

// Parse maps a query to its intent and entities.
func (r *Router) Parse(query string) ParsedQuery {
	queryLower := strings.ToLower(query)

	symbols := r.extractSymbols(queryLower)
	timeframe := extractTimeframe(queryLower)
	intent := determineIntent(queryLower, symbols)

	searchTerm := ""
	if intent == IntentSearch || (len(symbols) == 0 && intent == IntentPriceQuote) {
		searchTerm = extractSearchTerm(queryLower, symbols)
	}

	return ParsedQuery{
		Intent:     intent,
		Symbols:    symbols,
		Timeframe:  timeframe,
		QueryText:  query,
		SearchTerm: searchTerm,
		IsComplex:  isComplexQuery(queryLower),
	}
}

// extractSymbols unions nickname matches, explicit EXCHANGE-SYMBOL forms,
// and standalone uppercase tokens validated against the known set. The
// result is deduplicated and sorted.
func (r *Router) extractSymbols(queryLower string) []string {
	found := make(map[string]bool)

	for _, a := range r.aliases {
		if a.re.MatchString(queryLower) {
			found[a.symbol] = true
		}
	}

	for _, m := range exchangeSymbolRe.FindAllStringSubmatch(queryLower, -1) {
		found[strings.ToUpper(m[2])] = true
	}

	for _, tok := range upperTokenRe.FindAllString(strings.ToUpper(queryLower), -1) {
		if r.knownSymbols[tok] {
			found[tok] = true
		}
	}

	symbols := make([]string, 0, len(found))
	for sym := range found {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

// determineIntent applies the fixed precedence order. Specific domains
// pre-empt generic ones, so "chart price of X" lands on CHART while a bare
// ticker lands on PRICE_QUOTE.
func determineIntent(queryLower string, symbols []string) Intent {
	if len(symbols) > 0 && containsAny(queryLower, priceKeywords) {
		return IntentPriceQuote
	}

	switch {
	case containsAny(queryLower, optionsKeywords):
		return IntentOptions
	case containsAny(queryLower, ipoKeywords):
		return IntentIPO
	case containsAny(queryLower, intradayKeywords):
		return IntentIntraday
	case containsAny(queryLower, longTermKeywords):
		return IntentLongTerm
	case containsAny(queryLower, chartKeywords):
		return IntentChart
	case containsAny(queryLower, newsKeywords):
		return IntentNews
	case containsAny(queryLower, educationalKeywords):
		return IntentEducational
	}

	if len(symbols) == 0 && containsAny(queryLower, searchKeywords) {
		return IntentSearch
	}
	if len(symbols) > 0 || containsAny(queryLower, priceKeywords) {
		return IntentPriceQuote
	}
	return IntentGeneral
}

func extractTimeframe(queryLower string) string {
	for _, p := range timeframePatterns {
		if p.re.MatchString(queryLower) {
			return p.code
		}
	}
	return ""
}

// extractSearchTerm strips recognized symbols and stop words from the
// query, leaving the likely company name. Empty when nothing remains.
func extractSearchTerm(queryLower string, symbols []string) string {
	cleaned := queryLower
	for _, sym := range symbols {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(sym)) + `\b`)
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	for _, w := range stopWords {
		re := regexp.MustCompile(`\b` + w + `\b`)
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	return strings.TrimSuffix(cleaned, "?")
}

// isComplexQuery reports whether more than one of the price/news/chart
// domains is mentioned, signaling that several tools should answer.
func isComplexQuery(queryLower string) bool {
	count := 0
	if containsAny(queryLower, priceKeywords) {
		count++
	}
	if containsAny(queryLower, newsKeywords) {
		count++
	}
	if containsAny(queryLower, chartKeywords) {
		count++
	}
	return count > 1
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
