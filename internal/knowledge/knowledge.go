// Package knowledge is the static educational layer: market term
// definitions, curated sector lists, and strategy explainers. It backs the
// assistant's answers for queries that need no live data.
package knowledge

import (
	"fmt"
	"strings"
)

var terms = map[string]string{
	"IPO":        "Initial Public Offering (IPO) is the process by which a private company goes public by selling its stock to the general public.",
	"F&O":        "Futures and Options are derivative instruments where you trade the future value of an underlying asset like a stock or index.",
	"NIFTY 50":   "The NIFTY 50 is a benchmark Indian stock market index representing the weighted average of 50 of the largest companies listed on the NSE.",
	"SENSEX":     "The S&P BSE SENSEX is a stock market index of 30 well-established and financially sound companies listed on the Bombay Stock Exchange.",
	"LTP":        "Last Traded Price (LTP) is the price at which the last transaction for a particular stock took place.",
	"DIVIDEND":   "A dividend is a distribution of profits by a corporation to its shareholders.",
	"MARKET CAP": "Market Capitalization is the total value of a company's shares of stock (price times total shares).",
	"STOP LOSS":  "A stop loss is a standing order to sell a holding once its price falls to a chosen level, capping the downside of a trade.",
}

var sectors = map[string][]string{
	"Banking":    {"HDFCBANK", "ICICIBANK", "SBIN", "KOTAKBANK", "AXISBANK"},
	"IT":         {"TCS", "INFY", "HCLTECH", "WIPRO", "TECHM"},
	"Defense":    {"HAL", "BEL", "MAZDOCK", "BDL", "COCHINSHIP"},
	"Automobile": {"TATAMOTORS", "MARUTI", "M&M", "HEROMOTOCO", "EICHERMOT"},
	"Energy":     {"RELIANCE", "ONGC", "NTPC", "POWERGRID", "BPCL"},
	"Pharma":     {"SUNPHARMA", "CIPLA", "DRREDDY", "DIVISLAB", "APOLLOHOSP"},
	"Consumer":   {"ITC", "HINDUNILVR", "NESTLEIND", "BRITANNIA", "TATACONSUM"},
}

var strategies = map[string]string{
	"Intraday":        "Buying and selling stocks within the same trading day to capitalize on short-term price movements.",
	"Long Term":       "Investing in stocks for a period of several years, focusing on fundamental growth and compounding.",
	"Value Investing": "Buying stocks that appear to be trading for less than their intrinsic or book value.",
}

// Term returns the definition for a market term, matched case-insensitively.
func Term(name string) (string, bool) {
	def, ok := terms[strings.ToUpper(strings.TrimSpace(name))]
	return def, ok
}

// SectorStocks returns the curated symbol list for a sector. Matching is
// case-insensitive on the sector name.
func SectorStocks(sector string) ([]string, bool) {
	for name, syms := range sectors {
		if strings.EqualFold(name, strings.TrimSpace(sector)) {
			return syms, true
		}
	}
	return nil, false
}

// Strategy returns the explainer for a named strategy.
func Strategy(name string) (string, bool) {
	for k, v := range strategies {
		if strings.EqualFold(k, strings.TrimSpace(name)) {
			return v, true
		}
	}
	return "", false
}

// FindTerm scans free text for any known term and returns the first
// definition found, preferring longer term names so "NIFTY 50" wins over a
// shorter overlap.
func FindTerm(text string) (string, string, bool) {
	upper := strings.ToUpper(text)
	bestTerm := ""
	for term := range terms {
		if strings.Contains(upper, term) && len(term) > len(bestTerm) {
			bestTerm = term
		}
	}
	if bestTerm == "" {
		return "", "", false
	}
	return bestTerm, terms[bestTerm], true
}

// OptionsBasics is the canned F&O explainer. Educational content only; no
// live option chains.
func OptionsBasics() string {
	return `Options & Futures (F&O) Basics for Indian Markets

A call option is the right to BUY a stock at a fixed price (the strike) before expiry; a put option is the right to SELL. In India, F&O trades on NIFTY, BANKNIFTY, and 100+ NSE stocks.

Key concepts: the strike price is the agreed price, the premium is what you pay for the option, expiry is the last Thursday of the month, and the lot size is the minimum quantity.

Risk warning: options can expire worthless for a total loss of premium, F&O needs separate account approval, and leverage amplifies both gains and losses. Practice with paper trading before risking real money.

This is not financial advice. DYOR.`
}

// IntradayPlanTemplate returns a risk-managed intraday planning checklist
// for a symbol.
func IntradayPlanTemplate(symbol string) string {
	if symbol == "" {
		symbol = "your stock"
	}
	return fmt.Sprintf(`Intraday Trading Plan Template for %s

Pre-market: check the previous close, overnight global markets, key support/resistance levels, and any scheduled news or earnings.

Entry: trade off 5-min or 15-min charts with at most 2-3 indicators (EMA 20/50, RSI, VWAP). Wait for confirmation (breakout with volume) and risk only 1-2%% of capital per trade.

Risk management: set the stop loss BEFORE entry, target a 1.5:1 or better reward-to-risk ratio, cap yourself at 2-3 trades per day, and exit everything by 3:15 PM.

Caution: most retail intraday traders lose money; brokerage and taxes eat small profits. Paper trade for three months and keep a trading journal before going live.

This is not financial advice. DYOR.`, symbol)
}

// IPOChecklistTemplate returns a due-diligence checklist for evaluating an
// IPO.
func IPOChecklistTemplate(company string) string {
	if company == "" {
		company = "Upcoming IPO"
	}
	return fmt.Sprintf(`IPO Analysis Checklist: %s

Fundamentals: industry position and moat, 3-5 year revenue growth, margins, debt-to-equity, and use of proceeds (debt repayment is a red flag).

Valuation: P/E against industry peers, price-to-sales, post-IPO market cap, and whether growth justifies the ask.

Promoters: track record, how much they are selling, and related-party transactions.

Grey market premium is an unofficial signal, not a basis for a decision; institutional (QIB) subscription matters more than retail oversubscription.

Listing gains are never guaranteed. Read the Draft Red Herring Prospectus on sebi.gov.in before applying.

This is not financial advice. DYOR.`, company)
}
