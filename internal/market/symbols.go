package market

import "strings"

// DefaultExchange is assumed when a bare symbol carries no exchange prefix.
const DefaultExchange = "NSE"

// ParseSymbol splits "NSE-RELIANCE" or "RELIANCE" into (exchange, symbol),
// both uppercased.
func ParseSymbol(symbol string) (exchange, trading string) {
	s := strings.TrimSpace(symbol)
	if i := strings.Index(s, "-"); i >= 0 {
		return strings.ToUpper(s[:i]), strings.ToUpper(s[i+1:])
	}
	return DefaultExchange, strings.ToUpper(s)
}
