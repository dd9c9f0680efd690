package market

import "fmt"

// Error kinds for market data fetches.
const (
	KindNetwork   = "network"
	KindRateLimit = "rate_limit"
	KindProvider  = "provider"
	KindBadSymbol = "bad_symbol"
	KindNotFound  = "not_found"
)

// FetchError represents different types of market data fetch errors
type FetchError struct {
	Kind    string // "network", "rate_limit", "provider", "bad_symbol", "not_found"
	Symbol  string
	Message string
	Cause   error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error for %s: %s (%v)", e.Kind, e.Symbol, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error for %s: %s", e.Kind, e.Symbol, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Transient reports whether the failure is worth retrying. Network faults
// and upstream 429s qualify; bad symbols and missing data never do.
func (e *FetchError) Transient() bool {
	return e.Kind == KindNetwork || e.Kind == KindRateLimit
}

// Common error constructors
func NewNetworkError(symbol, message string, cause error) *FetchError {
	return &FetchError{Kind: KindNetwork, Symbol: symbol, Message: message, Cause: cause}
}

func NewRateLimitError(symbol, message string) *FetchError {
	return &FetchError{Kind: KindRateLimit, Symbol: symbol, Message: message}
}

func NewProviderError(symbol, message string, cause error) *FetchError {
	return &FetchError{Kind: KindProvider, Symbol: symbol, Message: message, Cause: cause}
}

func NewBadSymbolError(symbol, message string) *FetchError {
	return &FetchError{Kind: KindBadSymbol, Symbol: symbol, Message: message}
}

func NewNotFoundError(symbol string) *FetchError {
	return &FetchError{Kind: KindNotFound, Symbol: symbol, Message: "no data available"}
}

// IsNotFound reports whether err is a definite "symbol has no data" outcome,
// as opposed to a transient failure worth surfacing as unavailability.
func IsNotFound(err error) bool {
	fe, ok := err.(*FetchError)
	return ok && (fe.Kind == KindNotFound || fe.Kind == KindBadSymbol)
}
