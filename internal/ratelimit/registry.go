package ratelimit

import "sync"

const (
	defaultDailyLimit  = 200
	defaultHourlyLimit = 50
)

// serviceDefaults are free-tier budgets for known providers. Anything else
// gets the conservative default pair.
var serviceDefaults = map[string][2]int{
	"groww":    {500, 100},
	"newsdata": {180, 30},
}

// Registry hands out one Limiter per provider name, creating it on first use
// with that provider's default budgets.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
}

// NewRegistry creates an empty limiter registry.
func NewRegistry() *Registry {
	return &Registry{limiters: make(map[string]*Limiter)}
}

// Get returns the limiter for name, constructing it lazily. Repeated calls
// with the same name return the same limiter so budgets are shared across
// all callers.
func (r *Registry) Get(name string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[name]; ok {
		return l
	}
	daily, hourly := defaultDailyLimit, defaultHourlyLimit
	if d, ok := serviceDefaults[name]; ok {
		daily, hourly = d[0], d[1]
	}
	l := NewLimiter(name, daily, hourly)
	r.limiters[name] = l
	return l
}

// Configure registers a limiter with explicit budgets, replacing any default
// one created earlier for the same name.
func (r *Registry) Configure(name string, dailyLimit, hourlyLimit int) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l := NewLimiter(name, dailyLimit, hourlyLimit)
	r.limiters[name] = l
	return l
}

// StatusAll snapshots every registered limiter, keyed by provider name.
func (r *Registry) StatusAll() map[string]Status {
	r.mu.Lock()
	names := make([]string, 0, len(r.limiters))
	limiters := make([]*Limiter, 0, len(r.limiters))
	for n, l := range r.limiters {
		names = append(names, n)
		limiters = append(limiters, l)
	}
	r.mu.Unlock()

	out := make(map[string]Status, len(names))
	for i, l := range limiters {
		out[names[i]] = l.Status()
	}
	return out
}
