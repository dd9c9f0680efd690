// Package ratelimit enforces per-provider request budgets with independent
// daily and hourly windows. Budgets exist to keep the service inside free-tier
// API quotas, so exhaustion is an expected condition callers must handle.
package ratelimit

import (
	"sync"
	"time"

	"github.com/stockbro/stockbro/internal/observ"
)

// Limiter tracks request counts against a daily and an hourly ceiling.
// Windows reset lazily on the next call after they elapse. The daily window
// resets at the next UTC midnight; the hourly window resets one hour after it
// was opened.
type Limiter struct {
	mu          sync.Mutex
	name        string
	dailyLimit  int
	hourlyLimit int

	dailyCount  int
	hourlyCount int
	dailyReset  time.Time
	hourlyReset time.Time

	now func() time.Time
}

// Status is a point-in-time snapshot of a limiter's budget.
type Status struct {
	Name            string    `json:"name"`
	DailyLimit      int       `json:"daily_limit"`
	DailyUsed       int       `json:"daily_used"`
	DailyRemaining  int       `json:"daily_remaining"`
	HourlyLimit     int       `json:"hourly_limit"`
	HourlyUsed      int       `json:"hourly_used"`
	HourlyRemaining int       `json:"hourly_remaining"`
	DailyReset      time.Time `json:"daily_reset"`
	HourlyReset     time.Time `json:"hourly_reset"`
}

// NewLimiter creates a limiter for the named provider. Non-positive limits
// fall back to the service defaults.
func NewLimiter(name string, dailyLimit, hourlyLimit int) *Limiter {
	if dailyLimit <= 0 {
		dailyLimit = defaultDailyLimit
	}
	if hourlyLimit <= 0 {
		hourlyLimit = defaultHourlyLimit
	}
	l := &Limiter{
		name:        name,
		dailyLimit:  dailyLimit,
		hourlyLimit: hourlyLimit,
		now:         time.Now,
	}
	now := l.now()
	l.dailyReset = nextUTCMidnight(now)
	l.hourlyReset = now.Add(time.Hour)
	return l
}

// Acquire consumes one request from both windows if both have room.
// It returns false without consuming anything when either window is
// exhausted.
func (l *Limiter) Acquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.resetElapsedLocked(now)

	if l.dailyCount >= l.dailyLimit || l.hourlyCount >= l.hourlyLimit {
		observ.IncCounter("rate_limit_denied_total", map[string]string{"provider": l.name})
		return false
	}

	l.dailyCount++
	l.hourlyCount++
	observ.SetGauge("rate_limit_daily_remaining", float64(l.dailyLimit-l.dailyCount),
		map[string]string{"provider": l.name})
	observ.SetGauge("rate_limit_hourly_remaining", float64(l.hourlyLimit-l.hourlyCount),
		map[string]string{"provider": l.name})
	return true
}

// Status reports current usage after applying any pending window resets.
func (l *Limiter) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.resetElapsedLocked(l.now())
	return Status{
		Name:            l.name,
		DailyLimit:      l.dailyLimit,
		DailyUsed:       l.dailyCount,
		DailyRemaining:  l.dailyLimit - l.dailyCount,
		HourlyLimit:     l.hourlyLimit,
		HourlyUsed:      l.hourlyCount,
		HourlyRemaining: l.hourlyLimit - l.hourlyCount,
		DailyReset:      l.dailyReset,
		HourlyReset:     l.hourlyReset,
	}
}

func (l *Limiter) resetElapsedLocked(now time.Time) {
	if !now.Before(l.dailyReset) {
		l.dailyCount = 0
		l.dailyReset = nextUTCMidnight(now)
	}
	if !now.Before(l.hourlyReset) {
		l.hourlyCount = 0
		l.hourlyReset = now.Add(time.Hour)
	}
}

func nextUTCMidnight(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}
