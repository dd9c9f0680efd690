package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestLimiter(daily, hourly int) (*Limiter, *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)}
	l := NewLimiter("test", daily, hourly)
	l.now = clk.now
	// Re-anchor windows to the fake clock.
	l.dailyReset = nextUTCMidnight(clk.t)
	l.hourlyReset = clk.t.Add(time.Hour)
	return l, clk
}

func TestAcquireWithinLimits(t *testing.T) {
	l, _ := newTestLimiter(10, 5)
	for i := 0; i < 5; i++ {
		assert.True(t, l.Acquire(), "request %d should pass", i)
	}
}

func TestHourlyCeilingBlocksFirst(t *testing.T) {
	l, _ := newTestLimiter(100, 3)
	for i := 0; i < 3; i++ {
		require.True(t, l.Acquire())
	}
	assert.False(t, l.Acquire(), "hourly ceiling reached")

	st := l.Status()
	assert.Equal(t, 3, st.DailyUsed, "denied request consumes nothing")
	assert.Equal(t, 0, st.HourlyRemaining)
	assert.Equal(t, 97, st.DailyRemaining)
}

func TestDailyCeiling(t *testing.T) {
	l, clk := newTestLimiter(5, 3)
	for i := 0; i < 3; i++ {
		require.True(t, l.Acquire())
	}
	require.False(t, l.Acquire())

	// New hourly window, but the daily budget only has 2 left.
	clk.advance(time.Hour)
	require.True(t, l.Acquire())
	require.True(t, l.Acquire())
	assert.False(t, l.Acquire(), "daily ceiling reached")
}

func TestHourlyWindowReset(t *testing.T) {
	l, clk := newTestLimiter(100, 2)
	require.True(t, l.Acquire())
	require.True(t, l.Acquire())
	require.False(t, l.Acquire())

	clk.advance(59 * time.Minute)
	assert.False(t, l.Acquire(), "window not yet elapsed")

	clk.advance(time.Minute)
	assert.True(t, l.Acquire(), "hourly window reset after an hour")

	st := l.Status()
	assert.Equal(t, 1, st.HourlyUsed)
	assert.Equal(t, 3, st.DailyUsed, "daily count unaffected by hourly reset")
}

func TestDailyWindowResetsAtUTCMidnight(t *testing.T) {
	l, clk := newTestLimiter(5, 100)
	for i := 0; i < 5; i++ {
		require.True(t, l.Acquire())
	}
	require.False(t, l.Acquire())

	// 10:00 UTC start, so 14h to midnight.
	clk.advance(13 * time.Hour)
	assert.False(t, l.Acquire(), "still the same UTC day")

	clk.advance(2 * time.Hour)
	assert.True(t, l.Acquire(), "daily window reset at UTC midnight")
	st := l.Status()
	assert.Equal(t, 1, st.DailyUsed)
	assert.Equal(t, time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC), st.DailyReset)
}

func TestStatusAppliesLazyReset(t *testing.T) {
	l, clk := newTestLimiter(10, 2)
	require.True(t, l.Acquire())
	require.True(t, l.Acquire())

	clk.advance(2 * time.Hour)
	st := l.Status()
	assert.Equal(t, 0, st.HourlyUsed, "status reflects the elapsed window")
	assert.Equal(t, 2, st.HourlyRemaining)
}

func TestDefaultLimitsOnNonPositiveInput(t *testing.T) {
	l := NewLimiter("x", 0, -1)
	st := l.Status()
	assert.Equal(t, defaultDailyLimit, st.DailyLimit)
	assert.Equal(t, defaultHourlyLimit, st.HourlyLimit)
}

func TestRegistryReturnsSameLimiter(t *testing.T) {
	r := NewRegistry()
	a := r.Get("groww")
	b := r.Get("groww")
	assert.Same(t, a, b, "budget must be shared across callers")
}

func TestRegistryServiceDefaults(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name   string
		daily  int
		hourly int
	}{
		{"groww", 500, 100},
		{"newsdata", 180, 30},
		{"unknown-provider", 200, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := r.Get(tt.name).Status()
			assert.Equal(t, tt.daily, st.DailyLimit)
			assert.Equal(t, tt.hourly, st.HourlyLimit)
		})
	}
}

func TestRegistryConfigureOverrides(t *testing.T) {
	r := NewRegistry()
	r.Get("groww")
	l := r.Configure("groww", 50, 10)
	assert.Same(t, l, r.Get("groww"))
	assert.Equal(t, 50, l.Status().DailyLimit)
}

func TestStatusAll(t *testing.T) {
	r := NewRegistry()
	r.Get("groww")
	r.Get("newsdata")

	all := r.StatusAll()
	require.Len(t, all, 2)
	assert.Equal(t, 500, all["groww"].DailyLimit)
	assert.Equal(t, 180, all["newsdata"].DailyLimit)
}
