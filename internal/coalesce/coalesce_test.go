package coalesce

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentCallersShareOneFetch(t *testing.T) {
	g := NewGroup("test")
	var fetches int64
	release := make(chan struct{})

	const callers = 20
	results := make([]any, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n], errs[n] = g.Do(context.Background(), "price:NSE:RELIANCE",
				func(context.Context) (any, error) {
					atomic.AddInt64(&fetches, 1)
					<-release
					return "quote", nil
				})
		}(i)
	}

	// Let all goroutines reach the group before releasing the fetch.
	require.Eventually(t, func() bool { return g.Inflight() == 1 },
		time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&fetches), "exactly one upstream fetch")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "quote", results[i])
	}
}

func TestDistinctKeysDoNotCoalesce(t *testing.T) {
	g := NewGroup("test")
	var fetches int64
	var wg sync.WaitGroup
	for _, key := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()
			_, _ = g.Do(context.Background(), k, func(context.Context) (any, error) {
				atomic.AddInt64(&fetches, 1)
				return k, nil
			})
		}(key)
	}
	wg.Wait()
	assert.Equal(t, int64(3), atomic.LoadInt64(&fetches))
}

func TestErrorPropagatesToAllWaiters(t *testing.T) {
	g := NewGroup("test")
	release := make(chan struct{})
	fetchErr := errors.New("provider down")

	const callers = 5
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = g.Do(context.Background(), "k", func(context.Context) (any, error) {
				<-release
				return nil, fetchErr
			})
		}(i)
	}
	require.Eventually(t, func() bool { return g.Inflight() == 1 },
		time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		assert.ErrorIs(t, errs[i], fetchErr)
	}
}

func TestEntryRemovedAfterCompletion(t *testing.T) {
	g := NewGroup("test")
	calls := 0
	for i := 0; i < 3; i++ {
		v, err := g.Do(context.Background(), "k", func(context.Context) (any, error) {
			calls++
			return calls, nil
		})
		require.NoError(t, err)
		assert.Equal(t, calls, v)
	}
	assert.Equal(t, 3, calls, "sequential calls each fetch fresh")
	assert.Equal(t, 0, g.Inflight())
}

func TestWaiterCancellation(t *testing.T) {
	g := NewGroup("test")
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_, _ = g.Do(context.Background(), "k", func(context.Context) (any, error) {
			close(started)
			<-release
			return "late", nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Do(ctx, "k", func(context.Context) (any, error) {
		t.Fatal("waiter must not fetch")
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	close(release)
}
