// Package coalesce deduplicates concurrent upstream calls for the same key.
// When many requests want the same quote at once, one caller performs the
// fetch and every waiter shares its result, so provider budgets are spent
// once per key rather than once per caller.
package coalesce

import (
	"context"
	"sync"

	"github.com/stockbro/stockbro/internal/observ"
)

type call struct {
	done chan struct{}
	val  any
	err  error
}

// Group coalesces in-flight calls by key. The zero value is not usable; use
// NewGroup.
type Group struct {
	mu    sync.Mutex
	name  string
	calls map[string]*call
}

// NewGroup creates a coalescing group. name is used for metrics labels only.
func NewGroup(name string) *Group {
	return &Group{name: name, calls: make(map[string]*call)}
}

// Do executes fn for key unless an identical call is already in flight, in
// which case it waits for that call and returns its result. Errors propagate
// to every waiter. The in-flight entry is removed once fn returns, so a
// later call for the same key fetches fresh.
//
// fn always runs with the context of the caller that started it; waiters
// that cancel their own context stop waiting but do not cancel the fetch.
func (g *Group) Do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	g.mu.Lock()
	if c, inflight := g.calls[key]; inflight {
		g.mu.Unlock()
		observ.IncCounter("coalesced_requests_total", map[string]string{"group": g.name})
		select {
		case <-c.done:
			return c.val, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c := &call{done: make(chan struct{})}
	g.calls[key] = c
	g.mu.Unlock()

	c.val, c.err = fn(ctx)

	g.mu.Lock()
	delete(g.calls, key)
	g.mu.Unlock()
	close(c.done)

	return c.val, c.err
}

// Inflight reports how many keys currently have a fetch running.
func (g *Group) Inflight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}
