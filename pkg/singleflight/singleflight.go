package singleflight

import (
	"sync"

	"github.com/nimbusstore/nimbusstore/pkg/metrics"
)

type call[T any] struct {
	wg  sync.WaitGroup
	val T
	err error
}

// Group coalesces concurrent Do calls sharing a key so fn runs at most
// once at a time per key (spec §4.7). The zero value is not usable; use
// New.
type Group[T any] struct {
	mu    sync.Mutex
	calls map[string]*call[T]
}

// New returns a ready-to-use Group.
func New[T any]() *Group[T] {
	return &Group[T]{calls: make(map[string]*call[T])}
}

// Do runs fn for key if no call is already in flight; otherwise it blocks
// until the in-flight call completes and returns its result (or error) to
// every waiter. The map entry is removed once fn returns.
func (g *Group[T]) Do(key string, fn func() (T, error)) (T, error) {
	g.mu.Lock()
	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		c.wg.Wait()
		metrics.SingleFlightCallsTotal.WithLabelValues("joined").Inc()
		return c.val, c.err
	}

	c := &call[T]{}
	c.wg.Add(1)
	g.calls[key] = c
	g.mu.Unlock()

	c.val, c.err = fn()
	c.wg.Done()

	g.mu.Lock()
	delete(g.calls, key)
	g.mu.Unlock()

	metrics.SingleFlightCallsTotal.WithLabelValues("leader").Inc()
	return c.val, c.err
}

// TryPiggyback blocks until the in-flight call for key completes and
// returns its result, if one is in flight. If none is, it returns
// immediately with joined=false.
func (g *Group[T]) TryPiggyback(key string) (val T, err error, joined bool) {
	g.mu.Lock()
	c, ok := g.calls[key]
	g.mu.Unlock()
	if !ok {
		var zero T
		return zero, nil, false
	}
	c.wg.Wait()
	return c.val, c.err, true
}

// Forget removes any in-flight mapping for key, so later callers start a
// fresh call instead of joining this one — used when a caller decides the
// result should not be shared retroactively (e.g. after cancellation).
func (g *Group[T]) Forget(key string) {
	g.mu.Lock()
	delete(g.calls, key)
	g.mu.Unlock()
}
