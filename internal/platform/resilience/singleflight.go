package resilience

import (
	"errors"
	"sync"
)

// ErrCallPanicked is what waiters receive when the shared call panicked.
var ErrCallPanicked = errors.New("singleflight: call panicked")

// SingleFlight deduplicates concurrent calls for the same key. The zero
// value is ready to use.
type SingleFlight[T any] struct {
	mu    sync.Mutex
	calls map[string]*call[T]
}

type call[T any] struct {
	wg  sync.WaitGroup
	val T
	err error
}

// Do runs fn once per key among concurrent callers. shared reports whether
// the result came from another caller's execution. A panic in fn propagates
// to the caller that ran it and waiters get ErrCallPanicked.
func (g *SingleFlight[T]) Do(key string, fn func() (T, error)) (val T, err error, shared bool) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[string]*call[T])
	}

	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		c.wg.Wait()
		return c.val, c.err, true
	}

	c := &call[T]{}
	c.wg.Add(1)
	g.calls[key] = c
	g.mu.Unlock()

	returned := false
	defer func() {
		if !returned {
			c.err = ErrCallPanicked
		}
		g.mu.Lock()
		delete(g.calls, key)
		g.mu.Unlock()
		c.wg.Done()
	}()

	c.val, c.err = fn()
	returned = true
	return c.val, c.err, false
}
