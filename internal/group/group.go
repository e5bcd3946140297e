// Package group ties a set of goroutines to a shared context.
package group

import (
	"context"
	"sync"
)

// A G runs goroutines under a common context. When any member returns,
// the context is canceled and the rest are expected to wind down.
type G struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu  sync.Mutex
	err error
}

// New returns an empty group derived from ctx.
func New(ctx context.Context) *G {
	ctx, cancel := context.WithCancel(ctx)
	return &G{ctx: ctx, cancel: cancel}
}

// AddContext starts fn in its own goroutine. fn must return when the
// context it is handed is canceled.
func (g *G) AddContext(fn func(context.Context) error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer g.cancel()
		if err := fn(g.ctx); err != nil {
			g.mu.Lock()
			if g.err == nil {
				g.err = err
			}
			g.mu.Unlock()
		}
	}()
}

// Wait blocks until every member has returned and reports the first
// error any of them produced.
func (g *G) Wait() error {
	g.wg.Wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}
