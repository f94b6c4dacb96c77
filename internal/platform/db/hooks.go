package db

import (
	"context"
	"sync"
)

type commitHooks struct {
	mu  sync.Mutex
	fns []func()
}

type commitHooksKey struct{}

// WithCommitHooks opens a collection point for AfterCommit callbacks. The returned run
// function must be called once the unit of work has committed. When ctx already carries a
// collection point the outer unit of work owns it and run does nothing.
func WithCommitHooks(ctx context.Context) (context.Context, func()) {
	if _, ok := ctx.Value(commitHooksKey{}).(*commitHooks); ok {
		return ctx, func() {}
	}
	hooks := &commitHooks{}
	return context.WithValue(ctx, commitHooksKey{}, hooks), hooks.run
}

// AfterCommit defers fn until the outermost unit of work in ctx commits. Without one, fn
// runs immediately. Callbacks of a rolled back unit of work are dropped.
func AfterCommit(ctx context.Context, fn func()) {
	hooks, ok := ctx.Value(commitHooksKey{}).(*commitHooks)
	if !ok {
		fn()
		return
	}
	hooks.mu.Lock()
	hooks.fns = append(hooks.fns, fn)
	hooks.mu.Unlock()
}

func (h *commitHooks) run() {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
