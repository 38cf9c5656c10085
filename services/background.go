package services

import (
	"context"
	"sync"
	"time"

	"github.com/cppla/postfeed/utils"
)

const backgroundTaskTimeout = 30 * time.Second

// Background runs fire-and-forget work detached from the request that
// started it. Panics are recovered and logged.
type Background struct {
	wg sync.WaitGroup
}

// Go runs fn on its own goroutine with a context that outlives the caller's
// cancellation but is bounded by backgroundTaskTimeout.
func (b *Background) Go(parent context.Context, name string, fn func(ctx context.Context)) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), backgroundTaskTimeout)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				utils.Sugar.Errorw("background task panicked", "task", name, "panic", r)
			}
		}()
		fn(ctx)
	}()
}

// Wait blocks until every started task returns or ctx is done.
func (b *Background) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
