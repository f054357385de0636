package safego

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Go launches a goroutine with panic recovery.
// If the goroutine panics, the panic value is logged and the goroutine exits
// cleanly instead of crashing the process.
//
// Usage:
//
//	safego.Go(logger, "cleanup-loop", func() {
//	    // work that might panic
//	})
func Go(logger *zap.Logger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Goroutine panicked",
					zap.String("goroutine", name),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
			}
		}()
		fn()
	}()
}

// Group tracks panic-safe goroutines so shutdown can wait for them.
type Group struct {
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewGroup 创建任务组
func NewGroup(logger *zap.Logger) *Group {
	return &Group{logger: logger}
}

// Go runs fn in a tracked, panic-safe goroutine.
func (g *Group) Go(name string, fn func()) {
	g.wg.Add(1)
	Go(g.logger, name, func() {
		defer g.wg.Done()
		fn()
	})
}

// Wait blocks until every tracked goroutine returned or ctx is done.
func (g *Group) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
