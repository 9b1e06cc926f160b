package app

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const restartDelay = time.Second

// supervise runs fn as a background task and restarts it after a short pause
// whenever it panics or returns early, until ctx is cancelled. The drain and
// scheduler loops must survive any single failure.
func supervise(ctx context.Context, wg *sync.WaitGroup, logger *slog.Logger, name string, fn func(context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			runOnce(ctx, logger, name, fn)
			if ctx.Err() != nil {
				return
			}
			logger.Warn("task stopped, restarting", "task", name, "delay", restartDelay)

			timer := time.NewTimer(restartDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

func runOnce(ctx context.Context, logger *slog.Logger, name string, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked", "task", name, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn(ctx)
}
