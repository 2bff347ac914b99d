// Package scheduler runs named background tasks on a fixed interval.
// Used for periodic metrics flushes and cache upkeep.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

type Task func(ctx context.Context) error

func Every(ctx context.Context, interval time.Duration, name string, task Task) {
	t := time.NewTicker(interval)
	defer t.Stop()

	// run immediately
	go func() {
		if err := task(ctx); err != nil {
			slog.Error("task failed", slog.String("task", name), slog.Any("err", err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := task(ctx); err != nil {
				slog.Error("task failed", slog.String("task", name), slog.Any("err", err))
			}
		}
	}
}
