package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/five82/gatehouse/internal/state"
	"github.com/five82/gatehouse/internal/syncer"
)

const (
	defaultPollInterval = 30 * time.Second
	maxBackoff          = 5 * time.Minute
)

// StartPoller refreshes the dashboard summary in the background. Consecutive
// failures back the interval off exponentially up to maxBackoff; the first
// success restores the base cadence. It returns immediately.
func StartPoller(ctx context.Context, coord *syncer.Coordinator, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	go func() {
		failures := 0
		timer := time.NewTimer(0)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			err := coord.Load(ctx, state.KindMetrics, coord.LastQuery(state.KindMetrics))
			switch {
			case err == nil, errors.Is(err, syncer.ErrSuperseded):
				failures = 0
			case ctx.Err() != nil:
				return
			default:
				failures++
				logger.Warn("dashboard poll failed", "failures", failures, "error", err)
			}
			timer.Reset(calculateBackoff(failures, interval))
		}
	}()
}

// calculateBackoff doubles base for each consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
