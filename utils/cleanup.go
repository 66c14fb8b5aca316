package utils

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SweepFunc removes expired temp objects and reports how many went away.
type SweepFunc func(ctx context.Context) (int, error)

// StartTempCleaner runs sweep every interval until ctx is done. Failures are
// logged and the loop keeps going.
func StartTempCleaner(ctx context.Context, interval time.Duration, sweep SweepFunc) {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			runCtx, cancel := context.WithTimeout(ctx, interval)
			n, err := sweep(runCtx)
			cancel()
			if err != nil {
				Logger.Warn("temp cleaner sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				Logger.Info("temp cleaner removed expired uploads", zap.Int("count", n))
			}
		}
	}()
}
