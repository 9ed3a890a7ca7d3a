// Package keepalive pings a liveness URL on a fixed interval so hosts that
// idle out quiet processes keep the scheduler running.
package keepalive

import (
	"context"
	"log/slog"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context, url string) error
}

// Run pings url every interval until ctx is done. Failures are logged and
// never stop the loop.
func Run(ctx context.Context, p Pinger, url string, interval time.Duration, logger *slog.Logger) {
	logger = logger.With("component", "keepalive", "url", url)
	logger.Info("keep-alive started", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Ping(ctx, url); err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("keep-alive ping failed", "error", err)
				continue
			}
			logger.Debug("keep-alive ping ok")
		}
	}
}
