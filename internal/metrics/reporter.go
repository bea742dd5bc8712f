package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/queryplex/queryplex/pkg/cache"
)

// Snapshotter supplies a point-in-time view for periodic reporting.
type Snapshotter interface {
	Stats() cache.Stats
}

// Reporter periodically logs a metrics snapshot. It replaces unmanaged
// background reporting threads with a ticker that shuts down cleanly.
type Reporter struct {
	interval time.Duration
	logger   *slog.Logger
	source   Snapshotter

	stop chan struct{}
	done chan struct{}
}

// NewReporter creates a reporter; it does not start until Start is called.
func NewReporter(interval time.Duration, logger *slog.Logger, source Snapshotter) *Reporter {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		interval: interval,
		logger:   logger,
		source:   source,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the reporting loop.
func (r *Reporter) Start(ctx context.Context) {
	go func() {
		defer close(r.done)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.report()
			case <-r.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop terminates the loop and waits for it to exit.
func (r *Reporter) Stop() {
	close(r.stop)
	<-r.done
}

func (r *Reporter) report() {
	if r.source == nil {
		return
	}
	s := r.source.Stats()
	r.logger.Info("cache stats",
		"hits", s.Hits,
		"misses", s.Misses,
		"sets", s.Sets,
		"hit_rate", s.HitRate,
	)
}
