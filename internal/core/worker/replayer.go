package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vietddude/genie/internal/core/domain"
)

// ReplayFunc replays up to limit dead-lettered leads.
type ReplayFunc func(ctx context.Context, limit int) (*domain.BatchSummary, error)

// Replayer periodically drains the dead-letter queue.
type Replayer struct {
	interval time.Duration
	limit    int
	replay   ReplayFunc
	log      *slog.Logger
}

// NewReplayer creates a new Replayer worker.
func NewReplayer(interval time.Duration, limit int, replay ReplayFunc) *Replayer {
	if limit <= 0 {
		limit = 100
	}
	return &Replayer{
		interval: interval,
		limit:    limit,
		replay:   replay,
		log:      slog.Default().With("component", "replayer"),
	}
}

// Start runs the replay loop until ctx is done.
func (r *Replayer) Start(ctx context.Context) {
	if r.interval <= 0 {
		return // Replay disabled
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Replayer) runOnce(ctx context.Context) {
	summary, err := r.replay(ctx, r.limit)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		r.log.Error("Replay failed", "error", err)
		return
	}
	if summary != nil && summary.Total > 0 {
		r.log.Info("Replayed dead letters",
			"batch_id", summary.BatchID,
			"total", summary.Total,
			"succeeded", summary.Succeeded)
	}
}
