package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/nadmax/teamplan/internal/capacity"
	"github.com/nadmax/teamplan/internal/metrics"
)

const metricsInterval = 10 * time.Second

type capacityReporter interface {
	TeamCapacity(ctx context.Context) ([]capacity.Summary, error)
}

type queueDepth interface {
	Pending(ctx context.Context) (int64, error)
}

func startMetricsCollector(ctx context.Context, teams capacityReporter, q queueDepth, logger *slog.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateMetrics(ctx, teams, q, logger)
		}
	}
}

// updateMetrics refreshes the gauges that are not driven by requests. Team
// gauges are set as a side effect of TeamCapacity.
func updateMetrics(ctx context.Context, teams capacityReporter, q queueDepth, logger *slog.Logger) {
	if _, err := teams.TeamCapacity(ctx); err != nil {
		logger.Warn("failed to refresh team capacity metrics", "err", err)
	}

	depth, err := q.Pending(ctx)
	if err != nil {
		logger.Warn("failed to read job queue depth", "err", err)
		return
	}

	metrics.UpdateQueueDepth(depth)
}
