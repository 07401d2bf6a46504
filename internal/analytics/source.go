package analytics

import (
	"context"
	"time"
)

// Source computes aggregates over the full post set.
type Source interface {
	Statistics(ctx context.Context, now time.Time) (*Statistics, error)
	// Trends returns the most recent days that have posts, newest first.
	Trends(ctx context.Context, days int) ([]TrendPoint, error)
	PlatformPerformance(ctx context.Context) ([]PlatformPerformance, error)
}

const dateLayout = "2006-01-02"
