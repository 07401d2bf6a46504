package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jeremyjsx/postdesk/internal/cache"
)

// Job names understood by the Processor.
const (
	JobStatistics          = "updateAnalytics"
	JobTrends              = "updateTrends"
	JobPlatformPerformance = "updatePlatformPerformance"
)

// Cache keys holding the latest aggregates.
const (
	KeyStatistics          = "post-statistics"
	KeyTrends              = "post-trends"
	KeyPlatformPerformance = "platform-performance"
)

const (
	DefaultTTL = 24 * time.Hour
	trendDays  = 30
)

var ErrUnknownJob = errors.New("unknown analytics job")

// Processor recomputes one aggregate per job and stores it in the cache.
type Processor struct {
	source Source
	cache  cache.Cache
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

func NewProcessor(source Source, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Processor {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{source: source, cache: c, ttl: ttl, now: time.Now, logger: logger}
}

var _ Handler = (*Processor)(nil)

// Handle runs job and returns the freshly cached aggregate as JSON.
func (p *Processor) Handle(ctx context.Context, job string) (json.RawMessage, error) {
	start := p.now()
	var (
		key    string
		result any
		err    error
	)
	switch job {
	case JobStatistics:
		key = KeyStatistics
		result, err = p.source.Statistics(ctx, start)
	case JobTrends:
		key = KeyTrends
		result, err = p.source.Trends(ctx, trendDays)
	case JobPlatformPerformance:
		key = KeyPlatformPerformance
		result, err = p.source.PlatformPerformance(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownJob, job)
	}
	if err != nil {
		p.logger.Error("analytics job failed", "job", job, "error", err)
		return nil, fmt.Errorf("%s: %w", job, err)
	}

	if err := p.cache.Set(ctx, key, result, p.ttl); err != nil {
		p.logger.Error("analytics cache write failed", "job", job, "key", key, "error", err)
		return nil, fmt.Errorf("%s: cache %s: %w", job, key, err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("%s: encode result: %w", job, err)
	}
	p.logger.Info("analytics job completed", "job", job, "duration_ms", time.Since(start).Milliseconds())
	return data, nil
}
