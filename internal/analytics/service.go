package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jeremyjsx/postdesk/internal/cache"
)

const (
	defaultTrendLimit = 10
	maxTrendLimit     = 100
)

// Service serves aggregates from the cache and falls back to running the
// recompute job when the cache has nothing for the key.
type Service struct {
	cache  cache.Cache
	queue  Queue
	logger *slog.Logger
}

func NewService(c cache.Cache, queue Queue, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cache: c, queue: queue, logger: logger}
}

// cached loads key into dst, running job on a miss.
func (s *Service) cached(ctx context.Context, key, job string, dst any) error {
	hit, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		return fmt.Errorf("read cache %s: %w", key, err)
	}
	if hit {
		return nil
	}

	s.logger.Info("analytics cache miss", "key", key, "job", job)
	data, err := s.queue.Run(ctx, job)
	if err != nil {
		return fmt.Errorf("run %s: %w", job, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s result: %w", job, err)
	}
	return nil
}

func (s *Service) GetStatistics(ctx context.Context) (*Statistics, error) {
	var stats Statistics
	if err := s.cached(ctx, KeyStatistics, JobStatistics, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetTrends pages over the cached trend series; page starts at 1.
func (s *Service) GetTrends(ctx context.Context, page, limit int) (*Trends, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultTrendLimit
	}
	if limit > maxTrendLimit {
		limit = maxTrendLimit
	}

	var points []TrendPoint
	if err := s.cached(ctx, KeyTrends, JobTrends, &points); err != nil {
		return nil, err
	}

	start := min((page-1)*limit, len(points))
	end := min(start+limit, len(points))
	window := points[start:end]
	if window == nil {
		window = []TrendPoint{}
	}
	return &Trends{Trends: window, Page: page, Limit: limit, Total: len(points)}, nil
}

func (s *Service) GetPlatformPerformance(ctx context.Context) ([]PlatformPerformance, error) {
	var perf []PlatformPerformance
	if err := s.cached(ctx, KeyPlatformPerformance, JobPlatformPerformance, &perf); err != nil {
		return nil, err
	}
	if perf == nil {
		perf = []PlatformPerformance{}
	}
	return perf, nil
}
