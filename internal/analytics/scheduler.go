package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Schedule enqueues Job every Every.
type Schedule struct {
	Job   string
	Every time.Duration
}

// DefaultSchedules refreshes statistics and platform performance hourly and
// trends daily.
var DefaultSchedules = []Schedule{
	{Job: JobStatistics, Every: time.Hour},
	{Job: JobPlatformPerformance, Every: time.Hour},
	{Job: JobTrends, Every: 24 * time.Hour},
}

type Scheduler struct {
	queue     Queue
	schedules []Schedule
	logger    *slog.Logger
}

func NewScheduler(queue Queue, schedules []Schedule, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{queue: queue, schedules: schedules, logger: logger}
}

// Start runs one ticker loop per schedule and blocks until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for _, sch := range s.schedules {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, sch)
		}()
	}
	s.logger.Info("analytics scheduler started", "schedules", len(s.schedules))
	wg.Wait()
	s.logger.Info("analytics scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, sch Schedule) {
	ticker := time.NewTicker(sch.Every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, sch.Job)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, job string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled job panicked", "job", job, "panic", r)
		}
	}()
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.logger.Error("failed to enqueue scheduled job", "job", job, "error", err)
		return
	}
	s.logger.Debug("scheduled job enqueued", "job", job)
}
