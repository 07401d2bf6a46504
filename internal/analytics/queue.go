package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrQueueClosed = errors.New("analytics queue closed")
	ErrJobFailed   = errors.New("analytics job failed")
)

// Handler executes a named job.
type Handler interface {
	Handle(ctx context.Context, job string) (json.RawMessage, error)
}

type HandlerFunc func(ctx context.Context, job string) (json.RawMessage, error)

func (f HandlerFunc) Handle(ctx context.Context, job string) (json.RawMessage, error) {
	return f(ctx, job)
}

// WithTimeout bounds every job run by h.
func WithTimeout(h Handler, d time.Duration) Handler {
	if d <= 0 {
		return h
	}
	return HandlerFunc(func(ctx context.Context, job string) (json.RawMessage, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return h.Handle(ctx, job)
	})
}

// Queue hands jobs to workers. Enqueue does not wait for the job; Run blocks
// until the job has finished and returns its result.
type Queue interface {
	Enqueue(ctx context.Context, job string) error
	Run(ctx context.Context, job string) (json.RawMessage, error)
}

type jobResult struct {
	data json.RawMessage
	err  error
}

type localJob struct {
	name  string
	reply chan jobResult
}

// LocalQueue runs jobs on in-process worker goroutines.
type LocalQueue struct {
	handler Handler
	timeout time.Duration
	logger  *slog.Logger
	jobs    chan localJob
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

var _ Queue = (*LocalQueue)(nil)

// NewLocalQueue starts workers goroutines; each job runs with at most timeout.
func NewLocalQueue(handler Handler, workers int, timeout time.Duration, logger *slog.Logger) *LocalQueue {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	q := &LocalQueue{
		handler: handler,
		timeout: timeout,
		logger:  logger,
		jobs:    make(chan localJob, 64),
		done:    make(chan struct{}),
	}
	q.wg.Add(workers)
	for range workers {
		go q.work()
	}
	return q
}

func (q *LocalQueue) work() {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			return
		case j := <-q.jobs:
			data, err := q.run(j.name)
			if j.reply != nil {
				j.reply <- jobResult{data: data, err: err}
			} else if err != nil {
				q.logger.Error("background job failed", "job", j.name, "error", err)
			}
		}
	}
}

func (q *LocalQueue) run(name string) (data json.RawMessage, err error) {
	ctx := context.Background()
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("job panicked", "job", name, "panic", r)
			err = ErrJobFailed
		}
	}()
	return q.handler.Handle(ctx, name)
}

func (q *LocalQueue) submit(ctx context.Context, j localJob) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.jobs <- j:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *LocalQueue) Enqueue(ctx context.Context, job string) error {
	return q.submit(ctx, localJob{name: job})
}

func (q *LocalQueue) Run(ctx context.Context, job string) (json.RawMessage, error) {
	reply := make(chan jobResult, 1)
	if err := q.submit(ctx, localJob{name: job, reply: reply}); err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		return r.data, r.err
	case <-q.done:
		return nil, ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the workers and waits for running jobs to return.
func (q *LocalQueue) Close() error {
	q.once.Do(func() {
		close(q.done)
		q.wg.Wait()
	})
	return nil
}
