package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	JobQueueName = "analytics.jobs"
	replyToQueue = "amq.rabbitmq.reply-to"
)

type jobReply struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func DeclareJobQueue(ch *amqp.Channel) error {
	if _, err := ch.QueueDeclare(JobQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare job queue: %w", err)
	}
	return nil
}

// RabbitMQQueue publishes jobs to the durable job queue. Run waits for the
// worker's answer on the direct reply-to pseudo queue.
type RabbitMQQueue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex
	once    sync.Once

	pendingMu sync.Mutex
	pending   map[string]chan jobReply
	closed    bool
}

var _ Queue = (*RabbitMQQueue)(nil)

func NewRabbitMQQueue(url string) (*RabbitMQQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := DeclareJobQueue(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	replies, err := ch.Consume(replyToQueue, "", true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("consume replies: %w", err)
	}
	q := &RabbitMQQueue{
		conn:    conn,
		channel: ch,
		pending: make(map[string]chan jobReply),
	}
	go q.dispatch(replies)
	return q, nil
}

func (q *RabbitMQQueue) dispatch(replies <-chan amqp.Delivery) {
	for d := range replies {
		q.pendingMu.Lock()
		waiter, ok := q.pending[d.CorrelationId]
		delete(q.pending, d.CorrelationId)
		q.pendingMu.Unlock()
		if !ok {
			continue
		}
		var r jobReply
		if err := json.Unmarshal(d.Body, &r); err != nil {
			r = jobReply{Error: fmt.Sprintf("decode reply: %v", err)}
		}
		waiter <- r
	}

	q.pendingMu.Lock()
	q.closed = true
	for id, waiter := range q.pending {
		delete(q.pending, id)
		close(waiter)
	}
	q.pendingMu.Unlock()
}

func (q *RabbitMQQueue) publish(ctx context.Context, msg amqp.Publishing) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.channel == nil {
		return ErrQueueClosed
	}
	if err := q.channel.PublishWithContext(ctx, "", JobQueueName, false, false, msg); err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

func (q *RabbitMQQueue) Enqueue(ctx context.Context, job string) error {
	return q.publish(ctx, amqp.Publishing{
		Type:         job,
		MessageId:    uuid.NewString(),
		DeliveryMode: amqp.Persistent,
	})
}

func (q *RabbitMQQueue) Run(ctx context.Context, job string) (json.RawMessage, error) {
	id := uuid.NewString()
	waiter := make(chan jobReply, 1)

	q.pendingMu.Lock()
	if q.closed {
		q.pendingMu.Unlock()
		return nil, ErrQueueClosed
	}
	q.pending[id] = waiter
	q.pendingMu.Unlock()

	forget := func() {
		q.pendingMu.Lock()
		delete(q.pending, id)
		q.pendingMu.Unlock()
	}

	err := q.publish(ctx, amqp.Publishing{
		Type:          job,
		MessageId:     id,
		CorrelationId: id,
		ReplyTo:       replyToQueue,
	})
	if err != nil {
		forget()
		return nil, err
	}

	select {
	case r, ok := <-waiter:
		if !ok {
			return nil, ErrQueueClosed
		}
		if r.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrJobFailed, r.Error)
		}
		return r.Result, nil
	case <-ctx.Done():
		forget()
		return nil, ctx.Err()
	}
}

func (q *RabbitMQQueue) Close() error {
	var err error
	q.once.Do(func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		if q.channel != nil {
			err = q.channel.Close()
			q.channel = nil
		}
		if q.conn != nil {
			if closeErr := q.conn.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
			q.conn = nil
		}
	})
	return err
}

// Serve consumes the job queue on workers goroutines until ctx is done or the
// channel closes. Every job is acked once handled; callers waiting on a reply
// get the error text.
func Serve(ctx context.Context, ch *amqp.Channel, handler Handler, workers int, logger *slog.Logger) error {
	if err := DeclareJobQueue(ch); err != nil {
		return err
	}
	deliveries, err := ch.Consume(JobQueueName, "analytics-worker", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume jobs: %w", err)
	}
	if workers < 1 {
		workers = 1
	}
	logger.Info("analytics worker started", "queue", JobQueueName, "workers", workers)

	var wg sync.WaitGroup
	closed := make(chan struct{}, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						closed <- struct{}{}
						return
					}
					handleJob(ctx, ch, handler, logger, d)
				}
			}
		}()
	}
	wg.Wait()

	if len(closed) > 0 {
		return fmt.Errorf("job delivery channel closed")
	}
	return nil
}

func handleJob(ctx context.Context, ch *amqp.Channel, handler Handler, logger *slog.Logger, d amqp.Delivery) {
	result, err := handler.Handle(ctx, d.Type)
	if err != nil {
		logger.Error("job failed", "job", d.Type, "message_id", d.MessageId, "error", err)
	}

	if d.ReplyTo != "" {
		reply := jobReply{Result: result}
		if err != nil {
			reply = jobReply{Error: err.Error()}
		}
		body, _ := json.Marshal(reply)
		pubErr := ch.PublishWithContext(ctx, "", d.ReplyTo, false, false, amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: d.CorrelationId,
			Body:          body,
		})
		if pubErr != nil {
			logger.Error("failed to reply", "job", d.Type, "error", pubErr)
		}
	}

	if err := d.Ack(false); err != nil {
		logger.Error("failed to ack", "error", err)
	}
}
