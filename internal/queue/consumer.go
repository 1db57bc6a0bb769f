package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"hms-server/pkg/logger"
)

// HandlerFunc processes one job. A non-nil error triggers the consumer's
// retry policy.
type HandlerFunc func(ctx context.Context, job Job) error

// Consumer delivers each queued job to exactly one registered handler.
// Failed jobs are republished with an incremented attempt header after an
// exponential backoff, up to maxAttempts.
type Consumer struct {
	channel     *amqp.Channel
	publisher   *Publisher
	queue       string
	handlers    map[string]HandlerFunc
	maxAttempts int
	backoffBase time.Duration
	log         *logger.Logger
}

func NewConsumer(publisher *Publisher, maxAttempts int, backoffBase time.Duration, log *logger.Logger) (*Consumer, error) {
	ch, err := publisher.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open consumer channel: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}
	return &Consumer{
		channel:     ch,
		publisher:   publisher,
		queue:       publisher.queue,
		handlers:    make(map[string]HandlerFunc),
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		log:         log,
	}, nil
}

// OnJob registers the handler for one job name. Not safe to call after Run.
func (c *Consumer) OnJob(name string, h HandlerFunc) {
	c.handlers[name] = h
}

func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.channel.Consume(
		c.queue, // queue
		"",      // consumer
		false,   // auto-ack: we ack manually
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.handleDelivery(ctx, d)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		c.log.Errorf("dropping malformed job %s: %v", d.MessageId, err)
		_ = d.Ack(false)
		return
	}

	handler, ok := c.handlers[job.Name]
	if !ok {
		c.log.Errorf("no handler registered for job %s (%s)", job.Name, job.ID)
		_ = d.Ack(false)
		return
	}

	if err := handler(ctx, job); err != nil {
		c.retry(ctx, d, job, err)
		return
	}
	_ = d.Ack(false)
}

func (c *Consumer) retry(ctx context.Context, d amqp.Delivery, job Job, handlerErr error) {
	attempts := attemptsFrom(d.Headers) + 1
	if attempts >= int32(c.maxAttempts) {
		// Poison job: the outbox row keeps processed_at NULL and
		// last_error populated, visible for manual inspection/replay.
		c.log.Errorf("job %s (%s) permanently failed after %d attempts: %v", job.Name, job.ID, attempts, handlerErr)
		_ = d.Ack(false)
		return
	}

	// The delay runs inline on this Qos(1) channel, so deliveries behind
	// a retrying job wait until it is republished or the cap is hit.
	// Retrying without blocking needs a delayed-message exchange on the
	// broker side.
	delay := Backoff(c.backoffBase, int(attempts))
	c.log.Warnf("job %s (%s) failed (attempt %d), retrying in %s: %v", job.Name, job.ID, attempts, delay, handlerErr)

	select {
	case <-ctx.Done():
		// Shutting down: requeue so another consumer picks it up.
		_ = d.Nack(false, true)
		return
	case <-time.After(delay):
	}

	if err := c.publisher.publish(ctx, d.MessageId, d.Body, attempts); err != nil {
		c.log.Errorf("failed to republish job %s: %v", job.ID, err)
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

func (c *Consumer) Close() {
	c.channel.Close()
}

// Backoff returns the delay before retry number attempt (1-based),
// doubling each time and capped at 2 minutes.
func Backoff(base time.Duration, attempt int) time.Duration {
	const maxDelay = 2 * time.Minute
	if attempt < 1 {
		attempt = 1
	}
	delay := base << (attempt - 1)
	if delay > maxDelay || delay <= 0 {
		return maxDelay
	}
	return delay
}

func attemptsFrom(headers amqp.Table) int32 {
	if headers == nil {
		return 0
	}
	switch v := headers[attemptsHeader].(type) {
	case int32:
		return v
	case int64:
		return int32(v)
	case int:
		return int32(v)
	default:
		return 0
	}
}
