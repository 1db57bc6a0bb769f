package events

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Publisher pushes processed events to live subscribers over Redis
// Pub/Sub. Delivery is best-effort; the outbox, not Redis, is the source
// of truth.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}
