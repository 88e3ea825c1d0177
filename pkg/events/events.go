package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Event is a domain event published after a state change.
type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// Publisher delivers events on a best-effort basis.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// redisPublishClient is the subset of *redis.Client the publisher needs.
type redisPublishClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes JSON-encoded events to a single pub/sub channel.
type RedisPublisher struct {
	client  redisPublishClient
	channel string
}

func NewRedisPublisher(client redisPublishClient, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.Type, err)
	}

	if err := p.client.Publish(ctx, p.channel, message).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis channel %s: %w", p.channel, err)
	}
	return nil
}

// NoopPublisher drops every event. Used when Redis is not configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error {
	return nil
}
