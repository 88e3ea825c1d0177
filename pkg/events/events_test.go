package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingClient struct {
	channel string
	message []byte
	err     error
}

func (c *recordingClient) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	c.channel = channel
	c.message, _ = message.([]byte)
	return redis.NewIntResult(1, c.err)
}

func TestRedisPublisher_PublishesJSONToChannel(t *testing.T) {
	client := &recordingClient{}
	publisher := NewRedisPublisher(client, "waitlist:events")
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	err := publisher.Publish(context.Background(), Event{
		Type:       "waitlist.submitted",
		OccurredAt: at,
		Payload:    map[string]string{"id": "abc"},
	})
	require.NoError(t, err)

	assert.Equal(t, "waitlist:events", client.channel)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(client.message, &decoded))
	assert.Equal(t, "waitlist.submitted", decoded["type"])
	assert.Equal(t, "2026-03-01T10:00:00Z", decoded["occurred_at"])
	assert.Equal(t, map[string]any{"id": "abc"}, decoded["payload"])
}

func TestRedisPublisher_WrapsClientError(t *testing.T) {
	boom := errors.New("connection reset")
	publisher := NewRedisPublisher(&recordingClient{err: boom}, "waitlist:events")

	err := publisher.Publish(context.Background(), Event{Type: "waitlist.submitted"})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "waitlist:events")
}

func TestNoopPublisher(t *testing.T) {
	assert.NoError(t, NoopPublisher{}.Publish(context.Background(), Event{Type: "x"}))
}
