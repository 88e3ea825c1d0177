package config

import (
	"github.com/akeren/waitlist-api/internal/log"
	"github.com/akeren/waitlist-api/pkg/constants"
	"github.com/akeren/waitlist-api/pkg/events"
	"github.com/akeren/waitlist-api/pkg/utils"
)

// NewEventPublisher publishes to Redis pub/sub when Redis is available and
// EVENTS_ENABLED is not false; otherwise events are dropped.
func NewEventPublisher(cache Cache, logger *log.Logger) events.Publisher {
	if !utils.GetEnvBool("EVENTS_ENABLED", true) {
		logger.Info("Domain events disabled (EVENTS_ENABLED=false)")
		return events.NoopPublisher{}
	}

	client := GetRedisClient(cache)
	if client == nil {
		logger.Info("Domain events will not be published; Redis is not configured")
		return events.NoopPublisher{}
	}

	channel := utils.GetEnvTrimmedOrDefault("EVENTS_CHANNEL", constants.EventsChannel)
	logger.Info("Publishing domain events to Redis", "channel", channel)
	return events.NewRedisPublisher(client, channel)
}
