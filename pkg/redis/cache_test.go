package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Addr(t *testing.T) {
	assert.Equal(t, "cache.internal:6380", (&Config{Host: "cache.internal", Port: "6380"}).Addr())
	assert.Equal(t, "[::1]:6379", (&Config{Host: "::1", Port: "6379"}).Addr())
}

func TestNewRedisCache_RequiresHost(t *testing.T) {
	_, err := NewRedisCache(&Config{Port: "6379"})
	assert.Error(t, err)

	_, err = NewRedisCache(nil)
	assert.Error(t, err)
}

func TestNewRedisCache_FailsWhenUnreachable(t *testing.T) {
	// Port 1 on loopback is never a Redis server.
	_, err := NewRedisCache(&Config{Host: "127.0.0.1", Port: "1", DialTimeout: 200 * time.Millisecond})
	assert.Error(t, err)
}

