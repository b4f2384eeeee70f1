package inbound

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Deduper reports whether a provider message id is seen for the first time.
type Deduper interface {
	FirstSeen(ctx context.Context, messageID string) bool
}

const dedupeKeyPrefix = "wa:inbound:"

// RedisDeduper marks message ids with SETNX. Redis failures let the message through.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration, logger *logging.Logger) *RedisDeduper {
	if client == nil {
		panic("inbound: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisDeduper{client: client, ttl: ttl, logger: logger}
}

func (d *RedisDeduper) FirstSeen(ctx context.Context, messageID string) bool {
	if messageID == "" {
		return true
	}
	ok, err := d.client.SetNX(ctx, dedupeKeyPrefix+messageID, 1, d.ttl).Result()
	if err != nil {
		d.logger.Warn("inbound dedupe unavailable", "message_id", messageID, "error", err)
		return true
	}
	return ok
}

// noDedupe is used when Redis is not configured.
type noDedupe struct{}

func (noDedupe) FirstSeen(context.Context, string) bool { return true }
