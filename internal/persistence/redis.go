package persistence

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/drona-gyawali/Supportix/internal/config"
)

const queuePositionPrefix = "queue:pos:"

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// CacheQueuePosition stores a ticket's queue position with a short TTL.
func (r *Redis) CacheQueuePosition(ctx context.Context, ticketKey string, position int, ttl time.Duration) {
	if r == nil || r.Client == nil {
		return
	}
	_ = r.Client.Set(ctx, queuePositionPrefix+ticketKey, position, ttl).Err()
}

// QueuePosition returns a cached position, or false when absent.
func (r *Redis) QueuePosition(ctx context.Context, ticketKey string) (int, bool) {
	if r == nil || r.Client == nil {
		return 0, false
	}
	val, err := r.Client.Get(ctx, queuePositionPrefix+ticketKey).Result()
	if err != nil {
		return 0, false
	}
	position, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return position, true
}

// DropQueuePosition invalidates a cached position after assignment.
func (r *Redis) DropQueuePosition(ctx context.Context, ticketKey string) {
	if r == nil || r.Client == nil {
		return
	}
	_ = r.Client.Del(ctx, queuePositionPrefix+ticketKey).Err()
}
