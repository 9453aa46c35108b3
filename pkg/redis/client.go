package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Lux-EE464H/Lux/pkg/config"
)

// deleteIfEquals removes the key only while it holds the caller's token
var deleteIfEquals = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// redisClient implements the Client interface using go-redis
type redisClient struct {
	client *redis.Client
	cfg    *config.Config
	logger *slog.Logger
}

// NewClient creates a new Redis client with the given configuration
func NewClient(cfg *config.Config, logger *slog.Logger) Client {
	opts := &redis.Options{
		Addr:     cfg.RedisAddress(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	return &redisClient{
		client: redis.NewClient(opts),
		cfg:    cfg,
		logger: logger,
	}
}

// MGet gets several keys in one round trip
func (r *redisClient) MGet(ctx context.Context, keys ...string) ([]string, error) {
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get keys %v: %w", keys, err)
	}

	out := make([]string, len(vals))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[i] = s
		}
	}
	return out, nil
}

// SetNX sets a key only if it does not already exist
func (r *redisClient) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to setnx key %s: %w", key, err)
	}
	return ok, nil
}

// Update writes and deletes keys atomically
func (r *redisClient) Update(ctx context.Context, set map[string]string, del []string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range set {
			pipe.Set(ctx, key, value, 0)
		}
		if len(del) > 0 {
			pipe.Del(ctx, del...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply transaction: %w", err)
	}
	return nil
}

// DeleteIfEquals deletes key only while it still holds value
func (r *redisClient) DeleteIfEquals(ctx context.Context, key, value string) (bool, error) {
	n, err := deleteIfEquals.Run(ctx, r.client, []string{key}, value).Int()
	if err != nil {
		return false, fmt.Errorf("failed to release key %s: %w", key, err)
	}
	return n == 1, nil
}

// Ping checks the connection to Redis
func (r *redisClient) Ping(ctx context.Context) error {
	err := r.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	r.logger.Info("Connected to Redis", "address", r.cfg.RedisAddress())
	return nil
}

// Close closes the Redis connection
func (r *redisClient) Close() error {
	r.logger.Info("Closing Redis connection")
	return r.client.Close()
}
