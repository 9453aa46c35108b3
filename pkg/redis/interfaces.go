package redis

import (
	"context"
	"time"
)

// Client represents a Redis client interface for testing and abstraction
type Client interface {
	// MGet gets several keys at once; absent keys come back as ""
	MGet(ctx context.Context, keys ...string) ([]string, error)

	// SetNX sets a key only if it does not exist, reporting whether it was set
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)

	// Update applies sets and deletes in one MULTI/EXEC transaction
	Update(ctx context.Context, set map[string]string, del []string) error

	// DeleteIfEquals deletes key only while it still holds value
	DeleteIfEquals(ctx context.Context, key, value string) (bool, error)

	// Ping checks the connection to Redis
	Ping(ctx context.Context) error

	// Close closes the Redis connection
	Close() error
}
