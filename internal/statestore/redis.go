package statestore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Lux-EE464H/Lux/internal/lighting"
	"github.com/Lux-EE464H/Lux/pkg/redis"
)

const unlockTimeout = 5 * time.Second

// RedisStore keeps each snapshot record under its own key
type RedisStore struct {
	client   redis.Client
	prefix   string
	location string
	lockTTL  time.Duration
	logger   *slog.Logger
}

// NewRedisStore creates a store for one location
func NewRedisStore(client redis.Client, prefix, location string, lockTTL time.Duration, logger *slog.Logger) *RedisStore {
	return &RedisStore{
		client:   client,
		prefix:   prefix,
		location: location,
		lockTTL:  lockTTLOrDefault(lockTTL),
		logger:   logger,
	}
}

func (s *RedisStore) key(name string) string {
	switch name {
	case recordOverride:
		return redis.OverrideKey(s.prefix, s.location)
	case recordLastObserved:
		return redis.LastObservedKey(s.prefix, s.location)
	case recordLastPrediction:
		return redis.LastPredictionKey(s.prefix, s.location)
	default:
		return redis.LastCloudCoverKey(s.prefix, s.location)
	}
}

// Lock takes the cycle lock with SET NX and a unique token. The lock expires
// after lockTTL so a crashed cycle cannot wedge the controller.
func (s *RedisStore) Lock(ctx context.Context) (func(), error) {
	key := redis.LockKey(s.prefix, s.location)
	token := uuid.New().String()

	ok, err := s.client.SetNX(ctx, key, token, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return nil, lighting.ErrCycleInProgress
	}

	return func() {
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unlockTimeout)
		defer cancel()

		released, err := s.client.DeleteIfEquals(unlockCtx, key, token)
		if err != nil {
			s.logger.Error("Failed to release cycle lock", "key", key, "error", err)
			return
		}
		if !released {
			s.logger.Warn("Cycle lock expired before release", "key", key, "ttl", s.lockTTL)
		}
	}, nil
}

// Load reads every record in one round trip
func (s *RedisStore) Load(ctx context.Context) (lighting.Snapshot, error) {
	keys := make([]string, len(recordNames))
	for i, name := range recordNames {
		keys[i] = s.key(name)
	}

	values, err := s.client.MGet(ctx, keys...)
	if err != nil {
		return lighting.Snapshot{}, err
	}

	records := make(map[string]string, len(recordNames))
	for i, name := range recordNames {
		if i < len(values) {
			records[name] = values[i]
		}
	}
	return decodeSnapshot(records, s.logger), nil
}

// Save writes the snapshot in a single MULTI/EXEC
func (s *RedisStore) Save(ctx context.Context, snap lighting.Snapshot) error {
	set, del, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	keyed := make(map[string]string, len(set))
	for name, value := range set {
		keyed[s.key(name)] = value
	}
	delKeys := make([]string, 0, len(del))
	for _, name := range del {
		delKeys = append(delKeys, s.key(name))
	}

	return s.client.Update(ctx, keyed, delKeys)
}
