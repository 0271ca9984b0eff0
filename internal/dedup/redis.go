package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"argus/internal/constants"
)

// redisStore implements Store with SET NX. Redis expires keys natively, so
// Sweep has nothing to do.
type redisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) AllowOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.StoreOpTimeout)
	defer cancel()

	claimed, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim dedup window: %w", err)
	}
	return claimed, nil
}

func (s *redisStore) Sweep(ctx context.Context) error {
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
