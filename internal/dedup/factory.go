package dedup

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"argus/internal/config"
	"argus/internal/constants"
	"argus/internal/logger"
	"argus/pkg/circuitbreaker"
)

// NewStore builds the configured backend wrapped in a circuit breaker.
func NewStore(cfg config.DedupConfig, db *sql.DB, redisClient *redis.Client, log logger.Logger) (Store, error) {
	var store Store
	switch cfg.Backend {
	case constants.DedupBackendPostgres:
		store = NewPostgresStore(db, time.Duration(cfg.SweepSeconds)*time.Second, log)
	case constants.DedupBackendRedis:
		store = NewRedisStore(redisClient)
	default:
		return nil, fmt.Errorf("unsupported dedup backend: %s", cfg.Backend)
	}

	return NewCircuitBreakerStore(store, circuitbreaker.DefaultConfig("dedup-store"), log), nil
}
