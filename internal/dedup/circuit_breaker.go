package dedup

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"argus/internal/logger"
	"argus/pkg/circuitbreaker"
)

// circuitBreakerStore guards a Store with a circuit breaker so a failing
// backend sheds load fast instead of holding every event on a timing-out
// round trip. Open-circuit errors surface to the service layer, which applies
// the configured fallback.
type circuitBreakerStore struct {
	store   Store
	breaker *circuitbreaker.Wrapper
	logger  logger.Logger
}

func NewCircuitBreakerStore(store Store, cfg circuitbreaker.Config, log logger.Logger) Store {
	cfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warnw("dedup store circuit breaker state changed",
			"name", name, "from", from.String(), "to", to.String())
	}
	return &circuitBreakerStore{
		store:   store,
		breaker: circuitbreaker.NewWrapper(cfg),
		logger:  log,
	}
}

func (s *circuitBreakerStore) AllowOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	result, err := s.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
		return s.store.AllowOnce(ctx, key, ttl)
	})
	if err != nil {
		s.breaker.RecordRequest(false)
		return false, err
	}
	s.breaker.RecordRequest(true)
	return result.(bool), nil
}

func (s *circuitBreakerStore) Sweep(ctx context.Context) error {
	return s.store.Sweep(ctx)
}

func (s *circuitBreakerStore) Close() error {
	return s.store.Close()
}
