package dedup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"argus/internal/constants"
	"argus/internal/logger"
	"argus/pkg/models"
)

// memoryStore is a minimal in-process Store with real expiry semantics, used
// to exercise the service and the window race without a database.
type memoryStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{expires: make(map[string]time.Time)}
}

func (m *memoryStore) AllowOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	now := time.Now()
	if until, ok := m.expires[key]; ok && until.After(now) {
		return false, nil
	}
	m.expires[key] = now.Add(ttl)
	return true, nil
}

func (m *memoryStore) Sweep(ctx context.Context) error { return m.err }
func (m *memoryStore) Close() error                    { return nil }

func TestAllowOnceWindow(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, constants.FallbackAllow, logger.NopLogger())
	ctx := context.Background()

	assert.True(t, svc.AllowOnce(ctx, "cooldown:org-1:sc-1:high", time.Minute))
	assert.False(t, svc.AllowOnce(ctx, "cooldown:org-1:sc-1:high", time.Minute))

	// A different key is an independent window.
	assert.True(t, svc.AllowOnce(ctx, "cooldown:org-2:sc-1:high", time.Minute))
}

func TestAllowOnceExpiredWindowReopens(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, constants.FallbackAllow, logger.NopLogger())
	ctx := context.Background()

	assert.True(t, svc.AllowOnce(ctx, "k", 10*time.Millisecond))
	assert.False(t, svc.AllowOnce(ctx, "k", 10*time.Millisecond))

	time.Sleep(20 * time.Millisecond)
	assert.True(t, svc.AllowOnce(ctx, "k", 10*time.Millisecond))
}

func TestAllowOnceConcurrentSingleWinner(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, constants.FallbackAllow, logger.NopLogger())
	ctx := context.Background()

	const goroutines = 50
	var winners atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if svc.AllowOnce(ctx, "cooldown:org-1:sc-1:critical", time.Minute) {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load(), "exactly one caller may win the window")
}

func TestAllowOnceFallback(t *testing.T) {
	tests := []struct {
		name     string
		policy   string
		expected bool
	}{
		{"fail open allows", constants.FallbackAllow, true},
		{"fail closed denies", constants.FallbackDeny, false},
		{"unknown policy defaults to allow", "bogus", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			store.err = errors.New("store down")
			svc := NewService(store, tt.policy, logger.NopLogger())

			assert.Equal(t, tt.expected, svc.AllowOnce(context.Background(), "k", time.Minute))
		})
	}
}

func TestKeyNamespaces(t *testing.T) {
	cooldown := CooldownKey("org-1", "sc-1", models.RiskLevelHigh)
	assert.Equal(t, "cooldown:org-1:sc-1:high", cooldown)

	// Same scenario and level under a different tenant must never collide.
	other := CooldownKey("org-2", "sc-1", models.RiskLevelHigh)
	assert.NotEqual(t, cooldown, other)

	assert.Equal(t, "warn:sc-1:zone", WarnKey("sc-1", "zone"))
	assert.Equal(t, "trigger:org-1:fire_spike", TriggerKey("org-1", "fire_spike"))
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, constants.FallbackAllow, logger.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}
