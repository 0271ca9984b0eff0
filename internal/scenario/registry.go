package scenario

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"argus/internal/config"
	"argus/internal/logger"
	"argus/pkg/metrics"
)

// Registry serves read-mostly access to the active scenario graph. A snapshot
// is swapped in atomically under a write lock; Resolve never observes a
// partially applied configuration change.
type Registry struct {
	repo   Repository
	cfg    config.RegistryConfig
	logger logger.Logger

	mu       sync.RWMutex
	snapshot *Snapshot
}

func NewRegistry(repo Repository, cfg config.RegistryConfig, log logger.Logger) *Registry {
	return &Registry{
		repo:     repo,
		cfg:      cfg,
		logger:   log,
		snapshot: &Snapshot{ByCamera: map[string][]ActiveBinding{}},
	}
}

// Resolve returns the enabled (scenario, binding) pairs for a camera from the
// current snapshot. The returned slice must not be mutated by callers.
func (r *Registry) Resolve(cameraID string) []ActiveBinding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot.ByCamera[cameraID]
}

// LoadedAt reports when the current snapshot was read from the database.
func (r *Registry) LoadedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot.LoadedAt
}

// Reload replaces the snapshot with a fresh read. On failure the previous
// snapshot stays in place and evaluation continues against it.
func (r *Registry) Reload(ctx context.Context) error {
	snapshot, err := r.repo.LoadSnapshot(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.snapshot = snapshot
	r.mu.Unlock()

	metrics.SetRegistrySize(snapshot.ScenarioCount, snapshot.BindingCount)
	r.logger.Debugw("scenario registry reloaded",
		"scenarios", snapshot.ScenarioCount,
		"bindings", snapshot.BindingCount)
	return nil
}

// Run reloads the registry periodically until ctx is cancelled. Each interval
// gets a small random jitter so multiple consumer instances do not hit the
// database on the same tick.
func (r *Registry) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.reloadInterval()):
			if err := r.Reload(ctx); err != nil {
				r.logger.Warnw("scenario registry reload failed, keeping previous snapshot",
					"error", err)
			}
		}
	}
}

func (r *Registry) reloadInterval() time.Duration {
	interval := time.Duration(r.cfg.Reload.IntervalSeconds) * time.Second
	if r.cfg.Reload.JitterMaxMilliseconds > 0 {
		interval += time.Duration(rand.Intn(r.cfg.Reload.JitterMaxMilliseconds)) * time.Millisecond
	}
	return interval
}
