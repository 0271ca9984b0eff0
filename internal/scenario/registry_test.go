package scenario

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/config"
	"argus/internal/logger"
)

type stubRepository struct {
	snapshot *Snapshot
	err      error
	calls    int
}

func (s *stubRepository) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.snapshot, nil
}

func snapshotWithBinding(cameraID string) *Snapshot {
	sc := Scenario{ID: "sc-1", OrganizationID: "org-1", Enabled: true}
	return &Snapshot{
		ByCamera: map[string][]ActiveBinding{
			cameraID: {{Binding: CameraBinding{ID: "b-1", CameraID: cameraID, ScenarioID: "sc-1", Enabled: true}, Scenario: sc}},
		},
		ScenarioCount: 1,
		BindingCount:  1,
		LoadedAt:      time.Now(),
	}
}

func TestRegistryResolveEmptyBeforeReload(t *testing.T) {
	registry := NewRegistry(&stubRepository{}, config.RegistryConfig{}, logger.NopLogger())
	assert.Empty(t, registry.Resolve("cam-1"))
}

func TestRegistryReloadSwapsSnapshot(t *testing.T) {
	repo := &stubRepository{snapshot: snapshotWithBinding("cam-1")}
	registry := NewRegistry(repo, config.RegistryConfig{}, logger.NopLogger())

	require.NoError(t, registry.Reload(context.Background()))

	bindings := registry.Resolve("cam-1")
	require.Len(t, bindings, 1)
	assert.Equal(t, "sc-1", bindings[0].Scenario.ID)
	assert.Empty(t, registry.Resolve("cam-2"))

	// A subsequent reload replaces the view entirely.
	repo.snapshot = snapshotWithBinding("cam-2")
	require.NoError(t, registry.Reload(context.Background()))
	assert.Empty(t, registry.Resolve("cam-1"))
	assert.Len(t, registry.Resolve("cam-2"), 1)
}

func TestRegistryFailedReloadKeepsPreviousSnapshot(t *testing.T) {
	repo := &stubRepository{snapshot: snapshotWithBinding("cam-1")}
	registry := NewRegistry(repo, config.RegistryConfig{}, logger.NopLogger())
	require.NoError(t, registry.Reload(context.Background()))

	repo.err = errors.New("database unavailable")
	assert.Error(t, registry.Reload(context.Background()))

	// Evaluation continues against the last good configuration.
	assert.Len(t, registry.Resolve("cam-1"), 1)
}

func TestRegistryLoadedAt(t *testing.T) {
	repo := &stubRepository{snapshot: snapshotWithBinding("cam-1")}
	registry := NewRegistry(repo, config.RegistryConfig{}, logger.NopLogger())

	assert.True(t, registry.LoadedAt().IsZero())
	require.NoError(t, registry.Reload(context.Background()))
	assert.False(t, registry.LoadedAt().IsZero())
}

func TestRegistryRunStopsOnCancel(t *testing.T) {
	repo := &stubRepository{snapshot: snapshotWithBinding("cam-1")}
	cfg := config.RegistryConfig{}
	cfg.Reload.IntervalSeconds = 1

	registry := NewRegistry(repo, cfg, logger.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		registry.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("registry loop did not stop after context cancellation")
	}
}
