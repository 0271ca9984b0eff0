package triggers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/config"
	"argus/internal/constants"
	"argus/internal/dedup"
	"argus/internal/logger"
	"argus/pkg/models"
)

type memoryDedupStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
}

func (m *memoryDedupStore) AllowOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if until, ok := m.expires[key]; ok && until.After(now) {
		return false, nil
	}
	m.expires[key] = now.Add(ttl)
	return true, nil
}

func (m *memoryDedupStore) Sweep(ctx context.Context) error { return nil }
func (m *memoryDedupStore) Close() error                    { return nil }

type fakeTriggerRepo struct {
	orgs          []string
	fireCount     int
	cameraCounts  []CameraCount
	highRiskCount int
	lowConfCount  int
	activities    []ModuleActivity
	pruned        int64
}

func (f *fakeTriggerRepo) RecordEvent(ctx context.Context, event models.DetectionEvent, riskScore int, triggered bool) error {
	return nil
}

func (f *fakeTriggerRepo) CountByScenarioType(ctx context.Context, organizationID, scenarioType string, since time.Time) (int, error) {
	return f.fireCount, nil
}

func (f *fakeTriggerRepo) CountPerCamera(ctx context.Context, organizationID, scenarioType string, since time.Time, minCount int) ([]CameraCount, error) {
	return f.cameraCounts, nil
}

func (f *fakeTriggerRepo) CountHighRisk(ctx context.Context, organizationID string, minScore int, since time.Time) (int, error) {
	return f.highRiskCount, nil
}

func (f *fakeTriggerRepo) CountLowConfidence(ctx context.Context, organizationID string, maxConfidence float64, since time.Time) (int, error) {
	return f.lowConfCount, nil
}

func (f *fakeTriggerRepo) ModuleActivities(ctx context.Context, organizationID string, activeSince time.Time) ([]ModuleActivity, error) {
	return f.activities, nil
}

func (f *fakeTriggerRepo) ActiveOrganizations(ctx context.Context, since time.Time) ([]string, error) {
	return f.orgs, nil
}

func (f *fakeTriggerRepo) Prune(ctx context.Context, before time.Time) (int64, error) {
	return f.pruned, nil
}

type intentCollector struct {
	mu      sync.Mutex
	intents []models.NotificationIntent
}

func (c *intentCollector) PublishIntent(ctx context.Context, intent models.NotificationIntent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intents = append(c.intents, intent)
	return nil
}

func newSweepService(repo *fakeTriggerRepo) (*Service, *intentCollector) {
	dedupService := dedup.NewService(&memoryDedupStore{expires: map[string]time.Time{}},
		constants.FallbackAllow, logger.NopLogger())
	collector := &intentCollector{}
	svc := NewService(repo, dedupService, collector, config.TriggersConfig{Enabled: true}, logger.NopLogger())
	return svc, collector
}

func TestSweepQuietOrganizationFiresNothing(t *testing.T) {
	repo := &fakeTriggerRepo{orgs: []string{"org-1"}}
	svc, collector := newSweepService(repo)

	require.NoError(t, svc.Sweep(context.Background()))
	assert.Empty(t, collector.intents)
}

func TestSweepFireSpike(t *testing.T) {
	repo := &fakeTriggerRepo{orgs: []string{"org-1"}, fireCount: 4}
	svc, collector := newSweepService(repo)

	require.NoError(t, svc.Sweep(context.Background()))
	require.Len(t, collector.intents, 1)
	assert.Equal(t, models.RiskLevelCritical, collector.intents[0].RiskLevel)
	assert.Equal(t, "org-1", collector.intents[0].OrganizationID)
	assert.Equal(t, models.ChannelWeb, collector.intents[0].Channel)
}

func TestSweepRepeatedIntrusionsPerCamera(t *testing.T) {
	repo := &fakeTriggerRepo{
		orgs: []string{"org-1"},
		cameraCounts: []CameraCount{
			{CameraID: "cam-1", Count: 6},
			{CameraID: "cam-2", Count: 8},
		},
	}
	svc, collector := newSweepService(repo)

	require.NoError(t, svc.Sweep(context.Background()))
	require.Len(t, collector.intents, 2)
	assert.Equal(t, "cam-1", collector.intents[0].CameraID)
	assert.Equal(t, "cam-2", collector.intents[1].CameraID)
	for _, intent := range collector.intents {
		assert.Equal(t, models.RiskLevelHigh, intent.RiskLevel)
	}
}

func TestSweepHighRiskConcentration(t *testing.T) {
	repo := &fakeTriggerRepo{orgs: []string{"org-1"}, highRiskCount: 12}
	svc, collector := newSweepService(repo)

	require.NoError(t, svc.Sweep(context.Background()))
	require.Len(t, collector.intents, 1)
	assert.Equal(t, models.RiskLevelCritical, collector.intents[0].RiskLevel)
}

func TestSweepModuleInactivity(t *testing.T) {
	repo := &fakeTriggerRepo{
		orgs: []string{"org-1"},
		activities: []ModuleActivity{
			{Module: "perimeter", LastSeen: time.Now().Add(-3 * time.Hour)},
			{Module: "fire_detection", LastSeen: time.Now().Add(-10 * time.Minute)},
		},
	}
	svc, collector := newSweepService(repo)

	require.NoError(t, svc.Sweep(context.Background()))
	require.Len(t, collector.intents, 1, "only the silent module fires")
	assert.Equal(t, models.RiskLevelMedium, collector.intents[0].RiskLevel)
	assert.Contains(t, collector.intents[0].Body, "perimeter")
}

func TestSweepLowConfidenceDrift(t *testing.T) {
	repo := &fakeTriggerRepo{orgs: []string{"org-1"}, lowConfCount: 25}
	svc, collector := newSweepService(repo)

	require.NoError(t, svc.Sweep(context.Background()))
	require.Len(t, collector.intents, 1)
	assert.Equal(t, models.RiskLevelMedium, collector.intents[0].RiskLevel)
}

func TestSweepFiresOncePerWindow(t *testing.T) {
	repo := &fakeTriggerRepo{orgs: []string{"org-1"}, fireCount: 4}
	svc, collector := newSweepService(repo)
	ctx := context.Background()

	require.NoError(t, svc.Sweep(ctx))
	require.NoError(t, svc.Sweep(ctx))

	assert.Len(t, collector.intents, 1, "a persisting condition alerts once per cooldown window")
}

func TestSweepIsolatesOrganizations(t *testing.T) {
	repo := &fakeTriggerRepo{orgs: []string{"org-1", "org-2"}, fireCount: 4}
	svc, collector := newSweepService(repo)

	require.NoError(t, svc.Sweep(context.Background()))

	// Both organizations exceed the threshold; each gets its own alert
	// under its own cooldown key.
	require.Len(t, collector.intents, 2)
	assert.NotEqual(t, collector.intents[0].OrganizationID, collector.intents[1].OrganizationID)
}
