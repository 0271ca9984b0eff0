package alerting

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/constants"
	"argus/internal/dedup"
	"argus/internal/logger"
	"argus/internal/policy"
	"argus/internal/scenario"
	"argus/pkg/models"
)

// memoryDedupStore gives the dispatcher real window semantics in-process.
type memoryDedupStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
}

func newMemoryDedupStore() *memoryDedupStore {
	return &memoryDedupStore{expires: make(map[string]time.Time)}
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

func newTestDedupService() *dedup.Service {
	return dedup.NewService(newMemoryDedupStore(), constants.FallbackAllow, logger.NopLogger())
}

func triggeredClassification() models.Classification {
	return models.Classification{
		ScenarioID:     "sc-1",
		CameraID:       "cam-1",
		OrganizationID: "org-1",
		RiskScore:      82,
		RiskLevel:      models.RiskLevelHigh,
		Triggered:      true,
		Timestamp:      time.Now().UTC(),
	}
}

func testPolicy(channels ...models.NotificationChannel) policy.AlertPolicy {
	return policy.AlertPolicy{
		OrganizationID:       "org-1",
		RiskLevel:            models.RiskLevelHigh,
		CooldownMinutes:      15,
		NotificationChannels: channels,
		Enabled:              true,
	}
}

func TestDispatchFansOutPerChannel(t *testing.T) {
	d := NewDispatcher(newTestDedupService())
	sc := scenario.Scenario{ID: "sc-1", Name: "Perimeter intrusion"}

	intents, suppressed := d.Dispatch(context.Background(), triggeredClassification(), sc,
		testPolicy(models.ChannelWeb, models.ChannelMobile))

	assert.False(t, suppressed)
	require.Len(t, intents, 2)
	assert.Equal(t, models.ChannelWeb, intents[0].Channel)
	assert.Equal(t, models.ChannelMobile, intents[1].Channel)
	for _, intent := range intents {
		assert.NotEmpty(t, intent.ID)
		assert.Equal(t, "org-1", intent.OrganizationID)
		assert.Equal(t, 82, intent.RiskScore)
		assert.Equal(t, models.RiskLevelHigh, intent.RiskLevel)
	}
}

func TestDispatchNotTriggered(t *testing.T) {
	d := NewDispatcher(newTestDedupService())
	c := triggeredClassification()
	c.Triggered = false

	intents, suppressed := d.Dispatch(context.Background(), c, scenario.Scenario{}, testPolicy(models.ChannelWeb))
	assert.Nil(t, intents)
	assert.False(t, suppressed)
}

func TestDispatchCooldownSuppressesSecondAlert(t *testing.T) {
	d := NewDispatcher(newTestDedupService())
	sc := scenario.Scenario{ID: "sc-1", Name: "Perimeter intrusion"}
	pol := testPolicy(models.ChannelWeb)

	intents, suppressed := d.Dispatch(context.Background(), triggeredClassification(), sc, pol)
	require.Len(t, intents, 1)
	assert.False(t, suppressed)

	intents, suppressed = d.Dispatch(context.Background(), triggeredClassification(), sc, pol)
	assert.Nil(t, intents)
	assert.True(t, suppressed)
}

func TestDispatchCooldownScopedPerLevel(t *testing.T) {
	d := NewDispatcher(newTestDedupService())
	sc := scenario.Scenario{ID: "sc-1", Name: "Perimeter intrusion"}
	pol := testPolicy(models.ChannelWeb)

	c := triggeredClassification()
	intents, _ := d.Dispatch(context.Background(), c, sc, pol)
	require.Len(t, intents, 1)

	// Same scenario escalating to a different level opens its own window.
	c.RiskLevel = models.RiskLevelCritical
	intents, suppressed := d.Dispatch(context.Background(), c, sc, pol)
	require.Len(t, intents, 1)
	assert.False(t, suppressed)
}

func TestDispatchCooldownScopedPerOrganization(t *testing.T) {
	d := NewDispatcher(newTestDedupService())
	sc := scenario.Scenario{ID: "sc-1", Name: "Perimeter intrusion"}
	pol := testPolicy(models.ChannelWeb)

	intents, _ := d.Dispatch(context.Background(), triggeredClassification(), sc, pol)
	require.Len(t, intents, 1)

	other := triggeredClassification()
	other.OrganizationID = "org-2"
	intents, suppressed := d.Dispatch(context.Background(), other, sc, pol)
	require.Len(t, intents, 1, "another tenant must not share the window")
	assert.False(t, suppressed)
}

func TestDispatchNoChannels(t *testing.T) {
	d := NewDispatcher(newTestDedupService())

	intents, suppressed := d.Dispatch(context.Background(), triggeredClassification(),
		scenario.Scenario{ID: "sc-1"}, testPolicy())
	assert.Empty(t, intents)
	assert.False(t, suppressed)
}

func TestEffectiveChannelsMergesScenarioConfig(t *testing.T) {
	pol := testPolicy(models.ChannelWeb)
	sc := scenario.Scenario{
		Config: map[string]interface{}{
			"notification_channels": []interface{}{"email", "web"},
		},
	}

	channels := effectiveChannels(pol, sc)
	assert.Equal(t, []models.NotificationChannel{models.ChannelWeb, models.ChannelEmail}, channels)
}
