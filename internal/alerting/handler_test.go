package alerting

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/broker"
	"argus/internal/config"
	"argus/internal/logger"
	"argus/internal/scenario"
	pkgerrors "argus/pkg/errors"
	"argus/pkg/models"
)

func TestDetectionHandlerMalformedPayloadIsFatal(t *testing.T) {
	f := newPipelineFixture(t, intrusionSnapshot("org-1"))
	handler := NewDetectionHandler(f.service, logger.NopLogger())

	err := handler(context.Background(), broker.Message{
		Topic: "detection_events",
		Value: []byte("not json"),
	})
	require.Error(t, err)

	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.False(t, appErr.IsRetryable())
}

func TestDetectionHandlerProcessesEvent(t *testing.T) {
	f := newPipelineFixture(t, intrusionSnapshot("org-1"))
	handler := NewDetectionHandler(f.service, logger.NopLogger())

	payload, err := json.Marshal(intrusionEvent("org-1"))
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), broker.Message{
		Topic: "detection_events",
		Value: payload,
	}))
	assert.Len(t, f.publisher.intents, 1)
}

func TestConfigUpdateHandlerReloadsOnScenarioChange(t *testing.T) {
	repo := &fakeScenarioRepo{snapshot: intrusionSnapshot("org-1")}
	registry := scenario.NewRegistry(repo, config.RegistryConfig{}, logger.NopLogger())
	handler := NewConfigUpdateHandler(registry, logger.NopLogger())

	assert.Empty(t, registry.Resolve("cam-1"))

	payload, err := json.Marshal(models.ConfigUpdateEvent{
		EventType:  models.EventTypeScenarioUpdated,
		Action:     models.ActionUpdate,
		ResourceID: "sc-1",
	})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), broker.Message{Value: payload}))
	assert.Len(t, registry.Resolve("cam-1"), 1, "snapshot refreshed on config event")
}

func TestConfigUpdateHandlerIgnoresIrrelevantEvents(t *testing.T) {
	repo := &fakeScenarioRepo{snapshot: intrusionSnapshot("org-1")}
	registry := scenario.NewRegistry(repo, config.RegistryConfig{}, logger.NopLogger())
	handler := NewConfigUpdateHandler(registry, logger.NopLogger())

	for _, eventType := range []string{models.EventTypePolicyUpdated, models.EventTypeRiskBandsUpdated, "something_new"} {
		payload, err := json.Marshal(models.ConfigUpdateEvent{EventType: eventType})
		require.NoError(t, err)
		require.NoError(t, handler(context.Background(), broker.Message{Value: payload}))
	}
	assert.Empty(t, registry.Resolve("cam-1"), "no reload for policy, bands, or unknown events")
}

func TestConfigUpdateHandlerSwallowsBadPayload(t *testing.T) {
	registry := scenario.NewRegistry(&fakeScenarioRepo{}, config.RegistryConfig{}, logger.NopLogger())
	handler := NewConfigUpdateHandler(registry, logger.NopLogger())

	assert.NoError(t, handler(context.Background(), broker.Message{Value: []byte("{broken")}))
}
