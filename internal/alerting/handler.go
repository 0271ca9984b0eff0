package alerting

import (
	"context"
	"encoding/json"

	"argus/internal/broker"
	"argus/internal/logger"
	"argus/internal/scenario"
	pkgerrors "argus/pkg/errors"
	"argus/pkg/logging"
	"argus/pkg/models"
)

// NewDetectionHandler decodes detection events off the broker and feeds them
// into the pipeline. Malformed payloads are fatal so the consumer routes
// them to the DLQ instead of retrying forever.
func NewDetectionHandler(service *Service, log logger.Logger) broker.HandlerFunc {
	return func(ctx context.Context, msg broker.Message) error {
		var event models.DetectionEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Errorw("failed to decode detection event", "error", err, "topic", msg.Topic)
			return pkgerrors.ErrValidation.WithCause(err).AsFatal()
		}

		ctx = logging.WithEventID(ctx, event.ID)
		ctx = logging.WithCameraID(ctx, event.CameraID)
		ctx = logging.WithOrgID(ctx, event.OrganizationID)

		return service.Process(ctx, event)
	}
}

// NewConfigUpdateHandler reloads the scenario registry when the management
// service announces a configuration change. Unknown event types are ignored
// so new config events stay backward compatible.
func NewConfigUpdateHandler(registry *scenario.Registry, log logger.Logger) broker.HandlerFunc {
	return func(ctx context.Context, msg broker.Message) error {
		var event models.ConfigUpdateEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Warnw("failed to decode config update event", "error", err, "topic", msg.Topic)
			return nil
		}

		switch event.EventType {
		case models.EventTypeScenarioUpdated, models.EventTypeBindingUpdated:
			log.Infow("configuration changed, reloading scenario registry",
				"event_type", event.EventType,
				"action", event.Action,
				"resource_id", event.ResourceID)
			if err := registry.Reload(ctx); err != nil {
				log.Errorw("failed to reload scenario registry after config update", "error", err)
				return err
			}
		case models.EventTypePolicyUpdated, models.EventTypeRiskBandsUpdated:
			// Policies and bands are read per event; nothing cached to refresh.
		default:
			log.Debugw("ignoring unknown config event type", "event_type", event.EventType)
		}
		return nil
	}
}
