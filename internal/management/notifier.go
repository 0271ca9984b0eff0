package management

import (
	"context"
	"time"

	"argus/internal/broker"
	"argus/pkg/logging"
	"argus/pkg/models"
)

// ConfigEventProducer announces configuration changes on the broker so the
// alerting fleet reloads without waiting for its timed refresh.
type ConfigEventProducer struct {
	producer broker.Producer
	topic    string
}

func NewConfigEventProducer(producer broker.Producer, topic string) *ConfigEventProducer {
	return &ConfigEventProducer{
		producer: producer,
		topic:    topic,
	}
}

func (p *ConfigEventProducer) Publish(ctx context.Context, eventType, action, organizationID, resourceID string) error {
	if p.producer == nil || p.topic == "" {
		return nil
	}

	event := models.ConfigUpdateEvent{
		EventType:      eventType,
		OrganizationID: organizationID,
		ResourceID:     resourceID,
		Action:         action,
		Timestamp:      time.Now().UTC(),
		ChangedBy:      logging.GetRequestID(ctx),
	}
	return p.producer.Publish(ctx, p.topic, organizationID, event)
}
