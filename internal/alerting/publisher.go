package alerting

import (
	"context"

	"argus/internal/broker"
	"argus/pkg/models"
)

// brokerPublisher publishes pipeline outputs to their broker topics. Intents
// are keyed by organization so one tenant's alerts stay ordered; audit
// records are keyed by scenario for downstream aggregation.
type brokerPublisher struct {
	producer    broker.Producer
	intentTopic string
	auditTopic  string
}

func NewBrokerPublisher(producer broker.Producer, intentTopic, auditTopic string) Publisher {
	return &brokerPublisher{
		producer:    producer,
		intentTopic: intentTopic,
		auditTopic:  auditTopic,
	}
}

func (p *brokerPublisher) PublishIntent(ctx context.Context, intent models.NotificationIntent) error {
	return p.producer.Publish(ctx, p.intentTopic, intent.OrganizationID, intent)
}

func (p *brokerPublisher) PublishAudit(ctx context.Context, record models.AuditRecord) error {
	return p.producer.Publish(ctx, p.auditTopic, record.Classification.ScenarioID, record)
}
