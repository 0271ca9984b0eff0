package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"argus/internal/dedup"
	"argus/internal/policy"
	"argus/internal/scenario"
	"argus/pkg/metrics"
	"argus/pkg/models"
)

// Dispatcher turns a triggered classification into notification intents,
// gated by the per-(org, scenario, level) cooldown window. Losing the window
// race is the normal case under event bursts, not a failure.
type Dispatcher struct {
	dedup *dedup.Service
}

func NewDispatcher(dedupService *dedup.Service) *Dispatcher {
	return &Dispatcher{dedup: dedupService}
}

// Dispatch returns one intent per enabled channel, or nil when the
// classification did not trigger or lost the cooldown window. The second
// return reports whether the alert was suppressed by cooldown.
func (d *Dispatcher) Dispatch(ctx context.Context, c models.Classification, sc scenario.Scenario, pol policy.AlertPolicy) ([]models.NotificationIntent, bool) {
	if !c.Triggered {
		return nil, false
	}

	key := dedup.CooldownKey(c.OrganizationID, c.ScenarioID, c.RiskLevel)
	if !d.dedup.AllowOnce(ctx, key, pol.CooldownWindow()) {
		metrics.SuppressedAlertsTotal.WithLabelValues(string(c.RiskLevel)).Inc()
		return nil, true
	}

	channels := effectiveChannels(pol, sc)
	intents := make([]models.NotificationIntent, 0, len(channels))
	for _, channel := range channels {
		intent := models.NotificationIntent{
			ID:             uuid.New().String(),
			OrganizationID: c.OrganizationID,
			CameraID:       c.CameraID,
			ScenarioID:     c.ScenarioID,
			Channel:        channel,
			RiskLevel:      c.RiskLevel,
			RiskScore:      c.RiskScore,
			Title:          fmt.Sprintf("%s alert: %s", c.RiskLevel, sc.Name),
			Body:           fmt.Sprintf("Scenario %q scored %d on camera %s", sc.Name, c.RiskScore, c.CameraID),
			Timestamp:      time.Now().UTC(),
		}
		intents = append(intents, intent)
		metrics.DispatchedIntentsTotal.WithLabelValues(string(channel), string(c.RiskLevel)).Inc()
	}
	return intents, false
}

// effectiveChannels merges the policy's channels with any extra
// notification_channels listed in the scenario config, deduplicated and in
// stable order.
func effectiveChannels(pol policy.AlertPolicy, sc scenario.Scenario) []models.NotificationChannel {
	seen := make(map[models.NotificationChannel]struct{}, len(pol.NotificationChannels))
	channels := make([]models.NotificationChannel, 0, len(pol.NotificationChannels))
	add := func(ch models.NotificationChannel) {
		if _, ok := seen[ch]; ok {
			return
		}
		seen[ch] = struct{}{}
		channels = append(channels, ch)
	}

	for _, ch := range pol.NotificationChannels {
		add(ch)
	}
	if extra, ok := sc.Config["notification_channels"].([]interface{}); ok {
		for _, raw := range extra {
			if name, ok := raw.(string); ok {
				add(models.NotificationChannel(name))
			}
		}
	}
	return channels
}
