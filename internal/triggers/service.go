package triggers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"argus/internal/config"
	"argus/internal/dedup"
	"argus/internal/logger"
	"argus/pkg/metrics"
	"argus/pkg/models"
)

// Sweep rule parameters. These describe aggregate patterns no single-event
// scenario can express; values mirror the thresholds operations teams have
// run with in production.
const (
	fireSpikeMin        = 3
	fireSpikeWindow     = 5 * time.Minute
	intrusionMinPerCam  = 5
	intrusionWindow     = 10 * time.Minute
	highRiskMin         = 10
	highRiskScore       = 80
	highRiskWindow      = 15 * time.Minute
	inactivityThreshold = 2 * time.Hour
	inactivityLookback  = 24 * time.Hour
	lowConfidenceMin    = 20
	lowConfidenceCeil   = 0.6
	lowConfidenceWindow = time.Hour

	retention = 48 * time.Hour
)

const (
	triggerFireSpike     = "fire_spike"
	triggerIntrusions    = "repeated_intrusions"
	triggerHighRisk      = "high_risk_concentration"
	triggerInactivity    = "module_inactivity"
	triggerLowConfidence = "low_confidence_drift"
)

// IntentPublisher is the slice of the pipeline publisher the sweeps need.
type IntentPublisher interface {
	PublishIntent(ctx context.Context, intent models.NotificationIntent) error
}

// Service periodically scans the event log for aggregate patterns and emits
// synthetic alerts for them. Each trigger is cooled down through the shared
// dedup window so a persisting condition fires once per window, not once per
// sweep.
type Service struct {
	repo      Repository
	dedup     *dedup.Service
	publisher IntentPublisher
	cfg       config.TriggersConfig
	logger    logger.Logger
}

func NewService(repo Repository, dedupService *dedup.Service, publisher IntentPublisher, cfg config.TriggersConfig, log logger.Logger) *Service {
	return &Service{
		repo:      repo,
		dedup:     dedupService,
		publisher: publisher,
		cfg:       cfg,
		logger:    log,
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	interval := time.Duration(s.cfg.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Warnw("pattern trigger sweep failed", "error", err)
			}
		}
	}
}

// Sweep evaluates every pattern rule for every organization with recent
// activity. One organization failing does not stop the others.
func (s *Service) Sweep(ctx context.Context) error {
	orgs, err := s.repo.ActiveOrganizations(ctx, time.Now().Add(-inactivityLookback))
	if err != nil {
		return err
	}

	for _, org := range orgs {
		if err := s.sweepOrganization(ctx, org); err != nil {
			s.logger.Warnw("trigger sweep failed for organization",
				"organization_id", org, "error", err)
		}
	}

	if deleted, err := s.repo.Prune(ctx, time.Now().Add(-retention)); err != nil {
		s.logger.Warnw("event log prune failed", "error", err)
	} else if deleted > 0 {
		s.logger.Debugw("pruned event log", "deleted", deleted)
	}
	return nil
}

func (s *Service) sweepOrganization(ctx context.Context, org string) error {
	now := time.Now().UTC()

	count, err := s.repo.CountByScenarioType(ctx, org, "fire_detection", now.Add(-fireSpikeWindow))
	if err != nil {
		return err
	}
	if count >= fireSpikeMin {
		s.fire(ctx, org, triggerFireSpike, triggerFireSpike, models.RiskLevelCritical, "",
			fmt.Sprintf("%d fire detections in the last %s", count, fireSpikeWindow))
	}

	cameras, err := s.repo.CountPerCamera(ctx, org, "intrusion", now.Add(-intrusionWindow), intrusionMinPerCam)
	if err != nil {
		return err
	}
	for _, c := range cameras {
		s.fire(ctx, org, triggerIntrusions, triggerIntrusions+":"+c.CameraID, models.RiskLevelHigh, c.CameraID,
			fmt.Sprintf("%d intrusions on camera %s in the last %s", c.Count, c.CameraID, intrusionWindow))
	}

	count, err = s.repo.CountHighRisk(ctx, org, highRiskScore, now.Add(-highRiskWindow))
	if err != nil {
		return err
	}
	if count >= highRiskMin {
		s.fire(ctx, org, triggerHighRisk, triggerHighRisk, models.RiskLevelCritical, "",
			fmt.Sprintf("%d events scored %d or above in the last %s", count, highRiskScore, highRiskWindow))
	}

	activities, err := s.repo.ModuleActivities(ctx, org, now.Add(-inactivityLookback))
	if err != nil {
		return err
	}
	for _, a := range activities {
		if now.Sub(a.LastSeen) >= inactivityThreshold {
			s.fire(ctx, org, triggerInactivity, triggerInactivity+":"+a.Module, models.RiskLevelMedium, "",
				fmt.Sprintf("module %s has been silent since %s", a.Module, a.LastSeen.Format(time.RFC3339)))
		}
	}

	count, err = s.repo.CountLowConfidence(ctx, org, lowConfidenceCeil, now.Add(-lowConfidenceWindow))
	if err != nil {
		return err
	}
	if count >= lowConfidenceMin {
		s.fire(ctx, org, triggerLowConfidence, triggerLowConfidence, models.RiskLevelMedium, "",
			fmt.Sprintf("%d detections below confidence %.1f in the last %s", count, lowConfidenceCeil, lowConfidenceWindow))
	}
	return nil
}

// fire emits a synthetic intent for a pattern, at most once per cooldown
// window per (organization, scope). Scope narrows the window below the
// trigger name when the pattern is per-camera or per-module.
func (s *Service) fire(ctx context.Context, org, name, scope string, level models.RiskLevel, cameraID, detail string) {
	cooldown := time.Duration(s.cfg.CooldownMinutes) * time.Minute
	if cooldown <= 0 {
		cooldown = 30 * time.Minute
	}
	if !s.dedup.AllowOnce(ctx, dedup.TriggerKey(org, scope), cooldown) {
		return
	}

	intent := models.NotificationIntent{
		ID:             uuid.New().String(),
		OrganizationID: org,
		CameraID:       cameraID,
		Channel:        models.ChannelWeb,
		RiskLevel:      level,
		Title:          fmt.Sprintf("Pattern detected: %s", name),
		Body:           detail,
		Timestamp:      time.Now().UTC(),
	}
	if err := s.publisher.PublishIntent(ctx, intent); err != nil {
		s.logger.Warnw("failed to publish pattern trigger intent",
			"trigger", name, "organization_id", org, "error", err)
		return
	}

	metrics.TriggerFiringsTotal.WithLabelValues(name).Inc()
	s.logger.Infow("pattern trigger fired",
		"trigger", name,
		"organization_id", org,
		"risk_level", level)
}
