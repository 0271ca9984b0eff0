package alerting

import (
	"context"
	"time"

	"argus/internal/constants"
	"argus/internal/dedup"
	"argus/internal/evaluate"
	"argus/internal/logger"
	"argus/internal/policy"
	"argus/internal/scenario"
	pkgerrors "argus/pkg/errors"
	"argus/pkg/models"
)

// Publisher delivers pipeline outputs to the broker.
type Publisher interface {
	PublishIntent(ctx context.Context, intent models.NotificationIntent) error
	PublishAudit(ctx context.Context, record models.AuditRecord) error
}

// EventRecorder persists processed events for the pattern-trigger sweeps.
type EventRecorder interface {
	RecordEvent(ctx context.Context, event models.DetectionEvent, riskScore int, triggered bool) error
}

// Service runs the full decision pipeline for one detection event: binding
// resolution, rule evaluation, risk aggregation, cooldown gate, policy
// resolution and dispatch.
type Service struct {
	registry   *scenario.Registry
	evaluator  *evaluate.Evaluator
	resolver   *policy.Resolver
	dispatcher *Dispatcher
	dedup      *dedup.Service
	publisher  Publisher
	recorder   EventRecorder
	logger     logger.Logger
}

func NewService(
	registry *scenario.Registry,
	evaluator *evaluate.Evaluator,
	resolver *policy.Resolver,
	dispatcher *Dispatcher,
	dedupService *dedup.Service,
	publisher Publisher,
	recorder EventRecorder,
	log logger.Logger,
) *Service {
	return &Service{
		registry:   registry,
		evaluator:  evaluator,
		resolver:   resolver,
		dispatcher: dispatcher,
		dedup:      dedupService,
		publisher:  publisher,
		recorder:   recorder,
		logger:     log,
	}
}

// Process evaluates every active scenario bound to the event's camera.
// Structural validation is the only fatal failure; a camera with no bindings
// is a silent no-op. Classifications are audited whether or not they
// produced a notification.
func (s *Service) Process(ctx context.Context, event models.DetectionEvent) error {
	if err := event.Validate(); err != nil {
		return pkgerrors.ErrValidation.WithCause(err).AsFatal()
	}

	bindings := s.registry.Resolve(event.CameraID)
	if len(bindings) == 0 {
		return nil
	}

	bands := s.resolver.ResolveBands(ctx, event.OrganizationID)
	maxScore := 0
	anyTriggered := false

	for _, active := range bindings {
		sc := active.Scenario
		if sc.OrganizationID != event.OrganizationID {
			// The binding belongs to another tenant's scenario; never
			// evaluate across the organization boundary.
			continue
		}
		if !scenarioApplies(sc, event) {
			continue
		}

		override := active.Binding.CameraSpecificConfig
		contributions, warnings := s.evaluator.Evaluate(ctx, sc, override, event)
		s.logWarnings(ctx, warnings)

		score := evaluate.Score(contributions)
		threshold := effectiveThreshold(sc, override)
		triggered, level := evaluate.Classify(score, threshold, bands)

		classification := models.Classification{
			ScenarioID:     sc.ID,
			CameraID:       event.CameraID,
			OrganizationID: event.OrganizationID,
			RiskScore:      score,
			RiskLevel:      level,
			Triggered:      triggered,
			Timestamp:      time.Now().UTC(),
		}
		if score > maxScore {
			maxScore = score
		}
		if triggered {
			anyTriggered = true
		}

		outcome := models.OutcomeNotTriggered
		if triggered {
			var err error
			outcome, err = s.dispatch(ctx, classification, sc)
			if err != nil {
				return err
			}
		}
		s.audit(ctx, classification, event.ID, outcome)
	}

	if s.recorder != nil {
		if err := s.recorder.RecordEvent(ctx, event, maxScore, anyTriggered); err != nil {
			s.logger.WarnwCtx(ctx, "failed to record event for pattern triggers", "error", err)
		}
	}
	return nil
}

// dispatch resolves the alert policy and runs the cooldown-gated dispatcher.
// Publish failures are retryable: the consumer redelivers and the cooldown
// window keeps the retry from double-alerting.
func (s *Service) dispatch(ctx context.Context, c models.Classification, sc scenario.Scenario) (string, error) {
	pol, err := s.resolver.Resolve(ctx, c.OrganizationID, c.RiskLevel)
	if err != nil {
		return "", pkgerrors.ErrInternal.WithCause(err).WithDetail("message", "failed to resolve alert policy")
	}

	intents, suppressed := s.dispatcher.Dispatch(ctx, c, sc, pol)
	if suppressed {
		s.logger.DebugwCtx(ctx, "alert suppressed by cooldown",
			"scenario_id", c.ScenarioID,
			"risk_level", c.RiskLevel)
		return models.OutcomeSuppressed, nil
	}

	for _, intent := range intents {
		if err := s.publisher.PublishIntent(ctx, intent); err != nil {
			return "", pkgerrors.ErrServiceUnavailable.WithCause(err).WithDetail("message", "failed to publish notification intent")
		}
	}
	return models.OutcomeDispatched, nil
}

// audit is best effort; losing an audit record never blocks alerting.
func (s *Service) audit(ctx context.Context, c models.Classification, eventID, outcome string) {
	record := models.AuditRecord{
		Classification: c,
		Outcome:        outcome,
		EventID:        eventID,
	}
	if err := s.publisher.PublishAudit(ctx, record); err != nil {
		s.logger.WarnwCtx(ctx, "failed to publish audit record",
			"scenario_id", c.ScenarioID,
			"outcome", outcome,
			"error", err)
	}
}

// logWarnings reports misconfigured rules, throttled so one bad rule on a
// busy camera does not flood the logs.
func (s *Service) logWarnings(ctx context.Context, warnings []evaluate.Warning) {
	for _, w := range warnings {
		key := dedup.WarnKey(w.ScenarioID, w.RuleType)
		if !s.dedup.AllowOnce(ctx, key, constants.WarnThrottleTTL) {
			continue
		}
		s.logger.WarnwCtx(ctx, "rule skipped during evaluation",
			"scenario_id", w.ScenarioID,
			"rule_id", w.RuleID,
			"rule_type", w.RuleType,
			"reason", w.Reason)
	}
}

// scenarioApplies restricts evaluation to scenarios matching the event's
// module and type. Events that do not declare either field match everything
// bound to the camera.
func scenarioApplies(sc scenario.Scenario, event models.DetectionEvent) bool {
	if event.Module != "" && sc.Module != event.Module {
		return false
	}
	if event.ScenarioType != "" && sc.ScenarioType != event.ScenarioType {
		return false
	}
	return true
}

// effectiveThreshold lets a binding raise or lower the scenario's severity
// threshold for one camera.
func effectiveThreshold(sc scenario.Scenario, override map[string]interface{}) int {
	if override != nil {
		if raw, ok := override["severity_threshold"]; ok {
			switch v := raw.(type) {
			case float64:
				return int(v)
			case int:
				return v
			}
		}
	}
	return sc.SeverityThreshold
}
