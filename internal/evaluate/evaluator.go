package evaluate

import (
	"context"
	"time"

	"argus/internal/scenario"
	"argus/pkg/cel"
	"argus/pkg/metrics"
	"argus/pkg/models"
)

// Contribution records one rule's evaluation outcome. Weight counts toward
// the score only when Matched is true.
type Contribution struct {
	RuleID   string
	RuleType string
	Weight   int
	Matched  bool
}

// Warning flags a rule that could not be evaluated as written. Warnings never
// fail the evaluation; the rule simply contributes zero.
type Warning struct {
	ScenarioID string
	RuleID     string
	RuleType   string
	Reason     string
}

// Evaluator runs a scenario's enabled rules against a detection event. It
// holds no mutable state and is safe for concurrent use.
type Evaluator struct {
	cel *cel.Evaluator
}

func NewEvaluator(celEvaluator *cel.Evaluator) *Evaluator {
	return &Evaluator{cel: celEvaluator}
}

// Evaluate applies every enabled rule in order and returns the per-rule
// contributions. The same (scenario, override, event) always yields the same
// result apart from expression rules that consult the wall clock.
func (e *Evaluator) Evaluate(ctx context.Context, sc scenario.Scenario, override map[string]interface{}, event models.DetectionEvent) ([]Contribution, []Warning) {
	start := time.Now()
	contributions := make([]Contribution, 0, len(sc.Rules))
	var warnings []Warning

	for _, rule := range sc.Rules {
		if !rule.Enabled {
			continue
		}

		parsed := parseRule(rule, override)
		if parsed.kind == KindUnsupported {
			warnings = append(warnings, Warning{
				ScenarioID: sc.ID,
				RuleID:     rule.ID,
				RuleType:   rule.RuleType,
				Reason:     parsed.reason,
			})
			contributions = append(contributions, Contribution{
				RuleID:   rule.ID,
				RuleType: rule.RuleType,
				Weight:   rule.Weight,
				Matched:  false,
			})
			continue
		}

		matched, err := parsed.match(ctx, e.cel, event)
		if err != nil {
			warnings = append(warnings, Warning{
				ScenarioID: sc.ID,
				RuleID:     rule.ID,
				RuleType:   rule.RuleType,
				Reason:     err.Error(),
			})
			matched = false
		}

		contributions = append(contributions, Contribution{
			RuleID:   rule.ID,
			RuleType: rule.RuleType,
			Weight:   rule.Weight,
			Matched:  matched,
		})
	}

	status := "ok"
	if len(warnings) > 0 {
		status = "warning"
		for _, w := range warnings {
			metrics.RuleWarningsTotal.WithLabelValues(w.RuleType).Inc()
		}
	}
	metrics.EvaluationsTotal.WithLabelValues(status).Inc()
	metrics.ObserveEvaluationDuration(time.Since(start), status)
	return contributions, warnings
}
