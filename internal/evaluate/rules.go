package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"argus/internal/scenario"
	"argus/pkg/cel"
	"argus/pkg/models"
)

// RuleKind is the closed set of supported rule predicates. Anything else
// degrades to KindUnsupported and contributes zero weight.
type RuleKind string

const (
	KindMinDuration RuleKind = "min_duration"
	KindZone        RuleKind = "zone"
	KindObjectCount RuleKind = "object_count"
	KindConfidence  RuleKind = "confidence"
	KindTimeOfDay   RuleKind = "time_of_day"
	KindExpression  RuleKind = "expression"
	KindUnsupported RuleKind = "unsupported"
)

// parsedRule is a rule whose parameters have been resolved against any
// camera-specific overrides. Match is side-effect free.
type parsedRule struct {
	kind   RuleKind
	reason string // populated for KindUnsupported

	minSeconds float64
	zones      map[string]struct{}
	minCount   float64
	maxCount   float64
	hasMax     bool
	minConf    float64
	startMin   int // minutes since midnight
	endMin     int
	expression string
}

// parseRule resolves a rule's effective parameters. Parsing never fails;
// malformed values demote the rule to unsupported with a reason.
func parseRule(rule scenario.Rule, override map[string]interface{}) parsedRule {
	params := effectiveParams(rule, override)

	switch RuleKind(rule.RuleType) {
	case KindMinDuration:
		seconds, ok := toFloat(params["seconds"])
		if !ok || seconds < 0 {
			return unsupported("min_duration requires a non-negative seconds value")
		}
		return parsedRule{kind: KindMinDuration, minSeconds: seconds}

	case KindZone:
		raw, ok := params["zones"].([]interface{})
		if !ok || len(raw) == 0 {
			return unsupported("zone requires a non-empty zones list")
		}
		zones := make(map[string]struct{}, len(raw))
		for _, z := range raw {
			name, ok := z.(string)
			if !ok {
				return unsupported("zone list contains a non-string entry")
			}
			zones[name] = struct{}{}
		}
		return parsedRule{kind: KindZone, zones: zones}

	case KindObjectCount:
		min, ok := toFloat(params["min"])
		if !ok {
			return unsupported("object_count requires a numeric min")
		}
		p := parsedRule{kind: KindObjectCount, minCount: min}
		if max, ok := toFloat(params["max"]); ok {
			p.maxCount = max
			p.hasMax = true
		}
		return p

	case KindConfidence:
		min, ok := toFloat(params["min"])
		if !ok || min < 0 || min > 1 {
			return unsupported("confidence requires a min in [0,1]")
		}
		return parsedRule{kind: KindConfidence, minConf: min}

	case KindTimeOfDay:
		start, okS := toMinutes(params["start"])
		end, okE := toMinutes(params["end"])
		if !okS || !okE {
			return unsupported("time_of_day requires start and end as HH:MM")
		}
		return parsedRule{kind: KindTimeOfDay, startMin: start, endMin: end}

	case KindExpression:
		expr, ok := params["expression"].(string)
		if !ok || strings.TrimSpace(expr) == "" {
			return unsupported("expression requires a non-empty expression string")
		}
		return parsedRule{kind: KindExpression, expression: expr}

	default:
		return unsupported(fmt.Sprintf("unknown rule type %q", rule.RuleType))
	}
}

// effectiveParams overlays the binding's camera_specific_config entry for this
// rule type on top of the rule's own parameters.
func effectiveParams(rule scenario.Rule, override map[string]interface{}) map[string]interface{} {
	if override == nil {
		return rule.RuleValue
	}
	extra, ok := override[rule.RuleType].(map[string]interface{})
	if !ok {
		return rule.RuleValue
	}
	merged := make(map[string]interface{}, len(rule.RuleValue)+len(extra))
	for k, v := range rule.RuleValue {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func unsupported(reason string) parsedRule {
	return parsedRule{kind: KindUnsupported, reason: reason}
}

// match reports whether the event satisfies the rule predicate. Unsupported
// rules never match.
func (p parsedRule) match(ctx context.Context, evaluator *cel.Evaluator, event models.DetectionEvent) (bool, error) {
	switch p.kind {
	case KindMinDuration:
		duration, ok := toFloat(event.Attributes["duration_seconds"])
		return ok && duration >= p.minSeconds, nil

	case KindZone:
		zone, ok := event.Attributes["zone"].(string)
		if !ok {
			return false, nil
		}
		_, found := p.zones[zone]
		return found, nil

	case KindObjectCount:
		count, ok := toFloat(event.Attributes["object_count"])
		if !ok || count < p.minCount {
			return false, nil
		}
		if p.hasMax && count > p.maxCount {
			return false, nil
		}
		return true, nil

	case KindConfidence:
		confidence, ok := toFloat(event.Attributes["confidence"])
		return ok && confidence >= p.minConf, nil

	case KindTimeOfDay:
		return p.inWindow(event.OccurredAt), nil

	case KindExpression:
		return evaluator.EvaluatePredicate(ctx, p.expression, event)

	default:
		return false, nil
	}
}

// inWindow handles windows that wrap midnight (start > end means the window
// spans the day boundary).
func (p parsedRule) inWindow(at time.Time) bool {
	minute := at.UTC().Hour()*60 + at.UTC().Minute()
	if p.startMin <= p.endMin {
		return minute >= p.startMin && minute < p.endMin
	}
	return minute >= p.startMin || minute < p.endMin
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toMinutes(v interface{}) (int, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
