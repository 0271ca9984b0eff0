package management

import (
	"fmt"

	"argus/pkg/cel"
	"argus/pkg/models"
)

// Rule types the evaluator understands natively. Unknown types are accepted
// at write time and contribute zero weight at evaluation, so a newer control
// plane can stage rules for an older alerting fleet.
var knownRuleTypes = map[string]bool{
	"min_duration": true,
	"zone":         true,
	"object_count": true,
	"confidence":   true,
	"time_of_day":  true,
	"expression":   true,
}

var validChannels = map[models.NotificationChannel]bool{
	models.ChannelWeb:    true,
	models.ChannelMobile: true,
	models.ChannelEmail:  true,
	models.ChannelSMS:    true,
}

// IsKnownRuleType reports whether the evaluator understands the type
// natively. Used for operator warnings, not rejection.
func IsKnownRuleType(ruleType string) bool {
	return knownRuleTypes[ruleType]
}

func ValidateScenario(req CreateScenarioRequest) error {
	if req.SeverityThreshold < 0 || req.SeverityThreshold > 100 {
		return fmt.Errorf("severity_threshold must be in [0, 100]")
	}
	for i, rule := range req.Rules {
		if err := ValidateRule(rule); err != nil {
			return fmt.Errorf("rules[%d]: %w", i, err)
		}
	}
	return nil
}

func ValidateUpdateScenario(req UpdateScenarioRequest) error {
	if req.SeverityThreshold != nil && (*req.SeverityThreshold < 0 || *req.SeverityThreshold > 100) {
		return fmt.Errorf("severity_threshold must be in [0, 100]")
	}
	if req.Name != nil && *req.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	return nil
}

func ValidateRule(req CreateRuleRequest) error {
	if req.Weight < 0 || req.Weight > 100 {
		return fmt.Errorf("weight must be in [0, 100]")
	}
	if len(req.RuleValue) == 0 {
		return fmt.Errorf("rule_value is required")
	}
	if req.RuleType == "expression" {
		return validateExpression(req.RuleValue)
	}
	return nil
}

func ValidateUpdateRule(req UpdateRuleRequest) error {
	if req.Weight != nil && (*req.Weight < 0 || *req.Weight > 100) {
		return fmt.Errorf("weight must be in [0, 100]")
	}
	if req.RuleType != nil && *req.RuleType == "" {
		return fmt.Errorf("rule_type cannot be empty")
	}
	isExpression := req.RuleType != nil && *req.RuleType == "expression"
	if isExpression && req.RuleValue != nil {
		return validateExpression(*req.RuleValue)
	}
	return nil
}

func validateExpression(ruleValue map[string]interface{}) error {
	expr, ok := ruleValue["expression"].(string)
	if !ok || expr == "" {
		return fmt.Errorf("rule_value.expression is required for expression rules")
	}

	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return fmt.Errorf("failed to create CEL evaluator: %w", err)
	}
	if err := evaluator.ValidatePredicate(expr); err != nil {
		return fmt.Errorf("invalid CEL expression: %w", err)
	}
	return nil
}

func ValidatePolicy(req CreatePolicyRequest) error {
	if !req.RiskLevel.Valid() {
		return fmt.Errorf("invalid risk_level: %s. Allowed: medium, high, critical", req.RiskLevel)
	}
	if req.CooldownMinutes < 0 {
		return fmt.Errorf("cooldown_minutes must be non-negative")
	}
	return validateChannels(req.NotificationChannels)
}

func ValidateUpdatePolicy(req UpdatePolicyRequest) error {
	if req.CooldownMinutes != nil && *req.CooldownMinutes < 0 {
		return fmt.Errorf("cooldown_minutes must be non-negative")
	}
	if req.NotificationChannels != nil {
		return validateChannels(*req.NotificationChannels)
	}
	return nil
}

func validateChannels(channels []models.NotificationChannel) error {
	for _, ch := range channels {
		if !validChannels[ch] {
			return fmt.Errorf("invalid notification channel: %s. Allowed: web, mobile, email, sms", ch)
		}
	}
	return nil
}

// ValidateBands enforces the strict ordering the classifier trusts at read
// time.
func ValidateBands(req UpsertBandsRequest) error {
	if req.MediumFloor <= 0 || req.CriticalFloor > 100 {
		return fmt.Errorf("band floors must be in (0, 100]")
	}
	if !(req.MediumFloor < req.HighFloor && req.HighFloor < req.CriticalFloor) {
		return fmt.Errorf("band floors must satisfy medium < high < critical")
	}
	return nil
}
