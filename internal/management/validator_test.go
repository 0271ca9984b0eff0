package management

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"argus/pkg/models"
)

func TestValidateScenario(t *testing.T) {
	tests := []struct {
		name      string
		req       CreateScenarioRequest
		wantError bool
	}{
		{
			name: "valid scenario with rules",
			req: CreateScenarioRequest{
				OrganizationID: "org-1", Module: "perimeter", ScenarioType: "intrusion",
				Name: "Perimeter intrusion", SeverityThreshold: 50,
				Rules: []CreateRuleRequest{
					{RuleType: "confidence", Weight: 60, RuleValue: map[string]interface{}{"min": 0.5}},
				},
			},
			wantError: false,
		},
		{
			name: "threshold above 100",
			req: CreateScenarioRequest{
				OrganizationID: "org-1", Module: "perimeter", ScenarioType: "intrusion",
				Name: "Bad", SeverityThreshold: 101,
			},
			wantError: true,
		},
		{
			name: "negative threshold",
			req: CreateScenarioRequest{
				OrganizationID: "org-1", Module: "perimeter", ScenarioType: "intrusion",
				Name: "Bad", SeverityThreshold: -1,
			},
			wantError: true,
		},
		{
			name: "invalid nested rule",
			req: CreateScenarioRequest{
				OrganizationID: "org-1", Module: "perimeter", ScenarioType: "intrusion",
				Name: "Bad rule", SeverityThreshold: 50,
				Rules: []CreateRuleRequest{
					{RuleType: "confidence", Weight: 150, RuleValue: map[string]interface{}{"min": 0.5}},
				},
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateScenario(tt.req)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRule(t *testing.T) {
	tests := []struct {
		name      string
		req       CreateRuleRequest
		wantError bool
	}{
		{
			name:      "valid rule",
			req:       CreateRuleRequest{RuleType: "zone", Weight: 40, RuleValue: map[string]interface{}{"zones": []interface{}{"gate"}}},
			wantError: false,
		},
		{
			name:      "weight above 100",
			req:       CreateRuleRequest{RuleType: "zone", Weight: 101, RuleValue: map[string]interface{}{"zones": []interface{}{"gate"}}},
			wantError: true,
		},
		{
			name:      "missing rule_value",
			req:       CreateRuleRequest{RuleType: "zone", Weight: 40},
			wantError: true,
		},
		{
			name:      "valid CEL expression",
			req:       CreateRuleRequest{RuleType: "expression", Weight: 40, RuleValue: map[string]interface{}{"expression": `attributes.object_class == "person"`}},
			wantError: false,
		},
		{
			name:      "CEL expression does not compile",
			req:       CreateRuleRequest{RuleType: "expression", Weight: 40, RuleValue: map[string]interface{}{"expression": `this is not CEL!!!`}},
			wantError: true,
		},
		{
			name:      "CEL expression not boolean",
			req:       CreateRuleRequest{RuleType: "expression", Weight: 40, RuleValue: map[string]interface{}{"expression": `camera_id`}},
			wantError: true,
		},
		{
			name:      "expression missing from rule_value",
			req:       CreateRuleRequest{RuleType: "expression", Weight: 40, RuleValue: map[string]interface{}{"other": 1}},
			wantError: true,
		},
		{
			name: "unknown rule type accepted",
			// Accepted at write time; evaluation degrades it to zero weight.
			req:       CreateRuleRequest{RuleType: "thermal_signature", Weight: 40, RuleValue: map[string]interface{}{"min": 0.5}},
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRule(tt.req)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUpdateRule(t *testing.T) {
	weight := 150
	assert.Error(t, ValidateUpdateRule(UpdateRuleRequest{Weight: &weight}))

	ruleType := "expression"
	badValue := map[string]interface{}{"expression": "!!!"}
	assert.Error(t, ValidateUpdateRule(UpdateRuleRequest{RuleType: &ruleType, RuleValue: &badValue}))

	goodWeight := 50
	assert.NoError(t, ValidateUpdateRule(UpdateRuleRequest{Weight: &goodWeight}))
}

func TestValidatePolicy(t *testing.T) {
	tests := []struct {
		name      string
		req       CreatePolicyRequest
		wantError bool
	}{
		{
			name: "valid policy",
			req: CreatePolicyRequest{
				OrganizationID: "org-1", RiskLevel: models.RiskLevelHigh, CooldownMinutes: 15,
				NotificationChannels: []models.NotificationChannel{models.ChannelWeb, models.ChannelSMS},
			},
			wantError: false,
		},
		{
			name:      "invalid risk level",
			req:       CreatePolicyRequest{OrganizationID: "org-1", RiskLevel: "severe"},
			wantError: true,
		},
		{
			name:      "negative cooldown",
			req:       CreatePolicyRequest{OrganizationID: "org-1", RiskLevel: models.RiskLevelHigh, CooldownMinutes: -1},
			wantError: true,
		},
		{
			name: "unknown channel",
			req: CreatePolicyRequest{
				OrganizationID: "org-1", RiskLevel: models.RiskLevelHigh,
				NotificationChannels: []models.NotificationChannel{"pager"},
			},
			wantError: true,
		},
		{
			name:      "zero cooldown disables the window",
			req:       CreatePolicyRequest{OrganizationID: "org-1", RiskLevel: models.RiskLevelMedium},
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePolicy(tt.req)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateBands(t *testing.T) {
	tests := []struct {
		name      string
		req       UpsertBandsRequest
		wantError bool
	}{
		{
			name:      "valid monotonic floors",
			req:       UpsertBandsRequest{OrganizationID: "org-1", MediumFloor: 40, HighFloor: 70, CriticalFloor: 90},
			wantError: false,
		},
		{
			name:      "medium not below high",
			req:       UpsertBandsRequest{OrganizationID: "org-1", MediumFloor: 70, HighFloor: 70, CriticalFloor: 90},
			wantError: true,
		},
		{
			name:      "high above critical",
			req:       UpsertBandsRequest{OrganizationID: "org-1", MediumFloor: 40, HighFloor: 95, CriticalFloor: 90},
			wantError: true,
		},
		{
			name:      "zero medium floor",
			req:       UpsertBandsRequest{OrganizationID: "org-1", MediumFloor: 0, HighFloor: 50, CriticalFloor: 90},
			wantError: true,
		},
		{
			name:      "critical above 100",
			req:       UpsertBandsRequest{OrganizationID: "org-1", MediumFloor: 40, HighFloor: 70, CriticalFloor: 101},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBands(tt.req)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsKnownRuleType(t *testing.T) {
	assert.True(t, IsKnownRuleType("min_duration"))
	assert.True(t, IsKnownRuleType("expression"))
	assert.False(t, IsKnownRuleType("thermal_signature"))
}
