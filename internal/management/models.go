package management

import "argus/pkg/models"

type CreateScenarioRequest struct {
	OrganizationID    string                 `json:"organization_id" binding:"required"`
	Module            string                 `json:"module" binding:"required"`
	ScenarioType      string                 `json:"scenario_type" binding:"required"`
	Name              string                 `json:"name" binding:"required"`
	Description       string                 `json:"description"`
	Enabled           *bool                  `json:"enabled"`
	SeverityThreshold int                    `json:"severity_threshold"`
	Config            map[string]interface{} `json:"config"`
	Rules             []CreateRuleRequest    `json:"rules"`
}

type UpdateScenarioRequest struct {
	Name              *string                 `json:"name"`
	Description       *string                 `json:"description"`
	Enabled           *bool                   `json:"enabled"`
	SeverityThreshold *int                    `json:"severity_threshold"`
	Config            *map[string]interface{} `json:"config"`
}

type CreateRuleRequest struct {
	RuleType  string                 `json:"rule_type" binding:"required"`
	RuleValue map[string]interface{} `json:"rule_value" binding:"required"`
	Weight    int                    `json:"weight"`
	Enabled   *bool                  `json:"enabled"`
	Order     int                    `json:"order"`
}

type UpdateRuleRequest struct {
	RuleType  *string                 `json:"rule_type"`
	RuleValue *map[string]interface{} `json:"rule_value"`
	Weight    *int                    `json:"weight"`
	Enabled   *bool                   `json:"enabled"`
	Order     *int                    `json:"order"`
}

type CreateBindingRequest struct {
	CameraID             string                 `json:"camera_id" binding:"required"`
	ScenarioID           string                 `json:"scenario_id" binding:"required"`
	Enabled              *bool                  `json:"enabled"`
	CameraSpecificConfig map[string]interface{} `json:"camera_specific_config"`
}

type UpdateBindingRequest struct {
	Enabled              *bool                   `json:"enabled"`
	CameraSpecificConfig *map[string]interface{} `json:"camera_specific_config"`
}

type CreatePolicyRequest struct {
	OrganizationID       string                       `json:"organization_id" binding:"required"`
	RiskLevel            models.RiskLevel             `json:"risk_level" binding:"required"`
	CooldownMinutes      int                          `json:"cooldown_minutes"`
	NotificationChannels []models.NotificationChannel `json:"notification_channels"`
	Enabled              *bool                        `json:"enabled"`
}

type UpdatePolicyRequest struct {
	CooldownMinutes      *int                          `json:"cooldown_minutes"`
	NotificationChannels *[]models.NotificationChannel `json:"notification_channels"`
	Enabled              *bool                         `json:"enabled"`
}

type UpsertBandsRequest struct {
	OrganizationID string `json:"organization_id" binding:"required"`
	MediumFloor    int    `json:"medium_floor" binding:"required"`
	HighFloor      int    `json:"high_floor" binding:"required"`
	CriticalFloor  int    `json:"critical_floor" binding:"required"`
}

type SeedPoliciesRequest struct {
	OrganizationID string `json:"organization_id" binding:"required"`
}
