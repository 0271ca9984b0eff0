package models

import "time"

// ConfigUpdateEvent is published by the management service whenever scenario,
// binding, policy or risk-band configuration changes, so the alerting service
// can reload its snapshot without waiting for the next timed reload.
type ConfigUpdateEvent struct {
	EventType      string                 `json:"event_type"`
	OrganizationID string                 `json:"organization_id,omitempty"`
	ResourceID     string                 `json:"resource_id,omitempty"`
	Action         string                 `json:"action"`
	Timestamp      time.Time              `json:"timestamp"`
	ChangedBy      string                 `json:"changed_by,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

const (
	EventTypeScenarioUpdated  = "scenario_updated"
	EventTypeBindingUpdated   = "camera_binding_updated"
	EventTypePolicyUpdated    = "alert_policy_updated"
	EventTypeRiskBandsUpdated = "risk_bands_updated"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionSeed   = "seed"
)
