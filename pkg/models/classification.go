package models

import "time"

// RiskLevel names the band a triggered score falls into.
type RiskLevel string

const (
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// Valid reports whether the level is one of the three named bands.
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLevelMedium, RiskLevelHigh, RiskLevelCritical:
		return true
	}
	return false
}

// RiskLevels lists the bands in ascending order of severity.
func RiskLevels() []RiskLevel {
	return []RiskLevel{RiskLevelMedium, RiskLevelHigh, RiskLevelCritical}
}

// Classification is the transient result of scoring one scenario against one
// detection event. A risk level is assigned only when the scenario triggered.
type Classification struct {
	ScenarioID     string    `json:"scenario_id"`
	CameraID       string    `json:"camera_id"`
	OrganizationID string    `json:"organization_id"`
	RiskScore      int       `json:"risk_score"`
	RiskLevel      RiskLevel `json:"risk_level,omitempty"`
	Triggered      bool      `json:"triggered"`
	Timestamp      time.Time `json:"timestamp"`
}

// Audit outcomes. Every classification is offered to the audit sink with one
// of these, independent of whether a notification was produced.
const (
	OutcomeNotTriggered = "not_triggered"
	OutcomeSuppressed   = "suppressed"
	OutcomeDispatched   = "dispatched"
)

// AuditRecord wraps a classification with the pipeline outcome for the
// audit/analytics sink.
type AuditRecord struct {
	Classification Classification `json:"classification"`
	Outcome        string         `json:"outcome"`
	EventID        string         `json:"event_id,omitempty"`
}

// NotificationChannel identifies a delivery channel owned by an external
// sender collaborator.
type NotificationChannel string

const (
	ChannelWeb    NotificationChannel = "web"
	ChannelMobile NotificationChannel = "mobile"
	ChannelEmail  NotificationChannel = "email"
	ChannelSMS    NotificationChannel = "sms"
)

// NotificationIntent is a request to deliver one alert on one channel.
// Delivery, retries and quota accounting belong to the channel senders.
type NotificationIntent struct {
	ID             string              `json:"id"`
	OrganizationID string              `json:"organization_id"`
	CameraID       string              `json:"camera_id,omitempty"`
	ScenarioID     string              `json:"scenario_id,omitempty"`
	Channel        NotificationChannel `json:"channel"`
	RiskLevel      RiskLevel           `json:"risk_level"`
	RiskScore      int                 `json:"risk_score"`
	Title          string              `json:"title,omitempty"`
	Body           string              `json:"body,omitempty"`
	Timestamp      time.Time           `json:"timestamp"`
}
