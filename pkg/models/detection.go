package models

import (
	"fmt"
	"time"
)

// DetectionEvent is a single per-camera rule-evaluation input produced by the
// video-analytics pipeline. Events arrive already authenticated; the decision
// pipeline only checks structural validity.
type DetectionEvent struct {
	ID             string                 `json:"id"`
	CameraID       string                 `json:"camera_id"`
	OrganizationID string                 `json:"organization_id"`
	Module         string                 `json:"module"`
	ScenarioType   string                 `json:"scenario_type"`
	Attributes     map[string]interface{} `json:"attributes"`
	OccurredAt     time.Time              `json:"occurred_at"`
}

// Validate rejects structurally invalid events. A missing camera or
// organization is the only error treated as fatal to the calling request.
func (e *DetectionEvent) Validate() error {
	if e.CameraID == "" {
		return fmt.Errorf("detection event missing camera_id")
	}
	if e.OrganizationID == "" {
		return fmt.Errorf("detection event missing organization_id")
	}
	return nil
}
