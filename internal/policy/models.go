package policy

import (
	"time"

	"argus/internal/constants"
	"argus/pkg/models"
)

// AlertPolicy decides how a triggered classification turns into
// notifications. One row per (organization_id, risk_level).
type AlertPolicy struct {
	ID                   string                       `json:"id" db:"id"`
	OrganizationID       string                       `json:"organization_id" db:"organization_id"`
	RiskLevel            models.RiskLevel             `json:"risk_level" db:"risk_level"`
	CooldownMinutes      int                          `json:"cooldown_minutes" db:"cooldown_minutes"`
	NotificationChannels []models.NotificationChannel `json:"notification_channels" db:"notification_channels"`
	Enabled              bool                         `json:"enabled" db:"enabled"`
	CreatedAt            time.Time                    `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time                    `json:"updated_at" db:"updated_at"`
}

// CooldownWindow returns the cooldown as a duration.
func (p AlertPolicy) CooldownWindow() time.Duration {
	return time.Duration(p.CooldownMinutes) * time.Minute
}

// RiskBands holds an organization's risk level floors. One row per
// organization; medium < high < critical is validated at write time.
type RiskBands struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	MediumFloor    int       `json:"medium_floor" db:"medium_floor"`
	HighFloor      int       `json:"high_floor" db:"high_floor"`
	CriticalFloor  int       `json:"critical_floor" db:"critical_floor"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultPolicy is the hard-coded policy applied when an organization has no
// row for a risk level. Conservative on purpose: web only, standard cooldown.
func DefaultPolicy(organizationID string, level models.RiskLevel) AlertPolicy {
	return AlertPolicy{
		OrganizationID:       organizationID,
		RiskLevel:            level,
		CooldownMinutes:      constants.DefaultCooldownMinutes,
		NotificationChannels: []models.NotificationChannel{models.ChannelWeb},
		Enabled:              true,
	}
}

// SeedPolicies returns the escalating defaults inserted when an organization
// is provisioned: tighter cooldowns and more channels as severity rises.
func SeedPolicies(organizationID string) []AlertPolicy {
	return []AlertPolicy{
		{
			OrganizationID:       organizationID,
			RiskLevel:            models.RiskLevelMedium,
			CooldownMinutes:      30,
			NotificationChannels: []models.NotificationChannel{models.ChannelWeb},
			Enabled:              true,
		},
		{
			OrganizationID:       organizationID,
			RiskLevel:            models.RiskLevelHigh,
			CooldownMinutes:      15,
			NotificationChannels: []models.NotificationChannel{models.ChannelWeb, models.ChannelMobile},
			Enabled:              true,
		},
		{
			OrganizationID:       organizationID,
			RiskLevel:            models.RiskLevelCritical,
			CooldownMinutes:      5,
			NotificationChannels: []models.NotificationChannel{models.ChannelWeb, models.ChannelMobile, models.ChannelEmail, models.ChannelSMS},
			Enabled:              true,
		},
	}
}
