package triggers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"argus/pkg/models"
)

// CameraCount is a per-camera event count inside a sweep window.
type CameraCount struct {
	CameraID string
	Count    int
}

// ModuleActivity is the last time a module produced an event for an
// organization.
type ModuleActivity struct {
	Module   string
	LastSeen time.Time
}

// Repository persists the rolling event log the pattern sweeps query. Rows
// are written by the alerting pipeline as events are processed and pruned on
// a retention window.
type Repository interface {
	RecordEvent(ctx context.Context, event models.DetectionEvent, riskScore int, triggered bool) error
	CountByScenarioType(ctx context.Context, organizationID, scenarioType string, since time.Time) (int, error)
	CountPerCamera(ctx context.Context, organizationID, scenarioType string, since time.Time, minCount int) ([]CameraCount, error)
	CountHighRisk(ctx context.Context, organizationID string, minScore int, since time.Time) (int, error)
	CountLowConfidence(ctx context.Context, organizationID string, maxConfidence float64, since time.Time) (int, error)
	ModuleActivities(ctx context.Context, organizationID string, activeSince time.Time) ([]ModuleActivity, error)
	ActiveOrganizations(ctx context.Context, since time.Time) ([]string, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) RecordEvent(ctx context.Context, event models.DetectionEvent, riskScore int, triggered bool) error {
	var confidence sql.NullFloat64
	if c, ok := event.Attributes["confidence"].(float64); ok {
		confidence = sql.NullFloat64{Float64: c, Valid: true}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	query := `
		INSERT INTO detection_event_log
			(id, event_id, organization_id, camera_id, module, scenario_type,
			 risk_score, triggered, confidence, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())`

	_, err := r.db.ExecContext(ctx, query,
		uuid.New().String(), event.ID, event.OrganizationID, event.CameraID,
		event.Module, event.ScenarioType, riskScore, triggered, confidence, occurredAt)
	if err != nil {
		return fmt.Errorf("failed to record detection event: %w", err)
	}
	return nil
}

func (r *postgresRepository) CountByScenarioType(ctx context.Context, organizationID, scenarioType string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM detection_event_log
		WHERE organization_id = $1 AND scenario_type = $2 AND occurred_at >= $3`

	var count int
	if err := r.db.QueryRowContext(ctx, query, organizationID, scenarioType, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events by scenario type: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) CountPerCamera(ctx context.Context, organizationID, scenarioType string, since time.Time, minCount int) ([]CameraCount, error) {
	query := `
		SELECT camera_id, COUNT(*)
		FROM detection_event_log
		WHERE organization_id = $1 AND scenario_type = $2 AND occurred_at >= $3
		GROUP BY camera_id
		HAVING COUNT(*) >= $4`

	rows, err := r.db.QueryContext(ctx, query, organizationID, scenarioType, since, minCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count events per camera: %w", err)
	}
	defer rows.Close()

	var counts []CameraCount
	for rows.Next() {
		var c CameraCount
		if err := rows.Scan(&c.CameraID, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (r *postgresRepository) CountHighRisk(ctx context.Context, organizationID string, minScore int, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM detection_event_log
		WHERE organization_id = $1 AND risk_score >= $2 AND occurred_at >= $3`

	var count int
	if err := r.db.QueryRowContext(ctx, query, organizationID, minScore, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count high-risk events: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) CountLowConfidence(ctx context.Context, organizationID string, maxConfidence float64, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM detection_event_log
		WHERE organization_id = $1 AND confidence IS NOT NULL
		  AND confidence < $2 AND occurred_at >= $3`

	var count int
	if err := r.db.QueryRowContext(ctx, query, organizationID, maxConfidence, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count low-confidence events: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) ModuleActivities(ctx context.Context, organizationID string, activeSince time.Time) ([]ModuleActivity, error) {
	query := `
		SELECT module, MAX(occurred_at)
		FROM detection_event_log
		WHERE organization_id = $1 AND module <> '' AND occurred_at >= $2
		GROUP BY module`

	rows, err := r.db.QueryContext(ctx, query, organizationID, activeSince)
	if err != nil {
		return nil, fmt.Errorf("failed to load module activity: %w", err)
	}
	defer rows.Close()

	var activities []ModuleActivity
	for rows.Next() {
		var a ModuleActivity
		if err := rows.Scan(&a.Module, &a.LastSeen); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func (r *postgresRepository) ActiveOrganizations(ctx context.Context, since time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT organization_id
		FROM detection_event_log
		WHERE occurred_at >= $1`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list active organizations: %w", err)
	}
	defer rows.Close()

	var orgs []string
	for rows.Next() {
		var org string
		if err := rows.Scan(&org); err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

func (r *postgresRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM detection_event_log WHERE occurred_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune event log: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
