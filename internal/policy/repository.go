package policy

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	pkgerrors "argus/pkg/errors"
	"argus/pkg/models"
)

const pqUniqueViolation = "23505"

// Repository persists alert policies and risk bands. Uniqueness of
// (organization_id, risk_level) and of organization_id for bands is enforced
// by database constraints, not application checks.
type Repository interface {
	GetPolicy(ctx context.Context, organizationID string, level models.RiskLevel) (*AlertPolicy, error)
	GetPolicyByID(ctx context.Context, id string) (*AlertPolicy, error)
	ListPolicies(ctx context.Context, organizationID string) ([]AlertPolicy, error)
	CreatePolicy(ctx context.Context, p *AlertPolicy) error
	UpdatePolicy(ctx context.Context, p *AlertPolicy) error
	DeletePolicy(ctx context.Context, id string) error
	SeedDefaults(ctx context.Context, organizationID string) ([]AlertPolicy, error)

	GetBands(ctx context.Context, organizationID string) (*RiskBands, error)
	UpsertBands(ctx context.Context, b *RiskBands) error
}

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetPolicy(ctx context.Context, organizationID string, level models.RiskLevel) (*AlertPolicy, error) {
	query := `
		SELECT id, organization_id, risk_level, cooldown_minutes,
		       notification_channels, enabled, created_at, updated_at
		FROM alert_policies
		WHERE organization_id = $1 AND risk_level = $2`

	return r.scanPolicy(r.db.QueryRowContext(ctx, query, organizationID, string(level)))
}

func (r *postgresRepository) GetPolicyByID(ctx context.Context, id string) (*AlertPolicy, error) {
	query := `
		SELECT id, organization_id, risk_level, cooldown_minutes,
		       notification_channels, enabled, created_at, updated_at
		FROM alert_policies
		WHERE id = $1`

	return r.scanPolicy(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresRepository) ListPolicies(ctx context.Context, organizationID string) ([]AlertPolicy, error) {
	query := `
		SELECT id, organization_id, risk_level, cooldown_minutes,
		       notification_channels, enabled, created_at, updated_at
		FROM alert_policies
		WHERE organization_id = $1
		ORDER BY risk_level`

	rows, err := r.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert policies: %w", err)
	}
	defer rows.Close()

	var policies []AlertPolicy
	for rows.Next() {
		p, err := r.scanPolicyRows(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, *p)
	}
	return policies, rows.Err()
}

func (r *postgresRepository) CreatePolicy(ctx context.Context, p *AlertPolicy) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	channels, err := json.Marshal(p.NotificationChannels)
	if err != nil {
		return fmt.Errorf("failed to encode notification channels: %w", err)
	}

	query := `
		INSERT INTO alert_policies
			(id, organization_id, risk_level, cooldown_minutes, notification_channels, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at`

	err = r.db.QueryRowContext(ctx, query, p.ID, p.OrganizationID, string(p.RiskLevel),
		p.CooldownMinutes, channels, p.Enabled).Scan(&p.CreatedAt, &p.UpdatedAt)
	if isUniqueViolation(err) {
		return pkgerrors.ErrConflict.WithCause(err).WithDetail("message",
			fmt.Sprintf("policy for organization %s and level %s already exists", p.OrganizationID, p.RiskLevel))
	}
	if err != nil {
		return fmt.Errorf("failed to create alert policy: %w", err)
	}
	return nil
}

func (r *postgresRepository) UpdatePolicy(ctx context.Context, p *AlertPolicy) error {
	channels, err := json.Marshal(p.NotificationChannels)
	if err != nil {
		return fmt.Errorf("failed to encode notification channels: %w", err)
	}

	query := `
		UPDATE alert_policies
		SET cooldown_minutes = $2, notification_channels = $3, enabled = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err = r.db.QueryRowContext(ctx, query, p.ID, p.CooldownMinutes, channels, p.Enabled).Scan(&p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return pkgerrors.ErrNotFound.WithDetail("message", "alert policy not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update alert policy: %w", err)
	}
	return nil
}

func (r *postgresRepository) DeletePolicy(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM alert_policies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert policy: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return pkgerrors.ErrNotFound.WithDetail("message", "alert policy not found")
	}
	return nil
}

// SeedDefaults inserts the escalating default policies for a new
// organization, skipping levels that already have a row.
func (r *postgresRepository) SeedDefaults(ctx context.Context, organizationID string) ([]AlertPolicy, error) {
	var seeded []AlertPolicy
	for _, p := range SeedPolicies(organizationID) {
		p := p
		err := r.CreatePolicy(ctx, &p)
		if err != nil {
			if pkgerrors.IsConflict(err) {
				continue
			}
			return nil, err
		}
		seeded = append(seeded, p)
	}
	return seeded, nil
}

func (r *postgresRepository) GetBands(ctx context.Context, organizationID string) (*RiskBands, error) {
	query := `
		SELECT id, organization_id, medium_floor, high_floor, critical_floor, created_at, updated_at
		FROM risk_bands
		WHERE organization_id = $1`

	var b RiskBands
	err := r.db.QueryRowContext(ctx, query, organizationID).Scan(
		&b.ID, &b.OrganizationID, &b.MediumFloor, &b.HighFloor, &b.CriticalFloor,
		&b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithDetail("message", "risk bands not configured")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get risk bands: %w", err)
	}
	return &b, nil
}

// UpsertBands writes an organization's floors. Monotonicity is validated by
// the management service before this is called.
func (r *postgresRepository) UpsertBands(ctx context.Context, b *RiskBands) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	query := `
		INSERT INTO risk_bands (id, organization_id, medium_floor, high_floor, critical_floor, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (organization_id) DO UPDATE
		SET medium_floor = EXCLUDED.medium_floor,
		    high_floor = EXCLUDED.high_floor,
		    critical_floor = EXCLUDED.critical_floor,
		    updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, b.ID, b.OrganizationID,
		b.MediumFloor, b.HighFloor, b.CriticalFloor).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert risk bands: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *postgresRepository) scanPolicy(row rowScanner) (*AlertPolicy, error) {
	p, err := r.scanPolicyRows(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithDetail("message", "alert policy not found")
	}
	return p, err
}

func (r *postgresRepository) scanPolicyRows(row rowScanner) (*AlertPolicy, error) {
	var p AlertPolicy
	var level string
	var channelsRaw []byte
	if err := row.Scan(&p.ID, &p.OrganizationID, &level, &p.CooldownMinutes,
		&channelsRaw, &p.Enabled, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.RiskLevel = models.RiskLevel(level)
	if len(channelsRaw) > 0 {
		if err := json.Unmarshal(channelsRaw, &p.NotificationChannels); err != nil {
			return nil, fmt.Errorf("policy %s has malformed channels: %w", p.ID, err)
		}
	}
	return &p, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation
}
