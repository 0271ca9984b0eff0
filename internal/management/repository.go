package management

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"argus/internal/scenario"
	pkgerrors "argus/pkg/errors"
)

const pqUniqueViolation = "23505"

// Repository is the write side of the scenario graph. Uniqueness of
// (organization_id, module, scenario_type) and (camera_id, scenario_id) is
// enforced by database constraints; rules and bindings cascade on scenario
// delete.
type Repository interface {
	CreateScenario(ctx context.Context, s *scenario.Scenario) error
	GetScenario(ctx context.Context, id string) (*scenario.Scenario, error)
	ListScenarios(ctx context.Context, organizationID string) ([]scenario.Scenario, error)
	UpdateScenario(ctx context.Context, s *scenario.Scenario) error
	DeleteScenario(ctx context.Context, id string) error

	CreateRule(ctx context.Context, r *scenario.Rule) error
	UpdateRule(ctx context.Context, r *scenario.Rule) error
	DeleteRule(ctx context.Context, id string) error
	GetRule(ctx context.Context, id string) (*scenario.Rule, error)

	CreateBinding(ctx context.Context, b *scenario.CameraBinding) error
	GetBinding(ctx context.Context, id string) (*scenario.CameraBinding, error)
	ListBindings(ctx context.Context, scenarioID string) ([]scenario.CameraBinding, error)
	UpdateBinding(ctx context.Context, b *scenario.CameraBinding) error
	DeleteBinding(ctx context.Context, id string) error
}

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateScenario(ctx context.Context, s *scenario.Scenario) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	config, err := marshalMap(s.Config)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO ai_scenarios
			(id, organization_id, module, scenario_type, name, description,
			 enabled, severity_threshold, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at`

	err = tx.QueryRowContext(ctx, query, s.ID, s.OrganizationID, s.Module,
		s.ScenarioType, s.Name, s.Description, s.Enabled, s.SeverityThreshold,
		config).Scan(&s.CreatedAt, &s.UpdatedAt)
	if isUniqueViolation(err) {
		return pkgerrors.ErrConflict.WithCause(err).WithDetail("message",
			fmt.Sprintf("scenario %s/%s already exists for organization %s", s.Module, s.ScenarioType, s.OrganizationID))
	}
	if err != nil {
		return fmt.Errorf("failed to create scenario: %w", err)
	}

	for i := range s.Rules {
		s.Rules[i].ScenarioID = s.ID
		if err := insertRule(ctx, tx, &s.Rules[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scenario: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetScenario(ctx context.Context, id string) (*scenario.Scenario, error) {
	query := `
		SELECT id, organization_id, module, scenario_type, name, description,
		       enabled, severity_threshold, config, created_at, updated_at
		FROM ai_scenarios
		WHERE id = $1`

	var s scenario.Scenario
	var configRaw []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.OrganizationID,
		&s.Module, &s.ScenarioType, &s.Name, &s.Description, &s.Enabled,
		&s.SeverityThreshold, &configRaw, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithDetail("message", "scenario not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scenario: %w", err)
	}
	if err := unmarshalMap(configRaw, &s.Config); err != nil {
		return nil, err
	}

	rules, err := r.listRules(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.Rules = rules
	return &s, nil
}

func (r *postgresRepository) ListScenarios(ctx context.Context, organizationID string) ([]scenario.Scenario, error) {
	query := `
		SELECT id, organization_id, module, scenario_type, name, description,
		       enabled, severity_threshold, config, created_at, updated_at
		FROM ai_scenarios
		WHERE organization_id = $1
		ORDER BY module, scenario_type`

	rows, err := r.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	defer rows.Close()

	var scenarios []scenario.Scenario
	for rows.Next() {
		var s scenario.Scenario
		var configRaw []byte
		if err := rows.Scan(&s.ID, &s.OrganizationID, &s.Module, &s.ScenarioType,
			&s.Name, &s.Description, &s.Enabled, &s.SeverityThreshold,
			&configRaw, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalMap(configRaw, &s.Config); err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, rows.Err()
}

func (r *postgresRepository) UpdateScenario(ctx context.Context, s *scenario.Scenario) error {
	config, err := marshalMap(s.Config)
	if err != nil {
		return err
	}

	query := `
		UPDATE ai_scenarios
		SET name = $2, description = $3, enabled = $4, severity_threshold = $5,
		    config = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err = r.db.QueryRowContext(ctx, query, s.ID, s.Name, s.Description,
		s.Enabled, s.SeverityThreshold, config).Scan(&s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return pkgerrors.ErrNotFound.WithDetail("message", "scenario not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update scenario: %w", err)
	}
	return nil
}

func (r *postgresRepository) DeleteScenario(ctx context.Context, id string) error {
	// Rules and bindings go with the scenario via ON DELETE CASCADE.
	result, err := r.db.ExecContext(ctx, `DELETE FROM ai_scenarios WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return pkgerrors.ErrNotFound.WithDetail("message", "scenario not found")
	}
	return nil
}

func (r *postgresRepository) CreateRule(ctx context.Context, rule *scenario.Rule) error {
	return insertRule(ctx, r.db, rule)
}

type execQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func insertRule(ctx context.Context, db execQueryer, rule *scenario.Rule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	value, err := marshalMap(rule.RuleValue)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO ai_scenario_rules
			(id, scenario_id, rule_type, rule_value, weight, enabled, eval_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at`

	err = db.QueryRowContext(ctx, query, rule.ID, rule.ScenarioID, rule.RuleType,
		value, rule.Weight, rule.Enabled, rule.Order).Scan(&rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return pkgerrors.ErrNotFound.WithCause(err).WithDetail("message", "scenario not found")
		}
		return fmt.Errorf("failed to create rule: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetRule(ctx context.Context, id string) (*scenario.Rule, error) {
	query := `
		SELECT id, scenario_id, rule_type, rule_value, weight, enabled, eval_order, created_at, updated_at
		FROM ai_scenario_rules
		WHERE id = $1`

	var rule scenario.Rule
	var valueRaw []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(&rule.ID, &rule.ScenarioID,
		&rule.RuleType, &valueRaw, &rule.Weight, &rule.Enabled, &rule.Order,
		&rule.CreatedAt, &rule.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithDetail("message", "rule not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	if err := unmarshalMap(valueRaw, &rule.RuleValue); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *postgresRepository) UpdateRule(ctx context.Context, rule *scenario.Rule) error {
	value, err := marshalMap(rule.RuleValue)
	if err != nil {
		return err
	}

	query := `
		UPDATE ai_scenario_rules
		SET rule_type = $2, rule_value = $3, weight = $4, enabled = $5, eval_order = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err = r.db.QueryRowContext(ctx, query, rule.ID, rule.RuleType, value,
		rule.Weight, rule.Enabled, rule.Order).Scan(&rule.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return pkgerrors.ErrNotFound.WithDetail("message", "rule not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return nil
}

func (r *postgresRepository) DeleteRule(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM ai_scenario_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return pkgerrors.ErrNotFound.WithDetail("message", "rule not found")
	}
	return nil
}

func (r *postgresRepository) listRules(ctx context.Context, scenarioID string) ([]scenario.Rule, error) {
	query := `
		SELECT id, scenario_id, rule_type, rule_value, weight, enabled, eval_order, created_at, updated_at
		FROM ai_scenario_rules
		WHERE scenario_id = $1
		ORDER BY eval_order`

	rows, err := r.db.QueryContext(ctx, query, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []scenario.Rule
	for rows.Next() {
		var rule scenario.Rule
		var valueRaw []byte
		if err := rows.Scan(&rule.ID, &rule.ScenarioID, &rule.RuleType, &valueRaw,
			&rule.Weight, &rule.Enabled, &rule.Order, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalMap(valueRaw, &rule.RuleValue); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *postgresRepository) CreateBinding(ctx context.Context, b *scenario.CameraBinding) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	override, err := marshalMap(b.CameraSpecificConfig)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO camera_scenario_bindings
			(id, camera_id, scenario_id, enabled, camera_specific_config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at`

	err = r.db.QueryRowContext(ctx, query, b.ID, b.CameraID, b.ScenarioID,
		b.Enabled, override).Scan(&b.CreatedAt, &b.UpdatedAt)
	if isUniqueViolation(err) {
		return pkgerrors.ErrConflict.WithCause(err).WithDetail("message",
			fmt.Sprintf("camera %s is already bound to scenario %s", b.CameraID, b.ScenarioID))
	}
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return pkgerrors.ErrNotFound.WithCause(err).WithDetail("message", "scenario not found")
		}
		return fmt.Errorf("failed to create binding: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetBinding(ctx context.Context, id string) (*scenario.CameraBinding, error) {
	query := `
		SELECT id, camera_id, scenario_id, enabled, camera_specific_config, created_at, updated_at
		FROM camera_scenario_bindings
		WHERE id = $1`

	var b scenario.CameraBinding
	var overrideRaw []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(&b.ID, &b.CameraID,
		&b.ScenarioID, &b.Enabled, &overrideRaw, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithDetail("message", "binding not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get binding: %w", err)
	}
	if err := unmarshalMap(overrideRaw, &b.CameraSpecificConfig); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *postgresRepository) ListBindings(ctx context.Context, scenarioID string) ([]scenario.CameraBinding, error) {
	query := `
		SELECT id, camera_id, scenario_id, enabled, camera_specific_config, created_at, updated_at
		FROM camera_scenario_bindings
		WHERE scenario_id = $1
		ORDER BY camera_id`

	rows, err := r.db.QueryContext(ctx, query, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bindings: %w", err)
	}
	defer rows.Close()

	var bindings []scenario.CameraBinding
	for rows.Next() {
		var b scenario.CameraBinding
		var overrideRaw []byte
		if err := rows.Scan(&b.ID, &b.CameraID, &b.ScenarioID, &b.Enabled,
			&overrideRaw, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalMap(overrideRaw, &b.CameraSpecificConfig); err != nil {
			return nil, err
		}
		bindings = append(bindings, b)
	}
	return bindings, rows.Err()
}

func (r *postgresRepository) UpdateBinding(ctx context.Context, b *scenario.CameraBinding) error {
	override, err := marshalMap(b.CameraSpecificConfig)
	if err != nil {
		return err
	}

	query := `
		UPDATE camera_scenario_bindings
		SET enabled = $2, camera_specific_config = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err = r.db.QueryRowContext(ctx, query, b.ID, b.Enabled, override).Scan(&b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return pkgerrors.ErrNotFound.WithDetail("message", "binding not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update binding: %w", err)
	}
	return nil
}

func (r *postgresRepository) DeleteBinding(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM camera_scenario_bindings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete binding: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return pkgerrors.ErrNotFound.WithDetail("message", "binding not found")
	}
	return nil
}

func marshalMap(m map[string]interface{}) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON column: %w", err)
	}
	return data, nil
}

func unmarshalMap(raw []byte, dst *map[string]interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode JSON column: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation
}
