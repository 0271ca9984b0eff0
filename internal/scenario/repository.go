package scenario

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository loads the enabled scenario/binding graph for the evaluation
// pipeline. Write-side CRUD lives in the management service.
type Repository interface {
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
}

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

// LoadSnapshot reads all enabled scenarios, their enabled rules ordered by
// eval_order, and all enabled bindings whose scenario is enabled, and folds
// them into a per-camera index.
func (r *postgresRepository) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	scenarios, err := r.loadEnabledScenarios(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenarios: %w", err)
	}

	if err := r.loadEnabledRules(ctx, scenarios); err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	byCamera, bindingCount, err := r.loadEnabledBindings(ctx, scenarios)
	if err != nil {
		return nil, fmt.Errorf("failed to load bindings: %w", err)
	}

	return &Snapshot{
		ByCamera:      byCamera,
		ScenarioCount: len(scenarios),
		BindingCount:  bindingCount,
		LoadedAt:      time.Now().UTC(),
	}, nil
}

func (r *postgresRepository) loadEnabledScenarios(ctx context.Context) (map[string]*Scenario, error) {
	query := `
		SELECT id, organization_id, module, scenario_type, name, description,
		       enabled, severity_threshold, config, created_at, updated_at
		FROM ai_scenarios
		WHERE enabled = true`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scenarios := make(map[string]*Scenario)
	for rows.Next() {
		var s Scenario
		var configRaw []byte
		if err := rows.Scan(&s.ID, &s.OrganizationID, &s.Module, &s.ScenarioType,
			&s.Name, &s.Description, &s.Enabled, &s.SeverityThreshold,
			&configRaw, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if len(configRaw) > 0 {
			if err := json.Unmarshal(configRaw, &s.Config); err != nil {
				return nil, fmt.Errorf("scenario %s has malformed config: %w", s.ID, err)
			}
		}
		scenarios[s.ID] = &s
	}
	return scenarios, rows.Err()
}

func (r *postgresRepository) loadEnabledRules(ctx context.Context, scenarios map[string]*Scenario) error {
	query := `
		SELECT r.id, r.scenario_id, r.rule_type, r.rule_value, r.weight,
		       r.enabled, r.eval_order, r.created_at, r.updated_at
		FROM ai_scenario_rules r
		JOIN ai_scenarios s ON s.id = r.scenario_id
		WHERE r.enabled = true AND s.enabled = true
		ORDER BY r.scenario_id, r.eval_order`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var rule Rule
		var valueRaw []byte
		if err := rows.Scan(&rule.ID, &rule.ScenarioID, &rule.RuleType, &valueRaw,
			&rule.Weight, &rule.Enabled, &rule.Order, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return err
		}
		if len(valueRaw) > 0 {
			if err := json.Unmarshal(valueRaw, &rule.RuleValue); err != nil {
				return fmt.Errorf("rule %s has malformed rule_value: %w", rule.ID, err)
			}
		}
		if s, ok := scenarios[rule.ScenarioID]; ok {
			s.Rules = append(s.Rules, rule)
		}
	}
	return rows.Err()
}

func (r *postgresRepository) loadEnabledBindings(ctx context.Context, scenarios map[string]*Scenario) (map[string][]ActiveBinding, int, error) {
	query := `
		SELECT b.id, b.camera_id, b.scenario_id, b.enabled, b.camera_specific_config,
		       b.created_at, b.updated_at
		FROM camera_scenario_bindings b
		JOIN ai_scenarios s ON s.id = b.scenario_id
		WHERE b.enabled = true AND s.enabled = true`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	byCamera := make(map[string][]ActiveBinding)
	count := 0
	for rows.Next() {
		var b CameraBinding
		var overrideRaw []byte
		if err := rows.Scan(&b.ID, &b.CameraID, &b.ScenarioID, &b.Enabled,
			&overrideRaw, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if len(overrideRaw) > 0 {
			if err := json.Unmarshal(overrideRaw, &b.CameraSpecificConfig); err != nil {
				return nil, 0, fmt.Errorf("binding %s has malformed camera_specific_config: %w", b.ID, err)
			}
		}
		s, ok := scenarios[b.ScenarioID]
		if !ok {
			continue
		}
		byCamera[b.CameraID] = append(byCamera[b.CameraID], ActiveBinding{
			Binding:  b,
			Scenario: *s,
		})
		count++
	}
	return byCamera, count, rows.Err()
}
