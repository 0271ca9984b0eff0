package scenario

import "time"

// Scenario is an organization-scoped detection use case bound to one ordered,
// weighted rule set. (organization_id, module, scenario_type) is unique.
type Scenario struct {
	ID                string                 `json:"id" db:"id"`
	OrganizationID    string                 `json:"organization_id" db:"organization_id"`
	Module            string                 `json:"module" db:"module"`
	ScenarioType      string                 `json:"scenario_type" db:"scenario_type"`
	Name              string                 `json:"name" db:"name"`
	Description       string                 `json:"description,omitempty" db:"description"`
	Enabled           bool                   `json:"enabled" db:"enabled"`
	SeverityThreshold int                    `json:"severity_threshold" db:"severity_threshold"`
	Config            map[string]interface{} `json:"config,omitempty" db:"config"`
	Rules             []Rule                 `json:"rules,omitempty"`
	CreatedAt         time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at" db:"updated_at"`
}

// Rule is a single weighted predicate owned by exactly one scenario. Rules
// are evaluated strictly by ascending Order; disabled rules are excluded from
// evaluation entirely.
type Rule struct {
	ID         string                 `json:"id" db:"id"`
	ScenarioID string                 `json:"scenario_id" db:"scenario_id"`
	RuleType   string                 `json:"rule_type" db:"rule_type"`
	RuleValue  map[string]interface{} `json:"rule_value" db:"rule_value"`
	Weight     int                    `json:"weight" db:"weight"`
	Enabled    bool                   `json:"enabled" db:"enabled"`
	Order      int                    `json:"order" db:"eval_order"`
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at" db:"updated_at"`
}

// CameraBinding associates a scenario with a camera. It references both sides
// and owns neither; (camera_id, scenario_id) is unique.
type CameraBinding struct {
	ID                   string                 `json:"id" db:"id"`
	CameraID             string                 `json:"camera_id" db:"camera_id"`
	ScenarioID           string                 `json:"scenario_id" db:"scenario_id"`
	Enabled              bool                   `json:"enabled" db:"enabled"`
	CameraSpecificConfig map[string]interface{} `json:"camera_specific_config,omitempty" db:"camera_specific_config"`
	CreatedAt            time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at" db:"updated_at"`
}

// ActiveBinding pairs an enabled binding with its enabled scenario, ready for
// evaluation.
type ActiveBinding struct {
	Binding  CameraBinding
	Scenario Scenario
}

// Snapshot is an immutable view of the enabled scenario/binding graph, keyed
// by camera.
type Snapshot struct {
	ByCamera      map[string][]ActiveBinding
	ScenarioCount int
	BindingCount  int
	LoadedAt      time.Time
}
