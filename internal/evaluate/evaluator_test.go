package evaluate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/scenario"
	"argus/pkg/cel"
	"argus/pkg/models"
)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	celEval, err := cel.NewEvaluator()
	require.NoError(t, err)
	return NewEvaluator(celEval)
}

func testEvent(attributes map[string]interface{}) models.DetectionEvent {
	return models.DetectionEvent{
		ID:             "evt-1",
		CameraID:       "cam-1",
		OrganizationID: "org-1",
		Module:         "perimeter",
		ScenarioType:   "intrusion",
		Attributes:     attributes,
		OccurredAt:     time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC),
	}
}

func testScenario(rules ...scenario.Rule) scenario.Scenario {
	return scenario.Scenario{
		ID:                "sc-1",
		OrganizationID:    "org-1",
		Module:            "perimeter",
		ScenarioType:      "intrusion",
		Name:              "Perimeter intrusion",
		Enabled:           true,
		SeverityThreshold: 50,
		Rules:             rules,
	}
}

func TestEvaluateRuleTypes(t *testing.T) {
	eval := newTestEvaluator(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		rule       scenario.Rule
		attributes map[string]interface{}
		wantMatch  bool
	}{
		{
			name: "min_duration met",
			rule: scenario.Rule{
				ID: "r1", RuleType: "min_duration", Weight: 40, Enabled: true,
				RuleValue: map[string]interface{}{"seconds": 10.0},
			},
			attributes: map[string]interface{}{"duration_seconds": 12.0},
			wantMatch:  true,
		},
		{
			name: "min_duration not met",
			rule: scenario.Rule{
				ID: "r1", RuleType: "min_duration", Weight: 40, Enabled: true,
				RuleValue: map[string]interface{}{"seconds": 10.0},
			},
			attributes: map[string]interface{}{"duration_seconds": 5.0},
			wantMatch:  false,
		},
		{
			name: "min_duration attribute missing",
			rule: scenario.Rule{
				ID: "r1", RuleType: "min_duration", Weight: 40, Enabled: true,
				RuleValue: map[string]interface{}{"seconds": 10.0},
			},
			attributes: map[string]interface{}{},
			wantMatch:  false,
		},
		{
			name: "zone matched",
			rule: scenario.Rule{
				ID: "r2", RuleType: "zone", Weight: 30, Enabled: true,
				RuleValue: map[string]interface{}{"zones": []interface{}{"loading_dock", "gate"}},
			},
			attributes: map[string]interface{}{"zone": "gate"},
			wantMatch:  true,
		},
		{
			name: "zone not in list",
			rule: scenario.Rule{
				ID: "r2", RuleType: "zone", Weight: 30, Enabled: true,
				RuleValue: map[string]interface{}{"zones": []interface{}{"loading_dock"}},
			},
			attributes: map[string]interface{}{"zone": "lobby"},
			wantMatch:  false,
		},
		{
			name: "object_count within range",
			rule: scenario.Rule{
				ID: "r3", RuleType: "object_count", Weight: 20, Enabled: true,
				RuleValue: map[string]interface{}{"min": 2.0, "max": 5.0},
			},
			attributes: map[string]interface{}{"object_count": 3.0},
			wantMatch:  true,
		},
		{
			name: "object_count above max",
			rule: scenario.Rule{
				ID: "r3", RuleType: "object_count", Weight: 20, Enabled: true,
				RuleValue: map[string]interface{}{"min": 2.0, "max": 5.0},
			},
			attributes: map[string]interface{}{"object_count": 6.0},
			wantMatch:  false,
		},
		{
			name: "object_count no max",
			rule: scenario.Rule{
				ID: "r3", RuleType: "object_count", Weight: 20, Enabled: true,
				RuleValue: map[string]interface{}{"min": 2.0},
			},
			attributes: map[string]interface{}{"object_count": 50.0},
			wantMatch:  true,
		},
		{
			name: "confidence met",
			rule: scenario.Rule{
				ID: "r4", RuleType: "confidence", Weight: 10, Enabled: true,
				RuleValue: map[string]interface{}{"min": 0.8},
			},
			attributes: map[string]interface{}{"confidence": 0.91},
			wantMatch:  true,
		},
		{
			name: "confidence below min",
			rule: scenario.Rule{
				ID: "r4", RuleType: "confidence", Weight: 10, Enabled: true,
				RuleValue: map[string]interface{}{"min": 0.8},
			},
			attributes: map[string]interface{}{"confidence": 0.5},
			wantMatch:  false,
		},
		{
			name: "time_of_day inside window",
			rule: scenario.Rule{
				ID: "r5", RuleType: "time_of_day", Weight: 15, Enabled: true,
				RuleValue: map[string]interface{}{"start": "09:00", "end": "18:00"},
			},
			attributes: map[string]interface{}{},
			wantMatch:  true, // event occurs at 14:30 UTC
		},
		{
			name: "time_of_day outside window",
			rule: scenario.Rule{
				ID: "r5", RuleType: "time_of_day", Weight: 15, Enabled: true,
				RuleValue: map[string]interface{}{"start": "22:00", "end": "06:00"},
			},
			attributes: map[string]interface{}{},
			wantMatch:  false,
		},
		{
			name: "expression matched",
			rule: scenario.Rule{
				ID: "r6", RuleType: "expression", Weight: 25, Enabled: true,
				RuleValue: map[string]interface{}{"expression": `attributes.object_class == "person"`},
			},
			attributes: map[string]interface{}{"object_class": "person"},
			wantMatch:  true,
		},
		{
			name: "expression not matched",
			rule: scenario.Rule{
				ID: "r6", RuleType: "expression", Weight: 25, Enabled: true,
				RuleValue: map[string]interface{}{"expression": `attributes.object_class == "vehicle"`},
			},
			attributes: map[string]interface{}{"object_class": "person"},
			wantMatch:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := testScenario(tt.rule)
			contributions, warnings := eval.Evaluate(ctx, sc, nil, testEvent(tt.attributes))
			require.Len(t, contributions, 1)
			assert.Empty(t, warnings)
			assert.Equal(t, tt.wantMatch, contributions[0].Matched)
			assert.Equal(t, tt.rule.Weight, contributions[0].Weight)
		})
	}
}

func TestEvaluateSkipsDisabledRules(t *testing.T) {
	eval := newTestEvaluator(t)

	sc := testScenario(
		scenario.Rule{
			ID: "r1", RuleType: "confidence", Weight: 60, Enabled: true,
			RuleValue: map[string]interface{}{"min": 0.5},
		},
		scenario.Rule{
			ID: "r2", RuleType: "confidence", Weight: 40, Enabled: false,
			RuleValue: map[string]interface{}{"min": 0.5},
		},
	)

	contributions, warnings := eval.Evaluate(context.Background(), sc, nil,
		testEvent(map[string]interface{}{"confidence": 0.9}))

	require.Len(t, contributions, 1)
	assert.Empty(t, warnings)
	assert.Equal(t, "r1", contributions[0].RuleID)
	assert.Equal(t, 60, Score(contributions))
}

func TestEvaluateUnsupportedRule(t *testing.T) {
	eval := newTestEvaluator(t)

	sc := testScenario(
		scenario.Rule{
			ID: "r1", RuleType: "thermal_signature", Weight: 70, Enabled: true,
			RuleValue: map[string]interface{}{"min": 0.5},
		},
		scenario.Rule{
			ID: "r2", RuleType: "confidence", Weight: 30, Enabled: true,
			RuleValue: map[string]interface{}{"min": 0.5},
		},
	)

	contributions, warnings := eval.Evaluate(context.Background(), sc, nil,
		testEvent(map[string]interface{}{"confidence": 0.9}))

	require.Len(t, contributions, 2)
	require.Len(t, warnings, 1)
	assert.Equal(t, "thermal_signature", warnings[0].RuleType)
	assert.Equal(t, "r1", warnings[0].RuleID)
	assert.False(t, contributions[0].Matched)
	assert.True(t, contributions[1].Matched)
	assert.Equal(t, 30, Score(contributions))
}

func TestEvaluateMalformedParams(t *testing.T) {
	eval := newTestEvaluator(t)

	tests := []struct {
		name string
		rule scenario.Rule
	}{
		{
			name: "min_duration negative seconds",
			rule: scenario.Rule{ID: "r1", RuleType: "min_duration", Weight: 10, Enabled: true,
				RuleValue: map[string]interface{}{"seconds": -5.0}},
		},
		{
			name: "zone empty list",
			rule: scenario.Rule{ID: "r1", RuleType: "zone", Weight: 10, Enabled: true,
				RuleValue: map[string]interface{}{"zones": []interface{}{}}},
		},
		{
			name: "confidence out of range",
			rule: scenario.Rule{ID: "r1", RuleType: "confidence", Weight: 10, Enabled: true,
				RuleValue: map[string]interface{}{"min": 1.5}},
		},
		{
			name: "time_of_day bad format",
			rule: scenario.Rule{ID: "r1", RuleType: "time_of_day", Weight: 10, Enabled: true,
				RuleValue: map[string]interface{}{"start": "9am", "end": "6pm"}},
		},
		{
			name: "expression empty",
			rule: scenario.Rule{ID: "r1", RuleType: "expression", Weight: 10, Enabled: true,
				RuleValue: map[string]interface{}{"expression": "  "}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := testScenario(tt.rule)
			contributions, warnings := eval.Evaluate(context.Background(), sc, nil, testEvent(nil))
			require.Len(t, contributions, 1)
			require.Len(t, warnings, 1)
			assert.False(t, contributions[0].Matched)
			assert.Equal(t, 0, Score(contributions))
		})
	}
}

func TestEvaluateExpressionErrorWarns(t *testing.T) {
	eval := newTestEvaluator(t)

	sc := testScenario(scenario.Rule{
		ID: "r1", RuleType: "expression", Weight: 50, Enabled: true,
		RuleValue: map[string]interface{}{"expression": `attributes.missing_field > 10`},
	})

	contributions, warnings := eval.Evaluate(context.Background(), sc, nil, testEvent(map[string]interface{}{}))

	require.Len(t, contributions, 1)
	require.Len(t, warnings, 1)
	assert.False(t, contributions[0].Matched)
}

func TestEvaluateCameraOverrides(t *testing.T) {
	eval := newTestEvaluator(t)

	sc := testScenario(scenario.Rule{
		ID: "r1", RuleType: "confidence", Weight: 50, Enabled: true,
		RuleValue: map[string]interface{}{"min": 0.9},
	})

	event := testEvent(map[string]interface{}{"confidence": 0.7})

	// Without the override 0.7 is below the 0.9 floor.
	contributions, _ := eval.Evaluate(context.Background(), sc, nil, event)
	require.Len(t, contributions, 1)
	assert.False(t, contributions[0].Matched)

	// A camera-specific override lowers the floor for this binding only.
	override := map[string]interface{}{
		"confidence": map[string]interface{}{"min": 0.5},
	}
	contributions, _ = eval.Evaluate(context.Background(), sc, override, event)
	require.Len(t, contributions, 1)
	assert.True(t, contributions[0].Matched)
}

func TestTimeOfDayMidnightWrap(t *testing.T) {
	p := parsedRule{kind: KindTimeOfDay, startMin: 22 * 60, endMin: 6 * 60}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before midnight", time.Date(2026, 3, 10, 23, 15, 0, 0, time.UTC), true},
		{"after midnight", time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC), true},
		{"exactly at start", time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC), true},
		{"exactly at end", time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC), false},
		{"midday outside", time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.inWindow(tt.at))
		})
	}
}

func TestToMinutes(t *testing.T) {
	tests := []struct {
		input   interface{}
		want    int
		wantOK  bool
		comment string
	}{
		{"00:00", 0, true, "midnight"},
		{"23:59", 23*60 + 59, true, "end of day"},
		{"14:30", 14*60 + 30, true, "afternoon"},
		{"24:00", 0, false, "hour out of range"},
		{"12:60", 0, false, "minute out of range"},
		{"noon", 0, false, "not a time"},
		{12, 0, false, "not a string"},
	}

	for _, tt := range tests {
		t.Run(tt.comment, func(t *testing.T) {
			got, ok := toMinutes(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
