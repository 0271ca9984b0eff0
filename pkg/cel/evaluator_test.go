package cel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/pkg/models"
)

func TestNewEvaluator(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)
	assert.NotNil(t, eval)
}

func TestValidatePredicate(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{
			name:      "valid attribute comparison",
			expr:      `attributes.confidence >= 0.8`,
			wantError: false,
		},
		{
			name:      "valid string equality",
			expr:      `attributes.object_class == "person"`,
			wantError: false,
		},
		{
			name:      "valid camera check",
			expr:      `camera_id.startsWith("cam-")`,
			wantError: false,
		},
		{
			name:      "valid conjunction",
			expr:      `module == "perimeter" && scenario_type == "intrusion"`,
			wantError: false,
		},
		{
			name:      "invalid syntax",
			expr:      `invalid syntax here!!!`,
			wantError: true,
		},
		{
			name:      "undefined variable",
			expr:      `undefinedVar == "test"`,
			wantError: true,
		},
		{
			name:      "non-bool result",
			expr:      `camera_id`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidatePredicate(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvaluatePredicate(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	ctx := context.Background()
	event := models.DetectionEvent{
		ID:             "evt-1",
		CameraID:       "cam-42",
		OrganizationID: "org-1",
		Module:         "perimeter",
		ScenarioType:   "intrusion",
		Attributes: map[string]interface{}{
			"confidence":   0.92,
			"object_class": "person",
			"zone":         "gate",
		},
		OccurredAt: time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC),
	}

	tests := []struct {
		name      string
		expr      string
		want      bool
		wantError bool
	}{
		{
			name: "confidence above floor",
			expr: `attributes.confidence >= 0.8`,
			want: true,
		},
		{
			name: "confidence below floor",
			expr: `attributes.confidence >= 0.95`,
			want: false,
		},
		{
			name: "object class match",
			expr: `attributes.object_class == "person"`,
			want: true,
		},
		{
			name: "camera prefix",
			expr: `camera_id.startsWith("cam-")`,
			want: true,
		},
		{
			name: "module and type",
			expr: `module == "perimeter" && scenario_type == "intrusion"`,
			want: true,
		},
		{
			name: "timestamp hour",
			expr: `occurred_at.getHours() == 14`,
			want: true,
		},
		{
			name:      "missing attribute errors",
			expr:      `attributes.nonexistent == "x"`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := eval.EvaluatePredicate(ctx, tt.expr, event)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, result)
			}
		})
	}
}

func TestEvaluatePredicateNilAttributes(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	event := models.DetectionEvent{CameraID: "cam-1", OrganizationID: "org-1"}
	result, err := eval.EvaluatePredicate(context.Background(), `camera_id == "cam-1"`, event)
	require.NoError(t, err)
	assert.True(t, result)
}

func TestEvaluatePredicateCancelledContext(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = eval.EvaluatePredicate(ctx, `camera_id == "cam-1"`, models.DetectionEvent{CameraID: "cam-1"})
	assert.Error(t, err)
}
