package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"argus/pkg/models"
)

// Evaluator compiles and runs CEL predicates against detection events. Used
// by expression rules and validated by the management API at write time.
type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("camera_id", cel.StringType),
		cel.Variable("organization_id", cel.StringType),
		cel.Variable("module", cel.StringType),
		cel.Variable("scenario_type", cel.StringType),
		cel.Variable("occurred_at", cel.TimestampType),
		cel.Variable("attributes", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

// ValidatePredicate checks that the expression compiles and returns bool.
func (e *Evaluator) ValidatePredicate(expression string) error {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return fmt.Errorf("predicate expression must return bool, got %v", ast.OutputType())
	}

	return nil
}

// EvaluatePredicate runs a boolean predicate against a detection event.
func (e *Evaluator) EvaluatePredicate(ctx context.Context, expression string, event models.DetectionEvent) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return false, fmt.Errorf("predicate expression must return bool, got %v", ast.OutputType())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("failed to create CEL program: %w", err)
	}

	attributes := event.Attributes
	if attributes == nil {
		attributes = map[string]interface{}{}
	}

	out, _, err := prg.Eval(map[string]interface{}{
		"camera_id":       event.CameraID,
		"organization_id": event.OrganizationID,
		"module":          event.Module,
		"scenario_type":   event.ScenarioType,
		"occurred_at":     event.OccurredAt,
		"attributes":      attributes,
	})
	if err != nil {
		return false, fmt.Errorf("CEL evaluation failed: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("predicate did not evaluate to bool, got %T", out.Value())
	}

	return result, nil
}
