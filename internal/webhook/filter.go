package webhook

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// newFilterEnv creates the CEL environment for endpoint filters. The
// variables mirror the fields of domain.DecisionEvent.
func newFilterEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("decision", cel.StringType),
		cel.Variable("confidence", cel.DoubleType),
		cel.Variable("risk_score", cel.IntType),
		cel.Variable("final_score", cel.IntType),
		cel.Variable("p_approval", cel.DoubleType),
		cel.Variable("network", cel.StringType),
		cel.Variable("incentive", cel.StringType),
		cel.Variable("mcc", cel.StringType),
		cel.Variable("merchant_name", cel.StringType),
		cel.Variable("customer_id", cel.StringType),
		cel.Variable("request_id", cel.StringType),
	)
}

// compileFilter compiles a filter expression against the given environment.
// An empty expression returns a nil program, which matches every event.
func compileFilter(env *cel.Env, expr string) (cel.Program, error) {
	if expr == "" {
		return nil, nil
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile filter: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("filter must return bool, got %s", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter program: %w", err)
	}

	return program, nil
}

// ValidateFilter checks a filter expression without evaluating it. Used at
// endpoint registration so a broken filter is rejected up front instead of
// failing on every event.
func ValidateFilter(expr string) error {
	if expr == "" {
		return nil
	}

	env, err := newFilterEnv()
	if err != nil {
		return fmt.Errorf("failed to create CEL environment: %w", err)
	}

	_, err = compileFilter(env, expr)
	return err
}

// activation maps a decision event to the filter variable bindings.
func activation(event *domain.DecisionEvent) map[string]any {
	return map[string]any{
		"decision":      string(event.Decision),
		"confidence":    event.Confidence,
		"risk_score":    event.RiskScore,
		"final_score":   event.FinalScore,
		"p_approval":    event.PApproval,
		"network":       event.Network,
		"incentive":     string(event.Incentive),
		"mcc":           event.MCC,
		"merchant_name": event.MerchantName,
		"customer_id":   event.CustomerID,
		"request_id":    event.RequestID,
	}
}

// matches evaluates a compiled filter against a decision event. A nil
// program matches everything.
func matches(program cel.Program, event *domain.DecisionEvent) (bool, error) {
	if program == nil {
		return true, nil
	}

	out, _, err := program.Eval(activation(event))
	if err != nil {
		return false, fmt.Errorf("filter evaluation failed: %w", err)
	}

	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("filter returned non-bool value %v", out)
	}

	return bool(b), nil
}
