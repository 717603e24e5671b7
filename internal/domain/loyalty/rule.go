package loyalty

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// AccrualRule is a compiled CEL expression computing earned points from a
// sale amount. It lets the accrual formula be changed by configuration
// without a redeploy. The expression sees two variables:
//
//	amount          - the final sale total as a double
//	points_per_unit - the configured currency-per-point divisor as an int
//
// and must evaluate to an int. The default rule is equivalent to
// "int(amount) / points_per_unit".
type AccrualRule struct {
	program cel.Program
}

// CompileAccrualRule compiles a CEL accrual expression.
func CompileAccrualRule(expr string) (*AccrualRule, error) {
	env, err := cel.NewEnv(
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("points_per_unit", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile accrual rule: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.IntType) {
		return nil, fmt.Errorf("accrual rule must return int, got %s", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build accrual program: %w", err)
	}

	return &AccrualRule{program: program}, nil
}

// Points evaluates the rule. Negative results are clamped to zero.
func (r *AccrualRule) Points(amount float64, pointsPerUnit int) (int, error) {
	out, _, err := r.program.Eval(map[string]any{
		"amount":          amount,
		"points_per_unit": int64(pointsPerUnit),
	})
	if err != nil {
		return 0, fmt.Errorf("evaluate accrual rule: %w", err)
	}

	n, ok := out.Value().(int64)
	if !ok {
		return 0, fmt.Errorf("accrual rule returned %T, want int", out.Value())
	}
	if n < 0 {
		return 0, nil
	}
	return int(n), nil
}
