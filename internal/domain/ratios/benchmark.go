package ratios

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Assessor maps ratio values to verbal assessments using CEL rules.
// Rules are plain expressions over a `value` double, returning a
// string, so thresholds can live in configuration instead of code.
type Assessor struct {
	programs map[string]cel.Program
}

// DefaultRules holds the built-in benchmark thresholds.
var DefaultRules = map[string]string{
	"current_ratio":    `value >= 1.5 ? "good" : (value >= 1.0 ? "adequate" : "weak")`,
	"quick_ratio":      `value >= 1.0 ? "good" : (value >= 0.7 ? "adequate" : "weak")`,
	"cash_ratio":       `value >= 0.2 ? "good" : "weak"`,
	"debt_to_equity":   `value <= 1.0 ? "good" : (value <= 2.0 ? "adequate" : "risky")`,
	"debt_to_assets":   `value <= 0.5 ? "good" : (value <= 0.7 ? "adequate" : "risky")`,
	"gross_margin":     `value >= 0.3 ? "good" : (value >= 0.15 ? "adequate" : "weak")`,
	"net_margin":       `value >= 0.1 ? "good" : (value >= 0.03 ? "adequate" : "weak")`,
	"return_on_assets": `value >= 0.05 ? "good" : "weak"`,
	"return_on_equity": `value >= 0.15 ? "good" : (value >= 0.05 ? "adequate" : "weak")`,
}

// NewAssessor compiles a rule set. Every expression must evaluate to
// a string.
func NewAssessor(rules map[string]string) (*Assessor, error) {
	env, err := cel.NewEnv(
		cel.Variable("value", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	programs := make(map[string]cel.Program, len(rules))
	for name, expr := range rules {
		ast, iss := env.Compile(expr)
		if iss.Err() != nil {
			return nil, fmt.Errorf("compile rule %q: %w", name, iss.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("program rule %q: %w", name, err)
		}
		programs[name] = prg
	}

	return &Assessor{programs: programs}, nil
}

// MustDefaultAssessor builds an assessor from DefaultRules.
// The rules are static, a compile failure is a programming error.
func MustDefaultAssessor() *Assessor {
	a, err := NewAssessor(DefaultRules)
	if err != nil {
		panic(err)
	}
	return a
}

// Assess evaluates the rule for a ratio name. The second return is
// false when no rule exists or evaluation fails.
func (a *Assessor) Assess(name string, value float64) (string, bool) {
	prg, ok := a.programs[name]
	if !ok {
		return "", false
	}

	out, _, err := prg.Eval(map[string]any{"value": value})
	if err != nil {
		return "", false
	}

	s, ok := out.Value().(string)
	return s, ok
}
