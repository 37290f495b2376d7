package ratios

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRulesCompile(t *testing.T) {
	_, err := NewAssessor(DefaultRules)
	require.NoError(t, err)
}

func TestAssess(t *testing.T) {
	a := MustDefaultAssessor()

	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{"current_ratio", 2.0, "good"},
		{"current_ratio", 1.2, "adequate"},
		{"current_ratio", 0.8, "weak"},
		{"debt_to_equity", 0.5, "good"},
		{"debt_to_equity", 3.0, "risky"},
		{"net_margin", 0.12, "good"},
	}

	for _, tt := range tests {
		got, ok := a.Assess(tt.name, tt.value)
		require.True(t, ok, "%s must have a rule", tt.name)
		assert.Equal(t, tt.want, got, "%s(%v)", tt.name, tt.value)
	}
}

func TestAssess_UnknownRatio(t *testing.T) {
	a := MustDefaultAssessor()

	_, ok := a.Assess("no_such_ratio", 1.0)
	assert.False(t, ok)
}

func TestNewAssessor_BadExpression(t *testing.T) {
	_, err := NewAssessor(map[string]string{"broken": `value >= `})
	require.Error(t, err)
}
