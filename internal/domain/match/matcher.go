// Package match assigns chart-of-accounts codes to normalized line
// items. Extraction output arrives with AI-suggested codes of varying
// quality; the matcher trusts a suggestion only when the registry
// recognizes it, and otherwise falls back to label search.
package match

import (
	"context"

	"bilanco/internal/domain/accounts"
	"bilanco/internal/domain/normalize"
	"bilanco/pkg/logger"
)

// DefaultThreshold is the minimum label-search score accepted as a
// match. Below it the item stays unmatched rather than guessing.
const DefaultThreshold = 0.75

type Matcher struct {
	registry  *accounts.Registry
	threshold float64
}

func New(registry *accounts.Registry) *Matcher {
	return &Matcher{registry: registry, threshold: DefaultThreshold}
}

// NewWithThreshold is used by tests and tuning tools.
func NewWithThreshold(registry *accounts.Registry, threshold float64) *Matcher {
	return &Matcher{registry: registry, threshold: threshold}
}

// Stats summarizes one matching pass over a filing's items.
type Stats struct {
	BySuggestion int `json:"bySuggestion"`
	ByLabel      int `json:"byLabel"`
	Unmatched    int `json:"unmatched"`
}

// Items matches every line item in place and returns pass statistics.
// The operation is idempotent: re-running it over already matched
// items produces the same assignments.
func (m *Matcher) Items(ctx context.Context, items []*normalize.LineItem) Stats {
	var st Stats
	for _, it := range items {
		switch m.one(it) {
		case sourceSuggestion:
			st.BySuggestion++
		case sourceLabel:
			st.ByLabel++
		default:
			st.Unmatched++
		}
	}
	logger.Debug(ctx, "account matching finished",
		"by_suggestion", st.BySuggestion,
		"by_label", st.ByLabel,
		"unmatched", st.Unmatched,
	)
	return st
}

type matchSource int

const (
	sourceNone matchSource = iota
	sourceSuggestion
	sourceLabel
)

// one resolves a single item. A recognized suggested code wins with
// full confidence; otherwise the best label-search candidate is taken
// when it clears the threshold. Unmatched items keep a nil code but
// still receive an account type so downstream classification sees
// every item.
func (m *Matcher) one(it *normalize.LineItem) matchSource {
	it.MatchedCode = nil
	it.MatchConfidence = 0

	if code := it.SuggestedCode; code != "" && m.registry.Contains(code) {
		m.assign(it, code, 1.0)
		return sourceSuggestion
	}

	if cands := m.registry.SearchByLabel(it.Label, 1); len(cands) > 0 && cands[0].Score >= m.threshold {
		m.assign(it, cands[0].Node.Code, cands[0].Score)
		return sourceLabel
	}

	it.AccountType = m.registry.ClassifyLabel(it.Label)
	return sourceNone
}

func (m *Matcher) assign(it *normalize.LineItem, code string, confidence float64) {
	it.MatchedCode = &code
	it.MatchConfidence = confidence
	if t, ok := accounts.TypeFromCode(code); ok {
		it.AccountType = t
	} else {
		it.AccountType = m.registry.ClassifyLabel(it.Label)
	}
}
