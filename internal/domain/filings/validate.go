package filings

import (
	"fmt"
	"sort"

	"bilanco/internal/core/types"
	"bilanco/internal/domain/accounts"
	"bilanco/internal/domain/normalize"
)

// BalanceTolerance bounds the active/passive difference of a balanced
// sheet. Deltas strictly below it absorb rounding noise in printed
// sheets; a full kuruş off is already unbalanced.
var BalanceTolerance = types.MustMoney("0.01")

// BalanceResult summarizes one balance verification pass.
type BalanceResult struct {
	ActiveTotal  types.Money `json:"activeTotal"`
	PassiveTotal types.Money `json:"passiveTotal"`
	Delta        types.Money `json:"delta"` // active - passive
	Balanced     bool        `json:"balanced"`

	MatchedCount   int `json:"matchedCount"`
	UnmatchedCount int `json:"unmatchedCount"`

	// Warnings flags suspicious but acceptable content, such as a
	// leaf account appearing on more than one line.
	Warnings []string `json:"warnings,omitempty"`
}

// VerifyBalance sums matched line items by account type and compares
// the sides. Unmatched items stay out of both totals: their side is a
// guess, and a guess must not decide whether a sheet balances. Only
// top-level items count; summing a group and its children would double
// the total, so items whose matched code has a matched ancestor in the
// same filing are skipped.
func VerifyBalance(reg *accounts.Registry, items []*normalize.LineItem) BalanceResult {
	res := BalanceResult{
		ActiveTotal:  types.Zero(),
		PassiveTotal: types.Zero(),
	}

	matched := make(map[string]bool, len(items))
	codeCount := make(map[string]int, len(items))
	for _, it := range items {
		if it.IsMatched() {
			matched[*it.MatchedCode] = true
			codeCount[*it.MatchedCode]++
		}
	}

	// A group code recurring is normal (summary plus detail rows); a
	// leaf recurring usually means the same account was extracted
	// twice. Both lines still count toward the totals.
	for code, n := range codeCount {
		if n > 1 && len(reg.Children(code)) == 0 {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("account %s appears on %d lines", code, n))
		}
	}
	sort.Strings(res.Warnings)

	for _, it := range items {
		if !it.IsMatched() {
			res.UnmatchedCount++
			continue
		}
		res.MatchedCount++

		if hasMatchedAncestor(reg, matched, *it.MatchedCode) {
			continue
		}

		switch it.AccountType {
		case accounts.TypePassive:
			res.PassiveTotal = res.PassiveTotal.Add(it.CurrentAmount)
		default:
			res.ActiveTotal = res.ActiveTotal.Add(it.CurrentAmount)
		}
	}

	res.Delta = res.ActiveTotal.Sub(res.PassiveTotal)
	res.Balanced = res.Delta.Abs().LessThan(BalanceTolerance)
	return res
}

func hasMatchedAncestor(reg *accounts.Registry, matched map[string]bool, code string) bool {
	ancestors, err := reg.Ancestors(code)
	if err != nil {
		return false
	}
	for _, a := range ancestors {
		if matched[a.Code] {
			return true
		}
	}
	return false
}

// verifyAndStamp runs balance verification and writes the outcome into
// the filing: totals, delta and the pending -> validated/unbalanced
// transition.
func verifyAndStamp(reg *accounts.Registry, f *Filing) BalanceResult {
	res := VerifyBalance(reg, f.Items)

	f.ActiveTotal = res.ActiveTotal
	f.PassiveTotal = res.PassiveTotal
	f.BalanceDelta = res.Delta

	target := StatusUnbalanced
	if res.Balanced {
		target = StatusValidated
	}
	// Only a pending filing is stamped; resubmission paths reset
	// status before calling.
	if f.Status == StatusPending {
		_ = f.SetStatus(target)
	}

	return res
}
