// Package normalize converts raw extractor records into typed line items
// keyed by fiscal year.
package normalize

import (
	"context"
	"strconv"
	"strings"

	"bilanco/internal/core/types"
	"bilanco/internal/domain/accounts"
	"bilanco/internal/domain/extraction"
	"bilanco/pkg/logger"
)

// FiscalContext is the company/year/period a filing declares. Year tags in
// extractor output are classified relative to it.
type FiscalContext struct {
	Year   int
	Period types.Period
}

// LineItem is the normalized form of one extracted record.
// AccountType and MatchedCode are assigned by the matcher.
type LineItem struct {
	Label         string `json:"label" db:"label"`
	SuggestedCode string `json:"suggestedCode,omitempty" db:"suggested_code"`

	// MatchedCode is nil until the matcher resolves the item; it stays nil
	// for unmatched items, which are retained but excluded from totals.
	MatchedCode *string `json:"matchedCode" db:"matched_code"`

	// MatchConfidence is the matcher's similarity score (1 for exact code).
	MatchConfidence float64 `json:"matchConfidence" db:"match_confidence"`

	AccountType accounts.AccountType `json:"accountType" db:"account_type"`

	CurrentAmount           types.Money `json:"currentAmount" db:"current_amount"`
	PreviousAmount          types.Money `json:"previousAmount" db:"previous_amount"`
	InflationAdjustedAmount types.Money `json:"inflationAdjustedAmount" db:"inflation_adjusted_amount"`

	SourceYear   int          `json:"sourceYear" db:"source_year"`
	SourcePeriod types.Period `json:"sourcePeriod" db:"source_period"`

	// ParseFailed marks an item whose every numeric value failed to parse.
	// Such items are retained with zero amounts for operator review; they
	// may represent real zero-balance accounts.
	ParseFailed bool `json:"parseFailed,omitempty" db:"parse_failed"`
}

// IsMatched reports whether the matcher resolved this item to a code.
func (it *LineItem) IsMatched() bool {
	return it.MatchedCode != nil && *it.MatchedCode != ""
}

// Stats summarizes one normalization run.
type Stats struct {
	Dropped     int `json:"dropped"`     // items discarded (empty label)
	ParseFailed int `json:"parseFailed"` // items retained with all amounts zeroed
}

// inflationMarkers flag a year tag as inflation-adjusted. Compared against
// the diacritic-folded tag.
var inflationMarkers = []string{"enflasyon", "duzeltilmis", "duzeltmeli"}

// Items normalizes a raw extraction result against the declared fiscal
// context. Items with empty labels are dropped with a diagnostic; items
// whose every value fails to parse are retained zeroed and flagged.
func Items(ctx context.Context, raw []extraction.RawLineItem, fc FiscalContext) ([]*LineItem, Stats) {
	var stats Stats
	items := make([]*LineItem, 0, len(raw))

	for i, r := range raw {
		if strings.TrimSpace(r.Label) == "" {
			stats.Dropped++
			logger.Warn(ctx, "dropping extracted item with empty label",
				"index", i,
				"year_values", len(r.YearValues))
			continue
		}

		item := One(ctx, r, fc)
		if item.ParseFailed {
			stats.ParseFailed++
		}
		items = append(items, item)
	}

	return items, stats
}

// One normalizes a single raw record. The label must be non-empty.
func One(ctx context.Context, r extraction.RawLineItem, fc FiscalContext) *LineItem {
	item := &LineItem{
		Label:                   strings.TrimSpace(r.Label),
		SuggestedCode:           strings.TrimSpace(r.SuggestedCode),
		CurrentAmount:           types.Zero(),
		PreviousAmount:          types.Zero(),
		InflationAdjustedAmount: types.Zero(),
		SourceYear:              fc.Year,
		SourcePeriod:            fc.Period,
	}

	attempted := 0
	failed := 0
	for tag, rawValue := range r.YearValues {
		attempted++

		amount, err := ParseAmount(rawValue)
		if err != nil {
			failed++
			logger.Warn(ctx, "unparseable amount in extracted item",
				"label", item.Label,
				"year_tag", tag,
				"value", rawValue)
			continue
		}

		switch classifyYearTag(tag, fc.Year) {
		case yearCurrent:
			item.CurrentAmount = amount
		case yearPrevious:
			item.PreviousAmount = amount
		case yearInflationAdjusted:
			item.InflationAdjustedAmount = amount
		default:
			logger.Debug(ctx, "ignoring unrecognized year tag",
				"label", item.Label,
				"year_tag", tag)
		}
	}

	if attempted > 0 && failed == attempted {
		item.ParseFailed = true
	}

	return item
}

// ParseAmount parses a Turkish-locale numeric string: "." is the thousands
// separator and "," the decimal separator ("1.234,56" -> 1234.56).
// "-" and the empty string parse to zero.
func ParseAmount(s string) (types.Money, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" || cleaned == "-" {
		return types.Zero(), nil
	}

	// Strip currency tokens the extractor sometimes keeps.
	cleaned = strings.NewReplacer("₺", "", "TL", "", " ", "").Replace(cleaned)

	// Parenthesized values are negatives on printed statements.
	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}

	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	amount, err := types.NewMoneyFromString(cleaned)
	if err != nil {
		return types.Zero(), err
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

type yearClass int

const (
	yearUnknown yearClass = iota
	yearCurrent
	yearPrevious
	yearInflationAdjusted
)

// classifyYearTag decides whether a year tag addresses the filing's
// declared year, the immediately preceding year, or an inflation-adjusted
// restatement (marker suffix).
func classifyYearTag(tag string, declaredYear int) yearClass {
	folded := accounts.NormalizeLabel(tag)

	for _, marker := range inflationMarkers {
		if strings.Contains(folded, marker) {
			return yearInflationAdjusted
		}
	}

	year, ok := leadingYear(folded)
	if !ok {
		return yearUnknown
	}
	switch year {
	case declaredYear:
		return yearCurrent
	case declaredYear - 1:
		return yearPrevious
	}
	return yearUnknown
}

// leadingYear extracts the first 4-digit run from a tag.
func leadingYear(s string) (int, bool) {
	for i := 0; i+4 <= len(s); i++ {
		if !isDigit(s[i]) {
			continue
		}
		j := i
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if j-i == 4 {
			year, err := strconv.Atoi(s[i:j])
			if err == nil {
				return year, true
			}
		}
		i = j
	}
	return 0, false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
