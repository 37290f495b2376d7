// Package ratios computes financial ratios from admitted filings.
// Balance sheet categories are derived from chart-of-accounts subtree
// sums, so only matched line items contribute.
package ratios

import (
	"context"

	"bilanco/internal/core/apperror"
	"bilanco/internal/core/types"
	"bilanco/internal/domain/accounts"
	"bilanco/internal/domain/filings"
	"bilanco/internal/domain/normalize"
	"bilanco/pkg/logger"
)

// Ratio is one computed indicator. Value is meaningless when Defined
// is false (division by zero or missing inputs).
type Ratio struct {
	Name       string      `json:"name"`
	Value      types.Money `json:"value"`
	Defined    bool        `json:"defined"`
	Assessment string      `json:"assessment,omitempty"`
}

// Categories holds the balance sheet aggregates the ratios divide.
type Categories struct {
	TotalAssets        types.Money `json:"totalAssets"`
	CurrentAssets      types.Money `json:"currentAssets"`
	Cash               types.Money `json:"cash"`
	Receivables        types.Money `json:"receivables"`
	Inventory          types.Money `json:"inventory"`
	CurrentLiabilities types.Money `json:"currentLiabilities"`
	LongTermDebt       types.Money `json:"longTermDebt"`
	TotalLiabilities   types.Money `json:"totalLiabilities"`
	Payables           types.Money `json:"payables"`
	Equity             types.Money `json:"equity"`
}

// chart subtrees backing each category
const (
	prefixAssets       = "A"
	prefixCurrent      = "A.1"
	prefixCash         = "A.1.1"
	prefixSecurities   = "A.1.2"
	prefixReceivables  = "A.1.3"
	prefixInventory    = "A.1.5"
	prefixShortTerm    = "P.3"
	prefixPayables     = "P.3.2"
	prefixLongTerm     = "P.4"
	prefixEquity       = "P.5"
)

// Report is the ratio snapshot for one filing.
type Report struct {
	FilingID   string         `json:"filingId"`
	Number     string         `json:"number"`
	Year       int            `json:"year"`
	Period     types.Period   `json:"period"`
	Status     filings.Status `json:"status"`
	Categories Categories     `json:"categories"`
	Ratios     []Ratio        `json:"ratios"`

	// LowConfidence marks ratios computed from an unbalanced sheet.
	LowConfidence bool `json:"lowConfidence"`
}

// Calculator derives ratio reports from filings.
type Calculator struct {
	registry *accounts.Registry
	assessor *Assessor // optional
}

// New creates a calculator. The assessor may be nil; ratios are then
// reported without assessments.
func New(registry *accounts.Registry, assessor *Assessor) *Calculator {
	return &Calculator{registry: registry, assessor: assessor}
}

// Snapshot computes the point-in-time ratios for one filing.
// Superseded filings are rejected: their numbers no longer represent
// the fiscal slot.
func (c *Calculator) Snapshot(ctx context.Context, f *filings.Filing) (*Report, error) {
	if !f.IsActive() {
		return nil, apperror.NewFilingSuperseded(f.ID.String())
	}

	cat := c.categorize(f.Items)

	report := &Report{
		FilingID:      f.ID.String(),
		Number:        f.Number,
		Year:          f.Year,
		Period:        f.Period,
		Status:        f.Status,
		Categories:    cat,
		LowConfidence: f.Status == filings.StatusUnbalanced,
	}

	report.Ratios = append(report.Ratios,
		c.ratio("current_ratio", cat.CurrentAssets, cat.CurrentLiabilities),
		c.ratio("quick_ratio", cat.CurrentAssets.Sub(cat.Inventory), cat.CurrentLiabilities),
		c.ratio("cash_ratio", cat.Cash, cat.CurrentLiabilities),
		c.ratio("debt_to_equity", cat.TotalLiabilities, cat.Equity),
		c.ratio("debt_to_assets", cat.TotalLiabilities, cat.TotalAssets),
	)

	nwc := Ratio{
		Name:    "net_working_capital",
		Value:   types.RoundCurrency(cat.CurrentAssets.Sub(cat.CurrentLiabilities)),
		Defined: true,
	}
	report.Ratios = append(report.Ratios, nwc)

	if f.Income != nil {
		report.Ratios = append(report.Ratios,
			c.ratio("gross_margin", f.Income.NetSales.Sub(f.Income.CostOfSales), f.Income.NetSales),
			c.ratio("operating_margin", f.Income.OperatingProfit, f.Income.NetSales),
			c.ratio("net_margin", f.Income.NetProfit, f.Income.NetSales),
			c.ratio("return_on_assets", f.Income.NetProfit, cat.TotalAssets),
			c.ratio("return_on_equity", f.Income.NetProfit, cat.Equity),
		)
	} else {
		// A balance-sheet-only filing still reports every ratio; the
		// profitability entries come back undefined, not absent.
		logger.Debug(ctx, "income figures absent, profitability ratios undefined",
			"filing", f.Number)
		for _, name := range profitabilityRatios {
			report.Ratios = append(report.Ratios, Ratio{Name: name})
		}
	}

	return report, nil
}

// profitabilityRatios need income statement figures.
var profitabilityRatios = []string{
	"gross_margin", "operating_margin", "net_margin",
	"return_on_assets", "return_on_equity",
}

// ratio builds a named ratio, marking it undefined on a zero divisor.
func (c *Calculator) ratio(name string, num, den types.Money) Ratio {
	r := Ratio{Name: name}
	if den.IsZero() {
		return r
	}
	r.Value = num.Div(den).Round(4)
	r.Defined = true
	if c.assessor != nil {
		if assessment, ok := c.assessor.Assess(name, r.Value.InexactFloat64()); ok {
			r.Assessment = assessment
		}
	}
	return r
}

// categorize sums matched top-level items into category buckets.
func (c *Calculator) categorize(items []*normalize.LineItem) Categories {
	cat := Categories{
		TotalAssets:        types.Zero(),
		CurrentAssets:      types.Zero(),
		Cash:               types.Zero(),
		Receivables:        types.Zero(),
		Inventory:          types.Zero(),
		CurrentLiabilities: types.Zero(),
		LongTermDebt:       types.Zero(),
		TotalLiabilities:   types.Zero(),
		Payables:           types.Zero(),
		Equity:             types.Zero(),
	}

	matched := make(map[string]bool, len(items))
	for _, it := range items {
		if it.IsMatched() {
			matched[*it.MatchedCode] = true
		}
	}

	for _, it := range items {
		if !it.IsMatched() || c.hasMatchedAncestor(matched, *it.MatchedCode) {
			continue
		}
		code := *it.MatchedCode
		amount := it.CurrentAmount

		addIf(&cat.TotalAssets, code, prefixAssets, amount)
		addIf(&cat.CurrentAssets, code, prefixCurrent, amount)
		addIf(&cat.Cash, code, prefixCash, amount)
		addIf(&cat.Cash, code, prefixSecurities, amount)
		addIf(&cat.Receivables, code, prefixReceivables, amount)
		addIf(&cat.Inventory, code, prefixInventory, amount)
		addIf(&cat.CurrentLiabilities, code, prefixShortTerm, amount)
		addIf(&cat.Payables, code, prefixPayables, amount)
		addIf(&cat.LongTermDebt, code, prefixLongTerm, amount)
		addIf(&cat.Equity, code, prefixEquity, amount)
	}

	cat.TotalLiabilities = cat.CurrentLiabilities.Add(cat.LongTermDebt)
	return cat
}

func (c *Calculator) hasMatchedAncestor(matched map[string]bool, code string) bool {
	ancestors, err := c.registry.Ancestors(code)
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

func addIf(dst *types.Money, code, prefix string, amount types.Money) {
	if inSubtree(code, prefix) {
		*dst = dst.Add(amount)
	}
}

// inSubtree reports whether code equals prefix or lies under it.
func inSubtree(code, prefix string) bool {
	if code == prefix {
		return true
	}
	return len(code) > len(prefix) && code[:len(prefix)] == prefix && code[len(prefix)] == '.'
}
