// Package filings provides the BalanceSheetFiling document: one
// extracted balance sheet for a company, year and period, together
// with the reconciliation flow that admits it into the registry.
package filings

import (
	"context"
	"fmt"

	"bilanco/internal/core/apperror"
	"bilanco/internal/core/entity"
	"bilanco/internal/core/id"
	"bilanco/internal/core/types"
	"bilanco/internal/domain/normalize"
)

// Status is the filing lifecycle state.
type Status string

const (
	// StatusPending - persisted but balance not yet verified
	StatusPending Status = "pending"

	// StatusValidated - active and passive totals agree
	StatusValidated Status = "validated"

	// StatusUnbalanced - totals disagree beyond tolerance; kept, flagged
	StatusUnbalanced Status = "unbalanced"

	// StatusSuperseded - replaced by a newer filing for the same key
	StatusSuperseded Status = "superseded"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusValidated, StatusUnbalanced, StatusSuperseded:
		return true
	}
	return false
}

// allowed status transitions; superseded is terminal
var transitions = map[Status][]Status{
	StatusPending:    {StatusValidated, StatusUnbalanced, StatusSuperseded},
	StatusValidated:  {StatusSuperseded},
	StatusUnbalanced: {StatusSuperseded},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IncomeFigures holds optional income statement totals supplied with a
// filing. Profitability and turnover ratios need them.
type IncomeFigures struct {
	NetSales        types.Money `db:"net_sales" json:"netSales"`
	CostOfSales     types.Money `db:"cost_of_sales" json:"costOfSales"`
	OperatingProfit types.Money `db:"operating_profit" json:"operatingProfit"`
	NetProfit       types.Money `db:"net_profit" json:"netProfit"`
}

// Filing represents one ingested balance sheet.
type Filing struct {
	entity.BaseDocument

	// Number is the human-readable document number (BSF-2024-00001)
	Number string `db:"number" json:"number"`

	// CompanyID references the owning company
	CompanyID id.ID `db:"company_id" json:"companyId"`

	// DeclaredCompanyName is the title as printed on the document
	DeclaredCompanyName string `db:"declared_company_name" json:"declaredCompanyName,omitempty"`

	// DeclaredTaxID is the tax number as printed on the document
	DeclaredTaxID *string `db:"declared_tax_id" json:"declaredTaxId,omitempty"`

	// Year is the fiscal year the sheet reports on
	Year int `db:"year" json:"year"`

	// Period within the year (annual or a quarter/month)
	Period types.Period `db:"period" json:"period"`

	Status Status `db:"status" json:"status"`

	// Balance verification results, captured at persist time
	ActiveTotal  types.Money `db:"active_total" json:"activeTotal"`
	PassiveTotal types.Money `db:"passive_total" json:"passiveTotal"`
	BalanceDelta types.Money `db:"balance_delta" json:"balanceDelta"`

	// Income holds optional income statement totals
	Income *IncomeFigures `db:"-" json:"income,omitempty"`

	// Items is the table part: normalized, matched line items
	Items []*normalize.LineItem `db:"-" json:"items"`
}

// NewFiling creates a filing for a company and fiscal period.
func NewFiling(companyID id.ID, year int, period types.Period) *Filing {
	return &Filing{
		BaseDocument: entity.NewBaseDocument(),
		CompanyID:    companyID,
		Year:         year,
		Period:       period,
		Status:       StatusPending,
		ActiveTotal:  types.Zero(),
		PassiveTotal: types.Zero(),
		BalanceDelta: types.Zero(),
	}
}

// Key identifies the fiscal slot this filing occupies. At most one
// non-superseded filing may exist per key.
func (f *Filing) Key() string {
	return fmt.Sprintf("%s:%d:%s", f.CompanyID, f.Year, f.Period)
}

// IsActive reports whether the filing currently represents its slot.
func (f *Filing) IsActive() bool {
	return f.Status != StatusSuperseded
}

// SetStatus moves the filing to a new status, enforcing transitions.
func (f *Filing) SetStatus(to Status) error {
	if f.Status == to {
		return nil
	}
	if !CanTransition(f.Status, to) {
		return apperror.NewStatusTransition(string(f.Status), string(to))
	}
	f.Status = to
	return nil
}

// Supersede marks the filing as replaced.
func (f *Filing) Supersede() error {
	return f.SetStatus(StatusSuperseded)
}

// Validate implements entity.Validatable.
func (f *Filing) Validate(ctx context.Context) error {
	if id.IsNil(f.CompanyID) {
		return apperror.NewValidation("company is required").
			WithDetail("field", "companyId")
	}

	if f.Year < 1950 || f.Year > 2100 {
		return apperror.NewValidation("year out of range").
			WithDetail("field", "year").
			WithDetail("value", f.Year)
	}

	if !f.Period.IsValid() {
		return apperror.NewValidation("invalid period").
			WithDetail("field", "period").
			WithDetail("value", string(f.Period))
	}

	if !f.Status.IsValid() {
		return apperror.NewValidation("invalid status").
			WithDetail("field", "status").
			WithDetail("value", string(f.Status))
	}

	return nil
}
