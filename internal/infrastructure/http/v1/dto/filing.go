package dto

import (
	"encoding/json"
	"time"

	"bilanco/internal/core/types"
	"bilanco/internal/domain/filings"
	"bilanco/internal/domain/match"
	"bilanco/internal/domain/normalize"
)

// --- Request DTOs ---

// IncomeFiguresRequest carries optional income statement totals.
type IncomeFiguresRequest struct {
	NetSales        types.Money `json:"netSales"`
	CostOfSales     types.Money `json:"costOfSales"`
	OperatingProfit types.Money `json:"operatingProfit"`
	NetProfit       types.Money `json:"netProfit"`
}

func (r *IncomeFiguresRequest) ToEntity() *filings.IncomeFigures {
	if r == nil {
		return nil
	}
	return &filings.IncomeFigures{
		NetSales:        r.NetSales,
		CostOfSales:     r.CostOfSales,
		OperatingProfit: r.OperatingProfit,
		NetProfit:       r.NetProfit,
	}
}

// SubmitFilingRequest is the request body for submitting an extraction result.
// Payload is the extraction service output, passed through verbatim.
type SubmitFilingRequest struct {
	CompanyID string                `json:"companyId" binding:"required"`
	Year      int                   `json:"year"`
	Period    string                `json:"period"`
	Payload   json.RawMessage       `json:"payload" binding:"required"`
	Income    *IncomeFiguresRequest `json:"income"`
}

// ResumeFilingRequest resolves a parked submission.
type ResumeFilingRequest struct {
	Token    string `json:"token" binding:"required"`
	Decision string `json:"decision" binding:"required"`
}

// --- Response DTOs ---

// LineItemResponse is one normalized balance sheet row.
type LineItemResponse struct {
	Label           string      `json:"label"`
	SuggestedCode   string      `json:"suggestedCode,omitempty"`
	MatchedCode     *string     `json:"matchedCode"`
	MatchConfidence float64     `json:"matchConfidence"`
	AccountType     string      `json:"accountType"`
	CurrentAmount   types.Money `json:"currentAmount"`
	PreviousAmount  types.Money `json:"previousAmount"`
	InflationAmount types.Money `json:"inflationAdjustedAmount"`
	SourceYear      int         `json:"sourceYear"`
	SourcePeriod    string      `json:"sourcePeriod"`
	ParseFailed     bool        `json:"parseFailed,omitempty"`
}

func fromLineItem(it *normalize.LineItem) LineItemResponse {
	return LineItemResponse{
		Label:           it.Label,
		SuggestedCode:   it.SuggestedCode,
		MatchedCode:     it.MatchedCode,
		MatchConfidence: it.MatchConfidence,
		AccountType:     string(it.AccountType),
		CurrentAmount:   it.CurrentAmount,
		PreviousAmount:  it.PreviousAmount,
		InflationAmount: it.InflationAdjustedAmount,
		SourceYear:      it.SourceYear,
		SourcePeriod:    string(it.SourcePeriod),
		ParseFailed:     it.ParseFailed,
	}
}

// FilingResponse contains filing fields.
type FilingResponse struct {
	BaseResponse
	Number              string                `json:"number"`
	CompanyID           string                `json:"companyId"`
	DeclaredCompanyName string                `json:"declaredCompanyName,omitempty"`
	DeclaredTaxID       *string               `json:"declaredTaxId,omitempty"`
	Year                int                   `json:"year"`
	Period              string                `json:"period"`
	Status              string                `json:"status"`
	ActiveTotal         types.Money           `json:"activeTotal"`
	PassiveTotal        types.Money           `json:"passiveTotal"`
	BalanceDelta        types.Money           `json:"balanceDelta"`
	Income              *IncomeFiguresRequest `json:"income,omitempty"`
	Items               []LineItemResponse    `json:"items,omitempty"`
	CreatedAt           time.Time             `json:"createdAt"`
	UpdatedAt           time.Time             `json:"updatedAt"`
}

// FromFiling creates FilingResponse from domain entity.
func FromFiling(f *filings.Filing) FilingResponse {
	resp := FilingResponse{
		BaseResponse:        FromBaseEntity(f.BaseEntity),
		Number:              f.Number,
		CompanyID:           f.CompanyID.String(),
		DeclaredCompanyName: f.DeclaredCompanyName,
		DeclaredTaxID:       f.DeclaredTaxID,
		Year:                f.Year,
		Period:              string(f.Period),
		Status:              string(f.Status),
		ActiveTotal:         f.ActiveTotal,
		PassiveTotal:        f.PassiveTotal,
		BalanceDelta:        f.BalanceDelta,
		CreatedAt:           f.CreatedAt,
		UpdatedAt:           f.UpdatedAt,
	}

	if f.Income != nil {
		resp.Income = &IncomeFiguresRequest{
			NetSales:        f.Income.NetSales,
			CostOfSales:     f.Income.CostOfSales,
			OperatingProfit: f.Income.OperatingProfit,
			NetProfit:       f.Income.NetProfit,
		}
	}

	if len(f.Items) > 0 {
		resp.Items = make([]LineItemResponse, len(f.Items))
		for i, it := range f.Items {
			resp.Items[i] = fromLineItem(it)
		}
	}

	return resp
}

// BalanceResponse reports the balance check outcome.
type BalanceResponse struct {
	ActiveTotal    types.Money `json:"activeTotal"`
	PassiveTotal   types.Money `json:"passiveTotal"`
	Delta          types.Money `json:"delta"`
	Balanced       bool        `json:"balanced"`
	MatchedCount   int         `json:"matchedCount"`
	UnmatchedCount int         `json:"unmatchedCount"`
	Warnings       []string    `json:"warnings,omitempty"`
}

func fromBalance(b *filings.BalanceResult) *BalanceResponse {
	if b == nil {
		return nil
	}
	return &BalanceResponse{
		ActiveTotal:    b.ActiveTotal,
		PassiveTotal:   b.PassiveTotal,
		Delta:          b.Delta,
		Balanced:       b.Balanced,
		MatchedCount:   b.MatchedCount,
		UnmatchedCount: b.UnmatchedCount,
		Warnings:       b.Warnings,
	}
}

// SubmitFilingResponse is the outcome of Submit or Resume. Either a
// filing was persisted, or the submission is parked behind a token.
type SubmitFilingResponse struct {
	Filing *FilingResponse `json:"filing,omitempty"`

	Signal string `json:"signal,omitempty"`
	Token  string `json:"token,omitempty"`

	Existing *FilingResponse `json:"existing,omitempty"`

	DeclaredTitle string `json:"declaredTitle,omitempty"`
	RegistryTitle string `json:"registryTitle,omitempty"`

	Discarded bool `json:"discarded,omitempty"`

	Balance *BalanceResponse `json:"balance,omitempty"`

	MatchStats match.Stats     `json:"matchStats"`
	NormStats  normalize.Stats `json:"normStats"`
}

// FromSubmitResult creates SubmitFilingResponse from the service result.
func FromSubmitResult(res *filings.SubmitResult) SubmitFilingResponse {
	resp := SubmitFilingResponse{
		Signal:        string(res.Signal),
		Token:         res.Token,
		DeclaredTitle: res.DeclaredTitle,
		RegistryTitle: res.RegistryTitle,
		Discarded:     res.Discarded,
		Balance:       fromBalance(res.Balance),
		MatchStats:    res.MatchStats,
		NormStats:     res.NormStats,
	}

	if res.Filing != nil {
		f := FromFiling(res.Filing)
		resp.Filing = &f
	}
	if res.Existing != nil {
		f := FromFiling(res.Existing)
		resp.Existing = &f
	}

	return resp
}
