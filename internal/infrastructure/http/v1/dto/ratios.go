package dto

import (
	"bilanco/internal/domain/ratios"
)

// TurnoverResponse lists turnover ratios computed across two periods.
// The snapshot report (ratios.Report) serializes itself.
type TurnoverResponse struct {
	CurrentFilingID  string         `json:"currentFilingId"`
	PreviousFilingID string         `json:"previousFilingId"`
	Ratios           []ratios.Ratio `json:"ratios"`
}
