package types

import (
	"fmt"
	"strings"
)

// Period is the reporting interval tag of a filing: one fiscal year, a
// quarter, or a month.
type Period string

const (
	PeriodAnnual Period = "annual"
	PeriodQ1     Period = "Q1"
	PeriodQ2     Period = "Q2"
	PeriodQ3     Period = "Q3"
	PeriodQ4     Period = "Q4"
)

// MonthPeriod returns the monthly period tag for month 1..12 (e.g. "M3").
func MonthPeriod(month int) (Period, error) {
	if month < 1 || month > 12 {
		return "", fmt.Errorf("invalid month %d", month)
	}
	return Period(fmt.Sprintf("M%d", month)), nil
}

// ParsePeriod normalizes a period string to a Period.
// Accepts "annual"/"yillik", quarter tags case-insensitively ("q1".."q4")
// and month tags ("m1".."m12").
func ParsePeriod(s string) (Period, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	switch normalized {
	case "", "ANNUAL", "YILLIK", "YEAR":
		return PeriodAnnual, nil
	case "Q1", "Q2", "Q3", "Q4":
		return Period(normalized), nil
	}

	if strings.HasPrefix(normalized, "M") {
		var month int
		if _, err := fmt.Sscanf(normalized, "M%d", &month); err == nil {
			return MonthPeriod(month)
		}
	}

	return "", fmt.Errorf("invalid period %q", s)
}

// IsValid reports whether p is a recognized period tag.
func (p Period) IsValid() bool {
	parsed, err := ParsePeriod(string(p))
	return err == nil && parsed == p
}

// String implements fmt.Stringer.
func (p Period) String() string {
	return string(p)
}
