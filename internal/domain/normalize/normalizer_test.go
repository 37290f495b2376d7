package normalize

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"bilanco/internal/core/types"
	"bilanco/internal/domain/extraction"
)

var testCtx = context.Background()

func fc2024() FiscalContext {
	return FiscalContext{Year: 2024, Period: types.PeriodAnnual}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1.234,56", "1234.56", false},
		{"125.000,00", "125000", false},
		{"0,50", "0.5", false},
		{"-", "0", false},
		{"", "0", false},
		{"  ", "0", false},
		{"-1.500,25", "-1500.25", false},
		{"(2.000,00)", "-2000", false},
		{"95.000,00 TL", "95000", false},
		{"12345", "12345", false},
		{"abc", "", true},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q): unexpected error: %v", tt.in, err)
			continue
		}
		want := decimal.RequireFromString(tt.want)
		if !got.Equal(want) {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, want)
		}
	}
}

func TestParseAmount_RoundTrip(t *testing.T) {
	// Re-serializing and re-parsing is lossless to two decimal places.
	original, err := ParseAmount("1.234,56")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	serialized := original.StringFixed(2) // "1234.56"
	reparsed, err := decimal.NewFromString(serialized)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reparsed.Equal(original) {
		t.Errorf("round trip lost precision: %s vs %s", original, reparsed)
	}
}

func TestOne_YearClassification(t *testing.T) {
	raw := extraction.RawLineItem{
		Label: "Kasa",
		YearValues: map[string]string{
			"2024":                      "1.000,00",
			"2023":                      "750,00",
			"2024 Enflasyon Düzeltmeli": "1.100,00",
		},
	}

	item := One(testCtx, raw, fc2024())

	if !item.CurrentAmount.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("current = %s", item.CurrentAmount)
	}
	if !item.PreviousAmount.Equal(decimal.RequireFromString("750")) {
		t.Errorf("previous = %s", item.PreviousAmount)
	}
	if !item.InflationAdjustedAmount.Equal(decimal.RequireFromString("1100")) {
		t.Errorf("inflation adjusted = %s", item.InflationAdjustedAmount)
	}
	if item.ParseFailed {
		t.Error("unexpected parse_failed flag")
	}
	if item.SourceYear != 2024 || item.SourcePeriod != types.PeriodAnnual {
		t.Errorf("fiscal context lost: %d %s", item.SourceYear, item.SourcePeriod)
	}
}

func TestOne_UnrelatedYearIgnored(t *testing.T) {
	raw := extraction.RawLineItem{
		Label:      "Kasa",
		YearValues: map[string]string{"2019": "999,00"},
	}

	item := One(testCtx, raw, fc2024())
	if !item.CurrentAmount.IsZero() || !item.PreviousAmount.IsZero() {
		t.Error("amounts from unrelated years must not be assigned")
	}
}

func TestOne_AllValuesUnparseable(t *testing.T) {
	raw := extraction.RawLineItem{
		Label:      "Şüpheli Ticari Alacaklar",
		YearValues: map[string]string{"2024": "##OCR##", "2023": "???"},
	}

	item := One(testCtx, raw, fc2024())
	if !item.ParseFailed {
		t.Error("expected parse_failed flag")
	}
	if !item.CurrentAmount.IsZero() {
		t.Errorf("amounts must be zero, got %s", item.CurrentAmount)
	}
}

func TestOne_DashIsZeroNotFailure(t *testing.T) {
	// "-" is a legitimate zero balance, not a parse failure.
	raw := extraction.RawLineItem{
		Label:      "Ortaklardan Alacaklar",
		YearValues: map[string]string{"2024": "-"},
	}

	item := One(testCtx, raw, fc2024())
	if item.ParseFailed {
		t.Error("dash must parse as zero, not flag parse_failed")
	}
	if !item.CurrentAmount.IsZero() {
		t.Errorf("expected zero, got %s", item.CurrentAmount)
	}
}

func TestItems_EmptyLabelDropped(t *testing.T) {
	raw := []extraction.RawLineItem{
		{Label: "", YearValues: map[string]string{"2024": "1,00"}},
		{Label: "   ", YearValues: map[string]string{"2024": "2,00"}},
		{Label: "Kasa", YearValues: map[string]string{"2024": "3,00"}},
	}

	items, stats := Items(testCtx, raw, fc2024())
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if stats.Dropped != 2 {
		t.Errorf("expected 2 dropped, got %d", stats.Dropped)
	}
	if items[0].Label != "Kasa" {
		t.Errorf("wrong survivor: %q", items[0].Label)
	}
}

func TestItems_ParseFailedRetained(t *testing.T) {
	raw := []extraction.RawLineItem{
		{Label: "Bozuk Kalem", YearValues: map[string]string{"2024": "@@@"}},
	}

	items, stats := Items(testCtx, raw, fc2024())
	if len(items) != 1 {
		t.Fatal("parse-failed item must be retained")
	}
	if stats.ParseFailed != 1 {
		t.Errorf("expected 1 parse_failed, got %d", stats.ParseFailed)
	}
}
