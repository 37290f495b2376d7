package extraction

import (
	"testing"
)

func TestDecode_LegacyArrayFormat(t *testing.T) {
	data := []byte(`[
		{"label": "Kasa", "yearValues": {"2024": "1.250,00"}},
		{"label": "Bankalar", "suggestedCode": "A.1.1.3", "yearValues": {"2024": "95.000,00", "2023": "41.300,50"}}
	]`)

	result, err := Decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Meta != nil {
		t.Error("legacy format should not carry meta")
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if result.Items[1].SuggestedCode != "A.1.1.3" {
		t.Errorf("suggested code lost: %q", result.Items[1].SuggestedCode)
	}
	if result.Items[1].YearValues["2023"] != "41.300,50" {
		t.Errorf("year value lost: %q", result.Items[1].YearValues["2023"])
	}
}

func TestDecode_EnvelopeFormat(t *testing.T) {
	data := []byte(`{
		"companyName": "Aydın Tekstil San. ve Tic. A.Ş.",
		"taxId": "1234567890",
		"year": 2024,
		"period": "Q1",
		"items": [{"label": "Satıcılar", "yearValues": {"2024": "12.000,00"}}]
	}`)

	result, err := Decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Meta == nil {
		t.Fatal("expected meta")
	}
	if result.Meta.CompanyName != "Aydın Tekstil San. ve Tic. A.Ş." {
		t.Errorf("unexpected company name: %q", result.Meta.CompanyName)
	}
	if result.Meta.Year != 2024 || result.Meta.Period != "Q1" {
		t.Errorf("unexpected meta: %+v", result.Meta)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result.Items))
	}
}

func TestDecode_RepairsMalformedJSON(t *testing.T) {
	// Trailing comma, the most common AI output defect.
	data := []byte(`{"companyName": "Test A.Ş.", "year": 2024, "items": [{"label": "Kasa", "yearValues": {"2024": "100,00"}},]}`)

	result, err := Decode(data)
	if err != nil {
		t.Fatalf("expected repair to succeed, got: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result.Items))
	}
}

func TestDecode_Garbage(t *testing.T) {
	if _, err := Decode([]byte("")); err == nil {
		t.Error("expected error for empty input")
	}
	if _, err := Decode([]byte("   ")); err == nil {
		t.Error("expected error for blank input")
	}
}

func TestFailedResult(t *testing.T) {
	result := FailedResult()
	if !result.Failed {
		t.Error("expected Failed flag")
	}
	if !result.Empty() {
		t.Error("expected no items")
	}
}
