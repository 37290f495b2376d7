package match

import (
	"context"
	"testing"

	"bilanco/internal/domain/accounts"
	"bilanco/internal/domain/normalize"
)

var testCtx = context.Background()

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	reg, err := accounts.Load()
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	return New(reg)
}

func TestOne_RecognizedSuggestionWins(t *testing.T) {
	m := newTestMatcher(t)
	it := &normalize.LineItem{Label: "Kasa", SuggestedCode: "A.1.1.1"}

	src := m.one(it)

	if src != sourceSuggestion {
		t.Fatalf("expected suggestion source, got %d", src)
	}
	if it.MatchedCode == nil || *it.MatchedCode != "A.1.1.1" {
		t.Errorf("matched code = %v", it.MatchedCode)
	}
	if it.MatchConfidence != 1.0 {
		t.Errorf("confidence = %f, want 1.0", it.MatchConfidence)
	}
	if it.AccountType != accounts.TypeActive {
		t.Errorf("account type = %s", it.AccountType)
	}
}

func TestOne_UnknownSuggestionFallsBackToLabel(t *testing.T) {
	m := newTestMatcher(t)
	it := &normalize.LineItem{Label: "Bankalar", SuggestedCode: "X.9.9"}

	src := m.one(it)

	if src != sourceLabel {
		t.Fatalf("expected label source, got %d", src)
	}
	if it.MatchedCode == nil || *it.MatchedCode != "A.1.1.3" {
		t.Errorf("matched code = %v", it.MatchedCode)
	}
	if it.MatchConfidence < DefaultThreshold {
		t.Errorf("confidence %f below threshold", it.MatchConfidence)
	}
}

func TestOne_DiacriticInsensitiveLabelMatch(t *testing.T) {
	m := newTestMatcher(t)
	it := &normalize.LineItem{Label: "SUPHELI TICARI ALACAKLAR"}

	if src := m.one(it); src != sourceLabel {
		t.Fatalf("expected label source, got %d", src)
	}
	if it.MatchedCode == nil || *it.MatchedCode != "A.1.3.4" {
		t.Errorf("matched code = %v", it.MatchedCode)
	}
}

func TestOne_BelowThresholdStaysUnmatched(t *testing.T) {
	m := newTestMatcher(t)
	it := &normalize.LineItem{Label: "Tamamen Alakasız Bir Kalem Adı"}

	src := m.one(it)

	if src != sourceNone {
		t.Fatalf("expected unmatched, got %d", src)
	}
	if it.MatchedCode != nil {
		t.Errorf("unmatched item must keep nil code, got %q", *it.MatchedCode)
	}
	if it.MatchConfidence != 0 {
		t.Errorf("confidence = %f, want 0", it.MatchConfidence)
	}
	// Even unmatched items are classified so balance validation can
	// put them on a side if they ever get matched manually.
	if !it.AccountType.IsValid() {
		t.Errorf("unmatched item must still carry an account type")
	}
}

func TestOne_UnmatchedKeywordClassification(t *testing.T) {
	m := newTestMatcher(t)
	it := &normalize.LineItem{Label: "Ertelenmiş Borç Karşılıkları Fonu"}

	if src := m.one(it); src != sourceNone {
		t.Fatalf("expected unmatched, got %d", src)
	}
	if it.AccountType != accounts.TypePassive {
		t.Errorf("borç keyword must classify passive, got %s", it.AccountType)
	}
}

func TestOne_Idempotent(t *testing.T) {
	m := newTestMatcher(t)
	it := &normalize.LineItem{Label: "Satıcılar"}

	m.one(it)
	firstCode := it.MatchedCode
	firstConf := it.MatchConfidence

	m.one(it)

	if (firstCode == nil) != (it.MatchedCode == nil) {
		t.Fatal("second pass changed match presence")
	}
	if firstCode != nil && *firstCode != *it.MatchedCode {
		t.Errorf("second pass changed code: %s vs %s", *firstCode, *it.MatchedCode)
	}
	if firstConf != it.MatchConfidence {
		t.Errorf("second pass changed confidence: %f vs %f", firstConf, it.MatchConfidence)
	}
}

func TestItems_Stats(t *testing.T) {
	m := newTestMatcher(t)
	items := []*normalize.LineItem{
		{Label: "Kasa", SuggestedCode: "A.1.1.1"},
		{Label: "Bankalar"},
		{Label: "Hiçbir Hesaba Benzemeyen Kalem"},
	}

	st := m.Items(testCtx, items)

	if st.BySuggestion != 1 {
		t.Errorf("by_suggestion = %d, want 1", st.BySuggestion)
	}
	if st.ByLabel != 1 {
		t.Errorf("by_label = %d, want 1", st.ByLabel)
	}
	if st.Unmatched != 1 {
		t.Errorf("unmatched = %d, want 1", st.Unmatched)
	}
	if len(items) != 3 {
		t.Fatal("matching must never drop items")
	}
}

func TestNewWithThreshold(t *testing.T) {
	reg := accounts.MustLoad()
	// With an impossible threshold nothing matches by label.
	m := NewWithThreshold(reg, 1.01)
	it := &normalize.LineItem{Label: "Bankalar"}

	if src := m.one(it); src != sourceNone {
		t.Errorf("expected unmatched under threshold 1.01, got %d", src)
	}
}
