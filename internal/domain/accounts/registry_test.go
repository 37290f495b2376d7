package accounts

import (
	"testing"

	"bilanco/internal/core/apperror"
)

func TestLoad(t *testing.T) {
	r, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if r.Len() == 0 {
		t.Fatal("registry is empty")
	}
}

func TestLookupByCode(t *testing.T) {
	r := MustLoad()

	node, err := r.LookupByCode("A.1.1.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.Name != "Kasa" {
		t.Errorf("expected Kasa, got %s", node.Name)
	}
	if node.Type != TypeActive {
		t.Errorf("expected active, got %s", node.Type)
	}
	if node.Level != 3 {
		t.Errorf("expected level 3, got %d", node.Level)
	}

	_, err = r.LookupByCode("X.9.9")
	if !apperror.IsNotFound(err) {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestTypeSubtreeInvariant(t *testing.T) {
	r := MustLoad()

	for _, node := range r.Nodes() {
		if node.ParentCode == "" {
			continue
		}
		parent, err := r.LookupByCode(node.ParentCode)
		if err != nil {
			t.Fatalf("parent of %s missing: %v", node.Code, err)
		}
		if parent.Type != node.Type {
			t.Errorf("%s type %s differs from parent %s type %s",
				node.Code, node.Type, parent.Code, parent.Type)
		}
	}
}

func TestChildrenAndAncestors(t *testing.T) {
	r := MustLoad()

	children := r.Children("A.1.1")
	if len(children) == 0 {
		t.Fatal("A.1.1 should have children")
	}
	for _, child := range children {
		if child.ParentCode != "A.1.1" {
			t.Errorf("child %s has parent %s", child.Code, child.ParentCode)
		}
	}

	chain, err := r.Ancestors("A.1.3.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chain) != 2 {
		t.Fatalf("expected 2 ancestors, got %d", len(chain))
	}
	if chain[0].Code != "A.1.3" || chain[1].Code != "A.1" {
		t.Errorf("unexpected chain: %s, %s", chain[0].Code, chain[1].Code)
	}
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Şüpheli   Ticari Alacaklar", "supheli ticari alacaklar"},
		{"BANKALAR", "bankalar"},
		{"  Kasa \t", "kasa"},
		{"DÖNEN VARLIKLAR", "donen varliklar"},
		{"İş Avansları", "is avanslari"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeLabel(tt.in); got != tt.want {
			t.Errorf("NormalizeLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSearchByLabel(t *testing.T) {
	r := MustLoad()

	t.Run("exact name scores highest", func(t *testing.T) {
		results := r.SearchByLabel("Kasa", 5)
		if len(results) == 0 {
			t.Fatal("no results")
		}
		if results[0].Node.Code != "A.1.1.1" {
			t.Errorf("expected A.1.1.1 first, got %s", results[0].Node.Code)
		}
		if results[0].Score != 1.0 {
			t.Errorf("expected score 1.0, got %f", results[0].Score)
		}
	})

	t.Run("diacritic and case insensitive", func(t *testing.T) {
		results := r.SearchByLabel("SUPHELI TICARI ALACAKLAR", 5)
		if len(results) == 0 {
			t.Fatal("no results")
		}
		if results[0].Node.Code != "A.1.3.4" {
			t.Errorf("expected A.1.3.4 first, got %s", results[0].Node.Code)
		}
	})

	t.Run("ordered and restartable", func(t *testing.T) {
		first := r.SearchByLabel("Ticari Alacaklar", 10)
		second := r.SearchByLabel("Ticari Alacaklar", 10)
		if len(first) != len(second) {
			t.Fatalf("result sizes differ: %d vs %d", len(first), len(second))
		}
		for i := range first {
			if first[i].Node.Code != second[i].Node.Code || first[i].Score != second[i].Score {
				t.Errorf("result %d differs between runs", i)
			}
		}
		for i := 1; i < len(first); i++ {
			if first[i].Score > first[i-1].Score {
				t.Errorf("results not ordered by score at %d", i)
			}
		}
	})

	t.Run("exact leaf beats containing group names", func(t *testing.T) {
		results := r.SearchByLabel("Banka Kredileri", 5)
		if len(results) == 0 {
			t.Fatal("no results")
		}
		if results[0].Node.Code != "P.3.1.1" {
			t.Errorf("expected leaf P.3.1.1 first, got %s", results[0].Node.Code)
		}
	})

	t.Run("limit respected", func(t *testing.T) {
		results := r.SearchByLabel("a", 3)
		if len(results) > 3 {
			t.Errorf("limit exceeded: %d", len(results))
		}
	})

	t.Run("empty query", func(t *testing.T) {
		if results := r.SearchByLabel("   ", 5); results != nil {
			t.Errorf("expected nil for blank query, got %d results", len(results))
		}
	})
}

func TestClassifyLabel(t *testing.T) {
	r := MustLoad()

	tests := []struct {
		label string
		want  AccountType
	}{
		{"PASİF GEÇİCİ HESAP", TypePassive},
		{"Banka Kredileri Toplamı", TypePassive},
		{"Ödenmiş Sermaye", TypePassive},
		{"Bilinmeyen Kalem", TypeActive}, // ambiguous defaults to active
		{"", TypeActive},
	}

	for _, tt := range tests {
		if got := r.ClassifyLabel(tt.label); got != tt.want {
			t.Errorf("ClassifyLabel(%q) = %s, want %s", tt.label, got, tt.want)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "abc", 3},
		{"abc", "", 3},
		{"kasa", "kasa", 0},
		{"kasa", "masa", 1},
		{"alicilar", "alacaklar", 3},
	}

	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
