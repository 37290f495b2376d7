// Package accounts provides the chart-of-accounts registry (Tek Düzen Hesap
// Planı derived taxonomy). The registry is loaded once at startup and is
// read-only thereafter; concurrent reads are always safe.
package accounts

import (
	"strings"
)

// AccountType classifies an account as asset-side or liability-and-equity-side.
type AccountType string

const (
	TypeActive  AccountType = "active"  // Aktif (varlıklar)
	TypePassive AccountType = "passive" // Pasif (kaynaklar)
)

// IsValid reports whether t is a known account type.
func (t AccountType) IsValid() bool {
	return t == TypeActive || t == TypePassive
}

// AccountNode is one entry in the chart of accounts.
type AccountNode struct {
	// Code is the dotted hierarchical identifier, e.g. "A.1.3.1".
	Code string `json:"code"`

	// Name is the canonical label (Turkish accounting terminology).
	Name string `json:"name"`

	// Type is active or passive. Every non-root node's type equals its
	// parent's type.
	Type AccountType `json:"type"`

	// ParentCode references the parent node; empty for root nodes.
	ParentCode string `json:"parentCode,omitempty"`

	// Level is the depth in the hierarchy, derived from code segment count.
	Level int `json:"level"`
}

// IsRoot reports whether the node sits at the top of its hierarchy.
func (n *AccountNode) IsRoot() bool {
	return n.ParentCode == ""
}

// TypeFromCode derives the account type from a dotted code prefix.
// Codes under "A" are active, codes under "P" are passive.
func TypeFromCode(code string) (AccountType, bool) {
	switch {
	case strings.HasPrefix(code, "A.") || code == "A":
		return TypeActive, true
	case strings.HasPrefix(code, "P.") || code == "P":
		return TypePassive, true
	}
	return "", false
}

// codeLevel returns the hierarchy depth for a dotted code.
// "A.1" is level 1, "A.1.3.1" is level 3.
func codeLevel(code string) int {
	return strings.Count(code, ".")
}

// parentOf returns the parent code for a dotted code, or "" for roots.
// "A.1.3.1" -> "A.1.3"; "A.1" -> "" (the bare type prefix is not a node).
func parentOf(code string) string {
	idx := strings.LastIndex(code, ".")
	if idx <= 0 {
		return ""
	}
	parent := code[:idx]
	if parent == "A" || parent == "P" {
		return ""
	}
	return parent
}
