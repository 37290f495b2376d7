// Package companies provides the Company catalog. Companies are the
// legal entities whose balance sheet filings the system ingests.
package companies

import (
	"context"
	"regexp"
	"strings"

	"bilanco/internal/core/apperror"
	"bilanco/internal/core/entity"
)

var (
	whitespaceRE = regexp.MustCompile(`\s`)
	digitsOnlyRE = regexp.MustCompile(`^\d+$`)
	emailRE      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// Company represents a legal entity filing balance sheets.
type Company struct {
	entity.Catalog

	// TaxID is the Turkish tax number (VKN, 10 digits). Unique.
	TaxID *string `db:"tax_id" json:"taxId"`

	// FullName is the official registered title
	FullName *string `db:"full_name" json:"fullName,omitempty"`

	// Sector is a free-form industry label used for benchmark selection
	Sector *string `db:"sector" json:"sector,omitempty"`

	// Address is the registered address
	Address *string `db:"address" json:"address,omitempty"`

	// Email is the primary contact email
	Email *string `db:"email" json:"email,omitempty"`

	// Comment is a free-form note
	Comment *string `db:"comment" json:"comment,omitempty"`
}

// NewCompany creates a new Company with required fields.
func NewCompany(code, name string) *Company {
	return &Company{
		Catalog: entity.NewCatalog(code, name),
	}
}

// Validate implements entity.Validatable interface.
func (c *Company) Validate(ctx context.Context) error {
	if err := c.Catalog.Validate(ctx); err != nil {
		return err
	}

	if c.TaxID != nil && *c.TaxID != "" {
		if err := validateTaxID(*c.TaxID); err != nil {
			return err
		}
	}

	if c.Email != nil && *c.Email != "" && !emailRE.MatchString(*c.Email) {
		return apperror.NewValidation("invalid email format").
			WithDetail("field", "email")
	}

	return nil
}

// TitleMatches reports whether a declared title from an extracted
// document refers to this company. Comparison ignores case, diacritics,
// legal-form suffixes and whitespace differences; anything beyond that
// is a mismatch.
func (c *Company) TitleMatches(declared string) bool {
	return normalizeTitle(c.Name) == normalizeTitle(declared)
}

// TrivialTitle reports whether a declared title is too short to compare
// against a registered name once normalized. Such titles carry no
// signal either way.
func TrivialTitle(declared string) bool {
	return len([]rune(normalizeTitle(declared))) <= 3
}

// legal-form suffixes commonly appended to Turkish company titles
var legalFormTokens = []string{
	"anonim sirketi", "limited sirketi", "a.s.", "a.s", "ltd. sti.", "ltd.sti.", "ltd sti",
}

func normalizeTitle(s string) string {
	folded := strings.ToLower(strings.TrimSpace(s))
	folded = foldTurkish(folded)
	for _, tok := range legalFormTokens {
		folded = strings.ReplaceAll(folded, tok, "")
	}
	return strings.Join(strings.Fields(folded), " ")
}

var titleFolder = strings.NewReplacer(
	"ç", "c", "ğ", "g", "ı", "i", "ö", "o", "ş", "s", "ü", "u",
	"â", "a", "î", "i", "û", "u",
)

func foldTurkish(s string) string {
	return titleFolder.Replace(s)
}

func validateTaxID(taxID string) error {
	cleaned := whitespaceRE.ReplaceAllString(taxID, "")

	if len(cleaned) != 10 {
		return apperror.NewValidation("tax ID must be 10 digits").
			WithDetail("field", "taxId")
	}
	if !digitsOnlyRE.MatchString(cleaned) {
		return apperror.NewValidation("tax ID must contain only digits").
			WithDetail("field", "taxId")
	}

	return nil
}
