package companies

import (
	"context"
	"fmt"
	"time"

	"bilanco/internal/core/apperror"
	"bilanco/internal/core/id"
	"bilanco/internal/core/tx"
	"bilanco/internal/domain"
	"bilanco/pkg/numerator"
)

// Service provides business logic for the Company catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Company]
	repo      Repository
	txManager tx.Manager
	numerator *numerator.Service
}

// NewService creates a new Company service.
func NewService(
	repo Repository,
	txManager tx.Manager,
	num *numerator.Service,
) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Company]{
		Repo:       repo,
		TxManager:  txManager,
		Numerator:  num,
		EntityName: "company",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		txManager:      txManager,
		numerator:      num,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.prepareForUpdate)

	return svc
}

// prepareForCreate handles code generation and uniqueness checks before create.
func (s *Service) prepareForCreate(ctx context.Context, c *Company) error {
	if c.Code == "" {
		cfg := numerator.DefaultConfig("CMP")
		cfg.IncludeYear = false
		cfg.ResetPeriod = "never"
		code, err := s.numerator.GetNextNumber(ctx, cfg, nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		c.Code = code
	}

	return s.checkTaxIDUnique(ctx, c)
}

// prepareForUpdate handles uniqueness checks before update.
func (s *Service) prepareForUpdate(ctx context.Context, c *Company) error {
	return s.checkTaxIDUnique(ctx, c)
}

// FindByTaxID retrieves a company by tax number.
func (s *Service) FindByTaxID(ctx context.Context, taxID string) (*Company, error) {
	return s.repo.FindByTaxID(ctx, taxID)
}

// UpdateTitle renames a company. Used when a title mismatch is
// resolved in favor of the extracted document.
func (s *Service) UpdateTitle(ctx context.Context, companyID id.ID, title string) error {
	if title == "" {
		return apperror.NewValidation("title is required").WithDetail("field", "title")
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetForUpdate(ctx, companyID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("company", companyID.String())
			}
			return err
		}

		c.Name = title
		c.Touch()
		if err := s.repo.Update(ctx, c); err != nil {
			return fmt.Errorf("update company title: %w", err)
		}
		return nil
	})
}

// checkTaxIDUnique rejects a tax ID already used by another company.
func (s *Service) checkTaxIDUnique(ctx context.Context, c *Company) error {
	if c.TaxID == nil || *c.TaxID == "" {
		return nil
	}

	existing, err := s.repo.FindByTaxID(ctx, *c.TaxID)
	if err != nil {
		// Not found is fine; anything else must be propagated.
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != c.ID {
		return apperror.NewConflict("company with this tax ID already exists").
			WithDetail("taxId", *c.TaxID)
	}
	return nil
}
