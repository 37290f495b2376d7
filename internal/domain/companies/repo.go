package companies

import (
	"context"

	"bilanco/internal/core/id"
	"bilanco/internal/domain"
)

// Repository defines the interface for Company persistence.
type Repository interface {
	domain.CatalogRepository[*Company]

	// FindByTaxID retrieves a company by tax number (unique).
	FindByTaxID(ctx context.Context, taxID string) (*Company, error)

	// GetForUpdate retrieves a company with a row lock (for transactional updates).
	GetForUpdate(ctx context.Context, id id.ID) (*Company, error)
}
