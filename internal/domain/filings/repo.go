package filings

import (
	"context"

	"bilanco/internal/core/id"
	"bilanco/internal/core/types"
	"bilanco/internal/domain"
	"bilanco/internal/domain/normalize"
)

// Repository defines operations for balance sheet filings.
type Repository interface {
	// CRUD operations
	Create(ctx context.Context, f *Filing) error
	GetByID(ctx context.Context, filingID id.ID) (*Filing, error)
	GetByNumber(ctx context.Context, number string) (*Filing, error)
	Update(ctx context.Context, f *Filing) error

	// FindActiveByKey retrieves the non-superseded filing occupying a
	// fiscal slot, if any.
	FindActiveByKey(ctx context.Context, companyID id.ID, year int, period types.Period) (*Filing, error)

	// Item operations (table part)
	GetItems(ctx context.Context, filingID id.ID) ([]*normalize.LineItem, error)
	SaveItems(ctx context.Context, filingID id.ID, items []*normalize.LineItem) error

	// List operations
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Filing], error)

	// Locking
	GetForUpdate(ctx context.Context, filingID id.ID) (*Filing, error)
}

// ListFilter for filtering filings.
type ListFilter struct {
	domain.ListFilter

	CompanyID *id.ID
	Year      *int
	Period    *types.Period
	Status    *Status
}

// Archiver stores raw extraction payloads alongside filings so a
// reconciliation decision can be audited later.
type Archiver interface {
	Store(ctx context.Context, filingID id.ID, payload []byte) error
	Load(ctx context.Context, filingID id.ID) ([]byte, error)
}
