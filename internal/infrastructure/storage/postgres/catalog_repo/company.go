package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bilanco/internal/core/apperror"
	"bilanco/internal/core/id"
	"bilanco/internal/domain/companies"
	"bilanco/internal/infrastructure/storage/postgres"
)

const companyTable = "cat_companies"

var companyColumns = []string{
	"id", "deletion_mark", "version",
	"code", "name",
	"tax_id", "full_name", "sector", "address", "email", "comment",
}

// CompanyRepo implements companies.Repository on PostgreSQL.
type CompanyRepo struct {
	*BaseCatalogRepo[*companies.Company]
}

var _ companies.Repository = (*CompanyRepo)(nil)

// NewCompanyRepo creates a company repository.
func NewCompanyRepo(txManager *postgres.TxManager) *CompanyRepo {
	return &CompanyRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			companyTable,
			companyColumns,
			func() *companies.Company { return &companies.Company{} },
		),
	}
}

// FindByTaxID retrieves a company by its tax number.
func (r *CompanyRepo) FindByTaxID(ctx context.Context, taxID string) (*companies.Company, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"tax_id": taxID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	return r.FindOne(ctx, q)
}

// GetForUpdate retrieves a company with a row lock. Must be called
// inside a transaction, the lock is released on commit or rollback.
func (r *CompanyRepo) GetForUpdate(ctx context.Context, entityID id.ID) (*companies.Company, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": entityID}).
		Suffix("FOR UPDATE")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	company := &companies.Company{}
	if err := pgxscan.Get(ctx, r.querier(ctx), company, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(companyTable, entityID.String())
		}
		return nil, fmt.Errorf("get for update: %w", err)
	}

	return company, nil
}
