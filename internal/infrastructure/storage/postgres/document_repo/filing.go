// Package document_repo provides PostgreSQL implementations for document repositories.
package document_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bilanco/internal/core/apperror"
	"bilanco/internal/core/id"
	"bilanco/internal/core/types"
	"bilanco/internal/domain"
	"bilanco/internal/domain/filings"
	"bilanco/internal/domain/normalize"
	"bilanco/internal/infrastructure/storage/postgres"
)

const (
	filingsTable     = "doc_filings"
	filingItemsTable = "doc_filing_items"
)

var filingColumns = []string{
	"id", "deletion_mark", "version", "created_at", "updated_at",
	"number", "company_id", "declared_company_name", "declared_tax_id",
	"year", "period", "status",
	"active_total", "passive_total", "balance_delta",
	"net_sales", "cost_of_sales", "operating_profit", "net_profit",
}

var filingItemColumns = []string{
	"label", "suggested_code", "matched_code", "match_confidence",
	"account_type", "current_amount", "previous_amount",
	"inflation_adjusted_amount", "source_year", "source_period",
	"parse_failed",
}

// filingRow flattens the income figures into nullable columns.
// Income is optional on a filing, net_sales IS NULL marks its absence.
type filingRow struct {
	filings.Filing

	RowNetSales        *types.Money `db:"net_sales"`
	RowCostOfSales     *types.Money `db:"cost_of_sales"`
	RowOperatingProfit *types.Money `db:"operating_profit"`
	RowNetProfit       *types.Money `db:"net_profit"`
}

func (row *filingRow) toFiling() *filings.Filing {
	f := row.Filing
	if row.RowNetSales != nil && row.RowCostOfSales != nil && row.RowOperatingProfit != nil && row.RowNetProfit != nil {
		f.Income = &filings.IncomeFigures{
			NetSales:        *row.RowNetSales,
			CostOfSales:     *row.RowCostOfSales,
			OperatingProfit: *row.RowOperatingProfit,
			NetProfit:       *row.RowNetProfit,
		}
	}
	return &f
}

// FilingRepo implements filings.Repository.
type FilingRepo struct {
	txManager *postgres.TxManager
}

var _ filings.Repository = (*FilingRepo)(nil)

// NewFilingRepo creates a filing repository.
func NewFilingRepo(txManager *postgres.TxManager) *FilingRepo {
	return &FilingRepo{txManager: txManager}
}

// Builder returns a new squirrel builder.
func (r *FilingRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *FilingRepo) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

func (r *FilingRepo) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(filingColumns...).
		From(filingsTable)
}

// rowData builds the column map for insert/update. Income figures are
// stored as nullable columns next to the filing itself.
func rowData(f *filings.Filing) (map[string]any, error) {
	data := postgres.StructToMap(f)
	if len(data) == 0 {
		return nil, fmt.Errorf("no db tags found in filing")
	}

	if f.Income != nil {
		data["net_sales"] = f.Income.NetSales
		data["cost_of_sales"] = f.Income.CostOfSales
		data["operating_profit"] = f.Income.OperatingProfit
		data["net_profit"] = f.Income.NetProfit
	} else {
		data["net_sales"] = nil
		data["cost_of_sales"] = nil
		data["operating_profit"] = nil
		data["net_profit"] = nil
	}

	filtered := make(map[string]any, len(filingColumns))
	for _, col := range filingColumns {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}
	return filtered, nil
}

// Create inserts a new filing (header only, items are saved separately).
func (r *FilingRepo) Create(ctx context.Context, f *filings.Filing) error {
	data, err := rowData(f)
	if err != nil {
		return err
	}

	q := r.Builder().
		Insert(filingsTable).
		SetMap(data)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", filingsTable, err)
	}

	return nil
}

// Update modifies a filing header with optimistic locking.
func (r *FilingRepo) Update(ctx context.Context, f *filings.Filing) error {
	data, err := rowData(f)
	if err != nil {
		return err
	}

	version, ok := data["version"].(int)
	if !ok {
		return fmt.Errorf("filing has no 'version' field or it is not an int")
	}

	delete(data, "id")
	delete(data, "created_at")
	delete(data, "version") // managed below

	q := r.Builder().
		Update(filingsTable).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": f.ID}).
		Where(squirrel.Eq{"version": version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", filingsTable, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(filingsTable, f.ID)
	}

	return nil
}

func (r *FilingRepo) findOne(ctx context.Context, q squirrel.SelectBuilder, notFoundID any) (*filings.Filing, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row filingRow
	if err := pgxscan.Get(ctx, r.querier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(filingsTable, notFoundID)
		}
		return nil, fmt.Errorf("get filing: %w", err)
	}

	return row.toFiling(), nil
}

// GetByID retrieves a filing header by ID.
func (r *FilingRepo) GetByID(ctx context.Context, filingID id.ID) (*filings.Filing, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": filingID})

	return r.findOne(ctx, q, filingID.String())
}

// GetByNumber retrieves a filing header by document number.
func (r *FilingRepo) GetByNumber(ctx context.Context, number string) (*filings.Filing, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"number": number})

	return r.findOne(ctx, q, number)
}

// GetForUpdate retrieves a filing with a row lock.
func (r *FilingRepo) GetForUpdate(ctx context.Context, filingID id.ID) (*filings.Filing, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": filingID}).
		Suffix("FOR UPDATE")

	return r.findOne(ctx, q, filingID.String())
}

// FindActiveByKey retrieves the non-superseded filing occupying a fiscal slot.
func (r *FilingRepo) FindActiveByKey(ctx context.Context, companyID id.ID, year int, period types.Period) (*filings.Filing, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"company_id": companyID}).
		Where(squirrel.Eq{"year": year}).
		Where(squirrel.Eq{"period": period}).
		Where(squirrel.NotEq{"status": filings.StatusSuperseded}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	key := fmt.Sprintf("%s:%d:%s", companyID, year, period)
	return r.findOne(ctx, q, key)
}

// GetItems retrieves line items for a filing, in original document order.
func (r *FilingRepo) GetItems(ctx context.Context, filingID id.ID) ([]*normalize.LineItem, error) {
	q := r.Builder().
		Select(filingItemColumns...).
		From(filingItemsTable).
		Where(squirrel.Eq{"filing_id": filingID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*normalize.LineItem
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}

	return items, nil
}

// SaveItems replaces the line items of a filing (delete existing + insert new).
func (r *FilingRepo) SaveItems(ctx context.Context, filingID id.ID, items []*normalize.LineItem) error {
	querier := r.querier(ctx)

	deleteSQL := "DELETE FROM " + filingItemsTable + " WHERE filing_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, filingID); err != nil {
		return fmt.Errorf("delete existing items: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	cols := append([]string{"filing_id", "line_no"}, filingItemColumns...)
	q := r.Builder().
		Insert(filingItemsTable).
		Columns(cols...)

	for i, it := range items {
		q = q.Values(
			filingID, i+1,
			it.Label, it.SuggestedCode, it.MatchedCode, it.MatchConfidence,
			it.AccountType, it.CurrentAmount, it.PreviousAmount,
			it.InflationAdjustedAmount, it.SourceYear, it.SourcePeriod,
			it.ParseFailed,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert items: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert items: %w", err)
	}

	return nil
}

// List retrieves filing headers with filtering.
func (r *FilingRepo) List(ctx context.Context, filter filings.ListFilter) (domain.ListResult[*filings.Filing], error) {
	result := domain.ListResult[*filings.Filing]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}

	if filter.CompanyID != nil {
		q = q.Where(squirrel.Eq{"company_id": *filter.CompanyID})
	}

	if filter.Year != nil {
		q = q.Where(squirrel.Eq{"year": *filter.Year})
	}

	if filter.Period != nil {
		q = q.Where(squirrel.Eq{"period": *filter.Period})
	}

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"number": pattern},
			squirrel.ILike{"declared_company_name": pattern},
		})
	}

	countQ := r.Builder().Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy, err := r.parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	var rows []*filingRow
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return result, fmt.Errorf("select: %w", err)
	}

	result.Items = make([]*filings.Filing, len(rows))
	for i, row := range rows {
		result.Items[i] = row.toFiling()
	}

	return result, nil
}

func (r *FilingRepo) parseOrderBy(orderBy string) (string, error) {
	allowed := make(map[string]struct{}, len(filingColumns))
	for _, col := range filingColumns {
		allowed[col] = struct{}{}
	}

	if strings.TrimSpace(orderBy) == "" {
		return "created_at DESC", nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	field = strings.TrimSpace(field)
	if field == "" {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}

	if _, ok := allowed[field]; !ok {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy).WithDetail("field", field)
	}

	return field + " " + direction, nil
}
