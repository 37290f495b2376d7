package ratios

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilanco/internal/core/id"
	"bilanco/internal/core/types"
	"bilanco/internal/domain/accounts"
	"bilanco/internal/domain/filings"
	"bilanco/internal/domain/normalize"
)

func item(code, amount string) *normalize.LineItem {
	t, _ := accounts.TypeFromCode(code)
	return &normalize.LineItem{
		Label:           code,
		MatchedCode:     &code,
		MatchConfidence: 1.0,
		AccountType:     t,
		CurrentAmount:   types.MustMoney(amount),
	}
}

func testFiling(items ...*normalize.LineItem) *filings.Filing {
	f := filings.NewFiling(id.New(), 2024, types.PeriodAnnual)
	f.Number = "BSF-2024-00001"
	f.Items = items
	_ = f.SetStatus(filings.StatusValidated)
	return f
}

func findRatio(t *testing.T, rs []Ratio, name string) Ratio {
	t.Helper()
	for _, r := range rs {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("ratio %s not found", name)
	return Ratio{}
}

func TestSnapshot_LiquidityRatios(t *testing.T) {
	reg := accounts.MustLoad()
	calc := New(reg, nil)
	ctx := context.Background()

	f := testFiling(
		item("A.1.1.1", "20000"), // cash
		item("A.1.3.1", "30000"), // receivables
		item("A.1.5.1", "50000"), // inventory
		item("A.2.3.1", "100000"), // fixed assets
		item("P.3.2.1", "40000"), // payables
		item("P.4.1.1", "60000"), // long-term debt
		item("P.5.1", "100000"),  // equity
	)

	report, err := calc.Snapshot(ctx, f)
	require.NoError(t, err)

	cat := report.Categories
	assert.True(t, cat.CurrentAssets.Equal(types.MustMoney("100000")), "current assets = %s", cat.CurrentAssets)
	assert.True(t, cat.TotalAssets.Equal(types.MustMoney("200000")), "total assets = %s", cat.TotalAssets)
	assert.True(t, cat.TotalLiabilities.Equal(types.MustMoney("100000")))

	current := findRatio(t, report.Ratios, "current_ratio")
	require.True(t, current.Defined)
	assert.True(t, current.Value.Equal(types.MustMoney("2.5")), "current ratio = %s", current.Value)

	quick := findRatio(t, report.Ratios, "quick_ratio")
	assert.True(t, quick.Value.Equal(types.MustMoney("1.25")), "quick ratio = %s", quick.Value)

	cash := findRatio(t, report.Ratios, "cash_ratio")
	assert.True(t, cash.Value.Equal(types.MustMoney("0.5")), "cash ratio = %s", cash.Value)

	dte := findRatio(t, report.Ratios, "debt_to_equity")
	assert.True(t, dte.Value.Equal(types.MustMoney("1")), "debt to equity = %s", dte.Value)

	nwc := findRatio(t, report.Ratios, "net_working_capital")
	require.True(t, nwc.Defined)
	assert.True(t, nwc.Value.Equal(types.MustMoney("60000")))
}

func TestSnapshot_ZeroDivisorUndefined(t *testing.T) {
	reg := accounts.MustLoad()
	calc := New(reg, nil)
	ctx := context.Background()

	// No current liabilities at all.
	f := testFiling(
		item("A.1.1.1", "20000"),
		item("P.5.1", "20000"),
	)

	report, err := calc.Snapshot(ctx, f)
	require.NoError(t, err)

	current := findRatio(t, report.Ratios, "current_ratio")
	assert.False(t, current.Defined)
	assert.Empty(t, current.Assessment)
}

func TestSnapshot_ProfitabilityNeedsIncome(t *testing.T) {
	reg := accounts.MustLoad()
	calc := New(reg, nil)
	ctx := context.Background()

	f := testFiling(item("A.1.1.1", "100"), item("P.5.1", "100"))

	// Without income figures every profitability ratio is still
	// reported, just undefined.
	report, err := calc.Snapshot(ctx, f)
	require.NoError(t, err)
	for _, name := range profitabilityRatios {
		r := findRatio(t, report.Ratios, name)
		assert.False(t, r.Defined, "%s must be undefined without income figures", name)
	}

	f.Income = &filings.IncomeFigures{
		NetSales:        types.MustMoney("1000"),
		CostOfSales:     types.MustMoney("700"),
		OperatingProfit: types.MustMoney("200"),
		NetProfit:       types.MustMoney("50"),
	}

	report, err = calc.Snapshot(ctx, f)
	require.NoError(t, err)

	gross := findRatio(t, report.Ratios, "gross_margin")
	require.True(t, gross.Defined)
	assert.True(t, gross.Value.Equal(types.MustMoney("0.3")))

	operating := findRatio(t, report.Ratios, "operating_margin")
	require.True(t, operating.Defined)
	assert.True(t, operating.Value.Equal(types.MustMoney("0.2")))

	roe := findRatio(t, report.Ratios, "return_on_equity")
	assert.True(t, roe.Value.Equal(types.MustMoney("0.5")))
}

func TestSnapshot_UnbalancedFlaggedLowConfidence(t *testing.T) {
	reg := accounts.MustLoad()
	calc := New(reg, nil)
	ctx := context.Background()

	f := testFiling(item("A.1.1.1", "100"), item("P.5.1", "100"))

	report, err := calc.Snapshot(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, filings.StatusValidated, report.Status)
	assert.False(t, report.LowConfidence)

	unbalanced := filings.NewFiling(id.New(), 2024, types.PeriodAnnual)
	unbalanced.Number = "BSF-2024-00002"
	unbalanced.Items = []*normalize.LineItem{
		item("A.1.1.1", "100"),
		item("P.5.1", "40"),
	}
	require.NoError(t, unbalanced.SetStatus(filings.StatusUnbalanced))

	report, err = calc.Snapshot(ctx, unbalanced)
	require.NoError(t, err)
	assert.Equal(t, filings.StatusUnbalanced, report.Status)
	assert.True(t, report.LowConfidence)
}

func TestSnapshot_SupersededRejected(t *testing.T) {
	reg := accounts.MustLoad()
	calc := New(reg, nil)
	ctx := context.Background()

	f := testFiling(item("A.1.1.1", "100"))
	require.NoError(t, f.Supersede())

	_, err := calc.Snapshot(ctx, f)
	require.Error(t, err)
}

func TestSnapshot_GroupNotDoubleCounted(t *testing.T) {
	reg := accounts.MustLoad()
	calc := New(reg, nil)
	ctx := context.Background()

	f := testFiling(
		item("A.1.1", "30000"), // group listed alongside its leaves
		item("A.1.1.1", "10000"),
		item("A.1.1.3", "20000"),
		item("P.5.1", "30000"),
	)

	report, err := calc.Snapshot(ctx, f)
	require.NoError(t, err)
	assert.True(t, report.Categories.Cash.Equal(types.MustMoney("30000")),
		"cash = %s", report.Categories.Cash)
}

func TestSnapshot_WithAssessments(t *testing.T) {
	reg := accounts.MustLoad()
	calc := New(reg, MustDefaultAssessor())
	ctx := context.Background()

	f := testFiling(
		item("A.1.1.1", "30000"),
		item("P.3.2.1", "10000"),
		item("P.5.1", "20000"),
	)

	report, err := calc.Snapshot(ctx, f)
	require.NoError(t, err)

	current := findRatio(t, report.Ratios, "current_ratio")
	assert.Equal(t, "good", current.Assessment)
}

func TestTurnover(t *testing.T) {
	reg := accounts.MustLoad()
	calc := New(reg, nil)
	ctx := context.Background()

	companyID := id.New()

	prev := filings.NewFiling(companyID, 2023, types.PeriodAnnual)
	prev.Items = []*normalize.LineItem{
		item("A.1.3.1", "80000"),
		item("A.1.5.1", "40000"),
	}

	cur := filings.NewFiling(companyID, 2024, types.PeriodAnnual)
	cur.Items = []*normalize.LineItem{
		item("A.1.3.1", "120000"),
		item("A.1.5.1", "60000"),
	}
	cur.Income = &filings.IncomeFigures{
		NetSales:    types.MustMoney("500000"),
		CostOfSales: types.MustMoney("250000"),
	}

	rs, err := calc.Turnover(ctx, cur, prev)
	require.NoError(t, err)

	recv := findRatio(t, rs, "receivables_turnover")
	require.True(t, recv.Defined)
	assert.True(t, recv.Value.Equal(types.MustMoney("5")), "receivables turnover = %s", recv.Value)

	inv := findRatio(t, rs, "inventory_turnover")
	assert.True(t, inv.Value.Equal(types.MustMoney("5")), "inventory turnover = %s", inv.Value)
}

func TestTurnover_DifferentCompaniesRejected(t *testing.T) {
	reg := accounts.MustLoad()
	calc := New(reg, nil)
	ctx := context.Background()

	cur := filings.NewFiling(id.New(), 2024, types.PeriodAnnual)
	cur.Income = &filings.IncomeFigures{}
	prev := filings.NewFiling(id.New(), 2023, types.PeriodAnnual)

	_, err := calc.Turnover(ctx, cur, prev)
	require.Error(t, err)
}
