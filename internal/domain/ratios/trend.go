package ratios

import (
	"context"

	"bilanco/internal/core/apperror"
	"bilanco/internal/core/types"
	"bilanco/internal/domain/filings"
)

// two is the divisor for average balances.
var two = types.MustMoney("2")

// Turnover computes activity ratios that need two consecutive
// filings: the denominator is the average of opening and closing
// balances. Both filings must belong to the same company and the
// current one must carry income figures.
func (c *Calculator) Turnover(ctx context.Context, current, previous *filings.Filing) ([]Ratio, error) {
	if current.CompanyID != previous.CompanyID {
		return nil, apperror.NewValidation("filings belong to different companies").
			WithDetail("current", current.Number).
			WithDetail("previous", previous.Number)
	}
	if !current.IsActive() {
		return nil, apperror.NewFilingSuperseded(current.ID.String())
	}
	if !previous.IsActive() {
		return nil, apperror.NewFilingSuperseded(previous.ID.String())
	}
	if current.Income == nil {
		return nil, apperror.NewValidation("income figures are required for turnover ratios").
			WithDetail("filing", current.Number)
	}

	cur := c.categorize(current.Items)
	prev := c.categorize(previous.Items)

	ratios := []Ratio{
		c.ratio("receivables_turnover", current.Income.NetSales, average(cur.Receivables, prev.Receivables)),
		c.ratio("inventory_turnover", current.Income.CostOfSales, average(cur.Inventory, prev.Inventory)),
		c.ratio("payables_turnover", current.Income.CostOfSales, average(cur.Payables, prev.Payables)),
	}

	return ratios, nil
}

func average(a, b types.Money) types.Money {
	return a.Add(b).Div(two)
}
