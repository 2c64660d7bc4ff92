package ledger

import (
	"context"

	errors "github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/budget"
	"github.com/frahmantamala/budget-ledger/internal/core/money"
	"github.com/frahmantamala/budget-ledger/internal/expense"
	"github.com/shopspring/decimal"
)

// Converter turns an amount in one currency into another, rounded to the target's minor unit.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// Ledger is the derived financial position of one budget. It is never stored.
type Ledger struct {
	BudgetID        int64           `json:"budget_id"`
	Currency        string          `json:"currency"`
	Amount          decimal.Decimal `json:"amount"`
	Spent           decimal.Decimal `json:"spent_amount"`
	Remaining       decimal.Decimal `json:"remaining_amount"`
	UsagePercentage int64           `json:"usage_percentage"`
	AlertThreshold  int             `json:"alert_threshold"`
	IsOverThreshold bool            `json:"is_over_threshold"`
	CountedExpenses int             `json:"counted_expenses"`
}

// Compute sums the approved and reimbursed expenses linked to b, converted into b's currency.
// Expenses of other budgets and uncounted statuses are ignored. A missing rate aborts the computation.
func Compute(ctx context.Context, b *budget.Budget, expenses []*expense.Expense, converter Converter) (Ledger, error) {
	spent := decimal.Zero
	counted := 0

	for _, e := range expenses {
		if !e.IsCounted() || !e.BelongsTo(b.ID) {
			continue
		}

		value := money.Round(e.Amount, b.Currency)
		if e.Currency != b.Currency {
			converted, err := converter.Convert(ctx, e.Amount, e.Currency, b.Currency)
			if err != nil {
				if appErr, ok := errors.IsAppError(err); ok {
					return Ledger{}, appErr
				}
				return Ledger{}, errors.ErrRateUnavailable.WithCause(err)
			}
			value = money.Round(converted, b.Currency)
		}

		spent = spent.Add(value)
		counted++
	}

	usage := money.Percentage(spent, b.Amount)
	return Ledger{
		BudgetID:        b.ID,
		Currency:        b.Currency,
		Amount:          b.Amount,
		Spent:           spent,
		Remaining:       b.Amount.Sub(spent),
		UsagePercentage: usage,
		AlertThreshold:  b.AlertThreshold,
		IsOverThreshold: usage >= int64(b.AlertThreshold),
		CountedExpenses: counted,
	}, nil
}
