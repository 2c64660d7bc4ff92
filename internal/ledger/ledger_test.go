package ledger_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/budget"
	"github.com/frahmantamala/budget-ledger/internal/expense"
	"github.com/frahmantamala/budget-ledger/internal/ledger"
)

// tableConverter converts through a fixed rate table keyed "FROMTO".
type tableConverter struct {
	rates map[string]string
	calls int
}

func (c *tableConverter) Convert(_ context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	c.calls++
	raw, ok := c.rates[from+to]
	if !ok {
		return decimal.Zero, fmt.Errorf("no rate %s->%s", from, to)
	}
	return amount.Mul(decimal.RequireFromString(raw)), nil
}

func newBudget(amount string) *budget.Budget {
	return &budget.Budget{
		ID:             1,
		Name:           "Operations",
		Amount:         decimal.RequireFromString(amount),
		Currency:       "USD",
		OwnerID:        5,
		Status:         budget.StatusActive,
		AlertThreshold: 80,
	}
}

func newExpense(id int64, budgetID int64, amount, currency string, status expense.Status) *expense.Expense {
	return &expense.Expense{
		ID:       id,
		Amount:   decimal.RequireFromString(amount),
		Currency: currency,
		BudgetID: &budgetID,
		Status:   status,
	}
}

var _ = Describe("Compute", func() {
	var (
		ctx       context.Context
		converter *tableConverter
	)

	BeforeEach(func() {
		ctx = context.Background()
		converter = &tableConverter{rates: map[string]string{"EURUSD": "1.1", "JPYUSD": "0.0067"}}
	})

	It("counts only approved and reimbursed expenses of the budget", func() {
		b := newBudget("1000")
		expenses := []*expense.Expense{
			newExpense(1, 1, "300", "USD", expense.StatusApproved),
			newExpense(2, 1, "200", "USD", expense.StatusReimbursed),
			newExpense(3, 1, "400", "USD", expense.StatusPending),
			newExpense(4, 1, "500", "USD", expense.StatusRejected),
			newExpense(5, 2, "600", "USD", expense.StatusApproved),
			{ID: 6, Amount: decimal.NewFromInt(700), Currency: "USD", Status: expense.StatusApproved},
		}

		l, err := ledger.Compute(ctx, b, expenses, converter)

		Expect(err).NotTo(HaveOccurred())
		Expect(l.Spent.Equal(decimal.NewFromInt(500))).To(BeTrue())
		Expect(l.Remaining.Equal(decimal.NewFromInt(500))).To(BeTrue())
		Expect(l.UsagePercentage).To(Equal(int64(50)))
		Expect(l.IsOverThreshold).To(BeFalse())
		Expect(l.CountedExpenses).To(Equal(2))
		Expect(converter.calls).To(BeZero())
	})

	It("is unchanged by pending or rejected expenses", func() {
		b := newBudget("1000")
		base := []*expense.Expense{newExpense(1, 1, "250", "USD", expense.StatusApproved)}
		before, err := ledger.Compute(ctx, b, base, converter)
		Expect(err).NotTo(HaveOccurred())

		more := append(base,
			newExpense(2, 1, "100", "USD", expense.StatusPending),
			newExpense(3, 1, "100", "USD", expense.StatusRejected))
		after, err := ledger.Compute(ctx, b, more, converter)
		Expect(err).NotTo(HaveOccurred())

		Expect(after).To(Equal(before))
	})

	It("increases spent by exactly the converted value of a newly approved expense", func() {
		b := newBudget("1000")
		list := []*expense.Expense{newExpense(1, 1, "100", "USD", expense.StatusApproved)}
		before, err := ledger.Compute(ctx, b, list, converter)
		Expect(err).NotTo(HaveOccurred())

		list = append(list, newExpense(2, 1, "100", "EUR", expense.StatusApproved))
		after, err := ledger.Compute(ctx, b, list, converter)
		Expect(err).NotTo(HaveOccurred())

		Expect(after.Spent.Sub(before.Spent).Equal(decimal.RequireFromString("110.00"))).To(BeTrue())
	})

	It("rounds each converted value to the budget currency minor unit", func() {
		b := newBudget("1000")
		list := []*expense.Expense{
			newExpense(1, 1, "1", "JPY", expense.StatusApproved),
			newExpense(2, 1, "1", "JPY", expense.StatusApproved),
		}

		l, err := ledger.Compute(ctx, b, list, converter)

		Expect(err).NotTo(HaveOccurred())
		Expect(l.Spent.Equal(decimal.RequireFromString("0.02"))).To(BeTrue())
	})

	It("reports zero usage for a zero-amount budget", func() {
		b := newBudget("0")
		l, err := ledger.Compute(ctx, b, []*expense.Expense{newExpense(1, 1, "50", "USD", expense.StatusApproved)}, converter)

		Expect(err).NotTo(HaveOccurred())
		Expect(l.UsagePercentage).To(BeZero())
		Expect(l.Remaining.Equal(decimal.NewFromInt(-50))).To(BeTrue())
	})

	It("allows remaining to go negative", func() {
		b := newBudget("100")
		l, err := ledger.Compute(ctx, b, []*expense.Expense{newExpense(1, 1, "150", "USD", expense.StatusApproved)}, converter)

		Expect(err).NotTo(HaveOccurred())
		Expect(l.Remaining.Equal(decimal.NewFromInt(-50))).To(BeTrue())
		Expect(l.UsagePercentage).To(Equal(int64(150)))
		Expect(l.IsOverThreshold).To(BeTrue())
	})

	It("rounds usage half away from zero", func() {
		b := newBudget("200")
		l, err := ledger.Compute(ctx, b, []*expense.Expense{newExpense(1, 1, "1", "USD", expense.StatusApproved)}, converter)

		Expect(err).NotTo(HaveOccurred())
		Expect(l.UsagePercentage).To(Equal(int64(1)))
	})

	It("fails with RATE_UNAVAILABLE instead of guessing", func() {
		b := newBudget("1000")
		_, err := ledger.Compute(ctx, b, []*expense.Expense{newExpense(1, 1, "10", "GBP", expense.StatusApproved)}, converter)

		Expect(err).To(MatchError(errors.ErrRateUnavailable))
	})

	It("is idempotent", func() {
		b := newBudget("1000")
		list := []*expense.Expense{
			newExpense(1, 1, "100", "EUR", expense.StatusApproved),
			newExpense(2, 1, "321.45", "USD", expense.StatusReimbursed),
		}

		first, err := ledger.Compute(ctx, b, list, converter)
		Expect(err).NotTo(HaveOccurred())
		second, err := ledger.Compute(ctx, b, list, converter)
		Expect(err).NotTo(HaveOccurred())

		Expect(second).To(Equal(first))
	})
})

var _ = Describe("Alert evaluation", func() {
	var (
		ctx       context.Context
		b         *budget.Budget
		converter *tableConverter
	)

	BeforeEach(func() {
		ctx = context.Background()
		b = newBudget("1000")
		converter = &tableConverter{}
	})

	ledgerFor := func(spent string) ledger.Ledger {
		l, err := ledger.Compute(ctx, b, []*expense.Expense{newExpense(1, 1, spent, "USD", expense.StatusApproved)}, converter)
		Expect(err).NotTo(HaveOccurred())
		return l
	}

	It("fires at 850 of 1000 with an 80% threshold", func() {
		decision := ledger.Evaluate(b, ledgerFor("850"))

		Expect(decision.Action).To(Equal(ledger.ActionFire))
		Expect(decision.OwnerID).To(Equal(int64(5)))
		Expect(decision.Usage).To(Equal(int64(85)))
		Expect(decision.Spent.Equal(decimal.NewFromInt(850))).To(BeTrue())
	})

	It("suppresses at 750", func() {
		Expect(ledger.Evaluate(b, ledgerFor("750")).Action).To(Equal(ledger.ActionSuppress))
	})

	It("fires exactly at the threshold", func() {
		Expect(ledger.Evaluate(b, ledgerFor("800")).Fires()).To(BeTrue())
	})

	It("fires on the crossing only", func() {
		Expect(ledger.EvaluateCrossing(b, ledgerFor("750"), ledgerFor("850")).Fires()).To(BeTrue())
		Expect(ledger.EvaluateCrossing(b, ledgerFor("850"), ledgerFor("900")).Fires()).To(BeFalse())
		Expect(ledger.EvaluateCrossing(b, ledgerFor("100"), ledgerFor("750")).Fires()).To(BeFalse())
		Expect(ledger.EvaluateCrossing(b, ledgerFor("900"), ledgerFor("500")).Fires()).To(BeFalse())
	})

	It("parses alert modes", func() {
		mode, err := ledger.ParseMode("")
		Expect(err).NotTo(HaveOccurred())
		Expect(mode).To(Equal(ledger.ModeEdge))

		mode, err = ledger.ParseMode("level")
		Expect(err).NotTo(HaveOccurred())
		Expect(mode).To(Equal(ledger.ModeLevel))

		_, err = ledger.ParseMode("sometimes")
		Expect(err).To(HaveOccurred())
	})
})
