package expense_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/budget"
	"github.com/frahmantamala/budget-ledger/internal/core/user"
	"github.com/frahmantamala/budget-ledger/internal/expense"
)

func pendingExpense() *expense.Expense {
	budgetID := int64(10)
	return &expense.Expense{
		ID:           1,
		Title:        "Team lunch",
		Amount:       decimal.NewFromInt(100),
		Currency:     "USD",
		ExchangeRate: decimal.NewFromInt(1),
		Date:         time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		BudgetID:     &budgetID,
		Status:       expense.StatusPending,
		SubmittedBy:  3,
		Receipts:     []expense.Receipt{},
	}
}

var _ = Describe("Approval gate", func() {
	var (
		manager  *user.User
		employee *user.User
		now      time.Time
	)

	BeforeEach(func() {
		manager = &user.User{ID: 2, Role: user.RoleManager, IsActive: true}
		employee = &user.User{ID: 3, Role: user.RoleUser, IsActive: true}
		now = time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)
	})

	Describe("CanSubmit", func() {
		var b *budget.Budget

		BeforeEach(func() {
			b = &budget.Budget{
				ID:        10,
				Status:    budget.StatusActive,
				StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
			}
		})

		It("accepts an expense dated inside an active budget", func() {
			Expect(expense.CanSubmit(pendingExpense(), b)).To(Succeed())
		})

		It("accepts expenses on the boundary days", func() {
			e := pendingExpense()
			e.Date = b.EndDate
			Expect(expense.CanSubmit(e, b)).To(Succeed())
			e.Date = b.StartDate
			Expect(expense.CanSubmit(e, b)).To(Succeed())
		})

		It("accepts approved budgets", func() {
			b.Status = budget.StatusApproved
			Expect(expense.CanSubmit(pendingExpense(), b)).To(Succeed())
		})

		It("refuses draft budgets", func() {
			b.Status = budget.StatusDraft
			Expect(expense.CanSubmit(pendingExpense(), b)).To(MatchError(errors.ErrBudgetInactive))
		})

		It("refuses dates outside the period", func() {
			e := pendingExpense()
			e.Date = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
			Expect(expense.CanSubmit(e, b)).To(MatchError(errors.ErrOutOfPeriod))
		})
	})

	Describe("Review", func() {
		It("approves a pending expense without touching the original", func() {
			original := pendingExpense()

			next, err := expense.Review(original, expense.DecisionApprove, manager, "", now)

			Expect(err).NotTo(HaveOccurred())
			Expect(next.Status).To(Equal(expense.StatusApproved))
			Expect(*next.ApprovedBy).To(Equal(manager.ID))
			Expect(*next.ApprovalDate).To(Equal(now))
			Expect(next.AuditLog).To(HaveLen(1))
			Expect(next.AuditLog[0].Action).To(Equal(expense.AuditApproved))
			Expect(next.AuditLog[0].PerformedBy).To(Equal(manager.ID))

			Expect(original.Status).To(Equal(expense.StatusPending))
			Expect(original.ApprovedBy).To(BeNil())
			Expect(original.AuditLog).To(BeEmpty())
		})

		It("rejects with a reason", func() {
			next, err := expense.Review(pendingExpense(), expense.DecisionReject, manager, "  duplicate receipt ", now)

			Expect(err).NotTo(HaveOccurred())
			Expect(next.Status).To(Equal(expense.StatusRejected))
			Expect(*next.RejectionReason).To(Equal("duplicate receipt"))
			Expect(next.AuditLog[0].Action).To(Equal(expense.AuditRejected))
			Expect(*next.AuditLog[0].Reason).To(Equal("duplicate receipt"))
		})

		It("requires a reason to reject", func() {
			_, err := expense.Review(pendingExpense(), expense.DecisionReject, manager, "   ", now)
			Expect(err).To(MatchError(errors.ErrMissingReason))
		})

		It("refuses non-manager actors", func() {
			_, err := expense.Review(pendingExpense(), expense.DecisionApprove, employee, "", now)
			Expect(err).To(MatchError(errors.ErrInvalidActor))
		})

		It("refuses expenses that are no longer pending", func() {
			e := pendingExpense()
			e.Status = expense.StatusReimbursed
			_, err := expense.Review(e, expense.DecisionApprove, manager, "", now)
			Expect(err).To(MatchError(errors.ErrNotPending))
		})

		It("refuses a second approval and keeps the first approval date", func() {
			first, err := expense.Review(pendingExpense(), expense.DecisionApprove, manager, "", now)
			Expect(err).NotTo(HaveOccurred())

			_, err = expense.Review(first, expense.DecisionApprove, manager, "", now.Add(time.Hour))
			Expect(err).To(MatchError(errors.ErrNotPending))
			Expect(*first.ApprovalDate).To(Equal(now))
		})

		It("keeps an existing approval date", func() {
			e := pendingExpense()
			earlier := now.Add(-48 * time.Hour)
			e.ApprovalDate = &earlier

			next, err := expense.Review(e, expense.DecisionApprove, manager, "", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(*next.ApprovalDate).To(Equal(earlier))
		})

		It("refuses an unknown decision", func() {
			_, err := expense.Review(pendingExpense(), expense.Decision("escalate"), manager, "", now)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Reimburse", func() {
		It("moves an approved expense to reimbursed", func() {
			approved, err := expense.Review(pendingExpense(), expense.DecisionApprove, manager, "", now)
			Expect(err).NotTo(HaveOccurred())

			paid, err := expense.Reimburse(approved, manager, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(paid.Status).To(Equal(expense.StatusReimbursed))
			Expect(paid.IsCounted()).To(BeTrue())
			Expect(paid.AuditLog).To(HaveLen(2))
		})

		It("refuses pending expenses", func() {
			_, err := expense.Reimburse(pendingExpense(), manager, now)
			Expect(err).To(MatchError(errors.ErrInvalidTransition))
		})
	})

	Describe("Recalculate", func() {
		It("rounds the converted amount to two places", func() {
			e := pendingExpense()
			e.ExchangeRate = decimal.RequireFromString("1.1")
			e.Recalculate()
			Expect(e.ConvertedAmount.String()).To(Equal("110"))
			Expect(e.ConvertedAmount.Equal(decimal.RequireFromString("110.00"))).To(BeTrue())

			e.Amount = decimal.RequireFromString("33.333")
			e.ExchangeRate = decimal.RequireFromString("1.5")
			e.Recalculate()
			Expect(e.ConvertedAmount.Equal(decimal.RequireFromString("50.00"))).To(BeTrue())
		})
	})
})
