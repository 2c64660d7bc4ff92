package ledger_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/budget-ledger/internal/budget"
	"github.com/frahmantamala/budget-ledger/internal/core/events"
	"github.com/frahmantamala/budget-ledger/internal/core/user"
	"github.com/frahmantamala/budget-ledger/internal/expense"
	"github.com/frahmantamala/budget-ledger/internal/ledger"
	"github.com/frahmantamala/budget-ledger/internal/notification"
)

type stubBudgets struct {
	budgets []*budget.Budget
}

func (s *stubBudgets) GetBudget(_ context.Context, id int64) (*budget.Budget, error) {
	for _, b := range s.budgets {
		if b.ID == id {
			cp := *b
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("budget %d not found", id)
}

func (s *stubBudgets) ListBudgets(_ context.Context, _ budget.ListFilter) ([]*budget.Budget, error) {
	return s.budgets, nil
}

type stubExpenses struct {
	mu       sync.Mutex
	expenses []*expense.Expense
}

func (s *stubExpenses) ListByBudget(_ context.Context, budgetID int64) ([]*expense.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*expense.Expense
	for _, e := range s.expenses {
		if e.BelongsTo(budgetID) {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

func (s *stubExpenses) setStatus(id int64, status expense.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.expenses {
		if e.ID == id {
			e.Status = status
		}
	}
}

type stubUsers map[int64]*user.User

func (s stubUsers) FindByID(_ context.Context, id int64) (*user.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %d not found", id)
}

type countingSender struct {
	mu    sync.Mutex
	kinds []notification.Kind
	last  map[string]interface{}
}

func (c *countingSender) Send(_ context.Context, _ notification.Recipient, kind notification.Kind, payload map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kinds = append(c.kinds, kind)
	c.last = payload
	return nil
}

func (c *countingSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.kinds)
}

type failingSender struct{}

func (failingSender) Send(context.Context, notification.Recipient, notification.Kind, map[string]interface{}) error {
	return fmt.Errorf("broker unavailable")
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

var _ = Describe("Service", func() {
	var (
		ctx        context.Context
		budgets    *stubBudgets
		expenses   *stubExpenses
		sender     *countingSender
		publisher  *capturingPublisher
		dispatcher *ledger.Dispatcher
		logger     *slog.Logger
	)

	reviewed := func(expenseID int64, previous, status expense.Status) *events.ExpenseChange {
		budgetID := int64(1)
		return events.NewExpenseChange(events.EventTypeExpenseReviewed, events.ExpenseChange{
			ExpenseID:      expenseID,
			BudgetID:       &budgetID,
			Status:         string(status),
			PreviousStatus: string(previous),
		})
	}

	BeforeEach(func() {
		ctx = context.Background()
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		budgets = &stubBudgets{budgets: []*budget.Budget{newBudget("1000"), {
			ID: 2, Name: "Travel", Amount: decimal.NewFromInt(500), Currency: "USD", OwnerID: 5, AlertThreshold: 50,
		}}}
		expenses = &stubExpenses{expenses: []*expense.Expense{
			newExpense(1, 1, "700", "USD", expense.StatusApproved),
			newExpense(2, 1, "150", "USD", expense.StatusPending),
			newExpense(3, 1, "100", "USD", expense.StatusPending),
			newExpense(4, 2, "300", "USD", expense.StatusApproved),
		}}
		sender = &countingSender{}
		publisher = &capturingPublisher{}
		dispatcher = ledger.NewDispatcher(stubUsers{5: {ID: 5, Email: "owner@example.com", Name: "Owner"}}, sender, logger)
	})

	Describe("edge mode", func() {
		var service *ledger.Service

		BeforeEach(func() {
			service = ledger.NewService(budgets, expenses, &tableConverter{}, dispatcher, publisher, ledger.ModeEdge, logger)
		})

		It("alerts the owner once when an approval crosses the threshold", func() {
			expenses.setStatus(2, expense.StatusApproved)
			Expect(service.HandleExpenseReviewed(ctx, reviewed(2, expense.StatusPending, expense.StatusApproved))).To(Succeed())

			Expect(sender.count()).To(Equal(1))
			Expect(sender.kinds[0]).To(Equal(notification.KindBudgetAlert))
			Expect(sender.last).To(HaveKeyWithValue("usage_percentage", int64(85)))
			Expect(sender.last).To(HaveKeyWithValue("spent", "850.00"))
			Expect(publisher.events).To(HaveLen(1))
			Expect(publisher.events[0].EventType()).To(Equal(events.EventTypeBudgetThresholdReached))

			expenses.setStatus(3, expense.StatusApproved)
			Expect(service.HandleExpenseReviewed(ctx, reviewed(3, expense.StatusPending, expense.StatusApproved))).To(Succeed())
			Expect(sender.count()).To(Equal(1))
		})

		It("ignores rejections", func() {
			expenses.setStatus(2, expense.StatusRejected)
			Expect(service.HandleExpenseReviewed(ctx, reviewed(2, expense.StatusPending, expense.StatusRejected))).To(Succeed())
			Expect(sender.count()).To(BeZero())
		})

		It("alerts when a budget cut pushes usage over the threshold", func() {
			budgets.budgets[0].Amount = decimal.NewFromInt(800)
			event := events.NewBudgetUpdated(1, 5, "1000", "USD", 80)

			Expect(service.HandleBudgetUpdated(ctx, event)).To(Succeed())
			Expect(sender.count()).To(Equal(1))
		})

		It("swallows sender failures and still publishes the threshold event", func() {
			failing := ledger.NewDispatcher(stubUsers{5: {ID: 5, Email: "owner@example.com"}}, failingSender{}, logger)
			service = ledger.NewService(budgets, expenses, &tableConverter{}, failing, publisher, ledger.ModeEdge, logger)

			expenses.setStatus(2, expense.StatusApproved)
			Expect(service.HandleExpenseReviewed(ctx, reviewed(2, expense.StatusPending, expense.StatusApproved))).To(Succeed())
			Expect(publisher.events).To(HaveLen(1))
		})

		It("runs from the event bus", func() {
			bus := events.NewEventBus(logger)
			service.Register(bus)

			expenses.setStatus(2, expense.StatusApproved)
			Expect(bus.Publish(ctx, reviewed(2, expense.StatusPending, expense.StatusApproved))).To(Succeed())
			bus.Wait()

			Expect(sender.count()).To(Equal(1))
		})
	})

	Describe("level mode", func() {
		It("alerts on every evaluation while over the threshold", func() {
			service := ledger.NewService(budgets, expenses, &tableConverter{}, dispatcher, nil, ledger.ModeLevel, logger)

			expenses.setStatus(2, expense.StatusApproved)
			Expect(service.HandleExpenseReviewed(ctx, reviewed(2, expense.StatusPending, expense.StatusApproved))).To(Succeed())
			expenses.setStatus(3, expense.StatusApproved)
			Expect(service.HandleExpenseReviewed(ctx, reviewed(3, expense.StatusPending, expense.StatusApproved))).To(Succeed())

			Expect(sender.count()).To(Equal(2))
		})
	})

	Describe("ComputeAll", func() {
		It("computes every budget in order", func() {
			service := ledger.NewService(budgets, expenses, &tableConverter{}, dispatcher, nil, ledger.ModeEdge, logger)

			all, err := service.ComputeAll(ctx, budget.ListFilter{})

			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
			Expect(all[0].Budget.ID).To(Equal(int64(1)))
			Expect(all[0].Ledger.Spent.Equal(decimal.NewFromInt(700))).To(BeTrue())
			Expect(all[1].Ledger.UsagePercentage).To(Equal(int64(60)))
			Expect(all[1].Ledger.IsOverThreshold).To(BeTrue())
		})
	})

	Describe("Dispatcher", func() {
		It("does nothing for suppressed decisions", func() {
			Expect(dispatcher.Dispatch(ctx, ledger.Decision{Action: ledger.ActionSuppress, OwnerID: 5})).To(Succeed())
			Expect(sender.count()).To(BeZero())
		})

		It("reports an unknown owner without sending", func() {
			err := dispatcher.Dispatch(ctx, ledger.Decision{Action: ledger.ActionFire, OwnerID: 42})
			Expect(err).To(HaveOccurred())
			Expect(sender.count()).To(BeZero())
		})
	})
})
