package ledger

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/budget-ledger/internal/budget"
	"github.com/frahmantamala/budget-ledger/internal/core/events"
	"github.com/frahmantamala/budget-ledger/internal/expense"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const computeConcurrency = 8

type BudgetSource interface {
	GetBudget(ctx context.Context, id int64) (*budget.Budget, error)
	ListBudgets(ctx context.Context, filter budget.ListFilter) ([]*budget.Budget, error)
}

type ExpenseSource interface {
	ListByBudget(ctx context.Context, budgetID int64) ([]*expense.Expense, error)
}

// BudgetLedger pairs a budget with its computed ledger.
type BudgetLedger struct {
	Budget *budget.Budget `json:"budget"`
	Ledger Ledger         `json:"ledger"`
}

type Service struct {
	budgets    BudgetSource
	expenses   ExpenseSource
	converter  Converter
	dispatcher *Dispatcher
	publisher  events.Publisher
	mode       Mode
	logger     *slog.Logger
}

func NewService(budgets BudgetSource, expenses ExpenseSource, converter Converter, dispatcher *Dispatcher, publisher events.Publisher, mode Mode, logger *slog.Logger) *Service {
	return &Service{
		budgets:    budgets,
		expenses:   expenses,
		converter:  converter,
		dispatcher: dispatcher,
		publisher:  publisher,
		mode:       mode,
		logger:     logger,
	}
}

func (s *Service) ForBudget(ctx context.Context, budgetID int64) (*BudgetLedger, error) {
	b, err := s.budgets.GetBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	return s.compute(ctx, b)
}

func (s *Service) compute(ctx context.Context, b *budget.Budget) (*BudgetLedger, error) {
	expenses, err := s.expenses.ListByBudget(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	l, err := Compute(ctx, b, expenses, s.converter)
	if err != nil {
		s.logger.Warn("ledger computation failed", "budget_id", b.ID, "error", err)
		return nil, err
	}
	return &BudgetLedger{Budget: b, Ledger: l}, nil
}

// ComputeAll computes the ledger of every budget matching filter concurrently, preserving order.
func (s *Service) ComputeAll(ctx context.Context, filter budget.ListFilter) ([]*BudgetLedger, error) {
	budgets, err := s.budgets.ListBudgets(ctx, filter)
	if err != nil {
		return nil, err
	}

	results := make([]*BudgetLedger, len(budgets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(computeConcurrency)

	for i, b := range budgets {
		i, b := i, b
		g.Go(func() error {
			bl, err := s.compute(gctx, b)
			if err != nil {
				return err
			}
			results[i] = bl
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeExpenseReviewed, s.HandleExpenseReviewed)
	bus.Subscribe(events.EventTypeBudgetUpdated, s.HandleBudgetUpdated)
}

// HandleExpenseReviewed re-evaluates the budget an expense review touched. The state before the review is
// rebuilt by restoring the expense's previous status.
func (s *Service) HandleExpenseReviewed(ctx context.Context, event events.Event) error {
	change, ok := event.(*events.ExpenseChange)
	if !ok || change.BudgetID == nil {
		return nil
	}

	counted := func(status string) bool {
		return status == string(expense.StatusApproved) || status == string(expense.StatusReimbursed)
	}
	if counted(change.Status) == counted(change.PreviousStatus) && s.mode == ModeEdge {
		return nil
	}

	b, err := s.budgets.GetBudget(ctx, *change.BudgetID)
	if err != nil {
		return err
	}
	expenses, err := s.expenses.ListByBudget(ctx, b.ID)
	if err != nil {
		return err
	}

	after, err := Compute(ctx, b, expenses, s.converter)
	if err != nil {
		return err
	}

	before := after
	if s.mode == ModeEdge {
		previous := make([]*expense.Expense, len(expenses))
		for i, e := range expenses {
			if e.ID == change.ExpenseID {
				e = e.Clone()
				e.Status = expense.Status(change.PreviousStatus)
			}
			previous[i] = e
		}
		if before, err = Compute(ctx, b, previous, s.converter); err != nil {
			return err
		}
	}

	return s.alert(ctx, b, before, after)
}

// HandleBudgetUpdated re-evaluates a budget whose amount, currency or threshold changed.
func (s *Service) HandleBudgetUpdated(ctx context.Context, event events.Event) error {
	updated, ok := event.(*events.BudgetUpdated)
	if !ok {
		return nil
	}

	b, err := s.budgets.GetBudget(ctx, updated.BudgetID)
	if err != nil {
		return err
	}
	expenses, err := s.expenses.ListByBudget(ctx, b.ID)
	if err != nil {
		return err
	}

	after, err := Compute(ctx, b, expenses, s.converter)
	if err != nil {
		return err
	}

	before := after
	if s.mode == ModeEdge {
		previous := *b
		if amount, err := decimal.NewFromString(updated.PreviousAmount); err == nil {
			previous.Amount = amount
		}
		if updated.PreviousCurrency != "" {
			previous.Currency = updated.PreviousCurrency
		}
		previous.AlertThreshold = updated.PreviousAlertThreshold
		if before, err = Compute(ctx, &previous, expenses, s.converter); err != nil {
			return err
		}
	}

	return s.alert(ctx, b, before, after)
}

func (s *Service) alert(ctx context.Context, b *budget.Budget, before, after Ledger) error {
	var decision Decision
	if s.mode == ModeLevel {
		decision = Evaluate(b, after)
	} else {
		decision = EvaluateCrossing(b, before, after)
	}

	if !decision.Fires() {
		s.logger.Debug("budget alert suppressed", "budget_id", b.ID, "usage_percentage", after.UsagePercentage)
		return nil
	}

	if err := s.dispatcher.Dispatch(ctx, decision); err != nil {
		s.logger.Error("budget alert dispatch failed", "budget_id", b.ID, "error", err)
	}

	if s.publisher != nil {
		reached := events.NewThresholdReached(b.ID, b.OwnerID, after.Spent.String(), after.UsagePercentage, after.AlertThreshold)
		if err := s.publisher.Publish(ctx, reached); err != nil {
			s.logger.Error("failed to publish threshold event", "budget_id", b.ID, "error", err)
		}
	}
	return nil
}
