package expense

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/auth"
	"github.com/frahmantamala/budget-ledger/internal/budget"
	"github.com/frahmantamala/budget-ledger/internal/core/events"
	"github.com/frahmantamala/budget-ledger/internal/core/money"
	"github.com/frahmantamala/budget-ledger/internal/core/user"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, e *Expense) error
	GetByID(ctx context.Context, id int64) (*Expense, error)
	List(ctx context.Context, filter ListFilter) ([]*Expense, error)
	ListByBudget(ctx context.Context, budgetID int64) ([]*Expense, error)
	CountByBudget(ctx context.Context, budgetID int64) (int64, error)
	// Update persists e only if the stored row still has expectedStatus, and appends unsaved audit entries.
	Update(ctx context.Context, e *Expense, expectedStatus Status) error
	Delete(ctx context.Context, id int64) error
	ListAudit(ctx context.Context, expenseID int64) ([]AuditEntry, error)
}

type BudgetReader interface {
	GetBudget(ctx context.Context, id int64) (*budget.Budget, error)
}

type RateProvider interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

type CategoryChecker interface {
	IsActiveCategory(ctx context.Context, id int64) (bool, error)
}

type Service struct {
	repo         Repository
	budgets      BudgetReader
	rates        RateProvider
	categories   CategoryChecker
	publisher    events.Publisher
	policy       auth.ABACPolicy
	baseCurrency string
	logger       *slog.Logger
	now          func() time.Time
}

type Dependencies struct {
	Repo         Repository
	Budgets      BudgetReader
	Rates        RateProvider
	Categories   CategoryChecker
	Publisher    events.Publisher
	BaseCurrency string
	Logger       *slog.Logger
}

func NewService(deps Dependencies) *Service {
	return &Service{
		repo:         deps.Repo,
		budgets:      deps.Budgets,
		rates:        deps.Rates,
		categories:   deps.Categories,
		publisher:    deps.Publisher,
		baseCurrency: deps.BaseCurrency,
		logger:       deps.Logger,
		now:          time.Now,
	}
}

func (s *Service) CreateExpense(ctx context.Context, actor *user.User, dto CreateExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Warn("expense validation failed", "user_id", actor.ID, "error", err)
		return nil, err
	}

	now := s.now()
	e := dto.toExpense(actor.ID, now)
	if e.Department == "" {
		e.Department = actor.Department
	}

	if err := s.checkCategory(ctx, e.CategoryID); err != nil {
		return nil, err
	}
	if err := s.checkBudget(ctx, e); err != nil {
		return nil, err
	}

	if dto.ExchangeRate != nil {
		e.ExchangeRate = *dto.ExchangeRate
	} else {
		rate, err := s.rateFor(ctx, e.Currency)
		if err != nil {
			return nil, err
		}
		e.ExchangeRate = rate
	}
	e.Recalculate()
	e.appendAudit(AuditCreated, actor.ID, now, map[string]interface{}{
		"status": string(StatusPending),
		"amount": e.Amount.String(),
	}, nil)

	if err := s.repo.Create(ctx, e); err != nil {
		s.logger.Error("failed to create expense", "error", err, "user_id", actor.ID)
		return nil, errors.StoreError("create expense", err)
	}

	s.publish(ctx, events.NewExpenseChange(events.EventTypeExpenseSubmitted, changeOf(e, actor.ID)))
	s.logger.Info("expense submitted",
		"expense_id", e.ID,
		"user_id", actor.ID,
		"amount", e.Amount.String(),
		"currency", e.Currency,
		"converted_amount", e.ConvertedAmount.String())
	return e, nil
}

func (s *Service) GetExpense(ctx context.Context, actor *user.User, id int64) (*ExpenseView, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.StoreError("get expense", err)
	}
	if err := s.policy.CanViewExpense(actor, e.SubmittedBy); err != nil {
		return nil, err
	}

	view := &ExpenseView{Expense: e}
	if e.BudgetID != nil {
		b, err := s.budgets.GetBudget(ctx, *e.BudgetID)
		if err != nil {
			s.logger.Warn("budget lookup failed for expense view", "expense_id", id, "budget_id", *e.BudgetID, "error", err)
			return view, nil
		}
		amount, err := s.amountIn(ctx, e, b.Currency)
		if err != nil {
			s.logger.Warn("policy conversion failed for expense view", "expense_id", id, "budget_currency", b.Currency, "error", err)
			return view, nil
		}
		policy := b.Rules.Evaluate(amount)
		view.Policy = &policy
	}
	return view, nil
}

// ListExpenses returns every matching expense for managers and only the actor's own for everyone else.
func (s *Service) ListExpenses(ctx context.Context, actor *user.User, filter ListFilter) ([]*Expense, error) {
	if !actor.IsManager() {
		own := actor.ID
		filter.SubmittedBy = &own
	}

	expenses, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list expenses", "error", err, "user_id", actor.ID)
		return nil, errors.StoreError("list expenses", err)
	}
	return expenses, nil
}

func (s *Service) ListByBudget(ctx context.Context, budgetID int64) ([]*Expense, error) {
	expenses, err := s.repo.ListByBudget(ctx, budgetID)
	if err != nil {
		return nil, errors.StoreError("list budget expenses", err)
	}
	return expenses, nil
}

func (s *Service) UpdateExpense(ctx context.Context, actor *user.User, id int64, dto UpdateExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.StoreError("get expense", err)
	}
	if err := s.policy.CanModifyExpense(actor, current.SubmittedBy); err != nil {
		return nil, err
	}
	if !current.IsPending() {
		return nil, errors.ErrCannotModifyExpense
	}

	next := current.Clone()
	changes := dto.applyTo(next)
	if len(changes) == 0 {
		return current, nil
	}

	if dto.CategoryID != nil {
		if err := s.checkCategory(ctx, next.CategoryID); err != nil {
			return nil, err
		}
	}
	if dto.BudgetID != nil || dto.ExpenseDate != nil {
		if err := s.checkBudget(ctx, next); err != nil {
			return nil, err
		}
	}
	if next.Currency != current.Currency && dto.ExchangeRate == nil {
		rate, err := s.rateFor(ctx, next.Currency)
		if err != nil {
			return nil, err
		}
		next.ExchangeRate = rate
	}
	next.Recalculate()

	now := s.now()
	next.UpdatedAt = now
	next.appendAudit(AuditUpdated, actor.ID, now, changes, nil)

	if err := s.repo.Update(ctx, next, StatusPending); err != nil {
		s.logger.Error("failed to update expense", "error", err, "expense_id", id)
		return nil, errors.StoreError("update expense", err)
	}

	change := changeOf(next, actor.ID)
	change.PreviousStatus = string(current.Status)
	change.PreviousAmount = current.Amount.String()
	change.PreviousCurrency = current.Currency
	change.PreviousBudgetID = current.BudgetID
	s.publish(ctx, events.NewExpenseChange(events.EventTypeExpenseUpdated, change))

	s.logger.Info("expense updated", "expense_id", id, "actor_id", actor.ID, "fields", len(changes))
	return next, nil
}

// ReviewExpense runs the approval gate and persists its result. A concurrent review of the same
// expense loses with NOT_PENDING.
func (s *Service) ReviewExpense(ctx context.Context, actor *user.User, id int64, decision Decision, reason string) (*Expense, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.StoreError("get expense", err)
	}

	next, err := Review(current, decision, actor, reason, s.now())
	if err != nil {
		s.logger.Warn("expense review refused",
			"expense_id", id,
			"actor_id", actor.ID,
			"decision", decision,
			"status", current.Status,
			"error", err)
		return nil, err
	}

	if err := s.repo.Update(ctx, next, current.Status); err != nil {
		s.logger.Error("failed to persist review", "error", err, "expense_id", id)
		return nil, errors.StoreError("update expense", err)
	}

	change := changeOf(next, actor.ID)
	change.PreviousStatus = string(current.Status)
	change.PreviousAmount = current.Amount.String()
	change.PreviousBudgetID = current.BudgetID
	if next.RejectionReason != nil {
		change.Reason = *next.RejectionReason
	}
	s.publish(ctx, events.NewExpenseChange(events.EventTypeExpenseReviewed, change))

	s.logger.Info("expense reviewed", "expense_id", id, "actor_id", actor.ID, "status", next.Status)
	return next, nil
}

func (s *Service) ReimburseExpense(ctx context.Context, actor *user.User, id int64) (*Expense, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.StoreError("get expense", err)
	}

	next, err := Reimburse(current, actor, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, next, current.Status); err != nil {
		return nil, errors.StoreError("update expense", err)
	}

	change := changeOf(next, actor.ID)
	change.PreviousStatus = string(current.Status)
	s.publish(ctx, events.NewExpenseChange(events.EventTypeExpenseReimbursed, change))
	s.logger.Info("expense reimbursed", "expense_id", id, "actor_id", actor.ID)
	return next, nil
}

// DeleteExpense removes a pending or rejected expense.
func (s *Service) DeleteExpense(ctx context.Context, actor *user.User, id int64) error {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return errors.StoreError("get expense", err)
	}
	if err := s.policy.CanModifyExpense(actor, e.SubmittedBy); err != nil {
		return err
	}
	if !e.CanBeDeleted() {
		return errors.ErrCannotModifyExpense
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.StoreError("delete expense", err)
	}
	s.logger.Info("expense deleted", "expense_id", id, "actor_id", actor.ID)
	return nil
}

func (s *Service) AuditLog(ctx context.Context, actor *user.User, id int64) ([]AuditEntry, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.StoreError("get expense", err)
	}
	if err := s.policy.CanViewExpense(actor, e.SubmittedBy); err != nil {
		return nil, err
	}

	entries, err := s.repo.ListAudit(ctx, id)
	if err != nil {
		return nil, errors.StoreError("list audit log", err)
	}
	return entries, nil
}

// CountByBudget lets the budget service refuse deletes of budgets still in use.
func (s *Service) CountByBudget(ctx context.Context, budgetID int64) (int64, error) {
	return s.repo.CountByBudget(ctx, budgetID)
}

func (s *Service) checkBudget(ctx context.Context, e *Expense) error {
	if e.BudgetID == nil {
		return nil
	}
	b, err := s.budgets.GetBudget(ctx, *e.BudgetID)
	if err != nil {
		return err
	}
	if err := CanSubmit(e, b); err != nil {
		s.logger.Warn("expense refused by budget",
			"budget_id", b.ID,
			"budget_status", b.Status,
			"expense_date", e.Date.Format(time.DateOnly),
			"error", err)
		return err
	}
	return nil
}

func (s *Service) checkCategory(ctx context.Context, categoryID *int64) error {
	if categoryID == nil || s.categories == nil {
		return nil
	}
	ok, err := s.categories.IsActiveCategory(ctx, *categoryID)
	if err != nil {
		return errors.StoreError("get category", err)
	}
	if !ok {
		return errors.NewValidationFieldError("category_id", "category does not exist or is inactive", errors.ErrCodeInvalidCategory)
	}
	return nil
}

func (s *Service) rateFor(ctx context.Context, currency string) (decimal.Decimal, error) {
	if currency == s.baseCurrency || s.rates == nil {
		return decimal.NewFromInt(1), nil
	}
	rate, err := s.rates.Rate(ctx, currency, s.baseCurrency)
	if err != nil {
		s.logger.Error("exchange rate lookup failed", "from", currency, "to", s.baseCurrency, "error", err)
		if appErr, ok := errors.IsAppError(err); ok {
			return decimal.Zero, appErr
		}
		return decimal.Zero, errors.ErrRateUnavailable.WithCause(err)
	}
	return rate, nil
}

// amountIn expresses the expense amount in currency, the currency budget rule limits are written in.
func (s *Service) amountIn(ctx context.Context, e *Expense, currency string) (decimal.Decimal, error) {
	if currency == "" || e.Currency == currency {
		return e.Amount, nil
	}
	if currency == s.baseCurrency {
		return e.ConvertedAmount, nil
	}
	if s.rates == nil {
		return decimal.Zero, errors.ErrRateUnavailable
	}
	rate, err := s.rates.Rate(ctx, e.Currency, currency)
	if err != nil {
		return decimal.Zero, err
	}
	return money.Round(e.Amount.Mul(rate), currency), nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

func changeOf(e *Expense, actorID int64) events.ExpenseChange {
	return events.ExpenseChange{
		ExpenseID:       e.ID,
		Title:           e.Title,
		BudgetID:        e.BudgetID,
		SubmittedBy:     e.SubmittedBy,
		ActorID:         actorID,
		Status:          string(e.Status),
		Amount:          e.Amount.String(),
		ConvertedAmount: e.ConvertedAmount.String(),
		Currency:        e.Currency,
	}
}
