package budget

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/core/events"
	"github.com/frahmantamala/budget-ledger/internal/core/user"
)

type Repository interface {
	Create(ctx context.Context, b *Budget) error
	GetByID(ctx context.Context, id int64) (*Budget, error)
	List(ctx context.Context, filter ListFilter) ([]*Budget, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]*Budget, error)
	Update(ctx context.Context, b *Budget) error
	Delete(ctx context.Context, id int64) error
}

// ExpenseCounter reports how many expenses reference a budget.
type ExpenseCounter interface {
	CountByBudget(ctx context.Context, budgetID int64) (int64, error)
}

type Service struct {
	repo      Repository
	expenses  ExpenseCounter
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, expenses ExpenseCounter, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		expenses:  expenses,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) CreateBudget(ctx context.Context, actor *user.User, dto CreateBudgetDTO) (*Budget, error) {
	if !actor.IsManager() {
		s.logger.Warn("create budget denied", "user_id", actor.ID, "role", actor.Role)
		return nil, errors.ErrNotPermitted
	}

	b := NewBudget(actor.ID, dto)
	if err := b.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, b); err != nil {
		s.logger.Error("failed to create budget", "error", err, "owner_id", actor.ID)
		return nil, errors.StoreError("create budget", err)
	}

	s.logger.Info("budget created",
		"budget_id", b.ID,
		"owner_id", b.OwnerID,
		"amount", b.Amount.String(),
		"currency", b.Currency)
	return b, nil
}

// GetBudget returns the budget, persisting any lifecycle transition that became due since the last write.
func (s *Service) GetBudget(ctx context.Context, id int64) (*Budget, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.StoreError("get budget", err)
	}

	if b.AdvanceLifecycle(s.now()) {
		if err := s.repo.Update(ctx, b); err != nil {
			s.logger.Warn("failed to persist lifecycle transition", "budget_id", id, "error", err)
		}
	}
	return b, nil
}

func (s *Service) ListBudgets(ctx context.Context, filter ListFilter) ([]*Budget, error) {
	budgets, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list budgets", "error", err)
		return nil, errors.StoreError("list budgets", err)
	}
	return budgets, nil
}

func (s *Service) UpdateBudget(ctx context.Context, actor *user.User, id int64, dto UpdateBudgetDTO) (*Budget, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.StoreError("get budget", err)
	}
	if b.OwnerID != actor.ID && !actor.IsAdmin() {
		return nil, errors.ErrNotPermitted
	}
	if !b.IsEditable() {
		return nil, errors.ErrInvalidTransition
	}

	previousAmount, previousCurrency, previousThreshold := b.Amount, b.Currency, b.AlertThreshold

	dto.applyTo(b)
	if err := b.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	b.UpdatedAt = now
	b.AdvanceLifecycle(now)

	if err := s.repo.Update(ctx, b); err != nil {
		s.logger.Error("failed to update budget", "error", err, "budget_id", id)
		return nil, errors.StoreError("update budget", err)
	}

	s.publish(ctx, events.NewBudgetUpdated(b.ID, actor.ID, previousAmount.String(), previousCurrency, previousThreshold))
	s.logger.Info("budget updated", "budget_id", b.ID, "actor_id", actor.ID)
	return b, nil
}

func (s *Service) SubmitBudget(ctx context.Context, actor *user.User, id int64) (*Budget, error) {
	return s.transition(ctx, id, "submit", func(b *Budget) error {
		if b.OwnerID != actor.ID && !actor.IsAdmin() {
			return errors.ErrNotPermitted
		}
		return b.Submit(s.now())
	})
}

func (s *Service) ApproveBudget(ctx context.Context, actor *user.User, id int64) (*Budget, error) {
	return s.transition(ctx, id, "approve", func(b *Budget) error {
		if !b.CanBeApprovedBy(actor.ID, actor.IsAdmin(), actor.IsManager()) {
			return errors.ErrNotPermitted
		}
		return b.Approve(s.now())
	})
}

func (s *Service) RejectBudget(ctx context.Context, actor *user.User, id int64) (*Budget, error) {
	return s.transition(ctx, id, "reject", func(b *Budget) error {
		if !b.CanBeApprovedBy(actor.ID, actor.IsAdmin(), actor.IsManager()) {
			return errors.ErrNotPermitted
		}
		return b.Reject(s.now())
	})
}

func (s *Service) transition(ctx context.Context, id int64, action string, apply func(*Budget) error) (*Budget, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.StoreError("get budget", err)
	}

	from := b.Status
	if err := apply(b); err != nil {
		s.logger.Warn("budget transition refused", "budget_id", id, "action", action, "status", from, "error", err)
		return nil, err
	}

	if err := s.repo.Update(ctx, b); err != nil {
		s.logger.Error("failed to persist budget transition", "budget_id", id, "action", action, "error", err)
		return nil, errors.StoreError("update budget", err)
	}

	s.logger.Info("budget transitioned", "budget_id", id, "action", action, "from", from, "to", b.Status)
	return b, nil
}

// DeleteBudget refuses to delete a budget that still has expenses linked to it.
func (s *Service) DeleteBudget(ctx context.Context, actor *user.User, id int64) error {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return errors.StoreError("get budget", err)
	}
	if b.OwnerID != actor.ID && !actor.IsAdmin() {
		return errors.ErrNotPermitted
	}

	count, err := s.expenses.CountByBudget(ctx, id)
	if err != nil {
		return errors.StoreError("count budget expenses", err)
	}
	if count > 0 {
		s.logger.Warn("refusing to delete budget with expenses", "budget_id", id, "expense_count", count)
		return errors.ErrBudgetHasExpenses
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.StoreError("delete budget", err)
	}
	s.logger.Info("budget deleted", "budget_id", id, "actor_id", actor.ID)
	return nil
}

// SweepLifecycle advances every approved or active budget whose dates have come due and returns how many changed.
func (s *Service) SweepLifecycle(ctx context.Context) (int, error) {
	budgets, err := s.repo.ListByStatus(ctx, StatusApproved, StatusActive)
	if err != nil {
		return 0, errors.StoreError("list budgets", err)
	}

	now := s.now()
	changed := 0
	for _, b := range budgets {
		from := b.Status
		if !b.AdvanceLifecycle(now) {
			continue
		}
		if err := s.repo.Update(ctx, b); err != nil {
			s.logger.Error("failed to persist lifecycle transition", "budget_id", b.ID, "error", err)
			continue
		}
		s.logger.Info("budget lifecycle advanced", "budget_id", b.ID, "from", from, "to", b.Status)
		changed++
	}
	return changed, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}
