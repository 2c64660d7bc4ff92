package notification

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/budget-ledger/internal/core/events"
	"github.com/frahmantamala/budget-ledger/internal/core/user"
)

// ReviewSubscriber tells the submitter when their expense is approved or rejected.
type ReviewSubscriber struct {
	users  user.Lookup
	sender Sender
	logger *slog.Logger
}

func NewReviewSubscriber(users user.Lookup, sender Sender, logger *slog.Logger) *ReviewSubscriber {
	return &ReviewSubscriber{users: users, sender: sender, logger: logger}
}

func (s *ReviewSubscriber) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeExpenseReviewed, s.Handle)
}

func (s *ReviewSubscriber) Handle(ctx context.Context, event events.Event) error {
	change, ok := event.(*events.ExpenseChange)
	if !ok {
		return nil
	}

	var kind Kind
	switch change.Status {
	case "approved":
		kind = KindExpenseApproved
	case "rejected":
		kind = KindExpenseRejected
	default:
		return nil
	}

	submitter, err := s.users.FindByID(ctx, change.SubmittedBy)
	if err != nil {
		s.logger.Warn("review notification skipped, submitter lookup failed",
			"expense_id", change.ExpenseID,
			"user_id", change.SubmittedBy,
			"error", err)
		return nil
	}

	payload := map[string]interface{}{
		"expense_id": change.ExpenseID,
		"title":      change.Title,
		"amount":     change.Amount,
		"currency":   change.Currency,
	}
	if change.Reason != "" {
		payload["reason"] = change.Reason
	}

	recipient := Recipient{UserID: submitter.ID, Email: submitter.Email, Name: submitter.Name}
	if err := s.sender.Send(ctx, recipient, kind, payload); err != nil {
		s.logger.Error("review notification failed", "expense_id", change.ExpenseID, "kind", kind, "error", err)
	}
	return nil
}
