package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/budget-ledger/internal/budget"
	"github.com/frahmantamala/budget-ledger/internal/core/user"
	"github.com/frahmantamala/budget-ledger/internal/notification"
	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionFire     Action = "fire"
	ActionSuppress Action = "suppress"
)

// Mode selects when an over-threshold ledger produces an alert.
type Mode string

const (
	// ModeEdge fires only on the evaluation that crosses the threshold.
	ModeEdge Mode = "edge"
	// ModeLevel fires on every evaluation while over the threshold.
	ModeLevel Mode = "level"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeEdge:
		return ModeEdge, nil
	case ModeLevel:
		return ModeLevel, nil
	}
	return "", fmt.Errorf("unknown alert mode %q", s)
}

type Decision struct {
	Action     Action
	OwnerID    int64
	BudgetID   int64
	BudgetName string
	Currency   string
	Amount     decimal.Decimal
	Spent      decimal.Decimal
	Remaining  decimal.Decimal
	Usage      int64
	Threshold  int
}

func (d Decision) Fires() bool {
	return d.Action == ActionFire
}

func decisionFor(b *budget.Budget, l Ledger, action Action) Decision {
	return Decision{
		Action:     action,
		OwnerID:    b.OwnerID,
		BudgetID:   b.ID,
		BudgetName: b.Name,
		Currency:   l.Currency,
		Amount:     l.Amount,
		Spent:      l.Spent,
		Remaining:  l.Remaining,
		Usage:      l.UsagePercentage,
		Threshold:  l.AlertThreshold,
	}
}

// Evaluate fires whenever the ledger is at or over the budget's alert threshold.
func Evaluate(b *budget.Budget, l Ledger) Decision {
	if l.IsOverThreshold {
		return decisionFor(b, l, ActionFire)
	}
	return decisionFor(b, l, ActionSuppress)
}

// EvaluateCrossing fires only when before was under the threshold and after is not.
func EvaluateCrossing(b *budget.Budget, before, after Ledger) Decision {
	if !before.IsOverThreshold && after.IsOverThreshold {
		return decisionFor(b, after, ActionFire)
	}
	return decisionFor(b, after, ActionSuppress)
}

// Dispatcher turns a fired decision into a notification to the budget owner.
type Dispatcher struct {
	users  user.Lookup
	sender notification.Sender
	logger *slog.Logger
}

func NewDispatcher(users user.Lookup, sender notification.Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{users: users, sender: sender, logger: logger}
}

func (d *Dispatcher) Dispatch(ctx context.Context, decision Decision) error {
	if !decision.Fires() {
		return nil
	}

	owner, err := d.users.FindByID(ctx, decision.OwnerID)
	if err != nil {
		d.logger.Error("budget alert dropped, owner lookup failed",
			"budget_id", decision.BudgetID,
			"owner_id", decision.OwnerID,
			"error", err)
		return fmt.Errorf("resolve budget owner %d: %w", decision.OwnerID, err)
	}

	payload := map[string]interface{}{
		"budget_id":        decision.BudgetID,
		"budget_name":      decision.BudgetName,
		"currency":         decision.Currency,
		"amount":           decision.Amount.StringFixed(2),
		"spent":            decision.Spent.StringFixed(2),
		"remaining":        decision.Remaining.StringFixed(2),
		"usage_percentage": decision.Usage,
		"alert_threshold":  decision.Threshold,
	}

	recipient := notification.Recipient{UserID: owner.ID, Email: owner.Email, Name: owner.Name}
	if err := d.sender.Send(ctx, recipient, notification.KindBudgetAlert, payload); err != nil {
		d.logger.Error("budget alert send failed", "budget_id", decision.BudgetID, "owner_id", owner.ID, "error", err)
		return fmt.Errorf("send budget alert: %w", err)
	}

	d.logger.Info("budget alert sent",
		"budget_id", decision.BudgetID,
		"owner_id", owner.ID,
		"usage_percentage", decision.Usage,
		"alert_threshold", decision.Threshold)
	return nil
}
