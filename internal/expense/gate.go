package expense

import (
	"strings"
	"time"

	errors "github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/budget"
	"github.com/frahmantamala/budget-ledger/internal/core/user"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// CanSubmit checks that b accepts expenses and that the expense date falls inside its period.
func CanSubmit(e *Expense, b *budget.Budget) error {
	if !b.AcceptsExpenses() {
		return errors.ErrBudgetInactive
	}
	if !b.Covers(e.Date) {
		return errors.ErrOutOfPeriod
	}
	return nil
}

// Review applies a manager decision to a pending expense and returns the new state. e is not modified.
func Review(e *Expense, decision Decision, actor *user.User, reason string, now time.Time) (*Expense, error) {
	if !actor.IsManager() {
		return nil, errors.ErrInvalidActor
	}
	if e.Status != StatusPending {
		return nil, errors.ErrNotPending
	}

	reason = strings.TrimSpace(reason)
	next := e.Clone()
	next.UpdatedAt = now

	switch decision {
	case DecisionApprove:
		next.Status = StatusApproved
		approver := actor.ID
		next.ApprovedBy = &approver
		if next.ApprovalDate == nil {
			approvedAt := now
			next.ApprovalDate = &approvedAt
		}
		next.appendAudit(AuditApproved, actor.ID, now, statusChange(e.Status, next.Status), optional(reason))
	case DecisionReject:
		if reason == "" {
			return nil, errors.ErrMissingReason
		}
		next.Status = StatusRejected
		next.RejectionReason = &reason
		next.appendAudit(AuditRejected, actor.ID, now, statusChange(e.Status, next.Status), &reason)
	default:
		return nil, errors.NewValidationFieldError("decision", "decision must be approve or reject", errors.ErrCodeValidationFailed)
	}

	return next, nil
}

// Reimburse marks an approved expense as paid out. e is not modified.
func Reimburse(e *Expense, actor *user.User, now time.Time) (*Expense, error) {
	if !actor.IsManager() {
		return nil, errors.ErrInvalidActor
	}
	if e.Status != StatusApproved {
		return nil, errors.ErrInvalidTransition
	}

	next := e.Clone()
	next.Status = StatusReimbursed
	next.UpdatedAt = now
	next.appendAudit(AuditReimbursed, actor.ID, now, statusChange(e.Status, next.Status), nil)
	return next, nil
}

func statusChange(from, to Status) map[string]interface{} {
	return map[string]interface{}{
		"status": map[string]interface{}{"from": string(from), "to": string(to)},
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
