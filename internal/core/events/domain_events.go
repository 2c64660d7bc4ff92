package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeExpenseSubmitted       = "expense.submitted"
	EventTypeExpenseReviewed        = "expense.reviewed"
	EventTypeExpenseUpdated         = "expense.updated"
	EventTypeExpenseReimbursed      = "expense.reimbursed"
	EventTypeBudgetUpdated          = "budget.updated"
	EventTypeBudgetThresholdReached = "budget.threshold_reached"
)

// ExpenseChange describes an expense write together with the values it replaced.
// Previous* fields let subscribers rebuild the ledger as it stood before the write.
type ExpenseChange struct {
	BaseEvent
	ExpenseID        int64  `json:"expense_id"`
	Title            string `json:"title"`
	BudgetID         *int64 `json:"budget_id,omitempty"`
	SubmittedBy      int64  `json:"submitted_by"`
	ActorID          int64  `json:"actor_id"`
	Status           string `json:"status"`
	PreviousStatus   string `json:"previous_status"`
	Amount           string `json:"amount"`
	ConvertedAmount  string `json:"converted_amount"`
	PreviousAmount   string `json:"previous_amount"`
	Currency         string `json:"currency"`
	PreviousCurrency string `json:"previous_currency"`
	PreviousBudgetID *int64 `json:"previous_budget_id,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

func NewExpenseChange(eventType string, change ExpenseChange) *ExpenseChange {
	change.BaseEvent = BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"expense_id":      change.ExpenseID,
			"budget_id":       change.BudgetID,
			"status":          change.Status,
			"previous_status": change.PreviousStatus,
			"title":           change.Title,
			"amount":          change.Amount,
			"converted":       change.ConvertedAmount,
			"currency":        change.Currency,
			"actor_id":        change.ActorID,
		},
	}
	return &change
}

type BudgetUpdated struct {
	BaseEvent
	BudgetID               int64  `json:"budget_id"`
	ActorID                int64  `json:"actor_id"`
	PreviousAmount         string `json:"previous_amount"`
	PreviousCurrency       string `json:"previous_currency"`
	PreviousAlertThreshold int    `json:"previous_alert_threshold"`
}

func NewBudgetUpdated(budgetID, actorID int64, previousAmount, previousCurrency string, previousThreshold int) *BudgetUpdated {
	return &BudgetUpdated{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeBudgetUpdated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"budget_id":                budgetID,
				"actor_id":                 actorID,
				"previous_amount":          previousAmount,
				"previous_currency":        previousCurrency,
				"previous_alert_threshold": previousThreshold,
			},
		},
		BudgetID:               budgetID,
		ActorID:                actorID,
		PreviousAmount:         previousAmount,
		PreviousCurrency:       previousCurrency,
		PreviousAlertThreshold: previousThreshold,
	}
}

type ThresholdReached struct {
	BaseEvent
	BudgetID        int64  `json:"budget_id"`
	OwnerID         int64  `json:"owner_id"`
	Spent           string `json:"spent"`
	UsagePercentage int64  `json:"usage_percentage"`
	AlertThreshold  int    `json:"alert_threshold"`
}

func NewThresholdReached(budgetID, ownerID int64, spent string, usage int64, threshold int) *ThresholdReached {
	return &ThresholdReached{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeBudgetThresholdReached,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"budget_id":        budgetID,
				"owner_id":         ownerID,
				"spent":            spent,
				"usage_percentage": usage,
				"alert_threshold":  threshold,
			},
		},
		BudgetID:        budgetID,
		OwnerID:         ownerID,
		Spent:           spent,
		UsagePercentage: usage,
		AlertThreshold:  threshold,
	}
}
