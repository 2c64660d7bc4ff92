package budget

import (
	"time"

	"github.com/shopspring/decimal"
)

type RulesDTO struct {
	AutoApprovalLimit     *decimal.Decimal `json:"auto_approval_limit,omitempty"`
	RequireReceiptAbove   *decimal.Decimal `json:"require_receipt_above,omitempty"`
	MultipleApprovalAbove *decimal.Decimal `json:"multiple_approval_above,omitempty"`
}

func nullable(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

func (r *RulesDTO) toRules() AllocationRules {
	if r == nil {
		return AllocationRules{}
	}
	return AllocationRules{
		AutoApprovalLimit:     nullable(r.AutoApprovalLimit),
		RequireReceiptAbove:   nullable(r.RequireReceiptAbove),
		MultipleApprovalAbove: nullable(r.MultipleApprovalAbove),
	}
}

type CreateBudgetDTO struct {
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Period         string          `json:"period"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	CategoryID     *int64          `json:"category_id,omitempty"`
	Department     string          `json:"department,omitempty"`
	ApproverIDs    []int64         `json:"approver_ids,omitempty"`
	AlertThreshold *int            `json:"alert_threshold,omitempty"`
	Rules          *RulesDTO       `json:"allocation_rules,omitempty"`
}

// UpdateBudgetDTO carries a partial update; nil fields are left unchanged.
type UpdateBudgetDTO struct {
	Name           *string          `json:"name,omitempty"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	StartDate      *time.Time       `json:"start_date,omitempty"`
	EndDate        *time.Time       `json:"end_date,omitempty"`
	Department     *string          `json:"department,omitempty"`
	ApproverIDs    []int64          `json:"approver_ids,omitempty"`
	AlertThreshold *int             `json:"alert_threshold,omitempty"`
	Rules          *RulesDTO        `json:"allocation_rules,omitempty"`
}

func (d UpdateBudgetDTO) applyTo(b *Budget) {
	if d.Name != nil {
		b.Name = *d.Name
	}
	if d.Amount != nil {
		b.Amount = *d.Amount
	}
	if d.StartDate != nil {
		b.StartDate = *d.StartDate
	}
	if d.EndDate != nil {
		b.EndDate = *d.EndDate
	}
	if d.Department != nil {
		b.Department = *d.Department
	}
	if d.ApproverIDs != nil {
		b.ApproverIDs = d.ApproverIDs
	}
	if d.AlertThreshold != nil {
		b.AlertThreshold = *d.AlertThreshold
	}
	if d.Rules != nil {
		b.Rules = d.Rules.toRules()
	}
}

type ListFilter struct {
	Status     string
	Department string
	OwnerID    *int64
	Limit      int
	Offset     int
}

type BudgetsResponse struct {
	Budgets []*Budget `json:"budgets"`
	Limit   int       `json:"limit"`
	Offset  int       `json:"offset"`
}
