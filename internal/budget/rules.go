package budget

import "github.com/shopspring/decimal"

// AllocationRules are advisory policy limits attached to a budget. Unset limits are the zero NullDecimal.
type AllocationRules struct {
	AutoApprovalLimit     decimal.NullDecimal `json:"auto_approval_limit"`
	RequireReceiptAbove   decimal.NullDecimal `json:"require_receipt_above"`
	MultipleApprovalAbove decimal.NullDecimal `json:"multiple_approval_above"`
}

// IsApprovalRequired is true when amount exceeds the auto-approval limit, or when no limit is set.
func (r AllocationRules) IsApprovalRequired(amount decimal.Decimal) bool {
	if !r.AutoApprovalLimit.Valid {
		return true
	}
	return amount.GreaterThan(r.AutoApprovalLimit.Decimal)
}

func (r AllocationRules) RequiresReceipt(amount decimal.Decimal) bool {
	return r.RequireReceiptAbove.Valid && amount.GreaterThan(r.RequireReceiptAbove.Decimal)
}

func (r AllocationRules) RequiresMultipleApproval(amount decimal.Decimal) bool {
	return r.MultipleApprovalAbove.Valid && amount.GreaterThan(r.MultipleApprovalAbove.Decimal)
}

// Policy is the advisory summary of the rules for one amount.
type Policy struct {
	ApprovalRequired         bool `json:"approval_required"`
	ReceiptRequired          bool `json:"receipt_required"`
	MultipleApprovalRequired bool `json:"multiple_approval_required"`
}

func (r AllocationRules) Evaluate(amount decimal.Decimal) Policy {
	return Policy{
		ApprovalRequired:         r.IsApprovalRequired(amount),
		ReceiptRequired:          r.RequiresReceipt(amount),
		MultipleApprovalRequired: r.RequiresMultipleApproval(amount),
	}
}
