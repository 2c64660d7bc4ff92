package budget

import (
	"time"

	errors "github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/core/common/validation"
	budgetDatamodel "github.com/frahmantamala/budget-ledger/internal/core/datamodel/budget"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusActive   Status = "active"
	StatusExpired  Status = "expired"
)

type Period string

const (
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodYearly    Period = "yearly"
	PeriodCustom    Period = "custom"
)

const DefaultAlertThreshold = 80

type Budget struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Period         Period          `json:"period"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	CategoryID     *int64          `json:"category_id,omitempty"`
	Department     string          `json:"department,omitempty"`
	OwnerID        int64           `json:"owner_id"`
	ApproverIDs    []int64         `json:"approver_ids"`
	Status         Status          `json:"status"`
	AlertThreshold int             `json:"alert_threshold"`
	Rules          AllocationRules `json:"allocation_rules"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Validate checks the invariants every persisted budget must satisfy.
func (b *Budget) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("name", b.Name).Required().MaxLength(200)
	v.Field("amount", b.Amount).NonNegative(errors.ErrCodeInvalidAmount)
	v.Field("currency", b.Currency).Currency()
	v.Field("period", string(b.Period)).Required().
		OneOf(string(PeriodMonthly), string(PeriodQuarterly), string(PeriodYearly), string(PeriodCustom))
	v.Field("start_date", b.StartDate).Required()
	v.Field("end_date", b.EndDate).Required()
	v.Field("alert_threshold", b.AlertThreshold).IntRange(0, 100, errors.ErrCodeInvalidThreshold)
	v.Field("allocation_rules.auto_approval_limit", b.Rules.AutoApprovalLimit).NonNegative(errors.ErrCodeInvalidAmount)
	v.Field("allocation_rules.require_receipt_above", b.Rules.RequireReceiptAbove).NonNegative(errors.ErrCodeInvalidAmount)
	v.Field("allocation_rules.multiple_approval_above", b.Rules.MultipleApprovalAbove).NonNegative(errors.ErrCodeInvalidAmount)
	if err := v.Validate(); err != nil {
		return err
	}

	if !b.EndDate.After(b.StartDate) {
		return errors.ErrInvalidDateRange
	}
	return nil
}

// AcceptsExpenses is true while the budget may have expenses submitted against it.
func (b *Budget) AcceptsExpenses() bool {
	return b.Status == StatusActive || b.Status == StatusApproved
}

// Covers reports whether date falls within [StartDate, EndDate] at day granularity.
func (b *Budget) Covers(date time.Time) bool {
	d := DateOf(date)
	return !d.Before(DateOf(b.StartDate)) && !d.After(DateOf(b.EndDate))
}

func (b *Budget) IsEditable() bool {
	return b.Status != StatusRejected && b.Status != StatusExpired
}

// CanBeApprovedBy is true for admins, and for managers listed as approvers (any manager when the list is empty).
func (b *Budget) CanBeApprovedBy(userID int64, isAdmin, isManager bool) bool {
	if isAdmin {
		return true
	}
	if !isManager {
		return false
	}
	if len(b.ApproverIDs) == 0 {
		return true
	}
	for _, id := range b.ApproverIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *Budget) Submit(now time.Time) error {
	if b.Status != StatusDraft {
		return errors.ErrInvalidTransition
	}
	b.Status = StatusPending
	b.UpdatedAt = now
	return nil
}

// Approve moves a pending budget to approved and immediately applies the date-driven lifecycle.
func (b *Budget) Approve(now time.Time) error {
	if b.Status != StatusPending {
		return errors.ErrInvalidTransition
	}
	b.Status = StatusApproved
	b.UpdatedAt = now
	b.AdvanceLifecycle(now)
	return nil
}

func (b *Budget) Reject(now time.Time) error {
	if b.Status != StatusPending {
		return errors.ErrInvalidTransition
	}
	b.Status = StatusRejected
	b.UpdatedAt = now
	return nil
}

// AdvanceLifecycle applies approved→active on the start date and approved/active→expired after the end date.
// It returns true when the status changed.
func (b *Budget) AdvanceLifecycle(now time.Time) bool {
	today := DateOf(now)
	before := b.Status

	if (b.Status == StatusApproved || b.Status == StatusActive) && today.After(DateOf(b.EndDate)) {
		b.Status = StatusExpired
	} else if b.Status == StatusApproved && !today.Before(DateOf(b.StartDate)) {
		b.Status = StatusActive
	}

	if b.Status != before {
		b.UpdatedAt = now
		return true
	}
	return false
}

func NewBudget(ownerID int64, dto CreateBudgetDTO) *Budget {
	now := time.Now()
	threshold := DefaultAlertThreshold
	if dto.AlertThreshold != nil {
		threshold = *dto.AlertThreshold
	}
	approvers := dto.ApproverIDs
	if approvers == nil {
		approvers = []int64{}
	}
	return &Budget{
		Name:           dto.Name,
		Amount:         dto.Amount,
		Currency:       dto.Currency,
		Period:         Period(dto.Period),
		StartDate:      dto.StartDate,
		EndDate:        dto.EndDate,
		CategoryID:     dto.CategoryID,
		Department:     dto.Department,
		OwnerID:        ownerID,
		ApproverIDs:    approvers,
		Status:         StatusDraft,
		AlertThreshold: threshold,
		Rules:          dto.Rules.toRules(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func ToDataModel(b *Budget) *budgetDatamodel.Budget {
	return &budgetDatamodel.Budget{
		ID:                    b.ID,
		Name:                  b.Name,
		Amount:                b.Amount,
		Currency:              b.Currency,
		Period:                string(b.Period),
		StartDate:             b.StartDate,
		EndDate:               b.EndDate,
		CategoryID:            b.CategoryID,
		Department:            b.Department,
		OwnerID:               b.OwnerID,
		ApproverIDs:           b.ApproverIDs,
		Status:                string(b.Status),
		AlertThreshold:        b.AlertThreshold,
		AutoApprovalLimit:     b.Rules.AutoApprovalLimit,
		RequireReceiptAbove:   b.Rules.RequireReceiptAbove,
		MultipleApprovalAbove: b.Rules.MultipleApprovalAbove,
		CreatedAt:             b.CreatedAt,
		UpdatedAt:             b.UpdatedAt,
	}
}

func FromDataModel(b *budgetDatamodel.Budget) *Budget {
	approvers := b.ApproverIDs
	if approvers == nil {
		approvers = []int64{}
	}
	return &Budget{
		ID:             b.ID,
		Name:           b.Name,
		Amount:         b.Amount,
		Currency:       b.Currency,
		Period:         Period(b.Period),
		StartDate:      b.StartDate,
		EndDate:        b.EndDate,
		CategoryID:     b.CategoryID,
		Department:     b.Department,
		OwnerID:        b.OwnerID,
		ApproverIDs:    approvers,
		Status:         Status(b.Status),
		AlertThreshold: b.AlertThreshold,
		Rules: AllocationRules{
			AutoApprovalLimit:     b.AutoApprovalLimit,
			RequireReceiptAbove:   b.RequireReceiptAbove,
			MultipleApprovalAbove: b.MultipleApprovalAbove,
		},
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func FromDataModelSlice(budgets []*budgetDatamodel.Budget) []*Budget {
	result := make([]*Budget, len(budgets))
	for i, b := range budgets {
		result[i] = FromDataModel(b)
	}
	return result
}
