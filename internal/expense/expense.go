package expense

import (
	"time"

	expenseDatamodel "github.com/frahmantamala/budget-ledger/internal/core/datamodel/expense"
	"github.com/frahmantamala/budget-ledger/internal/core/money"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusReimbursed Status = "reimbursed"
)

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCard         PaymentMethod = "card"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentOther        PaymentMethod = "other"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

type AuditAction string

const (
	AuditCreated    AuditAction = "created"
	AuditUpdated    AuditAction = "updated"
	AuditApproved   AuditAction = "approved"
	AuditRejected   AuditAction = "rejected"
	AuditReimbursed AuditAction = "reimbursed"
)

type Receipt struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Recurring struct {
	IsRecurring bool       `json:"is_recurring"`
	Frequency   *Frequency `json:"frequency,omitempty"`
	NextDate    *time.Time `json:"next_date,omitempty"`
}

// AuditEntry is append-only. Entries with ID 0 have not been persisted yet.
type AuditEntry struct {
	ID          int64                  `json:"id"`
	Action      AuditAction            `json:"action"`
	PerformedBy int64                  `json:"performed_by"`
	Timestamp   time.Time              `json:"timestamp"`
	Changes     map[string]interface{} `json:"changes,omitempty"`
	Reason      *string                `json:"reason,omitempty"`
}

type Expense struct {
	ID              int64           `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate"`
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
	Date            time.Time       `json:"expense_date"`
	CategoryID      *int64          `json:"category_id,omitempty"`
	BudgetID        *int64          `json:"budget_id,omitempty"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	Vendor          string          `json:"vendor,omitempty"`
	Receipts        []Receipt       `json:"receipts"`
	Status          Status          `json:"status"`
	SubmittedBy     int64           `json:"submitted_by"`
	ApprovedBy      *int64          `json:"approved_by,omitempty"`
	ApprovalDate    *time.Time      `json:"approval_date,omitempty"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
	Department      string          `json:"department,omitempty"`
	Recurring       Recurring       `json:"recurring"`
	AuditLog        []AuditEntry    `json:"audit_log,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Recalculate derives ConvertedAmount from Amount and ExchangeRate. Call it after changing either.
func (e *Expense) Recalculate() {
	e.ConvertedAmount = money.Round2(e.Amount.Mul(e.ExchangeRate))
}

// IsCounted reports whether the expense contributes to a budget's spent amount.
func (e *Expense) IsCounted() bool {
	return e.Status == StatusApproved || e.Status == StatusReimbursed
}

func (e *Expense) IsPending() bool {
	return e.Status == StatusPending
}

func (e *Expense) CanBeDeleted() bool {
	return e.Status == StatusPending || e.Status == StatusRejected
}

func (e *Expense) BelongsTo(budgetID int64) bool {
	return e.BudgetID != nil && *e.BudgetID == budgetID
}

func (e *Expense) appendAudit(action AuditAction, actorID int64, now time.Time, changes map[string]interface{}, reason *string) {
	e.AuditLog = append(e.AuditLog, AuditEntry{
		Action:      action,
		PerformedBy: actorID,
		Timestamp:   now,
		Changes:     changes,
		Reason:      reason,
	})
}

// PendingAudit returns audit entries not yet persisted.
func (e *Expense) PendingAudit() []AuditEntry {
	var pending []AuditEntry
	for _, entry := range e.AuditLog {
		if entry.ID == 0 {
			pending = append(pending, entry)
		}
	}
	return pending
}

// Clone returns a deep copy so callers can derive a new state without touching the original.
func (e *Expense) Clone() *Expense {
	cp := *e
	cp.CategoryID = clonePtr(e.CategoryID)
	cp.BudgetID = clonePtr(e.BudgetID)
	cp.ApprovedBy = clonePtr(e.ApprovedBy)
	cp.ApprovalDate = clonePtr(e.ApprovalDate)
	cp.RejectionReason = clonePtr(e.RejectionReason)
	cp.Recurring.Frequency = clonePtr(e.Recurring.Frequency)
	cp.Recurring.NextDate = clonePtr(e.Recurring.NextDate)
	cp.Receipts = append([]Receipt(nil), e.Receipts...)
	cp.AuditLog = append([]AuditEntry(nil), e.AuditLog...)
	return &cp
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func ToDataModel(e *Expense) *expenseDatamodel.Expense {
	receipts := make([]expenseDatamodel.Receipt, len(e.Receipts))
	for i, r := range e.Receipts {
		receipts[i] = expenseDatamodel.Receipt{Name: r.Name, URL: r.URL}
	}

	var frequency *string
	if e.Recurring.Frequency != nil {
		f := string(*e.Recurring.Frequency)
		frequency = &f
	}

	return &expenseDatamodel.Expense{
		ID:                 e.ID,
		Title:              e.Title,
		Description:        e.Description,
		Amount:             e.Amount,
		Currency:           e.Currency,
		ExchangeRate:       e.ExchangeRate,
		ConvertedAmount:    e.ConvertedAmount,
		ExpenseDate:        e.Date,
		CategoryID:         e.CategoryID,
		BudgetID:           e.BudgetID,
		PaymentMethod:      string(e.PaymentMethod),
		Vendor:             e.Vendor,
		Receipts:           receipts,
		Status:             string(e.Status),
		SubmittedBy:        e.SubmittedBy,
		ApprovedBy:         e.ApprovedBy,
		ApprovalDate:       e.ApprovalDate,
		RejectionReason:    e.RejectionReason,
		Department:         e.Department,
		IsRecurring:        e.Recurring.IsRecurring,
		RecurringFrequency: frequency,
		RecurringNextDate:  e.Recurring.NextDate,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
}

func FromDataModel(e *expenseDatamodel.Expense) *Expense {
	receipts := make([]Receipt, len(e.Receipts))
	for i, r := range e.Receipts {
		receipts[i] = Receipt{Name: r.Name, URL: r.URL}
	}

	var frequency *Frequency
	if e.RecurringFrequency != nil {
		f := Frequency(*e.RecurringFrequency)
		frequency = &f
	}

	return &Expense{
		ID:              e.ID,
		Title:           e.Title,
		Description:     e.Description,
		Amount:          e.Amount,
		Currency:        e.Currency,
		ExchangeRate:    e.ExchangeRate,
		ConvertedAmount: e.ConvertedAmount,
		Date:            e.ExpenseDate,
		CategoryID:      e.CategoryID,
		BudgetID:        e.BudgetID,
		PaymentMethod:   PaymentMethod(e.PaymentMethod),
		Vendor:          e.Vendor,
		Receipts:        receipts,
		Status:          Status(e.Status),
		SubmittedBy:     e.SubmittedBy,
		ApprovedBy:      e.ApprovedBy,
		ApprovalDate:    e.ApprovalDate,
		RejectionReason: e.RejectionReason,
		Department:      e.Department,
		Recurring: Recurring{
			IsRecurring: e.IsRecurring,
			Frequency:   frequency,
			NextDate:    e.RecurringNextDate,
		},
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func FromDataModelSlice(expenses []*expenseDatamodel.Expense) []*Expense {
	result := make([]*Expense, len(expenses))
	for i, e := range expenses {
		result[i] = FromDataModel(e)
	}
	return result
}

func AuditToDataModel(expenseID int64, a AuditEntry) *expenseDatamodel.AuditEntry {
	return &expenseDatamodel.AuditEntry{
		ID:          a.ID,
		ExpenseID:   expenseID,
		Action:      string(a.Action),
		PerformedBy: a.PerformedBy,
		Changes:     a.Changes,
		Reason:      a.Reason,
		CreatedAt:   a.Timestamp,
	}
}

func AuditFromDataModel(a *expenseDatamodel.AuditEntry) AuditEntry {
	return AuditEntry{
		ID:          a.ID,
		Action:      AuditAction(a.Action),
		PerformedBy: a.PerformedBy,
		Timestamp:   a.CreatedAt,
		Changes:     a.Changes,
		Reason:      a.Reason,
	}
}
