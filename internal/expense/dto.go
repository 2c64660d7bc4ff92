package expense

import (
	"strings"
	"time"

	errors "github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/budget"
	"github.com/frahmantamala/budget-ledger/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

var (
	paymentMethods = []string{string(PaymentCash), string(PaymentCard), string(PaymentBankTransfer), string(PaymentOther)}
	frequencies    = []string{string(FrequencyDaily), string(FrequencyWeekly), string(FrequencyMonthly), string(FrequencyYearly)}
)

type RecurringDTO struct {
	IsRecurring bool       `json:"is_recurring"`
	Frequency   string     `json:"frequency,omitempty"`
	NextDate    *time.Time `json:"next_date,omitempty"`
}

func (r *RecurringDTO) toRecurring() Recurring {
	if r == nil || !r.IsRecurring {
		return Recurring{}
	}
	f := Frequency(r.Frequency)
	return Recurring{IsRecurring: true, Frequency: &f, NextDate: r.NextDate}
}

func (r *RecurringDTO) validate(v *validation.ValidationBuilder) {
	if r == nil || !r.IsRecurring {
		return
	}
	v.Field("recurring.frequency", r.Frequency).Required().OneOf(frequencies...)
}

type CreateExpenseDTO struct {
	Title         string           `json:"title"`
	Description   string           `json:"description,omitempty"`
	Amount        decimal.Decimal  `json:"amount"`
	Currency      string           `json:"currency"`
	ExchangeRate  *decimal.Decimal `json:"exchange_rate,omitempty"`
	ExpenseDate   time.Time        `json:"expense_date"`
	CategoryID    *int64           `json:"category_id,omitempty"`
	BudgetID      *int64           `json:"budget_id,omitempty"`
	PaymentMethod string           `json:"payment_method"`
	Vendor        string           `json:"vendor,omitempty"`
	Receipts      []Receipt        `json:"receipts,omitempty"`
	Department    string           `json:"department,omitempty"`
	Recurring     *RecurringDTO    `json:"recurring,omitempty"`
}

func (dto CreateExpenseDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("title", dto.Title).Required().MaxLength(200)
	v.Field("description", dto.Description).MaxLength(1000)
	v.Field("amount", dto.Amount).Positive(errors.ErrCodeInvalidAmount)
	v.Field("currency", dto.Currency).Required().Currency()
	if dto.ExchangeRate != nil {
		v.Field("exchange_rate", *dto.ExchangeRate).Positive(errors.ErrCodeValidationFailed)
	}
	v.Field("expense_date", dto.ExpenseDate).Required().NotFuture()
	v.Field("payment_method", dto.PaymentMethod).Required().OneOf(paymentMethods...)
	v.Field("vendor", dto.Vendor).MaxLength(200)
	dto.Recurring.validate(v)
	return v.Validate()
}

func (dto CreateExpenseDTO) toExpense(submittedBy int64, now time.Time) *Expense {
	receipts := dto.Receipts
	if receipts == nil {
		receipts = []Receipt{}
	}
	return &Expense{
		Title:         strings.TrimSpace(dto.Title),
		Description:   dto.Description,
		Amount:        dto.Amount,
		Currency:      dto.Currency,
		Date:          budget.DateOf(dto.ExpenseDate),
		CategoryID:    dto.CategoryID,
		BudgetID:      dto.BudgetID,
		PaymentMethod: PaymentMethod(dto.PaymentMethod),
		Vendor:        dto.Vendor,
		Receipts:      receipts,
		Status:        StatusPending,
		SubmittedBy:   submittedBy,
		Department:    dto.Department,
		Recurring:     dto.Recurring.toRecurring(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// UpdateExpenseDTO carries a partial update; nil fields are left unchanged.
type UpdateExpenseDTO struct {
	Title         *string          `json:"title,omitempty"`
	Description   *string          `json:"description,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Currency      *string          `json:"currency,omitempty"`
	ExchangeRate  *decimal.Decimal `json:"exchange_rate,omitempty"`
	ExpenseDate   *time.Time       `json:"expense_date,omitempty"`
	CategoryID    *int64           `json:"category_id,omitempty"`
	BudgetID      *int64           `json:"budget_id,omitempty"`
	PaymentMethod *string          `json:"payment_method,omitempty"`
	Vendor        *string          `json:"vendor,omitempty"`
	Receipts      []Receipt        `json:"receipts,omitempty"`
	Recurring     *RecurringDTO    `json:"recurring,omitempty"`
}

func (dto UpdateExpenseDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	if dto.Title != nil {
		v.Field("title", *dto.Title).Required().MaxLength(200)
	}
	if dto.Description != nil {
		v.Field("description", *dto.Description).MaxLength(1000)
	}
	if dto.Amount != nil {
		v.Field("amount", *dto.Amount).Positive(errors.ErrCodeInvalidAmount)
	}
	if dto.Currency != nil {
		v.Field("currency", *dto.Currency).Required().Currency()
	}
	if dto.ExchangeRate != nil {
		v.Field("exchange_rate", *dto.ExchangeRate).Positive(errors.ErrCodeValidationFailed)
	}
	if dto.ExpenseDate != nil {
		v.Field("expense_date", *dto.ExpenseDate).Required().NotFuture()
	}
	if dto.PaymentMethod != nil {
		v.Field("payment_method", *dto.PaymentMethod).Required().OneOf(paymentMethods...)
	}
	if dto.Vendor != nil {
		v.Field("vendor", *dto.Vendor).MaxLength(200)
	}
	dto.Recurring.validate(v)
	return v.Validate()
}

// applyTo writes the update onto e and returns the changed fields as {field: {from, to}}.
func (dto UpdateExpenseDTO) applyTo(e *Expense) map[string]interface{} {
	changes := make(map[string]interface{})
	record := func(field string, from, to interface{}) {
		changes[field] = map[string]interface{}{"from": from, "to": to}
	}

	if dto.Title != nil && *dto.Title != e.Title {
		record("title", e.Title, *dto.Title)
		e.Title = strings.TrimSpace(*dto.Title)
	}
	if dto.Description != nil && *dto.Description != e.Description {
		record("description", e.Description, *dto.Description)
		e.Description = *dto.Description
	}
	if dto.Amount != nil && !dto.Amount.Equal(e.Amount) {
		record("amount", e.Amount.String(), dto.Amount.String())
		e.Amount = *dto.Amount
	}
	if dto.Currency != nil && *dto.Currency != e.Currency {
		record("currency", e.Currency, *dto.Currency)
		e.Currency = *dto.Currency
	}
	if dto.ExchangeRate != nil && !dto.ExchangeRate.Equal(e.ExchangeRate) {
		record("exchange_rate", e.ExchangeRate.String(), dto.ExchangeRate.String())
		e.ExchangeRate = *dto.ExchangeRate
	}
	if dto.ExpenseDate != nil {
		date := budget.DateOf(*dto.ExpenseDate)
		if !date.Equal(e.Date) {
			record("expense_date", e.Date.Format(time.DateOnly), date.Format(time.DateOnly))
			e.Date = date
		}
	}
	if dto.CategoryID != nil && (e.CategoryID == nil || *e.CategoryID != *dto.CategoryID) {
		record("category_id", e.CategoryID, *dto.CategoryID)
		id := *dto.CategoryID
		e.CategoryID = &id
	}
	if dto.BudgetID != nil && (e.BudgetID == nil || *e.BudgetID != *dto.BudgetID) {
		record("budget_id", e.BudgetID, *dto.BudgetID)
		id := *dto.BudgetID
		e.BudgetID = &id
	}
	if dto.PaymentMethod != nil && PaymentMethod(*dto.PaymentMethod) != e.PaymentMethod {
		record("payment_method", string(e.PaymentMethod), *dto.PaymentMethod)
		e.PaymentMethod = PaymentMethod(*dto.PaymentMethod)
	}
	if dto.Vendor != nil && *dto.Vendor != e.Vendor {
		record("vendor", e.Vendor, *dto.Vendor)
		e.Vendor = *dto.Vendor
	}
	if dto.Receipts != nil {
		record("receipts", len(e.Receipts), len(dto.Receipts))
		e.Receipts = dto.Receipts
	}
	if dto.Recurring != nil {
		record("is_recurring", e.Recurring.IsRecurring, dto.Recurring.IsRecurring)
		e.Recurring = dto.Recurring.toRecurring()
	}
	return changes
}

type ReviewDTO struct {
	Reason string `json:"reason,omitempty"`
}

type ListFilter struct {
	SubmittedBy *int64
	BudgetID    *int64
	Status      string
	Limit       int
	Offset      int
}

type ExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
}

// ExpenseView is an expense together with the advisory policy of its budget's allocation rules.
type ExpenseView struct {
	*Expense
	Policy *budget.Policy `json:"policy,omitempty"`
}
