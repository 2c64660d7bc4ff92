package expense

import (
	"time"

	"github.com/shopspring/decimal"
)

type Receipt struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Expense struct {
	ID                 int64           `gorm:"primaryKey"`
	Title              string          `gorm:"column:title;not null"`
	Description        string          `gorm:"column:description"`
	Amount             decimal.Decimal `gorm:"column:amount;type:numeric(18,4);not null"`
	Currency           string          `gorm:"column:currency;size:3;not null"`
	ExchangeRate       decimal.Decimal `gorm:"column:exchange_rate;type:numeric(18,8);not null"`
	ConvertedAmount    decimal.Decimal `gorm:"column:converted_amount;type:numeric(18,2);not null"`
	ExpenseDate        time.Time       `gorm:"column:expense_date;not null"`
	CategoryID         *int64          `gorm:"column:category_id"`
	BudgetID           *int64          `gorm:"column:budget_id;index"`
	PaymentMethod      string          `gorm:"column:payment_method;not null"`
	Vendor             string          `gorm:"column:vendor"`
	Receipts           []Receipt       `gorm:"column:receipts;serializer:json"`
	Status             string          `gorm:"column:status;not null;default:pending;index"`
	SubmittedBy        int64           `gorm:"column:submitted_by;not null;index"`
	ApprovedBy         *int64          `gorm:"column:approved_by"`
	ApprovalDate       *time.Time      `gorm:"column:approval_date"`
	RejectionReason    *string         `gorm:"column:rejection_reason"`
	Department         string          `gorm:"column:department"`
	IsRecurring        bool            `gorm:"column:is_recurring;default:false"`
	RecurringFrequency *string         `gorm:"column:recurring_frequency"`
	RecurringNextDate  *time.Time      `gorm:"column:recurring_next_date"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Expense) TableName() string {
	return "expenses"
}

// AuditEntry rows are insert-only.
type AuditEntry struct {
	ID          int64                  `gorm:"primaryKey"`
	ExpenseID   int64                  `gorm:"column:expense_id;not null;index"`
	Action      string                 `gorm:"column:action;not null"`
	PerformedBy int64                  `gorm:"column:performed_by;not null"`
	Changes     map[string]interface{} `gorm:"column:changes;serializer:json"`
	Reason      *string                `gorm:"column:reason"`
	CreatedAt   time.Time              `gorm:"column:created_at;not null"`
}

func (AuditEntry) TableName() string {
	return "expense_audit_log"
}
