package budget

import (
	"time"

	"github.com/shopspring/decimal"
)

type Budget struct {
	ID                    int64               `gorm:"primaryKey"`
	Name                  string              `gorm:"column:name;not null"`
	Amount                decimal.Decimal     `gorm:"column:amount;type:numeric(18,4);not null"`
	Currency              string              `gorm:"column:currency;size:3;not null"`
	Period                string              `gorm:"column:period;not null"`
	StartDate             time.Time           `gorm:"column:start_date;not null"`
	EndDate               time.Time           `gorm:"column:end_date;not null"`
	CategoryID            *int64              `gorm:"column:category_id"`
	Department            string              `gorm:"column:department"`
	OwnerID               int64               `gorm:"column:owner_id;not null;index"`
	ApproverIDs           []int64             `gorm:"column:approver_ids;serializer:json"`
	Status                string              `gorm:"column:status;not null;default:draft;index"`
	AlertThreshold        int                 `gorm:"column:alert_threshold;not null"`
	AutoApprovalLimit     decimal.NullDecimal `gorm:"column:auto_approval_limit;type:numeric(18,4)"`
	RequireReceiptAbove   decimal.NullDecimal `gorm:"column:require_receipt_above;type:numeric(18,4)"`
	MultipleApprovalAbove decimal.NullDecimal `gorm:"column:multiple_approval_above;type:numeric(18,4)"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Budget) TableName() string {
	return "budgets"
}
