package postgres

import (
	"context"
	"errors"

	appErrors "github.com/frahmantamala/budget-ledger/internal"
	expenseDatamodel "github.com/frahmantamala/budget-ledger/internal/core/datamodel/expense"
	"github.com/frahmantamala/budget-ledger/internal/expense"
	"gorm.io/gorm"
)

type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) expense.Repository {
	return &ExpenseRepository{db: db}
}

// Create inserts the expense and its initial audit entries in one transaction.
func (r *ExpenseRepository) Create(ctx context.Context, e *expense.Expense) error {
	model := expense.ToDataModel(e)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		e.ID = model.ID
		e.CreatedAt = model.CreatedAt
		e.UpdatedAt = model.UpdatedAt
		return insertAudit(tx, e)
	})
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*expense.Expense, error) {
	var model expenseDatamodel.Expense
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrExpenseNotFound
		}
		return nil, err
	}

	e := expense.FromDataModel(&model)
	audit, err := r.ListAudit(ctx, id)
	if err != nil {
		return nil, err
	}
	e.AuditLog = audit
	return e, nil
}

func (r *ExpenseRepository) List(ctx context.Context, filter expense.ListFilter) ([]*expense.Expense, error) {
	query := r.db.WithContext(ctx).Model(&expenseDatamodel.Expense{})
	if filter.SubmittedBy != nil {
		query = query.Where("submitted_by = ?", *filter.SubmittedBy)
	}
	if filter.BudgetID != nil {
		query = query.Where("budget_id = ?", *filter.BudgetID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var models []*expenseDatamodel.Expense
	if err := query.Order("expense_date DESC, id DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	return expense.FromDataModelSlice(models), nil
}

func (r *ExpenseRepository) ListByBudget(ctx context.Context, budgetID int64) ([]*expense.Expense, error) {
	var models []*expenseDatamodel.Expense
	err := r.db.WithContext(ctx).
		Where("budget_id = ?", budgetID).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return expense.FromDataModelSlice(models), nil
}

func (r *ExpenseRepository) CountByBudget(ctx context.Context, budgetID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&expenseDatamodel.Expense{}).
		Where("budget_id = ?", budgetID).
		Count(&count).Error
	return count, err
}

// Update writes every column conditioned on the stored status, so two reviewers racing on the
// same pending expense cannot both succeed.
func (r *ExpenseRepository) Update(ctx context.Context, e *expense.Expense, expectedStatus expense.Status) error {
	model := expense.ToDataModel(e)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(model).
			Where("status = ?", string(expectedStatus)).
			Select("*").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&expenseDatamodel.Expense{}).Where("id = ?", e.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return appErrors.ErrExpenseNotFound
			}
			return appErrors.ErrNotPending
		}
		e.UpdatedAt = model.UpdatedAt
		return insertAudit(tx, e)
	})
}

func (r *ExpenseRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&expenseDatamodel.Expense{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return appErrors.ErrExpenseNotFound
	}
	return nil
}

func (r *ExpenseRepository) ListAudit(ctx context.Context, expenseID int64) ([]expense.AuditEntry, error) {
	var models []*expenseDatamodel.AuditEntry
	err := r.db.WithContext(ctx).
		Where("expense_id = ?", expenseID).
		Order("created_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entries := make([]expense.AuditEntry, len(models))
	for i, m := range models {
		entries[i] = expense.AuditFromDataModel(m)
	}
	return entries, nil
}

func insertAudit(tx *gorm.DB, e *expense.Expense) error {
	for i := range e.AuditLog {
		if e.AuditLog[i].ID != 0 {
			continue
		}
		model := expense.AuditToDataModel(e.ID, e.AuditLog[i])
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		e.AuditLog[i].ID = model.ID
	}
	return nil
}
