package postgres

import (
	"context"
	"errors"

	appErrors "github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/budget"
	budgetDatamodel "github.com/frahmantamala/budget-ledger/internal/core/datamodel/budget"
	"gorm.io/gorm"
)

type BudgetRepository struct {
	db *gorm.DB
}

func NewBudgetRepository(db *gorm.DB) budget.Repository {
	return &BudgetRepository{db: db}
}

func (r *BudgetRepository) Create(ctx context.Context, b *budget.Budget) error {
	model := budget.ToDataModel(b)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	b.ID = model.ID
	b.CreatedAt = model.CreatedAt
	b.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *BudgetRepository) GetByID(ctx context.Context, id int64) (*budget.Budget, error) {
	var model budgetDatamodel.Budget
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrBudgetNotFound
		}
		return nil, err
	}
	return budget.FromDataModel(&model), nil
}

func (r *BudgetRepository) List(ctx context.Context, filter budget.ListFilter) ([]*budget.Budget, error) {
	query := r.db.WithContext(ctx).Model(&budgetDatamodel.Budget{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Department != "" {
		query = query.Where("department = ?", filter.Department)
	}
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var models []*budgetDatamodel.Budget
	if err := query.Order("start_date DESC, id DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	return budget.FromDataModelSlice(models), nil
}

func (r *BudgetRepository) ListByStatus(ctx context.Context, statuses ...budget.Status) ([]*budget.Budget, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	var models []*budgetDatamodel.Budget
	if err := r.db.WithContext(ctx).Where("status IN ?", values).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return budget.FromDataModelSlice(models), nil
}

func (r *BudgetRepository) Update(ctx context.Context, b *budget.Budget) error {
	model := budget.ToDataModel(b)
	result := r.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		return result.Error
	}
	b.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *BudgetRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&budgetDatamodel.Budget{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return appErrors.ErrBudgetNotFound
	}
	return nil
}
