package postgres

import (
	"context"
	"errors"

	appErrors "github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/category"
	categoryDatamodel "github.com/frahmantamala/budget-ledger/internal/core/datamodel/category"
	"gorm.io/gorm"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) category.RepositoryAPI {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) GetAll(ctx context.Context) ([]*category.Category, error) {
	var models []*categoryDatamodel.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	categories := make([]*category.Category, len(models))
	for i, m := range models {
		categories[i] = category.FromDataModel(m)
	}
	return categories, nil
}

func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*category.Category, error) {
	var model categoryDatamodel.Category
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return category.FromDataModel(&model), nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*category.Category, error) {
	var model categoryDatamodel.Category
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrCategoryNotFound
		}
		return nil, err
	}
	return category.FromDataModel(&model), nil
}

func (r *CategoryRepository) Create(ctx context.Context, c *category.Category) error {
	model := category.ToDataModel(c)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	c.ID = model.ID
	c.CreatedAt = model.CreatedAt
	c.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *CategoryRepository) Update(ctx context.Context, c *category.Category) error {
	model := category.ToDataModel(c)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return err
	}
	c.UpdatedAt = model.UpdatedAt
	return nil
}

// Delete is a soft delete.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&categoryDatamodel.Category{}).Where("id = ?", id).Update("is_active", false).Error
}
