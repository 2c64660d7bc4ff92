package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	appErrors "github.com/frahmantamala/budget-ledger/internal"
	userDatamodel "github.com/frahmantamala/budget-ledger/internal/core/datamodel/user"
	coreuser "github.com/frahmantamala/budget-ledger/internal/core/user"
	"github.com/frahmantamala/budget-ledger/internal/user"
	"gorm.io/gorm"
)

// UserRepository backs the user service, the auth service and every component that resolves users by id.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *coreuser.User) error {
	model := user.ToDataModel(u)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = model.ID
	u.CreatedAt = model.CreatedAt
	u.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*coreuser.User, error) {
	var model userDatamodel.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return user.FromDataModel(&model), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*coreuser.User, error) {
	var model userDatamodel.User
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user.FromDataModel(&model), nil
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*coreuser.User, error) {
	var models []*userDatamodel.User
	query := r.db.WithContext(ctx).Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return user.FromDataModelSlice(models), nil
}

func (r *UserRepository) Update(ctx context.Context, u *coreuser.User) error {
	model := user.ToDataModel(u)
	result := r.db.WithContext(ctx).Model(model).Select("name", "role", "department", "is_active", "updated_at").Updates(model)
	if result.Error != nil {
		return fmt.Errorf("update user %d: %w", u.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return appErrors.ErrUserNotFound
	}
	u.UpdatedAt = model.UpdatedAt
	return nil
}
