package category

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	appErrors "github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/core/user"
)

type RepositoryAPI interface {
	GetAll(ctx context.Context) ([]*Category, error)
	GetByID(ctx context.Context, id int64) (*Category, error)
	// GetByName returns nil, nil when no category carries the name.
	GetByName(ctx context.Context, name string) (*Category, error)
	Create(ctx context.Context, category *Category) error
	Update(ctx context.Context, category *Category) error
	Delete(ctx context.Context, id int64) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// ListCategories returns active categories, or every category when includeInactive is set.
func (s *Service) ListCategories(ctx context.Context, includeInactive bool) ([]*Category, error) {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Error("failed to get categories from repository", "error", err)
		return nil, appErrors.StoreError("list categories", err)
	}

	categories := make([]*Category, 0, len(all))
	for _, c := range all {
		if includeInactive || c.IsActiveCategory() {
			categories = append(categories, c)
		}
	}

	s.logger.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

func (s *Service) GetCategory(ctx context.Context, id int64) (*Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.StoreError("get category", err)
	}
	return c, nil
}

// IsActiveCategory reports whether id names an active category. Unknown ids are not an error.
func (s *Service) IsActiveCategory(ctx context.Context, id int64) (bool, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, appErrors.ErrCategoryNotFound) {
			return false, nil
		}
		s.logger.Warn("error checking category validity", "category_id", id, "error", err)
		return false, appErrors.StoreError("get category", err)
	}
	return c.IsActiveCategory(), nil
}

func (s *Service) CreateCategory(ctx context.Context, actor *user.User, dto CreateCategoryDTO) (*Category, error) {
	if !actor.IsManager() {
		return nil, appErrors.ErrNotPermitted
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, dto.trimmedName(), 0); err != nil {
		return nil, err
	}

	c := NewCategory(dto, actor.ID)
	if err := s.repo.Create(ctx, c); err != nil {
		s.logger.Error("failed to create category", "name", c.Name, "error", err)
		return nil, appErrors.StoreError("create category", err)
	}

	s.logger.Info("category created", "category_id", c.ID, "name", c.Name, "created_by", actor.ID)
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, actor *user.User, id int64, dto UpdateCategoryDTO) (*Category, error) {
	if !actor.IsManager() {
		return nil, appErrors.ErrNotPermitted
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.StoreError("get category", err)
	}
	if dto.Name != nil {
		if err := s.ensureNameFree(ctx, strings.TrimSpace(*dto.Name), id); err != nil {
			return nil, err
		}
	}
	dto.applyTo(c)

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, appErrors.StoreError("update category", err)
	}
	s.logger.Info("category updated", "category_id", c.ID, "updated_by", actor.ID)
	return c, nil
}

// DeactivateCategory hides the category from new expenses. Existing expenses keep their reference.
func (s *Service) DeactivateCategory(ctx context.Context, actor *user.User, id int64) (*Category, error) {
	return s.setActive(ctx, actor, id, false)
}

func (s *Service) ActivateCategory(ctx context.Context, actor *user.User, id int64) (*Category, error) {
	return s.setActive(ctx, actor, id, true)
}

func (s *Service) setActive(ctx context.Context, actor *user.User, id int64, active bool) (*Category, error) {
	if !actor.IsManager() {
		return nil, appErrors.ErrNotPermitted
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.StoreError("get category", err)
	}
	if active {
		c.Activate()
	} else {
		c.Deactivate()
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, appErrors.StoreError("update category", err)
	}
	s.logger.Info("category activation changed", "category_id", id, "is_active", active, "actor_id", actor.ID)
	return c, nil
}

func (s *Service) ensureNameFree(ctx context.Context, name string, selfID int64) error {
	existing, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return appErrors.StoreError("lookup category", err)
	}
	if existing != nil && existing.ID != selfID {
		return appErrors.ErrCategoryExists
	}
	return nil
}
