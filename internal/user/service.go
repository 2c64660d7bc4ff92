package user

import (
	"context"
	"errors"
	"log/slog"

	appErrors "github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/core/user"
)

type Repository interface {
	Create(ctx context.Context, u *user.User) error
	FindByID(ctx context.Context, id int64) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	List(ctx context.Context, limit, offset int) ([]*user.User, error)
	Update(ctx context.Context, u *user.User) error
}

type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

type Service struct {
	repo   Repository
	hasher PasswordHasher
	logger *slog.Logger
}

func NewService(repo Repository, hasher PasswordHasher, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		logger: logger,
	}
}

// Me re-reads the actor so the profile reflects the stored record, not the token.
func (s *Service) Me(ctx context.Context, actor *user.User) (*Profile, error) {
	u, err := s.repo.FindByID(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.StoreError("get user", err)
	}
	return ToProfile(u), nil
}

func (s *Service) ListUsers(ctx context.Context, actor *user.User, limit, offset int) ([]*Profile, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.ErrNotPermitted
	}
	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, appErrors.StoreError("list users", err)
	}
	return ToProfiles(users), nil
}

func (s *Service) CreateUser(ctx context.Context, actor *user.User, dto CreateUserDTO) (*Profile, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.ErrNotPermitted
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	email := dto.normalizedEmail()
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, appErrors.ErrEmailTaken
	} else if !errors.Is(err, appErrors.ErrUserNotFound) {
		return nil, appErrors.StoreError("lookup user", err)
	}

	hash, err := s.hasher.HashPassword(dto.Password)
	if err != nil {
		return nil, appErrors.NewInternalError("failed to hash password", err)
	}

	role := user.Role(dto.Role)
	if role == "" {
		role = user.RoleUser
	}
	u := &user.User{
		Email:        email,
		Name:         dto.Name,
		PasswordHash: hash,
		Role:         role,
		Department:   dto.Department,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		s.logger.Error("failed to create user", "email", email, "error", err)
		return nil, appErrors.StoreError("create user", err)
	}

	s.logger.Info("user created", "user_id", u.ID, "role", u.Role, "created_by", actor.ID)
	return ToProfile(u), nil
}

// UpdateUser lets admins change role, department and activation. Admins cannot deactivate or demote themselves.
func (s *Service) UpdateUser(ctx context.Context, actor *user.User, id int64, dto UpdateUserDTO) (*Profile, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.ErrNotPermitted
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if actor.ID == id {
		if (dto.IsActive != nil && !*dto.IsActive) || (dto.Role != nil && user.Role(*dto.Role) != user.RoleAdmin) {
			return nil, appErrors.NewStateError("admins cannot deactivate or demote themselves", appErrors.ErrCodeInvalidTransition)
		}
	}

	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.StoreError("get user", err)
	}
	dto.applyTo(u)

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, appErrors.StoreError("update user", err)
	}

	s.logger.Info("user updated", "user_id", u.ID, "role", u.Role, "is_active", u.IsActive, "updated_by", actor.ID)
	return ToProfile(u), nil
}
