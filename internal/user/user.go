package user

import (
	"time"

	"github.com/frahmantamala/budget-ledger/internal/core/user"
	userDatamodel "github.com/frahmantamala/budget-ledger/internal/core/datamodel/user"
)

// Profile is the public view of a user. The password hash never leaves the service.
type Profile struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       user.Role `json:"role"`
	Department string    `json:"department"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func ToProfile(u *user.User) *Profile {
	return &Profile{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       u.Role,
		Department: u.Department,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func ToProfiles(users []*user.User) []*Profile {
	profiles := make([]*Profile, len(users))
	for i, u := range users {
		profiles[i] = ToProfile(u)
	}
	return profiles
}

func ToDataModel(u *user.User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Department:   u.Department,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *user.User {
	return &user.User{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         user.Role(u.Role),
		Department:   u.Department,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModelSlice(users []*userDatamodel.User) []*user.User {
	out := make([]*user.User, len(users))
	for i, u := range users {
		out[i] = FromDataModel(u)
	}
	return out
}
