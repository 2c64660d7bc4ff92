package user

import (
	"strings"

	errors "github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/core/common/validation"
	"github.com/frahmantamala/budget-ledger/internal/core/user"
)

var roles = []string{string(user.RoleUser), string(user.RoleManager), string(user.RoleAdmin)}

type CreateUserDTO struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

func (d CreateUserDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("email", d.normalizedEmail()).Required().Email()
	v.Field("name", d.Name).Required().MaxLength(100)
	v.Field("password", d.Password).Required().MinLength(8).MaxLength(72)
	v.Field("role", d.Role).OneOf(roles...)
	v.Field("department", d.Department).MaxLength(100)
	return v.Validate()
}

func (d CreateUserDTO) normalizedEmail() string {
	return strings.ToLower(strings.TrimSpace(d.Email))
}

// UpdateUserDTO only touches the fields that are set.
type UpdateUserDTO struct {
	Name       *string `json:"name,omitempty"`
	Role       *string `json:"role,omitempty"`
	Department *string `json:"department,omitempty"`
	IsActive   *bool   `json:"is_active,omitempty"`
}

func (d UpdateUserDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	if d.Name != nil {
		v.Field("name", *d.Name).Required().MaxLength(100)
	}
	if d.Role != nil {
		v.Field("role", *d.Role).Required().OneOf(roles...)
	}
	if d.Department != nil {
		v.Field("department", *d.Department).MaxLength(100)
	}
	return v.Validate()
}

func (d UpdateUserDTO) applyTo(u *user.User) {
	if d.Name != nil {
		u.Name = strings.TrimSpace(*d.Name)
	}
	if d.Role != nil {
		u.Role = user.Role(*d.Role)
	}
	if d.Department != nil {
		u.Department = *d.Department
	}
	if d.IsActive != nil {
		u.IsActive = *d.IsActive
	}
}

type UsersResponse struct {
	Users  []*Profile `json:"users"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}
