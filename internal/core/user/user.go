package user

import (
	"context"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// User is the authenticated principal shared across feature packages.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	Department   string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsManager is true for managers and admins.
func (u *User) IsManager() bool {
	return u != nil && (u.Role == RoleManager || u.Role == RoleAdmin)
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Lookup resolves users by id for components that only need read access.
type Lookup interface {
	FindByID(ctx context.Context, id int64) (*User, error)
}
