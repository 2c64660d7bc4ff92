package auth

import (
	errors "github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/core/user"
)

// ABACPolicy decides access from the actor's attributes and the resource owner.
type ABACPolicy struct{}

// Allow grants managers and admins everything, and owners read/write on their own resources.
func (p ABACPolicy) Allow(u *user.User, resourceOwnerID int64, action string) bool {
	if u == nil || !u.IsActive {
		return false
	}
	if u.IsManager() {
		return true
	}
	if u.ID == resourceOwnerID {
		return action == "read" || action == "update" || action == "delete"
	}
	return false
}

func (p ABACPolicy) CanViewExpense(u *user.User, submittedBy int64) error {
	if p.Allow(u, submittedBy, "read") {
		return nil
	}
	return errors.ErrNotPermitted
}

func (p ABACPolicy) CanModifyExpense(u *user.User, submittedBy int64) error {
	if p.Allow(u, submittedBy, "update") {
		return nil
	}
	return errors.ErrNotPermitted
}
