package user

import (
	"context"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (User, error)
	// GetByIDForUpdate locks the user row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (User, error)
	ListActiveEmployees(ctx context.Context) ([]User, error)
	UpdateLeaveBalances(ctx context.Context, u User) error
}
