package memory

import (
	"context"
	"sort"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
)

type userRepository struct {
	s *Store
}

func (r userRepository) GetByID(ctx context.Context, id string) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	return u, nil
}

// GetByIDForUpdate relies on the store transactor for serialization.
func (r userRepository) GetByIDForUpdate(ctx context.Context, id string) (user.User, error) {
	return r.GetByID(ctx, id)
}

func (r userRepository) ListActiveEmployees(ctx context.Context) ([]user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var users []user.User
	for _, u := range r.s.users {
		if u.TracksAttendance() {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r userRepository) UpdateLeaveBalances(ctx context.Context, u user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.users[u.ID]
	if !ok {
		return user.ErrUserNotFound
	}
	stored.FullLeaveBalance = u.FullLeaveBalance
	stored.MedicalLeaveBalance = u.MedicalLeaveBalance
	stored.MaternityLeaveBalance = u.MaternityLeaveBalance
	stored.UpdatedAt = r.s.now()
	r.s.track(ctx, restoreEntry(r.s.users, u.ID))
	r.s.users[u.ID] = stored
	return nil
}
