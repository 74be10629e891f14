package memory

import (
	"context"
	"sort"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
)

type notificationRepository struct {
	s *Store
}

func (r notificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	return r.CreateBatch(ctx, []*notification.Notification{n})
}

func (r notificationRepository) CreateBatch(ctx context.Context, notifications []*notification.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range notifications {
		if n.ID == "" {
			n.ID = utils.NewID()
		}
		stored := &notification.Notification{}
		*stored = *n
		r.s.notifications = append(r.s.notifications, stored)
		r.s.track(ctx, func() {
			for i, existing := range r.s.notifications {
				if existing == stored {
					r.s.notifications = append(r.s.notifications[:i], r.s.notifications[i+1:]...)
					return
				}
			}
		})
	}
	return nil
}

func (r notificationRepository) GetByUserID(ctx context.Context, userID string, page, pageSize int, unreadOnly bool) ([]*notification.Notification, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var matched []*notification.Notification
	for _, n := range r.s.notifications {
		if n.RecipientID == userID && (!unreadOnly || !n.IsRead) {
			copied := *n
			matched = append(matched, &copied)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}
