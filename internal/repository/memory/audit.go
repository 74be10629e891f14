package memory

import (
	"context"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/audit"
)

type auditRepository struct {
	s *Store
}

func (r auditRepository) Create(ctx context.Context, entry audit.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.auditLogs = append(r.s.auditLogs, entry)
	r.s.track(ctx, func() {
		for i := len(r.s.auditLogs) - 1; i >= 0; i-- {
			if r.s.auditLogs[i].ID == entry.ID {
				r.s.auditLogs = append(r.s.auditLogs[:i], r.s.auditLogs[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (r auditRepository) ListByResource(ctx context.Context, resource, resourceID string) ([]audit.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var entries []audit.Entry
	for _, e := range r.s.auditLogs {
		if e.Resource == resource && e.ResourceID == resourceID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}
