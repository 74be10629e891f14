package audit

import (
	"context"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
)

type AuditServiceImpl struct {
	audit.Repository
	now func() time.Time
}

// NewAuditService returns the audit sink. now may be nil.
func NewAuditService(repo audit.Repository, now func() time.Time) audit.Service {
	if now == nil {
		now = time.Now
	}
	return &AuditServiceImpl{Repository: repo, now: now}
}

// Record implements audit.Service.
func (s *AuditServiceImpl) Record(ctx context.Context, entry audit.Entry) error {
	if entry.Action == "" || entry.Resource == "" {
		return audit.ErrActionRequired
	}
	if entry.ID == "" {
		entry.ID = utils.NewID()
	}
	if entry.Status == "" {
		entry.Status = audit.StatusSuccess
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	return s.Repository.Create(ctx, entry)
}
