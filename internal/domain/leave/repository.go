package leave

import (
	"context"
	"time"
)

type LeaveRequestRepository interface {
	Create(ctx context.Context, req LeaveRequest) (LeaveRequest, error)
	GetByID(ctx context.Context, id string) (LeaveRequest, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (LeaveRequest, error)
	Update(ctx context.Context, req LeaveRequest) error
	// HasOverlap reports a pending or approved request of userID intersecting [start, end].
	HasOverlap(ctx context.Context, userID string, start, end time.Time) (bool, error)
	// SumApprovedDays totals approved days per leave type for requests starting in year.
	SumApprovedDays(ctx context.Context, userID string, year int) (map[LeaveType]float64, error)
	ListByUser(ctx context.Context, userID string) ([]LeaveRequest, error)
}
