package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/leave"
)

type leaveRequestRepository struct {
	s *Store
}

func (r leaveRequestRepository) Create(ctx context.Context, req leave.LeaveRequest) (leave.LeaveRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	req.CreatedAt, req.UpdatedAt = now, now
	r.s.track(ctx, restoreEntry(r.s.leaves, req.ID))
	r.s.leaves[req.ID] = req
	return req, nil
}

func (r leaveRequestRepository) GetByID(ctx context.Context, id string) (leave.LeaveRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.leaves[id]
	if !ok {
		return leave.LeaveRequest{}, leave.ErrLeaveRequestNotFound
	}
	return req, nil
}

func (r leaveRequestRepository) GetByIDForUpdate(ctx context.Context, id string) (leave.LeaveRequest, error) {
	return r.GetByID(ctx, id)
}

func (r leaveRequestRepository) Update(ctx context.Context, req leave.LeaveRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.leaves[req.ID]
	if !ok {
		return leave.ErrLeaveRequestNotFound
	}
	stored.Status = req.Status
	stored.ReviewedBy = req.ReviewedBy
	stored.ReviewedAt = req.ReviewedAt
	stored.ReviewerNotes = req.ReviewerNotes
	stored.CancelledAt = req.CancelledAt
	stored.DebitedDays = req.DebitedDays
	stored.UpdatedAt = r.s.now()
	r.s.track(ctx, restoreEntry(r.s.leaves, req.ID))
	r.s.leaves[req.ID] = stored
	return nil
}

func (r leaveRequestRepository) HasOverlap(ctx context.Context, userID string, start, end time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, req := range r.s.leaves {
		if req.UserID != userID {
			continue
		}
		if req.Status != leave.LeaveRequestStatusPending && req.Status != leave.LeaveRequestStatusApproved {
			continue
		}
		if !req.StartDate.After(end) && !req.EndDate.Before(start) {
			return true, nil
		}
	}
	return false, nil
}

func (r leaveRequestRepository) SumApprovedDays(ctx context.Context, userID string, year int) (map[leave.LeaveType]float64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	taken := make(map[leave.LeaveType]float64)
	for _, req := range r.s.leaves {
		if req.UserID == userID && req.Status == leave.LeaveRequestStatusApproved && req.StartDate.Year() == year {
			taken[req.LeaveType] += req.TotalDays
		}
	}
	return taken, nil
}

func (r leaveRequestRepository) ListByUser(ctx context.Context, userID string) ([]leave.LeaveRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var requests []leave.LeaveRequest
	for _, req := range r.s.leaves {
		if req.UserID == userID {
			requests = append(requests, req)
		}
	}
	sort.Slice(requests, func(i, j int) bool {
		if !requests[i].StartDate.Equal(requests[j].StartDate) {
			return requests[i].StartDate.After(requests[j].StartDate)
		}
		return requests[i].ID > requests[j].ID
	})
	return requests, nil
}
