package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/penalty"
)

type penaltyRepository struct {
	s *Store
}

func (r penaltyRepository) CreateIfAbsent(ctx context.Context, p penalty.Penalty) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.penalties[p.ID]; exists {
		return false, nil
	}
	now := r.s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.track(ctx, restoreEntry(r.s.penalties, p.ID))
	r.s.penalties[p.ID] = p
	return true, nil
}

func (r penaltyRepository) Exists(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, exists := r.s.penalties[id]
	return exists, nil
}

func (r penaltyRepository) GetByID(ctx context.Context, id string) (penalty.Penalty, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.penalties[id]
	if !ok {
		return penalty.Penalty{}, penalty.ErrPenaltyNotFound
	}
	return p, nil
}

func (r penaltyRepository) CountByUserTypeBetween(ctx context.Context, userID string, violationType penalty.ViolationType, from, to time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, p := range r.s.penalties {
		if p.UserID == userID && p.ViolationType == violationType && within(p.DateIncurred, from, to) {
			count++
		}
	}
	return count, nil
}

func (r penaltyRepository) ListBetween(ctx context.Context, from, to time.Time, userID *string) ([]penalty.Penalty, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var penalties []penalty.Penalty
	for _, p := range r.s.penalties {
		if within(p.DateIncurred, from, to) && (userID == nil || p.UserID == *userID) {
			penalties = append(penalties, p)
		}
	}
	sort.Slice(penalties, func(i, j int) bool {
		a, b := penalties[i], penalties[j]
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		if !a.DateIncurred.Equal(b.DateIncurred) {
			return a.DateIncurred.Before(b.DateIncurred)
		}
		return a.ID < b.ID
	})
	return penalties, nil
}

func (r penaltyRepository) Update(ctx context.Context, p penalty.Penalty) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.penalties[p.ID]
	if !ok {
		return penalty.ErrPenaltyNotFound
	}
	stored.Status = p.Status
	stored.WaivedReason = p.WaivedReason
	stored.WaivedBy = p.WaivedBy
	stored.WaivedAt = p.WaivedAt
	stored.UpdatedAt = r.s.now()
	r.s.track(ctx, restoreEntry(r.s.penalties, p.ID))
	r.s.penalties[p.ID] = stored
	return nil
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
