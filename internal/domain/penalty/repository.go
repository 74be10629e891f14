package penalty

import (
	"context"
	"time"
)

type PenaltyRepository interface {
	// CreateIfAbsent inserts p unless a penalty with the same ID exists and reports whether it inserted.
	CreateIfAbsent(ctx context.Context, p Penalty) (bool, error)
	Exists(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (Penalty, error)
	// CountByUserTypeBetween counts penalties with DateIncurred in [from, to].
	CountByUserTypeBetween(ctx context.Context, userID string, violationType ViolationType, from, to time.Time) (int, error)
	// ListBetween returns penalties with DateIncurred in [from, to], optionally for one user.
	ListBetween(ctx context.Context, from, to time.Time, userID *string) ([]Penalty, error)
	Update(ctx context.Context, p Penalty) error
}
