package attendance

import "context"

// AttendanceRepository is a versioned store. Save succeeds only when the
// stored version equals expectedVersion; expectedVersion 0 means the record
// must not exist yet. A failed condition yields ErrVersionConflict.
type AttendanceRepository interface {
	Get(ctx context.Context, id string) (Attendance, int64, error)
	Save(ctx context.Context, record Attendance, expectedVersion int64) (int64, error)
	Delete(ctx context.Context, id string) error
	ListByDate(ctx context.Context, dateKey string, userID *string) ([]Attendance, error)
	ListByUserRange(ctx context.Context, userID, fromDateKey, toDateKey string) ([]Attendance, error)
}
