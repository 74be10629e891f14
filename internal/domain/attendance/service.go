package attendance

import (
	"context"
)

// AttendanceService defines business logic for attendance operations
type AttendanceService interface {
	// ClockIn records one slot for the user on the local day of the timestamp
	ClockIn(ctx context.Context, req ClockInRequest) (ClockInResponse, error)

	// FinalizeAttendance closes a day: unset slots become missed and absent users get a record
	FinalizeAttendance(ctx context.Context, dateKey string) (FinalizeResult, error)

	// GetMyAttendance returns the caller's record for a date
	GetMyAttendance(ctx context.Context, userID, dateKey string) (AttendanceResponse, error)
}
