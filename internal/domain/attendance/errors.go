package attendance

import (
	"errors"

	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
)

// Attendance domain errors
var (
	// Clock-in errors
	ErrMockLocationRejected   = errors.New("mock location detected, clock-in rejected")
	ErrStaleOrFutureTimestamp = errors.New("clock-in timestamp is too far from the current time")
	ErrNonWorkingDay          = errors.New("today is not a working day")
	ErrGeofenceNotConfigured  = errors.New("workplace location is not configured")
	ErrOutsideGeofence        = utils.ErrOutsideGeofence
	ErrNoActiveWindow         = errors.New("no check-in window is open at this time")
	ErrDuplicateClockIn       = errors.New("this check-in has already been recorded")

	// General errors
	ErrAttendanceNotFound = errors.New("attendance record not found")
	ErrVersionConflict    = errors.New("attendance record was modified concurrently")
)
