package leave

import "errors"

var (
	ErrLeaveRequestNotFound         = errors.New("leave request not found")
	ErrInsufficientLeaveBalance     = errors.New("insufficient leave balance")
	ErrLeaveRequestAlreadyProcessed = errors.New("leave request already processed")
	ErrOverlappingLeaveRequest      = errors.New("leave request overlaps an existing request")
	ErrAttachmentRequired           = errors.New("an attachment is required for this leave type")
	ErrInvalidDateRange             = errors.New("start date must not be after end date")
	ErrStartDateInPast              = errors.New("start date must not be in the past")
	ErrHalfDayMultipleDays          = errors.New("half day leave must start and end on the same day")
	ErrLeaveRequestNotCancellable   = errors.New("only pending or approved leave requests can be cancelled")
	ErrNotLeaveRequestOwner         = errors.New("leave request belongs to another user")
)
