package audit

import "time"

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

const (
	ActionClockIn          = "attendance.clock_in"
	ActionLeaveBackfill    = "attendance.leave_backfill"
	ActionLeaveBackfillDel = "attendance.leave_backfill_removed"
	ActionLeaveApproved    = "leave.approved"
	ActionLeaveRejected    = "leave.rejected"
	ActionLeaveCancelled   = "leave.cancelled"
	ActionPenaltyWaived    = "penalty.waived"
)

const (
	ResourceAttendance   = "attendance_record"
	ResourceLeaveRequest = "leave_request"
	ResourcePenalty      = "penalty"
)

type Entry struct {
	ID          string
	Action      string
	Resource    string
	ResourceID  string
	Status      Status
	PerformedBy string
	OldValues   map[string]interface{}
	NewValues   map[string]interface{}
	Metadata    map[string]interface{}
	CreatedAt   time.Time
}
