package attendance

import (
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
)

// ========================================
// CLOCK-IN DTOs
// ========================================

type ClockInRequest struct {
	UserID    string           `json:"-"`
	Timestamp string           `json:"timestamp"`
	Location  utils.Coordinate `json:"location"`
	IsMocked  bool             `json:"is_mocked"`
}

func (r *ClockInRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.UserID) {
		errs = append(errs, validator.ValidationError{
			Field:   "user_id",
			Message: "user_id is required",
		})
	}

	if validator.IsEmpty(r.Timestamp) {
		errs = append(errs, validator.ValidationError{
			Field:   "timestamp",
			Message: "timestamp is required",
		})
	} else if _, ok := validator.IsValidDateTime(r.Timestamp); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "timestamp",
			Message: "timestamp must be an RFC3339 date-time",
		})
	}

	if !validator.IsValidLatitude(r.Location.Latitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "location.lat",
			Message: "latitude must be between -90 and 90",
		})
	}

	if !validator.IsValidLongitude(r.Location.Longitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "location.lng",
			Message: "longitude must be between -180 and 180",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ClockInResponse struct {
	RecordID       string      `json:"record_id"`
	DateKey        string      `json:"date_key"`
	Slot           Slot        `json:"slot"`
	SlotLabel      string      `json:"slot_label,omitempty"`
	SlotStatus     SlotStatus  `json:"slot_status"`
	LateByMinutes  int         `json:"late_by_minutes"`
	EarlyByMinutes int         `json:"early_by_minutes"`
	DailyStatus    DailyStatus `json:"daily_status"`
	Timestamp      time.Time   `json:"timestamp"`
}

// ========================================
// FINALIZATION DTOs
// ========================================

type FinalizeRequest struct {
	Date string `json:"date"`
}

func (r *FinalizeRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Date) {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date is required",
		})
	} else if _, ok := validator.IsValidDate(r.Date); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type FinalizeResult struct {
	Date                 string `json:"date"`
	Processed            int    `json:"processed"`
	AbsentRecordsCreated int    `json:"absent_records_created"`
	RecordsUpdated       int    `json:"records_updated"`
	Skipped              int    `json:"skipped"`
}

// ========================================
// READ DTOs
// ========================================

type SlotResponse struct {
	Status    SlotStatus        `json:"status,omitempty"`
	Timestamp *time.Time        `json:"timestamp,omitempty"`
	Location  *utils.Coordinate `json:"location,omitempty"`
}

type AttendanceResponse struct {
	ID             string       `json:"id"`
	UserID         string       `json:"user_id"`
	DateKey        string       `json:"date_key"`
	AttendanceDate time.Time    `json:"attendance_date"`
	Check1         SlotResponse `json:"check1"`
	Check2         SlotResponse `json:"check2"`
	Check3         SlotResponse `json:"check3"`
	Status         DailyStatus  `json:"status"`
	IsManualEntry  bool         `json:"is_manual_entry"`
	ManualReason   *string      `json:"manual_reason,omitempty"`
	Notes          *string      `json:"notes,omitempty"`
	LeaveRequestID *string      `json:"leave_request_id,omitempty"`
	LeaveBackfill  bool         `json:"leave_backfill"`
	Version        int64        `json:"version"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func slotResponse(s SlotRecord) SlotResponse {
	return SlotResponse{Status: s.Status, Timestamp: s.Timestamp, Location: s.Location}
}

// NewAttendanceResponse maps a stored record and its version to the API shape.
func NewAttendanceResponse(a Attendance, version int64) AttendanceResponse {
	return AttendanceResponse{
		ID:             a.ID,
		UserID:         a.UserID,
		DateKey:        a.DateKey,
		AttendanceDate: a.AttendanceDate,
		Check1:         slotResponse(a.Check1),
		Check2:         slotResponse(a.Check2),
		Check3:         slotResponse(a.Check3),
		Status:         a.Status,
		IsManualEntry:  a.IsManualEntry,
		ManualReason:   a.ManualReason,
		Notes:          a.Notes,
		LeaveRequestID: a.LeaveRequestID,
		LeaveBackfill:  a.LeaveBackfill,
		Version:        version,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}
