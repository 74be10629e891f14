package attendance

import (
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
)

// Slot identifies one of the three daily check-ins.
type Slot string

const (
	SlotCheck1 Slot = "check1"
	SlotCheck2 Slot = "check2"
	SlotCheck3 Slot = "check3"
)

// Slots lists the slots in resolution order.
func Slots() []Slot {
	return []Slot{SlotCheck1, SlotCheck2, SlotCheck3}
}

type SlotStatus string

const (
	SlotStatusUnset      SlotStatus = ""
	SlotStatusOnTime     SlotStatus = "on_time"
	SlotStatusLate       SlotStatus = "late"
	SlotStatusEarlyLeave SlotStatus = "early_leave"
	SlotStatusMissed     SlotStatus = "missed"
)

func (s SlotStatus) IsSet() bool {
	return s != SlotStatusUnset
}

// IsCompleted is true for any recorded check-in, regardless of punctuality.
func (s SlotStatus) IsCompleted() bool {
	return s.IsSet() && s != SlotStatusMissed
}

type DailyStatus string

const (
	StatusPresent       DailyStatus = "present"
	StatusHalfDayAbsent DailyStatus = "half_day_absent"
	StatusInProgress    DailyStatus = "in_progress"
	StatusAbsent        DailyStatus = "absent"
	StatusOnLeave       DailyStatus = "on_leave"
)

type SlotRecord struct {
	Status    SlotStatus
	Timestamp *time.Time
	Location  *utils.Coordinate
}

// Attendance is one user's record for one local calendar day.
type Attendance struct {
	ID     string
	UserID string
	// DateKey is the local calendar day in the company timezone, "YYYY-MM-DD".
	DateKey string
	// AttendanceDate is midnight UTC of DateKey.
	AttendanceDate time.Time
	Check1         SlotRecord
	Check2         SlotRecord
	Check3         SlotRecord
	Status         DailyStatus
	IsManualEntry  bool
	ManualReason   *string
	Notes          *string
	LeaveRequestID *string
	LeaveBackfill  bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RecordID builds the deterministic record key.
func RecordID(userID, dateKey string) string {
	return userID + "_" + dateKey
}

// New returns an empty record for userID on the day identified by dateKey.
func New(userID, dateKey string, attendanceDate time.Time) Attendance {
	return Attendance{
		ID:             RecordID(userID, dateKey),
		UserID:         userID,
		DateKey:        dateKey,
		AttendanceDate: attendanceDate,
		Status:         StatusAbsent,
	}
}

// SlotRecord returns a pointer to the named slot so callers can update it in place.
func (a *Attendance) SlotRecord(slot Slot) *SlotRecord {
	switch slot {
	case SlotCheck1:
		return &a.Check1
	case SlotCheck2:
		return &a.Check2
	case SlotCheck3:
		return &a.Check3
	}
	return nil
}

// IsOverridden reports whether the daily status is owned by a manual entry or a leave backfill.
func (a *Attendance) IsOverridden() bool {
	return a.IsManualEntry || a.LeaveBackfill || a.Status == StatusOnLeave
}

// IsClosed reports whether the record's status is final: every slot is
// resolved, or the status is owned by an override.
func (a *Attendance) IsClosed() bool {
	if a.IsOverridden() {
		return true
	}
	return a.Check1.Status.IsSet() && a.Check2.Status.IsSet() && a.Check3.Status.IsSet()
}
