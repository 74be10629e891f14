package penalty

import (
	"time"

	"github.com/shopspring/decimal"
)

type ViolationType string

const (
	ViolationLate          ViolationType = "late"
	ViolationEarlyLeave    ViolationType = "early_leave"
	ViolationAbsent        ViolationType = "absent"
	ViolationHalfDayAbsent ViolationType = "half_day_absent"
)

// FieldStatus marks violations derived from the daily status instead of a slot.
const FieldStatus = "status"

type Status string

const (
	StatusActive Status = "active"
	StatusWaived Status = "waived"
	StatusPaid   Status = "paid"
)

type Penalty struct {
	ID             string
	UserID         string
	ViolationType  ViolationType
	ViolationField string
	DateKey        string
	DateIncurred   time.Time
	Amount         decimal.Decimal
	IsWarning      bool
	ViolationCount int
	Threshold      int
	Status         Status
	WaivedReason   *string
	WaivedBy       *string
	WaivedAt       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PenaltyID is unique per user, day, violation type and field.
func PenaltyID(userID, dateKey string, violationType ViolationType, field string) string {
	return userID + "_" + dateKey + "_" + string(violationType) + "_" + field
}

// Violation is one detected infraction before thresholds are applied.
type Violation struct {
	UserID   string
	DateKey  string
	Type     ViolationType
	Field    string
	RecordID string
}

func (v Violation) PenaltyID() string {
	return PenaltyID(v.UserID, v.DateKey, v.Type, v.Field)
}
