package leave

import (
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
)

type LeaveType string

const (
	LeaveTypeFull      LeaveType = "full"
	LeaveTypeMedical   LeaveType = "medical"
	LeaveTypeMaternity LeaveType = "maternity"
	// LeaveTypeHalf is a legacy half day drawn from the full leave balance.
	LeaveTypeHalf LeaveType = "half"
)

func (t LeaveType) IsValid() bool {
	switch t {
	case LeaveTypeFull, LeaveTypeMedical, LeaveTypeMaternity, LeaveTypeHalf:
		return true
	}
	return false
}

// RequiresAttachment is true for leave types that need supporting documents.
func (t LeaveType) RequiresAttachment() bool {
	return t == LeaveTypeMedical || t == LeaveTypeMaternity
}

// BalanceType is the leave type whose balance t draws from.
func (t LeaveType) BalanceType() LeaveType {
	if t == LeaveTypeHalf {
		return LeaveTypeFull
	}
	return t
}

// BalanceTypes are the leave types that own a balance field.
func BalanceTypes() []LeaveType {
	return []LeaveType{LeaveTypeFull, LeaveTypeMedical, LeaveTypeMaternity}
}

type LeaveRequestStatus string

const (
	LeaveRequestStatusPending   LeaveRequestStatus = "pending"
	LeaveRequestStatusApproved  LeaveRequestStatus = "approved"
	LeaveRequestStatusRejected  LeaveRequestStatus = "rejected"
	LeaveRequestStatusCancelled LeaveRequestStatus = "cancelled"
)

// LeaveRequest is one submitted leave. DebitedDays is what approval took from
// the balance; it is below TotalDays when the balance ran out before approval.
type LeaveRequest struct {
	ID            string
	UserID        string
	LeaveType     LeaveType
	StartDate     time.Time
	EndDate       time.Time
	TotalDays     float64
	DebitedDays   float64
	Reason        string
	Status        LeaveRequestStatus
	AttachmentID  *string
	ReviewedBy    *string
	ReviewedAt    *time.Time
	ReviewerNotes *string
	CancelledAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DateKeys lists every calendar day in [StartDate, EndDate].
func (r LeaveRequest) DateKeys() []string {
	var keys []string
	for d := r.StartDate; !d.After(r.EndDate); d = d.AddDate(0, 0, 1) {
		keys = append(keys, d.Format(validator.DateLayout))
	}
	return keys
}

// TotalDaysFor counts inclusive calendar days; a half day is 0.5.
func TotalDaysFor(leaveType LeaveType, start, end time.Time) float64 {
	if leaveType == LeaveTypeHalf {
		return 0.5
	}
	return float64(int(end.Sub(start).Hours()/24) + 1)
}

// Balance reads the balance field that leaveType draws from.
func Balance(u user.User, leaveType LeaveType) float64 {
	switch leaveType.BalanceType() {
	case LeaveTypeMedical:
		return u.MedicalLeaveBalance
	case LeaveTypeMaternity:
		return u.MaternityLeaveBalance
	default:
		return u.FullLeaveBalance
	}
}

// WithBalance returns u with the balance for leaveType set to value.
func WithBalance(u user.User, leaveType LeaveType, value float64) user.User {
	switch leaveType.BalanceType() {
	case LeaveTypeMedical:
		u.MedicalLeaveBalance = value
	case LeaveTypeMaternity:
		u.MaternityLeaveBalance = value
	default:
		u.FullLeaveBalance = value
	}
	return u
}
