package leave

import (
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
)

// ============= Request DTOs =============

type CreateLeaveRequestRequest struct {
	UserID       string  `json:"-"`
	LeaveType    string  `json:"leave_type"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	Reason       string  `json:"reason"`
	AttachmentID *string `json:"attachment_id,omitempty"`
}

func (r *CreateLeaveRequestRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.UserID) {
		errs = append(errs, validator.ValidationError{
			Field:   "user_id",
			Message: "user_id is required",
		})
	}

	if !LeaveType(r.LeaveType).IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "leave_type",
			Message: "leave_type must be one of full, medical, maternity, half",
		})
	}

	if _, ok := validator.IsValidDate(r.StartDate); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date must be in YYYY-MM-DD format",
		})
	}

	if _, ok := validator.IsValidDate(r.EndDate); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must be in YYYY-MM-DD format",
		})
	}

	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ReviewAction string

const (
	ReviewActionApprove ReviewAction = "approve"
	ReviewActionReject  ReviewAction = "reject"
)

type ReviewLeaveRequest struct {
	RequestID  string       `json:"-"`
	ReviewerID string       `json:"-"`
	Action     ReviewAction `json:"-"`
	Notes      *string      `json:"notes,omitempty"`
}

func (r *ReviewLeaveRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.RequestID) {
		errs = append(errs, validator.ValidationError{
			Field:   "request_id",
			Message: "request_id is required",
		})
	}

	if validator.IsEmpty(r.ReviewerID) {
		errs = append(errs, validator.ValidationError{
			Field:   "reviewer_id",
			Message: "reviewer_id is required",
		})
	}

	if r.Action != ReviewActionApprove && r.Action != ReviewActionReject {
		errs = append(errs, validator.ValidationError{
			Field:   "action",
			Message: "action must be approve or reject",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ============= Response DTOs =============

type LeaveRequestResponse struct {
	ID            string             `json:"id"`
	UserID        string             `json:"user_id"`
	LeaveType     LeaveType          `json:"leave_type"`
	StartDate     string             `json:"start_date"`
	EndDate       string             `json:"end_date"`
	TotalDays     float64            `json:"total_days"`
	DebitedDays   float64            `json:"debited_days"`
	Reason        string             `json:"reason"`
	Status        LeaveRequestStatus `json:"status"`
	AttachmentID  *string            `json:"attachment_id,omitempty"`
	ReviewedBy    *string            `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time         `json:"reviewed_at,omitempty"`
	ReviewerNotes *string            `json:"reviewer_notes,omitempty"`
	CancelledAt   *time.Time         `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func NewLeaveRequestResponse(r LeaveRequest) LeaveRequestResponse {
	return LeaveRequestResponse{
		ID:            r.ID,
		UserID:        r.UserID,
		LeaveType:     r.LeaveType,
		StartDate:     r.StartDate.Format(validator.DateLayout),
		EndDate:       r.EndDate.Format(validator.DateLayout),
		TotalDays:     r.TotalDays,
		DebitedDays:   r.DebitedDays,
		Reason:        r.Reason,
		Status:        r.Status,
		AttachmentID:  r.AttachmentID,
		ReviewedBy:    r.ReviewedBy,
		ReviewedAt:    r.ReviewedAt,
		ReviewerNotes: r.ReviewerNotes,
		CancelledAt:   r.CancelledAt,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type LeaveBalanceItem struct {
	LeaveType   LeaveType `json:"leave_type"`
	Balance     float64   `json:"balance"`
	Entitlement float64   `json:"entitlement"`
	Taken       float64   `json:"taken"`
}

type LeaveBalanceResponse struct {
	UserID   string             `json:"user_id"`
	Year     int                `json:"year"`
	Balances []LeaveBalanceItem `json:"balances"`
}
