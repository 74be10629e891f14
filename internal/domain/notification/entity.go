package notification

import (
	"time"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	TypeAttendanceClockIn NotificationType = "attendance_clock_in"
	TypeClockInReminder   NotificationType = "clock_in_reminder"
	TypePenaltyIssued     NotificationType = "penalty_issued"
	TypeViolationWarning  NotificationType = "violation_warning"
	TypePenaltyWaived     NotificationType = "penalty_waived"
	TypeLeaveRequest      NotificationType = "leave_request"
	TypeLeaveApproved     NotificationType = "leave_approved"
	TypeLeaveRejected     NotificationType = "leave_rejected"
	TypeLeaveCancelled    NotificationType = "leave_cancelled"
)

// Category groups notification types for clients
type Category string

const (
	CategoryAttendance Category = "attendance"
	CategoryPenalty    Category = "penalty"
	CategoryLeave      Category = "leave"
)

// Notification represents a notification entity
type Notification struct {
	ID          string
	RecipientID string
	Type        NotificationType
	Category    Category
	Title       string
	Message     string
	RelatedID   *string
	Data        map[string]interface{}
	IsRead      bool
	CreatedAt   time.Time
}

// NewNotification builds an unsaved notification from a request.
func NewNotification(req CreateNotificationRequest, now time.Time) *Notification {
	return &Notification{
		RecipientID: req.RecipientID,
		Type:        req.Type,
		Category:    req.Category,
		Title:       req.Title,
		Message:     req.Message,
		RelatedID:   req.RelatedID,
		Data:        req.Data,
		IsRead:      false,
		CreatedAt:   now,
	}
}
