package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attachment"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/company"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/penalty"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
)

// errorRule maps a set of domain errors to one response. An empty message
// echoes the error text.
type errorRule struct {
	targets []error
	status  int
	code    string
	message string
	log     bool
}

var errorRules = []errorRule{
	// Auth
	{targets: []error{auth.ErrInvalidToken, auth.ErrMissingClaim}, status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
	{targets: []error{auth.ErrTokenExpired}, status: http.StatusUnauthorized, code: "TOKEN_EXPIRED", message: "Token expired"},

	// User
	{targets: []error{user.ErrUserNotFound}, status: http.StatusNotFound, code: "USER_NOT_FOUND", message: "User not found"},
	{targets: []error{user.ErrUserInactive}, status: http.StatusForbidden, code: "USER_INACTIVE", message: "User is inactive"},
	{targets: []error{user.ErrAdminPrivilegeRequired, user.ErrInsufficientPermissions}, status: http.StatusForbidden, code: "FORBIDDEN"},

	// Clock-in preconditions
	{targets: []error{attendance.ErrMockLocationRejected}, status: http.StatusBadRequest, code: "MOCK_LOCATION"},
	{targets: []error{attendance.ErrStaleOrFutureTimestamp}, status: http.StatusBadRequest, code: "INVALID_TIMESTAMP"},
	{targets: []error{attendance.ErrNonWorkingDay}, status: http.StatusBadRequest, code: "NON_WORKING_DAY"},
	{targets: []error{attendance.ErrGeofenceNotConfigured}, status: http.StatusBadRequest, code: "GEOFENCE_NOT_CONFIGURED"},
	{targets: []error{attendance.ErrOutsideGeofence}, status: http.StatusBadRequest, code: "OUTSIDE_GEOFENCE"},
	{targets: []error{attendance.ErrNoActiveWindow}, status: http.StatusBadRequest, code: "NO_ACTIVE_WINDOW"},
	{targets: []error{attendance.ErrDuplicateClockIn}, status: http.StatusConflict, code: "ALREADY_CLOCKED_IN"},
	{targets: []error{attendance.ErrVersionConflict}, status: http.StatusConflict, code: "RECORD_BUSY", message: "Attendance record is busy, please retry"},
	{targets: []error{attendance.ErrAttendanceNotFound}, status: http.StatusNotFound, code: "NOT_FOUND", message: "Attendance record not found"},

	// Leave
	{targets: []error{leave.ErrLeaveRequestNotFound}, status: http.StatusNotFound, code: "NOT_FOUND", message: "Leave request not found"},
	{targets: []error{leave.ErrInsufficientLeaveBalance}, status: http.StatusBadRequest, code: "INSUFFICIENT_BALANCE", message: "Insufficient leave balance"},
	{targets: []error{leave.ErrLeaveRequestAlreadyProcessed}, status: http.StatusConflict, code: "ALREADY_PROCESSED", message: "Leave request already processed"},
	{targets: []error{leave.ErrOverlappingLeaveRequest, leave.ErrLeaveRequestNotCancellable}, status: http.StatusConflict, code: "CONFLICT"},
	{targets: []error{
		leave.ErrAttachmentRequired,
		leave.ErrInvalidDateRange,
		leave.ErrStartDateInPast,
		leave.ErrHalfDayMultipleDays,
	}, status: http.StatusBadRequest, code: "BAD_REQUEST"},
	{targets: []error{leave.ErrNotLeaveRequestOwner}, status: http.StatusForbidden, code: "FORBIDDEN"},

	// Attachments
	{targets: []error{attachment.ErrAttachmentNotFound}, status: http.StatusNotFound, code: "NOT_FOUND", message: "Attachment not found"},
	{targets: []error{attachment.ErrAttachmentNotOwned}, status: http.StatusForbidden, code: "FORBIDDEN"},
	{targets: []error{attachment.ErrAttachmentNotReady}, status: http.StatusBadRequest, code: "ATTACHMENT_NOT_READY"},

	// Penalties
	{targets: []error{penalty.ErrPenaltyNotFound}, status: http.StatusNotFound, code: "NOT_FOUND", message: "Penalty not found"},
	{targets: []error{penalty.ErrPenaltyNotActive}, status: http.StatusConflict, code: "PENALTY_NOT_ACTIVE"},
	{targets: []error{penalty.ErrWaiveReasonNeeded}, status: http.StatusBadRequest, code: "BAD_REQUEST"},

	// Infrastructure
	{targets: []error{
		company.ErrInvalidTimeWindow,
		company.ErrInvalidTimezone,
		company.ErrSettingsCorrupted,
	}, status: http.StatusInternalServerError, code: "INVALID_SETTINGS", message: "Company settings are invalid", log: true},
	{targets: []error{notification.ErrQueueFull, notification.ErrServiceStopped}, status: http.StatusServiceUnavailable, code: "SERVICE_UNAVAILABLE"},
}

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	for _, rule := range errorRules {
		for _, target := range rule.targets {
			if !errors.Is(err, target) {
				continue
			}
			if rule.log {
				slog.Error("Request failed", "code", rule.code, "error", err)
			}
			message := rule.message
			if message == "" {
				message = err.Error()
			}
			Error(w, rule.status, rule.code, message, nil)
			return
		}
	}

	slog.Error("Unhandled error", "error", err)
	Error(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An unexpected error occurred", nil)
}
