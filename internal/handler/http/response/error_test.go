package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{
			name:   "validation errors carry field details",
			err:    validator.ValidationErrors{{Field: "timestamp", Message: "invalid"}},
			status: http.StatusUnprocessableEntity,
			code:   "VALIDATION_ERROR",
		},
		{
			name:    "wrapped geofence rejection",
			err:     fmt.Errorf("clock in: %w", attendance.ErrOutsideGeofence),
			status:  http.StatusBadRequest,
			code:    "OUTSIDE_GEOFENCE",
			message: "clock in: " + attendance.ErrOutsideGeofence.Error(),
		},
		{
			name:    "version conflict uses a fixed message",
			err:     attendance.ErrVersionConflict,
			status:  http.StatusConflict,
			code:    "RECORD_BUSY",
			message: "Attendance record is busy, please retry",
		},
		{
			name:   "processed leave request",
			err:    leave.ErrLeaveRequestAlreadyProcessed,
			status: http.StatusConflict,
			code:   "ALREADY_PROCESSED",
		},
		{
			name:   "notification backpressure",
			err:    notification.ErrQueueFull,
			status: http.StatusServiceUnavailable,
			code:   "SERVICE_UNAVAILABLE",
		},
		{
			name:    "unknown errors are hidden",
			err:     errors.New("pq: relation does not exist"),
			status:  http.StatusInternalServerError,
			code:    "INTERNAL_SERVER_ERROR",
			message: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Error.Message)
			}
		})
	}
}

func TestValidationErrorDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleError(rec, validator.ValidationErrors{{Field: "date", Message: "must be YYYY-MM-DD"}})

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"date": "must be YYYY-MM-DD"}, body.Error.Details)
}
