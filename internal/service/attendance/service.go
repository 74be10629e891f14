package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/company"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
)

const (
	// maxClockSkew bounds how far a client timestamp may drift from server time.
	maxClockSkew = 5 * time.Minute
	// maxWriteAttempts bounds optimistic read-modify-write retries on version conflicts.
	maxWriteAttempts = 5
)

// Config tunes the attendance service.
type Config struct {
	// FinalizerConcurrency caps the number of users finalized in parallel.
	FinalizerConcurrency int
	// Now overrides the wall clock, mainly for tests.
	Now func() time.Time
}

type AttendanceServiceImpl struct {
	company.SettingsProvider
	attendance.AttendanceRepository
	user.UserRepository
	notificationService notification.Service
	auditService        audit.Service
	metrics             *metrics.Metrics
	config              Config
}

// ClockIn implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ClockIn(ctx context.Context, req attendance.ClockInRequest) (attendance.ClockInResponse, error) {
	resp, err := a.clockIn(ctx, req)
	if err != nil {
		a.metrics.ObserveClockInRejected(rejectionReason(err))
		return attendance.ClockInResponse{}, err
	}
	a.metrics.ObserveClockIn(string(resp.Slot), string(resp.SlotStatus))
	return resp, nil
}

func (a *AttendanceServiceImpl) clockIn(ctx context.Context, req attendance.ClockInRequest) (attendance.ClockInResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.ClockInResponse{}, err
	}
	ts, _ := validator.IsValidDateTime(req.Timestamp)

	if req.IsMocked {
		return attendance.ClockInResponse{}, attendance.ErrMockLocationRejected
	}

	now := a.config.Now()
	if skew := now.Sub(ts); skew > maxClockSkew || skew < -maxClockSkew {
		return attendance.ClockInResponse{}, attendance.ErrStaleOrFutureTimestamp
	}

	u, err := a.UserRepository.GetByID(ctx, req.UserID)
	if err != nil {
		return attendance.ClockInResponse{}, fmt.Errorf("failed to get user: %w", err)
	}
	if !u.IsActive {
		return attendance.ClockInResponse{}, user.ErrUserInactive
	}

	settings, err := a.SettingsProvider.GetCompanySettings(ctx)
	if err != nil {
		return attendance.ClockInResponse{}, fmt.Errorf("failed to load company settings: %w", err)
	}
	loc, err := settings.Location()
	if err != nil {
		return attendance.ClockInResponse{}, err
	}

	local := ts.In(loc)
	dateKey := local.Format(validator.DateLayout)
	if !settings.IsWorkingDay(local) || settings.IsHoliday(dateKey) {
		return attendance.ClockInResponse{}, attendance.ErrNonWorkingDay
	}

	if !settings.GeofenceConfigured() {
		return attendance.ClockInResponse{}, attendance.ErrGeofenceNotConfigured
	}
	if settings.GeofenceEnabled() {
		if err := utils.AssertWithinGeofence(req.Location, *settings.WorkplaceCenter, *settings.WorkplaceRadius); err != nil {
			return attendance.ClockInResponse{}, err
		}
	}

	res, ok, err := ResolveSlot(ts, settings, loc)
	if err != nil {
		return attendance.ClockInResponse{}, fmt.Errorf("failed to resolve check-in window: %w", err)
	}
	if !ok {
		return attendance.ClockInResponse{}, attendance.ErrNoActiveWindow
	}

	attendanceDate := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	tsUTC := ts.UTC()
	location := req.Location

	var record attendance.Attendance
	for attempt := 1; ; attempt++ {
		var version int64
		record, version, err = a.AttendanceRepository.Get(ctx, attendance.RecordID(req.UserID, dateKey))
		if errors.Is(err, attendance.ErrAttendanceNotFound) {
			record = attendance.New(req.UserID, dateKey, attendanceDate)
			record.CreatedAt = now
		} else if err != nil {
			return attendance.ClockInResponse{}, fmt.Errorf("failed to get attendance record: %w", err)
		}

		slot := record.SlotRecord(res.Slot)
		if slot.Status.IsCompleted() {
			return attendance.ClockInResponse{}, attendance.ErrDuplicateClockIn
		}
		slot.Status = res.Status
		slot.Timestamp = &tsUTC
		slot.Location = &location
		recomputeStatus(&record)
		record.UpdatedAt = now

		_, err = a.AttendanceRepository.Save(ctx, record, version)
		if err == nil {
			break
		}
		if !errors.Is(err, attendance.ErrVersionConflict) || attempt >= maxWriteAttempts {
			return attendance.ClockInResponse{}, fmt.Errorf("failed to save attendance record: %w", err)
		}
		slog.Debug("attendance write conflict, retrying", "record_id", record.ID, "attempt", attempt)
	}

	resp := attendance.ClockInResponse{
		RecordID:       record.ID,
		DateKey:        dateKey,
		Slot:           res.Slot,
		SlotLabel:      res.Label,
		SlotStatus:     res.Status,
		LateByMinutes:  res.LateByMinutes,
		EarlyByMinutes: res.EarlyByMinutes,
		DailyStatus:    record.Status,
		Timestamp:      tsUTC,
	}
	a.afterClockIn(ctx, req, resp)
	return resp, nil
}

// afterClockIn writes the audit entry and the user notification. Both are
// best-effort once the record is committed.
func (a *AttendanceServiceImpl) afterClockIn(ctx context.Context, req attendance.ClockInRequest, resp attendance.ClockInResponse) {
	details := map[string]interface{}{
		"slot":             string(resp.Slot),
		"slot_status":      string(resp.SlotStatus),
		"late_by_minutes":  resp.LateByMinutes,
		"early_by_minutes": resp.EarlyByMinutes,
		"date_key":         resp.DateKey,
	}

	if err := a.auditService.Record(ctx, audit.Entry{
		Action:      audit.ActionClockIn,
		Resource:    audit.ResourceAttendance,
		ResourceID:  resp.RecordID,
		PerformedBy: req.UserID,
		NewValues:   details,
		Metadata: map[string]interface{}{
			"lat": req.Location.Latitude,
			"lng": req.Location.Longitude,
		},
	}); err != nil {
		slog.Warn("failed to record clock-in audit entry", "record_id", resp.RecordID, "error", err)
	}

	recordID := resp.RecordID
	if err := a.notificationService.QueueNotification(ctx, notification.CreateNotificationRequest{
		RecipientID: req.UserID,
		Type:        notification.TypeAttendanceClockIn,
		Category:    notification.CategoryAttendance,
		Title:       "Check-in Recorded",
		Message:     clockInMessage(resp),
		RelatedID:   &recordID,
		Data:        details,
	}); err != nil {
		slog.Warn("failed to queue clock-in notification", "record_id", resp.RecordID, "error", err)
	}
}

func clockInMessage(resp attendance.ClockInResponse) string {
	label := resp.SlotLabel
	if label == "" {
		label = string(resp.Slot)
	}
	switch resp.SlotStatus {
	case attendance.SlotStatusLate:
		return fmt.Sprintf("%s recorded, %d minutes late.", label, resp.LateByMinutes)
	case attendance.SlotStatusEarlyLeave:
		return fmt.Sprintf("%s recorded, %d minutes early.", label, resp.EarlyByMinutes)
	}
	return fmt.Sprintf("%s recorded on time.", label)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, attendance.ErrMockLocationRejected):
		return "mock_location"
	case errors.Is(err, attendance.ErrStaleOrFutureTimestamp):
		return "clock_skew"
	case errors.Is(err, attendance.ErrNonWorkingDay):
		return "non_working_day"
	case errors.Is(err, attendance.ErrGeofenceNotConfigured):
		return "geofence_not_configured"
	case errors.Is(err, attendance.ErrOutsideGeofence):
		return "outside_geofence"
	case errors.Is(err, attendance.ErrNoActiveWindow):
		return "no_active_window"
	case errors.Is(err, attendance.ErrDuplicateClockIn):
		return "duplicate"
	case errors.Is(err, attendance.ErrVersionConflict):
		return "conflict"
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return "validation"
	}
	return "error"
}

// GetMyAttendance implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetMyAttendance(ctx context.Context, userID, dateKey string) (attendance.AttendanceResponse, error) {
	req := attendance.FinalizeRequest{Date: dateKey}
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	record, version, err := a.AttendanceRepository.Get(ctx, attendance.RecordID(userID, dateKey))
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to get attendance record: %w", err)
	}
	return attendance.NewAttendanceResponse(record, version), nil
}

func NewAttendanceService(
	settings company.SettingsProvider,
	attendanceRepo attendance.AttendanceRepository,
	userRepo user.UserRepository,
	notificationService notification.Service,
	auditService audit.Service,
	m *metrics.Metrics,
	cfg Config,
) attendance.AttendanceService {
	if cfg.FinalizerConcurrency <= 0 {
		cfg.FinalizerConcurrency = 8
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &AttendanceServiceImpl{
		SettingsProvider:     settings,
		AttendanceRepository: attendanceRepo,
		UserRepository:       userRepo,
		notificationService:  notificationService,
		auditService:         auditService,
		metrics:              m,
		config:               cfg,
	}
}
