package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attachment"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
)

// RequestService holds the request-level rules: date validation, supporting
// documents and the attendance backfill that follows an approval.
type RequestService struct {
	attendanceRepository attendance.AttendanceRepository
	attachmentRepository attachment.Repository
}

func NewRequestService(attendanceRepository attendance.AttendanceRepository, attachmentRepository attachment.Repository) *RequestService {
	return &RequestService{
		attendanceRepository: attendanceRepository,
		attachmentRepository: attachmentRepository,
	}
}

// validateDates checks the range against today in the company timezone and
// returns the parsed dates.
func (r *RequestService) validateDates(leaveType leave.LeaveType, startStr, endStr string, today time.Time) (time.Time, time.Time, error) {
	start, _ := validator.IsValidDate(startStr)
	end, _ := validator.IsValidDate(endStr)

	if start.After(end) {
		return time.Time{}, time.Time{}, leave.ErrInvalidDateRange
	}
	if leaveType == leave.LeaveTypeHalf && !start.Equal(end) {
		return time.Time{}, time.Time{}, leave.ErrHalfDayMultipleDays
	}
	todayKey := today.Format(validator.DateLayout)
	if start.Format(validator.DateLayout) < todayKey {
		return time.Time{}, time.Time{}, leave.ErrStartDateInPast
	}
	return start, end, nil
}

// checkAttachment enforces a ready document owned by userID for leave types that need one.
func (r *RequestService) checkAttachment(ctx context.Context, leaveType leave.LeaveType, attachmentID *string, userID string) error {
	if !leaveType.RequiresAttachment() {
		return nil
	}
	if attachmentID == nil || validator.IsEmpty(*attachmentID) {
		return leave.ErrAttachmentRequired
	}

	doc, err := r.attachmentRepository.GetByID(ctx, *attachmentID)
	if err != nil {
		return fmt.Errorf("failed to get attachment: %w", err)
	}
	if err := doc.AssertOwnedBy(userID); err != nil {
		return err
	}
	return doc.AssertReady()
}

// backfillDay is one attendance day covered by an approved request.
type backfillDay struct {
	record         attendance.Attendance
	version        int64
	previousStatus attendance.DailyStatus
	existed        bool
}

// loadBackfill reads every attendance record in the request range. It only
// reads, so approvals can finish all reads before the first write.
func (r *RequestService) loadBackfill(ctx context.Context, req leave.LeaveRequest) ([]backfillDay, error) {
	var days []backfillDay
	for _, dateKey := range req.DateKeys() {
		record, version, err := r.attendanceRepository.Get(ctx, attendance.RecordID(req.UserID, dateKey))
		switch {
		case errors.Is(err, attendance.ErrAttendanceNotFound):
			date, _ := validator.IsValidDate(dateKey)
			days = append(days, backfillDay{record: attendance.New(req.UserID, dateKey, date)})
		case err != nil:
			return nil, fmt.Errorf("failed to get attendance record %s: %w", dateKey, err)
		default:
			days = append(days, backfillDay{
				record:         record,
				version:        version,
				previousStatus: record.Status,
				existed:        true,
			})
		}
	}
	return days, nil
}

// applyBackfill marks each loaded day as on leave for req.
func (r *RequestService) applyBackfill(ctx context.Context, req leave.LeaveRequest, days []backfillDay, now time.Time) error {
	requestID := req.ID
	for _, day := range days {
		record := day.record
		record.Status = attendance.StatusOnLeave
		record.LeaveRequestID = &requestID
		record.LeaveBackfill = true
		if !day.existed {
			record.CreatedAt = now
		}
		record.UpdatedAt = now
		if _, err := r.attendanceRepository.Save(ctx, record, day.version); err != nil {
			return fmt.Errorf("failed to backfill attendance %s: %w", record.DateKey, err)
		}
	}
	return nil
}

// findBackfill lists the records an approval created or overwrote for req.
// Records that are not leave backfills of req are left out.
func (r *RequestService) findBackfill(ctx context.Context, req leave.LeaveRequest) ([]attendance.Attendance, error) {
	records, err := r.attendanceRepository.ListByUserRange(ctx, req.UserID,
		req.StartDate.Format(validator.DateLayout), req.EndDate.Format(validator.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}

	var backfilled []attendance.Attendance
	for _, record := range records {
		if record.LeaveBackfill && record.LeaveRequestID != nil && *record.LeaveRequestID == req.ID {
			backfilled = append(backfilled, record)
		}
	}
	return backfilled, nil
}

func (r *RequestService) deleteBackfill(ctx context.Context, records []attendance.Attendance) error {
	for _, record := range records {
		if err := r.attendanceRepository.Delete(ctx, record.ID); err != nil {
			return fmt.Errorf("failed to delete attendance record %s: %w", record.ID, err)
		}
	}
	return nil
}
