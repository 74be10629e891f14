package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
	"golang.org/x/sync/errgroup"
)

type finalizeOutcome int

const (
	outcomeUnchanged finalizeOutcome = iota
	outcomeCreated
	outcomeUpdated
	outcomeSkipped
)

// FinalizeAttendance implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) FinalizeAttendance(ctx context.Context, dateKey string) (attendance.FinalizeResult, error) {
	req := attendance.FinalizeRequest{Date: dateKey}
	if err := req.Validate(); err != nil {
		return attendance.FinalizeResult{}, err
	}
	attendanceDate, _ := validator.IsValidDate(dateKey)

	users, err := a.UserRepository.ListActiveEmployees(ctx)
	if err != nil {
		return attendance.FinalizeResult{}, fmt.Errorf("failed to list active employees: %w", err)
	}

	var processed, created, updated, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.FinalizerConcurrency)
	for _, u := range users {
		if !u.TracksAttendance() {
			continue
		}
		u := u
		g.Go(func() error {
			outcome, err := a.finalizeUser(gctx, u.ID, dateKey, attendanceDate)
			if err != nil {
				return fmt.Errorf("user %s: %w", u.ID, err)
			}
			processed.Add(1)
			switch outcome {
			case outcomeCreated:
				created.Add(1)
			case outcomeUpdated:
				updated.Add(1)
			case outcomeSkipped:
				skipped.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return attendance.FinalizeResult{}, fmt.Errorf("failed to finalize %s: %w", dateKey, err)
	}

	result := attendance.FinalizeResult{
		Date:                 dateKey,
		Processed:            int(processed.Load()),
		AbsentRecordsCreated: int(created.Load()),
		RecordsUpdated:       int(updated.Load()),
		Skipped:              int(skipped.Load()),
	}
	a.metrics.ObserveFinalized(result.AbsentRecordsCreated, result.RecordsUpdated)
	slog.Info("attendance finalized",
		"date", dateKey,
		"processed", result.Processed,
		"absent_created", result.AbsentRecordsCreated,
		"updated", result.RecordsUpdated,
		"skipped", result.Skipped,
	)
	return result, nil
}

// finalizeUser closes one user's day. Records owned by a manual entry or a
// leave backfill are left untouched.
func (a *AttendanceServiceImpl) finalizeUser(ctx context.Context, userID, dateKey string, attendanceDate time.Time) (finalizeOutcome, error) {
	for attempt := 1; ; attempt++ {
		now := a.config.Now()
		outcome := outcomeUpdated

		record, version, err := a.AttendanceRepository.Get(ctx, attendance.RecordID(userID, dateKey))
		switch {
		case errors.Is(err, attendance.ErrAttendanceNotFound):
			record = attendance.New(userID, dateKey, attendanceDate)
			record.Check1.Status = attendance.SlotStatusMissed
			record.Check2.Status = attendance.SlotStatusMissed
			record.Check3.Status = attendance.SlotStatusMissed
			record.CreatedAt = now
			outcome = outcomeCreated
		case err != nil:
			return 0, fmt.Errorf("failed to get attendance record: %w", err)
		case record.IsOverridden():
			return outcomeSkipped, nil
		default:
			changed := false
			for _, slot := range attendance.Slots() {
				sr := record.SlotRecord(slot)
				if !sr.Status.IsSet() {
					sr.Status = attendance.SlotStatusMissed
					changed = true
				}
			}
			if recomputeStatus(&record) {
				changed = true
			}
			if !changed {
				return outcomeUnchanged, nil
			}
		}
		record.UpdatedAt = now

		_, err = a.AttendanceRepository.Save(ctx, record, version)
		if err == nil {
			return outcome, nil
		}
		if !errors.Is(err, attendance.ErrVersionConflict) || attempt >= maxWriteAttempts {
			return 0, fmt.Errorf("failed to save attendance record: %w", err)
		}
	}
}
