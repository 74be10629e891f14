package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/company"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/jobflag"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/penalty"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
)

// finalizationRetryDays is how far back a finalization tick looks for failed days.
const finalizationRetryDays = 7

const (
	JobFinalize        = "finalize_attendance"
	JobMonthlyPenalty  = "monthly_penalties"
	JobSettingsWatcher = "settings_watcher"
)

// ReminderJobName is the job name of the reminder for a slot.
func ReminderJobName(slot attendance.Slot) string {
	return "clock_in_reminder_" + string(slot)
}

var reminderSpecs = map[attendance.Slot]string{
	attendance.SlotCheck1: "30 8 * * *",
	attendance.SlotCheck2: "30 13 * * *",
	attendance.SlotCheck3: "30 17 * * *",
}

type JobsConfig struct {
	// StaleAfter is how long a processing job flag may go without a heartbeat before another runner takes over.
	StaleAfter        time.Duration
	HeartbeatInterval time.Duration
	Now               func() time.Time
}

type scheduleKey struct {
	timezone         string
	finalizationHour int
}

type AttendanceJobs struct {
	settings        company.SettingsProvider
	attendanceSvc   attendance.AttendanceService
	penaltySvc      penalty.PenaltyService
	attendanceRepo  attendance.AttendanceRepository
	userRepo        user.UserRepository
	notificationSvc notification.Service
	guard           jobflag.Guard
	metrics         *metrics.Metrics
	config          JobsConfig

	mu        sync.Mutex
	scheduler *Scheduler
	current   scheduleKey
}

func NewAttendanceJobs(
	settings company.SettingsProvider,
	attendanceSvc attendance.AttendanceService,
	penaltySvc penalty.PenaltyService,
	attendanceRepo attendance.AttendanceRepository,
	userRepo user.UserRepository,
	notificationSvc notification.Service,
	guard jobflag.Guard,
	m *metrics.Metrics,
	cfg JobsConfig,
) *AttendanceJobs {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 10 * time.Minute
	}
	if cfg.HeartbeatInterval <= 0 || cfg.HeartbeatInterval >= cfg.StaleAfter {
		cfg.HeartbeatInterval = cfg.StaleAfter / 4
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &AttendanceJobs{
		settings:        settings,
		attendanceSvc:   attendanceSvc,
		penaltySvc:      penaltySvc,
		attendanceRepo:  attendanceRepo,
		userRepo:        userRepo,
		notificationSvc: notificationSvc,
		guard:           guard,
		metrics:         m,
		config:          cfg,
	}
}

// RegisterJobs installs the job set for the current settings on scheduler
// and remembers it so the settings watcher can rebuild it later.
func (j *AttendanceJobs) RegisterJobs(ctx context.Context, scheduler *Scheduler) error {
	settings, err := j.settings.GetCompanySettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load company settings: %w", err)
	}
	loc, err := settings.Location()
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := scheduler.Reload(loc, j.Jobs(settings)); err != nil {
		return err
	}
	j.scheduler = scheduler
	j.current = keyOf(settings)
	return nil
}

// Jobs builds the job set for settings. Specs are local wall-clock times.
func (j *AttendanceJobs) Jobs(settings company.Settings) []Job {
	jobs := []Job{
		{Name: JobFinalize, Spec: fmt.Sprintf("30 %d * * *", settings.FinalizationHour()), Fn: j.FinalizeDay},
		{Name: JobMonthlyPenalty, Spec: "0 2 1 * *", Fn: j.MonthlyPenalties},
	}
	for _, slot := range attendance.Slots() {
		slot := slot
		jobs = append(jobs, Job{
			Name: ReminderJobName(slot),
			Spec: reminderSpecs[slot],
			Fn:   func(ctx context.Context) error { return j.SendReminders(ctx, slot) },
		})
	}
	jobs = append(jobs, Job{Name: JobSettingsWatcher, Spec: "0 * * * *", Fn: j.WatchSettings})
	return jobs
}

func keyOf(settings company.Settings) scheduleKey {
	tz := settings.Timezone
	if tz == "" {
		tz = company.DefaultTimezone
	}
	return scheduleKey{timezone: tz, finalizationHour: settings.FinalizationHour()}
}

// FinalizeDay closes the local day that just ended and turns it into penalties.
func (j *AttendanceJobs) FinalizeDay(ctx context.Context) error {
	settings, err := j.settings.GetCompanySettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load company settings: %w", err)
	}
	loc, err := settings.Location()
	if err != nil {
		return err
	}

	local := j.config.Now().In(loc)
	// A finalization hour that wrapped past midnight still belongs to the previous day.
	if _, end, err := settings.TimeWindows.Check3.Bounds(); err == nil && local.Hour()*60+local.Minute() < end {
		local = local.AddDate(0, 0, -1)
	}
	dateKey := local.Format(validator.DateLayout)

	retryErr := j.retryFailedFinalizations(ctx, local)

	if !settings.IsWorkingDay(local) || settings.IsHoliday(dateKey) {
		slog.Info("Cron: Skipping finalization on non-working day", "date", dateKey)
		j.metrics.ObserveJob(JobFinalize, "skipped", time.Now())
		return retryErr
	}

	return errors.Join(retryErr, j.finalize(ctx, dateKey))
}

// retryFailedFinalizations reruns, oldest first, the days before day whose
// finalization ended in error within the last finalizationRetryDays days.
func (j *AttendanceJobs) retryFailedFinalizations(ctx context.Context, day time.Time) error {
	var errs []error
	for i := finalizationRetryDays; i >= 1; i-- {
		dateKey := day.AddDate(0, 0, -i).Format(validator.DateLayout)
		message, failed, err := j.guard.LastError(ctx, jobflag.FinalizationID(dateKey))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !failed {
			continue
		}
		slog.Warn("Cron: Retrying failed finalization", "date", dateKey, "last_error", message)
		if err := j.finalize(ctx, dateKey); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (j *AttendanceJobs) finalize(ctx context.Context, dateKey string) error {
	return j.runGuarded(ctx, JobFinalize, jobflag.FinalizationID(dateKey), func(ctx context.Context) (map[string]interface{}, error) {
		finalized, err := j.attendanceSvc.FinalizeAttendance(ctx, dateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to finalize %s: %w", dateKey, err)
		}
		violations, err := j.penaltySvc.CalculateDailyViolations(ctx, penalty.CalculateDailyRequest{Date: dateKey})
		if err != nil {
			return nil, fmt.Errorf("failed to calculate violations for %s: %w", dateKey, err)
		}

		slog.Info("Cron: Day finalized",
			"date", dateKey,
			"absent_records_created", finalized.AbsentRecordsCreated,
			"records_updated", finalized.RecordsUpdated,
			"penalties_created", violations.PenaltiesCreated,
		)
		return map[string]interface{}{
			"processed":              finalized.Processed,
			"absent_records_created": finalized.AbsentRecordsCreated,
			"records_updated":        finalized.RecordsUpdated,
			"skipped":                finalized.Skipped,
			"violations_detected":    violations.ViolationsDetected,
			"penalties_created":      violations.PenaltiesCreated,
		}, nil
	})
}

// MonthlyPenalties replays the violation engine over the previous local month.
func (j *AttendanceJobs) MonthlyPenalties(ctx context.Context) error {
	settings, err := j.settings.GetCompanySettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load company settings: %w", err)
	}
	loc, err := settings.Location()
	if err != nil {
		return err
	}

	local := j.config.Now().In(loc)
	month := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, -1, 0).Format(validator.MonthLayout)

	return j.runGuarded(ctx, JobMonthlyPenalty, jobflag.MonthlyPenaltiesID(month), func(ctx context.Context) (map[string]interface{}, error) {
		result, err := j.penaltySvc.CalculateMonthlyViolations(ctx, penalty.CalculateMonthlyRequest{Month: month})
		if err != nil {
			return nil, fmt.Errorf("failed to calculate monthly violations for %s: %w", month, err)
		}
		slog.Info("Cron: Monthly penalties calculated",
			"month", month,
			"days_processed", result.DaysProcessed,
			"penalties_created", result.PenaltiesCreated,
		)
		return map[string]interface{}{
			"days_processed":    result.DaysProcessed,
			"days_skipped":      result.DaysSkipped,
			"penalties_created": result.PenaltiesCreated,
			"users":             len(result.Summaries),
		}, nil
	})
}

// SendReminders notifies active employees who still owe the given slot today.
func (j *AttendanceJobs) SendReminders(ctx context.Context, slot attendance.Slot) error {
	start := time.Now()
	job := ReminderJobName(slot)

	recipients, err := j.reminderRecipients(ctx, slot)
	if err != nil {
		j.metrics.ObserveJob(job, "error", start)
		return err
	}
	if recipients == nil {
		j.metrics.ObserveJob(job, "skipped", start)
		return nil
	}
	if len(recipients.userIDs) == 0 {
		slog.Info("Cron: No employees to remind", "slot", slot, "date", recipients.dateKey)
		j.metrics.ObserveJob(job, "success", start)
		return nil
	}

	err = j.notificationSvc.QueueBulkNotification(ctx, notification.BulkNotificationRequest{
		RecipientIDs: recipients.userIDs,
		Type:         notification.TypeClockInReminder,
		Category:     notification.CategoryAttendance,
		Title:        "Clock-in Reminder",
		Message:      fmt.Sprintf("Don't forget your %s (%s-%s).", recipients.window.Label, recipients.window.Start, recipients.window.End),
		Data: map[string]interface{}{
			"slot": string(slot),
			"date": recipients.dateKey,
		},
	})
	if err != nil {
		j.metrics.ObserveJob(job, "error", start)
		return fmt.Errorf("failed to queue reminders: %w", err)
	}

	slog.Info("Cron: Clock-in reminders queued", "slot", slot, "date", recipients.dateKey, "count", len(recipients.userIDs))
	j.metrics.ObserveJob(job, "success", start)
	return nil
}

type reminderTarget struct {
	dateKey string
	window  company.TimeWindow
	userIDs []string
}

// reminderRecipients returns nil when no reminder is due today.
func (j *AttendanceJobs) reminderRecipients(ctx context.Context, slot attendance.Slot) (*reminderTarget, error) {
	settings, err := j.settings.GetCompanySettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load company settings: %w", err)
	}
	loc, err := settings.Location()
	if err != nil {
		return nil, err
	}
	local := j.config.Now().In(loc)
	dateKey := local.Format(validator.DateLayout)
	if !settings.IsWorkingDay(local) || settings.IsHoliday(dateKey) {
		return nil, nil
	}

	window, _ := settings.TimeWindows.For(string(slot))
	if window.Label == "" {
		window.Label = string(slot)
	}

	employees, err := j.userRepo.ListActiveEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	records, err := j.attendanceRepo.ListByDate(ctx, dateKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance for %s: %w", dateKey, err)
	}
	byUser := make(map[string]attendance.Attendance, len(records))
	for _, r := range records {
		byUser[r.UserID] = r
	}

	target := &reminderTarget{dateKey: dateKey, window: window, userIDs: []string{}}
	for _, e := range employees {
		record, ok := byUser[e.ID]
		if ok {
			if record.Status == attendance.StatusOnLeave || record.Status == attendance.StatusPresent {
				continue
			}
			if record.SlotRecord(slot).Status.IsCompleted() {
				continue
			}
		}
		target.userIDs = append(target.userIDs, e.ID)
	}
	return target, nil
}

// WatchSettings rebuilds the schedule when the timezone or the finalization hour changed.
func (j *AttendanceJobs) WatchSettings(ctx context.Context) error {
	start := time.Now()
	settings, err := j.settings.GetCompanySettings(ctx)
	if err != nil {
		j.metrics.ObserveJob(JobSettingsWatcher, "error", start)
		return fmt.Errorf("failed to load company settings: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	key := keyOf(settings)
	if j.scheduler == nil || key == j.current {
		j.metrics.ObserveJob(JobSettingsWatcher, "skipped", start)
		return nil
	}

	loc, err := settings.Location()
	if err != nil {
		j.metrics.ObserveJob(JobSettingsWatcher, "error", start)
		return err
	}
	if err := j.scheduler.Reload(loc, j.Jobs(settings)); err != nil {
		j.metrics.ObserveJob(JobSettingsWatcher, "error", start)
		return err
	}

	slog.Info("Cron: Schedule rebuilt after settings change",
		"timezone", key.timezone,
		"finalization_hour", key.finalizationHour,
		"previous_timezone", j.current.timezone,
		"previous_finalization_hour", j.current.finalizationHour,
	)
	j.current = key
	j.metrics.ObserveJob(JobSettingsWatcher, "success", start)
	return nil
}

// runGuarded executes fn under the job flag id, heartbeating while it runs.
// A flag held by another live runner, or already completed, skips the run.
func (j *AttendanceJobs) runGuarded(ctx context.Context, job, id string, fn func(ctx context.Context) (map[string]interface{}, error)) error {
	start := time.Now()

	claimed, err := j.guard.Claim(ctx, id, j.config.StaleAfter)
	if err != nil {
		j.metrics.ObserveJob(job, "error", start)
		return fmt.Errorf("failed to claim job flag %s: %w", id, err)
	}
	if !claimed {
		slog.Info("Cron: Job already handled elsewhere", "job", job, "flag", id)
		j.metrics.ObserveJob(job, "skipped", start)
		return nil
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(j.config.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := j.guard.Heartbeat(ctx, id); err != nil {
					slog.Warn("Cron: Job flag heartbeat failed", "flag", id, "error", err)
				}
			}
		}
	}()

	result, runErr := fn(ctx)
	close(stop)
	wg.Wait()

	if runErr != nil {
		if err := j.guard.Fail(context.WithoutCancel(ctx), id, runErr); err != nil {
			runErr = errors.Join(runErr, err)
		}
		j.metrics.ObserveJob(job, "error", start)
		return runErr
	}

	if err := j.guard.Complete(context.WithoutCancel(ctx), id, result); err != nil {
		j.metrics.ObserveJob(job, "error", start)
		return fmt.Errorf("failed to complete job flag %s: %w", id, err)
	}
	j.metrics.ObserveJob(job, "success", start)
	return nil
}
