package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/company"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/jobflag"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/presence-backend-go/internal/repository/memory"
	attendancesvc "github.com/cmlabs-hris/presence-backend-go/internal/service/attendance"
	auditsvc "github.com/cmlabs-hris/presence-backend-go/internal/service/audit"
	penaltysvc "github.com/cmlabs-hris/presence-backend-go/internal/service/penalty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu   sync.Mutex
	bulk []notification.BulkNotificationRequest
}

func (n *recordingNotifier) QueueNotification(ctx context.Context, req notification.CreateNotificationRequest) error {
	return nil
}

func (n *recordingNotifier) QueueBulkNotification(ctx context.Context, req notification.BulkNotificationRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bulk = append(n.bulk, req)
	return nil
}

func (n *recordingNotifier) GetNotifications(ctx context.Context, userID string, page, pageSize int, unreadOnly bool) (*notification.NotificationListResponse, error) {
	return &notification.NotificationListResponse{}, nil
}

func (n *recordingNotifier) Stop() {}

type jobsFixture struct {
	store    *memory.Store
	notifier *recordingNotifier
	metrics  *metrics.Metrics
	jobs     *AttendanceJobs
	now      *time.Time
}

func newJobsFixture(t *testing.T, now time.Time) *jobsFixture {
	t.Helper()

	current := now
	clock := func() time.Time { return current }

	store := memory.NewStore()
	store.SetClock(clock)
	require.NoError(t, store.Settings().SaveCompanySettings(context.Background(), company.DefaultSettings()))
	store.PutUser(user.User{ID: "emp-1", FullName: "Sari Wulandari", Role: user.RoleEmployee, IsActive: true})
	store.PutUser(user.User{ID: "emp-2", FullName: "Budi Santoso", Role: user.RoleEmployee, IsActive: true})
	store.PutUser(user.User{ID: "gone-1", FullName: "Former", Role: user.RoleEmployee, IsActive: false})

	notifier := &recordingNotifier{}
	m := metrics.New(prometheus.NewRegistry())
	audits := auditsvc.NewAuditService(store.AuditLogs(), clock)

	attendanceService := attendancesvc.NewAttendanceService(
		store.Settings(), store.Attendance(), store.Users(), notifier, audits, m,
		attendancesvc.Config{FinalizerConcurrency: 2, Now: clock},
	)
	penaltyService := penaltysvc.NewPenaltyService(
		store.Settings(), store.Penalties(), store.Attendance(), notifier, audits, m,
		penaltysvc.Config{Concurrency: 2, Now: clock},
	)

	jobs := NewAttendanceJobs(
		store.Settings(), attendanceService, penaltyService, store.Attendance(), store.Users(),
		notifier, store.JobFlags(), m,
		JobsConfig{StaleAfter: 10 * time.Minute, HeartbeatInterval: time.Minute, Now: clock},
	)
	return &jobsFixture{store: store, notifier: notifier, metrics: m, jobs: jobs, now: &current}
}

func (f *jobsFixture) putRecord(t *testing.T, record attendance.Attendance) {
	t.Helper()
	_, err := f.store.Attendance().Save(context.Background(), record, 0)
	require.NoError(t, err)
}

func TestJobsSpecsFollowSettings(t *testing.T) {
	f := newJobsFixture(t, time.Now())
	settings := company.DefaultSettings()
	settings.TimeWindows.Check3 = company.TimeWindow{Start: "18:00", End: "19:15"}

	specs := make(map[string]string)
	for _, job := range f.jobs.Jobs(settings) {
		specs[job.Name] = job.Spec
	}
	assert.Equal(t, "30 20 * * *", specs[JobFinalize])
	assert.Equal(t, "0 2 1 * *", specs[JobMonthlyPenalty])
	assert.Equal(t, "30 8 * * *", specs[ReminderJobName(attendance.SlotCheck1)])
	assert.Equal(t, "30 13 * * *", specs[ReminderJobName(attendance.SlotCheck2)])
	assert.Equal(t, "30 17 * * *", specs[ReminderJobName(attendance.SlotCheck3)])
	assert.Equal(t, "0 * * * *", specs[JobSettingsWatcher])
}

func TestRegisterJobsSchedulesInCompanyTimezone(t *testing.T) {
	loc := jakarta(t)
	f := newJobsFixture(t, time.Date(2024, time.March, 18, 10, 0, 0, 0, loc))
	scheduler := NewScheduler(time.UTC)
	require.NoError(t, f.jobs.RegisterJobs(context.Background(), scheduler))

	assert.Equal(t, "Asia/Jakarta", scheduler.Location().String())

	next, ok := scheduler.Next(JobFinalize, time.Date(2024, time.March, 18, 10, 0, 0, 0, loc))
	require.True(t, ok)
	assert.True(t, next.Equal(time.Date(2024, time.March, 18, 18, 30, 0, 0, loc)), "got %s", next)

	next, ok = scheduler.Next(ReminderJobName(attendance.SlotCheck2), time.Date(2024, time.March, 18, 10, 0, 0, 0, loc))
	require.True(t, ok)
	assert.True(t, next.Equal(time.Date(2024, time.March, 18, 13, 30, 0, 0, loc)), "got %s", next)
}

func TestWatchSettingsReloadsOnChange(t *testing.T) {
	loc := jakarta(t)
	ctx := context.Background()
	f := newJobsFixture(t, time.Date(2024, time.March, 18, 10, 0, 0, 0, loc))
	scheduler := NewScheduler(time.UTC)
	require.NoError(t, f.jobs.RegisterJobs(ctx, scheduler))

	require.NoError(t, f.jobs.WatchSettings(ctx))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.JobRuns.WithLabelValues(JobSettingsWatcher, "skipped")))

	settings := company.DefaultSettings()
	settings.Timezone = "Asia/Makassar"
	settings.TimeWindows.Check3 = company.TimeWindow{Start: "18:00", End: "19:00"}
	require.NoError(t, f.store.Settings().SaveCompanySettings(ctx, settings))

	require.NoError(t, f.jobs.WatchSettings(ctx))
	assert.Equal(t, "Asia/Makassar", scheduler.Location().String())

	makassar, err := time.LoadLocation("Asia/Makassar")
	require.NoError(t, err)
	next, ok := scheduler.Next(JobFinalize, time.Date(2024, time.March, 18, 10, 0, 0, 0, makassar))
	require.True(t, ok)
	assert.True(t, next.Equal(time.Date(2024, time.March, 18, 20, 30, 0, 0, makassar)), "got %s", next)
}

func TestFinalizeDayRunsOncePerDate(t *testing.T) {
	loc := jakarta(t)
	ctx := context.Background()
	f := newJobsFixture(t, time.Date(2024, time.March, 18, 18, 30, 0, 0, loc))

	stamp := time.Date(2024, time.March, 18, 8, 45, 0, 0, loc)
	record := attendance.New("emp-2", "2024-03-18", time.Date(2024, time.March, 18, 0, 0, 0, 0, time.UTC))
	record.Check1 = attendance.SlotRecord{Status: attendance.SlotStatusLate, Timestamp: &stamp}
	f.putRecord(t, record)

	require.NoError(t, f.jobs.FinalizeDay(ctx))

	flag, ok := f.store.Flag(jobflag.FinalizationID("2024-03-18"))
	require.True(t, ok)
	assert.Equal(t, jobflag.StatusCompleted, flag.Status)
	assert.Equal(t, 1, flag.Result["absent_records_created"])
	assert.Equal(t, 1, flag.Result["records_updated"])
	assert.Equal(t, 3, flag.Result["penalties_created"])

	absent, _, err := f.store.Attendance().Get(ctx, attendance.RecordID("emp-1", "2024-03-18"))
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusAbsent, absent.Status)

	require.NoError(t, f.jobs.FinalizeDay(ctx))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.JobRuns.WithLabelValues(JobFinalize, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.JobRuns.WithLabelValues(JobFinalize, "skipped")))
}

func TestFinalizeDayRetriesFailedDay(t *testing.T) {
	loc := jakarta(t)
	ctx := context.Background()
	f := newJobsFixture(t, time.Date(2024, time.March, 15, 18, 30, 0, 0, loc))

	failedID := jobflag.FinalizationID("2024-03-15")
	claimed, err := f.store.JobFlags().Claim(ctx, failedID, 10*time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, f.store.JobFlags().Fail(ctx, failedID, errors.New("database down")))

	*f.now = time.Date(2024, time.March, 18, 18, 30, 0, 0, loc)
	require.NoError(t, f.jobs.FinalizeDay(ctx))

	for _, dateKey := range []string{"2024-03-15", "2024-03-18"} {
		flag, ok := f.store.Flag(jobflag.FinalizationID(dateKey))
		require.True(t, ok, dateKey)
		assert.Equal(t, jobflag.StatusCompleted, flag.Status, dateKey)
		assert.Equal(t, 2, flag.Result["absent_records_created"], dateKey)
	}
	absent, _, err := f.store.Attendance().Get(ctx, attendance.RecordID("emp-1", "2024-03-15"))
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusAbsent, absent.Status)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.JobRuns.WithLabelValues(JobFinalize, "success")))

	require.NoError(t, f.jobs.FinalizeDay(ctx))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.JobRuns.WithLabelValues(JobFinalize, "success")))
}

func TestFinalizeDaySkipsWeekend(t *testing.T) {
	loc := jakarta(t)
	f := newJobsFixture(t, time.Date(2024, time.March, 16, 18, 30, 0, 0, loc))

	require.NoError(t, f.jobs.FinalizeDay(context.Background()))

	_, ok := f.store.Flag(jobflag.FinalizationID("2024-03-16"))
	assert.False(t, ok)
	records, err := f.store.Attendance().ListByDate(context.Background(), "2024-03-16", nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMonthlyPenaltiesTargetsPreviousMonth(t *testing.T) {
	loc := jakarta(t)
	f := newJobsFixture(t, time.Date(2024, time.March, 1, 2, 0, 0, 0, loc))

	require.NoError(t, f.jobs.MonthlyPenalties(context.Background()))

	flag, ok := f.store.Flag(jobflag.MonthlyPenaltiesID("2024-02"))
	require.True(t, ok)
	assert.Equal(t, jobflag.StatusCompleted, flag.Status)
}

func TestRunGuardedMarksFailureAndAllowsRetry(t *testing.T) {
	ctx := context.Background()
	f := newJobsFixture(t, time.Date(2024, time.March, 18, 18, 30, 0, 0, time.UTC))

	err := f.jobs.runGuarded(ctx, "test", "test_flag", func(ctx context.Context) (map[string]interface{}, error) {
		return nil, errors.New("database down")
	})
	require.Error(t, err)

	flag, ok := f.store.Flag("test_flag")
	require.True(t, ok)
	assert.Equal(t, jobflag.StatusError, flag.Status)
	require.NotNil(t, flag.Error)
	assert.Equal(t, "database down", *flag.Error)

	ran := false
	err = f.jobs.runGuarded(ctx, "test", "test_flag", func(ctx context.Context) (map[string]interface{}, error) {
		ran = true
		return map[string]interface{}{"ok": true}, nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	flag, _ = f.store.Flag("test_flag")
	assert.Equal(t, jobflag.StatusCompleted, flag.Status)
}

func TestRunGuardedSkipsLiveLease(t *testing.T) {
	ctx := context.Background()
	f := newJobsFixture(t, time.Date(2024, time.March, 18, 18, 30, 0, 0, time.UTC))

	claimed, err := f.store.JobFlags().Claim(ctx, "busy", 10*time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)

	err = f.jobs.runGuarded(ctx, "test", "busy", func(ctx context.Context) (map[string]interface{}, error) {
		t.Fatal("must not run while another runner holds the lease")
		return nil, nil
	})
	require.NoError(t, err)

	*f.now = f.now.Add(11 * time.Minute)
	ran := false
	require.NoError(t, f.jobs.runGuarded(ctx, "test", "busy", func(ctx context.Context) (map[string]interface{}, error) {
		ran = true
		return nil, nil
	}))
	assert.True(t, ran, "a stale lease is taken over")
}

func TestSendRemindersTargetsOutstandingEmployees(t *testing.T) {
	loc := jakarta(t)
	ctx := context.Background()
	f := newJobsFixture(t, time.Date(2024, time.March, 18, 8, 30, 0, 0, loc))
	f.store.PutUser(user.User{ID: "emp-3", FullName: "Dewi", Role: user.RoleEmployee, IsActive: true})
	f.store.PutUser(user.User{ID: "emp-4", FullName: "Agus", Role: user.RoleEmployee, IsActive: true})
	f.store.PutUser(user.User{ID: "mgr-1", FullName: "Manager", Role: user.RoleManager, IsActive: true})

	date := time.Date(2024, time.March, 18, 0, 0, 0, 0, time.UTC)
	stamp := time.Date(2024, time.March, 18, 7, 45, 0, 0, loc)

	done := attendance.New("emp-2", "2024-03-18", date)
	done.Check1 = attendance.SlotRecord{Status: attendance.SlotStatusOnTime, Timestamp: &stamp}
	f.putRecord(t, done)

	onLeave := attendance.New("emp-3", "2024-03-18", date)
	onLeave.Status = attendance.StatusOnLeave
	onLeave.LeaveBackfill = true
	f.putRecord(t, onLeave)

	f.putRecord(t, attendance.New("emp-4", "2024-03-18", date))

	require.NoError(t, f.jobs.SendReminders(ctx, attendance.SlotCheck1))

	require.Len(t, f.notifier.bulk, 1)
	req := f.notifier.bulk[0]
	assert.ElementsMatch(t, []string{"emp-1", "emp-4"}, req.RecipientIDs)
	assert.Equal(t, notification.TypeClockInReminder, req.Type)
	assert.Equal(t, "check1", req.Data["slot"])
	assert.Contains(t, req.Message, "07:30-08:30")
}

func TestSendRemindersSkipsHolidays(t *testing.T) {
	loc := jakarta(t)
	ctx := context.Background()
	f := newJobsFixture(t, time.Date(2024, time.March, 11, 13, 30, 0, 0, loc))

	settings := company.DefaultSettings()
	settings.Holidays = []string{"2024-03-11 Nyepi"}
	require.NoError(t, f.store.Settings().SaveCompanySettings(ctx, settings))

	require.NoError(t, f.jobs.SendReminders(ctx, attendance.SlotCheck2))
	assert.Empty(t, f.notifier.bulk)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.JobRuns.WithLabelValues(ReminderJobName(attendance.SlotCheck2), "skipped")))
}
