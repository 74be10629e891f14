package penalty

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/company"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/penalty"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/presence-backend-go/internal/repository/memory"
	auditsvc "github.com/cmlabs-hris/presence-backend-go/internal/service/audit"
	notificationsvc "github.com/cmlabs-hris/presence-backend-go/internal/service/notification"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type PenaltyServiceSuite struct {
	suite.Suite
	ctx           context.Context
	store         *memory.Store
	notifications notification.Service
	service       penalty.PenaltyService
	now           time.Time
}

func TestPenaltyServiceSuite(t *testing.T) {
	suite.Run(t, new(PenaltyServiceSuite))
}

func (s *PenaltyServiceSuite) SetupTest() {
	s.ctx = context.Background()
	loc, err := time.LoadLocation("Asia/Jakarta")
	s.Require().NoError(err)
	s.now = time.Date(2024, time.March, 8, 10, 0, 0, 0, loc)

	s.store = memory.NewStore()
	s.store.SetClock(func() time.Time { return s.now })

	settings := company.DefaultSettings()
	settings.PenaltyRules.Amounts["late"] = decimal.NewFromInt(100)
	settings.Holidays = []string{"2024-03-11 Nyepi"}
	s.Require().NoError(s.store.Settings().SaveCompanySettings(s.ctx, settings))

	s.notifications = notificationsvc.NewNotificationService(s.store.Notifications(), nil, notificationsvc.Config{
		BatchSize: 10, FlushInterval: time.Hour, WorkerCount: 1, QueueSize: 100,
	})
	s.service = NewPenaltyService(
		s.store.Settings(),
		s.store.Penalties(),
		s.store.Attendance(),
		s.notifications,
		auditsvc.NewAuditService(s.store.AuditLogs(), func() time.Time { return s.now }),
		nil,
		Config{Concurrency: 2, Now: func() time.Time { return s.now }},
	)
}

func (s *PenaltyServiceSuite) TearDownTest() {
	s.notifications.Stop()
}

// putRecord stores a closed record for userID on dateKey.
func (s *PenaltyServiceSuite) putRecord(userID, dateKey string, status attendance.DailyStatus, c1, c2, c3 attendance.SlotStatus) {
	date, err := time.Parse("2006-01-02", dateKey)
	s.Require().NoError(err)
	record := attendance.New(userID, dateKey, date)
	record.Status = status
	record.Check1.Status = c1
	record.Check2.Status = c2
	record.Check3.Status = c3
	_, err = s.store.Attendance().Save(s.ctx, record, 0)
	s.Require().NoError(err)
}

func (s *PenaltyServiceSuite) daily(dateKey string) penalty.DailyViolationResult {
	result, err := s.service.CalculateDailyViolations(s.ctx, penalty.CalculateDailyRequest{Date: dateKey})
	s.Require().NoError(err)
	return result
}

func (s *PenaltyServiceSuite) TestThresholdWarnsThenFines() {
	days := []string{"2024-03-04", "2024-03-05", "2024-03-06", "2024-03-07"}
	for _, day := range days {
		s.putRecord("emp-1", day, attendance.StatusPresent,
			attendance.SlotStatusLate, attendance.SlotStatusOnTime, attendance.SlotStatusOnTime)
	}
	for _, day := range days {
		s.daily(day)
	}

	for i, day := range days {
		p, err := s.store.Penalties().GetByID(s.ctx, penalty.PenaltyID("emp-1", day, penalty.ViolationLate, "check1"))
		s.Require().NoError(err)
		s.Equal(i+1, p.ViolationCount)
		s.Equal(3, p.Threshold)
		if i < 3 {
			s.True(p.IsWarning, day)
			s.True(p.Amount.IsZero(), day)
		} else {
			s.False(p.IsWarning, day)
			s.True(p.Amount.Equal(decimal.NewFromInt(100)), p.Amount.String())
		}
	}

	s.notifications.Stop()
	list, err := s.notifications.GetNotifications(s.ctx, "emp-1", 1, 20, false)
	s.Require().NoError(err)
	s.Equal(4, list.Total)
	titles := map[string]int{}
	for _, n := range list.Notifications {
		titles[n.Title]++
	}
	s.Equal(3, titles["Attendance Violation Warning"])
	s.Equal(1, titles["Penalty Issued"])
}

func (s *PenaltyServiceSuite) TestSameDaySlotsCountTowardsThreshold() {
	settings, err := s.store.Settings().GetCompanySettings(s.ctx)
	s.Require().NoError(err)
	settings.PenaltyRules.ViolationThresholds["late"] = 1
	s.Require().NoError(s.store.Settings().SaveCompanySettings(s.ctx, settings))

	s.putRecord("emp-1", "2024-03-04", attendance.StatusPresent,
		attendance.SlotStatusLate, attendance.SlotStatusLate, attendance.SlotStatusOnTime)
	result := s.daily("2024-03-04")
	s.Equal(1, result.Warnings)
	s.Equal(1, result.Fines)

	second, err := s.store.Penalties().GetByID(s.ctx, penalty.PenaltyID("emp-1", "2024-03-04", penalty.ViolationLate, "check2"))
	s.Require().NoError(err)
	s.Equal(2, second.ViolationCount)
	s.False(second.IsWarning)
}

func (s *PenaltyServiceSuite) TestDailyIsIdempotent() {
	s.putRecord("emp-1", "2024-03-04", attendance.StatusAbsent,
		attendance.SlotStatusMissed, attendance.SlotStatusMissed, attendance.SlotStatusMissed)
	s.putRecord("emp-2", "2024-03-04", attendance.StatusHalfDayAbsent,
		attendance.SlotStatusLate, attendance.SlotStatusMissed, attendance.SlotStatusEarlyLeave)

	first := s.daily("2024-03-04")
	s.Equal(2, first.RecordsScanned)
	s.Equal(4, first.ViolationsDetected)
	s.Equal(4, first.PenaltiesCreated)
	// absent and half_day_absent have a zero threshold, so they are fined immediately.
	s.Equal(2, first.Fines)

	second := s.daily("2024-03-04")
	s.Equal(0, second.PenaltiesCreated)
	s.Equal(4, second.AlreadyRecorded)

	all, err := s.store.Penalties().ListBetween(s.ctx,
		time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC), nil)
	s.Require().NoError(err)
	s.Len(all, 4)
}

func (s *PenaltyServiceSuite) TestDailySkipsHolidays() {
	s.now = s.now.AddDate(0, 0, 4)
	s.putRecord("emp-1", "2024-03-11", attendance.StatusAbsent,
		attendance.SlotStatusMissed, attendance.SlotStatusMissed, attendance.SlotStatusMissed)

	result := s.daily("2024-03-11")
	s.True(result.Skipped)
	s.Equal("holiday", result.SkipReason)
	s.Zero(result.PenaltiesCreated)
}

func (s *PenaltyServiceSuite) TestDailyRejectsFutureDates() {
	s.putRecord("emp-1", "2024-03-09", attendance.StatusAbsent,
		attendance.SlotStatusMissed, attendance.SlotStatusMissed, attendance.SlotStatusMissed)

	_, err := s.service.CalculateDailyViolations(s.ctx, penalty.CalculateDailyRequest{Date: "2024-03-09"})
	var verrs validator.ValidationErrors
	s.Require().ErrorAs(err, &verrs)
	s.Equal("date must not be in the future", verrs.ToMap()["date"])

	_, err = s.store.Penalties().GetByID(s.ctx, penalty.PenaltyID("emp-1", "2024-03-09", penalty.ViolationAbsent, penalty.FieldStatus))
	s.ErrorIs(err, penalty.ErrPenaltyNotFound)
}

func (s *PenaltyServiceSuite) TestDailyTodaySkipsOpenRecords() {
	// Now is 2024-03-08 10:00: check1 is resolved, the rest of the day is still open.
	s.putRecord("emp-1", "2024-03-08", attendance.StatusAbsent,
		attendance.SlotStatusLate, attendance.SlotStatusUnset, attendance.SlotStatusUnset)
	s.putRecord("emp-2", "2024-03-08", attendance.StatusPresent,
		attendance.SlotStatusLate, attendance.SlotStatusOnTime, attendance.SlotStatusOnTime)

	result := s.daily("2024-03-08")
	s.Equal(2, result.RecordsScanned)
	s.Equal(1, result.RecordsOpen)
	s.Equal(1, result.PenaltiesCreated)

	_, err := s.store.Penalties().GetByID(s.ctx, penalty.PenaltyID("emp-1", "2024-03-08", penalty.ViolationLate, "check1"))
	s.ErrorIs(err, penalty.ErrPenaltyNotFound)
	_, err = s.store.Penalties().GetByID(s.ctx, penalty.PenaltyID("emp-2", "2024-03-08", penalty.ViolationLate, "check1"))
	s.NoError(err)
}

func (s *PenaltyServiceSuite) TestDailyForOneUser() {
	s.putRecord("emp-1", "2024-03-04", attendance.StatusAbsent,
		attendance.SlotStatusMissed, attendance.SlotStatusMissed, attendance.SlotStatusMissed)
	s.putRecord("emp-2", "2024-03-04", attendance.StatusAbsent,
		attendance.SlotStatusMissed, attendance.SlotStatusMissed, attendance.SlotStatusMissed)

	userID := "emp-2"
	result, err := s.service.CalculateDailyViolations(s.ctx, penalty.CalculateDailyRequest{Date: "2024-03-04", UserID: &userID})
	s.Require().NoError(err)
	s.Equal(1, result.RecordsScanned)
	s.Equal(1, result.PenaltiesCreated)
}

func (s *PenaltyServiceSuite) TestMonthlySummary() {
	s.putRecord("emp-1", "2024-03-04", attendance.StatusAbsent,
		attendance.SlotStatusMissed, attendance.SlotStatusMissed, attendance.SlotStatusMissed)
	s.putRecord("emp-1", "2024-03-05", attendance.StatusPresent,
		attendance.SlotStatusLate, attendance.SlotStatusOnTime, attendance.SlotStatusOnTime)
	s.putRecord("emp-2", "2024-03-06", attendance.StatusPresent,
		attendance.SlotStatusOnTime, attendance.SlotStatusOnTime, attendance.SlotStatusEarlyLeave)
	// Today is 2024-03-08 so this record is not evaluated yet.
	s.putRecord("emp-2", "2024-03-08", attendance.StatusAbsent,
		attendance.SlotStatusMissed, attendance.SlotStatusMissed, attendance.SlotStatusMissed)

	result, err := s.service.CalculateMonthlyViolations(s.ctx, penalty.CalculateMonthlyRequest{Month: "2024-03"})
	s.Require().NoError(err)
	s.Equal(7, result.DaysProcessed)
	s.Equal(3, result.PenaltiesCreated)
	s.Require().Len(result.Summaries, 2)

	emp1 := result.Summaries[0]
	s.Equal("emp-1", emp1.UserID)
	s.Equal(1, emp1.Counts[penalty.ViolationAbsent])
	s.Equal(1, emp1.Counts[penalty.ViolationLate])
	s.Equal(1, emp1.Fines)
	s.Equal(1, emp1.Warnings)
	s.True(emp1.TotalAmount.Equal(decimal.NewFromInt(150000)), emp1.TotalAmount.String())

	emp2 := result.Summaries[1]
	s.Equal(1, emp2.Warnings)
	s.True(emp2.TotalAmount.IsZero())
}

func (s *PenaltyServiceSuite) TestWaivePenalty() {
	s.putRecord("emp-1", "2024-03-04", attendance.StatusAbsent,
		attendance.SlotStatusMissed, attendance.SlotStatusMissed, attendance.SlotStatusMissed)
	s.daily("2024-03-04")
	id := penalty.PenaltyID("emp-1", "2024-03-04", penalty.ViolationAbsent, penalty.FieldStatus)

	_, err := s.service.WaivePenalty(s.ctx, penalty.WaivePenaltyRequest{PenaltyID: id, WaivedBy: "admin-1"})
	s.Error(err)

	resp, err := s.service.WaivePenalty(s.ctx, penalty.WaivePenaltyRequest{PenaltyID: id, WaivedBy: "admin-1", Reason: "doctor's note"})
	s.Require().NoError(err)
	s.Equal(penalty.StatusWaived, resp.Status)
	s.Require().NotNil(resp.WaivedBy)
	s.Equal("admin-1", *resp.WaivedBy)

	_, err = s.service.WaivePenalty(s.ctx, penalty.WaivePenaltyRequest{PenaltyID: id, WaivedBy: "admin-1", Reason: "again"})
	s.ErrorIs(err, penalty.ErrPenaltyNotActive)

	_, err = s.service.WaivePenalty(s.ctx, penalty.WaivePenaltyRequest{PenaltyID: "missing", WaivedBy: "admin-1", Reason: "x"})
	s.ErrorIs(err, penalty.ErrPenaltyNotFound)

	entries, err := s.store.AuditLogs().ListByResource(s.ctx, audit.ResourcePenalty, id)
	s.Require().NoError(err)
	s.Len(entries, 1)

	summary, err := s.service.CalculateMonthlyViolations(s.ctx, penalty.CalculateMonthlyRequest{Month: "2024-03"})
	s.Require().NoError(err)
	s.Require().Len(summary.Summaries, 1)
	s.Equal(1, summary.Summaries[0].Waived)
	s.True(summary.Summaries[0].TotalAmount.IsZero())
}

func (s *PenaltyServiceSuite) TestListMyPenalties() {
	s.putRecord("emp-1", "2024-03-04", attendance.StatusAbsent,
		attendance.SlotStatusMissed, attendance.SlotStatusMissed, attendance.SlotStatusMissed)
	s.putRecord("emp-2", "2024-03-04", attendance.StatusAbsent,
		attendance.SlotStatusMissed, attendance.SlotStatusMissed, attendance.SlotStatusMissed)
	s.daily("2024-03-04")

	mine, err := s.service.ListMyPenalties(s.ctx, "emp-1", "2024-03")
	s.Require().NoError(err)
	s.Require().Len(mine, 1)
	s.Equal("emp-1", mine[0].UserID)

	none, err := s.service.ListMyPenalties(s.ctx, "emp-1", "2024-02")
	s.Require().NoError(err)
	s.Empty(none)

	_, err = s.service.ListMyPenalties(s.ctx, "emp-1", "March")
	s.Error(err)
}

func TestDetectViolationsOrder(t *testing.T) {
	record := attendance.New("emp-1", "2024-03-04", time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC))
	record.Status = attendance.StatusHalfDayAbsent
	record.Check1.Status = attendance.SlotStatusLate
	record.Check2.Status = attendance.SlotStatusLate
	record.Check3.Status = attendance.SlotStatusEarlyLeave

	got := DetectViolations(record)
	require.Len(t, got, 4)
	assert.Equal(t, penalty.ViolationHalfDayAbsent, got[0].Type)
	assert.Equal(t, penalty.FieldStatus, got[0].Field)
	assert.Equal(t, "check1", got[1].Field)
	assert.Equal(t, "check2", got[2].Field)
	assert.Equal(t, penalty.ViolationEarlyLeave, got[3].Type)
	assert.Equal(t, "emp-1_2024-03-04_early_leave_check3", got[3].PenaltyID())

	record.Status = attendance.StatusOnLeave
	assert.Empty(t, DetectViolations(record))
}
