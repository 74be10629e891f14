package leave

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attachment"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/presence-backend-go/internal/repository/memory"
	auditsvc "github.com/cmlabs-hris/presence-backend-go/internal/service/audit"
	notificationsvc "github.com/cmlabs-hris/presence-backend-go/internal/service/notification"
	"github.com/stretchr/testify/suite"
)

type LeaveServiceSuite struct {
	suite.Suite
	ctx           context.Context
	store         *memory.Store
	notifications notification.Service
	service       leave.LeaveService
	now           time.Time
}

func TestLeaveServiceSuite(t *testing.T) {
	suite.Run(t, new(LeaveServiceSuite))
}

func (s *LeaveServiceSuite) SetupTest() {
	s.ctx = context.Background()
	loc, err := time.LoadLocation("Asia/Jakarta")
	s.Require().NoError(err)
	s.now = time.Date(2024, time.March, 18, 9, 0, 0, 0, loc)
	clock := func() time.Time { return s.now }

	s.store = memory.NewStore()
	s.store.SetClock(clock)
	s.store.PutUser(user.User{ID: "emp-1", Role: user.RoleEmployee, IsActive: true,
		FullLeaveBalance: 12, MedicalLeaveBalance: 14, MaternityLeaveBalance: 90})
	s.store.PutUser(user.User{ID: "emp-2", Role: user.RoleEmployee, IsActive: true, FullLeaveBalance: 2})
	s.store.PutUser(user.User{ID: "mgr-1", Role: user.RoleManager, IsActive: true})
	s.store.PutAttachment(attachment.Attachment{ID: "att-ready", OwnerID: "emp-1", Status: attachment.StatusReady})
	s.store.PutAttachment(attachment.Attachment{ID: "att-pending", OwnerID: "emp-1", Status: attachment.StatusPending})
	s.store.PutAttachment(attachment.Attachment{ID: "att-other", OwnerID: "emp-2", Status: attachment.StatusReady})

	s.notifications = notificationsvc.NewNotificationService(s.store.Notifications(), nil, notificationsvc.Config{
		BatchSize: 10, FlushInterval: time.Hour, WorkerCount: 1, QueueSize: 100,
	})
	s.service = NewLeaveService(
		s.store.Transactor(),
		s.store.Settings(),
		s.store.LeaveRequests(),
		s.store.Users(),
		s.store.Notifications(),
		s.notifications,
		auditsvc.NewAuditService(s.store.AuditLogs(), clock),
		NewQuotaService(s.store.Users(), s.store.LeaveRequests(), NewQuotaCalculator()),
		NewRequestService(s.store.Attendance(), s.store.Attachments()),
		clock,
	)
}

func (s *LeaveServiceSuite) TearDownTest() {
	s.notifications.Stop()
}

func (s *LeaveServiceSuite) submit(userID, leaveType, start, end string, attachmentID *string) (leave.LeaveRequestResponse, error) {
	return s.service.SubmitLeaveRequest(s.ctx, leave.CreateLeaveRequestRequest{
		UserID:       userID,
		LeaveType:    leaveType,
		StartDate:    start,
		EndDate:      end,
		Reason:       "family event",
		AttachmentID: attachmentID,
	})
}

func (s *LeaveServiceSuite) review(requestID string, action leave.ReviewAction) (leave.LeaveRequestResponse, error) {
	return s.service.HandleLeaveApproval(s.ctx, leave.ReviewLeaveRequest{
		RequestID:  requestID,
		ReviewerID: "mgr-1",
		Action:     action,
	})
}

func (s *LeaveServiceSuite) balance(userID string) user.User {
	u, err := s.store.Users().GetByID(s.ctx, userID)
	s.Require().NoError(err)
	return u
}

func (s *LeaveServiceSuite) TestSubmitLeaveRequest() {
	resp, err := s.submit("emp-1", "full", "2024-03-20", "2024-03-22", nil)
	s.Require().NoError(err)
	s.Equal(leave.LeaveRequestStatusPending, resp.Status)
	s.Equal(3.0, resp.TotalDays)
	s.NotEmpty(resp.ID)

	// Submitting does not touch the balance.
	s.Equal(12.0, s.balance("emp-1").FullLeaveBalance)

	s.notifications.Stop()
	list, err := s.notifications.GetNotifications(s.ctx, "emp-1", 1, 10, false)
	s.Require().NoError(err)
	s.Equal(1, list.Total)
	s.Equal(notification.TypeLeaveRequest, list.Notifications[0].Type)
}

func (s *LeaveServiceSuite) TestSubmitLeaveRequestStartingToday() {
	_, err := s.submit("emp-1", "half", "2024-03-18", "2024-03-18", nil)
	s.NoError(err)
}

func (s *LeaveServiceSuite) TestSubmitLeaveRequestRejections() {
	cases := []struct {
		name       string
		userID     string
		leaveType  string
		start, end string
		attachment *string
		want       error
	}{
		{"in the past", "emp-1", "full", "2024-03-17", "2024-03-18", nil, leave.ErrStartDateInPast},
		{"reversed range", "emp-1", "full", "2024-03-22", "2024-03-20", nil, leave.ErrInvalidDateRange},
		{"half day over two days", "emp-1", "half", "2024-03-20", "2024-03-21", nil, leave.ErrHalfDayMultipleDays},
		{"balance too small", "emp-2", "full", "2024-03-20", "2024-03-22", nil, leave.ErrInsufficientLeaveBalance},
		{"medical without attachment", "emp-1", "medical", "2024-03-20", "2024-03-20", nil, leave.ErrAttachmentRequired},
		{"unknown attachment", "emp-1", "medical", "2024-03-20", "2024-03-20", strPtr("att-missing"), attachment.ErrAttachmentNotFound},
		{"foreign attachment", "emp-1", "maternity", "2024-03-20", "2024-03-20", strPtr("att-other"), attachment.ErrAttachmentNotOwned},
		{"attachment not ready", "emp-1", "medical", "2024-03-20", "2024-03-20", strPtr("att-pending"), attachment.ErrAttachmentNotReady},
	}
	for _, c := range cases {
		s.Run(c.name, func() {
			_, err := s.submit(c.userID, c.leaveType, c.start, c.end, c.attachment)
			s.ErrorIs(err, c.want)
		})
	}
}

func (s *LeaveServiceSuite) TestSubmitMedicalWithReadyAttachment() {
	resp, err := s.submit("emp-1", "medical", "2024-03-20", "2024-03-21", strPtr("att-ready"))
	s.Require().NoError(err)
	s.Equal(leave.LeaveType("medical"), resp.LeaveType)
}

func (s *LeaveServiceSuite) TestSubmitRejectsOverlap() {
	_, err := s.submit("emp-1", "full", "2024-03-20", "2024-03-22", nil)
	s.Require().NoError(err)

	_, err = s.submit("emp-1", "full", "2024-03-22", "2024-03-25", nil)
	s.ErrorIs(err, leave.ErrOverlappingLeaveRequest)

	_, err = s.submit("emp-1", "full", "2024-03-23", "2024-03-25", nil)
	s.NoError(err)
}

func (s *LeaveServiceSuite) TestApproveAndCancelRoundTrip() {
	// An existing finalized day inside the range and one outside it.
	existing := attendance.New("emp-1", "2024-03-20", time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC))
	_, err := s.store.Attendance().Save(s.ctx, existing, 0)
	s.Require().NoError(err)
	outside := attendance.New("emp-1", "2024-03-25", time.Date(2024, time.March, 25, 0, 0, 0, 0, time.UTC))
	_, err = s.store.Attendance().Save(s.ctx, outside, 0)
	s.Require().NoError(err)

	submitted, err := s.submit("emp-1", "full", "2024-03-20", "2024-03-22", nil)
	s.Require().NoError(err)

	approved, err := s.review(submitted.ID, leave.ReviewActionApprove)
	s.Require().NoError(err)
	s.Equal(leave.LeaveRequestStatusApproved, approved.Status)
	s.Require().NotNil(approved.ReviewedBy)
	s.Equal("mgr-1", *approved.ReviewedBy)
	s.Equal(9.0, s.balance("emp-1").FullLeaveBalance)

	for _, key := range []string{"2024-03-20", "2024-03-21", "2024-03-22"} {
		record, _, err := s.store.Attendance().Get(s.ctx, attendance.RecordID("emp-1", key))
		s.Require().NoError(err, key)
		s.Equal(attendance.StatusOnLeave, record.Status)
		s.True(record.LeaveBackfill)
		s.Require().NotNil(record.LeaveRequestID)
		s.Equal(submitted.ID, *record.LeaveRequestID)
	}

	backfillAudits, err := s.store.AuditLogs().ListByResource(s.ctx, audit.ResourceAttendance, "emp-1_2024-03-20")
	s.Require().NoError(err)
	s.Require().Len(backfillAudits, 1)
	s.Equal(string(attendance.StatusAbsent), backfillAudits[0].OldValues["status"])

	// The approval notification is written in the same transaction, not queued.
	list, err := s.notifications.GetNotifications(s.ctx, "emp-1", 1, 10, false)
	s.Require().NoError(err)
	found := false
	for _, n := range list.Notifications {
		if n.Type == notification.TypeLeaveApproved {
			found = true
		}
	}
	s.True(found)

	balance, err := s.service.GetLeaveBalance(s.ctx, "emp-1", nil)
	s.Require().NoError(err)
	s.Equal(2024, balance.Year)
	s.Require().Len(balance.Balances, 3)
	s.Equal(leave.LeaveTypeFull, balance.Balances[0].LeaveType)
	s.Equal(9.0, balance.Balances[0].Balance)
	s.Equal(12.0, balance.Balances[0].Entitlement)
	s.Equal(3.0, balance.Balances[0].Taken)

	cancelled, err := s.service.CancelLeaveRequest(s.ctx, submitted.ID, "emp-1")
	s.Require().NoError(err)
	s.Equal(leave.LeaveRequestStatusCancelled, cancelled.Status)
	s.NotNil(cancelled.CancelledAt)
	s.Equal(12.0, s.balance("emp-1").FullLeaveBalance)

	for _, key := range []string{"2024-03-20", "2024-03-21", "2024-03-22"} {
		_, _, err := s.store.Attendance().Get(s.ctx, attendance.RecordID("emp-1", key))
		s.ErrorIs(err, attendance.ErrAttendanceNotFound, key)
	}
	_, _, err = s.store.Attendance().Get(s.ctx, "emp-1_2024-03-25")
	s.NoError(err)

	_, err = s.service.CancelLeaveRequest(s.ctx, submitted.ID, "emp-1")
	s.ErrorIs(err, leave.ErrLeaveRequestNotCancellable)
}

func (s *LeaveServiceSuite) TestRejectLeaveRequest() {
	submitted, err := s.submit("emp-1", "full", "2024-03-20", "2024-03-20", nil)
	s.Require().NoError(err)

	notes := "team offsite"
	resp, err := s.service.HandleLeaveApproval(s.ctx, leave.ReviewLeaveRequest{
		RequestID:  submitted.ID,
		ReviewerID: "mgr-1",
		Action:     leave.ReviewActionReject,
		Notes:      &notes,
	})
	s.Require().NoError(err)
	s.Equal(leave.LeaveRequestStatusRejected, resp.Status)
	s.Equal(&notes, resp.ReviewerNotes)
	s.Equal(12.0, s.balance("emp-1").FullLeaveBalance)

	_, _, err = s.store.Attendance().Get(s.ctx, "emp-1_2024-03-20")
	s.ErrorIs(err, attendance.ErrAttendanceNotFound)

	_, err = s.review(submitted.ID, leave.ReviewActionApprove)
	s.ErrorIs(err, leave.ErrLeaveRequestAlreadyProcessed)

	_, err = s.service.CancelLeaveRequest(s.ctx, submitted.ID, "emp-1")
	s.ErrorIs(err, leave.ErrLeaveRequestNotCancellable)
}

func (s *LeaveServiceSuite) TestReviewRequiresApprover() {
	submitted, err := s.submit("emp-1", "full", "2024-03-20", "2024-03-20", nil)
	s.Require().NoError(err)

	_, err = s.service.HandleLeaveApproval(s.ctx, leave.ReviewLeaveRequest{
		RequestID:  submitted.ID,
		ReviewerID: "emp-2",
		Action:     leave.ReviewActionApprove,
	})
	s.ErrorIs(err, user.ErrInsufficientPermissions)

	_, err = s.review("missing", leave.ReviewActionApprove)
	s.ErrorIs(err, leave.ErrLeaveRequestNotFound)
}

func (s *LeaveServiceSuite) TestCancelPendingByOwnerOnly() {
	submitted, err := s.submit("emp-1", "full", "2024-03-20", "2024-03-20", nil)
	s.Require().NoError(err)

	_, err = s.service.CancelLeaveRequest(s.ctx, submitted.ID, "emp-2")
	s.ErrorIs(err, leave.ErrNotLeaveRequestOwner)

	resp, err := s.service.CancelLeaveRequest(s.ctx, submitted.ID, "emp-1")
	s.Require().NoError(err)
	s.Equal(leave.LeaveRequestStatusCancelled, resp.Status)
	s.Equal(12.0, s.balance("emp-1").FullLeaveBalance)

	mine, err := s.service.ListMyLeaveRequests(s.ctx, "emp-1")
	s.Require().NoError(err)
	s.Len(mine, 1)
}

func (s *LeaveServiceSuite) TestHalfDayDrawsFromFullBalance() {
	submitted, err := s.submit("emp-1", "half", "2024-03-20", "2024-03-20", nil)
	s.Require().NoError(err)
	_, err = s.review(submitted.ID, leave.ReviewActionApprove)
	s.Require().NoError(err)

	s.Equal(11.5, s.balance("emp-1").FullLeaveBalance)

	year := 2024
	balance, err := s.service.GetLeaveBalance(s.ctx, "emp-1", &year)
	s.Require().NoError(err)
	s.Equal(0.5, balance.Balances[0].Taken)
}

func (s *LeaveServiceSuite) TestCancelRestoresOnlyDebitedDays() {
	first, err := s.submit("emp-2", "full", "2024-03-20", "2024-03-21", nil)
	s.Require().NoError(err)
	second, err := s.submit("emp-2", "full", "2024-03-25", "2024-03-26", nil)
	s.Require().NoError(err)

	approved, err := s.review(first.ID, leave.ReviewActionApprove)
	s.Require().NoError(err)
	s.Equal(2.0, approved.DebitedDays)
	approved, err = s.review(second.ID, leave.ReviewActionApprove)
	s.Require().NoError(err)
	s.Equal(0.0, approved.DebitedDays)
	s.Equal(2.0, approved.TotalDays)
	s.Equal(0.0, s.balance("emp-2").FullLeaveBalance)

	_, err = s.service.CancelLeaveRequest(s.ctx, second.ID, "emp-2")
	s.Require().NoError(err)
	s.Equal(0.0, s.balance("emp-2").FullLeaveBalance)

	_, err = s.service.CancelLeaveRequest(s.ctx, first.ID, "emp-2")
	s.Require().NoError(err)
	s.Equal(2.0, s.balance("emp-2").FullLeaveBalance)
}

func strPtr(s string) *string {
	return &s
}
