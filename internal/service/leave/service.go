package leave

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/company"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
)

type LeaveServiceImpl struct {
	db database.Transactor
	leave.LeaveRequestRepository
	userRepository      user.UserRepository
	settings            company.SettingsProvider
	notificationRepo    notification.Repository
	notificationService notification.Service
	auditService        audit.Service
	quotaService        *QuotaService
	requestService      *RequestService
	now                 func() time.Time
}

// SubmitLeaveRequest implements leave.LeaveService.
func (l *LeaveServiceImpl) SubmitLeaveRequest(ctx context.Context, req leave.CreateLeaveRequestRequest) (leave.LeaveRequestResponse, error) {
	if err := req.Validate(); err != nil {
		return leave.LeaveRequestResponse{}, err
	}
	leaveType := leave.LeaveType(req.LeaveType)

	settings, err := l.settings.GetCompanySettings(ctx)
	if err != nil {
		return leave.LeaveRequestResponse{}, fmt.Errorf("failed to load company settings: %w", err)
	}
	loc, err := settings.Location()
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	start, end, err := l.requestService.validateDates(leaveType, req.StartDate, req.EndDate, l.now().In(loc))
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}
	if err := l.requestService.checkAttachment(ctx, leaveType, req.AttachmentID, req.UserID); err != nil {
		return leave.LeaveRequestResponse{}, err
	}
	totalDays := leave.TotalDaysFor(leaveType, start, end)

	var created leave.LeaveRequest
	err = l.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		// The row lock serializes concurrent submissions by the same user.
		u, err := l.userRepository.GetByIDForUpdate(txCtx, req.UserID)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}
		if !u.IsActive {
			return user.ErrUserInactive
		}

		overlap, err := l.LeaveRequestRepository.HasOverlap(txCtx, req.UserID, start, end)
		if err != nil {
			return fmt.Errorf("failed to check overlapping requests: %w", err)
		}
		if overlap {
			return leave.ErrOverlappingLeaveRequest
		}

		if err := l.quotaService.CheckAvailable(u, leaveType, totalDays); err != nil {
			return err
		}

		created, err = l.LeaveRequestRepository.Create(txCtx, leave.LeaveRequest{
			ID:           utils.NewID(),
			UserID:       req.UserID,
			LeaveType:    leaveType,
			StartDate:    start,
			EndDate:      end,
			TotalDays:    totalDays,
			Reason:       req.Reason,
			Status:       leave.LeaveRequestStatusPending,
			AttachmentID: req.AttachmentID,
		})
		if err != nil {
			return fmt.Errorf("failed to create leave request: %w", err)
		}
		return nil
	})
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	l.notify(ctx, created, notification.TypeLeaveRequest, "Leave Request Submitted",
		fmt.Sprintf("Your %s leave request for %s to %s (%.1f days) is waiting for review.",
			created.LeaveType, created.StartDate.Format(validator.DateLayout), created.EndDate.Format(validator.DateLayout), created.TotalDays))

	return leave.NewLeaveRequestResponse(created), nil
}

// HandleLeaveApproval implements leave.LeaveService.
func (l *LeaveServiceImpl) HandleLeaveApproval(ctx context.Context, req leave.ReviewLeaveRequest) (leave.LeaveRequestResponse, error) {
	if err := req.Validate(); err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	reviewer, err := l.userRepository.GetByID(ctx, req.ReviewerID)
	if err != nil {
		return leave.LeaveRequestResponse{}, fmt.Errorf("failed to get reviewer: %w", err)
	}
	if !reviewer.CanApprove() {
		return leave.LeaveRequestResponse{}, user.ErrInsufficientPermissions
	}

	now := l.now()
	var (
		reviewed leave.LeaveRequest
		days     []backfillDay
	)
	err = l.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		request, err := l.LeaveRequestRepository.GetByIDForUpdate(txCtx, req.RequestID)
		if err != nil {
			return fmt.Errorf("failed to get leave request: %w", err)
		}
		if request.Status != leave.LeaveRequestStatusPending {
			return leave.ErrLeaveRequestAlreadyProcessed
		}

		if req.Action == leave.ReviewActionApprove {
			u, err := l.userRepository.GetByIDForUpdate(txCtx, request.UserID)
			if err != nil {
				return fmt.Errorf("failed to get user: %w", err)
			}
			if days, err = l.requestService.loadBackfill(txCtx, request); err != nil {
				return err
			}

			_, debited, err := l.quotaService.ReserveQuota(txCtx, u, request.LeaveType, request.TotalDays)
			if err != nil {
				return err
			}
			if debited < request.TotalDays {
				slog.Warn("leave approved beyond remaining balance",
					"leave_request_id", request.ID, "total_days", request.TotalDays, "debited_days", debited)
			}
			request.DebitedDays = debited
			if err := l.requestService.applyBackfill(txCtx, request, days, now); err != nil {
				return err
			}
			request.Status = leave.LeaveRequestStatusApproved
		} else {
			request.Status = leave.LeaveRequestStatusRejected
		}

		reviewerID := req.ReviewerID
		request.ReviewedBy = &reviewerID
		request.ReviewedAt = &now
		request.ReviewerNotes = req.Notes
		if err := l.LeaveRequestRepository.Update(txCtx, request); err != nil {
			return fmt.Errorf("failed to update leave request: %w", err)
		}

		n := notification.NewNotification(reviewNotification(request), now)
		n.ID = utils.NewID()
		if err := l.notificationRepo.Create(txCtx, n); err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}

		reviewed = request
		return nil
	})
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	l.auditReview(ctx, reviewed, days)
	return leave.NewLeaveRequestResponse(reviewed), nil
}

func reviewNotification(request leave.LeaveRequest) notification.CreateNotificationRequest {
	period := fmt.Sprintf("%s to %s", request.StartDate.Format(validator.DateLayout), request.EndDate.Format(validator.DateLayout))
	req := notification.CreateNotificationRequest{
		RecipientID: request.UserID,
		Category:    notification.CategoryLeave,
		RelatedID:   &request.ID,
		Data: map[string]interface{}{
			"leave_type": string(request.LeaveType),
			"total_days": request.TotalDays,
		},
	}
	if request.Status == leave.LeaveRequestStatusApproved {
		req.Type = notification.TypeLeaveApproved
		req.Title = "Leave Request Approved"
		req.Message = fmt.Sprintf("Your %s leave for %s was approved.", request.LeaveType, period)
	} else {
		req.Type = notification.TypeLeaveRejected
		req.Title = "Leave Request Rejected"
		req.Message = fmt.Sprintf("Your %s leave for %s was rejected.", request.LeaveType, period)
		if request.ReviewerNotes != nil {
			req.Message += " Notes: " + *request.ReviewerNotes
		}
	}
	return req
}

// auditReview logs the decision and every backfilled day whose status
// actually changed. Failures are logged and otherwise ignored.
func (l *LeaveServiceImpl) auditReview(ctx context.Context, request leave.LeaveRequest, days []backfillDay) {
	action := audit.ActionLeaveRejected
	if request.Status == leave.LeaveRequestStatusApproved {
		action = audit.ActionLeaveApproved
	}
	if err := l.auditService.Record(ctx, audit.Entry{
		Action:      action,
		Resource:    audit.ResourceLeaveRequest,
		ResourceID:  request.ID,
		PerformedBy: *request.ReviewedBy,
		OldValues:   map[string]interface{}{"status": string(leave.LeaveRequestStatusPending)},
		NewValues:   map[string]interface{}{"status": string(request.Status)},
	}); err != nil {
		slog.Warn("failed to record leave review audit entry", "leave_request_id", request.ID, "error", err)
	}

	for _, day := range days {
		if day.previousStatus == attendance.StatusOnLeave {
			continue
		}
		if err := l.auditService.Record(ctx, audit.Entry{
			Action:      audit.ActionLeaveBackfill,
			Resource:    audit.ResourceAttendance,
			ResourceID:  day.record.ID,
			PerformedBy: *request.ReviewedBy,
			OldValues:   map[string]interface{}{"status": string(day.previousStatus), "existed": day.existed},
			NewValues:   map[string]interface{}{"status": string(attendance.StatusOnLeave), "leave_request_id": request.ID},
		}); err != nil {
			slog.Warn("failed to record backfill audit entry", "record_id", day.record.ID, "error", err)
		}
	}
}

// CancelLeaveRequest implements leave.LeaveService.
func (l *LeaveServiceImpl) CancelLeaveRequest(ctx context.Context, requestID, userID string) (leave.LeaveRequestResponse, error) {
	if validator.IsEmpty(requestID) {
		return leave.LeaveRequestResponse{}, validator.ValidationErrors{{Field: "request_id", Message: "request_id is required"}}
	}

	now := l.now()
	var (
		cancelled leave.LeaveRequest
		removed   []attendance.Attendance
	)
	err := l.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		request, err := l.LeaveRequestRepository.GetByIDForUpdate(txCtx, requestID)
		if err != nil {
			return fmt.Errorf("failed to get leave request: %w", err)
		}
		if request.UserID != userID {
			return leave.ErrNotLeaveRequestOwner
		}
		if request.Status != leave.LeaveRequestStatusPending && request.Status != leave.LeaveRequestStatusApproved {
			return leave.ErrLeaveRequestNotCancellable
		}

		if request.Status == leave.LeaveRequestStatusApproved {
			u, err := l.userRepository.GetByIDForUpdate(txCtx, request.UserID)
			if err != nil {
				return fmt.Errorf("failed to get user: %w", err)
			}
			if removed, err = l.requestService.findBackfill(txCtx, request); err != nil {
				return err
			}

			if _, err := l.quotaService.ReleaseQuota(txCtx, u, request.LeaveType, request.DebitedDays); err != nil {
				return err
			}
			if err := l.requestService.deleteBackfill(txCtx, removed); err != nil {
				return err
			}
		}

		request.Status = leave.LeaveRequestStatusCancelled
		request.CancelledAt = &now
		if err := l.LeaveRequestRepository.Update(txCtx, request); err != nil {
			return fmt.Errorf("failed to update leave request: %w", err)
		}
		cancelled = request
		return nil
	})
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	if err := l.auditService.Record(ctx, audit.Entry{
		Action:      audit.ActionLeaveCancelled,
		Resource:    audit.ResourceLeaveRequest,
		ResourceID:  cancelled.ID,
		PerformedBy: userID,
		NewValues:   map[string]interface{}{"status": string(cancelled.Status), "removed_records": len(removed)},
	}); err != nil {
		slog.Warn("failed to record leave cancel audit entry", "leave_request_id", cancelled.ID, "error", err)
	}
	for _, record := range removed {
		if err := l.auditService.Record(ctx, audit.Entry{
			Action:      audit.ActionLeaveBackfillDel,
			Resource:    audit.ResourceAttendance,
			ResourceID:  record.ID,
			PerformedBy: userID,
			OldValues:   map[string]interface{}{"status": string(record.Status), "leave_request_id": cancelled.ID},
		}); err != nil {
			slog.Warn("failed to record backfill removal audit entry", "record_id", record.ID, "error", err)
		}
	}

	l.notify(ctx, cancelled, notification.TypeLeaveCancelled, "Leave Request Cancelled",
		fmt.Sprintf("Your %s leave for %s to %s was cancelled.",
			cancelled.LeaveType, cancelled.StartDate.Format(validator.DateLayout), cancelled.EndDate.Format(validator.DateLayout)))

	return leave.NewLeaveRequestResponse(cancelled), nil
}

// GetLeaveBalance implements leave.LeaveService.
func (l *LeaveServiceImpl) GetLeaveBalance(ctx context.Context, userID string, year *int) (leave.LeaveBalanceResponse, error) {
	settings, err := l.settings.GetCompanySettings(ctx)
	if err != nil {
		return leave.LeaveBalanceResponse{}, fmt.Errorf("failed to load company settings: %w", err)
	}

	y := 0
	if year != nil {
		y = *year
	} else {
		loc, err := settings.Location()
		if err != nil {
			return leave.LeaveBalanceResponse{}, err
		}
		y = l.now().In(loc).Year()
	}

	u, err := l.userRepository.GetByID(ctx, userID)
	if err != nil {
		return leave.LeaveBalanceResponse{}, fmt.Errorf("failed to get user: %w", err)
	}
	return l.quotaService.Summary(ctx, settings, u, y)
}

// ListMyLeaveRequests implements leave.LeaveService.
func (l *LeaveServiceImpl) ListMyLeaveRequests(ctx context.Context, userID string) ([]leave.LeaveRequestResponse, error) {
	requests, err := l.LeaveRequestRepository.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave requests: %w", err)
	}

	responses := make([]leave.LeaveRequestResponse, 0, len(requests))
	for _, r := range requests {
		responses = append(responses, leave.NewLeaveRequestResponse(r))
	}
	return responses, nil
}

func (l *LeaveServiceImpl) notify(ctx context.Context, request leave.LeaveRequest, t notification.NotificationType, title, message string) {
	if err := l.notificationService.QueueNotification(ctx, notification.CreateNotificationRequest{
		RecipientID: request.UserID,
		Type:        t,
		Category:    notification.CategoryLeave,
		Title:       title,
		Message:     message,
		RelatedID:   &request.ID,
	}); err != nil {
		slog.Warn("failed to queue leave notification", "leave_request_id", request.ID, "error", err)
	}
}

func NewLeaveService(
	db database.Transactor,
	settings company.SettingsProvider,
	leaveRequestRepo leave.LeaveRequestRepository,
	userRepo user.UserRepository,
	notificationRepo notification.Repository,
	notificationService notification.Service,
	auditService audit.Service,
	quotaService *QuotaService,
	requestService *RequestService,
	now func() time.Time,
) leave.LeaveService {
	if now == nil {
		now = time.Now
	}
	return &LeaveServiceImpl{
		db:                     db,
		LeaveRequestRepository: leaveRequestRepo,
		userRepository:         userRepo,
		settings:               settings,
		notificationRepo:       notificationRepo,
		notificationService:    notificationService,
		auditService:           auditService,
		quotaService:           quotaService,
		requestService:         requestService,
		now:                    now,
	}
}
