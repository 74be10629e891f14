package leave

import "context"

type LeaveService interface {
	SubmitLeaveRequest(ctx context.Context, req CreateLeaveRequestRequest) (LeaveRequestResponse, error)

	// HandleLeaveApproval approves or rejects a pending request in one transaction
	HandleLeaveApproval(ctx context.Context, req ReviewLeaveRequest) (LeaveRequestResponse, error)

	// CancelLeaveRequest is owner-only; approved requests get their balance and attendance restored
	CancelLeaveRequest(ctx context.Context, requestID, userID string) (LeaveRequestResponse, error)

	GetLeaveBalance(ctx context.Context, userID string, year *int) (LeaveBalanceResponse, error)

	ListMyLeaveRequests(ctx context.Context, userID string) ([]LeaveRequestResponse, error)
}
