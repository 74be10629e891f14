package leave

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/company"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
)

// QuotaService moves days in and out of the user balance fields. Callers run
// it inside a transaction after locking the user row.
type QuotaService struct {
	userRepository  user.UserRepository
	leaveRepository leave.LeaveRequestRepository
	calculator      *QuotaCalculator
}

func NewQuotaService(userRepository user.UserRepository, leaveRepository leave.LeaveRequestRepository, calculator *QuotaCalculator) *QuotaService {
	return &QuotaService{
		userRepository:  userRepository,
		leaveRepository: leaveRepository,
		calculator:      calculator,
	}
}

// CheckAvailable fails with ErrInsufficientLeaveBalance when u cannot cover days.
func (q *QuotaService) CheckAvailable(u user.User, leaveType leave.LeaveType, days float64) error {
	if leave.Balance(u, leaveType) < days {
		return leave.ErrInsufficientLeaveBalance
	}
	return nil
}

// ReserveQuota debits days from the mapped balance, flooring at zero, and
// returns the amount actually debited. Cancelling credits back only that amount.
func (q *QuotaService) ReserveQuota(ctx context.Context, u user.User, leaveType leave.LeaveType, days float64) (user.User, float64, error) {
	balance := leave.Balance(u, leaveType)
	debited := min(days, max(balance, 0))
	u = leave.WithBalance(u, leaveType, balance-debited)
	if err := q.userRepository.UpdateLeaveBalances(ctx, u); err != nil {
		return user.User{}, 0, fmt.Errorf("failed to update leave balance: %w", err)
	}
	return u, debited, nil
}

// ReleaseQuota credits days back to the mapped balance.
func (q *QuotaService) ReleaseQuota(ctx context.Context, u user.User, leaveType leave.LeaveType, days float64) (user.User, error) {
	u = leave.WithBalance(u, leaveType, leave.Balance(u, leaveType)+days)
	if err := q.userRepository.UpdateLeaveBalances(ctx, u); err != nil {
		return user.User{}, fmt.Errorf("failed to update leave balance: %w", err)
	}
	return u, nil
}

// Summary reports balance, entitlement and approved days for every balance type.
func (q *QuotaService) Summary(ctx context.Context, settings company.Settings, u user.User, year int) (leave.LeaveBalanceResponse, error) {
	approved, err := q.leaveRepository.SumApprovedDays(ctx, u.ID, year)
	if err != nil {
		return leave.LeaveBalanceResponse{}, fmt.Errorf("failed to sum approved leave: %w", err)
	}
	taken := q.calculator.CalculateTaken(approved)

	resp := leave.LeaveBalanceResponse{UserID: u.ID, Year: year}
	for _, leaveType := range leave.BalanceTypes() {
		resp.Balances = append(resp.Balances, leave.LeaveBalanceItem{
			LeaveType:   leaveType,
			Balance:     leave.Balance(u, leaveType),
			Entitlement: q.calculator.CalculateEntitlement(settings, leaveType),
			Taken:       taken[leaveType],
		})
	}
	return resp, nil
}
