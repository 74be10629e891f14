package penalty

import "context"

type PenaltyService interface {
	// CalculateDailyViolations turns the finalized records of one day into penalties
	CalculateDailyViolations(ctx context.Context, req CalculateDailyRequest) (DailyViolationResult, error)

	// CalculateMonthlyViolations replays the daily engine across a month and summarises it per user
	CalculateMonthlyViolations(ctx context.Context, req CalculateMonthlyRequest) (MonthlyViolationResult, error)

	WaivePenalty(ctx context.Context, req WaivePenaltyRequest) (PenaltyResponse, error)

	ListMyPenalties(ctx context.Context, userID, month string) ([]PenaltyResponse, error)
}
