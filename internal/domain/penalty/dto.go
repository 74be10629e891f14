package penalty

import (
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ============= Request DTOs =============

type CalculateDailyRequest struct {
	Date   string  `json:"date"`
	UserID *string `json:"user_id,omitempty"`
}

func (r *CalculateDailyRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Date) {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date is required",
		})
	} else if _, ok := validator.IsValidDate(r.Date); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		})
	}

	if r.UserID != nil && validator.IsEmpty(*r.UserID) {
		errs = append(errs, validator.ValidationError{
			Field:   "user_id",
			Message: "user_id must not be blank",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type CalculateMonthlyRequest struct {
	Month  string  `json:"month"`
	UserID *string `json:"user_id,omitempty"`
}

func (r *CalculateMonthlyRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Month) {
		errs = append(errs, validator.ValidationError{
			Field:   "month",
			Message: "month is required",
		})
	} else if _, ok := validator.IsValidMonth(r.Month); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "month",
			Message: "month must be in YYYY-MM format",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type WaivePenaltyRequest struct {
	PenaltyID string `json:"-"`
	WaivedBy  string `json:"-"`
	Reason    string `json:"reason"`
}

func (r *WaivePenaltyRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.PenaltyID) {
		errs = append(errs, validator.ValidationError{
			Field:   "penalty_id",
			Message: "penalty_id is required",
		})
	}

	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ============= Response DTOs =============

type DailyViolationResult struct {
	Date               string `json:"date"`
	Skipped            bool   `json:"skipped"`
	SkipReason         string `json:"skip_reason,omitempty"`
	RecordsScanned     int    `json:"records_scanned"`
	RecordsOpen        int    `json:"records_open"`
	ViolationsDetected int    `json:"violations_detected"`
	PenaltiesCreated   int    `json:"penalties_created"`
	Warnings           int    `json:"warnings"`
	Fines              int    `json:"fines"`
	AlreadyRecorded    int    `json:"already_recorded"`
}

type UserViolationSummary struct {
	UserID      string                `json:"user_id"`
	Counts      map[ViolationType]int `json:"counts"`
	Warnings    int                   `json:"warnings"`
	Fines       int                   `json:"fines"`
	Waived      int                   `json:"waived"`
	TotalAmount decimal.Decimal       `json:"total_amount"`
}

type MonthlyViolationResult struct {
	Month            string                 `json:"month"`
	DaysProcessed    int                    `json:"days_processed"`
	DaysSkipped      int                    `json:"days_skipped"`
	PenaltiesCreated int                    `json:"penalties_created"`
	Summaries        []UserViolationSummary `json:"summaries"`
}

type PenaltyResponse struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	ViolationType  ViolationType   `json:"violation_type"`
	ViolationField string          `json:"violation_field"`
	DateKey        string          `json:"date_key"`
	DateIncurred   time.Time       `json:"date_incurred"`
	Amount         decimal.Decimal `json:"amount"`
	IsWarning      bool            `json:"is_warning"`
	ViolationCount int             `json:"violation_count"`
	Threshold      int             `json:"threshold"`
	Status         Status          `json:"status"`
	WaivedReason   *string         `json:"waived_reason,omitempty"`
	WaivedBy       *string         `json:"waived_by,omitempty"`
	WaivedAt       *time.Time      `json:"waived_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func NewPenaltyResponse(p Penalty) PenaltyResponse {
	return PenaltyResponse{
		ID:             p.ID,
		UserID:         p.UserID,
		ViolationType:  p.ViolationType,
		ViolationField: p.ViolationField,
		DateKey:        p.DateKey,
		DateIncurred:   p.DateIncurred,
		Amount:         p.Amount,
		IsWarning:      p.IsWarning,
		ViolationCount: p.ViolationCount,
		Threshold:      p.Threshold,
		Status:         p.Status,
		WaivedReason:   p.WaivedReason,
		WaivedBy:       p.WaivedBy,
		WaivedAt:       p.WaivedAt,
		CreatedAt:      p.CreatedAt,
	}
}
