package penalty

import "errors"

var (
	ErrPenaltyNotFound   = errors.New("penalty not found")
	ErrPenaltyNotActive  = errors.New("only active penalties can be waived")
	ErrWaiveReasonNeeded = errors.New("waive reason is required")
)
