package company

import "errors"

var (
	ErrInvalidTimeWindow = errors.New("invalid time window")
	ErrInvalidTimezone   = errors.New("invalid company timezone")
	ErrSettingsCorrupted = errors.New("company settings document cannot be decoded")
)
