package jobflag

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Flag is the persisted state of one run of a scheduled job.
type Flag struct {
	ID          string
	Status      Status
	StartedAt   time.Time
	HeartbeatAt time.Time
	CompletedAt *time.Time
	Error       *string
	Result      map[string]interface{}
}

// Claimable reports whether a new runner may take the flag over at now.
func (f Flag) Claimable(now time.Time, staleAfter time.Duration) bool {
	switch f.Status {
	case StatusError:
		return true
	case StatusProcessing:
		return now.Sub(f.HeartbeatAt) > staleAfter
	}
	return false
}

func FinalizationID(dateKey string) string {
	return fmt.Sprintf("finalization_%s", dateKey)
}

func MonthlyPenaltiesID(month string) string {
	return fmt.Sprintf("monthly_penalties_%s", month)
}
