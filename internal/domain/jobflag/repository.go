package jobflag

import (
	"context"
	"time"
)

// Guard is a compare-and-set lease over job runs. Claim succeeds when the
// flag is absent, in error, or processing with a heartbeat older than
// staleAfter. Completed flags are never claimed again.
type Guard interface {
	Claim(ctx context.Context, id string, staleAfter time.Duration) (bool, error)
	Heartbeat(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, result map[string]interface{}) error
	Fail(ctx context.Context, id string, cause error) error
	// LastError returns the message of a run that failed and has not been
	// completed since.
	LastError(ctx context.Context, id string) (string, bool, error)
}
