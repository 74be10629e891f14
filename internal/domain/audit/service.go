package audit

import "context"

// Service is the audit sink. Record assigns the ID and timestamp.
type Service interface {
	Record(ctx context.Context, entry Entry) error
}
