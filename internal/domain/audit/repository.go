package audit

import "context"

type Repository interface {
	Create(ctx context.Context, entry Entry) error
	ListByResource(ctx context.Context, resource, resourceID string) ([]Entry, error)
}
