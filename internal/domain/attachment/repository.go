package attachment

import "context"

type Repository interface {
	GetByID(ctx context.Context, id string) (Attachment, error)
}
