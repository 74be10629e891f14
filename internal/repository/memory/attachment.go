package memory

import (
	"context"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attachment"
)

type attachmentRepository struct {
	s *Store
}

func (r attachmentRepository) GetByID(ctx context.Context, id string) (attachment.Attachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.attachments[id]
	if !ok {
		return attachment.Attachment{}, attachment.ErrAttachmentNotFound
	}
	return a, nil
}
