package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attachment"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type attachmentRepository struct {
	db *database.DB
}

func NewAttachmentRepository(db *database.DB) attachment.Repository {
	return &attachmentRepository{db: db}
}

// GetByID implements attachment.Repository.
func (r *attachmentRepository) GetByID(ctx context.Context, id string) (attachment.Attachment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, owner_id, status, file_name, content_type, size_bytes, created_at
		FROM attachments
		WHERE id = $1
	`

	var a attachment.Attachment
	err := q.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.OwnerID,
		&a.Status,
		&a.FileName,
		&a.ContentType,
		&a.SizeBytes,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attachment.Attachment{}, attachment.ErrAttachmentNotFound
		}
		return attachment.Attachment{}, fmt.Errorf("failed to get attachment: %w", err)
	}

	return a, nil
}
