package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/jobflag"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type jobFlagRepository struct {
	db *database.DB
}

// NewJobFlagGuard stores job leases in the system_flags table.
func NewJobFlagGuard(db *database.DB) jobflag.Guard {
	return &jobFlagRepository{db: db}
}

// Claim implements jobflag.Guard.
func (r *jobFlagRepository) Claim(ctx context.Context, id string, staleAfter time.Duration) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO system_flags (id, status, started_at, heartbeat_at)
		VALUES ($1, 'processing', NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET status = 'processing', started_at = NOW(), heartbeat_at = NOW(),
			completed_at = NULL, error = NULL, result = NULL
		WHERE system_flags.status = 'error'
		   OR (system_flags.status = 'processing'
		       AND system_flags.heartbeat_at < NOW() - make_interval(secs => $2))
		RETURNING id
	`

	var claimed string
	err := q.QueryRow(ctx, query, id, staleAfter.Seconds()).Scan(&claimed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim job flag %s: %w", id, err)
	}

	return true, nil
}

// Heartbeat implements jobflag.Guard.
func (r *jobFlagRepository) Heartbeat(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `UPDATE system_flags SET heartbeat_at = NOW() WHERE id = $1 AND status = 'processing'`, id)
	if err != nil {
		return fmt.Errorf("failed to heartbeat job flag %s: %w", id, err)
	}

	return nil
}

// Complete implements jobflag.Guard.
func (r *jobFlagRepository) Complete(ctx context.Context, id string, result map[string]interface{}) error {
	q := GetQuerier(ctx, r.db)

	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal job result: %w", err)
	}

	query := `
		UPDATE system_flags
		SET status = 'completed', completed_at = NOW(), heartbeat_at = NOW(), result = $2, error = NULL
		WHERE id = $1
	`
	if _, err := q.Exec(ctx, query, id, raw); err != nil {
		return fmt.Errorf("failed to complete job flag %s: %w", id, err)
	}

	return nil
}

// Fail implements jobflag.Guard.
func (r *jobFlagRepository) Fail(ctx context.Context, id string, cause error) error {
	q := GetQuerier(ctx, r.db)

	message := "unknown error"
	if cause != nil {
		message = cause.Error()
	}

	query := `UPDATE system_flags SET status = 'error', error = $2, heartbeat_at = NOW() WHERE id = $1`
	if _, err := q.Exec(ctx, query, id, message); err != nil {
		return fmt.Errorf("failed to mark job flag %s as failed: %w", id, err)
	}

	return nil
}

// LastError implements jobflag.Guard.
func (r *jobFlagRepository) LastError(ctx context.Context, id string) (string, bool, error) {
	q := GetQuerier(ctx, r.db)

	var message *string
	err := q.QueryRow(ctx, `SELECT error FROM system_flags WHERE id = $1 AND status = 'error'`, id).Scan(&message)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read job flag %s: %w", id, err)
	}
	if message == nil {
		return "unknown error", true, nil
	}
	return *message, true, nil
}
