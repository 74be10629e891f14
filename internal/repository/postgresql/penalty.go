package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/penalty"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const penaltyColumns = `id, user_id, violation_type, violation_field, date_key, date_incurred, amount,
	is_warning, violation_count, threshold, status, waived_reason, waived_by, waived_at,
	created_at, updated_at`

type penaltyRepositoryImpl struct {
	db *database.DB
}

func NewPenaltyRepository(db *database.DB) penalty.PenaltyRepository {
	return &penaltyRepositoryImpl{db: db}
}

func scanPenalty(row pgx.Row) (penalty.Penalty, error) {
	var p penalty.Penalty
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.ViolationType,
		&p.ViolationField,
		&p.DateKey,
		&p.DateIncurred,
		&p.Amount,
		&p.IsWarning,
		&p.ViolationCount,
		&p.Threshold,
		&p.Status,
		&p.WaivedReason,
		&p.WaivedBy,
		&p.WaivedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err == nil {
		p.DateIncurred = p.DateIncurred.UTC()
	}
	return p, err
}

// CreateIfAbsent implements penalty.PenaltyRepository.
func (r *penaltyRepositoryImpl) CreateIfAbsent(ctx context.Context, p penalty.Penalty) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO penalties (
			id, user_id, violation_type, violation_field, date_key, date_incurred, amount,
			is_warning, violation_count, threshold, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		ON CONFLICT (id) DO NOTHING
	`

	tag, err := q.Exec(ctx, query,
		p.ID,
		p.UserID,
		string(p.ViolationType),
		p.ViolationField,
		p.DateKey,
		p.DateIncurred,
		p.Amount,
		p.IsWarning,
		p.ViolationCount,
		p.Threshold,
		string(p.Status),
	)
	if err != nil {
		return false, fmt.Errorf("failed to create penalty: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Exists implements penalty.PenaltyRepository.
func (r *penaltyRepositoryImpl) Exists(ctx context.Context, id string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM penalties WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check penalty: %w", err)
	}

	return exists, nil
}

// GetByID implements penalty.PenaltyRepository.
func (r *penaltyRepositoryImpl) GetByID(ctx context.Context, id string) (penalty.Penalty, error) {
	q := GetQuerier(ctx, r.db)

	p, err := scanPenalty(q.QueryRow(ctx, `SELECT `+penaltyColumns+` FROM penalties WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return penalty.Penalty{}, penalty.ErrPenaltyNotFound
		}
		return penalty.Penalty{}, fmt.Errorf("failed to get penalty: %w", err)
	}

	return p, nil
}

// CountByUserTypeBetween implements penalty.PenaltyRepository.
func (r *penaltyRepositoryImpl) CountByUserTypeBetween(ctx context.Context, userID string, violationType penalty.ViolationType, from, to time.Time) (int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT COUNT(*)
		FROM penalties
		WHERE user_id = $1
		  AND violation_type = $2
		  AND date_incurred BETWEEN $3 AND $4
	`

	var count int
	if err := q.QueryRow(ctx, query, userID, string(violationType), from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count penalties: %w", err)
	}

	return count, nil
}

// ListBetween implements penalty.PenaltyRepository.
func (r *penaltyRepositoryImpl) ListBetween(ctx context.Context, from, to time.Time, userID *string) ([]penalty.Penalty, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + penaltyColumns + `
		FROM penalties
		WHERE date_incurred BETWEEN $1 AND $2
		  AND ($3::text IS NULL OR user_id = $3)
		ORDER BY user_id, date_incurred, id`

	rows, err := q.Query(ctx, query, from, to, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list penalties: %w", err)
	}
	defer rows.Close()

	var penalties []penalty.Penalty
	for rows.Next() {
		p, err := scanPenalty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan penalty: %w", err)
		}
		penalties = append(penalties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating penalties: %w", err)
	}

	return penalties, nil
}

// Update implements penalty.PenaltyRepository.
func (r *penaltyRepositoryImpl) Update(ctx context.Context, p penalty.Penalty) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE penalties
		SET status = $2, waived_reason = $3, waived_by = $4, waived_at = $5, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query, p.ID, string(p.Status), p.WaivedReason, p.WaivedBy, p.WaivedAt)
	if err != nil {
		return fmt.Errorf("failed to update penalty: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return penalty.ErrPenaltyNotFound
	}

	return nil
}
