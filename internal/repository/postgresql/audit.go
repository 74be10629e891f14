package postgresql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
)

type auditRepository struct {
	db *database.DB
}

func NewAuditRepository(db *database.DB) audit.Repository {
	return &auditRepository{db: db}
}

func marshalJSONB(values map[string]interface{}) ([]byte, error) {
	if values == nil {
		return nil, nil
	}
	return json.Marshal(values)
}

// Create implements audit.Repository.
func (r *auditRepository) Create(ctx context.Context, entry audit.Entry) error {
	q := GetQuerier(ctx, r.db)

	oldValues, err := marshalJSONB(entry.OldValues)
	if err != nil {
		return fmt.Errorf("failed to marshal audit old values: %w", err)
	}
	newValues, err := marshalJSONB(entry.NewValues)
	if err != nil {
		return fmt.Errorf("failed to marshal audit new values: %w", err)
	}
	metadata, err := marshalJSONB(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal audit metadata: %w", err)
	}

	query := `
		INSERT INTO audit_logs (id, action, resource, resource_id, status, performed_by, old_values, new_values, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = q.Exec(ctx, query,
		entry.ID,
		entry.Action,
		entry.Resource,
		entry.ResourceID,
		string(entry.Status),
		entry.PerformedBy,
		oldValues,
		newValues,
		metadata,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	return nil
}

// ListByResource implements audit.Repository.
func (r *auditRepository) ListByResource(ctx context.Context, resource, resourceID string) ([]audit.Entry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, action, resource, resource_id, status, performed_by, old_values, new_values, metadata, created_at
		FROM audit_logs
		WHERE resource = $1 AND resource_id = $2
		ORDER BY created_at
	`

	rows, err := q.Query(ctx, query, resource, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			e                              audit.Entry
			oldValues, newValues, metadata []byte
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.Resource, &e.ResourceID, &e.Status, &e.PerformedBy,
			&oldValues, &newValues, &metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		for _, field := range []struct {
			raw  []byte
			dest *map[string]interface{}
		}{{oldValues, &e.OldValues}, {newValues, &e.NewValues}, {metadata, &e.Metadata}} {
			if len(field.raw) == 0 {
				continue
			}
			if err := json.Unmarshal(field.raw, field.dest); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit values: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit logs: %w", err)
	}

	return entries, nil
}
