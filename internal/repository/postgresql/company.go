package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/company"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type settingsRepository struct {
	db *database.DB
}

// NewSettingsRepository reads the singleton company_settings row on every call.
func NewSettingsRepository(db *database.DB) company.SettingsRepository {
	return &settingsRepository{db: db}
}

// GetCompanySettings implements company.SettingsProvider.
func (r *settingsRepository) GetCompanySettings(ctx context.Context) (company.Settings, error) {
	q := GetQuerier(ctx, r.db)

	var raw []byte
	err := q.QueryRow(ctx, `SELECT data FROM company_settings WHERE id = 1`).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return company.DefaultSettings(), nil
		}
		return company.Settings{}, fmt.Errorf("failed to get company settings: %w", err)
	}

	settings := company.DefaultSettings()
	if err := json.Unmarshal(raw, &settings); err != nil {
		return company.Settings{}, fmt.Errorf("%w: %v", company.ErrSettingsCorrupted, err)
	}

	return settings, nil
}

// SaveCompanySettings implements company.SettingsRepository.
func (r *settingsRepository) SaveCompanySettings(ctx context.Context, settings company.Settings) error {
	q := GetQuerier(ctx, r.db)

	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal company settings: %w", err)
	}

	query := `
		INSERT INTO company_settings (id, data, updated_at) VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`
	if _, err := q.Exec(ctx, query, raw); err != nil {
		return fmt.Errorf("failed to save company settings: %w", err)
	}

	return nil
}
