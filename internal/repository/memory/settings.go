package memory

import (
	"context"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/company"
)

type settingsRepository struct {
	s *Store
}

func (r settingsRepository) GetCompanySettings(ctx context.Context) (company.Settings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.settings == nil {
		return company.DefaultSettings(), nil
	}
	return *r.s.settings, nil
}

func (r settingsRepository) SaveCompanySettings(ctx context.Context, settings company.Settings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	previous := r.s.settings
	r.s.track(ctx, func() { r.s.settings = previous })
	r.s.settings = &settings
	return nil
}
