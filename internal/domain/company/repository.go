package company

import "context"

// SettingsProvider loads the current company settings. Implementations
// return DefaultSettings when nothing has been stored yet.
type SettingsProvider interface {
	GetCompanySettings(ctx context.Context) (Settings, error)
}

// SettingsRepository also allows replacing the stored document.
type SettingsRepository interface {
	SettingsProvider
	SaveCompanySettings(ctx context.Context, settings Settings) error
}
