package driving

import "github.com/custodia-labs/postsmith/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get returns the effective settings: defaults, then file, then environment.
	Get() (*domain.Settings, error)

	// Set stores one dotted key, e.g. "pipeline.min_words".
	Set(key string, value any) error

	// Validate checks the effective settings.
	Validate() error
}
