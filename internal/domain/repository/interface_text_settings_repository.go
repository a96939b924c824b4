package repository

import (
	"context"

	"github.com/peterneubauer/savethesquare/internal/domain/model"
)

// TextSettingsRepository per-client text mode settings
type TextSettingsRepository interface {
	// Get returns nil, nil when nothing is stored for the client
	Get(ctx context.Context, clientID string) (*model.TextModeSettings, error)
	Save(ctx context.Context, clientID string, settings model.TextModeSettings) error
}
