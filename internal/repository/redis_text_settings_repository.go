package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/peterneubauer/savethesquare/internal/domain/model"
	"github.com/peterneubauer/savethesquare/internal/domain/repository"
)

const (
	textSettingsKeyPrefix = "savethesquare:text-settings:"
	textSettingsTTL       = 30 * 24 * time.Hour
)

// RedisTextSettingsRepository per-client text mode settings, refreshed on every save
type RedisTextSettingsRepository struct {
	rc *redis.Client
}

func NewRedisTextSettingsRepository(rc *redis.Client) repository.TextSettingsRepository {
	return &RedisTextSettingsRepository{rc: rc}
}

func (r *RedisTextSettingsRepository) Get(ctx context.Context, clientID string) (*model.TextModeSettings, error) {
	b, err := r.rc.Get(ctx, textSettingsKeyPrefix+clientID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("text settings read failed: %w", err)
	}

	var settings model.TextModeSettings
	if err := json.Unmarshal(b, &settings); err != nil {
		return nil, fmt.Errorf("text settings unmarshal failed: %w", err)
	}
	return &settings, nil
}

func (r *RedisTextSettingsRepository) Save(ctx context.Context, clientID string, settings model.TextModeSettings) error {
	b, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("text settings marshal failed: %w", err)
	}
	if err := r.rc.Set(ctx, textSettingsKeyPrefix+clientID, b, textSettingsTTL).Err(); err != nil {
		return fmt.Errorf("text settings write failed: %w", err)
	}
	return nil
}
