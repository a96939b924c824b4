package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/peterneubauer/savethesquare/internal/domain/model"
	"github.com/peterneubauer/savethesquare/internal/domain/repository"
	"github.com/peterneubauer/savethesquare/internal/metrics"
)

const donatedSnapshotKey = "savethesquare:donated:snapshot"

// RedisDonationCache last good donated-cell index, stored without TTL
type RedisDonationCache struct {
	rc *redis.Client
}

func NewRedisDonationCache(rc *redis.Client) repository.DonationSnapshotCache {
	return &RedisDonationCache{rc: rc}
}

func (c *RedisDonationCache) SaveSnapshot(ctx context.Context, cells map[model.CellKey]model.DonatedCell) error {
	b, err := json.Marshal(cells)
	if err != nil {
		return fmt.Errorf("snapshot marshal failed: %w", err)
	}
	if err := c.rc.Set(ctx, donatedSnapshotKey, b, 0).Err(); err != nil {
		return fmt.Errorf("snapshot write failed: %w", err)
	}
	return nil
}

func (c *RedisDonationCache) LoadSnapshot(ctx context.Context) (map[model.CellKey]model.DonatedCell, error) {
	b, err := c.rc.Get(ctx, donatedSnapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMissesTotal.Inc()
		return nil, model.ErrSnapshotMissing
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot read failed: %w", err)
	}
	metrics.CacheHitsTotal.Inc()

	var cells map[model.CellKey]model.DonatedCell
	if err := json.Unmarshal(b, &cells); err != nil {
		return nil, fmt.Errorf("snapshot unmarshal failed: %w", err)
	}
	return cells, nil
}
