package repository

import (
	"context"
	"encoding/json"
	"errors"

	"whisperwall/internal/cache"
	"whisperwall/internal/models"

	"github.com/redis/go-redis/v9"
)

// SettingsStore persists site settings in the external store. Settings are
// read fresh on every request, never cached in process, so concurrent
// instances observe moderator changes immediately.
type SettingsStore interface {
	Get(ctx context.Context) (models.Settings, error)
	Set(ctx context.Context, settings models.Settings) error
}

type settingsStore struct {
	rdb *redis.Client
}

// NewSettingsStore creates a new settings store
func NewSettingsStore(rdb *redis.Client) SettingsStore {
	return &settingsStore{rdb: rdb}
}

// Get returns the current settings; a missing key yields the defaults (both
// flags off).
func (s *settingsStore) Get(ctx context.Context) (models.Settings, error) {
	var settings models.Settings

	raw, err := s.rdb.Get(ctx, cache.SettingsKey).Result()
	if errors.Is(err, redis.Nil) {
		return settings, nil
	}
	if err != nil {
		return settings, err
	}

	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return models.Settings{}, err
	}
	return settings, nil
}

func (s *settingsStore) Set(ctx context.Context, settings models.Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, cache.SettingsKey, raw, 0).Err()
}
