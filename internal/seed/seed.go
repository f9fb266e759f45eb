// Package seed fills Redis with generated confessions for local development.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"whisperwall/internal/cache"
	"whisperwall/internal/models"
	"whisperwall/internal/repository"
	"whisperwall/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/redis/go-redis/v9"
)

// Seeder generates fake confessions through the real service layer, so
// seeded data carries valid tokens and honors the current site settings.
type Seeder struct {
	rdb    *redis.Client
	repo   repository.ConfessionRepository
	tokens *service.TokenService
}

// NewSeeder returns a Seeder bound to the given Redis client.
func NewSeeder(rdb *redis.Client) *Seeder {
	repo := repository.NewConfessionRepository(rdb)
	tokens := service.NewTokenService(repository.NewTokenRepository(rdb))
	return &Seeder{rdb: rdb, repo: repo, tokens: tokens}
}

// ClearAll wipes every application key. Development convenience only.
func (s *Seeder) ClearAll(ctx context.Context) error {
	keys := []string{
		cache.PublicSetKey,
		cache.PendingSetKey,
		cache.NextIDKey,
		cache.TokensKey,
		cache.SettingsKey,
		cache.VisitorsKey,
	}
	return s.rdb.Del(ctx, keys...).Err()
}

// Confessions creates count fake confessions in the public set and
// pendingCount in the moderation queue, each with a live possession token.
func (s *Seeder) Confessions(ctx context.Context, count, pendingCount int) error {
	gofakeit.Seed(time.Now().UnixNano())

	if err := s.fill(ctx, cache.PublicSetKey, count); err != nil {
		return err
	}
	return s.fill(ctx, cache.PendingSetKey, pendingCount)
}

func (s *Seeder) fill(ctx context.Context, set string, count int) error {
	for i := 0; i < count; i++ {
		color := models.Palette[rand.Intn(len(models.Palette))]

		confession, err := s.repo.Create(ctx, confessionText(), color, set)
		if err != nil {
			return fmt.Errorf("seed confession %d: %w", i, err)
		}
		if _, err := s.tokens.Issue(ctx, confession); err != nil {
			return fmt.Errorf("seed token for confession %d: %w", confession.ID, err)
		}
	}
	return nil
}

// confessionText generates a short first-person sentence under the length cap.
func confessionText() string {
	text := fmt.Sprintf("I secretly %s %s. %s",
		gofakeit.VerbAction(),
		gofakeit.NounAbstract(),
		gofakeit.HipsterSentence(8))
	if len([]rune(text)) > 500 {
		text = string([]rune(text)[:500])
	}
	return text
}
