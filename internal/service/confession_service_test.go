package service

import (
	"context"
	"testing"

	"whisperwall/internal/cache"
	"whisperwall/internal/models"
	"whisperwall/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	svc      *ConfessionService
	tokens   *TokenService
	settings repository.SettingsStore
	rdb      *redis.Client
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	tokens := NewTokenService(repository.NewTokenRepository(rdb))
	settings := repository.NewSettingsStore(rdb)
	svc := NewConfessionService(repository.NewConfessionRepository(rdb), tokens, settings)

	return &serviceFixture{svc: svc, tokens: tokens, settings: settings, rdb: rdb}
}

func (f *serviceFixture) setSettings(t *testing.T, s models.Settings) {
	t.Helper()
	require.NoError(t, f.settings.Set(context.Background(), s))
}

func (f *serviceFixture) zcard(t *testing.T, key string) int64 {
	t.Helper()
	n, err := f.rdb.ZCard(context.Background(), key).Result()
	require.NoError(t, err)
	return n
}

func appErrCode(t *testing.T, err error) string {
	t.Helper()
	appErr, ok := err.(*models.AppError)
	require.True(t, ok, "expected *models.AppError, got %T", err)
	return appErr.Code
}

func TestConfessionService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("Default settings publish immediately", func(t *testing.T) {
		f := newServiceFixture(t)

		result, err := f.svc.Submit(ctx, "a fresh secret", models.Palette[3])
		require.NoError(t, err)
		assert.False(t, result.Pending)
		assert.NotEmpty(t, result.DeleteToken)
		assert.Equal(t, int64(1), f.zcard(t, cache.PublicSetKey))
		assert.Equal(t, int64(0), f.zcard(t, cache.PendingSetKey))

		ok, err := f.tokens.Verify(ctx, result.Confession.ID, result.DeleteToken)
		require.NoError(t, err)
		assert.True(t, ok, "issued token must be live")
	})

	t.Run("Approval required routes to pending", func(t *testing.T) {
		f := newServiceFixture(t)
		f.setSettings(t, models.Settings{RequireApproval: true})

		result, err := f.svc.Submit(ctx, "awaiting review", models.Palette[0])
		require.NoError(t, err)
		assert.True(t, result.Pending)
		assert.Equal(t, int64(0), f.zcard(t, cache.PublicSetKey))
		assert.Equal(t, int64(1), f.zcard(t, cache.PendingSetKey))
	})

	t.Run("Paused submissions rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		f.setSettings(t, models.Settings{SubmissionsPaused: true})

		_, err := f.svc.Submit(ctx, "should bounce", models.Palette[0])
		require.Error(t, err)
		assert.Equal(t, "SERVICE_UNAVAILABLE", appErrCode(t, err))
		assert.Equal(t, int64(0), f.zcard(t, cache.PublicSetKey))
	})

	t.Run("Invalid input", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.svc.Submit(ctx, "", models.Palette[0])
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_ERROR", appErrCode(t, err))

		_, err = f.svc.Submit(ctx, "fine text", "#000000")
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_ERROR", appErrCode(t, err))
	})
}

func TestConfessionService_ModerationFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("Approve moves to public", func(t *testing.T) {
		f := newServiceFixture(t)
		f.setSettings(t, models.Settings{RequireApproval: true})

		result, err := f.svc.Submit(ctx, "needs a nod", models.Palette[0])
		require.NoError(t, err)

		pending, err := f.svc.Pending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)

		approved, err := f.svc.Approve(ctx, result.Confession.ID)
		require.NoError(t, err)
		assert.Equal(t, result.Confession.CreatedAt, approved.CreatedAt)
		assert.Equal(t, int64(1), f.zcard(t, cache.PublicSetKey))
		assert.Equal(t, int64(0), f.zcard(t, cache.PendingSetKey))

		// The author's token survives approval.
		ok, err := f.tokens.Verify(ctx, result.Confession.ID, result.DeleteToken)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Reject is terminal and revokes token", func(t *testing.T) {
		f := newServiceFixture(t)
		f.setSettings(t, models.Settings{RequireApproval: true})

		result, err := f.svc.Submit(ctx, "not today", models.Palette[0])
		require.NoError(t, err)

		require.NoError(t, f.svc.Reject(ctx, result.Confession.ID))
		assert.Equal(t, int64(0), f.zcard(t, cache.PendingSetKey))
		assert.Equal(t, int64(0), f.zcard(t, cache.PublicSetKey))

		ok, err := f.tokens.Verify(ctx, result.Confession.ID, result.DeleteToken)
		require.NoError(t, err)
		assert.False(t, ok)

		err = f.svc.Reject(ctx, result.Confession.ID)
		require.Error(t, err)
		assert.Equal(t, "NOT_FOUND", appErrCode(t, err))
	})

	t.Run("Approve missing pending record", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Approve(ctx, 123)
		require.Error(t, err)
		assert.Equal(t, "NOT_FOUND", appErrCode(t, err))
	})
}

func TestConfessionService_Deletes(t *testing.T) {
	ctx := context.Background()

	t.Run("Moderator delete revokes token", func(t *testing.T) {
		f := newServiceFixture(t)
		result, err := f.svc.Submit(ctx, "short lived", models.Palette[0])
		require.NoError(t, err)

		require.NoError(t, f.svc.ModeratorDelete(ctx, result.Confession.ID))
		assert.Equal(t, int64(0), f.zcard(t, cache.PublicSetKey))

		_, found, err := f.tokens.FindConfessionID(ctx, result.DeleteToken)
		require.NoError(t, err)
		assert.False(t, found)

		err = f.svc.ModeratorDelete(ctx, result.Confession.ID)
		require.Error(t, err)
		assert.Equal(t, "NOT_FOUND", appErrCode(t, err))
	})

	t.Run("Self delete by token", func(t *testing.T) {
		f := newServiceFixture(t)
		result, err := f.svc.Submit(ctx, "my own words", models.Palette[0])
		require.NoError(t, err)

		require.NoError(t, f.svc.SelfDelete(ctx, result.DeleteToken))
		assert.Equal(t, int64(0), f.zcard(t, cache.PublicSetKey))

		// The token was revoked with the record.
		err = f.svc.SelfDelete(ctx, result.DeleteToken)
		require.Error(t, err)
		assert.Equal(t, "FORBIDDEN", appErrCode(t, err))
	})

	t.Run("Self delete with unknown token", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Submit(ctx, "stays put", models.Palette[0])
		require.NoError(t, err)

		err = f.svc.SelfDelete(ctx, "bogus")
		require.Error(t, err)
		assert.Equal(t, "FORBIDDEN", appErrCode(t, err))
		assert.Equal(t, int64(1), f.zcard(t, cache.PublicSetKey), "nothing removed")

		err = f.svc.SelfDelete(ctx, "")
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_ERROR", appErrCode(t, err))
	})

	t.Run("Batch delete", func(t *testing.T) {
		f := newServiceFixture(t)
		a, err := f.svc.Submit(ctx, "first", models.Palette[0])
		require.NoError(t, err)
		b, err := f.svc.Submit(ctx, "second", models.Palette[1])
		require.NoError(t, err)
		_, err = f.svc.Submit(ctx, "survivor", models.Palette[2])
		require.NoError(t, err)

		count, err := f.svc.BatchDelete(ctx, []int64{a.Confession.ID, b.Confession.ID, 9999})
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		assert.Equal(t, int64(1), f.zcard(t, cache.PublicSetKey))

		_, found, err := f.tokens.FindConfessionID(ctx, a.DeleteToken)
		require.NoError(t, err)
		assert.False(t, found)

		_, err = f.svc.BatchDelete(ctx, nil)
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_ERROR", appErrCode(t, err))
	})
}

func TestConfessionService_Stats(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Total)
	assert.Equal(t, int64(0), stats.Deleted, "missing counter means no data yet")

	a, err := f.svc.Submit(ctx, "one", models.Palette[0])
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, "two", models.Palette[1])
	require.NoError(t, err)

	stats, err = f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(0), stats.Deleted)

	require.NoError(t, f.svc.ModeratorDelete(ctx, a.Confession.ID))

	stats, err = f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(1), stats.Deleted)
}
