package repository

import (
	"context"
	"errors"
	"strconv"

	"whisperwall/internal/cache"

	"github.com/redis/go-redis/v9"
)

// TokenRepository stores possession tokens in the id -> token hash. At most
// one live token exists per confession ID; Store overwrites any prior token.
type TokenRepository interface {
	Store(ctx context.Context, id int64, token string) error
	Lookup(ctx context.Context, id int64) (string, bool, error)
	Delete(ctx context.Context, id int64) error
	All(ctx context.Context) (map[string]string, error)
}

type tokenRepository struct {
	rdb *redis.Client
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(rdb *redis.Client) TokenRepository {
	return &tokenRepository{rdb: rdb}
}

func (r *tokenRepository) Store(ctx context.Context, id int64, token string) error {
	return r.rdb.HSet(ctx, cache.TokensKey, strconv.FormatInt(id, 10), token).Err()
}

func (r *tokenRepository) Lookup(ctx context.Context, id int64) (string, bool, error) {
	token, err := r.rdb.HGet(ctx, cache.TokensKey, strconv.FormatInt(id, 10)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

func (r *tokenRepository) Delete(ctx context.Context, id int64) error {
	return r.rdb.HDel(ctx, cache.TokensKey, strconv.FormatInt(id, 10)).Err()
}

func (r *tokenRepository) All(ctx context.Context) (map[string]string, error) {
	return r.rdb.HGetAll(ctx, cache.TokensKey).Result()
}
