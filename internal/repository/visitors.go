package repository

import (
	"context"
	"time"

	"whisperwall/internal/cache"

	"github.com/redis/go-redis/v9"
)

// VisitorRepository tracks unique visitors as a presence map of hashed client
// IPs. Raw IPs never reach the store.
type VisitorRepository interface {
	Record(ctx context.Context, hashedIP string) (bool, error)
	Count(ctx context.Context) (int64, error)
}

type visitorRepository struct {
	rdb *redis.Client
	now func() time.Time
}

// NewVisitorRepository creates a new visitor repository
func NewVisitorRepository(rdb *redis.Client) VisitorRepository {
	return &visitorRepository{rdb: rdb, now: time.Now}
}

// Record marks the hashed IP as seen, returning true on first sight.
func (r *visitorRepository) Record(ctx context.Context, hashedIP string) (bool, error) {
	seen, err := r.rdb.HExists(ctx, cache.VisitorsKey, hashedIP).Result()
	if err != nil {
		return false, err
	}
	if seen {
		return false, nil
	}

	timestamp := r.now().UTC().Format(time.RFC3339)
	if err := r.rdb.HSet(ctx, cache.VisitorsKey, hashedIP, timestamp).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *visitorRepository) Count(ctx context.Context) (int64, error) {
	return r.rdb.HLen(ctx, cache.VisitorsKey).Result()
}
