// Package repository provides the Redis data access layer for the application.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"whisperwall/internal/cache"
	"whisperwall/internal/models"
	"whisperwall/internal/validation"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no confession with the requested ID exists in
// the queried collection.
var ErrNotFound = errors.New("confession not found")

const (
	// DefaultPageSize is the page size used when the client does not ask for one.
	DefaultPageSize = 12
	// MaxPageSize caps the page size regardless of what the client asks for.
	MaxPageSize = 50
	// CursorUnbounded requests the first page.
	CursorUnbounded = "+inf"
)

// Page is one page of public confessions in descending creation order.
// NextCursor is the exclusive score boundary for the following page, nil on
// the last page.
type Page struct {
	Confessions []models.Confession `json:"confessions"`
	NextCursor  *int64              `json:"nextCursor"`
	HasMore     bool                `json:"hasMore"`
}

// ConfessionRepository defines confession storage operations against the
// sorted sets. The JSON serialization of a record is the set member, so
// removal and relocation must present the exact original member bytes; the
// scan-then-remove sequences here are not atomic across steps, and every
// removal is acknowledged by its count so a lost race surfaces as ErrNotFound
// instead of a silent no-op.
type ConfessionRepository interface {
	NextID(ctx context.Context) (int64, error)
	Create(ctx context.Context, text, color, targetSet string) (*models.Confession, error)
	RangeByCursor(ctx context.Context, cursor string, limit int) (*Page, error)
	All(ctx context.Context, set string) ([]models.Confession, error)
	Edit(ctx context.Context, id int64, text string) (*models.Confession, error)
	Remove(ctx context.Context, set string, id int64) (bool, error)
	BatchRemove(ctx context.Context, set string, ids []int64) ([]int64, error)
	Move(ctx context.Context, from, to string, id int64) (*models.Confession, error)
	LiveCount(ctx context.Context) (int64, error)
	CounterValue(ctx context.Context) (int64, error)
}

// confessionRepository implements ConfessionRepository
type confessionRepository struct {
	rdb *redis.Client
	now func() time.Time
}

// NewConfessionRepository creates a new confession repository
func NewConfessionRepository(rdb *redis.Client) ConfessionRepository {
	return &confessionRepository{rdb: rdb, now: time.Now}
}

// NextID atomically mints the next confession ID. IDs are strictly increasing
// across all instances and never reused.
func (r *confessionRepository) NextID(ctx context.Context) (int64, error) {
	return r.rdb.Incr(ctx, cache.NextIDKey).Result()
}

func (r *confessionRepository) Create(ctx context.Context, text, color, targetSet string) (*models.Confession, error) {
	trimmed, err := validation.ConfessionText(text)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ConfessionColor(color); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	id, err := r.NextID(ctx)
	if err != nil {
		return nil, err
	}

	now := r.now()
	confession := &models.Confession{
		ID:        id,
		Text:      trimmed,
		Color:     color,
		Date:      formatDate(now),
		CreatedAt: now.UnixMilli(),
	}

	raw, err := json.Marshal(confession)
	if err != nil {
		return nil, err
	}

	if err := r.rdb.ZAdd(ctx, targetSet, redis.Z{
		Score:  float64(confession.CreatedAt),
		Member: string(raw),
	}).Err(); err != nil {
		return nil, err
	}

	return confession, nil
}

// RangeByCursor reads one page from the public set in descending score order.
// The cursor is "+inf" for the first page or an inclusive upper-bound score;
// the returned NextCursor is boundary-1 so the boundary item is not served
// twice. Records sharing a createdAt can be skipped across a page boundary; a
// compound (score, id) cursor would fix that at the cost of the wire format.
func (r *confessionRepository) RangeByCursor(ctx context.Context, cursor string, limit int) (*Page, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	maxScore := CursorUnbounded
	if cursor != "" && cursor != CursorUnbounded {
		if _, err := strconv.ParseFloat(cursor, 64); err != nil {
			return nil, models.NewValidationError("Invalid cursor")
		}
		maxScore = cursor
	}

	raws, err := r.rdb.ZRevRangeByScore(ctx, cache.PublicSetKey, &redis.ZRangeBy{
		Min:    "-inf",
		Max:    maxScore,
		Offset: 0,
		Count:  int64(limit + 1),
	}).Result()
	if err != nil {
		return nil, err
	}

	hasMore := len(raws) > limit
	if hasMore {
		raws = raws[:limit]
	}

	confessions := make([]models.Confession, 0, len(raws))
	for _, raw := range raws {
		c, err := decodeConfession(raw)
		if err != nil {
			return nil, err
		}
		confessions = append(confessions, *c)
	}

	page := &Page{Confessions: confessions, HasMore: hasMore}
	if hasMore && len(confessions) > 0 {
		next := confessions[len(confessions)-1].CreatedAt - 1
		page.NextCursor = &next
	}
	return page, nil
}

// All returns every confession in the set, newest first.
func (r *confessionRepository) All(ctx context.Context, set string) ([]models.Confession, error) {
	raws, err := r.rdb.ZRevRange(ctx, set, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	confessions := make([]models.Confession, 0, len(raws))
	for _, raw := range raws {
		c, err := decodeConfession(raw)
		if err != nil {
			return nil, err
		}
		confessions = append(confessions, *c)
	}
	return confessions, nil
}

func (r *confessionRepository) Edit(ctx context.Context, id int64, text string) (*models.Confession, error) {
	trimmed, err := validation.ConfessionText(text)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	raw, confession, err := r.findMember(ctx, cache.PublicSetKey, id)
	if err != nil {
		return nil, err
	}

	removed, err := r.rdb.ZRem(ctx, cache.PublicSetKey, raw).Result()
	if err != nil {
		return nil, err
	}
	if removed == 0 {
		// A concurrent writer removed the member between scan and ZREM.
		return nil, ErrNotFound
	}

	confession.Text = trimmed

	newRaw, err := json.Marshal(confession)
	if err != nil {
		return nil, err
	}

	// Re-add under the original score so the ordering position is preserved.
	if err := r.rdb.ZAdd(ctx, cache.PublicSetKey, redis.Z{
		Score:  float64(confession.CreatedAt),
		Member: string(newRaw),
	}).Err(); err != nil {
		return nil, err
	}

	return confession, nil
}

func (r *confessionRepository) Remove(ctx context.Context, set string, id int64) (bool, error) {
	raw, _, err := r.findMember(ctx, set, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	removed, err := r.rdb.ZRem(ctx, set, raw).Result()
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

// BatchRemove removes every member whose ID is in ids with a single scan,
// returning the IDs actually removed. Absent IDs are silently ignored.
func (r *confessionRepository) BatchRemove(ctx context.Context, set string, ids []int64) ([]int64, error) {
	wanted := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	raws, err := r.rdb.ZRange(ctx, set, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	var removed []int64
	for _, raw := range raws {
		c, err := decodeConfession(raw)
		if err != nil {
			return nil, err
		}
		if _, ok := wanted[c.ID]; !ok {
			continue
		}

		n, err := r.rdb.ZRem(ctx, set, raw).Result()
		if err != nil {
			return nil, err
		}
		if n > 0 {
			removed = append(removed, c.ID)
		}
	}
	return removed, nil
}

// Move relocates a confession between sets, preserving its original score so
// an approved record sorts as if it had been public all along.
func (r *confessionRepository) Move(ctx context.Context, from, to string, id int64) (*models.Confession, error) {
	raw, confession, err := r.findMember(ctx, from, id)
	if err != nil {
		return nil, err
	}

	removed, err := r.rdb.ZRem(ctx, from, raw).Result()
	if err != nil {
		return nil, err
	}
	if removed == 0 {
		return nil, ErrNotFound
	}

	if err := r.rdb.ZAdd(ctx, to, redis.Z{
		Score:  float64(confession.CreatedAt),
		Member: raw,
	}).Err(); err != nil {
		return nil, err
	}

	return confession, nil
}

// LiveCount returns the number of publicly visible confessions.
func (r *confessionRepository) LiveCount(ctx context.Context) (int64, error) {
	return r.rdb.ZCard(ctx, cache.PublicSetKey).Result()
}

// CounterValue returns the current ID counter, or 0 when no confession has
// ever been created.
func (r *confessionRepository) CounterValue(ctx context.Context) (int64, error) {
	val, err := r.rdb.Get(ctx, cache.NextIDKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

// findMember linearly scans the set for the member with the given ID and
// returns the exact serialized member alongside the decoded record. Removal
// requires the original bytes, not just the ID.
func (r *confessionRepository) findMember(ctx context.Context, set string, id int64) (string, *models.Confession, error) {
	raws, err := r.rdb.ZRange(ctx, set, 0, -1).Result()
	if err != nil {
		return "", nil, err
	}

	for _, raw := range raws {
		c, err := decodeConfession(raw)
		if err != nil {
			return "", nil, err
		}
		if c.ID == id {
			return raw, c, nil
		}
	}
	return "", nil, ErrNotFound
}

// decodeConfession normalizes a stored member to the typed record at the
// adapter boundary; nothing deeper in the call stack branches on raw shapes.
func decodeConfession(raw string) (*models.Confession, error) {
	var c models.Confession
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("malformed confession member: %w", err)
	}
	return &c, nil
}

// formatDate renders the human-readable creation date, derived once at
// creation time and never recomputed.
func formatDate(t time.Time) string {
	return strings.ToLower(t.Format("January 2, 2006"))
}
