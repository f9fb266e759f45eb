package service

import (
	"context"
	"errors"

	"whisperwall/internal/cache"
	"whisperwall/internal/middleware"
	"whisperwall/internal/models"
	"whisperwall/internal/repository"
)

// ConfessionService provides confession lifecycle and moderation business
// logic. A confession is Pending or Public while it exists; rejection and
// deletion remove it outright, no tombstones are kept.
type ConfessionService struct {
	repo     repository.ConfessionRepository
	tokens   *TokenService
	settings repository.SettingsStore
}

// SubmissionResult is what a successful submission hands back to the author.
// DeleteToken is shown exactly once and never retrievable again.
type SubmissionResult struct {
	Confession  *models.Confession
	DeleteToken string
	Pending     bool
}

// Stats is the public record count estimate. Deleted is derived from the ID
// counter and is advisory: records sitting in the pending queue are
// indistinguishable from deleted ones.
type Stats struct {
	Total   int64 `json:"total"`
	Deleted int64 `json:"deleted"`
}

// NewConfessionService returns a new ConfessionService.
func NewConfessionService(repo repository.ConfessionRepository, tokens *TokenService, settings repository.SettingsStore) *ConfessionService {
	return &ConfessionService{repo: repo, tokens: tokens, settings: settings}
}

// Submit creates a confession, routing it to the pending queue when approval
// is required. Settings are read fresh on every call so a moderator flipping
// a flag takes effect immediately across all instances.
func (s *ConfessionService) Submit(ctx context.Context, text, color string) (*SubmissionResult, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if settings.SubmissionsPaused {
		return nil, models.NewServiceUnavailableError("Submissions are temporarily paused")
	}

	targetSet := cache.PublicSetKey
	if settings.RequireApproval {
		targetSet = cache.PendingSetKey
	}

	confession, err := s.repo.Create(ctx, text, color, targetSet)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(ctx, confession)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to issue possession token", "confession_id", confession.ID, "error", err)
		return nil, err
	}

	return &SubmissionResult{
		Confession:  confession,
		DeleteToken: token,
		Pending:     settings.RequireApproval,
	}, nil
}

// List returns one page of public confessions, newest first.
func (s *ConfessionService) List(ctx context.Context, cursor string, limit int) (*repository.Page, error) {
	return s.repo.RangeByCursor(ctx, cursor, limit)
}

// Edit replaces the text of a public confession in place.
func (s *ConfessionService) Edit(ctx context.Context, id int64, text string) (*models.Confession, error) {
	confession, err := s.repo.Edit(ctx, id, text)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, models.NewNotFoundError("Confession", id)
	}
	if err != nil {
		return nil, err
	}
	return confession, nil
}

// ModeratorDelete removes a public confession and revokes its token.
func (s *ConfessionService) ModeratorDelete(ctx context.Context, id int64) error {
	removed, err := s.repo.Remove(ctx, cache.PublicSetKey, id)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewNotFoundError("Confession", id)
	}
	return s.tokens.Revoke(ctx, id)
}

// BatchDelete removes every listed public confession, revoking tokens for the
// ones actually removed, and returns the removal count. Absent IDs are
// skipped, not errors.
func (s *ConfessionService) BatchDelete(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, models.NewValidationError("No confession ids provided")
	}

	removed, err := s.repo.BatchRemove(ctx, cache.PublicSetKey, ids)
	if err != nil {
		return 0, err
	}

	for _, id := range removed {
		if err := s.tokens.Revoke(ctx, id); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to revoke token after batch delete", "confession_id", id, "error", err)
		}
	}
	return len(removed), nil
}

// SelfDelete removes the author's own confession, identified solely by the
// possession token. An unknown token is rejected before any store mutation.
func (s *ConfessionService) SelfDelete(ctx context.Context, token string) error {
	if token == "" {
		return models.NewValidationError("Delete token is required")
	}

	id, found, err := s.tokens.FindConfessionID(ctx, token)
	if err != nil {
		return err
	}
	if !found {
		return models.NewForbiddenError("Invalid delete token")
	}

	removed, err := s.repo.Remove(ctx, cache.PublicSetKey, id)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewNotFoundError("Confession", id)
	}
	return s.tokens.Revoke(ctx, id)
}

// Pending lists the moderation queue, newest first.
func (s *ConfessionService) Pending(ctx context.Context) ([]models.Confession, error) {
	return s.repo.All(ctx, cache.PendingSetKey)
}

// Approve publishes a pending confession under its original timestamp, so it
// sorts among public records as if it had been visible all along.
func (s *ConfessionService) Approve(ctx context.Context, id int64) (*models.Confession, error) {
	confession, err := s.repo.Move(ctx, cache.PendingSetKey, cache.PublicSetKey, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, models.NewNotFoundError("Pending confession", id)
	}
	if err != nil {
		return nil, err
	}
	return confession, nil
}

// Reject discards a pending confession and revokes its token. Rejection is
// terminal; the record cannot be recovered or resubmitted under the same ID.
func (s *ConfessionService) Reject(ctx context.Context, id int64) error {
	removed, err := s.repo.Remove(ctx, cache.PendingSetKey, id)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewNotFoundError("Pending confession", id)
	}
	return s.tokens.Revoke(ctx, id)
}

// Stats estimates lifetime activity from the ID counter. Total is the live
// public count; Deleted is the counter minus live, clamped at zero.
func (s *ConfessionService) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.repo.LiveCount(ctx)
	if err != nil {
		return nil, err
	}

	counter, err := s.repo.CounterValue(ctx)
	if err != nil {
		return nil, err
	}

	deleted := counter - total
	if deleted < 0 {
		deleted = 0
	}
	return &Stats{Total: total, Deleted: deleted}, nil
}
