// Package service provides application business logic for confessions,
// moderation, and site administration.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"

	"whisperwall/internal/models"
	"whisperwall/internal/repository"
)

// TokenService mints and checks possession tokens. A token is handed to the
// author exactly once at submission time and is the only proof of authorship
// the system ever holds; losing it makes the confession permanent from the
// author's point of view.
type TokenService struct {
	tokens repository.TokenRepository
}

// NewTokenService returns a new TokenService.
func NewTokenService(tokens repository.TokenRepository) *TokenService {
	return &TokenService{tokens: tokens}
}

// Issue generates a possession token bound to the confession and stores it.
// The token mixes the record's identity with a fresh random secret, so equal
// texts submitted at the same millisecond still produce unrelated tokens.
func (s *TokenService) Issue(ctx context.Context, c *models.Confession) (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", err
	}

	material := fmt.Sprintf("%d:%s:%d:%s", c.ID, c.Text, c.CreatedAt, hex.EncodeToString(secret))
	sum := sha256.Sum256([]byte(material))
	token := hex.EncodeToString(sum[:])

	if err := s.tokens.Store(ctx, c.ID, token); err != nil {
		return "", err
	}
	return token, nil
}

// Verify reports whether the presented token matches the stored token for the
// confession. Comparison is constant time.
func (s *TokenService) Verify(ctx context.Context, id int64, presented string) (bool, error) {
	stored, found, err := s.tokens.Lookup(ctx, id)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1, nil
}

// Revoke discards the stored token for the confession. Revocation is
// idempotent.
func (s *TokenService) Revoke(ctx context.Context, id int64) error {
	return s.tokens.Delete(ctx, id)
}

// FindConfessionID resolves a bare token back to the confession it belongs
// to. Self-service deletion presents only the token, so the full mapping is
// scanned; the map stays small because tokens are revoked on every deletion.
func (s *TokenService) FindConfessionID(ctx context.Context, presented string) (int64, bool, error) {
	all, err := s.tokens.All(ctx)
	if err != nil {
		return 0, false, err
	}

	for field, stored := range all {
		if subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) != 1 {
			continue
		}
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("malformed token mapping field %q: %w", field, err)
		}
		return id, true, nil
	}
	return 0, false, nil
}
