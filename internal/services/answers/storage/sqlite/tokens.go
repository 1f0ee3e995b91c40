package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/answerdesk/internal/services/answers/domain"
)

// GetSocialToken loads the stored credential for provider.
func (s *Store) GetSocialToken(ctx context.Context, provider string) (domain.SocialToken, error) {
	if err := s.ready(ctx); err != nil {
		return domain.SocialToken{}, err
	}
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return domain.SocialToken{}, fmt.Errorf("provider is required")
	}

	var (
		token            domain.SocialToken
		accessExpiresAt  int64
		refreshExpiresAt int64
		updatedAt        int64
	)
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT provider, access_token, access_expires_at, refresh_token, refresh_expires_at, updated_at
FROM social_tokens
WHERE provider = ?
`, provider).Scan(
		&token.Provider,
		&token.AccessToken,
		&accessExpiresAt,
		&token.RefreshToken,
		&refreshExpiresAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SocialToken{}, domain.ErrNotFound
		}
		return domain.SocialToken{}, fmt.Errorf("get social token: %w", err)
	}
	token.AccessExpiresAt = fromOptionalMillis(accessExpiresAt)
	token.RefreshExpiresAt = fromOptionalMillis(refreshExpiresAt)
	token.UpdatedAt = fromMillis(updatedAt)
	return token, nil
}

// PutSocialToken replaces the stored credential for token.Provider.
func (s *Store) PutSocialToken(ctx context.Context, token domain.SocialToken) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	token.Provider = strings.TrimSpace(token.Provider)
	if token.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if token.UpdatedAt.IsZero() {
		token.UpdatedAt = time.Now()
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO social_tokens (provider, access_token, access_expires_at, refresh_token, refresh_expires_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(provider) DO UPDATE SET
    access_token = excluded.access_token,
    access_expires_at = excluded.access_expires_at,
    refresh_token = excluded.refresh_token,
    refresh_expires_at = excluded.refresh_expires_at,
    updated_at = excluded.updated_at
`,
		token.Provider,
		token.AccessToken,
		toOptionalMillis(token.AccessExpiresAt),
		token.RefreshToken,
		toOptionalMillis(token.RefreshExpiresAt),
		toMillis(token.UpdatedAt),
	); err != nil {
		return fmt.Errorf("put social token: %w", err)
	}
	return nil
}

func toOptionalMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return toMillis(value)
}

func fromOptionalMillis(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return fromMillis(value)
}
