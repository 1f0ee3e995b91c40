package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
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
		accessExpiresAt  *time.Time
		refreshExpiresAt *time.Time
	)
	err := s.pool.QueryRow(ctx, `
SELECT provider, access_token, access_expires_at, refresh_token, refresh_expires_at, updated_at
FROM social_tokens
WHERE provider = $1
`, provider).Scan(
		&token.Provider,
		&token.AccessToken,
		&accessExpiresAt,
		&token.RefreshToken,
		&refreshExpiresAt,
		&token.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SocialToken{}, domain.ErrNotFound
		}
		return domain.SocialToken{}, fmt.Errorf("get social token: %w", err)
	}
	token.AccessExpiresAt = fromOptionalTime(accessExpiresAt)
	token.RefreshExpiresAt = fromOptionalTime(refreshExpiresAt)
	token.UpdatedAt = token.UpdatedAt.UTC()
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

	if _, err := s.pool.Exec(ctx, `
INSERT INTO social_tokens (provider, access_token, access_expires_at, refresh_token, refresh_expires_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (provider) DO UPDATE SET
    access_token = EXCLUDED.access_token,
    access_expires_at = EXCLUDED.access_expires_at,
    refresh_token = EXCLUDED.refresh_token,
    refresh_expires_at = EXCLUDED.refresh_expires_at,
    updated_at = EXCLUDED.updated_at
`,
		token.Provider,
		token.AccessToken,
		optionalTime(token.AccessExpiresAt),
		token.RefreshToken,
		optionalTime(token.RefreshExpiresAt),
		utc(token.UpdatedAt),
	); err != nil {
		return fmt.Errorf("put social token: %w", err)
	}
	return nil
}
