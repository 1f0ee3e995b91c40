package linkedin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "github.com/louisbranch/answerdesk/internal/platform/errors"
	"github.com/louisbranch/answerdesk/internal/platform/secret"
	"github.com/louisbranch/answerdesk/internal/services/answers/domain"
	"golang.org/x/oauth2"
)

// Provider is the social token record key for LinkedIn.
const Provider = "linkedin"

// DefaultTokenURL is LinkedIn's OAuth2 token endpoint.
const DefaultTokenURL = "https://www.linkedin.com/oauth/v2/accessToken"

// SealPurpose binds sealed token values to the social token table.
const SealPurpose = "social_tokens"

// expirySkew treats access tokens this close to expiry as expired.
const expirySkew = time.Minute

// ErrReauthRequired means no usable access or refresh token remains and an
// operator must authorize the organization again.
var ErrReauthRequired = apperrors.New(apperrors.CodeLinkedInReauthRequired, "linkedin authorization expired; reauthorize the organization")

// TokenSourceConfig configures refresh-token exchange.
type TokenSourceConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	HTTPClient   *http.Client
	Clock        func() time.Time
}

// TokenSource hands out a valid access token, refreshing and persisting the
// singleton token record when the access token has expired.
type TokenSource struct {
	store      domain.SocialTokenStore
	oauth      oauth2.Config
	httpClient *http.Client
	clock      func() time.Time
	mu         sync.Mutex
}

// NewTokenSource builds a token source over store.
func NewTokenSource(store domain.SocialTokenStore, cfg TokenSourceConfig) *TokenSource {
	tokenURL := strings.TrimSpace(cfg.TokenURL)
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &TokenSource{
		store: store,
		oauth: oauth2.Config{
			ClientID:     strings.TrimSpace(cfg.ClientID),
			ClientSecret: strings.TrimSpace(cfg.ClientSecret),
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: cfg.HTTPClient,
		clock:      cfg.Clock,
	}
}

// AccessToken returns a usable access token.
func (s *TokenSource) AccessToken(ctx context.Context) (string, error) {
	if s == nil || s.store == nil {
		return "", fmt.Errorf("linkedin token store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.store.GetSocialToken(ctx, Provider)
	if errors.Is(err, domain.ErrNotFound) {
		return "", ErrReauthRequired
	}
	if err != nil {
		return "", fmt.Errorf("load linkedin token: %w", err)
	}

	now := s.clock().UTC()
	if record.AccessToken != "" && now.Add(expirySkew).Before(record.AccessExpiresAt) {
		return record.AccessToken, nil
	}
	if record.RefreshToken == "" || !now.Before(record.RefreshExpiresAt) {
		return "", ErrReauthRequired
	}

	refreshed, err := s.refresh(ctx, record, now)
	if err != nil {
		return "", err
	}
	if err := s.store.PutSocialToken(ctx, refreshed); err != nil {
		return "", fmt.Errorf("persist linkedin token: %w", err)
	}
	return refreshed.AccessToken, nil
}

func (s *TokenSource) refresh(ctx context.Context, record domain.SocialToken, now time.Time) (domain.SocialToken, error) {
	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}
	token, err := s.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: record.RefreshToken}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == "invalid_grant" {
			return domain.SocialToken{}, ErrReauthRequired
		}
		return domain.SocialToken{}, apperrors.Wrap(apperrors.CodeExternalServiceFailed, "refresh linkedin token", err)
	}

	record.AccessToken = token.AccessToken
	record.AccessExpiresAt = token.Expiry.UTC()
	if token.Expiry.IsZero() {
		record.AccessExpiresAt = now.Add(time.Hour)
	}
	if token.RefreshToken != "" && token.RefreshToken != record.RefreshToken {
		record.RefreshToken = token.RefreshToken
		if seconds := extraSeconds(token, "refresh_token_expires_in"); seconds > 0 {
			record.RefreshExpiresAt = now.Add(time.Duration(seconds) * time.Second)
		}
	}
	record.UpdatedAt = now
	return record, nil
}

func extraSeconds(token *oauth2.Token, key string) int64 {
	switch value := token.Extra(key).(type) {
	case float64:
		return int64(value)
	case int64:
		return value
	case string:
		var seconds int64
		if _, err := fmt.Sscan(value, &seconds); err == nil {
			return seconds
		}
	}
	return 0
}

// SealedTokenStore encrypts token secrets before they reach the inner store.
type SealedTokenStore struct {
	inner  domain.SocialTokenStore
	sealer *secret.Sealer
}

// NewSealedTokenStore wraps inner with AES-GCM sealing.
func NewSealedTokenStore(inner domain.SocialTokenStore, sealer *secret.Sealer) *SealedTokenStore {
	return &SealedTokenStore{inner: inner, sealer: sealer}
}

// OpenSealedTokenStore derives a sealer from passphrase and wraps inner.
func OpenSealedTokenStore(inner domain.SocialTokenStore, passphrase string) (*SealedTokenStore, error) {
	sealer, err := secret.NewSealer(passphrase, SealPurpose)
	if err != nil {
		return nil, fmt.Errorf("token seal key: %w", err)
	}
	return NewSealedTokenStore(inner, sealer), nil
}

var _ domain.SocialTokenStore = (*SealedTokenStore)(nil)

func (s *SealedTokenStore) GetSocialToken(ctx context.Context, provider string) (domain.SocialToken, error) {
	token, err := s.inner.GetSocialToken(ctx, provider)
	if err != nil {
		return domain.SocialToken{}, err
	}
	if token.AccessToken, err = s.sealer.Open(token.AccessToken); err != nil {
		return domain.SocialToken{}, fmt.Errorf("open access token: %w", err)
	}
	if token.RefreshToken, err = s.sealer.Open(token.RefreshToken); err != nil {
		return domain.SocialToken{}, fmt.Errorf("open refresh token: %w", err)
	}
	return token, nil
}

func (s *SealedTokenStore) PutSocialToken(ctx context.Context, token domain.SocialToken) error {
	var err error
	if token.AccessToken, err = s.sealer.Seal(token.AccessToken); err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}
	if token.RefreshToken, err = s.sealer.Seal(token.RefreshToken); err != nil {
		return fmt.Errorf("seal refresh token: %w", err)
	}
	return s.inner.PutSocialToken(ctx, token)
}
