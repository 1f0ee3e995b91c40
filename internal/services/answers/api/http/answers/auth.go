package answers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/louisbranch/answerdesk/internal/platform/errors"
	"github.com/louisbranch/answerdesk/internal/platform/requestctx"
)

const minSecretLength = 32

var errUnauthenticated = apperrors.New(apperrors.CodeUnauthenticated, "a valid bearer token is required")

// Authenticator verifies HS256 bearer tokens and resolves the acting user
// from the sub claim.
type Authenticator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewAuthenticator builds an Authenticator for tokens issued by issuer.
func NewAuthenticator(secret string, issuer string) (*Authenticator, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", minSecretLength)
	}
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		return nil, fmt.Errorf("jwt issuer is required")
	}
	return &Authenticator{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Verify parses token and returns the actor it identifies.
func (a *Authenticator) Verify(token string) (requestctx.Actor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return requestctx.Actor{}, errUnauthenticated
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return requestctx.Actor{}, mapJWTError(err)
	}
	userID := strings.TrimSpace(claims.Subject)
	if userID == "" {
		return requestctx.Actor{}, apperrors.New(apperrors.CodeUnauthenticated, "token subject is required")
	}
	return requestctx.Actor{UserID: userID, TokenID: claims.ID}, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// actor in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			writeError(w, errUnauthenticated)
			return
		}
		actor, err := a.Verify(raw)
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(requestctx.WithActor(r.Context(), actor)))
	})
}

// MintToken signs an HS256 token for userID. It is used by operator tooling
// and tests.
func MintToken(secret string, issuer string, userID string, ttl time.Duration, now time.Time, tokenID string) (string, error) {
	if len(secret) < minSecretLength {
		return "", fmt.Errorf("jwt secret must be at least %d bytes", minSecretLength)
	}
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("user id is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("ttl must be positive")
	}
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   userID,
		ID:        tokenID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperrors.New(apperrors.CodeUnauthenticated, "token is expired")
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return apperrors.New(apperrors.CodeUnauthenticated, "token issuer mismatch")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return apperrors.New(apperrors.CodeUnauthenticated, "token signature is invalid")
	default:
		return apperrors.Wrap(apperrors.CodeUnauthenticated, "token is invalid", err)
	}
}
