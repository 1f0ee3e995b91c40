package answersctl

import (
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/answerdesk/internal/platform/id"
	answershttp "github.com/louisbranch/answerdesk/internal/services/answers/api/http/answers"
	"github.com/louisbranch/answerdesk/internal/services/answers/domain"
	"github.com/louisbranch/answerdesk/internal/services/answers/syndication/linkedin"
	"github.com/spf13/cobra"
)

type mintedToken struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newMintTokenCommand(opts *RootOptions) *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "mint-token",
		Short: "Mint a bearer token for the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenID, err := id.NewID()
			if err != nil {
				return fmt.Errorf("token id: %w", err)
			}
			now := time.Now().UTC()
			token, err := answershttp.MintToken(opts.cfg.JWTSecret, opts.cfg.JWTIssuer, userID, ttl, now, tokenID)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), mintedToken{Token: token, UserID: userID, ExpiresAt: now.Add(ttl)}, token)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id placed in the sub claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newLinkedInCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkedin",
		Short: "Manage the LinkedIn integration",
	}
	cmd.AddCommand(newSetTokenCommand(opts))
	return cmd
}

func newSetTokenCommand(opts *RootOptions) *cobra.Command {
	var (
		accessToken      string
		refreshToken     string
		accessExpiresIn  time.Duration
		refreshExpiresIn time.Duration
	)
	cmd := &cobra.Command{
		Use:   "set-token",
		Short: "Store the LinkedIn access and refresh tokens",
		Long: `Store the LinkedIn token record used for organization posts.

LinkedIn authorization is completed manually; paste the tokens it returns.
Tokens are sealed at rest when ANSWERDESK_TOKEN_SEAL_KEY is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(accessToken) == "" {
				return fmt.Errorf("--access is required")
			}
			runtime, err := opts.openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer runtime.Close()

			now := time.Now().UTC()
			record := domain.SocialToken{
				Provider:     linkedin.Provider,
				AccessToken:  strings.TrimSpace(accessToken),
				RefreshToken: strings.TrimSpace(refreshToken),
				UpdatedAt:    now,
			}
			if accessExpiresIn > 0 {
				record.AccessExpiresAt = now.Add(accessExpiresIn)
			}
			if refreshExpiresIn > 0 {
				record.RefreshExpiresAt = now.Add(refreshExpiresIn)
			}
			if err := runtime.Tokens.PutSocialToken(cmd.Context(), record); err != nil {
				return fmt.Errorf("store linkedin token: %w", err)
			}
			return opts.print(cmd.OutOrStdout(), map[string]any{
				"provider":           record.Provider,
				"access_expires_at":  record.AccessExpiresAt,
				"refresh_expires_at": record.RefreshExpiresAt,
			}, "linkedin token stored")
		},
	}
	cmd.Flags().StringVar(&accessToken, "access", "", "access token")
	cmd.Flags().StringVar(&refreshToken, "refresh", "", "refresh token")
	cmd.Flags().DurationVar(&accessExpiresIn, "access-expires-in", 0, "access token lifetime, 0 when unknown")
	cmd.Flags().DurationVar(&refreshExpiresIn, "refresh-expires-in", 0, "refresh token lifetime, 0 when unknown")
	return cmd
}
