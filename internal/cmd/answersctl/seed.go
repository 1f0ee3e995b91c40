package answersctl

import (
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/answerdesk/internal/services/answers/domain"
	"github.com/spf13/cobra"
)

func newSeedCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed users and questions for local environments",
	}
	cmd.AddCommand(newSeedUserCommand(opts))
	cmd.AddCommand(newSeedQuestionCommand(opts))
	return cmd
}

func newSeedUserCommand(opts *RootOptions) *cobra.Command {
	var (
		displayName string
		role        string
	)
	cmd := &cobra.Command{
		Use:   "user <id>",
		Short: "Create or update a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			user := domain.User{
				ID:          strings.TrimSpace(args[0]),
				DisplayName: strings.TrimSpace(displayName),
				Role:        parsed,
			}
			if user.ID == "" {
				return fmt.Errorf("user id is required")
			}

			runtime, err := opts.openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer runtime.Close()

			if err := runtime.Store.PutUser(cmd.Context(), user); err != nil {
				return fmt.Errorf("seed user: %w", err)
			}
			return opts.print(cmd.OutOrStdout(), map[string]string{
				"id":   user.ID,
				"role": string(user.Role),
			}, fmt.Sprintf("user %s seeded as %s", user.ID, user.Role))
		},
	}
	cmd.Flags().StringVar(&displayName, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleMember), "member, expert, moderator, or admin")
	return cmd
}

func newSeedQuestionCommand(opts *RootOptions) *cobra.Command {
	var (
		slug     string
		title    string
		authorID string
	)
	cmd := &cobra.Command{
		Use:   "question <id>",
		Short: "Create or update a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := domain.Question{
				ID:        strings.TrimSpace(args[0]),
				Slug:      strings.TrimSpace(slug),
				Title:     strings.TrimSpace(title),
				AuthorID:  strings.TrimSpace(authorID),
				CreatedAt: time.Now().UTC(),
			}
			if question.ID == "" || question.Title == "" || question.AuthorID == "" {
				return fmt.Errorf("question id, --title, and --author are required")
			}

			runtime, err := opts.openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer runtime.Close()

			if err := runtime.Store.PutQuestion(cmd.Context(), question); err != nil {
				return fmt.Errorf("seed question: %w", err)
			}
			return opts.print(cmd.OutOrStdout(), map[string]string{
				"id":   question.ID,
				"slug": question.Slug,
			}, fmt.Sprintf("question %s seeded", question.ID))
		},
	}
	cmd.Flags().StringVar(&slug, "slug", "", "URL slug")
	cmd.Flags().StringVar(&title, "title", "", "question title")
	cmd.Flags().StringVar(&authorID, "author", "", "asking user id")
	return cmd
}
