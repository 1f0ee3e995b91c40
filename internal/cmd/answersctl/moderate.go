package answersctl

import (
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/answerdesk/internal/platform/errors"
	"github.com/louisbranch/answerdesk/internal/services/answers/domain"
	"github.com/spf13/cobra"
)

type bulkItemOutput struct {
	AnswerID string `json:"answer_id"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

type bulkOutput struct {
	Total   int              `json:"total"`
	Success int              `json:"success"`
	Errors  int              `json:"errors"`
	Results []bulkItemOutput `json:"results"`
}

func newBulkModerateCommand(opts *RootOptions) *cobra.Command {
	var (
		moderatorID string
		reject      bool
		comment     string
	)
	cmd := &cobra.Command{
		Use:   "bulk-moderate <answer-id>...",
		Short: "Approve or reject many answers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runtime, err := opts.openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer runtime.Close()

			result, err := runtime.Manager.BulkModerate(cmd.Context(), domain.BulkModerateInput{
				AnswerIDs:   args,
				ModeratorID: moderatorID,
				Approve:     !reject,
				Comment:     comment,
			})
			if err != nil {
				return err
			}

			out := bulkOutput{
				Total:   result.Total,
				Success: result.Success,
				Errors:  result.Errors,
				Results: make([]bulkItemOutput, 0, len(result.Results)),
			}
			lines := []string{fmt.Sprintf("moderated %d/%d answers", result.Success, result.Total)}
			for _, item := range result.Results {
				entry := bulkItemOutput{AnswerID: item.AnswerID, OK: item.Err == nil}
				if item.Err != nil {
					entry.Error = describeError(item.Err)
					lines = append(lines, fmt.Sprintf("  %s: %s", item.AnswerID, entry.Error))
				}
				out.Results = append(out.Results, entry)
			}
			return opts.print(cmd.OutOrStdout(), out, strings.Join(lines, "\n"))
		},
	}
	cmd.Flags().StringVar(&moderatorID, "moderator", "", "moderator user id")
	cmd.Flags().BoolVar(&reject, "reject", false, "reject instead of approve")
	cmd.Flags().StringVar(&comment, "comment", "", "moderation comment")
	_ = cmd.MarkFlagRequired("moderator")
	return cmd
}

func describeError(err error) string {
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		return fmt.Sprintf("%s: %s", domainErr.Code, domainErr.Message)
	}
	return err.Error()
}
