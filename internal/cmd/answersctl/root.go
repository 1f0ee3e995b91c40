// Package answersctl implements the operator CLI for the answers service.
package answersctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/louisbranch/answerdesk/internal/platform/config"
	server "github.com/louisbranch/answerdesk/internal/services/answers/app"
	"github.com/spf13/cobra"
)

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"text", "json"}

// RootOptions holds global flags and the shared runtime loader.
type RootOptions struct {
	Format  string
	EnvFile string

	// OpenRuntime builds the wired runtime. Defaults to server.Build with
	// the environment configuration.
	OpenRuntime func(ctx context.Context, cfg server.Config) (*server.Runtime, error)

	cfg server.Config
}

// NewRootCommand creates the answersctl command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "answersctl",
		Short:         "Operate the answers service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if err := config.LoadDotEnv(opts.EnvFile); err != nil {
				return err
			}
			cfg, err := server.LoadConfig()
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	cmd.AddCommand(newMintTokenCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))
	cmd.AddCommand(newLinkedInCommand(opts))
	cmd.AddCommand(newBulkModerateCommand(opts))
	cmd.AddCommand(newHealthCommand(opts))
	return cmd
}

func (o *RootOptions) openRuntime(ctx context.Context) (*server.Runtime, error) {
	if o.OpenRuntime != nil {
		return o.OpenRuntime(ctx, o.cfg)
	}
	return server.Build(ctx, o.cfg)
}

// print writes payload as JSON or, in text mode, the given line.
func (o *RootOptions) print(w io.Writer, payload any, text string) error {
	if o.Format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
