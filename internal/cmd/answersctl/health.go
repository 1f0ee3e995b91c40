package answersctl

import (
	"fmt"
	"log"
	"time"

	platformgrpc "github.com/louisbranch/answerdesk/internal/platform/grpc"
	server "github.com/louisbranch/answerdesk/internal/services/answers/app"
	"github.com/spf13/cobra"
)

func newHealthCommand(opts *RootOptions) *cobra.Command {
	var (
		addr    string
		timeout time.Duration
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Wait for the answers service health endpoint to report SERVING",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var logf func(string, ...any)
			if verbose {
				logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
				logf = logger.Printf
			}
			if err := platformgrpc.Probe(cmd.Context(), addr, server.HealthServiceName, timeout, logf); err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), map[string]string{
				"addr":   addr,
				"status": "SERVING",
			}, fmt.Sprintf("%s is SERVING", addr))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8095", "answers gRPC health address")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "how long to wait")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log each probe attempt")
	return cmd
}
