// Package main runs the answers operator CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/louisbranch/answerdesk/internal/cmd/answersctl"
	"github.com/louisbranch/answerdesk/internal/platform/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := answersctl.NewRootCommand().ExecuteContext(ctx); err != nil {
		config.Exitf("Error: %v", err)
	}
}
