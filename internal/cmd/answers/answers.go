// Package answers parses answers service flags and launches the service.
package answers

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/answerdesk/internal/platform/cmd"
	server "github.com/louisbranch/answerdesk/internal/services/answers/app"
)

// Config holds answers command configuration.
type Config struct {
	GRPCAddr string `env:"ANSWERDESK_ANSWERS_GRPC_ADDR" envDefault:":8095"`
	HTTPAddr string `env:"ANSWERDESK_ANSWERS_HTTP_ADDR" envDefault:":8096"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "The answers gRPC health listen address")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The answers HTTP API listen address")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the answers service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceAnswers, func(context.Context) error {
		return server.Run(ctx, server.Options{GRPCAddr: cfg.GRPCAddr, HTTPAddr: cfg.HTTPAddr})
	})
}
