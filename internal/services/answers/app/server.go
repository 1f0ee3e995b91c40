// Package server wires the answers runtime, its HTTP API, and the gRPC
// health endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"

	platformgrpc "github.com/louisbranch/answerdesk/internal/platform/grpc"
	"github.com/louisbranch/answerdesk/internal/platform/timeouts"
	answershttp "github.com/louisbranch/answerdesk/internal/services/answers/api/http/answers"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

// HealthServiceName is the service name reported by the health endpoint.
const HealthServiceName = "answerdesk.answers"

// Options selects listener addresses.
type Options struct {
	GRPCAddr string
	HTTPAddr string
}

// Server hosts the answers HTTP API and the gRPC health service.
type Server struct {
	grpcListener net.Listener
	httpListener net.Listener
	grpcServer   *grpc.Server
	httpServer   *http.Server
	health       *health.Server
	runtime      *Runtime
}

// New builds a Server from cfg listening on the addresses in opts.
func New(ctx context.Context, cfg Config, opts Options) (*Server, error) {
	auth, err := answershttp.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return nil, fmt.Errorf("configure authentication: %w", err)
	}

	runtime, err := Build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	handler, err := answershttp.NewHandler(runtime.Manager, auth)
	if err != nil {
		_ = runtime.Close()
		return nil, err
	}

	grpcListener, err := net.Listen("tcp", opts.GRPCAddr)
	if err != nil {
		_ = runtime.Close()
		return nil, fmt.Errorf("listen on %s: %w", opts.GRPCAddr, err)
	}
	httpListener, err := net.Listen("tcp", opts.HTTPAddr)
	if err != nil {
		_ = grpcListener.Close()
		_ = runtime.Close()
		return nil, fmt.Errorf("listen on %s: %w", opts.HTTPAddr, err)
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := platformgrpc.NewHealthServer(grpcServer, HealthServiceName)

	return &Server{
		grpcListener: grpcListener,
		httpListener: httpListener,
		grpcServer:   grpcServer,
		httpServer: &http.Server{
			Handler:           handler.Routes(),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		health:  healthServer,
		runtime: runtime,
	}, nil
}

// GRPCAddr returns the health listener address.
func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// HTTPAddr returns the API listener address.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// Run loads configuration, then builds and serves a Server until ctx is
// cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	server, err := New(ctx, cfg, opts)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve runs both listeners until ctx is cancelled or one of them fails.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("answers http listening at %v", s.httpListener.Addr())
	log.Printf("answers health listening at %v", s.grpcListener.Addr())
	serveErr := make(chan error, 2)
	go func() {
		if err := s.grpcServer.Serve(s.grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErr <- fmt.Errorf("serve gRPC: %w", err)
			return
		}
		serveErr <- nil
	}()
	go func() {
		if err := s.httpServer.Serve(s.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("serve HTTP: %w", err)
			return
		}
		serveErr <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
	}

	s.health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("answers http shutdown: %v", err)
	}
	s.grpcServer.GracefulStop()
	return runErr
}

// Close releases listeners and runtime resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.grpcListener != nil {
		_ = s.grpcListener.Close()
	}
	if s.httpListener != nil {
		_ = s.httpListener.Close()
	}
	if s.runtime != nil {
		if err := s.runtime.Close(); err != nil {
			log.Printf("close answers runtime: %v", err)
		}
	}
}
