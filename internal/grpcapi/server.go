// Package grpcapi serves the standard gRPC health protocol for mailkeeper.
// Every named check is reported as its own service; the empty service name
// is SERVING only while all checks pass.
package grpcapi

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/dmitrijs2005/mailkeeper/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const checkTimeout = 5 * time.Second

// Check tests one dependency. A nil error means healthy.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

type Server struct {
	address  string
	interval time.Duration
	checks   []Check
	health   *health.Server
	logger   logging.Logger
}

// NewServer builds the health server. The checks run once before serving and
// then every interval; a non-positive interval runs them only once.
func NewServer(address string, l logging.Logger, interval time.Duration, checks ...Check) *Server {
	return &Server{
		address:  address,
		interval: interval,
		checks:   checks,
		health:   health.NewServer(),
		logger:   l.With("module", "grpc_server"),
	}
}

func (s *Server) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *Server) serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.runChecks(ctx)
	if s.interval > 0 {
		go s.watch(ctx)
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (s *Server) watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runChecks(ctx)
		}
	}
}

// runChecks runs every check and publishes the result. Updates made after
// shutdown are ignored by the health server.
func (s *Server) runChecks(ctx context.Context) {
	overall := healthpb.HealthCheckResponse_SERVING

	for _, c := range s.checks {
		status := healthpb.HealthCheckResponse_SERVING

		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.Run(checkCtx)
		cancel()

		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			overall = status
			s.logger.Warn(ctx, "Health check failed", "check", c.Name, "error", err)
		}
		s.health.SetServingStatus(c.Name, status)
	}

	s.health.SetServingStatus("", overall)
}
