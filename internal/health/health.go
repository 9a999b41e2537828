// Package health serves the standard gRPC health protocol. The serving
// status follows the draft store: a store that stops answering Ping turns
// the service NOT_SERVING until it recovers.
package health

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service is the name reported alongside the overall ("") status.
const Service = "ldpr.report.Draft"

// DefaultInterval is how often the store is pinged.
const DefaultInterval = 10 * time.Second

// Pinger is satisfied by every draft store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// #region server
// Server owns a gRPC server exposing grpc.health.v1.Health.
type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	store    Pinger
	logger   logrus.FieldLogger
	interval time.Duration
	serving  bool
}

// New registers the health service on a fresh gRPC server.
func New(store Pinger, logger logrus.FieldLogger, interval time.Duration) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Server{
		grpc:     grpc.NewServer(),
		health:   health.NewServer(),
		store:    store,
		logger:   logger,
		interval: interval,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

func (s *Server) set(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(Service, status)
}

// Refresh pings the store once and updates the status.
func (s *Server) Refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()
	err := s.store.Ping(ctx)
	switch {
	case err == nil && !s.serving:
		s.logger.Info("draft store reachable")
		s.serving = true
		s.set(healthpb.HealthCheckResponse_SERVING)
	case err != nil && s.serving:
		s.logger.WithError(err).Warn("draft store unreachable")
		s.serving = false
		s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	case err != nil:
		s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	}
}

// Watch refreshes the status every interval until ctx is done.
func (s *Server) Watch(ctx context.Context) {
	s.Refresh(ctx)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Refresh(ctx)
		}
	}
}

// Serve blocks serving on lis.
func (s *Server) Serve(lis net.Listener) error {
	if err := s.grpc.Serve(lis); err != nil {
		return fmt.Errorf("serve health: %w", err)
	}
	return nil
}

// Stop marks the service down and stops the gRPC server gracefully.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
// #endregion server

// #region client
// Check asks the health service at addr for the status of service.
func Check(ctx context.Context, addr, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	defer conn.Close()
	return CheckConn(ctx, conn, service)
}

// CheckConn is Check over an existing connection.
func CheckConn(ctx context.Context, conn grpc.ClientConnInterface, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("health check: %w", err)
	}
	return resp.GetStatus(), nil
}
// #endregion client
