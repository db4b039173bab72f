// Package health exposes section readiness over the gRPC health protocol.
package health

import (
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Service names reported by the health server.
const (
	ServiceLookup       = "lookup"
	ServiceSafeBrowsing = "safebrowsing"
)

// Server wraps a gRPC server carrying only the health and reflection services.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

// NewServer creates a health server. The safebrowsing service reports
// SERVING only when safeBrowsingReady is true.
func NewServer(safeBrowsingReady bool) *Server {
	s := &Server{
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
	}
	grpc_health_v1.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)

	s.SetServing("", true)
	s.SetServing(ServiceLookup, true)
	s.SetServing(ServiceSafeBrowsing, safeBrowsingReady)
	return s
}

// SetServing updates the status of service.
func (s *Server) SetServing(service string, serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(service, status)
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	slog.Info("gRPC health server listening", "addr", lis.Addr().String())
	if err := s.grpc.Serve(lis); err != nil {
		return fmt.Errorf("serve grpc: %w", err)
	}
	return nil
}

// ListenAndServe listens on the TCP port and serves.
func (s *Server) ListenAndServe(port string) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", port, err)
	}
	return s.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains in-flight RPCs.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
