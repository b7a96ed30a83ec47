// File: backend/services/audit-service/internal/handler/grpc/server.go

// Package grpc exposes the standard gRPC health service for the audit pipeline.
package grpc

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/handler/grpc/interceptors"
)

// Config holds the gRPC listener settings.
type Config struct {
	Port             int
	EnableReflection bool
}

// Server представляет gRPC-сервер
type Server struct {
	server *grpc.Server
	cfg    Config
	logger *zap.Logger
}

// NewServer создает новый экземпляр gRPC-сервера
func NewServer(checker HealthChecker, cfg Config, logger *zap.Logger) *Server {
	loggingInterceptor := interceptors.NewLoggingInterceptor(logger)
	recoveryInterceptor := interceptors.NewRecoveryInterceptor(logger)

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			recoveryInterceptor.Unary(),
			loggingInterceptor.Unary(),
		),
		grpc.ChainStreamInterceptor(
			recoveryInterceptor.Stream(),
			loggingInterceptor.Stream(),
		),
	)

	healthpb.RegisterHealthServer(server, NewHealthServer(checker, logger))
	if cfg.EnableReflection {
		reflection.Register(server)
	}

	return &Server{server: server, cfg: cfg, logger: logger.Named("grpc_server")}
}

// Serve blocks serving lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("Starting gRPC server", zap.String("addr", lis.Addr().String()))
	if err := s.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Start listens on the configured port and serves in the background.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC: %w", err)
	}
	go func() {
		if err := s.Serve(lis); err != nil {
			s.logger.Error("gRPC server failed", zap.Error(err))
		}
	}()
	return nil
}

// Stop drains in-flight calls and falls back to a hard stop when ctx expires.
// Open health Watch streams never finish on their own, so the fallback is expected.
func (s *Server) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.server.Stop()
	}
	return nil
}
