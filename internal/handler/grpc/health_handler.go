// File: backend/services/audit-service/internal/handler/grpc/health_handler.go

package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/healthcheck"
)

// ServiceName is the overall service name accepted by Check besides "".
const ServiceName = "audit-service"

const defaultWatchInterval = 5 * time.Second

// HealthChecker reports the state of every registered component.
type HealthChecker interface {
	CheckHealth(ctx context.Context) healthcheck.HealthCheck
}

// HealthServer implements the gRPC health checking protocol on top of the
// same component checks that back GET /health. A component name may be
// passed as the service to probe one dependency.
type HealthServer struct {
	healthpb.UnimplementedHealthServer
	checker       HealthChecker
	watchInterval time.Duration
	logger        *zap.Logger
}

// NewHealthServer returns a new HealthServer.
func NewHealthServer(checker HealthChecker, logger *zap.Logger) *HealthServer {
	return &HealthServer{
		checker:       checker,
		watchInterval: defaultWatchInterval,
		logger:        logger.Named("grpc_health_handler"),
	}
}

// Check implements the Check method of the Health service.
func (s *HealthServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	servingStatus, ok := s.status(ctx, req.GetService())
	if !ok {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", req.GetService())
	}
	return &healthpb.HealthCheckResponse{Status: servingStatus}, nil
}

// Watch sends the current status and then every change until the client goes away.
func (s *HealthServer) Watch(req *healthpb.HealthCheckRequest, stream healthpb.Health_WatchServer) error {
	ctx := stream.Context()
	last := healthpb.HealthCheckResponse_UNKNOWN
	ticker := time.NewTicker(s.watchInterval)
	defer ticker.Stop()

	for {
		current, ok := s.status(ctx, req.GetService())
		if !ok {
			current = healthpb.HealthCheckResponse_SERVICE_UNKNOWN
		}
		if current != last {
			if err := stream.Send(&healthpb.HealthCheckResponse{Status: current}); err != nil {
				s.logger.Debug("Health watch send failed", zap.Error(err))
				return err
			}
			last = current
		}

		select {
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		case <-ticker.C:
		}
	}
}

func (s *HealthServer) status(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, bool) {
	report := s.checker.CheckHealth(ctx)
	if service == "" || service == ServiceName {
		return servingStatus(report.Status), true
	}
	for _, component := range report.Components {
		if component.Name == service {
			return servingStatus(component.Status), true
		}
	}
	return healthpb.HealthCheckResponse_SERVICE_UNKNOWN, false
}

func servingStatus(st healthcheck.Status) healthpb.HealthCheckResponse_ServingStatus {
	if st == healthcheck.StatusUp {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
