// File: backend/services/audit-service/internal/handler/grpc/interceptors/recovery.go

package interceptors

import (
	"context"
	"runtime/debug"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/metrics"
)

// RecoveryInterceptor превращает панику обработчика в codes.Internal
type RecoveryInterceptor struct {
	logger *zap.Logger
}

// NewRecoveryInterceptor создает новый экземпляр RecoveryInterceptor
func NewRecoveryInterceptor(logger *zap.Logger) *RecoveryInterceptor {
	return &RecoveryInterceptor{logger: logger.Named("grpc")}
}

func (i *RecoveryInterceptor) recovered(method string, r interface{}) error {
	i.logger.Error("Panic recovered in gRPC handler",
		zap.Any("panic", r),
		zap.ByteString("stack", debug.Stack()),
		zap.String("method", method),
	)
	metrics.GrpcPanicsTotal.Inc()
	return status.Errorf(codes.Internal, "Internal server error")
}

// Unary возвращает унарный перехватчик для восстановления после паники
func (i *RecoveryInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = i.recovered(info.FullMethod, r)
			}
		}()
		return handler(ctx, req)
	}
}

// Stream возвращает потоковый перехватчик для восстановления после паники
func (i *RecoveryInterceptor) Stream() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = i.recovered(info.FullMethod, r)
			}
		}()
		return handler(srv, ss)
	}
}
