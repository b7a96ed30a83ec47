// File: backend/services/audit-service/internal/handler/grpc/interceptors/logging.go

package interceptors

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/logger"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/metrics"
)

const requestIDKey = "x-request-id"

// LoggingInterceptor представляет перехватчик для логирования gRPC-запросов
type LoggingInterceptor struct {
	logger *zap.Logger
}

// NewLoggingInterceptor создает новый экземпляр LoggingInterceptor
func NewLoggingInterceptor(logger *zap.Logger) *LoggingInterceptor {
	return &LoggingInterceptor{logger: logger.Named("grpc")}
}

// Unary возвращает унарный перехватчик для логирования
func (i *LoggingInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx, requestLogger := i.requestLogger(ctx)
		start := time.Now()

		resp, err := handler(ctx, req)

		i.finish(requestLogger, info.FullMethod, start, err)
		return resp, err
	}
}

// Stream возвращает потоковый перехватчик для логирования
func (i *LoggingInterceptor) Stream() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, requestLogger := i.requestLogger(ss.Context())
		start := time.Now()
		requestLogger.Debug("gRPC stream started", zap.String("method", info.FullMethod))

		err := handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})

		i.finish(requestLogger, info.FullMethod, start, err)
		return err
	}
}

func (i *LoggingInterceptor) requestLogger(ctx context.Context) (context.Context, *zap.Logger) {
	requestID := requestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = withRequestID(ctx, requestID)
	}

	requestLogger := logger.WithRequestID(i.logger, requestID)
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		requestLogger = requestLogger.With(zap.String("client_ip", p.Addr.String()))
	}
	return ctx, requestLogger
}

func (i *LoggingInterceptor) finish(requestLogger *zap.Logger, method string, start time.Time, err error) {
	code := codes.OK
	if err != nil {
		code = status.Code(err)
	}
	metrics.GrpcRequestsTotal.WithLabelValues(method, code.String()).Inc()

	fields := []zap.Field{
		zap.String("method", method),
		zap.String("code", code.String()),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil && code != codes.NotFound && code != codes.Canceled {
		requestLogger.Warn("gRPC request failed", append(fields, zap.Error(err))...)
		return
	}
	// Health probes hit this path every few seconds.
	requestLogger.Debug("gRPC request completed", fields...)
}

func requestIDFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(requestIDKey)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func withRequestID(ctx context.Context, requestID string) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		md = md.Copy()
	} else {
		md = metadata.New(nil)
	}
	md.Set(requestIDKey, requestID)
	return metadata.NewIncomingContext(ctx, md)
}

type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
