// File: backend/services/audit-service/internal/utils/shutdown/shutdown.go
package shutdown

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Step is one named shutdown action, run after the HTTP server stops.
type Step struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Wait блокирует выполнение до получения сигнала завершения или отмены ctx
// и выполняет graceful shutdown HTTP сервера и шагов в заданном порядке.
func Wait(ctx context.Context, httpSrv *http.Server, timeout time.Duration, logger *zap.Logger, steps ...Step) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info("Shutting down...")

	Run(httpSrv, timeout, logger, steps...)
}

// Run performs the shutdown sequence without waiting for a signal.
func Run(httpSrv *http.Server, timeout time.Duration, logger *zap.Logger, steps ...Step) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if httpSrv != nil {
		if err := httpSrv.Shutdown(ctx); err != nil {
			logger.Error("HTTP server forced to shutdown", zap.Error(err))
		}
	}

	for _, step := range steps {
		if err := step.Fn(ctx); err != nil {
			logger.Error("Shutdown step failed", zap.String("step", step.Name), zap.Error(err))
		}
	}
	logger.Info("Service exited properly")
}
