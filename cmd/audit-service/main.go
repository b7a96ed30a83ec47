// File: backend/services/audit-service/cmd/audit-service/main.go
package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/activity"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/config"
	repoPostgres "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/repository/postgres"
	repoRedis "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/repository/redis"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events/handlers"
	grpcHandler "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/handler/grpc"
	httpHandler "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/handler/http"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/service"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/healthcheck"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/logger"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/shutdown"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/telemetry"
)

func main() {
	// Инициализация конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Инициализация логгера
	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Инициализация трассировки
	shutdownTracer := func(context.Context) {}
	if cfg.Telemetry.Tracing.Enabled {
		stop, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Endpoint:    cfg.Telemetry.Tracing.Endpoint,
			Insecure:    cfg.Telemetry.Tracing.Insecure,
			Ratio:       cfg.Telemetry.Tracing.Ratio,
		}, log)
		if err != nil {
			log.Error("Failed to initialize tracer", zap.Error(err))
		} else {
			shutdownTracer = stop
		}
	}

	// PostgreSQL и миграции
	dbPool, err := initDatabase(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize PostgreSQL connection pool", zap.Error(err))
	}

	users := repoPostgres.NewProjectionUserRepositoryPostgres(dbPool)
	logs := repoPostgres.NewLogEntryRepositoryPostgres(dbPool)
	txManager := repoPostgres.NewTransactionManager(dbPool)

	health := healthcheck.NewService(log).
		Register("database", healthcheck.PingerFunc(dbPool.Ping))

	// Optional collaborators stay nil interfaces when disabled.
	var cache service.UserCache
	redisClient, err := initRedis(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize Redis client", zap.Error(err))
	}
	if redisClient != nil {
		cache = repoRedis.NewUserCache(redisClient, log, cfg.Redis.UserTTL)
		health.RegisterOptional("cache", healthcheck.RedisPinger(redisClient))
	}

	var (
		indexer  service.LogIndexer
		searcher service.LogSearcher
	)
	searchClient, err := initSearch(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize OpenSearch client", zap.Error(err))
	}
	if searchClient != nil {
		indexer, searcher = searchClient, searchClient
		health.RegisterOptional("search", searchClient)
	}

	// Шина событий
	bus, err := initBus(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize event bus", zap.Error(err), zap.String("transport", cfg.Bus.Transport))
	}
	health.Register("bus", bus.pinger)

	// Инициализация сервисов
	resolver := service.NewIdentityResolver(users, log)
	writer := service.NewProjectionWriter(txManager, resolver, users, logs, indexer, cache, log)
	queryService := service.NewQueryService(users, logs, writer, searcher, cache, log)

	handlers.NewProjectionEventsHandler(writer, log).Register(bus.consumer)
	if err := bus.consumer.Start(ctx); err != nil {
		log.Fatal("Failed to start event consumer", zap.Error(err))
	}

	// The generator publishes through the bus, so it stops before the bus closes.
	genCtx, stopGenerator := context.WithCancel(ctx)
	genDone := make(chan struct{})
	if cfg.Activity.Enabled {
		generator := activity.NewGenerator(activity.Config{
			Interval:     cfg.Activity.Interval,
			RetryBackoff: cfg.Activity.RetryBackoff,
			MaxBackoff:   cfg.Activity.MaxBackoff,
		}, activity.NewHTTPIdentitySource(cfg.Activity.IdentitySourceURL, cfg.Activity.RequestTimeout), bus.publisher, log)
		go func() {
			defer close(genDone)
			_ = generator.Run(genCtx)
		}()
	} else {
		close(genDone)
	}

	router := httpHandler.SetupRouter(queryService, health, httpHandler.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, log)
	httpServer := startHTTPServer(cfg, router, log)

	// gRPC health для оркестратора
	grpcServer := grpcHandler.NewServer(health, grpcHandler.Config{
		Port:             cfg.GRPC.Port,
		EnableReflection: cfg.GRPC.EnableReflection,
	}, log)
	if cfg.GRPC.Enabled {
		if err := grpcServer.Start(); err != nil {
			log.Fatal("Failed to start gRPC server", zap.Error(err))
		}
	}

	// Ожидание сигнала для graceful shutdown
	shutdown.Wait(ctx, httpServer, cfg.Server.ShutdownTimeout, log,
		shutdown.Step{Name: "grpc", Fn: grpcServer.Stop},
		shutdown.Step{Name: "activity", Fn: func(ctx context.Context) error {
			stopGenerator()
			select {
			case <-genDone:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}},
		// Consumers drain in-flight messages before the root context goes.
		shutdown.Step{Name: "bus", Fn: bus.Close},
		shutdown.Step{Name: "background", Fn: func(context.Context) error { cancel(); return nil }},
		shutdown.Step{Name: "redis", Fn: func(context.Context) error {
			if redisClient == nil {
				return nil
			}
			return redisClient.Close()
		}},
		shutdown.Step{Name: "database", Fn: func(context.Context) error { dbPool.Close(); return nil }},
		shutdown.Step{Name: "tracer", Fn: func(ctx context.Context) error { shutdownTracer(ctx); return nil }},
	)
}
