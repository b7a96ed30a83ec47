// File: backend/services/audit-service/cmd/audit-service/external.go
package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/config"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/infrastructure/database"
	infraDbPostgres "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/infrastructure/database/postgres"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/search/opensearch"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/migrations"
)

func initDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	if cfg.Database.AutoMigrate {
		logger.Info("Running database migrations")
		manager := migrations.NewManager(cfg.Database.MigrationsPath, cfg.Database.URL(), logger)
		if err := manager.FixDirtyState(); err != nil {
			return nil, fmt.Errorf("fix dirty migration state: %w", err)
		}
		if err := manager.MigrateUp(); err != nil {
			return nil, err
		}
	}

	return infraDbPostgres.NewDBPool(ctx, cfg.Database)
}

// initRedis returns nil when the cache is disabled.
func initRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	return database.NewRedisClient(ctx, cfg.Redis)
}

// initSearch returns nil when indexing is disabled. A cluster that is down at
// startup is logged and retried lazily by every index call.
func initSearch(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*opensearch.Client, error) {
	if !cfg.OpenSearch.Enabled {
		return nil, nil
	}
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: cfg.OpenSearch.Addresses,
		Username:  cfg.OpenSearch.Username,
		Password:  cfg.OpenSearch.Password,
		Index:     cfg.OpenSearch.Index,
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := client.EnsureIndex(ctx); err != nil {
		logger.Warn("Search index is not ready", zap.String("index", client.Index()), zap.Error(err))
	}
	return client, nil
}
