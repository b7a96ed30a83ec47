// File: backend/services/audit-service/internal/domain/repository/redis/user_cache.go

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/models"
)

const defaultUserTTL = 10 * time.Minute

// UserCache представляет кэш пользователей проекции в Redis.
// Every user is stored twice: under its id and under its external id.
type UserCache struct {
	client redis.UniversalClient
	logger *zap.Logger
	ttl    time.Duration
}

// NewUserCache создает новый экземпляр UserCache
func NewUserCache(client redis.UniversalClient, logger *zap.Logger, ttl time.Duration) *UserCache {
	if ttl <= 0 {
		ttl = defaultUserTTL
	}
	return &UserCache{
		client: client,
		logger: logger.Named("user_cache"),
		ttl:    ttl,
	}
}

func userIDKey(id uuid.UUID) string {
	return fmt.Sprintf("projection_user:id:%s", id.String())
}

func userExternalIDKey(externalID string) string {
	return fmt.Sprintf("projection_user:ext:%s", externalID)
}

// GetByID returns the cached user or (nil, nil) on a miss.
func (c *UserCache) GetByID(ctx context.Context, id uuid.UUID) (*models.ProjectionUser, error) {
	return c.get(ctx, userIDKey(id))
}

// GetByExternalID returns the cached user or (nil, nil) on a miss.
func (c *UserCache) GetByExternalID(ctx context.Context, externalID string) (*models.ProjectionUser, error) {
	return c.get(ctx, userExternalIDKey(externalID))
}

func (c *UserCache) get(ctx context.Context, key string) (*models.ProjectionUser, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s from cache: %w", key, err)
	}

	var user models.ProjectionUser
	if err := json.Unmarshal(data, &user); err != nil {
		c.logger.Error("Failed to unmarshal cached user", zap.String("key", key), zap.Error(err))
		// A corrupt entry is treated as a miss and dropped.
		_ = c.client.Del(ctx, key).Err()
		return nil, nil
	}
	return &user, nil
}

// Set stores user under both keys.
func (c *UserCache) Set(ctx context.Context, user *models.ProjectionUser) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, userIDKey(user.ID), data, c.ttl)
		pipe.Set(ctx, userExternalIDKey(user.ExternalID), data, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache user %s: %w", user.ID, err)
	}
	return nil
}

// Invalidate removes both keys of user.
func (c *UserCache) Invalidate(ctx context.Context, user *models.ProjectionUser) error {
	if err := c.client.Del(ctx, userIDKey(user.ID), userExternalIDKey(user.ExternalID)).Err(); err != nil {
		return fmt.Errorf("invalidate user %s: %w", user.ID, err)
	}
	return nil
}
