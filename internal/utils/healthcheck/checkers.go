// File: backend/services/audit-service/internal/utils/healthcheck/checkers.go
package healthcheck

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisPinger adapts a go-redis client, whose Ping returns a command.
func RedisPinger(client redis.UniversalClient) Pinger {
	if client == nil {
		return nil
	}
	return PingerFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}
