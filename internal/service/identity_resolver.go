// File: backend/services/audit-service/internal/service/identity_resolver.go

package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	domainErrors "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/errors"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/models"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/repository"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/metrics"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/timeutil"
	"go.uber.org/zap"
)

// maxResolveAttempts bounds re-reads after a lost insert race. A second miss
// after a duplicate means the winner was rolled back, so we insert again.
const maxResolveAttempts = 3

// IdentityResolver сопоставляет внешний идентификатор с локальным пользователем проекции.
type IdentityResolver struct {
	users  repository.ProjectionUserRepository
	logger *zap.Logger
}

// NewIdentityResolver создает новый экземпляр IdentityResolver
func NewIdentityResolver(users repository.ProjectionUserRepository, logger *zap.Logger) *IdentityResolver {
	return &IdentityResolver{
		users:  users,
		logger: logger.Named("identity_resolver"),
	}
}

// Resolve looks a user up by external id without creating it.
func (r *IdentityResolver) Resolve(ctx context.Context, externalID string) (*models.ProjectionUser, error) {
	externalID, err := normalizeExternalID(externalID)
	if err != nil {
		return nil, err
	}
	return r.users.FindByExternalID(ctx, externalID)
}

// ResolveOrCreate returns the user for externalID, creating it with
// fallbackDisplayName when it does not exist yet. The boolean reports whether
// this call created the user.
func (r *IdentityResolver) ResolveOrCreate(
	ctx context.Context,
	externalID string,
	fallbackDisplayName string,
	observedAt time.Time,
) (*models.ProjectionUser, bool, error) {
	externalID, err := normalizeExternalID(externalID)
	if err != nil {
		return nil, false, err
	}

	for attempt := 1; attempt <= maxResolveAttempts; attempt++ {
		user, err := r.users.FindByExternalID(ctx, externalID)
		if err == nil {
			return user, false, nil
		}
		if !domainErrors.Is(err, domainErrors.ErrUserNotFound) {
			return nil, false, fmt.Errorf("resolve user %q: %w", externalID, err)
		}

		user = &models.ProjectionUser{
			ExternalID:  externalID,
			DisplayName: truncateDisplayName(fallbackDisplayName),
			CreatedAt:   timeutil.NormalizeUTC(observedAt),
		}
		err = r.users.Create(ctx, user)
		if err == nil {
			metrics.UsersCreatedTotal.Inc()
			r.logger.Debug("Projection user created",
				zap.String("external_id", externalID),
				zap.String("user_id", user.ID.String()))
			return user, true, nil
		}
		if !domainErrors.Is(err, domainErrors.ErrDuplicateIdentity) {
			return nil, false, fmt.Errorf("create user %q: %w", externalID, err)
		}

		// Another writer inserted the same identity first; read its row.
		metrics.IdentityRacesTotal.Inc()
		r.logger.Debug("Lost identity race, re-reading",
			zap.String("external_id", externalID),
			zap.Int("attempt", attempt))
	}

	return nil, false, fmt.Errorf("resolve user %q: %w", externalID, domainErrors.ErrDuplicateIdentity)
}

func normalizeExternalID(externalID string) (string, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return "", domainErrors.Validationf("external id must not be empty")
	}
	if utf8.RuneCountInString(externalID) > models.MaxExternalIDLength {
		return "", domainErrors.Validationf("external id exceeds %d characters", models.MaxExternalIDLength)
	}
	return externalID, nil
}

func truncateDisplayName(name string) string {
	runes := []rune(name)
	if len(runes) <= models.MaxDisplayNameLength {
		return name
	}
	return string(runes[:models.MaxDisplayNameLength])
}
