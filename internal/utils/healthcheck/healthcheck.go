// File: backend/services/audit-service/internal/utils/healthcheck/healthcheck.go

package healthcheck

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Status представляет статус компонента
type Status string

const (
	// StatusUp означает, что компонент работает нормально
	StatusUp Status = "UP"
	// StatusDown означает, что компонент не работает
	StatusDown Status = "DOWN"
)

const checkTimeout = 5 * time.Second

// Pinger is anything that can verify its own connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

// Ping calls f.
func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Component представляет компонент системы для проверки здоровья
type Component struct {
	Name     string `json:"name"`
	Status   Status `json:"status"`
	Optional bool   `json:"optional,omitempty"`
	Error    string `json:"error,omitempty"`
}

// HealthCheck представляет результат проверки здоровья системы
type HealthCheck struct {
	Status     Status      `json:"status"`
	Components []Component `json:"components"`
	Timestamp  time.Time   `json:"timestamp"`
}

type check struct {
	name     string
	pinger   Pinger
	optional bool
}

// Service представляет сервис проверки здоровья
type Service struct {
	checks []check
	logger *zap.Logger
}

// NewService создает новый сервис проверки здоровья
func NewService(logger *zap.Logger) *Service {
	return &Service{logger: logger.Named("healthcheck")}
}

// Register adds a required component. A nil pinger reports the component as not initialized.
func (s *Service) Register(name string, pinger Pinger) *Service {
	s.checks = append(s.checks, check{name: name, pinger: pinger})
	return s
}

// RegisterOptional adds a component whose failure does not mark the service down.
func (s *Service) RegisterOptional(name string, pinger Pinger) *Service {
	s.checks = append(s.checks, check{name: name, pinger: pinger, optional: true})
	return s
}

// CheckHealth проверяет здоровье всех компонентов системы
func (s *Service) CheckHealth(ctx context.Context) HealthCheck {
	components := make([]Component, 0, len(s.checks))
	overallStatus := StatusUp

	for _, c := range s.checks {
		component := s.checkComponent(ctx, c)
		components = append(components, component)
		if component.Status == StatusDown && !c.optional {
			overallStatus = StatusDown
		}
	}

	return HealthCheck{
		Status:     overallStatus,
		Components: components,
		Timestamp:  time.Now().UTC(),
	}
}

func (s *Service) checkComponent(ctx context.Context, c check) Component {
	component := Component{
		Name:     c.name,
		Status:   StatusUp,
		Optional: c.optional,
	}

	if c.pinger == nil {
		component.Status = StatusDown
		component.Error = c.name + " connection is not initialized"
		return component
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := c.pinger.Ping(ctx); err != nil {
		component.Status = StatusDown
		component.Error = err.Error()
		s.logger.Error("Health check failed", zap.String("component", c.name), zap.Error(err))
	}
	return component
}

// Handler возвращает HTTP обработчик для проверки здоровья
func (s *Service) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		healthCheck := s.CheckHealth(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if healthCheck.Status == StatusDown {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		if err := json.NewEncoder(w).Encode(healthCheck); err != nil {
			s.logger.Error("Failed to encode health check response", zap.Error(err))
		}
	}
}
