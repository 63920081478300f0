package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/kanban-service/internal/api/dto"
	"github.com/spec-kit/kanban-service/internal/observability"
)

const readinessTimeout = 2 * time.Second

// DependencyCheck pings one backing service for readiness.
type DependencyCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type dependencyStatus struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// HealthHandler serves the /health probes.
type HealthHandler struct {
	serviceName string
	version     string
	started     time.Time
	metrics     *observability.Metrics
	checks      []DependencyCheck
}

func NewHealthHandler(serviceName, version string, metrics *observability.Metrics, checks ...DependencyCheck) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		started:     time.Now(),
		metrics:     metrics,
		checks:      checks,
	}
}

// Live GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         "alive",
		"service":        h.serviceName,
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}

// Ready GET /health/ready pings every dependency concurrently and answers 503
// when any of them fails.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	var (
		mu       sync.Mutex
		statuses = make(map[string]dependencyStatus, len(h.checks))
		failed   bool
	)
	var g errgroup.Group
	for _, check := range h.checks {
		g.Go(func() error {
			start := time.Now()
			err := check.Ping(ctx)
			st := dependencyStatus{Status: "ok", LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				st.Status, st.Error = "unavailable", err.Error()
			}
			mu.Lock()
			statuses[check.Name] = st
			failed = failed || err != nil
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if failed {
		details := make(map[string]any, len(statuses))
		for name, st := range statuses {
			details[name] = st
		}
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Error: dto.ErrorBody{
			Code:    "DEPENDENCY_UNAVAILABLE",
			Message: "one or more dependencies unavailable",
			Details: details,
		}})
	}
	return c.JSON(fiber.Map{"status": "ready", "dependencies": statuses})
}

// Metrics GET /health/metrics.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(h.metrics.Snapshot())
}
