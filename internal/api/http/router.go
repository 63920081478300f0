package http

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/kanban-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	APIPrefix string
	Health    *handlers.HealthHandler
	Tickets   *handlers.TicketsHandler
	Metadata  *handlers.MetadataHandler

	// Redis enables the API rate limiter when non-nil and RateLimitPerMinute > 0.
	Redis              *redis.Client
	RateLimitPerMinute int
	// StaticDir, when set, serves a single-page app with index.html fallback.
	StaticDir string
	Logger    *zap.Logger
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	prefix := cfg.APIPrefix
	if prefix == "" {
		prefix = "/api"
	}
	api := app.Group(prefix)
	if cfg.Redis != nil && cfg.RateLimitPerMinute > 0 {
		api.Use(rateLimitMiddleware(cfg.Redis, cfg.RateLimitPerMinute, time.Minute, loggerOrNop(cfg.Logger)))
	}

	api.Get("/tickets", cfg.Tickets.ListTickets)
	api.Post("/tickets", cfg.Tickets.CreateTicket)
	api.Get("/tickets/:id", cfg.Tickets.GetTicket)
	api.Put("/tickets/:id", cfg.Tickets.UpdateTicket)
	api.Delete("/tickets/:id", cfg.Tickets.DeleteTicket)

	api.Get("/metadata/:kind", cfg.Metadata.List)
	api.Post("/metadata/:kind", cfg.Metadata.Create)

	api.Get("/audit-logs/:ticketId", cfg.Tickets.ListAuditLog)

	if cfg.StaticDir != "" {
		registerStatic(app, prefix, cfg.StaticDir)
	}
}

// registerStatic serves built assets and falls back to index.html for client
// side routes. API paths never fall through to the app shell.
func registerStatic(app *fiber.App, apiPrefix, dir string) {
	index := filepath.Join(dir, "index.html")
	app.Static("/", dir)
	app.Get("/*", func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), apiPrefix+"/") || strings.HasPrefix(c.Path(), "/health/") {
			return fiber.ErrNotFound
		}
		if _, err := os.Stat(index); err != nil {
			return fiber.ErrNotFound
		}
		return c.SendFile(index)
	})
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
