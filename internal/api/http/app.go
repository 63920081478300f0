package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/kanban-service/internal/observability"
)

// NewApp builds the fiber application with global middlewares attached.
// Routes are added separately through RegisterRoutes.
func NewApp(appName string, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           timeout,
	})
	RegisterMiddlewares(app, logger, metrics, timeout)
	return app
}
