package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/kanban-service/internal/api/http"
	"github.com/spec-kit/kanban-service/internal/api/http/handlers"
	"github.com/spec-kit/kanban-service/internal/config"
	"github.com/spec-kit/kanban-service/internal/events"
	"github.com/spec-kit/kanban-service/internal/observability"
	"github.com/spec-kit/kanban-service/internal/persistence"
	"github.com/spec-kit/kanban-service/internal/repository"
	"github.com/spec-kit/kanban-service/internal/repository/sqlite"
	"github.com/spec-kit/kanban-service/internal/service"
	"github.com/spec-kit/kanban-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer store.Close() //nolint:errcheck

	rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer rdb.Close()

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	var (
		forwarder   *events.RedisPublisher
		redisClient *redis.Client
	)
	checks := []handlers.DependencyCheck{{Name: cfg.Database.Driver, Ping: store.Ping}}
	if rdb != nil {
		redisClient = rdb.Client
		forwarder = events.NewRedisPublisher(rdb.Client, cfg.Redis.EventsChannel, logger)
		checks = append(checks, handlers.DependencyCheck{Name: "redis", Ping: rdb.Ping})
	}
	worker.StartNotificationWorker(dispatcher, notificationService, forwarder)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   store.Tickets,
		AuditLogRepo: store.AuditLogs,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	metadataService := service.NewMetadataService(store.Metadata, dispatcher, logger)

	metrics := observability.NewMetrics()
	app := httptransport.NewApp(cfg.App.Name, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		APIPrefix:          cfg.App.APIPrefix,
		Health:             handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, checks...),
		Tickets:            handlers.NewTicketsHandler(ticketService),
		Metadata:           handlers.NewMetadataHandler(metadataService),
		Redis:              redisClient,
		RateLimitPerMinute: cfg.App.RateLimitPerMinute,
		StaticDir:          cfg.App.StaticDir,
		Logger:             logger,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer drainCancel()
	if err := notificationService.Shutdown(drainCtx); err != nil {
		logger.Warn("webhook deliveries still in flight", zap.Error(err))
	}
}

// openStore connects the configured driver and applies migrations.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repository.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pool, err := persistence.OpenPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Database.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return repository.NewPostgresStore(pool), nil
	default:
		db, err := persistence.OpenSQLite(ctx, cfg.SQLite, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Database.RunMigrations {
			if err := persistence.RunSQLiteMigrations(ctx, db, logger); err != nil {
				db.Close()
				return nil, err
			}
		}
		return sqlite.NewStore(db), nil
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
