package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/kanban-service/internal/config"
)

// Redis holds the client used for event forwarding and rate limiting.
// A nil *Redis means Redis is disabled; its methods are nil-safe.
type Redis struct {
	Client *redis.Client
}

// NewRedis returns nil when no address is configured. An unreachable server
// is logged but not fatal: both consumers degrade without it.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if !cfg.Enabled() {
		logger.Info("REDIS_ADDR not provided; event forwarding and rate limiting disabled")
		return nil
	}

	opts, err := redisOptions(cfg)
	if err != nil {
		logger.Warn("invalid redis settings; redis disabled", zap.Error(err))
		return nil
	}
	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.String("addr", opts.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	}
	return &Redis{Client: client}
}

// redisOptions accepts either host:port or a redis:// / rediss:// URL.
// Password and DB from the config override the URL when set.
func redisOptions(cfg config.RedisConfig) (*redis.Options, error) {
	if !strings.HasPrefix(cfg.Addr, "redis://") && !strings.HasPrefix(cfg.Addr, "rediss://") {
		return &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}, nil
	}
	opts, err := redis.ParseURL(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	return opts, nil
}

func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping backs the readiness probe.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
