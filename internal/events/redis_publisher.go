package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// redisPublisher is the slice of *redis.Client the forwarder needs.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisPublisher forwards dispatched events to a Redis pub/sub channel so
// other processes can follow board changes.
type RedisPublisher struct {
	client  redisPublisher
	channel string
	log     *zap.Logger
}

func NewRedisPublisher(client *redis.Client, channel string, log *zap.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, log: log}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Type, err)
	}
	if err := p.client.Publish(ctx, p.channel, string(data)).Err(); err != nil {
		p.log.Warn("redis publish failed",
			zap.String("channel", p.channel),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return err
	}
	return nil
}

// Register subscribes the publisher to every event type on d.
func (p *RedisPublisher) Register(d Dispatcher) {
	SubscribeAll(d, p.Publish)
}
