package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/claimflow/internal/application/port"
	"github.com/garyjia/claimflow/internal/domain/event"
)

// Client is the go-redis surface the publisher uses. *redis.Client satisfies it.
type Client interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Config holds the redis connection and channel prefix
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewClient opens a go-redis client
func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Publisher fans change signals out on redis pub/sub. Each event type has its own
// channel named "<prefix>:<type>", e.g. "claimflow:claims.changed".
type Publisher struct {
	client Client
	prefix string
	logger *zap.Logger
}

// NewPublisher creates a publisher
func NewPublisher(client Client, prefix string, logger *zap.Logger) *Publisher {
	if prefix == "" {
		prefix = "claimflow"
	}
	return &Publisher{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

// Name implements port.ChangePublisher
func (p *Publisher) Name() string {
	return "redis"
}

// Channel returns the channel events of type t are published on
func (p *Publisher) Channel(t event.Type) string {
	return p.prefix + ":" + t.String()
}

// Publish implements port.ChangePublisher
func (p *Publisher) Publish(ctx context.Context, evt *event.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	channel := p.Channel(evt.Type)
	receivers, err := p.client.Publish(ctx, channel, data).Result()
	if err != nil {
		p.logger.Error("Failed to publish change signal",
			zap.String("channel", channel),
			zap.String("event_id", evt.ID),
			zap.Error(err))
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}

	p.logger.Debug("Change signal published",
		zap.String("channel", channel),
		zap.String("event_id", evt.ID),
		zap.Int64("receivers", receivers))
	return nil
}

var _ port.ChangePublisher = (*Publisher)(nil)
