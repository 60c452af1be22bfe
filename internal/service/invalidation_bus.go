package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sandeepkv93/admin-listing-engine/internal/domain"
	"github.com/sandeepkv93/admin-listing-engine/internal/observability"
)

type InvalidationMessage struct {
	Entity string      `json:"entity"`
	Role   domain.Role `json:"role,omitempty"`
	Origin string      `json:"origin"`
}

type NoopInvalidationPublisher struct{}

func (NoopInvalidationPublisher) Publish(context.Context, string, domain.Role) error { return nil }

// RedisInvalidationBus fans listing invalidations out to every instance
// subscribed to the channel. Each bus has its own origin so that instances
// skip what they published themselves.
type RedisInvalidationBus struct {
	client  redis.UniversalClient
	channel string
	origin  string
	logger  *slog.Logger
}

func NewRedisInvalidationBus(client redis.UniversalClient, channel string, logger *slog.Logger) *RedisInvalidationBus {
	return &RedisInvalidationBus{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  observability.ComponentLogger(logger, "invalidation_bus"),
	}
}

func (b *RedisInvalidationBus) Origin() string { return b.origin }

func (b *RedisInvalidationBus) Publish(ctx context.Context, entity string, role domain.Role) error {
	payload, err := json.Marshal(InvalidationMessage{Entity: entity, Role: role, Origin: b.origin})
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish invalidation: %w", err)
	}
	return nil
}

// Run subscribes to the channel and calls apply for every message published
// by another instance until ctx is done.
func (b *RedisInvalidationBus) Run(ctx context.Context, apply func(context.Context, InvalidationMessage)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer func() { _ = sub.Close() }()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.logger.Info("listening for listing invalidations", "channel", b.channel, "origin", b.origin)

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var m InvalidationMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil || m.Entity == "" {
				b.logger.Warn("discarding invalidation message", "payload_bytes", len(msg.Payload))
				continue
			}
			if m.Origin == b.origin {
				continue
			}
			apply(ctx, m)
		}
	}
}
