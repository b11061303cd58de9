package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel all gateway instances share on the coordination store.
const eventsChannel = "chat:events"

// RedisBus relays events between server processes over a Redis pub/sub
// channel, so a mutation accepted by one instance reaches subscribers
// connected to every other instance.
type RedisBus struct {
	client *redis.Client
	pubsub *redis.PubSub
	log    *zap.Logger
}

func NewRedisBus(client *redis.Client, log *zap.Logger) *RedisBus {
	return &RedisBus{
		client: client,
		log:    log.With(zap.String("module", "redis_bus")),
	}
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, eventsChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe opens the pub/sub subscription and decodes incoming frames
// onto the returned channel. The publisher also receives its own
// events, which is how the originating process fans out locally.
func (b *RedisBus) Subscribe(ctx context.Context) (<-chan Event, error) {
	b.pubsub = b.client.Subscribe(ctx, eventsChannel)
	if _, err := b.pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", eventsChannel, err)
	}

	out := make(chan Event, busBuffer)
	go func() {
		defer close(out)
		for msg := range b.pubsub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warn("dropping malformed event", zap.Error(err))
				continue
			}
			out <- ev
		}
	}()
	return out, nil
}

func (b *RedisBus) Close() error {
	if b.pubsub != nil {
		return b.pubsub.Close()
	}
	return nil
}
