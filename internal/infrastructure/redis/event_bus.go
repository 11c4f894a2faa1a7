package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"go-roundflow/internal/domain"

	"github.com/redis/go-redis/v9"
)

const phaseChannel = "workflow:events:phase"

type RedisEventBus struct {
	client  *redis.Client
	channel string
}

func NewRedisEventBus(client *redis.Client) *RedisEventBus {
	return &RedisEventBus{
		client:  client,
		channel: phaseChannel,
	}
}

// PublishPhaseTransition broadcasts the event to every subscriber
func (b *RedisEventBus) PublishPhaseTransition(ctx context.Context, event domain.PhaseTransitionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return b.client.Publish(ctx, b.channel, payload).Err()
}

// SubscribeToEvents opens a continuous stream of phase transitions. The
// subscription is confirmed before it returns; the channel closes when ctx
// is done.
func (b *RedisEventBus) SubscribeToEvents(ctx context.Context) (<-chan domain.PhaseTransitionEvent, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", b.channel, err)
	}

	msgChan := make(chan domain.PhaseTransitionEvent)

	go func() {
		defer close(msgChan)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event domain.PhaseTransitionEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("EventBus: dropping malformed event: %v", err)
					continue
				}
				select {
				case msgChan <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return msgChan, nil
}
