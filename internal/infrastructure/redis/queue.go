package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RedisQueue struct {
	client    *redis.Client
	queueName string
	// blockFor bounds a single BLPOP so Pop notices cancellation
	blockFor time.Duration
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{
		client:    client,
		queueName: "workflow:queue:runs",
		blockFor:  time.Second,
	}
}

// Push adds a run ID to the end of the list
func (q *RedisQueue) Push(ctx context.Context, runID uuid.UUID) error {
	return q.client.RPush(ctx, q.queueName, runID.String()).Err()
}

// Pop waits for a run ID and removes it from the front of the list.
// It returns ctx.Err() once ctx is done.
func (q *RedisQueue) Pop(ctx context.Context) (uuid.UUID, error) {
	var result []string
	for {
		if err := ctx.Err(); err != nil {
			return uuid.Nil, err
		}
		var err error
		result, err = q.client.BLPop(ctx, q.blockFor, q.queueName).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return uuid.Nil, ctxErr
			}
			return uuid.Nil, err
		}
		break
	}
	// BLPop returns a slice: [QueueName, Element]
	id, err := uuid.Parse(result[1])
	if err != nil {
		return uuid.Nil, fmt.Errorf("queue %s: bad run id %q: %w", q.queueName, result[1], err)
	}
	return id, nil
}
