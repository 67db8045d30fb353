package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultQueueKey = "tix:tasks"

// Enqueuer is the producer side of the queue, all mutation handlers
// need.
type Enqueuer interface {
	Enqueue(ctx context.Context, task Task) error
}

// RedisQueue is a Redis-list task queue: LPUSH to enqueue, BRPOP to
// consume.
type RedisQueue struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisQueue builds a queue on the given client. An empty key uses
// the default list.
func NewRedisQueue(client *redis.Client, key string, logger *zap.Logger) *RedisQueue {
	if key == "" {
		key = defaultQueueKey
	}
	return &RedisQueue{client: client, key: key, logger: logger}
}

// Enqueue pushes the task onto the queue.
func (q *RedisQueue) Enqueue(ctx context.Context, task Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	q.logger.Debug("task enqueued",
		zap.String("task_id", task.ID),
		zap.String("task_type", string(task.Type)))
	return nil
}

// Dequeue blocks up to the poll interval for the next task. It returns
// (nil, nil) when the interval elapsed with nothing queued.
func (q *RedisQueue) Dequeue(ctx context.Context, wait time.Duration) (*Task, error) {
	result, err := q.client.BRPop(ctx, wait, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("dequeue task: %w", err)
	}
	// BRPop returns [key, value].
	var task Task
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &task, nil
}
