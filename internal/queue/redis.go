package queue

import (
	"context"

	"github.com/redis/go-redis/v9"

	"slidecast/internal/pkg/errors"
)

// Redis is a queue backed by a Redis list. It lets the API and the
// render workers run as separate processes.
type Redis struct {
	rdb      *redis.Client
	name     string
	capacity int64
}

func NewRedis(rdb *redis.Client, name string, capacity int) *Redis {
	return &Redis{rdb: rdb, name: name, capacity: int64(capacity)}
}

func (q *Redis) Enqueue(ctx context.Context, jobID string) error {
	if q.capacity > 0 {
		depth, err := q.rdb.LLen(ctx, q.name).Result()
		if err != nil {
			return errors.WrapWithCode(err, errors.CodeUnavailable, "queue.enqueue", "redis unavailable")
		}
		if depth >= q.capacity {
			return errors.Capacity("render queue is full, try again later")
		}
	}
	if err := q.rdb.LPush(ctx, q.name, jobID).Err(); err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable, "queue.enqueue", "redis unavailable")
	}
	return nil
}

// Dequeue blocks on BRPOP until a job ID arrives or the context ends.
func (q *Redis) Dequeue(ctx context.Context) (string, error) {
	res, err := q.rdb.BRPop(ctx, 0, q.name).Result()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errors.WrapWithCode(err, errors.CodeUnavailable, "queue.dequeue", "redis unavailable")
	}
	if len(res) < 2 {
		return "", errors.Internal("malformed BRPOP reply")
	}
	return res[1], nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (q *Redis) Close() error { return nil }

// Ping verifies the Redis connection, used by health checks.
func (q *Redis) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}
