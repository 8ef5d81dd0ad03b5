// Package rqueue is a thin Redis list work-queue client used by the backfill
// ingestion path.
package rqueue

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/trototvn/sync-service/validate"
)

const BackendName = "redis-queue"

// DefaultPopTimeout bounds a blocking pop so worker loops stay interruptible
const DefaultPopTimeout = 5 * time.Second

type Args struct {
	Address  string
	Username string
	Password string
	Database int
}

type RedisQueue struct {
	args   *Args
	client *redis.Client
	log    *logrus.Entry
}

func New(args *Args) (*RedisQueue, error) {
	if err := validateArgs(args); err != nil {
		return nil, errors.Wrap(err, "unable to validate redis-queue args")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     args.Address,
		Username: args.Username,
		Password: args.Password,
		DB:       args.Database,
	})

	return &RedisQueue{
		args:   args,
		client: client,
		log:    logrus.WithField("pkg", "backends/rqueue"),
	}, nil
}

func (q *RedisQueue) Name() string {
	return BackendName
}

func (q *RedisQueue) Test(ctx context.Context) error {
	if err := q.client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "unable to ping redis")
	}

	return nil
}

func (q *RedisQueue) Close(_ context.Context) error {
	return q.client.Close()
}

// Push appends one job descriptor to the tail of the queue
func (q *RedisQueue) Push(ctx context.Context, queue string, payload []byte) error {
	if queue == "" {
		return validate.ErrMissingQueue
	}

	if err := q.client.RPush(ctx, queue, payload).Err(); err != nil {
		return errors.Wrapf(err, "unable to push job onto queue '%s'", queue)
	}

	return nil
}

// PopBlocking pops the oldest job off the queue, blocking up to timeout.
// A (nil, nil) return means the queue was empty for the whole window.
func (q *RedisQueue) PopBlocking(ctx context.Context, queue string, timeout time.Duration) ([]byte, error) {
	if queue == "" {
		return nil, validate.ErrMissingQueue
	}

	if timeout <= 0 {
		timeout = DefaultPopTimeout
	}

	result, err := q.client.BLPop(ctx, timeout, queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, errors.Wrapf(err, "unable to pop job from queue '%s'", queue)
	}

	// BLPOP returns [key, value]
	if len(result) != 2 {
		return nil, errors.Errorf("unexpected BLPOP reply length %d for queue '%s'", len(result), queue)
	}

	return []byte(result[1]), nil
}

func validateArgs(args *Args) error {
	if args == nil {
		return validate.ErrMissingArgs
	}

	if args.Address == "" {
		return validate.ErrMissingAddress
	}

	return nil
}
