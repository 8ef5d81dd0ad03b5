// Package rstreams implements the Redis Streams consumer-group transport the
// CDC workers read from.
package rstreams

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"github.com/trototvn/sync-service/validate"
)

const BackendName = "redis-streams"

// DefaultBlockTimeout is how long a batched read blocks waiting for new
// records before looping again
const DefaultBlockTimeout = 5 * time.Second

// DefaultBatchSize is the max number of records fetched per read
const DefaultBatchSize = 10

type Args struct {
	Address  string
	Username string
	Password string
	Database int

	Stream        string
	ConsumerGroup string
	ConsumerName  string

	BatchSize    int64
	BlockTimeout time.Duration
}

type RedisStreams struct {
	args   *Args
	client *redis.Client
	log    *logrus.Entry
}

func New(args *Args) (*RedisStreams, error) {
	if err := validateArgs(args); err != nil {
		return nil, errors.Wrap(err, "unable to validate redis-streams args")
	}

	if args.BatchSize <= 0 {
		args.BatchSize = DefaultBatchSize
	}

	if args.BlockTimeout <= 0 {
		args.BlockTimeout = DefaultBlockTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:     args.Address,
		Username: args.Username,
		Password: args.Password,
		DB:       args.Database,
	})

	return &RedisStreams{
		args:   args,
		client: client,
		log:    logrus.WithField("pkg", "backends/rstreams"),
	}, nil
}

func (r *RedisStreams) Name() string {
	return BackendName
}

// Test verifies connectivity. Called once at startup - a dead broker at
// initialization is fatal, connection loss later is not.
func (r *RedisStreams) Test(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "unable to ping redis")
	}

	return nil
}

func (r *RedisStreams) Close(_ context.Context) error {
	return r.client.Close()
}

// DefaultConsumerName derives a consumer identity unique to this process so
// multiple instances can share one group and split traffic.
func DefaultConsumerName(prefix string) string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	suffix := strings.Split(uuid.NewV4().String(), "-")[0]

	return fmt.Sprintf("%s-%s-%s", prefix, hostname, suffix)
}

func validateArgs(args *Args) error {
	if args == nil {
		return validate.ErrMissingArgs
	}

	if args.Address == "" {
		return validate.ErrMissingAddress
	}

	if args.Stream == "" {
		return validate.ErrMissingStream
	}

	if args.ConsumerGroup == "" {
		return validate.ErrMissingConsumerGroup
	}

	if args.ConsumerName == "" {
		return validate.ErrMissingConsumerName
	}

	return nil
}
