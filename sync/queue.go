package sync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/relistan/go-director"
	"github.com/sirupsen/logrus"

	"github.com/trototvn/sync-service/backends/rqueue"
	"github.com/trototvn/sync-service/prometheus"
	"github.com/trototvn/sync-service/validate"
)

// Job operations accepted on the backfill queues
const (
	JobOpInsert = "insert"
	JobOpUpdate = "update"
	JobOpDelete = "delete"
)

// RetryPopInterval is how long the worker sleeps after a transport-level pop
// failure before retrying
const RetryPopInterval = 5 * time.Second

// ListingJob is the descriptor pushed onto the listing backfill queue
type ListingJob struct {
	Operation string          `json:"operation"`
	PostID    int64           `json:"postId"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// UserJob is the descriptor pushed onto the user backfill queue
type UserJob struct {
	Operation  string          `json:"operation"`
	CustomerID int64           `json:"customerId"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// JobHandler processes one raw job payload
type JobHandler func(ctx context.Context, payload []byte) error

// JobQueue is the work-queue collaborator surface
type JobQueue interface {
	PopBlocking(ctx context.Context, queue string, timeout time.Duration) ([]byte, error)
}

type QueueWorkerConfig struct {
	Queue      JobQueue
	QueueName  string
	Handler    JobHandler
	PopTimeout time.Duration
}

// QueueWorker pops job descriptors off a Redis list and routes them through
// the same enrichment/upsert logic as the CDC path, minus the status policy.
// Per-job failures are logged and skipped; durability across crashes is the
// queue's responsibility.
type QueueWorker struct {
	cfg    *QueueWorkerConfig
	looper director.Looper
	log    *logrus.Entry
}

func NewQueueWorker(cfg *QueueWorkerConfig) (*QueueWorker, error) {
	if err := validateQueueWorkerConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "unable to validate queue worker config")
	}

	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = rqueue.DefaultPopTimeout
	}

	return &QueueWorker{
		cfg:    cfg,
		looper: director.NewFreeLooper(director.FOREVER, make(chan error, 1)),
		log:    logrus.WithField("pkg", "sync/queue").WithField("queue", cfg.QueueName),
	}, nil
}

func (w *QueueWorker) Name() string {
	return "queue-" + w.cfg.QueueName
}

func (w *QueueWorker) Run(ctx context.Context) error {
	w.log.Infof("worker listening on queue '%s'", w.cfg.QueueName)

	w.looper.Loop(func() error {
		if ctx.Err() != nil {
			w.looper.Quit()
			return nil
		}

		payload, err := w.cfg.Queue.PopBlocking(ctx, w.cfg.QueueName, w.cfg.PopTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				w.looper.Quit()
				return nil
			}

			prometheus.IncrPromCounter(prometheus.SyncReadErrors, 1)

			w.log.Errorf("unable to pop job: %s (retrying in %s)", err, RetryPopInterval)

			time.Sleep(RetryPopInterval)

			return nil
		}

		// Queue was empty for the whole block window
		if payload == nil {
			return nil
		}

		if err := w.cfg.Handler(ctx, payload); err != nil {
			// No automatic retry of a failed job; the producer re-enqueues
			// if it cares
			prometheus.IncrPromCounter(prometheus.SyncProcessErrors, 1)
			w.log.Errorf("unable to process job: %s", err)
			return nil
		}

		prometheus.Incr(prometheus.CounterQueueJobs, 1)
		prometheus.IncrPromCounter(prometheus.SyncQueueJobs, 1)

		return nil
	})

	return nil
}

func validateQueueWorkerConfig(cfg *QueueWorkerConfig) error {
	if cfg == nil {
		return validate.ErrMissingArgs
	}

	if cfg.Queue == nil {
		return validate.ErrMissingArgs
	}

	if cfg.QueueName == "" {
		return validate.ErrMissingQueue
	}

	if cfg.Handler == nil {
		return validate.ErrMissingHandler
	}

	return nil
}
