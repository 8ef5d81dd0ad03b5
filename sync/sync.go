// Package sync contains the per-entity CDC handlers, the status-transition
// policy, the queue-mode workers and the supervisor that runs one pipeline
// per entity kind.
package sync

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/trototvn/sync-service/events"
	"github.com/trototvn/sync-service/prometheus"
)

// Embedder is the vector-generator collaborator: pure text -> fixed-length,
// L2-normalized dense vector
type Embedder interface {
	Embed(ctx context.Context, text string, dim int) ([]float32, error)
}

// ListingIndex is the index collaborator surface for listings. Upsert has
// delete-then-insert semantics; Delete of an absent id succeeds.
type ListingIndex interface {
	UpsertListing(ctx context.Context, id int64, vector []float32, rec *events.ListingRecord) error
	DeleteListing(ctx context.Context, id int64) error
}

// UserIndex is the index collaborator surface for user profiles
type UserIndex interface {
	UpsertUser(ctx context.Context, id int64, vector []float32, rec *events.UserRecord) error
	DeleteUser(ctx context.Context, id int64) error
}

// Worker is one long-lived unit of concurrency (one entity pipeline)
type Worker interface {
	Name() string
	Run(ctx context.Context) error
}

// Supervisor runs the workers and keeps the process alive until they all
// exit (which only happens on shutdown or a fatal startup error).
type Supervisor struct {
	workers []Worker
	log     *logrus.Entry
}

func NewSupervisor(workers ...Worker) (*Supervisor, error) {
	if len(workers) == 0 {
		return nil, errors.New("at least one worker is required")
	}

	return &Supervisor{
		workers: workers,
		log:     logrus.WithField("pkg", "sync"),
	}, nil
}

// Run starts every worker in its own goroutine and blocks until all of them
// return. The listing and user pipelines share no state, so a failure in one
// cancels the others only when it is fatal (the worker's Run returned an
// error instead of riding it out).
func (s *Supervisor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	errCh := make(chan error, len(s.workers))

	for _, worker := range s.workers {
		wg.Add(1)

		go func(w Worker) {
			defer wg.Done()

			prometheus.IncrPromGauge(prometheus.SyncWorkers)
			defer prometheus.DecrPromGauge(prometheus.SyncWorkers)

			s.log.Infof("starting worker '%s'", w.Name())

			if err := w.Run(ctx); err != nil {
				s.log.Errorf("worker '%s' exited: %s", w.Name(), err)
				errCh <- errors.Wrapf(err, "worker '%s' failed", w.Name())
				cancel()
				return
			}

			s.log.Infof("worker '%s' stopped", w.Name())
		}(worker)
	}

	wg.Wait()
	close(errCh)

	// Report the first fatal error, if any
	for err := range errCh {
		return err
	}

	return nil
}
