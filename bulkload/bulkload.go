// Package bulkload builds and enqueues backfill job descriptors for the
// queue-mode workers. The upstream read side (scanning the SQL mirror) lives
// with the operator tooling; this package owns only the job contract.
package bulkload

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/trototvn/sync-service/backends/rqueue"
	"github.com/trototvn/sync-service/events"
	"github.com/trototvn/sync-service/sync"
)

// NewListingInsertJob builds an insert job for one listing row
func NewListingInsertJob(rec *events.ListingRecord) (*sync.ListingJob, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal listing record")
	}

	return &sync.ListingJob{
		Operation: sync.JobOpInsert,
		PostID:    rec.PostID,
		Data:      data,
	}, nil
}

// NewUserInsertJob builds an insert job for one user row
func NewUserInsertJob(rec *events.UserRecord) (*sync.UserJob, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal user record")
	}

	return &sync.UserJob{
		Operation:  sync.JobOpInsert,
		CustomerID: rec.CustomerID,
		Data:       data,
	}, nil
}

// EnqueueListing pushes one listing job onto the backfill queue
func EnqueueListing(ctx context.Context, queue *rqueue.RedisQueue, queueName string, job *sync.ListingJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "unable to marshal listing job")
	}

	if err := queue.Push(ctx, queueName, payload); err != nil {
		return errors.Wrap(err, "unable to enqueue listing job")
	}

	return nil
}

// EnqueueUser pushes one user job onto the backfill queue
func EnqueueUser(ctx context.Context, queue *rqueue.RedisQueue, queueName string, job *sync.UserJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "unable to marshal user job")
	}

	if err := queue.Push(ctx, queueName, payload); err != nil {
		return errors.Wrap(err, "unable to enqueue user job")
	}

	return nil
}
