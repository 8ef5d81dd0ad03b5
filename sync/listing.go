package sync

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/trototvn/sync-service/backends/rstreams"
	"github.com/trototvn/sync-service/embedder"
	"github.com/trototvn/sync-service/events"
	"github.com/trototvn/sync-service/validate"
)

// Consumer is the stream transport a CDC worker reads from
type Consumer interface {
	CreateConsumerGroup(ctx context.Context) error
	Consume(ctx context.Context, handler rstreams.Handler) error
}

type ListingWorkerConfig struct {
	Consumer  Consumer
	Embedder  Embedder
	Index     ListingIndex
	Policy    Policy
	Dimension int
}

// ListingWorker syncs listing changes from the CDC stream into the index,
// gated by the configured status policy.
type ListingWorker struct {
	cfg *ListingWorkerConfig
	log *logrus.Entry
}

func NewListingWorker(cfg *ListingWorkerConfig) (*ListingWorker, error) {
	if err := validateListingWorkerConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "unable to validate listing worker config")
	}

	return &ListingWorker{
		cfg: cfg,
		log: logrus.WithField("pkg", "sync/listing"),
	}, nil
}

func (w *ListingWorker) Name() string {
	return "listing-cdc"
}

// Run consumes the CDC stream. Queue-mode deployments construct the worker
// without a consumer and route jobs through HandleJob instead.
func (w *ListingWorker) Run(ctx context.Context) error {
	if w.cfg.Consumer == nil {
		return validate.ErrMissingConsumer
	}

	if err := w.cfg.Consumer.CreateConsumerGroup(ctx); err != nil {
		return errors.Wrap(err, "unable to create consumer group")
	}

	return w.cfg.Consumer.Consume(ctx, w.HandleEvent)
}

// HandleEvent applies the status-transition policy to one change event and
// performs at most one index operation. Returning an error leaves the record
// unacknowledged.
func (w *ListingWorker) HandleEvent(ctx context.Context, op events.Operation, env *events.Envelope) error {
	switch op {
	case events.OpCreate:
		after, err := events.DecodeListing(env.After)
		if err != nil {
			return err
		}

		// Synthetic empty old status for freshly created rows
		return w.apply(ctx, w.cfg.Policy("", after.Status), after)

	case events.OpUpdate:
		before, err := events.DecodeListing(env.Before)
		if err != nil {
			return err
		}

		after, err := events.DecodeListing(env.After)
		if err != nil {
			return err
		}

		action := w.cfg.Policy(before.Status, after.Status)

		if before.Status != after.Status {
			w.log.Infof("listing %d status '%s' -> '%s' (%s)",
				after.PostID, before.Status, after.Status, action)
		}

		return w.apply(ctx, action, after)

	case events.OpDelete:
		before, err := events.DecodeListing(env.Before)
		if err != nil {
			return err
		}

		// Always delete - idempotent even if the listing was never indexed
		if err := w.cfg.Index.DeleteListing(ctx, before.PostID); err != nil {
			return errors.Wrap(err, "unable to delete listing from index")
		}

		w.log.Infof("listing %d deleted upstream, removed from index", before.PostID)

		return nil

	case events.OpSnapshot:
		// Snapshot reads are handled by the backfill path
		w.log.Debug("skipping snapshot read event")
		return nil
	}

	return errors.Wrapf(events.ErrMalformedEnvelope, "unrecognized operation '%s'", op)
}

func (w *ListingWorker) apply(ctx context.Context, action Action, rec *events.ListingRecord) error {
	switch action {
	case ActionUpsert:
		return w.upsert(ctx, rec)
	case ActionDelete:
		if err := w.cfg.Index.DeleteListing(ctx, rec.PostID); err != nil {
			return errors.Wrap(err, "unable to delete listing from index")
		}

		return nil
	}

	w.log.Debugf("listing %d: status '%s' not indexed, skipping", rec.PostID, rec.Status)

	return nil
}

// upsert runs the enrichment chain: project text, generate the embedding,
// write the full document. Any failure propagates so the record stays
// pending and is retried on redelivery.
func (w *ListingWorker) upsert(ctx context.Context, rec *events.ListingRecord) error {
	text := embedder.ListingText(rec)

	vector, err := w.cfg.Embedder.Embed(ctx, text, w.cfg.Dimension)
	if err != nil {
		return errors.Wrapf(err, "unable to generate embedding for listing %d", rec.PostID)
	}

	if err := w.cfg.Index.UpsertListing(ctx, rec.PostID, vector, rec); err != nil {
		return errors.Wrapf(err, "unable to upsert listing %d", rec.PostID)
	}

	w.log.Infof("listing %d synced (status: %s)", rec.PostID, rec.Status)

	return nil
}

// HandleJob processes one backfill job descriptor. The producer has already
// decided relevance, so no status policy is applied here.
func (w *ListingWorker) HandleJob(ctx context.Context, payload []byte) error {
	job := &ListingJob{}

	if err := json.Unmarshal(payload, job); err != nil {
		return errors.Wrap(err, "unable to decode listing job")
	}

	if job.PostID == 0 {
		return errors.New("listing job is missing postId")
	}

	switch job.Operation {
	case JobOpInsert, JobOpUpdate:
		rec := &events.ListingRecord{}

		if err := json.Unmarshal(job.Data, rec); err != nil {
			return errors.Wrap(err, "unable to decode listing job data")
		}

		rec.PostID = job.PostID

		return w.upsert(ctx, rec)

	case JobOpDelete:
		if err := w.cfg.Index.DeleteListing(ctx, job.PostID); err != nil {
			return errors.Wrap(err, "unable to delete listing from index")
		}

		return nil
	}

	return errors.Errorf("unrecognized job operation '%s'", job.Operation)
}

func validateListingWorkerConfig(cfg *ListingWorkerConfig) error {
	if cfg == nil {
		return validate.ErrMissingArgs
	}

	if cfg.Embedder == nil {
		return validate.ErrMissingEmbedder
	}

	if cfg.Index == nil {
		return validate.ErrMissingIndex
	}

	if cfg.Policy == nil {
		return validate.ErrMissingPolicy
	}

	if cfg.Dimension <= 0 {
		return validate.ErrInvalidDimension
	}

	return nil
}
