package sync

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/trototvn/sync-service/embedder"
	"github.com/trototvn/sync-service/events"
	"github.com/trototvn/sync-service/validate"
)

type UserWorkerConfig struct {
	Consumer  Consumer
	Embedder  Embedder
	Index     UserIndex
	Dimension int
}

// UserWorker syncs user profile changes into the index. Profiles have no
// moderation state, so every create/update upserts and every delete deletes.
type UserWorker struct {
	cfg *UserWorkerConfig
	log *logrus.Entry
}

func NewUserWorker(cfg *UserWorkerConfig) (*UserWorker, error) {
	if err := validateUserWorkerConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "unable to validate user worker config")
	}

	return &UserWorker{
		cfg: cfg,
		log: logrus.WithField("pkg", "sync/user"),
	}, nil
}

func (w *UserWorker) Name() string {
	return "user-cdc"
}

func (w *UserWorker) Run(ctx context.Context) error {
	if w.cfg.Consumer == nil {
		return validate.ErrMissingConsumer
	}

	if err := w.cfg.Consumer.CreateConsumerGroup(ctx); err != nil {
		return errors.Wrap(err, "unable to create consumer group")
	}

	return w.cfg.Consumer.Consume(ctx, w.HandleEvent)
}

// HandleEvent maps one profile change event to an index operation
func (w *UserWorker) HandleEvent(ctx context.Context, op events.Operation, env *events.Envelope) error {
	switch op {
	case events.OpCreate, events.OpUpdate:
		after, err := events.DecodeUser(env.After)
		if err != nil {
			return err
		}

		if err := w.upsert(ctx, after); err != nil {
			return err
		}

		return nil

	case events.OpDelete:
		before, err := events.DecodeUser(env.Before)
		if err != nil {
			return err
		}

		if err := w.cfg.Index.DeleteUser(ctx, before.CustomerID); err != nil {
			return errors.Wrap(err, "unable to delete user from index")
		}

		w.log.Infof("user %d deleted upstream, removed from index", before.CustomerID)

		return nil

	case events.OpSnapshot:
		w.log.Debug("skipping snapshot read event")
		return nil
	}

	return errors.Wrapf(events.ErrMalformedEnvelope, "unrecognized operation '%s'", op)
}

func (w *UserWorker) upsert(ctx context.Context, rec *events.UserRecord) error {
	text := embedder.UserText(rec)

	vector, err := w.cfg.Embedder.Embed(ctx, text, w.cfg.Dimension)
	if err != nil {
		return errors.Wrapf(err, "unable to generate embedding for user %d", rec.CustomerID)
	}

	if err := w.cfg.Index.UpsertUser(ctx, rec.CustomerID, vector, rec); err != nil {
		return errors.Wrapf(err, "unable to upsert user %d", rec.CustomerID)
	}

	w.log.Infof("user %d synced", rec.CustomerID)

	return nil
}

// HandleJob processes one backfill job descriptor for a user profile
func (w *UserWorker) HandleJob(ctx context.Context, payload []byte) error {
	job := &UserJob{}

	if err := json.Unmarshal(payload, job); err != nil {
		return errors.Wrap(err, "unable to decode user job")
	}

	if job.CustomerID == 0 {
		return errors.New("user job is missing customerId")
	}

	switch job.Operation {
	case JobOpInsert, JobOpUpdate:
		rec := &events.UserRecord{}

		if err := json.Unmarshal(job.Data, rec); err != nil {
			return errors.Wrap(err, "unable to decode user job data")
		}

		rec.CustomerID = job.CustomerID

		return w.upsert(ctx, rec)

	case JobOpDelete:
		if err := w.cfg.Index.DeleteUser(ctx, job.CustomerID); err != nil {
			return errors.Wrap(err, "unable to delete user from index")
		}

		return nil
	}

	return errors.Errorf("unrecognized job operation '%s'", job.Operation)
}

func validateUserWorkerConfig(cfg *UserWorkerConfig) error {
	if cfg == nil {
		return validate.ErrMissingArgs
	}

	if cfg.Embedder == nil {
		return validate.ErrMissingEmbedder
	}

	if cfg.Index == nil {
		return validate.ErrMissingIndex
	}

	if cfg.Dimension <= 0 {
		return validate.ErrInvalidDimension
	}

	return nil
}
