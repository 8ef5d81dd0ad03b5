// Package milvus wraps the Milvus Go SDK behind the small upsert/delete
// surface the sync workers need. Writes are delete-then-insert with a
// synchronous flush, which is what makes redelivered events harmless.
package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/trototvn/sync-service/validate"
)

const (
	ListingCollection = "posts_hybrid"
	UserCollection    = "users"
)

type Args struct {
	// Address is host:port of the Milvus proxy
	Address string

	// Dimension of the dense vectors stored in both collections
	Dimension int
}

type Milvus struct {
	args   *Args
	client client.Client
	log    *logrus.Entry
}

func New(ctx context.Context, args *Args) (*Milvus, error) {
	if err := validateArgs(args); err != nil {
		return nil, errors.Wrap(err, "unable to validate milvus args")
	}

	c, err := client.NewClient(ctx, client.Config{
		Address: args.Address,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to connect to milvus at '%s'", args.Address)
	}

	return &Milvus{
		args:   args,
		client: c,
		log:    logrus.WithField("pkg", "milvus"),
	}, nil
}

func (m *Milvus) Close(_ context.Context) error {
	return m.client.Close()
}

// Initialize provisions both collections if they do not exist yet and loads
// them. Safe to call at every startup.
func (m *Milvus) Initialize(ctx context.Context) error {
	if err := m.ensureCollection(ctx, ListingCollection, m.listingSchema()); err != nil {
		return errors.Wrap(err, "unable to initialize listing collection")
	}

	if err := m.ensureCollection(ctx, UserCollection, m.userSchema()); err != nil {
		return errors.Wrap(err, "unable to initialize user collection")
	}

	m.log.Info("milvus collections initialized")

	return nil
}

func (m *Milvus) ensureCollection(ctx context.Context, name string, schema *entity.Schema) error {
	has, err := m.client.HasCollection(ctx, name)
	if err != nil {
		return errors.Wrapf(err, "unable to check for collection '%s'", name)
	}

	if has {
		m.log.Debugf("collection '%s' already exists", name)
		return m.client.LoadCollection(ctx, name, false)
	}

	m.log.Infof("creating collection '%s'", name)

	if err := m.client.CreateCollection(ctx, schema, 1); err != nil {
		return errors.Wrapf(err, "unable to create collection '%s'", name)
	}

	denseIndex, err := entity.NewIndexHNSW(entity.COSINE, 16, 256)
	if err != nil {
		return errors.Wrap(err, "unable to construct HNSW index")
	}

	if err := m.client.CreateIndex(ctx, name, denseVectorField, denseIndex, false); err != nil {
		return errors.Wrapf(err, "unable to create dense vector index on '%s'", name)
	}

	if err := m.client.LoadCollection(ctx, name, false); err != nil {
		return errors.Wrapf(err, "unable to load collection '%s'", name)
	}

	return nil
}

// idExpr builds the boolean expression used for delete-by-primary-key
func idExpr(id int64) string {
	return fmt.Sprintf("id == %d", id)
}

// deleteByID removes a document if present; a missing id deletes nothing and
// is not an error, which is exactly the contract the workers rely on.
func (m *Milvus) deleteByID(ctx context.Context, collection string, id int64) error {
	if err := m.client.Delete(ctx, collection, "", idExpr(id)); err != nil {
		return errors.Wrapf(err, "unable to delete id %d from '%s'", id, collection)
	}

	return nil
}

func validateArgs(args *Args) error {
	if args == nil {
		return validate.ErrMissingArgs
	}

	if args.Address == "" {
		return validate.ErrMissingAddress
	}

	if args.Dimension <= 0 {
		return validate.ErrInvalidDimension
	}

	return nil
}
