package milvus

import (
	"context"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/pkg/errors"

	"github.com/trototvn/sync-service/embedder"
	"github.com/trototvn/sync-service/events"
	"github.com/trototvn/sync-service/prometheus"
)

const denseVectorField = "dense_vector"

func (m *Milvus) listingSchema() *entity.Schema {
	dim := strconv.Itoa(m.args.Dimension)

	return &entity.Schema{
		CollectionName:     ListingCollection,
		Description:        "Rental listings mirrored from the upstream Post table",
		AutoID:             false,
		EnableDynamicField: true,
		Fields: []*entity.Field{
			{Name: "id", DataType: entity.FieldTypeInt64, PrimaryKey: true, AutoID: false},
			{Name: denseVectorField, DataType: entity.FieldTypeFloatVector, TypeParams: map[string]string{
				entity.TypeParamDim: dim,
			}},

			// Raw text inputs; the server derives term-frequency sparse
			// representations from these
			{Name: "title", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{
				entity.TypeParamMaxLength: "500",
			}},
			{Name: "description", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{
				entity.TypeParamMaxLength: "5000",
			}},
			{Name: "address_text", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{
				entity.TypeParamMaxLength: "500",
			}},

			// Scalar fields for filtering
			{Name: "price", DataType: entity.FieldTypeInt64},
			{Name: "acreage", DataType: entity.FieldTypeInt32},
			{Name: "city", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{
				entity.TypeParamMaxLength: "100",
			}},
			{Name: "district", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{
				entity.TypeParamMaxLength: "100",
			}},
			{Name: "ward", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{
				entity.TypeParamMaxLength: "100",
			}},
			{Name: "street", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{
				entity.TypeParamMaxLength: "200",
			}},
			{Name: "interior_condition", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{
				entity.TypeParamMaxLength: "20",
			}},
			{Name: "status", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{
				entity.TypeParamMaxLength: "20",
			}},

			{Name: "owner_id", DataType: entity.FieldTypeInt64},
			{Name: "created_at", DataType: entity.FieldTypeInt64},
			{Name: "extended_at", DataType: entity.FieldTypeInt64},
		},
	}
}

// UpsertListing replaces the indexed document for one listing. Delete of a
// not-yet-indexed id is a no-op, so the pair behaves as insert-or-replace and
// converges under redelivery.
func (m *Milvus) UpsertListing(ctx context.Context, id int64, vector []float32, rec *events.ListingRecord) error {
	if err := m.deleteByID(ctx, ListingCollection, id); err != nil {
		return err
	}

	columns := []entity.Column{
		entity.NewColumnInt64("id", []int64{id}),
		entity.NewColumnFloatVector(denseVectorField, m.args.Dimension, [][]float32{vector}),
		entity.NewColumnVarChar("title", []string{rec.Title}),
		entity.NewColumnVarChar("description", []string{rec.Description}),
		entity.NewColumnVarChar("address_text", []string{embedder.AddressText(rec)}),
		entity.NewColumnInt64("price", []int64{rec.Price}),
		entity.NewColumnInt32("acreage", []int32{rec.Acreage}),
		entity.NewColumnVarChar("city", []string{rec.City}),
		entity.NewColumnVarChar("district", []string{rec.District}),
		entity.NewColumnVarChar("ward", []string{rec.Ward}),
		entity.NewColumnVarChar("street", []string{rec.Street}),
		entity.NewColumnVarChar("interior_condition", []string{rec.InteriorCondition}),
		entity.NewColumnVarChar("status", []string{rec.Status}),
		entity.NewColumnInt64("owner_id", []int64{rec.OwnerID}),
		entity.NewColumnInt64("created_at", []int64{rec.CreatedAt.Epoch}),
		entity.NewColumnInt64("extended_at", []int64{rec.ExtendedAt.Epoch}),
	}

	if _, err := m.client.Insert(ctx, ListingCollection, "", columns...); err != nil {
		return errors.Wrapf(err, "unable to insert listing %d", id)
	}

	if err := m.client.Flush(ctx, ListingCollection, false); err != nil {
		return errors.Wrapf(err, "unable to flush listing %d", id)
	}

	prometheus.IncrPromCounter(prometheus.SyncIndexWrites, 1)

	m.log.Debugf("upserted listing %d", id)

	return nil
}

// DeleteListing removes a listing from the index; absent ids are a no-op
func (m *Milvus) DeleteListing(ctx context.Context, id int64) error {
	if err := m.deleteByID(ctx, ListingCollection, id); err != nil {
		return err
	}

	prometheus.IncrPromCounter(prometheus.SyncIndexDeletes, 1)

	m.log.Debugf("deleted listing %d", id)

	return nil
}
