package milvus

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/pkg/errors"

	"github.com/trototvn/sync-service/events"
	"github.com/trototvn/sync-service/prometheus"
)

func (m *Milvus) userSchema() *entity.Schema {
	dim := strconv.Itoa(m.args.Dimension)

	return &entity.Schema{
		CollectionName:     UserCollection,
		Description:        "User profiles mirrored from the upstream Customer table",
		AutoID:             false,
		EnableDynamicField: true,
		Fields: []*entity.Field{
			{Name: "id", DataType: entity.FieldTypeInt64, PrimaryKey: true, AutoID: false},
			{Name: denseVectorField, DataType: entity.FieldTypeFloatVector, TypeParams: map[string]string{
				entity.TypeParamDim: dim,
			}},
			{Name: "full_name", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{
				entity.TypeParamMaxLength: "200",
			}},
			{Name: "bio", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{
				entity.TypeParamMaxLength: "2000",
			}},
			{Name: "current_job", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{
				entity.TypeParamMaxLength: "200",
			}},
			{Name: "address", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{
				entity.TypeParamMaxLength: "500",
			}},
			{Name: "gender", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{
				entity.TypeParamMaxLength: "20",
			}},
			{Name: "birthday", DataType: entity.FieldTypeInt64},
		},
	}
}

// UpsertUser replaces the indexed document for one user profile
func (m *Milvus) UpsertUser(ctx context.Context, id int64, vector []float32, rec *events.UserRecord) error {
	if err := m.deleteByID(ctx, UserCollection, id); err != nil {
		return err
	}

	fullName := strings.TrimSpace(fmt.Sprintf("%s %s", rec.FirstName, rec.LastName))

	columns := []entity.Column{
		entity.NewColumnInt64("id", []int64{id}),
		entity.NewColumnFloatVector(denseVectorField, m.args.Dimension, [][]float32{vector}),
		entity.NewColumnVarChar("full_name", []string{fullName}),
		entity.NewColumnVarChar("bio", []string{rec.Bio}),
		entity.NewColumnVarChar("current_job", []string{rec.CurrentJob}),
		entity.NewColumnVarChar("address", []string{rec.Address}),
		entity.NewColumnVarChar("gender", []string{rec.Gender}),
		entity.NewColumnInt64("birthday", []int64{rec.Birthday.Epoch}),
	}

	if _, err := m.client.Insert(ctx, UserCollection, "", columns...); err != nil {
		return errors.Wrapf(err, "unable to insert user %d", id)
	}

	if err := m.client.Flush(ctx, UserCollection, false); err != nil {
		return errors.Wrapf(err, "unable to flush user %d", id)
	}

	prometheus.IncrPromCounter(prometheus.SyncIndexWrites, 1)

	m.log.Debugf("upserted user %d", id)

	return nil
}

// DeleteUser removes a user profile from the index; absent ids are a no-op
func (m *Milvus) DeleteUser(ctx context.Context, id int64) error {
	if err := m.deleteByID(ctx, UserCollection, id); err != nil {
		return err
	}

	prometheus.IncrPromCounter(prometheus.SyncIndexDeletes, 1)

	m.log.Debugf("deleted user %d", id)

	return nil
}
