package rstreams

import (
	"context"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trototvn/sync-service/events"
	"github.com/trototvn/sync-service/prometheus"
	"github.com/trototvn/sync-service/validate"
)

// RetryReadInterval determines how long to wait before retrying a read, after
// a transport error has occurred
const RetryReadInterval = 5 * time.Second

// ValueField is the stream record field the Debezium sink writes the
// serialized envelope into
const ValueField = "value"

// Handler processes one parsed change event. Returning an error leaves the
// record unacknowledged so the broker redelivers it.
type Handler func(ctx context.Context, op events.Operation, env *events.Envelope) error

// CreateConsumerGroup registers the consumer group against the stream,
// starting from the earliest position. Re-registration is not an error.
func (r *RedisStreams) CreateConsumerGroup(ctx context.Context) error {
	_, err := r.client.XGroupCreateMkStream(ctx, r.args.Stream, r.args.ConsumerGroup, "0").Result()
	if err != nil {
		if strings.HasPrefix(err.Error(), "BUSYGROUP") {
			r.log.Debugf("consumer group '%s' already exists for stream '%s'",
				r.args.ConsumerGroup, r.args.Stream)
			return nil
		}

		return errors.Wrapf(err, "unable to create consumer group for stream '%s'", r.args.Stream)
	}

	r.log.Infof("created consumer group '%s' for stream '%s'", r.args.ConsumerGroup, r.args.Stream)

	return nil
}

// Consume reads batches from the stream until ctx is cancelled. Records are
// dispatched to the handler in delivery order and acknowledged individually
// on handler success; a failed record stays pending and is redelivered by the
// broker. Transport errors are retried after RetryReadInterval.
func (r *RedisStreams) Consume(ctx context.Context, handler Handler) error {
	if handler == nil {
		return validate.ErrMissingHandler
	}

	r.log.Infof("consumer '%s' listening on stream '%s' (group '%s')",
		r.args.ConsumerName, r.args.Stream, r.args.ConsumerGroup)

	for {
		streamsResult, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    r.args.ConsumerGroup,
			Consumer: r.args.ConsumerName,
			Streams:  []string{r.args.Stream, ">"},
			Count:    r.args.BatchSize,
			Block:    r.args.BlockTimeout,
			NoAck:    false,
		}).Result()

		if err != nil {
			if errors.Is(err, context.Canceled) {
				r.log.Debug("received shutdown signal, exiting consumer")
				return nil
			}

			// Block timeout elapsed with no traffic
			if errors.Is(err, redis.Nil) {
				continue
			}

			prometheus.Incr(prometheus.CounterReadErrors, 1)
			prometheus.IncrPromCounter(prometheus.SyncReadErrors, 1)

			r.log.Errorf("unable to read message(s): %s (retrying in %s)", err, RetryReadInterval)

			time.Sleep(RetryReadInterval)

			continue
		}

		for _, stream := range streamsResult {
			for _, message := range stream.Messages {
				r.handleMessage(ctx, handler, stream.Stream, message)
			}
		}
	}
}

// handleMessage parses and dispatches one record; the record is acknowledged
// only after the handler has fully completed.
func (r *RedisStreams) handleMessage(ctx context.Context, handler Handler, streamName string, message redis.XMessage) {
	value, ok := message.Values[ValueField].(string)
	if !ok {
		prometheus.IncrPromCounter(prometheus.SyncProcessErrors, 1)
		r.log.Errorf("[ID: %s Stream: %s] record has no string '%s' field; leaving unacked",
			message.ID, streamName, ValueField)
		return
	}

	env, err := events.ParseEnvelope([]byte(value))
	if err != nil {
		prometheus.IncrPromCounter(prometheus.SyncProcessErrors, 1)
		r.log.Errorf("[ID: %s Stream: %s] unable to parse envelope: %s", message.ID, streamName, err)
		return
	}

	if err := handler(ctx, env.Operation, env); err != nil {
		prometheus.IncrPromCounter(prometheus.SyncProcessErrors, 1)
		r.log.Errorf("[ID: %s Stream: %s] handler error (record will be redelivered): %s",
			message.ID, streamName, err)
		return
	}

	if err := r.client.XAck(ctx, streamName, r.args.ConsumerGroup, message.ID).Err(); err != nil {
		// The write already landed; redelivery only causes an idempotent
		// duplicate upsert/delete
		r.log.Errorf("[ID: %s Stream: %s] unable to ack record: %s", message.ID, streamName, err)
		return
	}

	prometheus.Incr(prometheus.CounterEvents, 1)
	prometheus.IncrPromCounter(prometheus.SyncEventsTotal, 1)
}
