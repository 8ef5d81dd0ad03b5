package events

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// envelope mirrors the payload block of a Debezium event. Row images stay
// raw; their shape depends on the source table.
type envelope struct {
	Op     string          `json:"op"`
	Before json.RawMessage `json:"before"`
	After  json.RawMessage `json:"after"`
}

// ParseEnvelope decodes the raw 'value' field of one stream record into an
// Envelope. The sink ships events either payload-wrapped ({"payload": {...}})
// or flat, and occasionally double-encoded as a JSON string - all three are
// accepted. Anything else is ErrMalformedEnvelope.
func ParseEnvelope(value []byte) (*Envelope, error) {
	if !gjson.ValidBytes(value) {
		return nil, errors.Wrap(ErrMalformedEnvelope, "record value is not valid JSON")
	}

	parsed := gjson.ParseBytes(value)

	// Double-encoded: "{\"payload\": ...}"
	if parsed.Type == gjson.String {
		return ParseEnvelope([]byte(parsed.String()))
	}

	if payload := parsed.Get("payload"); payload.Exists() {
		parsed = payload
	}

	if !parsed.IsObject() {
		return nil, errors.Wrap(ErrMalformedEnvelope, "record value is not a JSON object")
	}

	env := &envelope{}

	if err := json.Unmarshal([]byte(parsed.Raw), env); err != nil {
		return nil, errors.Wrapf(ErrMalformedEnvelope, "unable to decode envelope: %s", err)
	}

	out := &Envelope{
		Operation: Operation(env.Op),
		Before:    normalizeRow(env.Before),
		After:     normalizeRow(env.After),
	}

	if err := out.validate(); err != nil {
		return nil, err
	}

	return out, nil
}

func (e *Envelope) validate() error {
	switch e.Operation {
	case OpCreate, OpSnapshot:
		if e.After == nil {
			return errors.Wrapf(ErrMalformedEnvelope, "op '%s' requires an after row image", e.Operation)
		}
	case OpUpdate:
		if e.Before == nil || e.After == nil {
			return errors.Wrap(ErrMalformedEnvelope, "op 'u' requires both before and after row images")
		}
	case OpDelete:
		if e.Before == nil {
			return errors.Wrap(ErrMalformedEnvelope, "op 'd' requires a before row image")
		}
	case "":
		return errors.Wrap(ErrMalformedEnvelope, "missing op discriminator")
	default:
		return errors.Wrapf(ErrMalformedEnvelope, "unrecognized op '%s'", e.Operation)
	}

	return nil
}

// normalizeRow maps JSON null to a nil row image
func normalizeRow(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	return raw
}
