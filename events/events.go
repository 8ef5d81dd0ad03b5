// Package events contains the Debezium change-envelope types and parsing
// for the entities this service mirrors into the search index.
package events

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Operation is the Debezium op discriminator
type Operation string

const (
	OpCreate   Operation = "c"
	OpUpdate   Operation = "u"
	OpDelete   Operation = "d"
	OpSnapshot Operation = "r"
)

var ErrMalformedEnvelope = errors.New("malformed change envelope")

// Envelope is one decoded CDC event. Before/After are kept raw so the
// per-entity workers can decode them into their own row types.
type Envelope struct {
	Operation Operation
	Before    json.RawMessage
	After     json.RawMessage
}

// Timestamp accepts the shapes Debezium (and the backfill producer) emit for
// datetime columns: epoch seconds, epoch millis or an ISO-8601 string. The
// canonical representation is epoch seconds UTC.
type Timestamp struct {
	Epoch int64
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))

	if s == "null" || s == `""` {
		t.Epoch = 0
		return nil
	}

	if s[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return errors.Wrap(err, "unable to unmarshal timestamp string")
		}

		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			// Some connectors drop the zone suffix entirely
			parsed, err = time.Parse("2006-01-02T15:04:05", raw)
			if err != nil {
				return errors.Wrapf(ErrMalformedEnvelope, "unrecognized timestamp '%s'", raw)
			}
		}

		t.Epoch = parsed.Unix()
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return errors.Wrapf(ErrMalformedEnvelope, "unrecognized timestamp '%s'", s)
	}

	f, err := num.Float64()
	if err != nil {
		return errors.Wrapf(ErrMalformedEnvelope, "unrecognized timestamp '%s'", s)
	}

	epoch := int64(f)

	// SQL Server connectors ship datetimes as epoch millis
	if epoch > 1e12 {
		epoch = epoch / 1000
	}

	t.Epoch = epoch

	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Epoch)
}

// ListingRecord is the row image of one rental listing ("Post" upstream)
type ListingRecord struct {
	PostID            int64     `json:"postId"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Price             int64     `json:"price"`
	Acreage           int32     `json:"acreage"`
	City              string    `json:"city"`
	District          string    `json:"district"`
	Ward              string    `json:"ward"`
	Street            string    `json:"street"`
	StreetNumber      string    `json:"streetNumber"`
	InteriorCondition string    `json:"interiorCondition"`
	OwnerID           int64     `json:"ownerId"`
	Status            string    `json:"status"`
	CreatedAt         Timestamp `json:"createdAt"`
	ExtendedAt        Timestamp `json:"extendedAt"`
}

// UserRecord is the row image of one user profile ("Customer" upstream).
// Everything past the name is optional.
type UserRecord struct {
	CustomerID int64     `json:"customerId"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Gender     string    `json:"gender"`
	Birthday   Timestamp `json:"birthday"`
	Address    string    `json:"address"`
	Bio        string    `json:"bio"`
	CurrentJob string    `json:"currentJob"`
}

// DecodeListing decodes a raw row image into a ListingRecord. A row without
// a primary key is rejected as malformed rather than coerced.
func DecodeListing(raw json.RawMessage) (*ListingRecord, error) {
	if len(raw) == 0 {
		return nil, errors.Wrap(ErrMalformedEnvelope, "empty listing row image")
	}

	rec := &ListingRecord{}

	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, errors.Wrapf(ErrMalformedEnvelope, "unable to decode listing row image: %s", err)
	}

	if rec.PostID == 0 {
		return nil, errors.Wrap(ErrMalformedEnvelope, "listing row image is missing postId")
	}

	return rec, nil
}

// DecodeUser decodes a raw row image into a UserRecord
func DecodeUser(raw json.RawMessage) (*UserRecord, error) {
	if len(raw) == 0 {
		return nil, errors.Wrap(ErrMalformedEnvelope, "empty user row image")
	}

	rec := &UserRecord{}

	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, errors.Wrapf(ErrMalformedEnvelope, "unable to decode user row image: %s", err)
	}

	if rec.CustomerID == 0 {
		return nil, errors.Wrap(ErrMalformedEnvelope, "user row image is missing customerId")
	}

	return rec, nil
}
