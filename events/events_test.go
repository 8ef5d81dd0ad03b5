package events

import (
	"encoding/json"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
)

var _ = Describe("Timestamp", func() {
	type holder struct {
		At Timestamp `json:"at"`
	}

	It("accepts epoch seconds", func() {
		h := &holder{}
		Expect(json.Unmarshal([]byte(`{"at": 1700000000}`), h)).To(Succeed())
		Expect(h.At.Epoch).To(Equal(int64(1700000000)))
	})

	It("accepts epoch millis", func() {
		h := &holder{}
		Expect(json.Unmarshal([]byte(`{"at": 1700000000123}`), h)).To(Succeed())
		Expect(h.At.Epoch).To(Equal(int64(1700000000)))
	})

	It("accepts ISO-8601 with a zulu suffix", func() {
		h := &holder{}
		Expect(json.Unmarshal([]byte(`{"at": "2023-11-14T22:13:20Z"}`), h)).To(Succeed())
		Expect(h.At.Epoch).To(Equal(int64(1700000000)))
	})

	It("accepts ISO-8601 with an explicit offset", func() {
		h := &holder{}
		Expect(json.Unmarshal([]byte(`{"at": "2023-11-14T22:13:20+00:00"}`), h)).To(Succeed())
		Expect(h.At.Epoch).To(Equal(int64(1700000000)))
	})

	It("accepts ISO-8601 without a zone", func() {
		h := &holder{}
		Expect(json.Unmarshal([]byte(`{"at": "2023-11-14T22:13:20"}`), h)).To(Succeed())
		Expect(h.At.Epoch).To(Equal(int64(1700000000)))
	})

	It("treats null as zero", func() {
		h := &holder{}
		Expect(json.Unmarshal([]byte(`{"at": null}`), h)).To(Succeed())
		Expect(h.At.Epoch).To(Equal(int64(0)))
	})

	It("rejects garbage strings", func() {
		h := &holder{}
		err := json.Unmarshal([]byte(`{"at": "yesterday"}`), h)
		Expect(err).To(HaveOccurred())
	})

	It("marshals to epoch seconds", func() {
		out, err := json.Marshal(&holder{At: Timestamp{Epoch: 1700000000}})
		Expect(err).ToNot(HaveOccurred())
		Expect(string(out)).To(Equal(`{"at":1700000000}`))
	})
})

var _ = Describe("DecodeListing", func() {
	It("decodes a full row image", func() {
		raw := []byte(`{
			"postId": 42,
			"title": "Phòng trọ quận 1",
			"description": "Phòng mới, sạch sẽ",
			"price": 3500000,
			"acreage": 25,
			"city": "Hồ Chí Minh",
			"district": "Quận 1",
			"ward": "Phường Bến Nghé",
			"street": "Lê Lợi",
			"streetNumber": "12A",
			"interiorCondition": "full",
			"ownerId": 9,
			"status": "Approved",
			"createdAt": "2023-11-14T22:13:20Z",
			"extendedAt": 1700000000
		}`)

		rec, err := DecodeListing(raw)
		Expect(err).ToNot(HaveOccurred())
		Expect(rec.PostID).To(Equal(int64(42)))
		Expect(rec.Status).To(Equal("Approved"))
		Expect(rec.CreatedAt.Epoch).To(Equal(int64(1700000000)))
		Expect(rec.ExtendedAt.Epoch).To(Equal(int64(1700000000)))
	})

	It("rejects a row image without a postId", func() {
		_, err := DecodeListing([]byte(`{"title": "no id"}`))
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, ErrMalformedEnvelope)).To(BeTrue())
	})

	It("rejects an empty row image", func() {
		_, err := DecodeListing(nil)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, ErrMalformedEnvelope)).To(BeTrue())
	})

	It("rejects a row image of the wrong shape", func() {
		_, err := DecodeListing([]byte(`["not", "an", "object"]`))
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, ErrMalformedEnvelope)).To(BeTrue())
	})
})

var _ = Describe("DecodeUser", func() {
	It("decodes a row image with optional fields absent", func() {
		rec, err := DecodeUser([]byte(`{"customerId": 5, "firstName": "An", "lastName": "Nguyễn"}`))
		Expect(err).ToNot(HaveOccurred())
		Expect(rec.CustomerID).To(Equal(int64(5)))
		Expect(rec.Bio).To(BeEmpty())
		Expect(rec.CurrentJob).To(BeEmpty())
	})

	It("rejects a row image without a customerId", func() {
		_, err := DecodeUser([]byte(`{"firstName": "An"}`))
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, ErrMalformedEnvelope)).To(BeTrue())
	})
})
