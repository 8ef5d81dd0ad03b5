package events

import (
	"encoding/json"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
)

var _ = Describe("ParseEnvelope", func() {
	Context("well-formed envelopes", func() {
		It("decodes a payload-wrapped create", func() {
			env, err := ParseEnvelope([]byte(`{"payload": {"op": "c", "before": null, "after": {"postId": 42}}}`))
			Expect(err).ToNot(HaveOccurred())
			Expect(env.Operation).To(Equal(OpCreate))
			Expect(env.Before).To(BeNil())
			Expect(env.After).ToNot(BeNil())
		})

		It("decodes a flat update with both row images", func() {
			env, err := ParseEnvelope([]byte(`{"op": "u", "before": {"postId": 42, "status": "Pending"}, "after": {"postId": 42, "status": "Approved"}}`))
			Expect(err).ToNot(HaveOccurred())
			Expect(env.Operation).To(Equal(OpUpdate))
			Expect(env.Before).ToNot(BeNil())
			Expect(env.After).ToNot(BeNil())
		})

		It("decodes a delete with only a before image", func() {
			env, err := ParseEnvelope([]byte(`{"op": "d", "before": {"postId": 7}, "after": null}`))
			Expect(err).ToNot(HaveOccurred())
			Expect(env.Operation).To(Equal(OpDelete))
			Expect(env.Before).ToNot(BeNil())
			Expect(env.After).To(BeNil())
		})

		It("decodes a snapshot read", func() {
			env, err := ParseEnvelope([]byte(`{"op": "r", "after": {"postId": 1}}`))
			Expect(err).ToNot(HaveOccurred())
			Expect(env.Operation).To(Equal(OpSnapshot))
			Expect(env.After).ToNot(BeNil())
		})

		It("decodes a double-encoded envelope", func() {
			inner := `{"payload": {"op": "c", "after": {"postId": 3}}}`

			wrapped, err := json.Marshal(inner)
			Expect(err).ToNot(HaveOccurred())

			env, parseErr := ParseEnvelope(wrapped)
			Expect(parseErr).ToNot(HaveOccurred())
			Expect(env.Operation).To(Equal(OpCreate))
		})
	})

	Context("malformed envelopes", func() {
		It("rejects invalid JSON", func() {
			_, err := ParseEnvelope([]byte(`{not json`))
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, ErrMalformedEnvelope)).To(BeTrue())
		})

		It("rejects a missing op discriminator", func() {
			_, err := ParseEnvelope([]byte(`{"before": null, "after": {"postId": 1}}`))
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, ErrMalformedEnvelope)).To(BeTrue())
		})

		It("rejects an unrecognized op", func() {
			_, err := ParseEnvelope([]byte(`{"op": "x", "after": {"postId": 1}}`))
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, ErrMalformedEnvelope)).To(BeTrue())
		})

		It("rejects a create without an after image", func() {
			_, err := ParseEnvelope([]byte(`{"op": "c", "before": {"postId": 1}}`))
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, ErrMalformedEnvelope)).To(BeTrue())
		})

		It("rejects an update missing the before image", func() {
			_, err := ParseEnvelope([]byte(`{"op": "u", "after": {"postId": 1}}`))
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, ErrMalformedEnvelope)).To(BeTrue())
		})

		It("rejects a delete without a before image", func() {
			_, err := ParseEnvelope([]byte(`{"op": "d", "after": null}`))
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, ErrMalformedEnvelope)).To(BeTrue())
		})

		It("rejects a scalar value", func() {
			_, err := ParseEnvelope([]byte(`42`))
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, ErrMalformedEnvelope)).To(BeTrue())
		})
	})
})
