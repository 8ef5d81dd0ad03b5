package rqueue

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/trototvn/sync-service/validate"
)

var _ = Describe("Redis Queue Backend", func() {
	Context("Name", func() {
		It("returns the backend name", func() {
			Expect((&RedisQueue{}).Name()).To(Equal(BackendName))
		})
	})

	Context("validateArgs", func() {
		It("validates nil args", func() {
			err := validateArgs(nil)
			Expect(err).To(HaveOccurred())
			Expect(err).To(Equal(validate.ErrMissingArgs))
		})

		It("validates missing address", func() {
			err := validateArgs(&Args{})
			Expect(err).To(HaveOccurred())
			Expect(err).To(Equal(validate.ErrMissingAddress))
		})
	})

	Context("New", func() {
		It("propagates validation errors", func() {
			_, err := New(nil)
			Expect(err).To(HaveOccurred())
			Expect(errors.Cause(err)).To(Equal(validate.ErrMissingArgs))
		})
	})

	Context("Push", func() {
		It("requires a queue name", func() {
			q := &RedisQueue{log: logrus.WithField("pkg", "backends/rqueue")}

			err := q.Push(context.Background(), "", []byte("{}"))
			Expect(err).To(HaveOccurred())
			Expect(err).To(Equal(validate.ErrMissingQueue))
		})
	})

	Context("PopBlocking", func() {
		It("requires a queue name", func() {
			q := &RedisQueue{log: logrus.WithField("pkg", "backends/rqueue")}

			_, err := q.PopBlocking(context.Background(), "", 0)
			Expect(err).To(HaveOccurred())
			Expect(err).To(Equal(validate.ErrMissingQueue))
		})
	})
})
