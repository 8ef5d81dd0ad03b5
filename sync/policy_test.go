package sync

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("ApprovedOnlyPolicy", func() {
	It("upserts a transition into Approved", func() {
		Expect(ApprovedOnlyPolicy("Pending", "Approved")).To(Equal(ActionUpsert))
		Expect(ApprovedOnlyPolicy("Rejected", "Approved")).To(Equal(ActionUpsert))
		Expect(ApprovedOnlyPolicy("Hidden", "Approved")).To(Equal(ActionUpsert))
	})

	It("upserts a refresh while Approved", func() {
		Expect(ApprovedOnlyPolicy("Approved", "Approved")).To(Equal(ActionUpsert))
	})

	It("deletes a transition out of Approved", func() {
		Expect(ApprovedOnlyPolicy("Approved", "Pending")).To(Equal(ActionDelete))
		Expect(ApprovedOnlyPolicy("Approved", "Rejected")).To(Equal(ActionDelete))
		Expect(ApprovedOnlyPolicy("Approved", "Hidden")).To(Equal(ActionDelete))
	})

	It("ignores churn between non-approved statuses", func() {
		Expect(ApprovedOnlyPolicy("Pending", "Rejected")).To(Equal(ActionNone))
		Expect(ApprovedOnlyPolicy("Rejected", "Hidden")).To(Equal(ActionNone))
		Expect(ApprovedOnlyPolicy("Pending", "Pending")).To(Equal(ActionNone))
	})

	It("handles creates via the synthetic empty old status", func() {
		Expect(ApprovedOnlyPolicy("", "Approved")).To(Equal(ActionUpsert))
		Expect(ApprovedOnlyPolicy("", "Pending")).To(Equal(ActionNone))
	})
})

var _ = Describe("IndexAllPolicy", func() {
	It("upserts regardless of status", func() {
		Expect(IndexAllPolicy("", "Pending")).To(Equal(ActionUpsert))
		Expect(IndexAllPolicy("Approved", "Rejected")).To(Equal(ActionUpsert))
		Expect(IndexAllPolicy("Hidden", "Hidden")).To(Equal(ActionUpsert))
	})
})

var _ = Describe("PolicyFromName", func() {
	It("resolves known policy names", func() {
		policy, err := PolicyFromName(PolicyNameApprovedOnly)
		Expect(err).ToNot(HaveOccurred())
		Expect(policy("Approved", "Rejected")).To(Equal(ActionDelete))

		policy, err = PolicyFromName(PolicyNameAll)
		Expect(err).ToNot(HaveOccurred())
		Expect(policy("Approved", "Rejected")).To(Equal(ActionUpsert))
	})

	It("rejects unknown policy names", func() {
		_, err := PolicyFromName("whitelist")
		Expect(err).To(HaveOccurred())
	})
})
