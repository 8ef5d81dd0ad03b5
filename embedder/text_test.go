package embedder

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/trototvn/sync-service/events"
)

var _ = Describe("ListingText", func() {
	It("composes all listing fields into one document", func() {
		text := ListingText(&events.ListingRecord{
			Title:             "Phòng trọ quận 1",
			Description:       "Phòng mới, sạch sẽ",
			Price:             3500000,
			Acreage:           25,
			City:              "Hồ Chí Minh",
			District:          "Quận 1",
			Ward:              "Phường Bến Nghé",
			Street:            "Lê Lợi",
			InteriorCondition: "full",
		})

		Expect(text).To(ContainSubstring("Phòng trọ quận 1"))
		Expect(text).To(ContainSubstring("Địa chỉ: Lê Lợi, Phường Bến Nghé, Quận 1, Hồ Chí Minh"))
		Expect(text).To(ContainSubstring("Giá: 3,500,000 VNĐ/tháng"))
		Expect(text).To(ContainSubstring("Diện tích: 25m²"))
		Expect(text).To(ContainSubstring("Nội thất: full"))
	})
})

var _ = Describe("AddressText", func() {
	It("composes the address components", func() {
		text := AddressText(&events.ListingRecord{
			City:     "Hồ Chí Minh",
			District: "Quận 1",
			Ward:     "Phường Bến Nghé",
			Street:   "Lê Lợi",
		})

		Expect(text).To(Equal("Lê Lợi, Phường Bến Nghé, Quận 1, Hồ Chí Minh"))
	})
})

var _ = Describe("UserText", func() {
	It("composes name and all optional fields", func() {
		text := UserText(&events.UserRecord{
			FirstName:  "An",
			LastName:   "Nguyễn",
			Bio:        "Sinh viên năm cuối",
			CurrentJob: "Lập trình viên",
			Address:    "Quận 3, Hồ Chí Minh",
		})

		Expect(text).To(Equal("An Nguyễn\nSinh viên năm cuối\nNghề nghiệp: Lập trình viên\nĐịa chỉ: Quận 3, Hồ Chí Minh"))
	})

	It("skips absent optional fields", func() {
		text := UserText(&events.UserRecord{
			FirstName: "An",
			LastName:  "Nguyễn",
		})

		Expect(text).To(Equal("An Nguyễn"))
	})
})
