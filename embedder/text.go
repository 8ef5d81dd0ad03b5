package embedder

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/trototvn/sync-service/events"
)

// ListingText projects a listing row into the single document string the
// embedding model sees. Field order matters to the model's fine-tune, so
// keep it stable.
func ListingText(rec *events.ListingRecord) string {
	lines := []string{
		rec.Title,
		rec.Description,
		fmt.Sprintf("Địa chỉ: %s, %s, %s, %s", rec.Street, rec.Ward, rec.District, rec.City),
		fmt.Sprintf("Giá: %s VNĐ/tháng", humanize.Comma(rec.Price)),
		fmt.Sprintf("Diện tích: %dm²", rec.Acreage),
		fmt.Sprintf("Nội thất: %s", rec.InteriorCondition),
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// AddressText is the composed address stored alongside the listing for
// lexical matching
func AddressText(rec *events.ListingRecord) string {
	return fmt.Sprintf("%s, %s, %s, %s", rec.Street, rec.Ward, rec.District, rec.City)
}

// UserText projects a user row into a document string. Profiles are sparse -
// absent optional fields are simply skipped.
func UserText(rec *events.UserRecord) string {
	parts := []string{
		strings.TrimSpace(fmt.Sprintf("%s %s", rec.FirstName, rec.LastName)),
	}

	if rec.Bio != "" {
		parts = append(parts, rec.Bio)
	}

	if rec.CurrentJob != "" {
		parts = append(parts, fmt.Sprintf("Nghề nghiệp: %s", rec.CurrentJob))
	}

	if rec.Address != "" {
		parts = append(parts, fmt.Sprintf("Địa chỉ: %s", rec.Address))
	}

	return strings.Join(parts, "\n")
}
