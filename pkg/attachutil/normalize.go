package attachutil

import (
	"encoding/json"

	"github.com/engagic/pipeline/pkg/models"
)

// NormalizeAttachment maps a vendor-specific raw attachment onto the common
// Attachment shape, before version filtering runs (spec.md §4: "Attachment
// metadata normalization", original_source/vendors/utils/attachments.py).
func NormalizeAttachment(vendor models.Vendor, itemID string, raw models.RawAttachment) models.Attachment {
	var meta map[string]any

	switch vendor {
	case models.VendorLegistar:
		meta = map[string]any{"vendor": "legistar", "raw": raw.Fields}
	case models.VendorPrimeGov:
		meta = map[string]any{"vendor": "primegov", "history_id": raw.HistoryID, "raw": raw.Fields}
	default:
		meta = map[string]any{"vendor": string(vendor), "raw": raw.Fields}
	}

	metaJSON, _ := json.Marshal(meta)

	return models.Attachment{
		ItemID:      itemID,
		DisplayName: raw.Name,
		URL:         raw.URL,
		VendorMeta:  string(metaJSON),
	}
}
