package models

// Item is an agenda line within a meeting, populated only for item-capable
// vendors (spec.md §3). A meeting has either zero items (monolithic packet)
// or one-or-more (item-based).
type Item struct {
	ID           string `db:"id" json:"id"`
	MeetingID    string `db:"meeting_id" json:"meeting_id"`
	Sequence     int    `db:"sequence" json:"sequence"`
	Title        string `db:"title" json:"title"`
	MatterNumber string `db:"matter_number" json:"matter_number,omitempty"`
	Summary      string `db:"summary" json:"summary,omitempty"`
}

// Attachment is a downloadable document associated with an item (spec.md §3).
type Attachment struct {
	ID          string `db:"id" json:"id"`
	ItemID      string `db:"item_id" json:"item_id"`
	DisplayName string `db:"display_name" json:"display_name"`
	URL         string `db:"url" json:"url"`
	VendorMeta  string `db:"vendor_meta" json:"vendor_meta,omitempty"` // JSON blob
}

// RawAttachment is the vendor-native shape an adapter produces before
// NormalizeAttachment (pkg/attachutil) maps it onto the common Attachment
// fields used for version filtering and storage.
type RawAttachment struct {
	Name      string
	URL       string
	HistoryID string            // PrimeGov
	Fields    map[string]string // vendor-specific passthrough (e.g. Legistar's raw field names)
}

// AgendaDetail is what FetchAgenda returns for item-capable vendors: the
// item/attachment breakdown plus, where available, participation info
// scraped from the agenda page itself.
type AgendaDetail struct {
	Items         []Item
	Attachments   map[string][]Attachment // keyed by item ID
	Participation *ParticipationInfo
}

// ParticipationInfo is contact/virtual-meeting info extracted from an agenda
// page's plain text (spec.md §4.1 PrimeGov rules; supplemented from
// original_source/infocore/adapters/html_agenda_parser.py).
type ParticipationInfo struct {
	Email          string
	Phone          string
	VirtualURL     string
	ZoomMeetingID  string
	IsHybrid       bool
	IsVirtualOnly  bool
}
