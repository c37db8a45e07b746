// Package extract defines the ExtractText capability the Processor consumes
// (spec.md §1: "an external collaborator ... ExtractText(bytes|URL) →
// {text, pageCount}, with an optional fallback provider") and ships one
// concrete implementation so the Processor is exercisable end-to-end.
package extract

import "context"

// Result is what an extractor returns for a document.
type Result struct {
	Text      string
	PageCount int
}

// Extractor is the capability boundary spec.md §1 describes. The Processor
// takes a primary extractor plus an optional fallback (spec.md §4.9,
// §9: "Fallback extractor is a capability, not a hardcoded dependency").
type Extractor interface {
	ExtractText(ctx context.Context, pdfBytes []byte) (Result, error)
}

// ErrEmptyText is returned when extraction produced no usable text, the
// trigger condition for the Processor's fallback path (spec.md §4.9, §7).
type ErrEmptyText struct{}

func (ErrEmptyText) Error() string { return "extraction produced no text" }
