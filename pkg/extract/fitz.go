package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// FitzExtractor is the default ExtractText provider, grounded on
// aharnishdwivedi-roadgpt-backend/pdf_parser.go's use of
// github.com/gen2brain/go-fitz.
type FitzExtractor struct{}

// NewFitzExtractor constructs the default extractor.
func NewFitzExtractor() *FitzExtractor {
	return &FitzExtractor{}
}

// ExtractText opens pdfBytes in-memory and concatenates per-page text.
// Pages that fail to extract are skipped rather than aborting the whole
// document, matching the teacher corpus's tolerant-per-page behavior.
func (e *FitzExtractor) ExtractText(ctx context.Context, pdfBytes []byte) (Result, error) {
	doc, err := fitz.NewFromMemory(pdfBytes)
	if err != nil {
		return Result{}, fmt.Errorf("opening PDF: %w", err)
	}
	defer func() { _ = doc.Close() }()

	pageCount := doc.NumPage()
	var b strings.Builder
	for page := 0; page < pageCount; page++ {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		text, err := doc.Text(page)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
	}

	extracted := strings.TrimSpace(b.String())
	if extracted == "" {
		return Result{PageCount: pageCount}, ErrEmptyText{}
	}

	return Result{Text: extracted, PageCount: pageCount}, nil
}
