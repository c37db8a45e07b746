// Package pdfchunk splits oversize PDFs into size- and page-bounded chunks
// (spec.md §4.4), so that each chunk can be summarized independently and the
// summaries stitched back together.
//
// Grounded on original_source/app/pdf_chunker.py for the chunking algorithm
// (per-page serialize-to-measure, 30 MiB/90-page caps, prompt-prefix and
// stitching behavior) and on github.com/pdfcpu/pdfcpu
// (aharnishdwivedi-roadgpt-backend go.mod) for PDF page splitting and page
// counting instead of hand-rolling PDF structure parsing.
package pdfchunk

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Defaults per spec.md §4.4 / §6.
const (
	DefaultMaxBytes = 31_457_280 // 30 MiB
	DefaultMaxPages = 90
)

// Chunk is one size/page-bounded slice of a PDF (spec.md §4.4). StartPage
// and EndPage are zero-indexed into the original document.
type Chunk struct {
	Content     []byte
	StartPage   int
	EndPage     int
	ChunkNumber int
	TotalChunks int
	SizeBytes   int
}

// Chunker splits PDF bytes under the configured size/page caps.
type Chunker struct {
	MaxBytes int64
	MaxPages int
}

// New creates a Chunker using spec.md's default caps.
func New() *Chunker {
	return &Chunker{MaxBytes: DefaultMaxBytes, MaxPages: DefaultMaxPages}
}

// Split divides pdfBytes into ordered chunks, each at most MaxBytes and
// MaxPages pages (spec.md §4.4's algorithm): iterate pages, measure each
// page's serialized size, accumulate into the current chunk until the next
// page would breach either cap, flush, and continue. A document within both
// caps produces exactly one chunk.
func (c *Chunker) Split(pdfBytes []byte) ([]Chunk, error) {
	conf := model.NewDefaultConfiguration()

	totalPages, err := api.PageCount(bytes.NewReader(pdfBytes), conf)
	if err != nil {
		return nil, fmt.Errorf("counting PDF pages: %w", err)
	}
	if totalPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	pageSizes := make([]int, totalPages)
	for i := 0; i < totalPages; i++ {
		size, err := c.singlePageSize(pdfBytes, i+1, conf) // pdfcpu pages are 1-indexed
		if err != nil {
			return nil, fmt.Errorf("measuring page %d: %w", i+1, err)
		}
		pageSizes[i] = size
	}

	var chunks []Chunk
	startPage := 0
	currentSize := 0
	pagesInChunk := 0

	flush := func(endPage int) error {
		content, err := c.extractRange(pdfBytes, startPage+1, endPage+1, conf)
		if err != nil {
			return fmt.Errorf("extracting pages %d-%d: %w", startPage, endPage, err)
		}
		chunks = append(chunks, Chunk{
			Content:     content,
			StartPage:   startPage,
			EndPage:     endPage,
			ChunkNumber: len(chunks),
			SizeBytes:   len(content),
		})
		return nil
	}

	for page := 0; page < totalPages; page++ {
		wouldExceedSize := int64(currentSize+pageSizes[page]) > c.MaxBytes
		wouldExceedPages := pagesInChunk >= c.MaxPages

		if pagesInChunk > 0 && (wouldExceedSize || wouldExceedPages) {
			if err := flush(page - 1); err != nil {
				return nil, err
			}
			startPage = page
			currentSize = 0
			pagesInChunk = 0
		}

		currentSize += pageSizes[page]
		pagesInChunk++
	}

	if pagesInChunk > 0 {
		if err := flush(totalPages - 1); err != nil {
			return nil, err
		}
	}

	for i := range chunks {
		chunks[i].TotalChunks = len(chunks)
	}

	return chunks, nil
}

// singlePageSize serializes a single page to measure its contribution to the
// running chunk size, per spec.md §4.4's "serialize a single-page PDF to
// measure its serialized size".
func (c *Chunker) singlePageSize(pdfBytes []byte, page int, conf *model.Configuration) (int, error) {
	content, err := c.extractRange(pdfBytes, page, page, conf)
	if err != nil {
		return 0, err
	}
	return len(content), nil
}

// extractRange returns a new PDF containing pages [start, end] (1-indexed,
// inclusive).
func (c *Chunker) extractRange(pdfBytes []byte, start, end int, conf *model.Configuration) ([]byte, error) {
	var out bytes.Buffer
	selector := fmt.Sprintf("%d-%d", start, end)
	if start == end {
		selector = fmt.Sprintf("%d", start)
	}
	if err := api.Trim(bytes.NewReader(pdfBytes), &out, []string{selector}, conf); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// PromptPrefix returns the instruction prepended to a chunk's summarization
// prompt. A single-chunk document suppresses the prefix entirely (spec.md
// §4.4).
func PromptPrefix(chunk Chunk) string {
	if chunk.TotalChunks <= 1 {
		return ""
	}
	return fmt.Sprintf(
		"This is chunk %d of %d from a larger document. Pages %d to %d of the original document. "+
			"Please analyze this portion and provide details about the content in this chunk. "+
			"Focus on extracting all specific information, as the chunks will be combined later.",
		chunk.ChunkNumber+1, chunk.TotalChunks, chunk.StartPage+1, chunk.EndPage+1,
	)
}

// StitchSummaries combines per-chunk summaries into one document summary,
// per spec.md §4.4: a single chunk's summary is returned unchanged; multiple
// chunks get a fixed overview preamble followed by labeled sections.
func StitchSummaries(chunks []Chunk, summaries []string) string {
	if len(summaries) == 1 {
		return summaries[0]
	}

	var b bytes.Buffer
	b.WriteString("**Document Overview:**\n")
	fmt.Fprintf(&b, "This document was processed in %d chunks due to its size.\n\n", len(summaries))

	for i, summary := range summaries {
		chunk := chunks[i]
		fmt.Fprintf(&b, "**Section %d (Pages %d-%d):**\n", i+1, chunk.StartPage+1, chunk.EndPage+1)
		b.WriteString(summary)
		b.WriteString("\n\n")
	}

	return b.String()
}
