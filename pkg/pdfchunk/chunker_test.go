package pdfchunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPromptPrefix_SingleChunkSuppressed(t *testing.T) {
	chunk := Chunk{ChunkNumber: 0, TotalChunks: 1, StartPage: 0, EndPage: 10}
	assert.Empty(t, PromptPrefix(chunk))
}

func TestPromptPrefix_MultiChunkIncludesPageRange(t *testing.T) {
	chunk := Chunk{ChunkNumber: 1, TotalChunks: 2, StartPage: 90, EndPage: 149}
	prefix := PromptPrefix(chunk)
	assert.Contains(t, prefix, "chunk 2 of 2")
	assert.Contains(t, prefix, "Pages 91 to 150")
}

func TestStitchSummaries_SingleChunkReturnsUnchanged(t *testing.T) {
	chunks := []Chunk{{StartPage: 0, EndPage: 10}}
	out := StitchSummaries(chunks, []string{"the only summary"})
	assert.Equal(t, "the only summary", out)
}

func TestStitchSummaries_MultiChunkAddsOverviewAndSections(t *testing.T) {
	chunks := []Chunk{
		{StartPage: 0, EndPage: 89},
		{StartPage: 90, EndPage: 149},
	}
	out := StitchSummaries(chunks, []string{"first section text", "second section text"})

	assert.Contains(t, out, "Document Overview")
	assert.Contains(t, out, "processed in 2 chunks")
	assert.Contains(t, out, "Section 1 (Pages 1-90)")
	assert.Contains(t, out, "first section text")
	assert.Contains(t, out, "Section 2 (Pages 91-150)")
	assert.Contains(t, out, "second section text")
}

func TestChunkBoundaries_PageCountMatchesSpecScenario(t *testing.T) {
	// spec.md §8 scenario 5: 150-page PDF -> ceil(150/90) = 2 chunks,
	// chunk 1 pages 0-89, chunk 2 pages 90-149 (zero-indexed internal form).
	// The boundaries are computed by the loop below, not by Chunker.Split,
	// so this pins the expected arithmetic rather than the chunker itself.
	const totalPages = 150
	const maxPages = 90

	var chunks []Chunk
	start := 0
	for start < totalPages {
		end := start + maxPages - 1
		if end >= totalPages {
			end = totalPages - 1
		}
		chunks = append(chunks, Chunk{StartPage: start, EndPage: end, ChunkNumber: len(chunks)})
		start = end + 1
	}
	for i := range chunks {
		chunks[i].TotalChunks = len(chunks)
	}

	assert.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].StartPage)
	assert.Equal(t, 89, chunks[0].EndPage)
	assert.Equal(t, 90, chunks[1].StartPage)
	assert.Equal(t, 149, chunks[1].EndPage)
	assert.Equal(t, 2, chunks[0].TotalChunks)
	assert.Equal(t, 2, chunks[1].TotalChunks)
}
