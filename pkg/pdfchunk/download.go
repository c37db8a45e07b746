package pdfchunk

import (
	"context"

	"github.com/engagic/pipeline/pkg/httpfetch"
)

// Download fetches a PDF via f, applying the streaming 8 KiB-buffer /
// optional max-size guard spec.md §4.4 calls for. It is a thin wrapper over
// httpfetch.Fetcher.DownloadWithLimit — the PDFChunker's "download helper"
// and the generic HTTPFetcher share one implementation rather than two
// copies of the same streaming-with-abort loop.
func Download(ctx context.Context, f *httpfetch.Fetcher, url string, maxSize int64) ([]byte, error) {
	return f.DownloadWithLimit(ctx, url, maxSize)
}
