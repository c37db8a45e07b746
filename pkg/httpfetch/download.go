package httpfetch

import (
	"context"
	"fmt"
	"io"
)

const downloadBufferSize = 8 * 1024 // 8 KiB, per spec.md §4.4.

// ErrMaxSizeExceeded is returned by DownloadWithLimit when the stream grows
// past maxSize before it completes.
var ErrMaxSizeExceeded = fmt.Errorf("download exceeds max size limit")

// DownloadWithLimit streams a GET response body in 8 KiB reads, aborting
// mid-stream if maxSize is exceeded (spec.md §4.4's download helper). A
// maxSize of 0 means unbounded.
func (f *Fetcher) DownloadWithLimit(ctx context.Context, url string, maxSize int64) ([]byte, error) {
	resp, err := f.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	var buf []byte
	chunk := make([]byte, downloadBufferSize)
	var downloaded int64

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		n, readErr := resp.Body.Read(chunk)
		if n > 0 {
			downloaded += int64(n)
			if maxSize > 0 && downloaded > maxSize {
				return nil, fmt.Errorf("%w: limit %d bytes", ErrMaxSizeExceeded, maxSize)
			}
			buf = append(buf, chunk[:n]...)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, readErr
		}
	}

	return buf, nil
}
