// Package fetcher downloads bulk job feeds over HTTP and FTP and decodes
// the CSV, XML, and XLSX payloads they are published as.
package fetcher

import (
	"context"
	"io"
)

// Fetcher downloads remote feed data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadIfChanged fetches the URL only if its ETag differs from the
	// given one. Returns (body, newETag, changed, error); when the feed is
	// unchanged body is nil and changed is false.
	DownloadIfChanged(ctx context.Context, url string, etag string) (io.ReadCloser, string, bool, error)
}
