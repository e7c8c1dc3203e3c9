package ports

import (
	"context"
	"io"
)

// TransportPort fetches bytes over HTTP with a per-operation timeout.
// DownloadFile streams the body to a file on disk; Download streams it
// to the given writer.
type TransportPort interface {
	DownloadFile(ctx context.Context, url string, destPath string) error
	Download(ctx context.Context, url string, dest io.Writer) error
}
