package domain

import (
	"context"
	"errors"
)

// ErrNotFound indicates the remote server answered 404 for the download
// URL. Retrying cannot succeed without the remote file reappearing, but
// the coordinator still charges such failures against the same retry
// budget as transient errors.
var ErrNotFound = errors.New("remote file not found")

// Downloader performs one resumable transfer end-to-end. Download blocks
// until the transfer completes or fails; it never retries internally,
// retry policy belongs to the coordinator alone.
type Downloader interface {
	Download(ctx context.Context, url string) error
}
