package domain

import "context"

// ProgressStore defines the interface for durable download state,
// keyed by URL. Implementations must survive process restarts; the
// coordinator rebuilds its in-memory state from a Scan at startup.
type ProgressStore interface {
	// Get returns the record for url, or (nil, nil) when absent.
	Get(ctx context.Context, url string) (*DownloadRecord, error)

	// Put creates or replaces the record for record.URL.
	Put(ctx context.Context, record *DownloadRecord) error

	// Delete removes the record for url. Deleting an absent record is
	// not an error.
	Delete(ctx context.Context, url string) error

	// Scan returns all records.
	Scan(ctx context.Context) ([]*DownloadRecord, error)
}
