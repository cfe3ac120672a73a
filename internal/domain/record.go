package domain

import (
	"regexp"
	"strings"
)

// DownloadRecord is the persisted snapshot of one URL's transfer state.
// There is exactly one record per distinct URL; the record is the single
// durable source of truth across process restarts.
type DownloadRecord struct {
	// URL is the download source and the primary key.
	URL string `json:"url" gorm:"primaryKey"`

	// TargetFile is the working (temp) filename chosen for this transfer.
	// Empty until the first progress snapshot. It is reused across retries
	// so resume can locate the partial file.
	TargetFile string `json:"target_file,omitempty"`

	// Failed is set once the retry budget is exhausted. A failed record
	// has no worker assigned until a fresh start request arrives.
	Failed bool `json:"failed" gorm:"index"`

	// Progress is the byte count already written to the working file.
	Progress uint64 `json:"progress"`

	// Total is the content length when the server reports one. Nil for
	// chunked or unknown-length responses. Progress <= *Total holds
	// whenever Total is known.
	Total *uint64 `json:"total,omitempty"`

	// Speed is the last reported throughput in bytes per second.
	Speed float64 `json:"speed"`
}

// NewDownloadRecord creates a zero-progress, non-failed record for url.
func NewDownloadRecord(url string) *DownloadRecord {
	return &DownloadRecord{URL: url}
}

// lastSegmentRe captures the last path segment of a URL, discarding any
// query parameters.
var lastSegmentRe = regexp.MustCompile(`/([^?/]+)(\?.*)?$`)

// FinalName derives the canonical filename for a completed download: the
// last path segment of the URL stripped of its query string, sanitized
// for the filesystem. If the URL has no usable path segment, a sanitized
// form of the whole URL is used instead.
func FinalName(url string) string {
	if m := lastSegmentRe.FindStringSubmatch(url); m != nil {
		return sanitizeFilename(m[1])
	}
	return sanitizeFilename(url)
}

// sanitizeFilename strips characters that are unsafe in filenames across
// platforms, along with path separators.
func sanitizeFilename(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return -1
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, name)
	sanitized = strings.Trim(sanitized, ". ")
	if sanitized == "" {
		return "download"
	}
	return sanitized
}
