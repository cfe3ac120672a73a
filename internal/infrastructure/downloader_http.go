package infrastructure

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/fetchd/internal/domain"
)

const downloadBufferSize = 32 * 1024

// HTTPDownloader implements domain.Downloader for plain HTTP(S) URLs.
// One Download call performs one resumable transfer end-to-end: it
// resumes from whatever is already on disk, streams the body into a
// working file, persists progress snapshots about once a second, and
// renames the file into place on completion. Errors are never retried
// here; they surface to the coordinator, which owns retry policy.
type HTTPDownloader struct {
	store          domain.ProgressStore
	client         *http.Client
	dir            string
	userAgent      string
	reportInterval time.Duration
	logger         *zap.Logger
}

// NewHTTPDownloader creates a new HTTP downloader writing into the
// configured download directory.
func NewHTTPDownloader(
	store domain.ProgressStore,
	client *http.Client,
	config *domain.DownloadConfig,
	logger *zap.Logger,
) *HTTPDownloader {
	interval := config.ReportInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &HTTPDownloader{
		store:          store,
		client:         client,
		dir:            config.Dir,
		userAgent:      config.UserAgent,
		reportInterval: interval,
		logger:         logger,
	}
}

// Download transfers url into the download directory.
func (d *HTTPDownloader) Download(ctx context.Context, url string) error {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	// Reuse the working filename from a previous attempt so resume can
	// find the partial file; otherwise pick a fresh unique one.
	record, err := d.store.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to read progress record: %w", err)
	}
	filename := ""
	if record != nil {
		filename = record.TargetFile
	}
	if filename == "" {
		filename = fmt.Sprintf(".%s.tmp", uuid.New().String())
	}
	workPath := filepath.Join(d.dir, filename)

	// The authoritative resume offset is the current on-disk size, read
	// immediately before building the request. The persisted progress
	// counter may lag true disk state after an unclean shutdown.
	var offset uint64
	if info, statErr := os.Stat(workPath); statErr == nil {
		offset = uint64(info.Size())
	}

	d.logger.Info("Starting transfer",
		zap.String("url", url),
		zap.String("file", filename),
		zap.Uint64("offset", offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", url, domain.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code %d for %s", resp.StatusCode, url)
	}

	// 206 means the server honored the range request and we append. Any
	// other success means full content: truncate the file and reset the
	// progress counter to match it.
	resuming := resp.StatusCode == http.StatusPartialContent
	fileMode := os.O_CREATE | os.O_WRONLY
	if resuming {
		fileMode |= os.O_APPEND
	} else {
		fileMode |= os.O_TRUNC
	}
	if offset > 0 && !resuming {
		d.logger.Warn("Server ignored range request, restarting from zero",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode))
		offset = 0
	}

	file, err := os.OpenFile(workPath, fileMode, 0644)
	if err != nil {
		return fmt.Errorf("failed to open working file: %w", err)
	}
	defer file.Close()

	var total *uint64
	if resp.ContentLength >= 0 {
		t := offset + uint64(resp.ContentLength)
		total = &t
	}

	progress := offset
	sinceLastReport := uint64(0)
	lastReport := time.Now()
	estimator := domain.NewSpeedEstimator()

	buffer := make([]byte, downloadBufferSize)
	for {
		n, readErr := resp.Body.Read(buffer)
		if n > 0 {
			if _, writeErr := file.Write(buffer[:n]); writeErr != nil {
				return fmt.Errorf("failed to write to working file: %w", writeErr)
			}
			progress += uint64(n)
			sinceLastReport += uint64(n)

			if elapsed := time.Since(lastReport); elapsed >= d.reportInterval {
				estimator.Add(sinceLastReport, uint64(elapsed.Milliseconds()))
				snapshot := &domain.DownloadRecord{
					URL:        url,
					TargetFile: filename,
					Failed:     false,
					Progress:   progress,
					Total:      total,
					Speed:      estimator.BytesPerSecond(),
				}
				if putErr := d.store.Put(ctx, snapshot); putErr != nil {
					return fmt.Errorf("failed to persist progress: %w", putErr)
				}
				lastReport = time.Now()
				sinceLastReport = 0
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return fmt.Errorf("failed to read response body: %w", readErr)
		}
	}

	// The data must be durable before the download counts as complete; a
	// crash between write and sync must not be reported as done.
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync working file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close working file: %w", err)
	}

	finalPath := filepath.Join(d.dir, domain.FinalName(url))
	if err := os.Rename(workPath, finalPath); err != nil {
		return fmt.Errorf("failed to finalize download: %w", err)
	}

	d.logger.Info("Transfer complete",
		zap.String("url", url),
		zap.String("file", domain.FinalName(url)),
		zap.Uint64("bytes", progress))
	return nil
}
