package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/fetchd/internal/domain"
)

// workerEvent is a termination notice sent by a worker goroutine to the
// supervision loop. A nil err means the transfer completed.
type workerEvent struct {
	workerID string
	err      error
}

// workerRegistration tracks one in-flight worker. retries is the retry
// count of the current attempt: 0 for the first attempt, inherited+1 for
// each respawn.
type workerRegistration struct {
	url     string
	retries int
}

// Coordinator is the fault-tolerant supervisor of per-URL download
// workers. It owns the retry policy: workers never retry locally, they
// surface every failure here. A single supervision goroutine drains
// worker termination events, so terminal transitions in the progress
// store (delete on success, mark-failed on retry exhaustion) happen in
// one place.
type Coordinator struct {
	store      domain.ProgressStore
	downloader domain.Downloader
	config     *domain.DownloadConfig
	logger     *zap.Logger

	mu      sync.Mutex
	running bool
	workers map[string]*workerRegistration // workerID -> registration
	active  map[string]string              // url -> workerID

	events   chan workerEvent
	stopChan chan struct{}
	superWg  sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewCoordinator creates a new coordinator.
func NewCoordinator(
	store domain.ProgressStore,
	downloader domain.Downloader,
	config *domain.DownloadConfig,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		store:      store,
		downloader: downloader,
		config:     config,
		logger:     logger,
		workers:    make(map[string]*workerRegistration),
		active:     make(map[string]string),
		events:     make(chan workerEvent, 16),
		stopChan:   make(chan struct{}),
	}
}

// Start launches the supervision loop and recovers downloads interrupted
// by a previous crash or restart: every stored record that is not marked
// failed gets a fresh worker with a zeroed retry count. A stopped
// coordinator can be started again; each run gets its own event and stop
// channels so workers abandoned by an earlier run cannot leak events
// into the new one.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("coordinator already running")
	}
	c.running = true
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.workers = make(map[string]*workerRegistration)
	c.active = make(map[string]string)
	c.events = make(chan workerEvent, 16)
	c.stopChan = make(chan struct{})
	events, stop := c.events, c.stopChan
	c.mu.Unlock()

	c.superWg.Add(1)
	go c.supervise(events, stop)

	return c.recover(ctx)
}

// Stop shuts down the supervision loop. In-flight workers are abandoned;
// their partial files and progress records stay valid and are resumed by
// the next Start.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return fmt.Errorf("coordinator not running")
	}
	c.running = false
	cancel, stop := c.cancel, c.stopChan
	c.mu.Unlock()

	cancel()
	close(stop)
	c.superWg.Wait()
	return nil
}

// IsRunning returns whether the supervision loop is active.
func (c *Coordinator) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// ActiveCount returns the number of in-flight workers.
func (c *Coordinator) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.workers)
}

// StartDownload records an initial zero-progress entry for url and spawns
// a worker for it. A URL that already has an active worker is left alone:
// spawning a duplicate would race on the same progress record and the
// same working file. If a stale record survives from an earlier failed
// attempt, its working file is carried over so the new worker resumes the
// partial instead of orphaning it.
func (c *Coordinator) StartDownload(ctx context.Context, url string) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return fmt.Errorf("coordinator not running")
	}
	if workerID, exists := c.active[url]; exists {
		c.mu.Unlock()
		c.logger.Info("Download already in flight, ignoring duplicate request",
			zap.String("url", url),
			zap.String("worker_id", workerID))
		return nil
	}
	// Claim the URL before releasing the lock; a concurrent request for
	// the same URL must hit the check above, not spawn a second worker.
	c.active[url] = ""
	c.mu.Unlock()

	record := domain.NewDownloadRecord(url)
	if previous, err := c.store.Get(ctx, url); err == nil && previous != nil {
		record.TargetFile = previous.TargetFile
	}

	if err := c.store.Put(ctx, record); err != nil {
		c.mu.Lock()
		if c.active[url] == "" {
			delete(c.active, url)
		}
		c.mu.Unlock()
		return fmt.Errorf("failed to record download: %w", err)
	}

	c.spawn(url, 0)
	return nil
}

// recover scans the store and spawns a worker for every non-failed
// record.
func (c *Coordinator) recover(ctx context.Context) error {
	records, err := c.store.Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan progress store: %w", err)
	}

	for _, record := range records {
		if record.Failed {
			continue
		}
		c.logger.Info("Recovering interrupted download", zap.String("url", record.URL))
		c.spawn(record.URL, 0)
	}
	return nil
}

// spawn registers a worker for url and launches it. The worker reports
// its termination on the events channel; if the coordinator stops first,
// the report is dropped and the download is picked up again on the next
// recovery scan.
func (c *Coordinator) spawn(url string, retries int) {
	workerID := uuid.New().String()

	c.mu.Lock()
	c.workers[workerID] = &workerRegistration{url: url, retries: retries}
	c.active[url] = workerID
	ctx, events, stop := c.ctx, c.events, c.stopChan
	c.mu.Unlock()

	c.logger.Debug("Spawning worker",
		zap.String("worker_id", workerID),
		zap.String("url", url),
		zap.Int("retries", retries))

	go func() {
		err := c.downloader.Download(ctx, url)
		select {
		case events <- workerEvent{workerID: workerID, err: err}:
		case <-stop:
		}
	}()
}

// supervise drains worker termination events until Stop.
func (c *Coordinator) supervise(events chan workerEvent, stop chan struct{}) {
	defer c.superWg.Done()

	for {
		select {
		case <-stop:
			return
		case event := <-events:
			if event.err == nil {
				c.onWorkerSuccess(event.workerID)
			} else {
				c.onWorkerFailure(event.workerID, event.err)
			}
		}
	}
}

// onWorkerSuccess deletes the progress record for the finished URL and
// drops the registration. The download is complete and no longer tracked.
func (c *Coordinator) onWorkerSuccess(workerID string) {
	registration := c.unregister(workerID)
	if registration == nil {
		return
	}

	c.logger.Info("Download finished", zap.String("url", registration.url))
	if err := c.store.Delete(c.ctx, registration.url); err != nil {
		c.logger.Error("Failed to delete progress record",
			zap.String("url", registration.url),
			zap.Error(err))
	}
}

// onWorkerFailure either respawns a replacement worker immediately or,
// once the retry budget is exhausted, marks the record permanently failed
// while preserving its other fields. Not-found errors consume the same
// budget as transient ones.
func (c *Coordinator) onWorkerFailure(workerID string, cause error) {
	c.mu.Lock()
	registration, ok := c.workers[workerID]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.workers, workerID)
	c.mu.Unlock()

	if registration.retries >= c.config.MaxRetries {
		c.logger.Error("Download failed, giving up",
			zap.String("url", registration.url),
			zap.Int("retries", registration.retries),
			zap.Error(cause))
		c.markFailed(registration.url)

		c.mu.Lock()
		if c.active[registration.url] == workerID {
			delete(c.active, registration.url)
		}
		c.mu.Unlock()
		return
	}

	c.logger.Warn("Download failed, restarting",
		zap.String("url", registration.url),
		zap.Int("retries", registration.retries),
		zap.Error(cause))
	c.spawn(registration.url, registration.retries+1)
}

// markFailed rewrites the last known record with failed=true, preserving
// the other fields. A record is synthesized if none survives.
func (c *Coordinator) markFailed(url string) {
	record, err := c.store.Get(c.ctx, url)
	if err != nil {
		c.logger.Error("Failed to fetch record for failure marking",
			zap.String("url", url),
			zap.Error(err))
	}
	if record == nil {
		record = domain.NewDownloadRecord(url)
	}
	record.Failed = true
	if err := c.store.Put(c.ctx, record); err != nil {
		c.logger.Error("Failed to persist failure",
			zap.String("url", url),
			zap.Error(err))
	}
}

// unregister removes the worker and its URL claim, returning the
// registration, or nil if the worker is unknown.
func (c *Coordinator) unregister(workerID string) *workerRegistration {
	c.mu.Lock()
	defer c.mu.Unlock()

	registration, ok := c.workers[workerID]
	if !ok {
		return nil
	}
	delete(c.workers, workerID)
	if c.active[registration.url] == workerID {
		delete(c.active, registration.url)
	}
	return registration
}
