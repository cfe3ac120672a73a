package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/fetchd/internal/domain"
)

// mapProgressStore implements domain.ProgressStore in memory for tests
type mapProgressStore struct {
	mu      sync.Mutex
	records map[string]*domain.DownloadRecord
}

func newMapProgressStore() *mapProgressStore {
	return &mapProgressStore{records: make(map[string]*domain.DownloadRecord)}
}

func (m *mapProgressStore) Get(ctx context.Context, url string) (*domain.DownloadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[url]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, nil
}

func (m *mapProgressStore) Put(ctx context.Context, record *domain.DownloadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *record
	m.records[record.URL] = &copied
	return nil
}

func (m *mapProgressStore) Delete(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, url)
	return nil
}

func (m *mapProgressStore) Scan(ctx context.Context) ([]*domain.DownloadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := make([]*domain.DownloadRecord, 0, len(m.records))
	for _, r := range m.records {
		copied := *r
		records = append(records, &copied)
	}
	return records, nil
}

func newTestDownloader(t *testing.T, store domain.ProgressStore) *HTTPDownloader {
	t.Helper()
	return &HTTPDownloader{
		store:  store,
		client: &http.Client{},
		dir:    t.TempDir(),
		// Snapshot on every chunk so tests can observe persisted progress.
		reportInterval: time.Nanosecond,
		logger:         zap.NewNop(),
	}
}

func TestDownload_FullTransfer(t *testing.T) {
	content := "full file content"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Range"))
		fmt.Fprint(w, content)
	}))
	defer server.Close()

	store := newMapProgressStore()
	d := newTestDownloader(t, store)

	url := server.URL + "/path/file.zip?x=1"
	require.NoError(t, d.Download(context.Background(), url))

	// The final name derives from the URL path, query string stripped.
	data, err := os.ReadFile(filepath.Join(d.dir, "file.zip"))
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	// No working file is left behind.
	entries, err := os.ReadDir(d.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDownload_ResumesFromDiskSize(t *testing.T) {
	full := "hello resumable world"
	partial := full[:7]

	var gotRange string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		w.Header().Set("Content-Range", fmt.Sprintf("bytes 7-%d/%d", len(full)-1, len(full)))
		w.Header().Set("Content-Length", strconv.Itoa(len(full)-7))
		w.WriteHeader(http.StatusPartialContent)
		fmt.Fprint(w, full[7:])
	}))
	defer server.Close()

	store := newMapProgressStore()
	d := newTestDownloader(t, store)

	url := server.URL + "/data.bin"
	workFile := ".resume-test.tmp"
	require.NoError(t, os.WriteFile(filepath.Join(d.dir, workFile), []byte(partial), 0644))

	// The persisted counter disagrees with the disk on purpose: the disk
	// size must win.
	require.NoError(t, store.Put(context.Background(), &domain.DownloadRecord{
		URL:        url,
		TargetFile: workFile,
		Progress:   999,
	}))

	require.NoError(t, d.Download(context.Background(), url))

	assert.Equal(t, "bytes=7-", gotRange)

	data, err := os.ReadFile(filepath.Join(d.dir, "data.bin"))
	require.NoError(t, err)
	assert.Equal(t, full, string(data))
}

func TestDownload_RestartsWhenServerIgnoresRange(t *testing.T) {
	content := "complete body served from scratch"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Range request arrives but is answered with full content.
		assert.NotEmpty(t, r.Header.Get("Range"))
		fmt.Fprint(w, content)
	}))
	defer server.Close()

	store := newMapProgressStore()
	d := newTestDownloader(t, store)

	url := server.URL + "/data.bin"
	workFile := ".restart-test.tmp"
	require.NoError(t, os.WriteFile(filepath.Join(d.dir, workFile), []byte("stale partial data"), 0644))
	require.NoError(t, store.Put(context.Background(), &domain.DownloadRecord{
		URL:        url,
		TargetFile: workFile,
	}))

	require.NoError(t, d.Download(context.Background(), url))

	// The file was truncated, not appended to.
	data, err := os.ReadFile(filepath.Join(d.dir, "data.bin"))
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	// The progress counter was reset along with the file: the last
	// snapshot counts only bytes written after the truncation.
	record, err := store.Get(context.Background(), url)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, uint64(len(content)), record.Progress)
	require.NotNil(t, record.Total)
	assert.Equal(t, uint64(len(content)), *record.Total)
}

func TestDownload_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	store := newMapProgressStore()
	d := newTestDownloader(t, store)

	err := d.Download(context.Background(), server.URL+"/missing.bin")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDownload_UnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	store := newMapProgressStore()
	d := newTestDownloader(t, store)

	err := d.Download(context.Background(), server.URL+"/flaky.bin")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "unexpected status code 500")
}

func TestDownload_PersistsProgressSnapshots(t *testing.T) {
	content := strings.Repeat("x", 64*1024)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		fmt.Fprint(w, content)
	}))
	defer server.Close()

	store := newMapProgressStore()
	d := newTestDownloader(t, store)

	url := server.URL + "/big.bin"
	require.NoError(t, d.Download(context.Background(), url))

	record, err := store.Get(context.Background(), url)
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, url, record.URL)
	assert.False(t, record.Failed)
	assert.True(t, strings.HasPrefix(record.TargetFile, "."))
	assert.True(t, strings.HasSuffix(record.TargetFile, ".tmp"))
	assert.Equal(t, uint64(len(content)), record.Progress)
	require.NotNil(t, record.Total)
	assert.Equal(t, uint64(len(content)), *record.Total)
	assert.GreaterOrEqual(t, record.Speed, 0.0)
}

func TestDownload_TotalIncludesResumeOffset(t *testing.T) {
	full := strings.Repeat("y", 1000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(full)-200))
		w.WriteHeader(http.StatusPartialContent)
		fmt.Fprint(w, full[200:])
	}))
	defer server.Close()

	store := newMapProgressStore()
	d := newTestDownloader(t, store)

	url := server.URL + "/sized.bin"
	workFile := ".sized-test.tmp"
	require.NoError(t, os.WriteFile(filepath.Join(d.dir, workFile), []byte(full[:200]), 0644))
	require.NoError(t, store.Put(context.Background(), &domain.DownloadRecord{
		URL:        url,
		TargetFile: workFile,
	}))

	require.NoError(t, d.Download(context.Background(), url))

	record, err := store.Get(context.Background(), url)
	require.NoError(t, err)
	require.NotNil(t, record)
	require.NotNil(t, record.Total)
	assert.Equal(t, uint64(1000), *record.Total)
	assert.Equal(t, uint64(1000), record.Progress)
}
