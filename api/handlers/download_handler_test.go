package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/fetchd/internal/domain"
)

func TestNewDownloadView(t *testing.T) {
	total := uint64(2 * 1024 * 1024)
	record := &domain.DownloadRecord{
		URL:      "https://example.com/path/file.zip?x=1",
		Progress: 1024 * 1024,
		Total:    &total,
		Speed:    1024 * 1024,
	}

	view := NewDownloadView(record)

	assert.Equal(t, "file.zip", view.Name)
	assert.False(t, view.Failed)
	assert.Equal(t, "1.00 MiB", view.Progress)
	require.NotNil(t, view.Total)
	assert.Equal(t, "2.00 MiB", *view.Total)
	require.NotNil(t, view.Percent)
	assert.Equal(t, "50.00", *view.Percent)
	assert.Equal(t, "1.00 MiB/s", view.Speed)
	require.NotNil(t, view.TimeEstimate)
	assert.Equal(t, "1 seconds", *view.TimeEstimate)
}

func TestNewDownloadView_UnknownTotal(t *testing.T) {
	record := &domain.DownloadRecord{
		URL:      "https://example.com/stream",
		Progress: 512,
	}

	view := NewDownloadView(record)

	assert.Equal(t, "stream", view.Name)
	assert.Equal(t, "512 B", view.Progress)
	assert.Nil(t, view.Total)
	assert.Nil(t, view.Percent)
	assert.Nil(t, view.TimeEstimate)
	assert.Equal(t, "0.00 B/s", view.Speed)
}

func TestNewDownloadView_Failed(t *testing.T) {
	record := &domain.DownloadRecord{
		URL:    "https://example.com/gone.bin",
		Failed: true,
	}

	view := NewDownloadView(record)
	assert.True(t, view.Failed)
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		bytes    uint64
		expected string
	}{
		{512, "512 B"},
		{2048, "2.00 KiB"},
		{3 * 1024 * 1024, "3.00 MiB"},
		{5 * 1024 * 1024 * 1024, "5.00 GiB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, humanBytes(tt.bytes))
	}
}

func TestHumanTime(t *testing.T) {
	assert.Equal(t, "30 seconds", humanTime(30))
	assert.Equal(t, "2.0 minutes", humanTime(120))
	assert.Equal(t, "1.5 hours", humanTime(5400))
	assert.Equal(t, "2.0 days", humanTime(172800))
}
