package infrastructure

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/yourusername/fetchd/internal/domain"
)

// SQLiteProgressStore implements domain.ProgressStore using SQLite.
// Records survive process restarts, which is what makes crash recovery
// of interrupted downloads possible.
type SQLiteProgressStore struct {
	db *gorm.DB
}

// NewSQLiteProgressStore creates a new SQLite-backed progress store.
func NewSQLiteProgressStore(dbPath string) (*SQLiteProgressStore, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.DownloadRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteProgressStore{db: db}, nil
}

// Get returns the record for url, or (nil, nil) when absent.
func (s *SQLiteProgressStore) Get(ctx context.Context, url string) (*domain.DownloadRecord, error) {
	var record domain.DownloadRecord
	err := s.db.WithContext(ctx).First(&record, "url = ?", url).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// Put creates or replaces the record for record.URL.
func (s *SQLiteProgressStore) Put(ctx context.Context, record *domain.DownloadRecord) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url"}},
		UpdateAll: true,
	}).Create(record).Error
}

// Delete removes the record for url.
func (s *SQLiteProgressStore) Delete(ctx context.Context, url string) error {
	return s.db.WithContext(ctx).Delete(&domain.DownloadRecord{}, "url = ?", url).Error
}

// Scan returns all records.
func (s *SQLiteProgressStore) Scan(ctx context.Context) ([]*domain.DownloadRecord, error) {
	var records []*domain.DownloadRecord
	err := s.db.WithContext(ctx).Find(&records).Error
	return records, err
}

// Close closes the database connection.
func (s *SQLiteProgressStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
