package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"deepbook_go/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage persists bootstrap checkpoints so an interrupted run can resume.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the SQLite database at dbPath.
func NewStorage(dbPath string) (*Storage, error) {
	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.Checkpoint{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close releases the underlying connection.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Checkpoint Operations
// ======================================================================================

// SaveCheckpoint appends a checkpoint. Earlier checkpoints of the run are kept as history.
func (s *Storage) SaveCheckpoint(cp *domain.Checkpoint) error {
	if cp.RunID == "" || cp.Phase == "" {
		return errors.New("checkpoint needs a run id and a phase")
	}
	return s.db.Create(cp).Error
}

// LatestCheckpoint returns the most recent checkpoint of a run, or nil if the run is unknown.
func (s *Storage) LatestCheckpoint(runID string) (*domain.Checkpoint, error) {
	var cp domain.Checkpoint
	err := s.db.Where("run_id = ?", runID).Order("id desc").First(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// History returns every checkpoint of a run in the order they were written.
func (s *Storage) History(runID string) ([]domain.Checkpoint, error) {
	var cps []domain.Checkpoint
	err := s.db.Where("run_id = ?", runID).Order("id asc").Find(&cps).Error
	return cps, err
}

// ListRuns returns the latest checkpoint of every run, newest first.
func (s *Storage) ListRuns() ([]domain.Checkpoint, error) {
	var cps []domain.Checkpoint
	latest := s.db.Model(&domain.Checkpoint{}).Select("MAX(id)").Group("run_id")
	err := s.db.Where("id IN (?)", latest).Order("id desc").Find(&cps).Error
	return cps, err
}

// DeleteRun removes every checkpoint of a run.
func (s *Storage) DeleteRun(runID string) error {
	return s.db.Where("run_id = ?", runID).Delete(&domain.Checkpoint{}).Error
}
