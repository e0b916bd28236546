package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TrainingRun is one row of the training history.
type TrainingRun struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
	Dataset         string    `json:"dataset"`
	Metric          string    `json:"metric"`
	Score           float64   `json:"score"`
	Evaluated       bool      `json:"evaluated"`
	TrainRows       int       `json:"train_rows"`
	TestRows        int       `json:"test_rows"`
	Iterations      int       `json:"iterations"`
	Converged       bool      `json:"converged"`
	ModelPath       string    `json:"model_path"`
	ImportancesPath string    `json:"importances_path"`
	DurationMillis  int64     `json:"duration_ms"`
}

type RunStore struct {
	db *gorm.DB
}

// OpenRunStore opens (or creates) the sqlite database at path. ":memory:"
// gives a private in-memory store.
func OpenRunStore(path string) (*RunStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open run store %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access run store: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&TrainingRun{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate run store: %w", err)
	}

	return &RunStore{db: db}, nil
}

func (s *RunStore) Record(ctx context.Context, run *TrainingRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to record training run: %w", err)
	}
	return nil
}

// List returns the newest runs first.
func (s *RunStore) List(ctx context.Context, limit int) ([]TrainingRun, error) {
	var runs []TrainingRun
	q := s.db.WithContext(ctx).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list training runs: %w", err)
	}
	return runs, nil
}

func (s *RunStore) Latest(ctx context.Context) (*TrainingRun, error) {
	var run TrainingRun
	err := s.db.WithContext(ctx).Order("created_at desc").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no training runs recorded", ErrModelNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest run: %w", err)
	}
	return &run, nil
}

func (s *RunStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
