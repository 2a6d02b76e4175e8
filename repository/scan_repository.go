package repository

import (
	"context"
	"time"

	"yampd/model"

	"gorm.io/gorm"
)

// ScanRepository keeps the import history.
type ScanRepository interface {
	Create(ctx context.Context, run *model.ScanRun) error
	Finish(ctx context.Context, run *model.ScanRun) error
	Recent(ctx context.Context, limit int) ([]*model.ScanRun, error)
}

// gormScanRepository is the GORM ScanRepository.
type gormScanRepository struct {
	db *gorm.DB
}

// NewGormScanRepository creates a GORM scan repository.
func NewGormScanRepository(db *gorm.DB) ScanRepository {
	return &gormScanRepository{db: db}
}

// Create inserts run as running, stamping StartedAt if unset.
func (r *gormScanRepository) Create(ctx context.Context, run *model.ScanRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = model.ScanStatusRunning
	}
	return r.db.WithContext(ctx).Create(run).Error
}

// Finish stores the counters and final status of run.
func (r *gormScanRepository) Finish(ctx context.Context, run *model.ScanRun) error {
	now := time.Now()
	run.FinishedAt = &now
	return r.db.WithContext(ctx).Model(&model.ScanRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"status":      run.Status,
			"files_seen":  run.FilesSeen,
			"imported":    run.Imported,
			"failed":      run.Failed,
			"error":       run.Error,
			"finished_at": now,
		}).Error
}

// Recent returns the latest runs, newest first.
func (r *gormScanRepository) Recent(ctx context.Context, limit int) ([]*model.ScanRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []*model.ScanRun
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}
