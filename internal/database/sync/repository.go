// Package sync tracks progress of long-running bulk jobs.
//
// It implements metadata.ProgressReporter for the catalog enricher:
//
//	var _ metadata.ProgressReporter = (*Repository)(nil)
package sync

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/readnext/internal/entities"
)

// staleAfter is how long a running job may go without an update before it
// is treated as interrupted.
const staleAfter = 10 * time.Minute

// Repository tracks progress for a single sync type.
type Repository struct {
	db       *gorm.DB
	syncType entities.SyncType
}

// NewRepository creates a repository for catalog enrichment progress.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, syncType: entities.SyncTypeEnrichment}
}

// GetProgress returns the latest progress record.
func (r *Repository) GetProgress() (*entities.SyncProgress, error) {
	var progress entities.SyncProgress
	if err := r.db.Where("sync_type = ?", r.syncType).First(&progress).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

// StartSync creates the progress record or resets the previous run.
func (r *Repository) StartSync(totalItems int) error {
	now := time.Now()
	progress, err := r.GetProgress()
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(&entities.SyncProgress{
			SyncType:   r.syncType,
			Status:     entities.SyncStatusRunning,
			TotalItems: totalItems,
			StartedAt:  now,
			UpdatedAt:  now,
		}).Error
	}
	if err != nil {
		return err
	}

	*progress = entities.SyncProgress{
		ID:         progress.ID,
		SyncType:   r.syncType,
		Status:     entities.SyncStatusRunning,
		TotalItems: totalItems,
		StartedAt:  now,
		UpdatedAt:  now,
	}
	return r.db.Save(progress).Error
}

func (r *Repository) UpdateProgress(processed, succeeded, failed, skipped int, currentItem string) error {
	return r.db.Model(&entities.SyncProgress{}).
		Where("sync_type = ?", r.syncType).
		Updates(map[string]any{
			"processed":    processed,
			"succeeded":    succeeded,
			"failed":       failed,
			"skipped":      skipped,
			"current_item": currentItem,
			"updated_at":   time.Now(),
		}).Error
}

func (r *Repository) CompleteSync(succeeded bool, errorMsg string) error {
	now := time.Now()
	status := entities.SyncStatusCompleted
	if !succeeded {
		status = entities.SyncStatusFailed
	}

	return r.db.Model(&entities.SyncProgress{}).
		Where("sync_type = ?", r.syncType).
		Updates(map[string]any{
			"status":       status,
			"current_item": "",
			"error":        errorMsg,
			"updated_at":   now,
			"completed_at": now,
		}).Error
}

// IsSyncRunning reports whether a job is in progress. A running record that
// has not been touched for staleAfter is closed as interrupted.
func (r *Repository) IsSyncRunning() (bool, error) {
	var progress entities.SyncProgress
	err := r.db.Where("sync_type = ? AND status = ?", r.syncType, entities.SyncStatusRunning).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if progress.IsStale(time.Now(), staleAfter) {
		_ = r.CompleteSync(false, "sync was interrupted")
		return false, nil
	}
	return true, nil
}
