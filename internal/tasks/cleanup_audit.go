package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/readnext/internal/logging"
)

// DefaultAuditRetentionDays applies when a cleanup task carries no retention.
const DefaultAuditRetentionDays = 30

// AuditEventCleaner deletes audit events and the import payloads archived
// with them.
type AuditEventCleaner interface {
	Cleanup(retention time.Duration) (int64, error)
}

// CleanupAuditEventsTask drops audit history older than RetentionDays.
// The scheduler enqueues one per day; it can also be run by hand.
type CleanupAuditEventsTask struct {
	RetentionDays int `json:"retention_days"`
}

// Retention is the effective retention window.
func (t CleanupAuditEventsTask) Retention() time.Duration {
	days := t.RetentionDays
	if days <= 0 {
		days = DefaultAuditRetentionDays
	}
	return time.Duration(days) * 24 * time.Hour
}

func (t CleanupAuditEventsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        NameCleanupAuditEvents,
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration: 24 * time.Hour,
			Data:     &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupAuditEventsProcessor purges audit history through cleaner.
func CleanupAuditEventsProcessor(cleaner AuditEventCleaner) backlite.QueueProcessor[CleanupAuditEventsTask] {
	return func(ctx context.Context, task CleanupAuditEventsTask) error {
		if cleaner == nil {
			return errors.New("audit cleanup is not configured")
		}

		retention := task.Retention()
		deleted, err := cleaner.Cleanup(retention)
		if err != nil {
			return fmt.Errorf("cleanup audit events: %w", err)
		}

		logging.Info().
			Int64("deleted", deleted).
			Dur("retention", retention).
			Msg("Purged old audit events")
		return nil
	}
}

func NewCleanupAuditEventsQueue(cleaner AuditEventCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupAuditEventsProcessor(cleaner))
}
