package entities

import "time"

// SyncType names a bulk background job whose progress is persisted.
type SyncType string

// SyncTypeEnrichment is the catalog-wide OpenLibrary enrichment run.
const SyncTypeEnrichment SyncType = "enrichment"

type SyncStatus string

const (
	SyncStatusIdle      SyncStatus = "idle" // never run; not stored
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
)

// SyncProgress is the single progress row kept per SyncType. Starting a new
// run resets it.
type SyncProgress struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	SyncType    SyncType   `gorm:"size:50;uniqueIndex" json:"sync_type"`
	Status      SyncStatus `gorm:"size:20" json:"status"`
	TotalItems  int        `json:"total_items"`
	Processed   int        `json:"processed"`
	Succeeded   int        `json:"succeeded"`
	Failed      int        `json:"failed"`
	Skipped     int        `json:"skipped"`
	CurrentItem string     `gorm:"size:512" json:"current_item,omitempty"`
	Error       string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (SyncProgress) TableName() string {
	return "sync_progress"
}

// PercentDone is Processed as a share of TotalItems, 0..100.
func (p SyncProgress) PercentDone() int {
	if p.TotalItems <= 0 {
		if p.Status == SyncStatusCompleted {
			return 100
		}
		return 0
	}
	return min(100, p.Processed*100/p.TotalItems)
}

// IsStale reports whether a running job has gone quiet for longer than after.
func (p SyncProgress) IsStale(now time.Time, after time.Duration) bool {
	return p.Status == SyncStatusRunning && p.UpdatedAt.Before(now.Add(-after))
}
