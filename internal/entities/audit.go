package entities

import "time"

// AuditEventType groups audit events for filtering.
type AuditEventType string

const (
	AuditEventImport         AuditEventType = "import"
	AuditEventLibrary        AuditEventType = "library"
	AuditEventRecognition    AuditEventType = "recognition"
	AuditEventRecommendation AuditEventType = "recommendation"
	AuditEventProfile        AuditEventType = "profile"
	AuditEventMetadataEnrich AuditEventType = "metadata_enrich"
	AuditEventAuth           AuditEventType = "auth"
)

var auditEventTypes = []AuditEventType{
	AuditEventImport,
	AuditEventLibrary,
	AuditEventRecognition,
	AuditEventRecommendation,
	AuditEventProfile,
	AuditEventMetadataEnrich,
	AuditEventAuth,
}

// AuditEventTypes lists every event type in display order.
func AuditEventTypes() []AuditEventType {
	return append([]AuditEventType(nil), auditEventTypes...)
}

// Valid reports whether t is a known event type.
func (t AuditEventType) Valid() bool {
	for _, known := range auditEventTypes {
		if t == known {
			return true
		}
	}
	return false
}

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

// AuditEvent is one user-visible activity record. Metadata holds a JSON
// object with action-specific fields such as import counts.
type AuditEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"index" json:"user_id"`
	EventType   AuditEventType `gorm:"index;size:50" json:"event_type"`
	Action      string         `gorm:"size:100" json:"action"`
	Description string         `gorm:"size:500" json:"description"`
	EntityType  string         `gorm:"size:50" json:"entity_type,omitempty"`
	EntityID    *uint          `gorm:"index" json:"entity_id,omitempty"`
	Metadata    string         `gorm:"type:text" json:"metadata,omitempty"`
	IPAddress   string         `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent   string         `gorm:"size:500" json:"user_agent,omitempty"`
	Status      AuditStatus    `gorm:"size:20" json:"status"`
	ErrorMsg    string         `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
