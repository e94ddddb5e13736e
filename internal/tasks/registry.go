package tasks

import "github.com/mikestefanello/backlite"

// Task names that can be triggered on demand.
const (
	NameEnrichBook         = "enrich_book"
	NameEnrichAllBooks     = "enrich_all_books"
	NameCleanupAuditEvents = "cleanup_audit_events"
)

// ManualTask builds a task that can be run on request by name. Single-book
// enrichment is not included since it needs a book ID.
func ManualTask(name string, auditRetentionDays int) (backlite.Task, bool) {
	switch name {
	case NameEnrichAllBooks:
		return EnrichAllBooksTask{}, true
	case NameCleanupAuditEvents:
		return CleanupAuditEventsTask{RetentionDays: auditRetentionDays}, true
	default:
		return nil, false
	}
}
