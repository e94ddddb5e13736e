package audit

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mrlokans/readnext/internal/entities"
	"github.com/mrlokans/readnext/internal/logging"
)

// EventStore persists audit events.
type EventStore interface {
	LogEvent(event *entities.AuditEvent) error
	GetEvents(userID uint, eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error)
	DeleteOldEvents(olderThan time.Time) (int64, error)
}

// Service provides high-level audit logging functionality.
type Service struct {
	repo    EventStore
	archive *Archive
	wg      sync.WaitGroup
}

// NewService creates a new audit service. archive may be nil, in which
// case import payloads are not kept.
func NewService(repo EventStore, archive *Archive) *Service {
	return &Service{repo: repo, archive: archive}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background.
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(event); err != nil {
			logging.Error().Err(err).Str("action", event.Action).Msg("Failed to log audit event")
		}
	}()
}

// Flush waits for pending asynchronous events to be written.
func (s *Service) Flush() {
	s.wg.Wait()
}

// ArchiveCSV keeps an uploaded CSV and returns its archive name, or an
// empty string when archiving is disabled or fails.
func (s *Service) ArchiveCSV(content []byte) string {
	if s.archive == nil {
		return ""
	}
	name, err := s.archive.SaveCSV(content)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to archive import file")
		return ""
	}
	return name
}

// ArchiveReport keeps a JSON report, such as the per-row errors of an
// import, and returns its archive name.
func (s *Service) ArchiveReport(report any) string {
	if s.archive == nil {
		return ""
	}
	name, err := s.archive.SaveJSON(report)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to archive import report")
		return ""
	}
	return name
}

// ImportSummary describes the outcome of one import run.
type ImportSummary struct {
	Source   string
	File     string
	Imported int
	Updated  int
	Failed   int
	Skipped  int
}

// LogImport records an import event.
func (s *Service) LogImport(userID uint, summary ImportSummary, err error) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventImport,
		Action:    summary.Source + "_import",
		Description: fmt.Sprintf("Imported %d, updated %d, failed %d",
			summary.Imported, summary.Updated, summary.Failed),
		EntityType: "book",
		Status:     entities.AuditStatusSuccess,
	}

	event.Metadata = marshalMetadata(map[string]any{
		"imported": summary.Imported,
		"updated":  summary.Updated,
		"failed":   summary.Failed,
		"skipped":  summary.Skipped,
		"file":     summary.File,
	})

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogLibraryAdd records a book being added to a library.
func (s *Service) LogLibraryAdd(userID, bookID uint, title string, status entities.ReadingStatus, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventLibrary,
		Action:      "book_add",
		Description: truncate("Added "+title, 500),
		EntityType:  "book",
		Metadata:    marshalMetadata(map[string]any{"status": status}),
		Status:      entities.AuditStatusSuccess,
	}
	if bookID != 0 {
		event.EntityID = &bookID
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogRecognition records a photo recognition attempt.
func (s *Service) LogRecognition(userID uint, title, confidence string, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventRecognition,
		Action:      "photo_recognize",
		Description: truncate(title, 500),
		Metadata:    marshalMetadata(map[string]any{"confidence": confidence}),
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogRecommendation records a recommendation request.
func (s *Service) LogRecommendation(userID uint, action string, count int, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventRecommendation,
		Action:      action,
		Description: fmt.Sprintf("%d books recommended", count),
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogProfile records a taste profile or reading goal change.
func (s *Service) LogProfile(userID uint, action, description string) {
	s.LogAsync(&entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventProfile,
		Action:      action,
		Description: truncate(description, 500),
		Status:      entities.AuditStatusSuccess,
	})
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(userID uint, action string, ipAddr, userAgent string, success bool) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ipAddr,
		UserAgent: truncate(userAgent, 500),
		Status:    entities.AuditStatusSuccess,
	}

	if !success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(event)
}

// LogMetadataEnrich records a metadata enrichment event.
func (s *Service) LogMetadataEnrich(description string, bookID uint, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventMetadataEnrich,
		Action:      "book_enrich",
		Description: truncate(description, 500),
		EntityType:  "book",
		EntityID:    &bookID,
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events. An empty eventType matches
// every type.
func (s *Service) GetEvents(userID uint, eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(userID, eventType, limit, offset)
}

// Cleanup removes events and archived payloads older than retention.
func (s *Service) Cleanup(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)

	deleted, err := s.repo.DeleteOldEvents(cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit events: %w", err)
	}

	if s.archive != nil {
		files, err := s.archive.Purge(cutoff)
		if err != nil {
			return deleted, err
		}
		if files > 0 {
			logging.Info().Int("files", files).Msg("Purged archived import payloads")
		}
	}
	return deleted, nil
}

func marshalMetadata(metadata map[string]any) string {
	data, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return string(data)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
