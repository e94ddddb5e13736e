package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/readnext/internal/audit"
	"github.com/mrlokans/readnext/internal/entities"
	"github.com/mrlokans/readnext/internal/importers"
	"github.com/mrlokans/readnext/internal/recognition"
	"github.com/mrlokans/readnext/internal/recommendations"
	"github.com/mrlokans/readnext/internal/search"
	"github.com/mrlokans/readnext/internal/services"
)

// This file collects the interfaces HTTP controllers depend on. Each
// controller takes only what it uses so tests can pass small fakes.

// LibraryManager adds books to a library and lists it.
type LibraryManager interface {
	AddBook(ctx context.Context, userID uint, req services.AddBookRequest) (*services.AddBookResult, error)
	GetLibrary(userID uint) (*services.LibraryData, error)
}

// GoodreadsImporter writes parsed Goodreads rows into a library.
type GoodreadsImporter interface {
	Import(ctx context.Context, userID uint, books []importers.GoodreadsBook) importers.ImportResult
}

// ProfileManager reads and writes taste profiles and reading goals.
type ProfileManager interface {
	Options() services.CatalogOptions
	GetTasteProfile(userID uint) (*services.TasteProfileView, error)
	SaveTasteProfile(userID uint, req services.TasteProfileRequest) (*services.TasteProfileView, error)
	GetReadingGoal(userID uint, year int) (*services.ReadingGoalView, error)
	SetReadingGoal(userID uint, year int, req services.ReadingGoalRequest) (*services.ReadingGoalView, error)
}

// Recommender produces model-generated suggestions.
type Recommender interface {
	GetRecommendations(ctx context.Context, userID uint, req recommendations.Request) (*recommendations.Result, error)
	GetSimilarBooks(ctx context.Context, userID uint, req recommendations.SimilarRequest) (*recommendations.Result, error)
	Home(ctx context.Context, userID uint) (*recommendations.HomeFeed, error)
	InvalidateHome(userID uint)
}

// BookSearcher looks books up in an external catalog.
type BookSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]search.GoogleBook, error)
}

// RecognitionFlows drives photo recognition.
type RecognitionFlows interface {
	Limits() recognition.Limits
	Identify(ctx context.Context, contentType string, data []byte) (*recognition.Recognition, error)
	CreateFlow(userID uint) recognition.FlowView
	Flow(id string, userID uint) (recognition.FlowView, error)
	Upload(ctx context.Context, id string, userID uint, contentType string, data []byte) (recognition.FlowView, error)
	Retry(ctx context.Context, id string, userID uint) (recognition.FlowView, error)
	Accept(ctx context.Context, id string, userID uint, req recognition.AcceptRequest) (*services.AddBookResult, recognition.FlowView, error)
	Discard(id string, userID uint) (recognition.FlowView, error)
}

// BookGetter provides read access to catalog books.
type BookGetter interface {
	GetBookByID(id uint) (*entities.Book, error)
}

// CoverCache returns a local path for a book's cover image.
type CoverCache interface {
	GetCover(ctx context.Context, bookID uint, coverURL string) (string, error)
}

// TaskQueue enqueues background tasks and reports their status.
type TaskQueue interface {
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
}

// SyncStatusReader reports the progress of the bulk metadata enrichment.
type SyncStatusReader interface {
	GetProgress() (*entities.SyncProgress, error)
}

// AuditLog records user-visible activity.
type AuditLog interface {
	LogImport(userID uint, summary audit.ImportSummary, err error)
	LogLibraryAdd(userID, bookID uint, title string, status entities.ReadingStatus, err error)
	LogRecognition(userID uint, title, confidence string, err error)
	LogRecommendation(userID uint, action string, count int, err error)
	LogProfile(userID uint, action, description string)
	ArchiveCSV(content []byte) string
	ArchiveReport(report any) string
	GetEvents(userID uint, eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error)
}

// noopAudit is used when no audit log is configured.
type noopAudit struct{}

func (noopAudit) LogImport(uint, audit.ImportSummary, error) {}
func (noopAudit) LogLibraryAdd(uint, uint, string, entities.ReadingStatus, error) {}
func (noopAudit) LogRecognition(uint, string, string, error) {}
func (noopAudit) LogRecommendation(uint, string, int, error) {}
func (noopAudit) LogProfile(uint, string, string) {}
func (noopAudit) ArchiveCSV([]byte) string { return "" }
func (noopAudit) ArchiveReport(any) string { return "" }
func (noopAudit) GetEvents(uint, entities.AuditEventType, int, int) ([]entities.AuditEvent, int64, error) {
	return []entities.AuditEvent{}, 0, nil
}

func auditOrNoop(log AuditLog) AuditLog {
	if log == nil {
		return noopAudit{}
	}
	return log
}
