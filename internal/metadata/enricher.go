package metadata

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mrlokans/readnext/internal/database/books"
	"github.com/mrlokans/readnext/internal/entities"
)

const maxEnrichedGenres = 3

// MetadataProvider defines the interface for fetching book metadata.
type MetadataProvider interface {
	SearchByISBN(ctx context.Context, isbn string) (*BookMetadata, error)
	SearchByTitle(ctx context.Context, title, author string) (*BookMetadata, error)
}

// BookUpdater defines the interface for updating books in the database.
type BookUpdater interface {
	GetBookByID(id uint) (*entities.Book, error)
	UpdateBookMetadata(id uint, updates map[string]any) error
	GetBooksMissingMetadata() ([]entities.Book, error)
}

// CoverInvalidator defines the interface for invalidating cached covers.
type CoverInvalidator interface {
	InvalidateCover(bookID uint) error
}

// ProgressReporter reports sync progress updates.
type ProgressReporter interface {
	StartSync(totalItems int) error
	UpdateProgress(processed, succeeded, failed, skipped int, currentItem string) error
	CompleteSync(succeeded bool, errorMsg string) error
	IsSyncRunning() (bool, error)
}

// BookUpdateFields contains the fields that can be updated via enrichment.
type BookUpdateFields struct {
	ISBN            *string
	CoverImage      *string
	Description     *string
	Genres          []string
	PublicationYear *int
}

// Columns converts the set fields into a column update map.
func (u BookUpdateFields) Columns() map[string]any {
	cols := map[string]any{}
	if u.ISBN != nil {
		cols["isbn"] = *u.ISBN
	}
	if u.CoverImage != nil {
		cols["cover_image"] = *u.CoverImage
	}
	if u.Description != nil {
		cols["description"] = *u.Description
	}
	if len(u.Genres) > 0 {
		cols["genres"] = books.EncodeList(u.Genres)
	}
	if u.PublicationYear != nil {
		cols["publication_year"] = *u.PublicationYear
	}
	return cols
}

// EnrichmentResult contains the result of an enrichment operation.
type EnrichmentResult struct {
	Book          *entities.Book `json:"book"`
	FieldsUpdated []string       `json:"fields_updated"`
	Source        string         `json:"source"`
	SearchMethod  string         `json:"search_method"` // "isbn" or "title"
}

// Enricher fills in missing catalog fields from an external provider.
// Fields that already hold a value are never overwritten.
type Enricher struct {
	provider         MetadataProvider
	db               BookUpdater
	coverInvalidator CoverInvalidator
	progressReporter ProgressReporter
}

// NewEnricher creates a new Enricher with the given metadata provider and database.
func NewEnricher(provider MetadataProvider, db BookUpdater) *Enricher {
	return &Enricher{
		provider: provider,
		db:       db,
	}
}

// SetCoverInvalidator sets the cover cache invalidator (optional).
func (e *Enricher) SetCoverInvalidator(invalidator CoverInvalidator) {
	e.coverInvalidator = invalidator
}

// SetProgressReporter sets the progress reporter for bulk operations (optional).
func (e *Enricher) SetProgressReporter(reporter ProgressReporter) {
	e.progressReporter = reporter
}

// EnrichBook fetches metadata for a book and updates it in the database.
// It tries ISBN first (if available), then falls back to title+author search.
func (e *Enricher) EnrichBook(ctx context.Context, bookID uint) (*EnrichmentResult, error) {
	book, err := e.db.GetBookByID(bookID)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}

	var metadata *BookMetadata
	var searchMethod string

	if book.ISBN != "" {
		metadata, err = e.provider.SearchByISBN(ctx, book.ISBN)
		if err == nil {
			searchMethod = "isbn"
		}
	}

	if metadata == nil {
		metadata, err = e.provider.SearchByTitle(ctx, book.Title, book.Author)
		if err != nil {
			return nil, fmt.Errorf("metadata search failed: %w", err)
		}
		searchMethod = "title"
	}

	updates, fieldsUpdated := buildUpdates(book, metadata)

	if len(fieldsUpdated) > 0 {
		if updates.CoverImage != nil && e.coverInvalidator != nil {
			_ = e.coverInvalidator.InvalidateCover(bookID)
		}

		if err := e.db.UpdateBookMetadata(bookID, updates.Columns()); err != nil {
			return nil, fmt.Errorf("update book metadata: %w", err)
		}

		book, err = e.db.GetBookByID(bookID)
		if err != nil {
			return nil, fmt.Errorf("refresh book: %w", err)
		}
	}

	return &EnrichmentResult{
		Book:          book,
		FieldsUpdated: fieldsUpdated,
		Source:        "openlibrary",
		SearchMethod:  searchMethod,
	}, nil
}

// BulkEnrichmentResult contains the summary of a bulk enrichment operation.
type BulkEnrichmentResult struct {
	TotalBooks int      `json:"total_books"`
	Enriched   int      `json:"enriched"`
	Failed     int      `json:"failed"`
	Skipped    int      `json:"skipped"`
	Errors     []string `json:"errors,omitempty"`
}

// ErrSyncInProgress is returned when a bulk enrichment is already running.
var ErrSyncInProgress = errors.New("metadata sync is already in progress")

// EnrichAllMissing enriches every book lacking a cover, a description or genres.
func (e *Enricher) EnrichAllMissing(ctx context.Context) (*BulkEnrichmentResult, error) {
	if e.progressReporter != nil {
		running, err := e.progressReporter.IsSyncRunning()
		if err != nil {
			return nil, fmt.Errorf("check sync status: %w", err)
		}
		if running {
			return nil, ErrSyncInProgress
		}
	}

	missing, err := e.db.GetBooksMissingMetadata()
	if err != nil {
		return nil, fmt.Errorf("get books missing metadata: %w", err)
	}

	result := &BulkEnrichmentResult{
		TotalBooks: len(missing),
	}

	if e.progressReporter != nil {
		if err := e.progressReporter.StartSync(len(missing)); err != nil {
			return nil, fmt.Errorf("start sync progress: %w", err)
		}
	}

	for i, book := range missing {
		select {
		case <-ctx.Done():
			result.Errors = append(result.Errors, "operation cancelled")
			if e.progressReporter != nil {
				_ = e.progressReporter.CompleteSync(false, "operation cancelled")
			}
			return result, ctx.Err()
		default:
		}

		if e.progressReporter != nil {
			_ = e.progressReporter.UpdateProgress(i, result.Enriched, result.Failed, result.Skipped, book.Title)
		}

		enrichResult, err := e.EnrichBook(ctx, book.ID)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", book.Title, err))
			continue
		}

		if len(enrichResult.FieldsUpdated) > 0 {
			result.Enriched++
		} else {
			result.Skipped++
		}
	}

	if e.progressReporter != nil {
		errorMsg := ""
		if len(result.Errors) > 0 {
			errorMsg = fmt.Sprintf("%d errors occurred", len(result.Errors))
		}
		_ = e.progressReporter.UpdateProgress(len(missing), result.Enriched, result.Failed, result.Skipped, "")
		_ = e.progressReporter.CompleteSync(result.Failed == 0, errorMsg)
	}

	return result, nil
}

// buildUpdates returns the fields the book lacks and the metadata supplies.
func buildUpdates(book *entities.Book, metadata *BookMetadata) (BookUpdateFields, []string) {
	var updates BookUpdateFields
	var fieldsUpdated []string

	if book.ISBN == "" && metadata.ISBN != "" {
		updates.ISBN = &metadata.ISBN
		fieldsUpdated = append(fieldsUpdated, "isbn")
	}

	if book.CoverImage == "" && metadata.CoverURL != "" {
		updates.CoverImage = &metadata.CoverURL
		fieldsUpdated = append(fieldsUpdated, "cover_image")
	}

	if strings.TrimSpace(book.Description) == "" && metadata.Description != "" {
		updates.Description = &metadata.Description
		fieldsUpdated = append(fieldsUpdated, "description")
	}

	if len(book.Genres) == 0 {
		if genres := GenresFromSubjects(metadata.Subjects, maxEnrichedGenres); len(genres) > 0 {
			updates.Genres = genres
			fieldsUpdated = append(fieldsUpdated, "genres")
		}
	}

	if book.PublicationYear == 0 && metadata.PublicationYear > 0 {
		updates.PublicationYear = &metadata.PublicationYear
		fieldsUpdated = append(fieldsUpdated, "publication_year")
	}

	slices.Sort(fieldsUpdated)
	return updates, fieldsUpdated
}
