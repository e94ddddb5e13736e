package importers

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/readnext/internal/entities"
	"github.com/mrlokans/readnext/internal/logging"
)

// BookStore resolves and creates catalog records.
type BookStore interface {
	FindByTitleAndAuthor(title, author string) (*entities.Book, error)
	CreateBook(book *entities.Book) error
}

// LibraryStore reads and writes a user's library entries.
type LibraryStore interface {
	FindEntry(userID, bookID uint) (*entities.LibraryEntry, error)
	CreateEntry(entry *entities.LibraryEntry) error
	UpdateEntry(id uint, status entities.ReadingStatus, rating *int) error
}

// EnrichmentQueue schedules metadata lookups for newly created books.
type EnrichmentQueue interface {
	EnqueueEnrichment(ctx context.Context, bookID uint) error
}

// ImportResult reports the outcome of an import. Imported counts new library
// entries, Updated counts entries whose status and rating were overwritten.
type ImportResult struct {
	Imported int      `json:"imported"`
	Updated  int      `json:"updated"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
}

// Total is the number of rows the import attempted.
func (r ImportResult) Total() int {
	return r.Imported + r.Updated + r.Failed
}

// Pipeline writes parsed Goodreads rows into the catalog and a user's library:
// resolve book → create if missing → create or update library entry.
//
// Rows are processed one at a time; a failing row is recorded in the result
// and never aborts the rest.
type Pipeline struct {
	books   BookStore
	library LibraryStore
	queue   EnrichmentQueue
}

// NewPipeline creates a new import pipeline.
func NewPipeline(books BookStore, library LibraryStore) *Pipeline {
	return &Pipeline{books: books, library: library}
}

// WithEnrichment makes the pipeline enqueue metadata enrichment for every book
// it creates.
func (p *Pipeline) WithEnrichment(queue EnrichmentQueue) *Pipeline {
	p.queue = queue
	return p
}

// Import upserts books into the library of userID. A zero userID means no
// authenticated user and fails every row.
func (p *Pipeline) Import(ctx context.Context, userID uint, books []GoodreadsBook) ImportResult {
	result := ImportResult{Errors: []string{}}

	if userID == 0 {
		result.Failed = len(books)
		result.Errors = append(result.Errors, "You must be logged in to import books")
		return result
	}

	for _, gb := range books {
		outcome, msg := p.importOne(ctx, userID, gb)
		switch outcome {
		case outcomeImported:
			result.Imported++
		case outcomeUpdated:
			result.Updated++
		default:
			result.Failed++
			result.Errors = append(result.Errors, msg)
		}
	}

	logging.Info().
		Uint("user_id", userID).
		Int("imported", result.Imported).
		Int("updated", result.Updated).
		Int("failed", result.Failed).
		Msg("Goodreads import finished")

	return result
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeImported
	outcomeUpdated
)

func (p *Pipeline) importOne(ctx context.Context, userID uint, gb GoodreadsBook) (res outcome, msg string) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("panic", r).Str("title", gb.Title).Msg("Import row panicked")
			res, msg = outcomeFailed, fmt.Sprintf("Unexpected error processing \"%s\"", gb.Title)
		}
	}()

	book, err := p.books.FindByTitleAndAuthor(gb.Title, gb.Author)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		book = &entities.Book{Title: gb.Title, Author: gb.Author}
		if err := p.books.CreateBook(book); err != nil {
			return outcomeFailed, fmt.Sprintf("Failed to add book \"%s\": %s", gb.Title, err)
		}
		p.scheduleEnrichment(ctx, book)
	case err != nil:
		logging.Error().Err(err).Str("title", gb.Title).Msg("Book lookup failed")
		return outcomeFailed, fmt.Sprintf("Unexpected error processing \"%s\"", gb.Title)
	}

	entry, err := p.library.FindEntry(userID, book.ID)
	switch {
	case err == nil:
		if err := p.library.UpdateEntry(entry.ID, gb.Status, gb.Rating); err != nil {
			return outcomeFailed, fmt.Sprintf("Failed to update \"%s\": %s", gb.Title, err)
		}
		return outcomeUpdated, ""
	case errors.Is(err, gorm.ErrRecordNotFound):
		entry = &entities.LibraryEntry{
			UserID: userID,
			BookID: book.ID,
			Status: gb.Status,
			Rating: gb.Rating,
		}
		if err := p.library.CreateEntry(entry); err != nil {
			return outcomeFailed, fmt.Sprintf("Failed to add \"%s\" to library: %s", gb.Title, err)
		}
		return outcomeImported, ""
	default:
		logging.Error().Err(err).Str("title", gb.Title).Msg("Library lookup failed")
		return outcomeFailed, fmt.Sprintf("Unexpected error processing \"%s\"", gb.Title)
	}
}

func (p *Pipeline) scheduleEnrichment(ctx context.Context, book *entities.Book) {
	if p.queue == nil {
		return
	}
	if err := p.queue.EnqueueEnrichment(ctx, book.ID); err != nil {
		logging.Warn().Err(err).Uint("book_id", book.ID).Msg("Failed to enqueue enrichment")
	}
}
