package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/readnext/internal/logging"
	"github.com/mrlokans/readnext/internal/metadata"
)

// BookEnricher fills in one book's missing metadata.
type BookEnricher interface {
	EnrichBook(ctx context.Context, bookID uint) (*metadata.EnrichmentResult, error)
}

// EnrichmentAuditor records the outcome of a single-book enrichment.
type EnrichmentAuditor interface {
	LogMetadataEnrich(description string, bookID uint, err error)
}

// AuditedEnricher wraps a BookEnricher and records every attempt that
// changed the book or failed.
type AuditedEnricher struct {
	BookEnricher
	Audit EnrichmentAuditor
}

func (a AuditedEnricher) EnrichBook(ctx context.Context, bookID uint) (*metadata.EnrichmentResult, error) {
	result, err := a.BookEnricher.EnrichBook(ctx, bookID)
	if a.Audit == nil {
		return result, err
	}
	switch {
	case err != nil:
		a.Audit.LogMetadataEnrich(fmt.Sprintf("Enrichment of book %d failed", bookID), bookID, err)
	case len(result.FieldsUpdated) > 0:
		a.Audit.LogMetadataEnrich(fmt.Sprintf("Updated %s from %s: %s",
			result.Book.Title, result.Source, strings.Join(result.FieldsUpdated, ", ")), bookID, nil)
	}
	return result, err
}

// EnrichBookTask enriches a single book's metadata from OpenLibrary.
// It is enqueued whenever an import or add creates a new catalog book.
type EnrichBookTask struct {
	BookID uint `json:"book_id"`
}

// Config returns the queue configuration for book enrichment tasks.
func (t EnrichBookTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        NameEnrichBook,
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// EnrichBookProcessor creates a processor function for EnrichBookTask.
func EnrichBookProcessor(enricher BookEnricher) backlite.QueueProcessor[EnrichBookTask] {
	return func(ctx context.Context, task EnrichBookTask) error {
		if enricher == nil {
			return fmt.Errorf("enricher not configured")
		}

		result, err := enricher.EnrichBook(ctx, task.BookID)
		if err != nil {
			return fmt.Errorf("enrich book %d: %w", task.BookID, err)
		}

		if len(result.FieldsUpdated) > 0 {
			logging.Info().
				Uint("book_id", task.BookID).
				Str("title", result.Book.Title).
				Strs("fields", result.FieldsUpdated).
				Str("via", result.SearchMethod).
				Msg("Enriched book")
		} else {
			logging.Debug().
				Uint("book_id", task.BookID).
				Str("title", result.Book.Title).
				Msg("No metadata updates needed")
		}

		return nil
	}
}

// NewEnrichBookQueue creates a backlite queue for book enrichment tasks.
func NewEnrichBookQueue(enricher BookEnricher) backlite.Queue {
	return backlite.NewQueue(EnrichBookProcessor(enricher))
}
