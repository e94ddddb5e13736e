package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/readnext/internal/logging"
	"github.com/mrlokans/readnext/internal/metadata"
)

// BulkEnricher enriches every book still missing metadata.
type BulkEnricher interface {
	EnrichAllMissing(ctx context.Context) (*metadata.BulkEnrichmentResult, error)
}

// EnrichAllBooksTask triggers enrichment for all catalog books missing a
// cover, description or genres. Books are processed sequentially so
// progress can be reported.
type EnrichAllBooksTask struct{}

// Config returns the queue configuration for bulk enrichment tasks.
func (t EnrichAllBooksTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        NameEnrichAllBooks,
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     60 * time.Minute, // Allow time to process all books
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// EnrichAllBooksProcessor creates a processor function for EnrichAllBooksTask.
func EnrichAllBooksProcessor(enricher BulkEnricher) backlite.QueueProcessor[EnrichAllBooksTask] {
	return func(ctx context.Context, task EnrichAllBooksTask) error {
		if enricher == nil {
			return fmt.Errorf("enricher not configured")
		}

		result, err := enricher.EnrichAllMissing(ctx)
		if err != nil {
			return fmt.Errorf("enrich all books: %w", err)
		}

		logging.Info().
			Int("total", result.TotalBooks).
			Int("enriched", result.Enriched).
			Int("skipped", result.Skipped).
			Int("failed", result.Failed).
			Msg("Enrichment complete")

		return nil
	}
}

// NewEnrichAllBooksQueue creates a backlite queue for bulk enrichment tasks.
func NewEnrichAllBooksQueue(enricher BulkEnricher) backlite.Queue {
	return backlite.NewQueue(EnrichAllBooksProcessor(enricher))
}
