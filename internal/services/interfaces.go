package services

import (
	"context"
	"time"

	"github.com/mrlokans/readnext/internal/entities"
)

// BookStore resolves, creates and fills in catalog records.
type BookStore interface {
	FindByTitleAndAuthor(title, author string) (*entities.Book, error)
	CreateBook(book *entities.Book) error
	UpdateBookDetails(id uint, coverImage, description string, genres, tropes []string) error
}

// LibraryStore reads and writes a user's library entries.
type LibraryStore interface {
	FindEntry(userID, bookID uint) (*entities.LibraryEntry, error)
	CreateEntry(entry *entities.LibraryEntry) error
	UpdateEntry(id uint, status entities.ReadingStatus, rating *int) error
	ListEntries(userID uint) ([]entities.LibraryEntry, error)
}

// ProfileStore persists taste profiles and reading goals.
type ProfileStore interface {
	GetTasteProfile(userID uint) (*entities.TasteProfile, error)
	SaveTasteProfile(userID uint, genres []entities.GenreWeight, tropes []string) (*entities.TasteProfile, error)
	GetReadingGoal(userID uint, year int) (*entities.ReadingGoal, error)
	SaveReadingGoal(userID uint, year, target int) (*entities.ReadingGoal, error)
}

// ReadCounter counts finished books in a time range.
type ReadCounter interface {
	CountReadBetween(userID uint, from, to time.Time) (int64, error)
}

// EnrichmentQueue schedules metadata lookups for newly created books.
type EnrichmentQueue interface {
	EnqueueEnrichment(ctx context.Context, bookID uint) error
}
