package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/readnext/internal/entities"
	"github.com/mrlokans/readnext/internal/logging"
	"github.com/mrlokans/readnext/internal/validation"
)

// AddBookRequest describes a book added manually, from search or from a
// recognized cover photo.
type AddBookRequest struct {
	Title       string                 `json:"title" validate:"required,max=512"`
	Author      string                 `json:"author" validate:"required,max=256"`
	CoverImage  string                 `json:"coverImage" validate:"omitempty,max=2048"`
	Description string                 `json:"description"`
	Genres      []string               `json:"genres" validate:"omitempty,dive,max=64"`
	Tropes      []string               `json:"tropes" validate:"omitempty,dive,max=64"`
	Status      entities.ReadingStatus `json:"status" validate:"required,status"`
	Rating      *int                   `json:"rating" validate:"omitempty,min=1,max=5"`
}

// AddBookResult identifies the book and whether a new library entry was made.
type AddBookResult struct {
	BookID      uint `json:"bookId"`
	BookCreated bool `json:"bookCreated"`
	Updated     bool `json:"updated"`
}

// LibraryBook is one library entry flattened with its book.
type LibraryBook struct {
	ID              uint                   `json:"id"`
	Title           string                 `json:"title"`
	Author          string                 `json:"author"`
	CoverImage      string                 `json:"coverImage"`
	Description     string                 `json:"description"`
	Genres          []string               `json:"genres"`
	Tropes          []string               `json:"tropes"`
	MatchPercentage int                    `json:"matchPercentage"`
	Status          entities.ReadingStatus `json:"status"`
	Rating          *int                   `json:"rating"`
	DateAdded       time.Time              `json:"dateAdded"`
}

// LibraryData is a user's whole library with per-status counts.
type LibraryData struct {
	Books      []LibraryBook          `json:"books"`
	HasLibrary bool                   `json:"hasLibrary"`
	Counts     entities.LibraryCounts `json:"counts"`
}

// LibraryService adds books to libraries and lists them.
type LibraryService struct {
	books   BookStore
	library LibraryStore
	queue   EnrichmentQueue
}

func NewLibraryService(books BookStore, library LibraryStore) *LibraryService {
	return &LibraryService{books: books, library: library}
}

// WithEnrichment enqueues metadata enrichment for every book the service creates.
func (s *LibraryService) WithEnrichment(queue EnrichmentQueue) *LibraryService {
	s.queue = queue
	return s
}

// AddBook resolves or creates the book by (title, author), then creates the
// user's entry or overwrites its status and rating.
func (s *LibraryService) AddBook(ctx context.Context, userID uint, req AddBookRequest) (*AddBookResult, error) {
	if userID == 0 {
		return nil, unauthenticated("You must be logged in to add books")
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)
	if err := validation.Validate(req); err != nil {
		return nil, invalid(err)
	}

	result := &AddBookResult{}

	book, err := s.books.FindByTitleAndAuthor(req.Title, req.Author)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		book = &entities.Book{
			Title:       req.Title,
			Author:      req.Author,
			CoverImage:  req.CoverImage,
			Description: req.Description,
			Genres:      req.Genres,
			Tropes:      req.Tropes,
		}
		if err := s.books.CreateBook(book); err != nil {
			return nil, internal("Failed to add book", err)
		}
		result.BookCreated = true
		s.scheduleEnrichment(ctx, book)
	case err != nil:
		return nil, internal("Failed to add book", err)
	default:
		s.fillMissingDetails(book, req)
	}
	result.BookID = book.ID

	entry, err := s.library.FindEntry(userID, book.ID)
	switch {
	case err == nil:
		if err := s.library.UpdateEntry(entry.ID, req.Status, req.Rating); err != nil {
			return nil, internal("Failed to update book", err)
		}
		result.Updated = true
	case errors.Is(err, gorm.ErrRecordNotFound):
		entry = &entities.LibraryEntry{
			UserID: userID,
			BookID: book.ID,
			Status: req.Status,
			Rating: req.Rating,
		}
		if err := s.library.CreateEntry(entry); err != nil {
			return nil, internal("Failed to add book to library", err)
		}
	default:
		return nil, internal("Failed to add book to library", err)
	}

	logging.Info().
		Uint("user_id", userID).
		Uint("book_id", book.ID).
		Str("status", string(req.Status)).
		Bool("updated", result.Updated).
		Msg("Book added to library")

	return result, nil
}

// fillMissingDetails copies request details onto an existing book only where
// the stored value is empty.
func (s *LibraryService) fillMissingDetails(book *entities.Book, req AddBookRequest) {
	var cover, description string
	var genres, tropes []string
	if book.CoverImage == "" {
		cover = req.CoverImage
	}
	if strings.TrimSpace(book.Description) == "" {
		description = req.Description
	}
	if len(book.Genres) == 0 {
		genres = req.Genres
	}
	if len(book.Tropes) == 0 {
		tropes = req.Tropes
	}

	if err := s.books.UpdateBookDetails(book.ID, cover, description, genres, tropes); err != nil {
		logging.Warn().Err(err).Uint("book_id", book.ID).Msg("Failed to fill in book details")
	}
}

func (s *LibraryService) scheduleEnrichment(ctx context.Context, book *entities.Book) {
	if s.queue == nil || !book.MissingMetadata() {
		return
	}
	if err := s.queue.EnqueueEnrichment(ctx, book.ID); err != nil {
		logging.Warn().Err(err).Uint("book_id", book.ID).Msg("Failed to enqueue enrichment")
	}
}

// GetLibrary lists a user's books, most recently added first. Without a user
// the library is empty.
func (s *LibraryService) GetLibrary(userID uint) (*LibraryData, error) {
	data := &LibraryData{Books: []LibraryBook{}}
	if userID == 0 {
		return data, nil
	}

	entries, err := s.library.ListEntries(userID)
	if err != nil {
		return nil, internal("Failed to fetch library", err)
	}

	for _, entry := range entries {
		if entry.Book.ID == 0 {
			continue
		}
		data.Books = append(data.Books, LibraryBook{
			ID:          entry.Book.ID,
			Title:       entry.Book.Title,
			Author:      entry.Book.Author,
			CoverImage:  entry.Book.CoverImage,
			Description: entry.Book.Description,
			Genres:      nonNil(entry.Book.Genres),
			Tropes:      nonNil(entry.Book.Tropes),
			Status:      entry.Status,
			Rating:      entry.Rating,
			DateAdded:   entry.CreatedAt,
		})

		switch entry.Status {
		case entities.StatusReading:
			data.Counts.Reading++
		case entities.StatusWantToRead:
			data.Counts.WantToRead++
		case entities.StatusRead:
			data.Counts.Read++
		}
	}

	data.Counts.Total = len(data.Books)
	data.HasLibrary = data.Counts.Total > 0
	return data, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
