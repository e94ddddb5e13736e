// Package library provides database operations for per-user library entries
// stored in the user_library table.
//
//	repo := library.NewRepository(db)
//	entry, err := repo.FindEntry(userID, bookID)
//	if errors.Is(err, gorm.ErrRecordNotFound) {
//	    err = repo.CreateEntry(&entities.LibraryEntry{...})
//	}
package library

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/readnext/internal/entities"
)

// Repository handles all library entry operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new library repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindEntry retrieves the entry linking a user to a book.
func (r *Repository) FindEntry(userID, bookID uint) (*entities.LibraryEntry, error) {
	var entry entities.LibraryEntry
	err := r.db.Where("user_id = ? AND book_id = ?", userID, bookID).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// CreateEntry inserts a new library entry without touching the referenced book.
func (r *Repository) CreateEntry(entry *entities.LibraryEntry) error {
	return r.db.Omit(clause.Associations).Create(entry).Error
}

// UpdateEntry overwrites status and rating of an existing entry.
// A nil rating clears the stored one.
func (r *Repository) UpdateEntry(id uint, status entities.ReadingStatus, rating *int) error {
	return r.db.Model(&entities.LibraryEntry{ID: id}).Updates(map[string]any{
		"status":     status,
		"rating":     rating,
		"updated_at": time.Now(),
	}).Error
}

// ListEntries returns a user's entries with their books, most recently added first.
func (r *Repository) ListEntries(userID uint) ([]entities.LibraryEntry, error) {
	var entries []entities.LibraryEntry
	err := r.db.Preload("Book").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&entries).Error
	return entries, err
}

// ReadTitles returns up to limit titles the user has finished, most recent first.
func (r *Repository) ReadTitles(userID uint, limit int) ([]string, error) {
	var titles []string
	query := r.db.Model(&entities.LibraryEntry{}).
		Joins("JOIN books ON books.id = user_library.book_id").
		Where("user_library.user_id = ? AND user_library.status = ?", userID, entities.StatusRead).
		Order("user_library.created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Pluck("books.title", &titles).Error
	return titles, err
}

// CountReadBetween counts entries marked read whose last update falls in [from, to).
func (r *Repository) CountReadBetween(userID uint, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&entities.LibraryEntry{}).
		Where("user_id = ? AND status = ? AND updated_at >= ? AND updated_at < ?", userID, entities.StatusRead, from, to).
		Count(&count).Error
	return count, err
}
