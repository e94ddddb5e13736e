// Package books provides database operations for catalog records.
//
// A book is identified by its (title, author) pair. FindByTitleAndAuthor
// returns gorm.ErrRecordNotFound when no record exists, which callers use to
// decide between create and update.
//
//	repo := books.NewRepository(db)
//	book, err := repo.FindByTitleAndAuthor("Dune", "Frank Herbert")
package books

import (
	"encoding/json"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/readnext/internal/entities"
)

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetBookByID retrieves a book by its ID.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// FindByTitleAndAuthor retrieves a book by its exact title and author.
func (r *Repository) FindByTitleAndAuthor(title, author string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Where("title = ? AND author = ?", title, author).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// CreateBook inserts a new catalog record.
func (r *Repository) CreateBook(book *entities.Book) error {
	return r.db.Create(book).Error
}

// UpdateBookDetails overwrites descriptive fields supplied by a user.
// Empty values leave the stored field unchanged.
func (r *Repository) UpdateBookDetails(id uint, coverImage, description string, genres, tropes []string) error {
	updates := map[string]any{}
	if coverImage != "" {
		updates["cover_image"] = coverImage
	}
	if strings.TrimSpace(description) != "" {
		updates["description"] = description
	}
	if len(genres) > 0 {
		updates["genres"] = EncodeList(genres)
	}
	if len(tropes) > 0 {
		updates["tropes"] = EncodeList(tropes)
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&entities.Book{ID: id}).Updates(updates).Error
}

// EncodeList renders a string list the way the json serializer stores it.
// Map-based updates bypass field serializers, so list columns are written pre-encoded.
func EncodeList(values []string) string {
	if values == nil {
		values = []string{}
	}
	data, _ := json.Marshal(values)
	return string(data)
}

// UpdateBookMetadata applies enrichment updates keyed by column name.
func (r *Repository) UpdateBookMetadata(id uint, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&entities.Book{ID: id}).Updates(updates).Error
}

// GetBooksMissingMetadata returns books lacking a cover, a description or genres.
func (r *Repository) GetBooksMissingMetadata() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.
		Where("cover_image = '' OR cover_image IS NULL OR description = '' OR description IS NULL OR genres IS NULL OR genres = 'null' OR genres = '[]'").
		Order("id ASC").
		Find(&books).Error
	return books, err
}

// CountBooks returns the size of the catalog.
func (r *Repository) CountBooks() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Count(&count).Error
	return count, err
}
