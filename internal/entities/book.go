package entities

import (
	"strings"
	"time"
)

// Book is a catalog record shared by every user who adds it.
// Identity is the (title, author) pair; lookups go through the composite index.
type Book struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"index:idx_books_title_author;size:512;not null" json:"title"`
	Author          string    `gorm:"index:idx_books_title_author;size:256;not null" json:"author"`
	CoverImage      string    `gorm:"size:2048" json:"cover_image,omitempty"`
	Description     string    `gorm:"type:text" json:"description,omitempty"`
	Genres          []string  `gorm:"serializer:json;type:text" json:"genres"`
	Tropes          []string  `gorm:"serializer:json;type:text" json:"tropes"`
	ISBN            string    `gorm:"size:20" json:"isbn,omitempty"`
	PublicationYear int       `json:"publication_year,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

// MissingMetadata reports whether enrichment could still fill something in.
func (b *Book) MissingMetadata() bool {
	return b.CoverImage == "" || strings.TrimSpace(b.Description) == "" || len(b.Genres) == 0
}
