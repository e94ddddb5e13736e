package entities

import (
	"fmt"
	"strings"
	"time"
)

type ReadingStatus string

const (
	StatusWantToRead ReadingStatus = "want_to_read"
	StatusReading    ReadingStatus = "reading"
	StatusRead       ReadingStatus = "read"
)

// Valid reports whether s is one of the known reading statuses.
func (s ReadingStatus) Valid() bool {
	switch s {
	case StatusWantToRead, StatusReading, StatusRead:
		return true
	}
	return false
}

// ParseReadingStatus accepts the canonical status names, case-insensitively.
func ParseReadingStatus(s string) (ReadingStatus, error) {
	status := ReadingStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown reading status %q", s)
	}
	return status, nil
}

const (
	MinRating = 1
	MaxRating = 5
)

// LibraryEntry is a user's membership record for a Book.
// At most one entry exists per (user, book); re-adding overwrites status and rating.
type LibraryEntry struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	UserID    uint          `gorm:"index:idx_user_library_user_book;not null" json:"user_id"`
	BookID    uint          `gorm:"index:idx_user_library_user_book;not null" json:"book_id"`
	Book      Book          `gorm:"foreignKey:BookID" json:"book"`
	Status    ReadingStatus `gorm:"size:20;index;not null" json:"status"`
	Rating    *int          `json:"rating"`
	CreatedAt time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (LibraryEntry) TableName() string {
	return "user_library"
}

// LibraryCounts summarizes a user's library by status.
type LibraryCounts struct {
	Total      int `json:"total"`
	Reading    int `json:"reading"`
	WantToRead int `json:"wantToRead"`
	Read       int `json:"read"`
}
