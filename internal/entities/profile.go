package entities

import (
	"sort"
	"time"
)

// GenreWeight is one genre preference with a 0-100 weight.
type GenreWeight struct {
	Name       string `json:"name" validate:"required,genre"`
	Percentage int    `json:"percentage" validate:"min=0,max=100"`
}

// TasteProfile holds a user's genre weights and favored tropes.
// Genre order is preserved as the user arranged it.
type TasteProfile struct {
	ID        uint          `gorm:"primaryKey" json:"-"`
	UserID    uint          `gorm:"uniqueIndex" json:"-"`
	Genres    []GenreWeight `gorm:"serializer:json;type:text" json:"genres"`
	Tropes    []string      `gorm:"serializer:json;type:text" json:"tropes"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (TasteProfile) TableName() string {
	return "taste_profiles"
}

// SortedGenres returns the genres ordered by weight, highest first.
// Ties keep their original order.
func (p *TasteProfile) SortedGenres() []GenreWeight {
	out := make([]GenreWeight, len(p.Genres))
	copy(out, p.Genres)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Percentage > out[j].Percentage
	})
	return out
}

// ReadingGoal is a yearly target for finished books.
type ReadingGoal struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    uint      `gorm:"uniqueIndex:idx_reading_goals_user_year" json:"-"`
	Year      int       `gorm:"uniqueIndex:idx_reading_goals_user_year" json:"year"`
	Target    int       `json:"target"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ReadingGoal) TableName() string {
	return "reading_goals"
}
