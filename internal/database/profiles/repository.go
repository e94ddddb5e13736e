// Package profiles stores taste profiles and reading goals.
package profiles

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/readnext/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetTasteProfile returns gorm.ErrRecordNotFound if the user never saved one.
func (r *Repository) GetTasteProfile(userID uint) (*entities.TasteProfile, error) {
	var profile entities.TasteProfile
	if err := r.db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// SaveTasteProfile replaces the user's genres and tropes.
func (r *Repository) SaveTasteProfile(userID uint, genres []entities.GenreWeight, tropes []string) (*entities.TasteProfile, error) {
	profile, err := r.GetTasteProfile(userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if profile == nil {
		profile = &entities.TasteProfile{UserID: userID}
	}

	profile.Genres = genres
	profile.Tropes = tropes
	if err := r.db.Save(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// GetReadingGoal returns gorm.ErrRecordNotFound if no goal is set for the year.
func (r *Repository) GetReadingGoal(userID uint, year int) (*entities.ReadingGoal, error) {
	var goal entities.ReadingGoal
	if err := r.db.Where("user_id = ? AND year = ?", userID, year).First(&goal).Error; err != nil {
		return nil, err
	}
	return &goal, nil
}

func (r *Repository) SaveReadingGoal(userID uint, year, target int) (*entities.ReadingGoal, error) {
	goal, err := r.GetReadingGoal(userID, year)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if goal == nil {
		goal = &entities.ReadingGoal{UserID: userID, Year: year}
	}

	goal.Target = target
	if err := r.db.Save(goal).Error; err != nil {
		return nil, err
	}
	return goal, nil
}
