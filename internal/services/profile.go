package services

import (
	"errors"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/readnext/internal/entities"
	"github.com/mrlokans/readnext/internal/validation"
)

// TasteProfileRequest replaces a user's taste profile.
type TasteProfileRequest struct {
	Genres []entities.GenreWeight `json:"genres" validate:"max=12,dive"`
	Tropes []string               `json:"tropes" validate:"max=12,unique,dive,trope"`
}

// TasteProfileView is a stored or default taste profile.
type TasteProfileView struct {
	Genres    []entities.GenreWeight `json:"genres"`
	Tropes    []string               `json:"tropes"`
	IsDefault bool                   `json:"isDefault"`
}

// CatalogOptions lists the values a taste profile may use.
type CatalogOptions struct {
	Genres []string `json:"genres"`
	Tropes []string `json:"tropes"`
}

// ReadingGoalView reports progress toward a yearly goal.
type ReadingGoalView struct {
	Target     int  `json:"target"`
	Current    int  `json:"current"`
	Year       int  `json:"year"`
	Percentage int  `json:"percentage"`
	IsDefault  bool `json:"isDefault"`
}

type ReadingGoalRequest struct {
	Target int `json:"target" validate:"min=1,max=1000"`
}

// ProfileService manages taste profiles and reading goals.
type ProfileService struct {
	profiles ProfileStore
	reads    ReadCounter
}

func NewProfileService(profiles ProfileStore, reads ReadCounter) *ProfileService {
	return &ProfileService{profiles: profiles, reads: reads}
}

// Options returns the genre and trope catalogs.
func (s *ProfileService) Options() CatalogOptions {
	return CatalogOptions{
		Genres: append([]string(nil), entities.AvailableGenres...),
		Tropes: append([]string(nil), entities.AvailableTropes...),
	}
}

// GetTasteProfile returns the saved profile, or the default one when the
// user has none or is anonymous.
func (s *ProfileService) GetTasteProfile(userID uint) (*TasteProfileView, error) {
	if userID != 0 {
		profile, err := s.profiles.GetTasteProfile(userID)
		switch {
		case err == nil:
			return &TasteProfileView{
				Genres: nonNilGenres(profile.Genres),
				Tropes: nonNil(profile.Tropes),
			}, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, internal("Failed to load taste profile", err)
		}
	}

	def := entities.DefaultTasteProfile()
	return &TasteProfileView{Genres: def.Genres, Tropes: def.Tropes, IsDefault: true}, nil
}

// SaveTasteProfile validates and stores a profile. Genre names must be unique
// and drawn from the catalog, weights must be 0..100.
func (s *ProfileService) SaveTasteProfile(userID uint, req TasteProfileRequest) (*TasteProfileView, error) {
	if userID == 0 {
		return nil, unauthenticated("You must be logged in to save your taste profile")
	}
	if err := validation.Validate(req); err != nil {
		return nil, invalid(err)
	}
	if dup := duplicateGenre(req.Genres); dup != "" {
		return nil, invalid(&validation.Error{Fields: map[string]string{"genres": "must not repeat " + dup}})
	}

	profile, err := s.profiles.SaveTasteProfile(userID, nonNilGenres(req.Genres), nonNil(req.Tropes))
	if err != nil {
		return nil, internal("Failed to save taste profile", err)
	}
	return &TasteProfileView{Genres: profile.Genres, Tropes: profile.Tropes}, nil
}

// GetReadingGoal reports how many books the user finished in year against
// their target. The default target applies until one is saved.
func (s *ProfileService) GetReadingGoal(userID uint, year int) (*ReadingGoalView, error) {
	view := &ReadingGoalView{Target: entities.DefaultGoalTarget, Year: year, IsDefault: true}
	if userID == 0 {
		return view, nil
	}

	goal, err := s.profiles.GetReadingGoal(userID, year)
	switch {
	case err == nil:
		view.Target = goal.Target
		view.IsDefault = false
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, internal("Failed to load reading goal", err)
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	current, err := s.reads.CountReadBetween(userID, from, from.AddDate(1, 0, 0))
	if err != nil {
		return nil, internal("Failed to count finished books", err)
	}
	view.Current = int(current)
	view.Percentage = goalPercentage(view.Current, view.Target)
	return view, nil
}

// SetReadingGoal stores the target for year and returns the updated progress.
func (s *ProfileService) SetReadingGoal(userID uint, year int, req ReadingGoalRequest) (*ReadingGoalView, error) {
	if userID == 0 {
		return nil, unauthenticated("You must be logged in to set a reading goal")
	}
	if err := validation.Validate(req); err != nil {
		return nil, invalid(err)
	}
	if err := ValidateGoalYear(year); err != nil {
		return nil, err
	}

	if _, err := s.profiles.SaveReadingGoal(userID, year, req.Target); err != nil {
		return nil, internal("Failed to save reading goal", err)
	}
	return s.GetReadingGoal(userID, year)
}

// ValidateGoalYear rejects years outside 1900..2100.
func ValidateGoalYear(year int) error {
	if year < 1900 || year > 2100 {
		return invalid(&validation.Error{Fields: map[string]string{"year": "must be between 1900 and 2100"}})
	}
	return nil
}

func goalPercentage(current, target int) int {
	if target <= 0 {
		return 0
	}
	pct := int(math.Round(float64(current) / float64(target) * 100))
	return min(pct, 100)
}

func duplicateGenre(genres []entities.GenreWeight) string {
	seen := make(map[string]bool, len(genres))
	for _, g := range genres {
		if seen[g.Name] {
			return g.Name
		}
		seen[g.Name] = true
	}
	return ""
}

func nonNilGenres(genres []entities.GenreWeight) []entities.GenreWeight {
	if genres == nil {
		return []entities.GenreWeight{}
	}
	return genres
}
