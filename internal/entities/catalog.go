package entities

import "slices"

// AvailableGenres are the genres a taste profile may weight.
var AvailableGenres = []string{
	"Mystery",
	"Sci-Fi",
	"Romance",
	"Fantasy",
	"Non-Fiction",
	"Thriller",
	"Historical Fiction",
	"Horror",
	"Literary Fiction",
	"Young Adult",
	"Biography",
	"Self-Help",
}

// AvailableTropes are the tropes a taste profile may favor.
var AvailableTropes = []string{
	"Enemies to Lovers",
	"Found Family",
	"Slow Burn",
	"Whodunit",
	"Second Chance",
	"Forbidden Love",
	"Chosen One",
	"Unreliable Narrator",
	"Dual Timeline",
	"Grumpy/Sunshine",
	"Forced Proximity",
	"Secret Identity",
}

// DefaultGoalTarget is the yearly target shown before a user sets one.
const DefaultGoalTarget = 24

func IsKnownGenre(name string) bool {
	return slices.Contains(AvailableGenres, name)
}

func IsKnownTrope(name string) bool {
	return slices.Contains(AvailableTropes, name)
}

// DefaultTasteProfile is served to users who never saved a profile.
func DefaultTasteProfile() TasteProfile {
	return TasteProfile{
		Genres: []GenreWeight{
			{Name: "Mystery", Percentage: 80},
			{Name: "Sci-Fi", Percentage: 65},
			{Name: "Romance", Percentage: 90},
			{Name: "Fantasy", Percentage: 40},
			{Name: "Non-Fiction", Percentage: 20},
		},
		Tropes: []string{"Enemies to Lovers", "Found Family", "Slow Burn", "Whodunit"},
	}
}
