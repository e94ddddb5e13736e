package recommendations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrlokans/readnext/internal/entities"
)

func TestBuildPrompt(t *testing.T) {
	profile := entities.DefaultTasteProfile()

	prompt := BuildPrompt(profile, []string{"Dune", "Emma"})

	assert.Contains(t, prompt,
		"**Genre Preferences:**\nRomance (90% preference), Mystery (80% preference), Sci-Fi (65% preference), Fantasy (40% preference), Non-Fiction (20% preference)\n")
	assert.Contains(t, prompt, "**Favorite Tropes:**\nEnemies to Lovers, Found Family, Slow Burn, Whodunit\n")
	assert.Contains(t, prompt, "\n\nDo NOT recommend these books (user has already read or seen them): Dune, Emma")
	assert.Contains(t, prompt, "1. Provide 8 personalized book recommendations")
	assert.Contains(t, prompt, "2. Provide 4 currently trending books")
	assert.True(t, strings.HasSuffix(prompt, "these specific taste preferences."))

	// Sorting must not reorder the caller's profile.
	assert.Equal(t, "Mystery", profile.Genres[0].Name)
}

func TestBuildPrompt_NoTropesNoExclusions(t *testing.T) {
	profile := entities.TasteProfile{Genres: []entities.GenreWeight{{Name: "Horror", Percentage: 55}}}

	prompt := BuildPrompt(profile, nil)

	assert.Contains(t, prompt, "**Favorite Tropes:**\nNo specific trope preferences\n")
	assert.NotContains(t, prompt, "Do NOT recommend")
}

func TestBuildSimilarPrompt(t *testing.T) {
	tests := []struct {
		name    string
		profile entities.TasteProfile
		genres  string
		tropes  string
	}{
		{
			name:    "top three genres",
			profile: entities.DefaultTasteProfile(),
			genres:  "Romance, Mystery, Sci-Fi",
			tropes:  "Enemies to Lovers, Found Family, Slow Burn, Whodunit",
		},
		{
			name:    "no tropes",
			profile: entities.TasteProfile{Genres: []entities.GenreWeight{{Name: "Horror", Percentage: 10}}},
			genres:  "Horror",
			tropes:  "various",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt := BuildSimilarPrompt("Rebecca", "Daphne du Maurier", tt.profile)

			assert.True(t, strings.HasPrefix(prompt,
				`Based on the book "Rebecca" by Daphne du Maurier, recommend 6 similar books that a fan would enjoy.`))
			assert.Contains(t, prompt, "The user also has these genre preferences: "+tt.genres+"\n")
			assert.Contains(t, prompt, "And enjoys these tropes: "+tt.tropes+"\n")
		})
	}
}

func TestMergeExclusions(t *testing.T) {
	got := mergeExclusions([]string{"Dune", " ", "Emma"}, []string{"DUNE", " Rebecca "}, nil)
	assert.Equal(t, []string{"Dune", "Emma", "Rebecca"}, got)

	assert.Empty(t, mergeExclusions(nil, nil))
}
