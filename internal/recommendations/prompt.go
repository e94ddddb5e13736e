package recommendations

import (
	"fmt"
	"strings"

	"github.com/mrlokans/readnext/internal/entities"
)

const (
	systemPrompt        = "You are a book recommendation expert. Always respond with real, published books. Be accurate with book details."
	similarSystemPrompt = "You are a book recommendation expert. Always respond with real, published books."

	personalizedCount = 8
	trendingCount     = 4
	similarCount      = 6
	similarGenreCount = 3
)

// BuildPrompt renders the personalized recommendation prompt.
func BuildPrompt(profile entities.TasteProfile, exclusions []string) string {
	genres := profile.SortedGenres()
	prefs := make([]string, 0, len(genres))
	for _, g := range genres {
		prefs = append(prefs, fmt.Sprintf("%s (%d%% preference)", g.Name, g.Percentage))
	}

	tropes := "No specific trope preferences"
	if len(profile.Tropes) > 0 {
		tropes = strings.Join(profile.Tropes, ", ")
	}

	exclusionNote := ""
	if len(exclusions) > 0 {
		exclusionNote = "\n\nDo NOT recommend these books (user has already read or seen them): " + strings.Join(exclusions, ", ")
	}

	var b strings.Builder
	b.WriteString("You are a knowledgeable book recommendation expert with deep knowledge of both classic literature and current bestsellers, including books popular on BookTok and Bookstagram.\n\n")
	b.WriteString("Generate personalized book recommendations based on the following user preferences:\n\n")
	b.WriteString("**Genre Preferences:**\n")
	b.WriteString(strings.Join(prefs, ", "))
	b.WriteString("\n\n**Favorite Tropes:**\n")
	b.WriteString(tropes)
	b.WriteString("\n")
	b.WriteString(exclusionNote)
	b.WriteString("\n\n**Instructions:**\n")
	fmt.Fprintf(&b, "1. Provide %d personalized book recommendations that strongly align with the user's genre and trope preferences\n", personalizedCount)
	fmt.Fprintf(&b, "2. Provide %d currently trending books (popular on BookTok, bestseller lists, or book clubs in 2024-2025) that also match the user's tastes\n", trendingCount)
	b.WriteString("3. Calculate a realistic matchPercentage (0-100) based on how well each book aligns with the stated preferences\n")
	b.WriteString("4. Books with higher genre preference percentages should have higher match scores\n")
	b.WriteString("5. Include a brief, compelling matchReason explaining why the user would enjoy each book\n")
	b.WriteString("6. For trending books, set isTrending to true\n")
	b.WriteString("7. Ensure variety - don't recommend multiple books by the same author\n")
	b.WriteString("8. Include a mix of recent releases (2020+) and modern classics\n")
	b.WriteString("9. All books must be REAL, published books - do not invent fictional titles\n\n")
	b.WriteString("Focus on books that would genuinely appeal to someone with these specific taste preferences.")
	return b.String()
}

// BuildSimilarPrompt renders the prompt for books similar to a given title.
func BuildSimilarPrompt(title, author string, profile entities.TasteProfile) string {
	genres := profile.SortedGenres()
	if len(genres) > similarGenreCount {
		genres = genres[:similarGenreCount]
	}
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		names = append(names, g.Name)
	}

	tropes := strings.Join(profile.Tropes, ", ")
	if tropes == "" {
		tropes = "various"
	}

	return fmt.Sprintf(`Based on the book "%s" by %s, recommend %d similar books that a fan would enjoy.

The user also has these genre preferences: %s
And enjoys these tropes: %s

Find books with similar themes, writing style, or appeal. Calculate matchPercentage based on similarity to both the source book AND the user's stated preferences.

All books must be REAL, published books.`, title, author, similarCount, strings.Join(names, ", "), tropes)
}

// mergeExclusions joins read titles and caller exclusions, dropping blanks
// and case-insensitive duplicates while keeping first-seen order.
func mergeExclusions(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, title := range list {
			title = strings.TrimSpace(title)
			key := strings.ToLower(title)
			if title == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, title)
		}
	}
	return out
}
