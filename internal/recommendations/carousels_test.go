package recommendations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func book(title string, genres ...string) RecommendedBook {
	return RecommendedBook{ID: "ai-" + title, Title: title, Genres: genres}
}

func carouselTitles(feed *HomeFeed) []string {
	titles := make([]string, 0, len(feed.Carousels))
	for _, c := range feed.Carousels {
		titles = append(titles, c.Title)
	}
	return titles
}

func TestBuildHomeFeed(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	result := &Result{
		Recommendations: []RecommendedBook{
			book("Beach Read", "Contemporary Romance"),
			book("Gone Girl", "Psychological Thriller"),
			book("The Martian", "Science Fiction"),
			book("Red Rising", "Sci-Fi", "Dystopian"),
			book("Educated", "Memoir"),
		},
		TrendingBooks: []RecommendedBook{book("Fourth Wing", "Fantasy")},
	}

	feed := BuildHomeFeed(result, now)

	assert.Equal(t, now, feed.GeneratedAt)
	assert.Len(t, feed.Featured, 5)
	assert.Equal(t, []string{
		"Trending Now",
		"Because You Love Romance",
		"Mystery & Thriller",
		"Sci-Fi & Fantasy",
		"All Recommendations",
	}, carouselTitles(feed))

	require.Len(t, feed.Carousels[3].Books, 2)
	assert.Equal(t, "The Martian", feed.Carousels[3].Books[0].Title)
	assert.Equal(t, "Red Rising", feed.Carousels[3].Books[1].Title)
	assert.Len(t, feed.Carousels[4].Books, 5)
}

func TestBuildHomeFeed_OmitsEmptyShelves(t *testing.T) {
	feed := BuildHomeFeed(&Result{Recommendations: []RecommendedBook{book("Educated", "Memoir")}}, time.Now())

	assert.Equal(t, []string{"All Recommendations"}, carouselTitles(feed))
}
