package recommendations

import (
	"strings"
	"time"
)

// Carousel is one titled shelf on the home feed.
type Carousel struct {
	Key      string            `json:"key"`
	Title    string            `json:"title"`
	Subtitle string            `json:"subtitle"`
	Books    []RecommendedBook `json:"books"`
}

// HomeFeed is the featured list plus genre shelves.
type HomeFeed struct {
	Featured    []RecommendedBook `json:"featured"`
	Carousels   []Carousel        `json:"carousels"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

type shelf struct {
	key      string
	title    string
	subtitle string
	keywords []string
}

var genreShelves = []shelf{
	{"romance", "Because You Love Romance", "Swoon-worthy picks based on your taste", []string{"romance"}},
	{"mystery", "Mystery & Thriller", "Page-turners you won't put down", []string{"mystery", "thriller"}},
	{"scifi", "Sci-Fi & Fantasy", "Worlds beyond imagination", []string{"sci-fi", "science fiction"}},
}

// BuildHomeFeed groups a recommendation result into shelves. Trending and
// genre shelves are omitted when empty; "All Recommendations" is always
// present.
func BuildHomeFeed(result *Result, now time.Time) *HomeFeed {
	feed := &HomeFeed{
		Featured:    result.Recommendations,
		Carousels:   []Carousel{},
		GeneratedAt: now,
	}

	if len(result.TrendingBooks) > 0 {
		feed.Carousels = append(feed.Carousels, Carousel{
			Key:      "trending",
			Title:    "Trending Now",
			Subtitle: "Popular picks from BookTok and beyond",
			Books:    result.TrendingBooks,
		})
	}

	for _, sh := range genreShelves {
		books := filterByGenre(result.Recommendations, sh.keywords)
		if len(books) == 0 {
			continue
		}
		feed.Carousels = append(feed.Carousels, Carousel{
			Key:      sh.key,
			Title:    sh.title,
			Subtitle: sh.subtitle,
			Books:    books,
		})
	}

	feed.Carousels = append(feed.Carousels, Carousel{
		Key:      "all",
		Title:    "All Recommendations",
		Subtitle: "Curated picks based on your preferences",
		Books:    result.Recommendations,
	})
	return feed
}

// filterByGenre keeps books with any genre containing one of keywords,
// compared case-insensitively.
func filterByGenre(books []RecommendedBook, keywords []string) []RecommendedBook {
	var out []RecommendedBook
	for _, b := range books {
		if matchesAny(b.Genres, keywords) {
			out = append(out, b)
		}
	}
	return out
}

func matchesAny(genres, keywords []string) bool {
	for _, g := range genres {
		lower := strings.ToLower(g)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}
