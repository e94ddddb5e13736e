package metadata

import (
	"strings"

	"github.com/mrlokans/readnext/internal/entities"
)

// subjectKeywords maps lowercase fragments of library subjects and store
// categories onto catalog genres. More specific fragments come first.
var subjectKeywords = []struct {
	fragment string
	genre    string
}{
	{"historical fiction", "Historical Fiction"},
	{"science fiction", "Sci-Fi"},
	{"sci-fi", "Sci-Fi"},
	{"literary fiction", "Literary Fiction"},
	{"young adult", "Young Adult"},
	{"juvenile fiction", "Young Adult"},
	{"self-help", "Self-Help"},
	{"self help", "Self-Help"},
	{"autobiography", "Biography"},
	{"biography", "Biography"},
	{"memoir", "Biography"},
	{"detective", "Mystery"},
	{"mystery", "Mystery"},
	{"thriller", "Thriller"},
	{"suspense", "Thriller"},
	{"romance", "Romance"},
	{"love stories", "Romance"},
	{"fantasy", "Fantasy"},
	{"horror", "Horror"},
	{"nonfiction", "Non-Fiction"},
	{"non-fiction", "Non-Fiction"},
}

// GenresFromSubjects derives catalog genres from free-form subjects, keeping
// first-seen order and dropping duplicates. At most limit genres are returned.
func GenresFromSubjects(subjects []string, limit int) []string {
	var genres []string
	seen := make(map[string]bool)

	for _, subject := range subjects {
		s := strings.ToLower(subject)
		for _, kw := range subjectKeywords {
			if !strings.Contains(s, kw.fragment) || seen[kw.genre] {
				continue
			}
			if !entities.IsKnownGenre(kw.genre) {
				continue
			}
			seen[kw.genre] = true
			genres = append(genres, kw.genre)
			if limit > 0 && len(genres) == limit {
				return genres
			}
			break
		}
	}

	return genres
}
