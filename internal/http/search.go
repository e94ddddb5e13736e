package http

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readnext/internal/search"
)

const minSearchQueryLength = 2

// SearchResponse always carries a list. Error is set when the upstream
// search failed.
type SearchResponse struct {
	Books []search.GoogleBook `json:"books"`
	Error string              `json:"error,omitempty"`
}

// SearchController searches the external book catalog.
type SearchController struct {
	searcher BookSearcher
}

func NewSearchController(searcher BookSearcher) *SearchController {
	return &SearchController{searcher: searcher}
}

// Search handles GET /api/search?q=&maxResults=.
func (sc *SearchController) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if utf8.RuneCountInString(query) < minSearchQueryLength {
		respondBadRequest(c, "Search query must be at least 2 characters")
		return
	}

	maxResults, ok := parseIntQuery(c, "maxResults", 0)
	if !ok {
		return
	}

	books, err := sc.searcher.Search(c.Request.Context(), query, maxResults)
	if err != nil {
		c.JSON(http.StatusOK, SearchResponse{Books: []search.GoogleBook{}, Error: err.Error()})
		return
	}
	if books == nil {
		books = []search.GoogleBook{}
	}
	c.JSON(http.StatusOK, SearchResponse{Books: books})
}
