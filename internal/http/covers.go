package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/readnext/internal/logging"
)

// CoversController serves locally cached book covers.
type CoversController struct {
	books BookGetter
	cache CoverCache
}

func NewCoversController(books BookGetter, cache CoverCache) *CoversController {
	return &CoversController{books: books, cache: cache}
}

// GetCover handles GET /api/books/:id/cover. When the cover cannot be
// fetched the client is redirected to the remote image.
func (cc *CoversController) GetCover(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := cc.books.GetBookByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "Book")
		return
	}
	if err != nil {
		respondInternalError(c, err, "get book for cover")
		return
	}
	if book.CoverImage == "" {
		respondNotFound(c, "Cover")
		return
	}

	path, err := cc.cache.GetCover(c.Request.Context(), id, book.CoverImage)
	if err != nil || path == "" {
		logging.Debug().Err(err).Uint("book_id", id).Msg("Cover not cached, redirecting")
		c.Redirect(http.StatusTemporaryRedirect, book.CoverImage)
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.File(path)
}
