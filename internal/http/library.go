package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readnext/internal/services"
)

// LibraryController serves the user's library.
type LibraryController struct {
	library LibraryManager
	home    HomeInvalidator
	audit   AuditLog
}

func NewLibraryController(library LibraryManager, auditLog AuditLog) *LibraryController {
	return &LibraryController{library: library, audit: auditOrNoop(auditLog)}
}

// WithHomeInvalidator drops the user's cached home feed after the library changes.
func (lc *LibraryController) WithHomeInvalidator(home HomeInvalidator) *LibraryController {
	lc.home = home
	return lc
}

// GetLibrary handles GET /api/library.
func (lc *LibraryController) GetLibrary(c *gin.Context) {
	data, err := lc.library.GetLibrary(GetUserID(c))
	if err != nil {
		respondServiceError(c, err, "get library")
		return
	}
	c.JSON(http.StatusOK, data)
}

// AddBook handles POST /api/library/books. Re-adding a book already in the
// library overwrites its status and rating.
func (lc *LibraryController) AddBook(c *gin.Context) {
	var req services.AddBookRequest
	if !bindJSON(c, &req) {
		return
	}

	userID := GetUserID(c)
	result, err := lc.library.AddBook(c.Request.Context(), userID, req)
	if err != nil {
		if services.IsKind(err, services.KindInternal) {
			lc.audit.LogLibraryAdd(userID, 0, req.Title, req.Status, err)
		}
		respondServiceError(c, err, "add book")
		return
	}

	lc.audit.LogLibraryAdd(userID, result.BookID, req.Title, req.Status, nil)
	invalidateHome(lc.home, userID)
	if result.Updated {
		c.JSON(http.StatusOK, result)
		return
	}
	respondCreated(c, result)
}
