package http

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readnext/internal/entities"
	"github.com/mrlokans/readnext/internal/services"
	"github.com/mrlokans/readnext/internal/validation"
)

type fakeLibrary struct {
	result *services.AddBookResult
	err    error
	data   *services.LibraryData
	userID uint
	req    services.AddBookRequest
}

func (f *fakeLibrary) AddBook(ctx context.Context, userID uint, req services.AddBookRequest) (*services.AddBookResult, error) {
	f.userID = userID
	f.req = req
	return f.result, f.err
}

func (f *fakeLibrary) GetLibrary(userID uint) (*services.LibraryData, error) {
	f.userID = userID
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

func newLibraryRouter(lib *fakeLibrary, log *recordingAudit, userID uint) *gin.Engine {
	router := gin.New()
	router.Use(withUser(userID))
	controller := NewLibraryController(lib, log)
	router.GET("/api/library", controller.GetLibrary)
	router.POST("/api/library/books", controller.AddBook)
	return router
}

func TestLibraryController_AddBook(t *testing.T) {
	tests := []struct {
		name   string
		result *services.AddBookResult
		status int
	}{
		{"new entry", &services.AddBookResult{BookID: 7, BookCreated: true}, http.StatusCreated},
		{"existing entry updated", &services.AddBookResult{BookID: 7, Updated: true}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := &fakeLibrary{result: tt.result}
			log := &recordingAudit{}
			router := newLibraryRouter(lib, log, 3)

			w := doJSON(t, router, http.MethodPost, "/api/library/books", map[string]any{
				"title": "Dune", "author": "Frank Herbert", "status": "read", "rating": 5,
			})

			require.Equal(t, tt.status, w.Code, w.Body.String())
			got := decode[services.AddBookResult](t, w)
			assert.Equal(t, uint(7), got.BookID)
			assert.Equal(t, uint(3), lib.userID)
			assert.Equal(t, entities.StatusRead, lib.req.Status)
			require.NotNil(t, lib.req.Rating)
			assert.Equal(t, 5, *lib.req.Rating)
			assert.Equal(t, []string{"Dune"}, log.adds)
		})
	}
}

func TestLibraryController_AddBookErrors(t *testing.T) {
	invalid := &services.Error{
		Kind:    services.KindInvalid,
		Message: "Invalid request",
		Err:     &validation.Error{Fields: map[string]string{"status": "must be one of want_to_read, reading, read"}},
	}

	tests := []struct {
		name    string
		err     error
		status  int
		audited bool
	}{
		{"validation", invalid, http.StatusBadRequest, false},
		{"anonymous", &services.Error{Kind: services.KindUnauthenticated, Message: "You must be logged in to add books"}, http.StatusUnauthorized, false},
		{"storage failure", &services.Error{Kind: services.KindInternal, Message: "Failed to add book", Err: errors.New("disk full")}, http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &recordingAudit{}
			router := newLibraryRouter(&fakeLibrary{err: tt.err}, log, 1)

			w := doJSON(t, router, http.MethodPost, "/api/library/books", map[string]any{"title": "Dune"})

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.audited, len(log.adds) == 1)
			assert.NotContains(t, w.Body.String(), "disk full")
		})
	}
}

func TestLibraryController_AddBookMalformedJSON(t *testing.T) {
	router := newLibraryRouter(&fakeLibrary{}, &recordingAudit{}, 1)

	w := doJSON(t, router, http.MethodPost, "/api/library/books", "not an object")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLibraryController_GetLibrary(t *testing.T) {
	lib := &fakeLibrary{data: &services.LibraryData{
		Books:      []services.LibraryBook{{ID: 1, Title: "Dune", Status: entities.StatusReading}},
		HasLibrary: true,
		Counts:     entities.LibraryCounts{Reading: 1},
	}}
	router := newLibraryRouter(lib, &recordingAudit{}, 4)

	w := doJSON(t, router, http.MethodGet, "/api/library", nil)

	require.Equal(t, http.StatusOK, w.Code)
	got := decode[services.LibraryData](t, w)
	assert.True(t, got.HasLibrary)
	assert.Len(t, got.Books, 1)
	assert.Equal(t, uint(4), lib.userID)
}

func TestLibraryController_AddBookInvalidatesHome(t *testing.T) {
	home := &fakeHome{}
	controller := NewLibraryController(&fakeLibrary{result: &services.AddBookResult{BookID: 7, BookCreated: true}}, &recordingAudit{}).
		WithHomeInvalidator(home)
	router := gin.New()
	router.Use(withUser(3))
	router.POST("/api/library/books", controller.AddBook)

	w := doJSON(t, router, http.MethodPost, "/api/library/books", map[string]any{
		"title": "Dune", "author": "Frank Herbert", "status": "read",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, []uint{3}, home.invalidated)
}

func TestLibraryController_FailedAddKeepsHome(t *testing.T) {
	home := &fakeHome{}
	lib := &fakeLibrary{err: &services.Error{Kind: services.KindInternal, Message: "Failed to add book", Err: errors.New("disk full")}}
	controller := NewLibraryController(lib, &recordingAudit{}).WithHomeInvalidator(home)
	router := gin.New()
	router.Use(withUser(3))
	router.POST("/api/library/books", controller.AddBook)

	w := doJSON(t, router, http.MethodPost, "/api/library/books", map[string]any{"title": "Dune"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, home.invalidated)
}
