package http

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readnext/internal/recommendations"
	"github.com/mrlokans/readnext/internal/services"
)

type fakeRecommender struct {
	result  *recommendations.Result
	feed    *recommendations.HomeFeed
	err     error
	req     recommendations.Request
	similar recommendations.SimilarRequest
}

func (f *fakeRecommender) GetRecommendations(ctx context.Context, userID uint, req recommendations.Request) (*recommendations.Result, error) {
	f.req = req
	return f.result, f.err
}

func (f *fakeRecommender) GetSimilarBooks(ctx context.Context, userID uint, req recommendations.SimilarRequest) (*recommendations.Result, error) {
	f.similar = req
	return f.result, f.err
}

func (f *fakeRecommender) Home(ctx context.Context, userID uint) (*recommendations.HomeFeed, error) {
	return f.feed, f.err
}

func (f *fakeRecommender) InvalidateHome(userID uint) {}

func newRecommendationsRouter(rec *fakeRecommender, log *recordingAudit) *gin.Engine {
	router := gin.New()
	router.Use(withUser(1))
	controller := NewRecommendationsController(rec, log)
	router.POST("/api/recommendations", controller.Recommend)
	router.POST("/api/recommendations/similar", controller.Similar)
	router.GET("/api/recommendations/home", controller.Home)
	return router
}

func TestRecommendationsController_Recommend(t *testing.T) {
	rec := &fakeRecommender{result: &recommendations.Result{
		Recommendations: []recommendations.RecommendedBook{{ID: "a", Title: "Dune"}},
		TrendingBooks:   []recommendations.RecommendedBook{{ID: "b", Title: "Piranesi", IsTrending: true}},
	}}
	log := &recordingAudit{}
	router := newRecommendationsRouter(rec, log)

	t.Run("empty body uses stored profile", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/recommendations", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		got := decode[recommendations.Result](t, w)
		assert.Len(t, got.Recommendations, 1)
		assert.Len(t, got.TrendingBooks, 1)
		assert.Empty(t, rec.req.Genres)
	})

	t.Run("explicit tropes", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/recommendations", map[string]any{"tropes": []string{"Enemies to Lovers"}})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"Enemies to Lovers"}, rec.req.Tropes)
	})

	assert.Equal(t, []string{"recommendations", "recommendations"}, log.recommends)
}

func TestRecommendationsController_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"not configured", &services.Error{Kind: services.KindUnavailable, Message: "AI recommendations are not configured"}, http.StatusServiceUnavailable, "not configured"},
		{"model failure", &services.Error{Kind: services.KindInternal, Message: "No response from AI", Err: errors.New("upstream 502")}, http.StatusInternalServerError, "No response from AI"},
		{"invalid", &services.Error{Kind: services.KindInvalid, Message: "Invalid request"}, http.StatusBadRequest, "Invalid request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &recordingAudit{}
			router := newRecommendationsRouter(&fakeRecommender{err: tt.err}, log)

			w := doJSON(t, router, http.MethodPost, "/api/recommendations/similar", recommendations.SimilarRequest{Title: "Dune", Author: "Frank Herbert"})

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
			assert.NotContains(t, w.Body.String(), "upstream 502")
			assert.Equal(t, []string{"similar_books"}, log.recommends)
		})
	}
}

func TestRecommendationsController_Home(t *testing.T) {
	rec := &fakeRecommender{feed: &recommendations.HomeFeed{
		Featured:  []recommendations.RecommendedBook{{ID: "a", Title: "Dune"}},
		Carousels: []recommendations.Carousel{{Key: "fantasy", Title: "Fantasy Worlds"}},
	}}
	router := newRecommendationsRouter(rec, &recordingAudit{})

	w := doJSON(t, router, http.MethodGet, "/api/recommendations/home", nil)

	require.Equal(t, http.StatusOK, w.Code)
	got := decode[recommendations.HomeFeed](t, w)
	assert.Len(t, got.Featured, 1)
	assert.Equal(t, "fantasy", got.Carousels[0].Key)
}
