package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readnext/internal/recommendations"
)

// RecommendationsController serves model-generated suggestions.
type RecommendationsController struct {
	recommender Recommender
	audit       AuditLog
}

func NewRecommendationsController(recommender Recommender, auditLog AuditLog) *RecommendationsController {
	return &RecommendationsController{recommender: recommender, audit: auditOrNoop(auditLog)}
}

// Recommend handles POST /api/recommendations. An empty body uses the
// stored taste profile.
func (rc *RecommendationsController) Recommend(c *gin.Context) {
	var req recommendations.Request
	if !bindJSON(c, &req) {
		return
	}

	userID := GetUserID(c)
	result, err := rc.recommender.GetRecommendations(c.Request.Context(), userID, req)
	if err != nil {
		rc.audit.LogRecommendation(userID, "recommendations", 0, err)
		respondServiceError(c, err, "get recommendations")
		return
	}

	rc.audit.LogRecommendation(userID, "recommendations", len(result.Recommendations)+len(result.TrendingBooks), nil)
	c.JSON(http.StatusOK, result)
}

// Similar handles POST /api/recommendations/similar.
func (rc *RecommendationsController) Similar(c *gin.Context) {
	var req recommendations.SimilarRequest
	if !bindJSON(c, &req) {
		return
	}

	userID := GetUserID(c)
	result, err := rc.recommender.GetSimilarBooks(c.Request.Context(), userID, req)
	if err != nil {
		rc.audit.LogRecommendation(userID, "similar_books", 0, err)
		respondServiceError(c, err, "get similar books")
		return
	}

	rc.audit.LogRecommendation(userID, "similar_books", len(result.Recommendations), nil)
	c.JSON(http.StatusOK, result)
}

// Home handles GET /api/recommendations/home.
func (rc *RecommendationsController) Home(c *gin.Context) {
	feed, err := rc.recommender.Home(c.Request.Context(), GetUserID(c))
	if err != nil {
		respondServiceError(c, err, "get home feed")
		return
	}
	c.JSON(http.StatusOK, feed)
}
