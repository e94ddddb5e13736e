package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readnext/internal/services"
)

// HomeInvalidator drops a cached home feed.
type HomeInvalidator interface {
	InvalidateHome(userID uint)
}

func invalidateHome(home HomeInvalidator, userID uint) {
	if home != nil {
		home.InvalidateHome(userID)
	}
}

// ProfileController serves taste profiles, catalog options and reading goals.
type ProfileController struct {
	profiles ProfileManager
	home     HomeInvalidator
	audit    AuditLog
}

// NewProfileController creates the controller. home may be nil.
func NewProfileController(profiles ProfileManager, home HomeInvalidator, auditLog AuditLog) *ProfileController {
	return &ProfileController{profiles: profiles, home: home, audit: auditOrNoop(auditLog)}
}

// Options handles GET /api/profile/options.
func (pc *ProfileController) Options(c *gin.Context) {
	c.JSON(http.StatusOK, pc.profiles.Options())
}

// GetTaste handles GET /api/profile/taste.
func (pc *ProfileController) GetTaste(c *gin.Context) {
	profile, err := pc.profiles.GetTasteProfile(GetUserID(c))
	if err != nil {
		respondServiceError(c, err, "get taste profile")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// SaveTaste handles PUT /api/profile/taste.
func (pc *ProfileController) SaveTaste(c *gin.Context) {
	var req services.TasteProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	userID := GetUserID(c)
	profile, err := pc.profiles.SaveTasteProfile(userID, req)
	if err != nil {
		respondServiceError(c, err, "save taste profile")
		return
	}

	invalidateHome(pc.home, userID)
	pc.audit.LogProfile(userID, "taste_profile_update",
		fmt.Sprintf("%d genres, %d tropes", len(profile.Genres), len(profile.Tropes)))
	c.JSON(http.StatusOK, profile)
}

// GetGoal handles GET /api/goals/:year.
func (pc *ProfileController) GetGoal(c *gin.Context) {
	year, ok := parseYearParam(c)
	if !ok {
		return
	}

	goal, err := pc.profiles.GetReadingGoal(GetUserID(c), year)
	if err != nil {
		respondServiceError(c, err, "get reading goal")
		return
	}
	c.JSON(http.StatusOK, goal)
}

// SetGoal handles PUT /api/goals/:year.
func (pc *ProfileController) SetGoal(c *gin.Context) {
	year, ok := parseYearParam(c)
	if !ok {
		return
	}

	var req services.ReadingGoalRequest
	if !bindJSON(c, &req) {
		return
	}

	userID := GetUserID(c)
	goal, err := pc.profiles.SetReadingGoal(userID, year, req)
	if err != nil {
		respondServiceError(c, err, "set reading goal")
		return
	}

	pc.audit.LogProfile(userID, "reading_goal_update", fmt.Sprintf("%d books in %d", goal.Target, goal.Year))
	c.JSON(http.StatusOK, goal)
}
