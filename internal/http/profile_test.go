package http

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readnext/internal/entities"
	"github.com/mrlokans/readnext/internal/services"
)

type fakeProfiles struct {
	taste     *services.TasteProfileView
	goal      *services.ReadingGoalView
	err       error
	savedReq  services.TasteProfileRequest
	goalYear  int
	goalReq   services.ReadingGoalRequest
	callsUser uint
}

func (f *fakeProfiles) Options() services.CatalogOptions {
	return services.CatalogOptions{Genres: []string{"Fantasy", "Romance"}, Tropes: []string{"Found Family"}}
}

func (f *fakeProfiles) GetTasteProfile(userID uint) (*services.TasteProfileView, error) {
	f.callsUser = userID
	return f.taste, f.err
}

func (f *fakeProfiles) SaveTasteProfile(userID uint, req services.TasteProfileRequest) (*services.TasteProfileView, error) {
	f.callsUser = userID
	f.savedReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &services.TasteProfileView{Genres: req.Genres, Tropes: req.Tropes}, nil
}

func (f *fakeProfiles) GetReadingGoal(userID uint, year int) (*services.ReadingGoalView, error) {
	f.callsUser = userID
	f.goalYear = year
	return f.goal, f.err
}

func (f *fakeProfiles) SetReadingGoal(userID uint, year int, req services.ReadingGoalRequest) (*services.ReadingGoalView, error) {
	f.callsUser = userID
	f.goalYear = year
	f.goalReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &services.ReadingGoalView{Target: req.Target, Year: year}, nil
}

type fakeHome struct {
	invalidated []uint
}

func (f *fakeHome) InvalidateHome(userID uint) {
	f.invalidated = append(f.invalidated, userID)
}

func newProfileRouter(profiles *fakeProfiles, home HomeInvalidator, log *recordingAudit) *gin.Engine {
	router := gin.New()
	router.Use(withUser(2))
	controller := NewProfileController(profiles, home, log)
	router.GET("/api/profile/options", controller.Options)
	router.GET("/api/profile/taste", controller.GetTaste)
	router.PUT("/api/profile/taste", controller.SaveTaste)
	router.GET("/api/goals/:year", controller.GetGoal)
	router.PUT("/api/goals/:year", controller.SetGoal)
	return router
}

func TestProfileController_Options(t *testing.T) {
	router := newProfileRouter(&fakeProfiles{}, nil, &recordingAudit{})

	w := doJSON(t, router, http.MethodGet, "/api/profile/options", nil)

	require.Equal(t, http.StatusOK, w.Code)
	got := decode[services.CatalogOptions](t, w)
	assert.Contains(t, got.Genres, "Fantasy")
}

func TestProfileController_GetTaste(t *testing.T) {
	profiles := &fakeProfiles{taste: &services.TasteProfileView{
		Genres:    []entities.GenreWeight{{Name: "Fantasy", Percentage: 50}},
		Tropes:    []string{},
		IsDefault: true,
	}}
	router := newProfileRouter(profiles, nil, &recordingAudit{})

	w := doJSON(t, router, http.MethodGet, "/api/profile/taste", nil)

	require.Equal(t, http.StatusOK, w.Code)
	got := decode[services.TasteProfileView](t, w)
	assert.True(t, got.IsDefault)
	assert.Equal(t, uint(2), profiles.callsUser)
}

func TestProfileController_SaveTaste(t *testing.T) {
	profiles := &fakeProfiles{}
	home := &fakeHome{}
	log := &recordingAudit{}
	router := newProfileRouter(profiles, home, log)

	w := doJSON(t, router, http.MethodPut, "/api/profile/taste", services.TasteProfileRequest{
		Genres: []entities.GenreWeight{{Name: "Romance", Percentage: 70}},
		Tropes: []string{"Found Family"},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Romance", profiles.savedReq.Genres[0].Name)
	assert.Equal(t, []uint{2}, home.invalidated)
	assert.Equal(t, []string{"taste_profile_update"}, log.profiles)
}

func TestProfileController_SaveTasteInvalid(t *testing.T) {
	home := &fakeHome{}
	log := &recordingAudit{}
	profiles := &fakeProfiles{err: &services.Error{Kind: services.KindInvalid, Message: "Duplicate genre: Romance"}}
	router := newProfileRouter(profiles, home, log)

	w := doJSON(t, router, http.MethodPut, "/api/profile/taste", services.TasteProfileRequest{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Duplicate genre")
	assert.Empty(t, home.invalidated)
	assert.Empty(t, log.profiles)
}

func TestProfileController_Goals(t *testing.T) {
	profiles := &fakeProfiles{goal: &services.ReadingGoalView{Target: 12, Current: 3, Year: 2026, Percentage: 25}}
	log := &recordingAudit{}
	router := newProfileRouter(profiles, nil, log)

	w := doJSON(t, router, http.MethodGet, "/api/goals/2026", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 25, decode[services.ReadingGoalView](t, w).Percentage)
	assert.Equal(t, 2026, profiles.goalYear)

	w = doJSON(t, router, http.MethodPut, "/api/goals/2025", map[string]int{"target": 30})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 30, profiles.goalReq.Target)
	assert.Equal(t, 2025, profiles.goalYear)
	assert.Equal(t, []string{"reading_goal_update"}, log.profiles)

	w = doJSON(t, router, http.MethodGet, "/api/goals/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
