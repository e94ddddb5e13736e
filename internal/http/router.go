package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readnext/internal/auth"
	"github.com/mrlokans/readnext/internal/config"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger())

	router.Use(auth.SecurityHeadersMiddleware())
	router.Use(auth.StrictTransportSecurityMiddleware())

	localAuth := cfg.AuthConfig.Mode == config.AuthModeLocal && cfg.AuthService != nil && cfg.SessionManager != nil
	if localAuth {
		router.Use(cfg.SessionManager.LoadAndSave())
		if len(cfg.CSRFSecret) > 0 {
			router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.AuthConfig.SecureCookies, cfg.AuthService))
		}
	}
	router.Use(auth.NewMiddleware(cfg.AuthService, cfg.SessionManager, cfg.AuthConfig).Handler())

	health := NewHealthController(cfg.Database, cfg.Version, cfg.Features)
	router.GET("/health", health.Status)

	if localAuth && cfg.AuthController != nil {
		cfg.AuthController.RegisterRoutes(router.Group("/api/auth"))
	}

	api := router.Group("/api")

	var home HomeInvalidator
	if cfg.Recommender != nil {
		home = cfg.Recommender
	}

	// Library and import
	library := NewLibraryController(cfg.Library, cfg.AuditLog).WithHomeInvalidator(home)
	api.GET("/library", library.GetLibrary)
	api.POST("/library/books", library.AddBook)

	goodreads := NewGoodreadsImportController(cfg.Importer, cfg.AuditLog, cfg.MaxCSVLen).WithHomeInvalidator(home)
	api.POST("/import/goodreads/preview", goodreads.Preview)
	api.POST("/import/goodreads", goodreads.Import)

	// Taste profile and reading goals
	profile := NewProfileController(cfg.Profiles, home, cfg.AuditLog)
	api.GET("/profile/options", profile.Options)
	api.GET("/profile/taste", profile.GetTaste)
	api.PUT("/profile/taste", profile.SaveTaste)
	api.GET("/goals/:year", profile.GetGoal)
	api.PUT("/goals/:year", profile.SetGoal)

	if cfg.Recommender != nil {
		recs := NewRecommendationsController(cfg.Recommender, cfg.AuditLog)
		api.POST("/recommendations", recs.Recommend)
		api.POST("/recommendations/similar", recs.Similar)
		api.GET("/recommendations/home", recs.Home)
	}

	if cfg.Searcher != nil {
		search := NewSearchController(cfg.Searcher)
		api.GET("/search", search.Search)
	}

	if cfg.Recognition != nil {
		recognition := NewRecognitionController(cfg.Recognition, cfg.AuditLog).WithHomeInvalidator(home)
		api.POST("/recognition", recognition.Identify)
		flows := api.Group("/recognition/flows")
		flows.POST("", recognition.CreateFlow)
		flows.GET("/:id", recognition.GetFlow)
		flows.POST("/:id/image", recognition.Upload)
		flows.POST("/:id/retry", recognition.Retry)
		flows.POST("/:id/accept", recognition.Accept)
		flows.POST("/:id/discard", recognition.Discard)
	}

	if cfg.Books != nil && cfg.CoverCache != nil {
		covers := NewCoversController(cfg.Books, cfg.CoverCache)
		api.GET("/books/:id/cover", covers.GetCover)
	}

	if cfg.TaskQueue != nil {
		tasks := NewTasksController(cfg.TaskQueue, cfg.AuditRetentionDays)
		api.GET("/tasks/types", tasks.ListTaskTypes)
		api.GET("/tasks/:id", tasks.GetTaskStatus)
		api.POST("/tasks/:type/run", tasks.RunTask)
		api.POST("/books/:id/enrich", tasks.EnrichBook)
	}

	if cfg.SyncProgress != nil {
		sync := NewSyncController(cfg.SyncProgress)
		api.GET("/sync/metadata/status", sync.GetMetadataStatus)
	}

	audit := NewAuditController(cfg.AuditLog)
	api.GET("/audit", audit.GetEvents)

	return router
}
