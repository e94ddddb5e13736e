package entrypoint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readnext/internal/audit"
	"github.com/mrlokans/readnext/internal/auth"
	"github.com/mrlokans/readnext/internal/config"
	"github.com/mrlokans/readnext/internal/covers"
	"github.com/mrlokans/readnext/internal/database"
	auditRepo "github.com/mrlokans/readnext/internal/database/audit"
	"github.com/mrlokans/readnext/internal/database/books"
	"github.com/mrlokans/readnext/internal/database/library"
	"github.com/mrlokans/readnext/internal/database/profiles"
	syncRepo "github.com/mrlokans/readnext/internal/database/sync"
	http_controllers "github.com/mrlokans/readnext/internal/http"
	"github.com/mrlokans/readnext/internal/importers"
	"github.com/mrlokans/readnext/internal/llm"
	"github.com/mrlokans/readnext/internal/logging"
	"github.com/mrlokans/readnext/internal/metadata"
	"github.com/mrlokans/readnext/internal/recognition"
	"github.com/mrlokans/readnext/internal/recommendations"
	"github.com/mrlokans/readnext/internal/scheduler"
	"github.com/mrlokans/readnext/internal/search"
	"github.com/mrlokans/readnext/internal/services"
	"github.com/mrlokans/readnext/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info().Str("host", cfg.HTTP.Host).Int32("port", cfg.HTTP.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// kill -9 cannot be caught, so only SIGINT and SIGTERM are handled.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info().Dur("timeout", timeout).Msg("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("Server shutdown failed")
	}

	if onShutdown != nil {
		onShutdown(ctx)
	}

	logging.Info().Msg("Server exiting")
}

func Run(cfg *config.Config, version string) {
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Str("version", version).Msg("Starting readnext")

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	if cfg.Auth.Mode != config.AuthModeLocal {
		if _, err := db.EnsureLocalUser(auth.DefaultUserID); err != nil {
			logging.Fatal().Err(err).Msg("Failed to create the default user")
		}
	}

	booksRepo := books.NewRepository(db.DB)
	libraryRepo := library.NewRepository(db.DB)
	profilesRepo := profiles.NewRepository(db.DB)
	syncProgress := syncRepo.NewRepository(db.DB)

	auditSvc := audit.NewService(auditRepo.NewRepository(db.DB), audit.NewArchive(cfg.Audit.Dir))
	defer auditSvc.Flush()

	coverCacheDir := cfg.Covers.Dir
	if coverCacheDir == "" {
		coverCacheDir = filepath.Join(filepath.Dir(cfg.Database.Path), "covers")
	}
	var coverCache http_controllers.CoverCache
	cache, err := covers.NewCache(coverCacheDir)
	if err != nil {
		logging.Warn().Err(err).Str("dir", coverCacheDir).Msg("Cover cache disabled")
	} else {
		coverCache = cache
		logging.Info().Str("dir", coverCacheDir).Msg("Cover cache initialized")
	}

	openLibrary := metadata.NewOpenLibraryClient(cfg.OpenLibrary.BaseURL, cfg.OpenLibrary.RequestsPerSec)
	enricher := metadata.NewEnricher(openLibrary, booksRepo)
	enricher.SetProgressReporter(syncProgress)
	if cache != nil {
		enricher.SetCoverInvalidator(cache)
	}

	librarySvc := services.NewLibraryService(booksRepo, libraryRepo)
	pipeline := importers.NewPipeline(booksRepo, libraryRepo)
	profileSvc := services.NewProfileService(profilesRepo, libraryRepo)

	var taskClient *tasks.Client
	var taskQueue http_controllers.TaskQueue
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks))
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize task queue")
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing task client")
			}
		}()

		taskClient.Register(
			tasks.NewEnrichBookQueue(tasks.AuditedEnricher{BookEnricher: enricher, Audit: auditSvc}),
			tasks.NewEnrichAllBooksQueue(enricher),
			tasks.NewCleanupAuditEventsQueue(auditSvc),
		)

		librarySvc.WithEnrichment(taskClient)
		pipeline.WithEnrichment(taskClient)
		taskQueue = taskClient

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	} else {
		logging.Warn().Msg("Task queue disabled, new books will not be enriched")
	}

	var completer llm.Completer
	llmClient, err := llm.NewClient(cfg.OpenAI)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		logging.Warn().Msg("OPENAI_API_KEY is not set, recommendations and photo recognition are disabled")
	case err != nil:
		logging.Fatal().Err(err).Msg("Failed to initialize OpenAI client")
	default:
		completer = llmClient
	}

	var recommender http_controllers.Recommender
	var recService *recommendations.Service
	if completer != nil {
		recService, err = recommendations.NewService(completer, profileSvc, libraryRepo, recommendations.Config{
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
			HomeTTL:     cfg.OpenAI.HomeFeedTTL,
		})
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize recommendations")
		}
		recommender = recService
	}

	var recognizer recognition.Recognizer
	if completer != nil {
		recognizer = recognition.NewVisionClient(completer, cfg.OpenAI.VisionModel)
	}
	recognitionSvc := recognition.NewService(recognizer, librarySvc, recognition.Limits{
		MaxBytes:    cfg.Uploads.MaxImageBytes,
		MaxWidth:    cfg.Uploads.ImageMaxWidth,
		JPEGQuality: cfg.Uploads.ImageJPEGQuality,
	})

	searcher := search.NewClient(search.Config{
		BaseURL:           cfg.GoogleBooks.BaseURL,
		APIKey:            cfg.GoogleBooks.APIKey,
		DefaultMaxResults: cfg.GoogleBooks.MaxResults,
		RequestsPerSec:    cfg.GoogleBooks.RequestsPerSec,
		Timeout:           cfg.GoogleBooks.RequestTimeout,
		BreakerFailures:   cfg.GoogleBooks.BreakerFailures,
	})

	var authService *auth.Service
	var sessionManager *auth.SessionManager
	var authController *auth.Controller
	var csrfSecret []byte

	if cfg.Auth.Mode == config.AuthModeLocal {
		logging.Info().Msg("Authentication mode: local")

		authService = auth.NewService(db.DB, cfg.Auth)

		sqlDB, err := db.DB.DB()
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to get SQL DB for sessions")
		}

		sessionManager, err = auth.NewSessionManager(sqlDB, cfg.Auth)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize session manager")
		}

		authController = auth.NewController(authService, sessionManager, cfg.Auth, auditSvc)

		if cfg.Auth.SessionSecret != "" {
			csrfSecret, err = hex.DecodeString(cfg.Auth.SessionSecret)
			if err != nil {
				// Not hex, use as raw bytes
				csrfSecret = []byte(cfg.Auth.SessionSecret)
			}
		} else {
			secret, err := auth.GenerateSessionSecret()
			if err != nil {
				logging.Fatal().Err(err).Msg("Failed to generate CSRF secret")
			}
			csrfSecret, _ = hex.DecodeString(secret)
			logging.Warn().Msg("Generated session secret (set AUTH_SESSION_SECRET to persist)")
		}

		if hasUsers, _ := authService.HasUsers(); !hasUsers {
			logging.Info().Msg("No users found. POST /api/auth/setup to create an administrator account.")
		}
	} else {
		logging.Info().Msg("Authentication mode: none (no authentication required)")
	}

	sched := scheduler.New()
	addJob := func(name, schedule string, run func(ctx context.Context)) {
		if err := sched.Add(name, schedule, run); err != nil {
			logging.Fatal().Err(err).Str("job", name).Str("schedule", schedule).Msg("Invalid schedule")
		}
	}
	addJob("recognition_flow_sweep", cfg.Uploads.FlowSweep, scheduler.SweepJob(recognitionSvc, cfg.Uploads.FlowTTL))
	if taskClient != nil {
		addJob("audit_cleanup", cfg.Audit.CleanupSchedule,
			scheduler.EnqueueJob(taskClient, tasks.CleanupAuditEventsTask{RetentionDays: cfg.Audit.RetentionDays}))
		if cfg.Enrichment.Enabled {
			addJob("metadata_enrichment", cfg.Enrichment.Schedule,
				scheduler.EnqueueJob(taskClient, tasks.EnrichAllBooksTask{}))
		}
	}
	schedCtx, schedCancel := context.WithCancel(context.Background())
	sched.Start(schedCtx)

	routerCfg := http_controllers.RouterConfig{
		Database:  db,
		Library:   librarySvc,
		Importer:  pipeline,
		Profiles:  profileSvc,
		AuditLog:  auditSvc,
		Version:   version,
		MaxCSVLen: cfg.Uploads.MaxCSVBytes,
		Features: map[string]bool{
			"openai":       completer != nil,
			"google_books": true,
			"tasks":        taskClient != nil,
		},
		Recommender:        recommender,
		Recognition:        recognitionSvc,
		Searcher:           searcher,
		Books:              booksRepo,
		CoverCache:         coverCache,
		TaskQueue:          taskQueue,
		SyncProgress:       syncProgress,
		AuditRetentionDays: cfg.Audit.RetentionDays,
		AuthConfig:         cfg.Auth,
		AuthService:        authService,
		SessionManager:     sessionManager,
		AuthController:     authController,
		CSRFSecret:         csrfSecret,
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		sched.Stop()
		schedCancel()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		if authController != nil {
			authController.Stop()
		}
		if recService != nil {
			recService.Close()
		}
		auditSvc.Flush()
	}

	Serve(router, cfg, onShutdown)
}
