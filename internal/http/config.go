package http

import (
	"github.com/mrlokans/readnext/internal/auth"
	"github.com/mrlokans/readnext/internal/config"
	"github.com/mrlokans/readnext/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. Optional dependencies left nil disable the
// routes that need them.
type RouterConfig struct {
	// Core dependencies
	Database  *database.Database
	Library   LibraryManager
	Importer  GoodreadsImporter
	Profiles  ProfileManager
	AuditLog  AuditLog
	Version   string
	Features  map[string]bool
	MaxCSVLen int64

	// Model-backed features
	Recommender Recommender
	Recognition RecognitionFlows

	// External catalog search
	Searcher BookSearcher

	// Cover caching
	Books      BookGetter
	CoverCache CoverCache

	// Task queue and enrichment progress (optional)
	TaskQueue          TaskQueue
	SyncProgress       SyncStatusReader
	AuditRetentionDays int

	// Authentication
	AuthConfig     config.Auth
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthController *auth.Controller
	CSRFSecret     []byte
}
