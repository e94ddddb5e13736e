package config

import (
	"time"

	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // No authentication required (default)
	AuthModeLocal AuthMode = "local" // Local user database with sessions
)

type (
	Config struct {
		HTTP
		Global
		Logging
		Database
		Audit
		Tasks
		Auth
		OpenAI
		GoogleBooks
		OpenLibrary
		Enrichment
		Uploads
		Covers
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Logging struct {
		Level  string // debug, info, warn, error
		Format string // json or console
		Caller bool
	}
	Database struct {
		Path string
	}
	Audit struct {
		Dir             string // Directory for archived import payloads
		RetentionDays   int    // Days to keep audit events (default: 30)
		CleanupSchedule string // Cron format: "30 3 * * *" = daily at 03:30
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Auth struct {
		Mode            AuthMode
		SessionSecret   string
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	OpenAI struct {
		APIKey           string
		BaseURL          string // Empty means the public OpenAI endpoint
		Model            string // Model used for recommendations
		VisionModel      string // Model used for cover recognition
		Temperature      float32
		RequestTimeout   time.Duration
		BreakerFailures  uint32 // Consecutive failures before the breaker opens
		BreakerOpenDelay time.Duration
		HomeFeedTTL      time.Duration // How long a generated home feed is reused
	}
	GoogleBooks struct {
		BaseURL         string
		APIKey          string // Optional, raises the anonymous quota
		MaxResults      int
		RequestsPerSec  float64
		RequestTimeout  time.Duration
		BreakerFailures uint32
	}
	OpenLibrary struct {
		BaseURL        string
		RequestsPerSec float64
	}
	Enrichment struct {
		Enabled  bool
		Schedule string // Cron format: "0 4 * * *" = daily at 04:00
	}
	Uploads struct {
		MaxImageBytes    int64
		MaxCSVBytes      int64
		ImageMaxWidth    int // Photos wider than this are downscaled before recognition
		ImageJPEGQuality int
		FlowTTL          time.Duration // Idle recognition flows older than this are dropped
		FlowSweep        string        // Cron format for the flow sweep
	}
	Covers struct {
		Dir string // Empty means "<database dir>/covers"
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("audit_dir", "./audit")
	v.SetDefault("audit_retention_days", 30)
	v.SetDefault("audit_cleanup_schedule", "30 3 * * *")

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("log_caller", false)

	// Auth defaults
	v.SetDefault("auth_mode", "none")
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_token_expiry", "720h")     // 30 days
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	// External services
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_base_url", "")
	v.SetDefault("openai_model", DefaultRecommendationModel)
	v.SetDefault("openai_vision_model", DefaultVisionModel)
	v.SetDefault("openai_temperature", 0.7)
	v.SetDefault("openai_request_timeout", "60s")
	v.SetDefault("openai_breaker_failures", 5)
	v.SetDefault("openai_breaker_open_delay", "30s")
	v.SetDefault("openai_home_feed_ttl", "10m")
	v.SetDefault("google_books_base_url", DefaultGoogleBooksBaseURL)
	v.SetDefault("google_books_api_key", "")
	v.SetDefault("google_books_max_results", DefaultSearchMaxResults)
	v.SetDefault("google_books_requests_per_sec", 5)
	v.SetDefault("google_books_request_timeout", "10s")
	v.SetDefault("google_books_breaker_failures", 5)
	v.SetDefault("openlibrary_base_url", DefaultOpenLibraryBaseURL)
	v.SetDefault("openlibrary_requests_per_sec", 1)

	v.SetDefault("enrichment_enabled", true)
	v.SetDefault("enrichment_schedule", "0 4 * * *")

	v.SetDefault("upload_max_image_bytes", DefaultMaxImageBytes)
	v.SetDefault("upload_max_csv_bytes", DefaultMaxCSVBytes)
	v.SetDefault("upload_image_max_width", 1600)
	v.SetDefault("upload_image_jpeg_quality", 85)
	v.SetDefault("upload_flow_ttl", "1h")
	v.SetDefault("upload_flow_sweep", "*/10 * * * *")
	v.SetDefault("covers_dir", "")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Logging: Logging{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
			Caller: v.GetBool("LOG_CALLER"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Audit: Audit{
			Dir:             v.GetString("AUDIT_DIR"),
			RetentionDays:   v.GetInt("AUDIT_RETENTION_DAYS"),
			CleanupSchedule: v.GetString("AUDIT_CLEANUP_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Auth: Auth{
			Mode:             AuthMode(v.GetString("AUTH_MODE")),
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:      v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		OpenAI: OpenAI{
			APIKey:           v.GetString("OPENAI_API_KEY"),
			BaseURL:          v.GetString("OPENAI_BASE_URL"),
			Model:            v.GetString("OPENAI_MODEL"),
			VisionModel:      v.GetString("OPENAI_VISION_MODEL"),
			Temperature:      float32(v.GetFloat64("OPENAI_TEMPERATURE")),
			RequestTimeout:   v.GetDuration("OPENAI_REQUEST_TIMEOUT"),
			BreakerFailures:  v.GetUint32("OPENAI_BREAKER_FAILURES"),
			BreakerOpenDelay: v.GetDuration("OPENAI_BREAKER_OPEN_DELAY"),
			HomeFeedTTL:      v.GetDuration("OPENAI_HOME_FEED_TTL"),
		},
		GoogleBooks: GoogleBooks{
			BaseURL:         v.GetString("GOOGLE_BOOKS_BASE_URL"),
			APIKey:          v.GetString("GOOGLE_BOOKS_API_KEY"),
			MaxResults:      v.GetInt("GOOGLE_BOOKS_MAX_RESULTS"),
			RequestsPerSec:  v.GetFloat64("GOOGLE_BOOKS_REQUESTS_PER_SEC"),
			RequestTimeout:  v.GetDuration("GOOGLE_BOOKS_REQUEST_TIMEOUT"),
			BreakerFailures: v.GetUint32("GOOGLE_BOOKS_BREAKER_FAILURES"),
		},
		OpenLibrary: OpenLibrary{
			BaseURL:        v.GetString("OPENLIBRARY_BASE_URL"),
			RequestsPerSec: v.GetFloat64("OPENLIBRARY_REQUESTS_PER_SEC"),
		},
		Enrichment: Enrichment{
			Enabled:  v.GetBool("ENRICHMENT_ENABLED"),
			Schedule: v.GetString("ENRICHMENT_SCHEDULE"),
		},
		Uploads: Uploads{
			MaxImageBytes:    v.GetInt64("UPLOAD_MAX_IMAGE_BYTES"),
			MaxCSVBytes:      v.GetInt64("UPLOAD_MAX_CSV_BYTES"),
			ImageMaxWidth:    v.GetInt("UPLOAD_IMAGE_MAX_WIDTH"),
			ImageJPEGQuality: v.GetInt("UPLOAD_IMAGE_JPEG_QUALITY"),
			FlowTTL:          v.GetDuration("UPLOAD_FLOW_TTL"),
			FlowSweep:        v.GetString("UPLOAD_FLOW_SWEEP"),
		},
		Covers: Covers{
			Dir: v.GetString("COVERS_DIR"),
		},
	}
}
