package config

// Default paths for databases
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./readnext.db"
)

// Defaults for external services
const (
	DefaultRecommendationModel = "gpt-4o-2024-08-06"
	DefaultVisionModel         = "gpt-4o"
	DefaultGoogleBooksBaseURL  = "https://www.googleapis.com/books/v1"
	DefaultOpenLibraryBaseURL  = "https://openlibrary.org"
	DefaultSearchMaxResults    = 8
)

// Upload limits
const (
	DefaultMaxImageBytes = 10 * 1024 * 1024 // 10 MB
	DefaultMaxCSVBytes   = 5 * 1024 * 1024  // 5 MB
)
