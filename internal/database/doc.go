// Package database provides the data access layer for the application.
//
// The layer is organized into domain-specific sub-packages, each exposing a
// Repository over a shared *gorm.DB:
//
//	database/
//	├── database.go   # Connection setup, migrations, local user
//	├── books/        # Catalog records keyed by (title, author)
//	├── library/      # Per-user library entries
//	├── profiles/     # Taste profiles and reading goals
//	├── users/        # User lookups
//	├── audit/        # Audit event log
//	└── sync/         # Bulk job progress tracking
//
// Usage:
//
//	db, err := database.NewDatabase("./readnext.db")
//	booksRepo := books.NewRepository(db.DB)
//	book, err := booksRepo.FindByTitleAndAuthor("Dune", "Frank Herbert")
//
// Uniqueness of (title, author) and (user, book) is maintained by looking a
// record up before inserting it. There is no database constraint backing it.
package database
