package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gorm.io/gorm"

	"github.com/mrlokans/readnext/internal/auth"
	"github.com/mrlokans/readnext/internal/config"
	"github.com/mrlokans/readnext/internal/database"
	"github.com/mrlokans/readnext/internal/database/books"
	"github.com/mrlokans/readnext/internal/database/library"
	"github.com/mrlokans/readnext/internal/database/users"
	"github.com/mrlokans/readnext/internal/importers"
	"github.com/mrlokans/readnext/internal/logging"
)

// GoodreadsImportCommand imports a Goodreads library export into a user's
// library without starting the server.
type GoodreadsImportCommand struct {
	CSVPath      string
	DatabasePath string
	UserID       uint
	Verbose      bool
	DryRun       bool

	// Out receives the report. Defaults to os.Stdout.
	Out io.Writer
}

func NewGoodreadsImportCommand() *GoodreadsImportCommand {
	return &GoodreadsImportCommand{Out: os.Stdout}
}

func (cmd *GoodreadsImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("goodreads-import", flag.ContinueOnError)

	fs.StringVar(&cmd.CSVPath, "file", "", "Path to the Goodreads library export CSV (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the application database")
	fs.UintVar(&cmd.UserID, "user", auth.DefaultUserID, "ID of the user whose library receives the books")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Print every parsed row and row error")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Parse the file and show what would be imported without writing")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s goodreads-import -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import a Goodreads library export (My Books > Import and export).\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s goodreads-import -file goodreads_library_export.csv -dry-run -verbose\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s goodreads-import -file goodreads_library_export.csv -user 2\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.CSVPath == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	if cmd.UserID == 0 {
		return fmt.Errorf("-user must be a positive user ID")
	}
	return nil
}

func (cmd *GoodreadsImportCommand) Run(ctx context.Context) error {
	out := cmd.Out
	if out == nil {
		out = os.Stdout
	}

	fmt.Fprintln(out, "Goodreads Import")
	fmt.Fprintln(out, "================")
	if cmd.DryRun {
		fmt.Fprintln(out, "DRY RUN MODE - No changes will be made")
	}

	content, err := os.ReadFile(cmd.CSVPath)
	if err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}
	fmt.Fprintf(out, "File: %s\n", cmd.CSVPath)

	parsed := importers.ParseGoodreadsCSV(string(content))
	if parsed.Failed() {
		return fmt.Errorf("failed to parse export: %s", parsed.Errors[0])
	}

	fmt.Fprintf(out, "Found %d books (%d skipped, %d row errors)\n", len(parsed.Books), parsed.Skipped, len(parsed.Errors))
	if cmd.Verbose {
		for i, b := range parsed.Books {
			rating := "unrated"
			if b.Rating != nil {
				rating = fmt.Sprintf("%d/5", *b.Rating)
			}
			fmt.Fprintf(out, "%d. %q by %s [%s, %s]\n", i+1, b.Title, b.Author, b.Status, rating)
		}
		for _, msg := range parsed.Errors {
			fmt.Fprintf(out, "  [SKIPPED] %s\n", msg)
		}
	}

	if cmd.DryRun {
		fmt.Fprintln(out, "\nDry run complete. Use without -dry-run to import.")
		return nil
	}

	absDBPath, err := filepath.Abs(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for database: %w", err)
	}

	db, err := database.NewDatabase(absDBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := cmd.ensureUser(db); err != nil {
		return err
	}

	pipeline := importers.NewPipeline(books.NewRepository(db.DB), library.NewRepository(db.DB))
	result := pipeline.Import(ctx, cmd.UserID, parsed.Books)

	logging.Info().
		Str("file", cmd.CSVPath).
		Uint("user_id", cmd.UserID).
		Int("imported", result.Imported).
		Msg("Goodreads import from command line finished")

	fmt.Fprintln(out, "\n=== Import Summary ===")
	fmt.Fprintf(out, "Imported: %d\n", result.Imported)
	fmt.Fprintf(out, "Updated:  %d\n", result.Updated)
	fmt.Fprintf(out, "Failed:   %d\n", result.Failed)
	for _, msg := range result.Errors {
		fmt.Fprintf(out, "  [ERROR] %s\n", msg)
	}

	if result.Failed > 0 && result.Imported+result.Updated == 0 {
		return fmt.Errorf("no books were imported")
	}
	return nil
}

// ensureUser creates the local account for the default user and requires
// any other user to exist already.
func (cmd *GoodreadsImportCommand) ensureUser(db *database.Database) error {
	if cmd.UserID == auth.DefaultUserID {
		_, err := db.EnsureLocalUser(cmd.UserID)
		return err
	}

	_, err := users.NewRepository(db.DB).GetUserByID(cmd.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("user %d does not exist", cmd.UserID)
	}
	return err
}
