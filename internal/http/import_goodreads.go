package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readnext/internal/audit"
	"github.com/mrlokans/readnext/internal/importers"
)

// csvFormField is the multipart field carrying the Goodreads export.
const csvFormField = "file"

// GoodreadsImportController previews and imports Goodreads CSV exports.
type GoodreadsImportController struct {
	importer    GoodreadsImporter
	home        HomeInvalidator
	audit       AuditLog
	maxCSVBytes int64
}

func NewGoodreadsImportController(importer GoodreadsImporter, auditLog AuditLog, maxCSVBytes int64) *GoodreadsImportController {
	if maxCSVBytes <= 0 {
		maxCSVBytes = 5 * 1024 * 1024
	}
	return &GoodreadsImportController{
		importer:    importer,
		audit:       auditOrNoop(auditLog),
		maxCSVBytes: maxCSVBytes,
	}
}

// WithHomeInvalidator drops the user's cached home feed after an import
// writes to the library.
func (gc *GoodreadsImportController) WithHomeInvalidator(home HomeInvalidator) *GoodreadsImportController {
	gc.home = home
	return gc
}

// PreviewResponse is the parse result shown before an import is confirmed.
type PreviewResponse struct {
	Books   []importers.GoodreadsBook `json:"books"`
	Errors  []string                  `json:"errors"`
	Skipped int                       `json:"skipped"`
	Total   int                       `json:"total"`
}

// ImportResponse reports an import run together with rows the parser
// rejected or skipped.
type ImportResponse struct {
	importers.ImportResult
	Skipped     int      `json:"skipped"`
	ParseErrors []string `json:"parseErrors"`
}

// ImportRowsRequest imports rows confirmed from a preview.
type ImportRowsRequest struct {
	Books []importers.GoodreadsBook `json:"books" binding:"required,min=1,max=10000,dive"`
}

// Preview handles POST /api/import/goodreads/preview. Nothing is written.
func (gc *GoodreadsImportController) Preview(c *gin.Context) {
	content, ok := gc.readCSV(c)
	if !ok {
		return
	}

	parsed := importers.ParseGoodreadsCSV(content)
	if parsed.Failed() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: parsed.Errors[0], Code: CodeInvalid, Details: parsed.Errors})
		return
	}

	c.JSON(http.StatusOK, PreviewResponse{
		Books:   nonNilRows(parsed.Books),
		Errors:  nonNilStrings(parsed.Errors),
		Skipped: parsed.Skipped,
		Total:   len(parsed.Books),
	})
}

// Import handles POST /api/import/goodreads. It accepts either a multipart
// CSV upload or a JSON body of rows returned by Preview.
func (gc *GoodreadsImportController) Import(c *gin.Context) {
	userID := GetUserID(c)

	var (
		parsed importers.ParseResult
		file   string
	)
	if c.ContentType() == gin.MIMEJSON {
		var req ImportRowsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid import rows", Code: CodeInvalid, Details: err.Error()})
			return
		}
		parsed = normalizeRows(req.Books)
		if len(parsed.Books) == 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: parsed.Errors[0], Code: CodeInvalid, Details: parsed.Errors})
			return
		}
	} else {
		content, ok := gc.readCSV(c)
		if !ok {
			return
		}
		parsed = importers.ParseGoodreadsCSV(content)
		if parsed.Failed() {
			gc.audit.LogImport(userID, audit.ImportSummary{Source: "goodreads", Failed: len(parsed.Errors)}, errors.New(parsed.Errors[0]))
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: parsed.Errors[0], Code: CodeInvalid, Details: parsed.Errors})
			return
		}
		file = gc.audit.ArchiveCSV([]byte(content))
	}

	result := gc.importer.Import(c.Request.Context(), userID, parsed.Books)

	var importErr error
	if result.Failed > 0 && result.Imported+result.Updated == 0 {
		importErr = errors.New(result.Errors[0])
	}
	if len(result.Errors) > 0 || len(parsed.Errors) > 0 {
		gc.audit.ArchiveReport(map[string]any{
			"file":        file,
			"result":      result,
			"parseErrors": parsed.Errors,
			"skipped":     parsed.Skipped,
		})
	}
	gc.audit.LogImport(userID, audit.ImportSummary{
		Source:   "goodreads",
		File:     file,
		Imported: result.Imported,
		Updated:  result.Updated,
		Failed:   result.Failed,
		Skipped:  parsed.Skipped,
	}, importErr)

	if result.Imported+result.Updated > 0 {
		invalidateHome(gc.home, userID)
	}

	result.Errors = nonNilStrings(result.Errors)
	status := http.StatusOK
	if userID == 0 {
		status = http.StatusUnauthorized
	}
	c.JSON(status, ImportResponse{
		ImportResult: result,
		Skipped:      parsed.Skipped,
		ParseErrors:  nonNilStrings(parsed.Errors),
	})
}

// readCSV reads the uploaded export. Only .csv files within the size limit
// are accepted.
func (gc *GoodreadsImportController) readCSV(c *gin.Context) (string, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, gc.maxCSVBytes+64*1024)

	fileHeader, err := c.FormFile(csvFormField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			gc.respondTooLarge(c)
			return "", false
		}
		respondBadRequest(c, "No CSV file provided")
		return "", false
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".csv") {
		respondBadRequest(c, "Please upload a CSV file")
		return "", false
	}
	if fileHeader.Size > gc.maxCSVBytes {
		gc.respondTooLarge(c)
		return "", false
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondInternalError(c, err, "open uploaded CSV")
		return "", false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, gc.maxCSVBytes+1))
	if err != nil {
		respondInternalError(c, err, "read uploaded CSV")
		return "", false
	}
	if int64(len(data)) > gc.maxCSVBytes {
		gc.respondTooLarge(c)
		return "", false
	}
	return string(data), true
}

func (gc *GoodreadsImportController) respondTooLarge(c *gin.Context) {
	respondError(c, http.StatusRequestEntityTooLarge, CodeTooLarge,
		fmt.Sprintf("CSV file must be less than %dMB", gc.maxCSVBytes/(1024*1024)))
}

// normalizeRows trims confirmed rows and rejects those left without a title
// or author. Row numbers count from 1.
func normalizeRows(rows []importers.GoodreadsBook) importers.ParseResult {
	var parsed importers.ParseResult
	for i, row := range rows {
		row.Title = strings.TrimSpace(row.Title)
		row.Author = strings.TrimSpace(row.Author)
		if row.Title == "" || row.Author == "" {
			parsed.Errors = append(parsed.Errors, fmt.Sprintf("Row %d: Missing title or author", i+1))
			continue
		}
		parsed.Books = append(parsed.Books, row)
	}
	return parsed
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nonNilRows(rows []importers.GoodreadsBook) []importers.GoodreadsBook {
	if rows == nil {
		return []importers.GoodreadsBook{}
	}
	return rows
}
