package importers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mrlokans/readnext/internal/entities"
)

// Goodreads export column names.
const (
	ColumnTitle  = "Title"
	ColumnAuthor = "Author"
	ColumnShelf  = "Exclusive Shelf"
	ColumnRating = "My Rating"
)

var requiredGoodreadsColumns = []string{ColumnTitle, ColumnAuthor, ColumnShelf}

var lineBreak = regexp.MustCompile(`\r?\n`)

// GoodreadsBook is one accepted row of a Goodreads export.
type GoodreadsBook struct {
	Title  string                 `json:"title" binding:"required"`
	Author string                 `json:"author" binding:"required"`
	Status entities.ReadingStatus `json:"status" binding:"required,oneof=want_to_read reading read"`
	Rating *int                   `json:"rating" binding:"omitempty,min=1,max=5"`
}

// ParseResult holds the rows accepted from an export together with the
// per-row problems found while reading it.
type ParseResult struct {
	Books   []GoodreadsBook `json:"books"`
	Errors  []string        `json:"errors"`
	Skipped int             `json:"skipped"`
}

// Failed reports whether nothing usable was parsed and something went wrong.
func (r ParseResult) Failed() bool {
	return len(r.Books) == 0 && len(r.Errors) > 0
}

// ParseGoodreadsCSV reads a Goodreads library export.
//
// Blank lines are ignored and row numbers in error messages count the header
// as row 1. Rows on an unrecognized shelf are counted as skipped rather than
// reported as errors.
func ParseGoodreadsCSV(content string) ParseResult {
	content = strings.TrimPrefix(content, "\ufeff")

	var lines []string
	for _, line := range lineBreak.Split(content, -1) {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	result := ParseResult{Books: []GoodreadsBook{}, Errors: []string{}}

	if len(lines) == 0 {
		result.Errors = append(result.Errors, "CSV file is empty")
		return result
	}

	columns := make(map[string]int)
	for i, header := range splitCSVLine(lines[0]) {
		columns[strings.TrimSpace(header)] = i
	}

	var missing []string
	for _, col := range requiredGoodreadsColumns {
		if _, ok := columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("Missing required columns: %s", strings.Join(missing, ", ")))
		return result
	}

	for i := 1; i < len(lines); i++ {
		values := splitCSVLine(lines[i])

		title := columnValue(values, columns, ColumnTitle)
		author := columnValue(values, columns, ColumnAuthor)
		shelf := columnValue(values, columns, ColumnShelf)
		rating := columnValue(values, columns, ColumnRating)
		if rating == "" {
			rating = "0"
		}

		if title == "" || author == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: Missing title or author", i+1))
			continue
		}

		status, ok := MapShelf(shelf)
		if !ok {
			result.Skipped++
			continue
		}

		result.Books = append(result.Books, GoodreadsBook{
			Title:  title,
			Author: author,
			Status: status,
			Rating: ParseRating(rating),
		})
	}

	return result
}

// MapShelf translates a Goodreads exclusive shelf into a reading status.
func MapShelf(shelf string) (entities.ReadingStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(shelf)) {
	case "read":
		return entities.StatusRead, true
	case "currently-reading":
		return entities.StatusReading, true
	case "to-read":
		return entities.StatusWantToRead, true
	}
	return "", false
}

// ParseRating reads the leading integer of s. Unparseable or zero ratings
// mean "not rated"; anything else is clamped to 1..5.
func ParseRating(s string) *int {
	n, ok := leadingInt(strings.TrimSpace(s))
	if !ok || n == 0 {
		return nil
	}
	n = max(entities.MinRating, min(n, entities.MaxRating))
	return &n
}

// leadingInt parses an optional sign followed by digits, ignoring anything
// after the digits ("4.0" is 4).
func leadingInt(s string) (int, bool) {
	i, sign := 0, 1
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		if s[i] == '-' {
			sign = -1
		}
		i++
	}

	start, n := i, 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		if n < 1_000_000 {
			n = n*10 + int(s[i]-'0')
		}
	}
	if i == start {
		return 0, false
	}
	return sign * n, true
}

// splitCSVLine splits one line on commas outside double quotes. A doubled
// quote inside a quoted section is a literal quote. Fields are trimmed.
func splitCSVLine(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				current.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}

	return append(fields, strings.TrimSpace(current.String()))
}

func columnValue(values []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(values) {
		return ""
	}
	return strings.TrimSpace(values[idx])
}
