package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const userAgent = "readnext/1.0 (https://github.com/mrlokans/readnext)"

// BookMetadata contains enriched book information from external sources.
type BookMetadata struct {
	Title           string   `json:"title,omitempty"`
	Author          string   `json:"author,omitempty"`
	ISBN            string   `json:"isbn,omitempty"`
	CoverURL        string   `json:"cover_url,omitempty"`
	PublicationYear int      `json:"publication_year,omitempty"`
	Description     string   `json:"description,omitempty"`
	Subjects        []string `json:"subjects,omitempty"`
	OpenLibraryKey  string   `json:"open_library_key,omitempty"`
}

// OpenLibraryClient fetches book metadata from the OpenLibrary API.
type OpenLibraryClient struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// NewOpenLibraryClient creates a client that issues at most requestsPerSec
// requests per second. Non-positive values fall back to one per second.
func NewOpenLibraryClient(baseURL string, requestsPerSec float64) *OpenLibraryClient {
	if baseURL == "" {
		baseURL = "https://openlibrary.org"
	}
	if requestsPerSec <= 0 {
		requestsPerSec = 1
	}
	return &OpenLibraryClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), 1),
	}
}

// SearchByISBN looks up a book by its ISBN and returns metadata.
func (c *OpenLibraryClient) SearchByISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	isbn = normalizeISBN(isbn)
	if isbn == "" {
		return nil, fmt.Errorf("invalid ISBN")
	}

	var bookData openLibraryBook
	status, err := c.getJSON(ctx, fmt.Sprintf("%s/isbn/%s.json", c.baseURL, isbn), &bookData)
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("ISBN not found: %s", isbn)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch ISBN data: %w", err)
	}

	metadata := convertToMetadata(&bookData, isbn)

	if len(bookData.Authors) > 0 && metadata.Author == "" {
		if name, err := c.fetchAuthorName(ctx, bookData.Authors[0].Key); err == nil {
			metadata.Author = name
		}
	}
	if metadata.Description == "" && len(bookData.Works) > 0 {
		if desc, err := c.fetchWorkDescription(ctx, bookData.Works[0].Key); err == nil {
			metadata.Description = desc
		}
	}

	return metadata, nil
}

// SearchByTitle looks up a book by title and author, returning the best match.
func (c *OpenLibraryClient) SearchByTitle(ctx context.Context, title, author string) (*BookMetadata, error) {
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}

	params := url.Values{}
	params.Set("title", title)
	if author != "" {
		params.Set("author", author)
	}
	params.Set("limit", "5")
	params.Set("fields", "key,title,author_name,first_publish_year,isbn,cover_i,subject")

	var searchResult openLibrarySearchResult
	if _, err := c.getJSON(ctx, c.baseURL+"/search.json?"+params.Encode(), &searchResult); err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}

	if len(searchResult.Docs) == 0 {
		return nil, fmt.Errorf("no results found for: %s", title)
	}

	bestDoc := findBestMatch(searchResult.Docs, title, author)
	metadata := convertSearchDocToMetadata(bestDoc)

	if bestDoc.Key != "" {
		if desc, err := c.fetchWorkDescription(ctx, bestDoc.Key); err == nil {
			metadata.Description = desc
		}
	}

	return metadata, nil
}

// getJSON waits for the rate limiter, performs a GET and decodes a 200
// response into out. The HTTP status is returned even on error.
func (c *OpenLibraryClient) getJSON(ctx context.Context, rawURL string, out any) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func findBestMatch(docs []openLibrarySearchDoc, title, author string) *openLibrarySearchDoc {
	titleLower := strings.ToLower(title)
	authorLower := strings.ToLower(author)

	var bestMatch *openLibrarySearchDoc
	bestScore := -1

	for i := range docs {
		doc := &docs[i]
		score := 0

		if strings.ToLower(doc.Title) == titleLower {
			score += 10
		} else if strings.Contains(strings.ToLower(doc.Title), titleLower) {
			score += 5
		}

		if author != "" {
			for _, docAuthor := range doc.AuthorName {
				if strings.ToLower(docAuthor) == authorLower {
					score += 10
					break
				} else if strings.Contains(strings.ToLower(docAuthor), authorLower) {
					score += 5
					break
				}
			}
		}

		if doc.CoverI != 0 {
			score += 2
		}
		if len(doc.Subject) > 0 {
			score++
		}

		if score > bestScore {
			bestScore = score
			bestMatch = doc
		}
	}

	return bestMatch
}

// fetchWorkDescription reads the description of a work, e.g. "/works/OL45804W".
func (c *OpenLibraryClient) fetchWorkDescription(ctx context.Context, workKey string) (string, error) {
	if workKey == "" {
		return "", fmt.Errorf("empty work key")
	}

	var work struct {
		Description any `json:"description"`
	}
	if _, err := c.getJSON(ctx, fmt.Sprintf("%s%s.json", c.baseURL, workKey), &work); err != nil {
		return "", err
	}
	return descriptionText(work.Description), nil
}

func (c *OpenLibraryClient) fetchAuthorName(ctx context.Context, authorKey string) (string, error) {
	if authorKey == "" {
		return "", fmt.Errorf("empty author key")
	}

	var authorData struct {
		Name string `json:"name"`
	}
	if _, err := c.getJSON(ctx, fmt.Sprintf("%s%s.json", c.baseURL, authorKey), &authorData); err != nil {
		return "", err
	}
	return authorData.Name, nil
}

func convertToMetadata(book *openLibraryBook, isbn string) *BookMetadata {
	metadata := &BookMetadata{
		Title:          book.Title,
		ISBN:           isbn,
		OpenLibraryKey: book.Key,
		Description:    descriptionText(book.Description),
		Subjects:       book.Subjects,
	}

	if isbn != "" {
		metadata.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/isbn/%s-L.jpg", isbn)
	}
	if book.PublishDate != "" {
		metadata.PublicationYear = extractYear(book.PublishDate)
	}

	return metadata
}

func convertSearchDocToMetadata(doc *openLibrarySearchDoc) *BookMetadata {
	metadata := &BookMetadata{
		Title:           doc.Title,
		PublicationYear: doc.FirstPublishYear,
		OpenLibraryKey:  doc.Key,
	}

	if len(doc.AuthorName) > 0 {
		metadata.Author = doc.AuthorName[0]
	}

	if doc.CoverI != 0 {
		metadata.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-L.jpg", doc.CoverI)
	} else if len(doc.ISBN) > 0 {
		metadata.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/isbn/%s-L.jpg", doc.ISBN[0])
	}
	if len(doc.ISBN) > 0 {
		metadata.ISBN = doc.ISBN[0]
	}

	if len(doc.Subject) > 0 {
		metadata.Subjects = doc.Subject
		if len(metadata.Subjects) > 20 {
			metadata.Subjects = metadata.Subjects[:20]
		}
	}

	return metadata
}

// descriptionText handles both description shapes: a plain string or
// {"type": "/type/text", "value": "..."}.
func descriptionText(v any) string {
	switch d := v.(type) {
	case string:
		return strings.TrimSpace(d)
	case map[string]any:
		if val, ok := d["value"].(string); ok {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

// normalizeISBN removes hyphens and spaces from ISBN.
func normalizeISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	isbn = strings.TrimSpace(isbn)

	if len(isbn) != 10 && len(isbn) != 13 {
		return ""
	}

	return isbn
}

// extractYear tries to extract a 4-digit year from a date string.
func extractYear(dateStr string) int {
	dateStr = strings.TrimSpace(dateStr)
	if len(dateStr) < 4 {
		return 0
	}

	formats := []string{
		"2006",
		"January 2, 2006",
		"Jan 2, 2006",
		"2006-01-02",
		"2006-01",
		"January 2006",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t.Year()
		}
	}

	for i := 0; i <= len(dateStr)-4; i++ {
		if dateStr[i] >= '0' && dateStr[i] <= '9' {
			var year int
			if _, err := fmt.Sscanf(dateStr[i:i+4], "%d", &year); err == nil && year > 1000 && year < 3000 {
				return year
			}
		}
	}

	return 0
}

type openLibraryBook struct {
	Key         string      `json:"key"`
	Title       string      `json:"title"`
	Authors     []authorRef `json:"authors"`
	Works       []authorRef `json:"works"`
	PublishDate string      `json:"publish_date"`
	Description any         `json:"description"`
	Subjects    []string    `json:"subjects"`
}

type authorRef struct {
	Key string `json:"key"`
}

type openLibrarySearchResult struct {
	NumFound int                    `json:"numFound"`
	Docs     []openLibrarySearchDoc `json:"docs"`
}

type openLibrarySearchDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	ISBN             []string `json:"isbn"`
	CoverI           int      `json:"cover_i"`
	Subject          []string `json:"subject"`
}
