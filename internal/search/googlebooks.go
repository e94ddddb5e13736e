// Package search queries the Google Books volumes API.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/mrlokans/readnext/internal/logging"
	"github.com/mrlokans/readnext/internal/resilience"
)

const (
	DefaultMaxResults = 8
	MaxMaxResults     = 40

	unknownTitle  = "Unknown Title"
	unknownAuthor = "Unknown Author"
)

// GoogleBook is one search hit.
type GoogleBook struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Description   string   `json:"description,omitempty"`
	CoverImage    string   `json:"coverImage,omitempty"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	PageCount     int      `json:"pageCount,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	AverageRating float64  `json:"averageRating,omitempty"`
}

// Config configures the Google Books client.
type Config struct {
	BaseURL           string
	APIKey            string
	DefaultMaxResults int
	RequestsPerSec    float64
	Timeout           time.Duration
	BreakerFailures   uint32
	BreakerOpenDelay  time.Duration
}

// Client searches Google Books. Outbound requests are rate limited and
// guarded by a circuit breaker.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	defaultMax int
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]GoogleBook]
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.googleapis.com/books/v1"
	}
	if cfg.DefaultMaxResults <= 0 {
		cfg.DefaultMaxResults = DefaultMaxResults
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		defaultMax: cfg.DefaultMaxResults,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 2),
		breaker: resilience.NewBreaker[[]GoogleBook](resilience.BreakerConfig{
			Name:             "google-books",
			FailureThreshold: cfg.BreakerFailures,
			OpenTimeout:      cfg.BreakerOpenDelay,
		}),
	}
}

// Search returns volumes matching query. A blank query returns no results
// without calling the API. maxResults <= 0 uses the configured default;
// larger values are capped at 40.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]GoogleBook, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []GoogleBook{}, nil
	}
	if maxResults <= 0 {
		maxResults = c.defaultMax
	}
	maxResults = min(maxResults, MaxMaxResults)

	books, err := c.breaker.Execute(func() ([]GoogleBook, error) {
		books, err := c.fetch(ctx, query, maxResults)
		if err != nil && errors.Is(ctx.Err(), context.Canceled) {
			// Failures after the caller left do not count against the API.
			return nil, fmt.Errorf("search cancelled: %w", ctx.Err())
		}
		return books, err
	})
	if errors.Is(err, context.Canceled) {
		logging.Debug().Str("query", query).Msg("Google Books search cancelled")
		return nil, err
	}
	if err != nil {
		logging.Error().Err(err).Str("query", query).Msg("Failed to search Google Books")
		return nil, err
	}
	return books, nil
}

func (c *Client) fetch(ctx context.Context, query string, maxResults int) ([]GoogleBook, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("printType", "books")
	params.Set("orderBy", "relevance")
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/volumes?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search volumes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Google Books API error: %d", resp.StatusCode)
	}

	var payload volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	books := make([]GoogleBook, 0, len(payload.Items))
	for _, item := range payload.Items {
		books = append(books, item.toGoogleBook())
	}
	return books, nil
}

type volumesResponse struct {
	TotalItems int          `json:"totalItems"`
	Items      []volumeItem `json:"items"`
}

type volumeItem struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Description   string   `json:"description"`
	PublishedDate string   `json:"publishedDate"`
	PageCount     int      `json:"pageCount"`
	Categories    []string `json:"categories"`
	AverageRating float64  `json:"averageRating"`
	ImageLinks    struct {
		Thumbnail      string `json:"thumbnail"`
		SmallThumbnail string `json:"smallThumbnail"`
	} `json:"imageLinks"`
}

func (v volumeItem) toGoogleBook() GoogleBook {
	info := v.VolumeInfo

	book := GoogleBook{
		ID:            v.ID,
		Title:         info.Title,
		Author:        strings.Join(info.Authors, ", "),
		Description:   info.Description,
		CoverImage:    strings.Replace(info.ImageLinks.Thumbnail, "http://", "https://", 1),
		PublishedDate: info.PublishedDate,
		PageCount:     info.PageCount,
		Categories:    info.Categories,
		AverageRating: info.AverageRating,
	}
	if book.Title == "" {
		book.Title = unknownTitle
	}
	if book.Author == "" {
		book.Author = unknownAuthor
	}
	return book
}
