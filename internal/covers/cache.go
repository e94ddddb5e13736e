// Package covers keeps local copies of book cover images so the library
// does not hot-link third-party image hosts.
package covers

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/mrlokans/readnext/internal/logging"
)

// DefaultMaxBytes caps a downloaded cover.
const DefaultMaxBytes = 5 * 1024 * 1024

var (
	ErrNotAnImage    = errors.New("cover is not an image")
	ErrCoverTooLarge = errors.New("cover exceeds the size limit")
)

// Cache handles local caching of book cover images.
type Cache struct {
	cacheDir   string
	maxBytes   int64
	httpClient *http.Client
}

// NewCache creates a new cover cache at the specified directory.
func NewCache(cacheDir string) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	return &Cache{
		cacheDir: cacheDir,
		maxBytes: DefaultMaxBytes,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// GetCover returns the cached cover for a book, or fetches and caches it if not present.
// Returns the file path to the cached cover, or empty string if unavailable.
func (c *Cache) GetCover(ctx context.Context, bookID uint, coverURL string) (string, error) {
	if coverURL == "" {
		return "", nil
	}

	prefix := c.coverPrefix(bookID, coverURL)
	if matches, _ := filepath.Glob(filepath.Join(c.cacheDir, prefix+".*")); len(matches) > 0 {
		return matches[0], nil
	}

	path, err := c.fetchAndCache(ctx, coverURL, prefix)
	if err != nil {
		logging.Warn().Err(err).Uint("book_id", bookID).Str("url", coverURL).Msg("Failed to cache cover")
		return "", err
	}
	return path, nil
}

// InvalidateCover removes the cached cover for a book.
func (c *Cache) InvalidateCover(bookID uint) error {
	pattern := filepath.Join(c.cacheDir, fmt.Sprintf("cover_%d_*", bookID))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return nil
}

// coverPrefix is the file name without extension, derived from the book ID
// and a hash of the URL so a changed cover is fetched again.
func (c *Cache) coverPrefix(bookID uint, coverURL string) string {
	hash := sha256.Sum256([]byte(coverURL))
	return fmt.Sprintf("cover_%d_%x", bookID, hash[:8])
}

// fetchAndCache downloads a cover, checks that it really is an image and
// writes it atomically under prefix plus the detected extension.
func (c *Cache) fetchAndCache(ctx context.Context, url, prefix string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "ReadNext/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch cover: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > c.maxBytes {
		return "", ErrCoverTooLarge
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("%w: detected %s", ErrNotAnImage, mtype.String())
	}

	tmpFile, err := os.CreateTemp(c.cacheDir, "cover_tmp_")
	if err != nil {
		return "", err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return "", err
	}
	if err := tmpFile.Close(); err != nil {
		return "", err
	}

	cachePath := filepath.Join(c.cacheDir, prefix+mtype.Extension())
	if err := os.Rename(tmpPath, cachePath); err != nil {
		return "", err
	}
	return cachePath, nil
}

// CacheDir returns the cache directory path.
func (c *Cache) CacheDir() string {
	return c.cacheDir
}
