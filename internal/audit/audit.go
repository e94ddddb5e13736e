package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mrlokans/readnext/internal/logging"
)

// Archive keeps the raw payloads of imports on disk so a failed or
// surprising import can be inspected later.
type Archive struct {
	Dir string
}

func NewArchive(dir string) *Archive {
	return &Archive{Dir: dir}
}

// SaveJSON writes data as indented JSON under a random file name and
// returns that name.
func (a *Archive) SaveJSON(data any) (string, error) {
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal data to JSON: %w", err)
	}
	return a.write(".json", payload)
}

// SaveCSV stores an uploaded CSV file verbatim.
func (a *Archive) SaveCSV(content []byte) (string, error) {
	return a.write(".csv", content)
}

// Purge removes archived files last modified before olderThan.
func (a *Archive) Purge(olderThan time.Time) (int, error) {
	entries, err := os.ReadDir(a.Dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read archive directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !isArchived(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(olderThan) {
			continue
		}
		if err := os.Remove(filepath.Join(a.Dir, entry.Name())); err != nil {
			logging.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to remove archived payload")
			continue
		}
		removed++
	}
	return removed, nil
}

func (a *Archive) write(ext string, payload []byte) (string, error) {
	if err := os.MkdirAll(a.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create audit directory: %w", err)
	}

	filename := uuid.NewString() + ext
	path := filepath.Join(a.Dir, filename)
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return "", fmt.Errorf("failed to write audit file: %w", err)
	}

	logging.Debug().Str("file", path).Int("bytes", len(payload)).Msg("Archived import payload")
	return filename, nil
}

func isArchived(name string) bool {
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".csv")
}
