package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readnext/internal/audit"
	"github.com/mrlokans/readnext/internal/auth"
	"github.com/mrlokans/readnext/internal/entities"
)

// recordingAudit keeps every call so tests can assert on the audit trail.
type recordingAudit struct {
	mu           sync.Mutex
	imports      []audit.ImportSummary
	importErrs   []error
	adds         []string
	addErrs      []error
	recognitions []string
	recommends   []string
	profiles     []string
	archivedCSV  [][]byte
	reports      []any
	events       []entities.AuditEvent
	lastQuery    entities.AuditEventType
}

func (r *recordingAudit) LogImport(userID uint, summary audit.ImportSummary, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.imports = append(r.imports, summary)
	r.importErrs = append(r.importErrs, err)
}

func (r *recordingAudit) LogLibraryAdd(userID, bookID uint, title string, status entities.ReadingStatus, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adds = append(r.adds, title)
	r.addErrs = append(r.addErrs, err)
}

func (r *recordingAudit) LogRecognition(userID uint, title, confidence string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		title = "error: " + err.Error()
	}
	r.recognitions = append(r.recognitions, title)
}

func (r *recordingAudit) LogRecommendation(userID uint, action string, count int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recommends = append(r.recommends, action)
}

func (r *recordingAudit) LogProfile(userID uint, action, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles = append(r.profiles, action)
}

func (r *recordingAudit) ArchiveCSV(content []byte) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.archivedCSV = append(r.archivedCSV, content)
	return "archived.csv"
}

func (r *recordingAudit) ArchiveReport(report any) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return "report.json"
}

func (r *recordingAudit) GetEvents(userID uint, eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastQuery = eventType
	total := int64(len(r.events))
	if offset >= len(r.events) {
		return []entities.AuditEvent{}, total, nil
	}
	end := min(offset+limit, len(r.events))
	return r.events[offset:end], total, nil
}

// withUser runs handler as the given user.
func withUser(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.ContextKeyUserID, userID)
		c.Next()
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doMultipart(t *testing.T, router http.Handler, path, field, filename, contentType string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="` + filename + `"`}
	if contentType != "" {
		header["Content-Type"] = []string{contentType}
	}
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
