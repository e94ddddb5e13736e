package http

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/readnext/internal/entities"
)

type fakeProgress struct {
	progress *entities.SyncProgress
	err      error
}

func (f fakeProgress) GetProgress() (*entities.SyncProgress, error) {
	return f.progress, f.err
}

func getMetadataStatus(t *testing.T, reader SyncStatusReader) (int, SyncStatusResponse) {
	t.Helper()
	router := gin.New()
	router.GET("/api/sync/metadata/status", NewSyncController(reader).GetMetadataStatus)

	w := doJSON(t, router, http.MethodGet, "/api/sync/metadata/status", nil)
	if w.Code != http.StatusOK {
		return w.Code, SyncStatusResponse{}
	}
	return w.Code, decode[SyncStatusResponse](t, w)
}

func TestSyncController_GetMetadataStatus(t *testing.T) {
	code, got := getMetadataStatus(t, fakeProgress{progress: &entities.SyncProgress{
		SyncType:   entities.SyncTypeEnrichment,
		Status:     entities.SyncStatusRunning,
		TotalItems: 10,
		Processed:  4,
	}})

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, entities.SyncStatusRunning, got.Status)
	assert.Equal(t, 4, got.Processed)
	assert.Equal(t, 40, got.Percent)
}

func TestSyncController_NeverRun(t *testing.T) {
	code, got := getMetadataStatus(t, fakeProgress{err: gorm.ErrRecordNotFound})

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, entities.SyncStatusIdle, got.Status)
	assert.Zero(t, got.Percent)
}

func TestSyncController_Error(t *testing.T) {
	code, _ := getMetadataStatus(t, fakeProgress{err: errors.New("disk I/O error")})

	assert.Equal(t, http.StatusInternalServerError, code)
}
