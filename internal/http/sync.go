package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/readnext/internal/entities"
)

// SyncStatusResponse is a progress row plus its completion percentage.
type SyncStatusResponse struct {
	entities.SyncProgress
	Percent int `json:"percent"`
}

// SyncController reports bulk metadata enrichment progress.
type SyncController struct {
	progress SyncStatusReader
}

func NewSyncController(progress SyncStatusReader) *SyncController {
	return &SyncController{progress: progress}
}

// GetMetadataStatus handles GET /api/sync/metadata/status. Before the first
// run the status is idle.
func (sc *SyncController) GetMetadataStatus(c *gin.Context) {
	progress, err := sc.progress.GetProgress()
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusOK, SyncStatusResponse{
			SyncProgress: entities.SyncProgress{SyncType: entities.SyncTypeEnrichment, Status: entities.SyncStatusIdle},
		})
		return
	}
	if err != nil {
		respondInternalError(c, err, "get sync progress")
		return
	}
	c.JSON(http.StatusOK, SyncStatusResponse{SyncProgress: *progress, Percent: progress.PercentDone()})
}
