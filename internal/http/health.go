package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readnext/internal/database"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// HealthController reports database connectivity and which optional
// integrations are configured. Only the database affects the status.
type HealthController struct {
	db       *database.Database
	version  string
	features map[string]bool
}

func NewHealthController(db *database.Database, version string, features map[string]bool) *HealthController {
	return &HealthController{
		db:       db,
		version:  version,
		features: features,
	}
}

// Status handles GET /health. It answers 503 when the database is unreachable.
func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string, len(h.features)+1)
	for name, enabled := range h.features {
		checks[name] = "not configured"
		if enabled {
			checks[name] = "configured"
		}
	}

	status, code := "healthy", http.StatusOK
	checks["database"] = h.pingDatabase(c.Request.Context())
	if checks["database"] != "ok" && checks["database"] != "not configured" {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	c.IndentedJSON(code, HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	})
}

func (h *HealthController) pingDatabase(ctx context.Context) string {
	if h.db == nil {
		return "not configured"
	}
	sqlDB, err := h.db.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
