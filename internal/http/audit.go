package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readnext/internal/entities"
)

const maxAuditPageSize = 200

// AuditController lists the current user's activity.
type AuditController struct {
	audit AuditLog
}

func NewAuditController(auditLog AuditLog) *AuditController {
	return &AuditController{audit: auditOrNoop(auditLog)}
}

// GetEvents handles GET /api/audit?type=&limit=&offset=.
func (ac *AuditController) GetEvents(c *gin.Context) {
	limit, ok := parseIntQuery(c, "limit", 50)
	if !ok {
		return
	}
	offset, ok := parseIntQuery(c, "offset", 0)
	if !ok {
		return
	}
	if limit < 1 || limit > maxAuditPageSize || offset < 0 {
		respondBadRequest(c, "limit must be between 1 and 200 and offset must not be negative")
		return
	}

	eventType := entities.AuditEventType(c.Query("type"))
	if eventType != "" && !eventType.Valid() {
		respondBadRequest(c, "unknown audit event type")
		return
	}
	events, total, err := ac.audit.GetEvents(GetUserID(c), eventType, limit, offset)
	if err != nil {
		respondInternalError(c, err, "get audit events")
		return
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	c.JSON(http.StatusOK, PaginatedResponse{
		Data:       events,
		Total:      total,
		Limit:      limit,
		Offset:     offset,
		HasMore:    int64(offset+len(events)) < total,
		TotalPages: totalPages,
	})
}
