package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readnext/internal/auth"
	"github.com/mrlokans/readnext/internal/logging"
	"github.com/mrlokans/readnext/internal/services"
	"github.com/mrlokans/readnext/internal/validation"
)

// GetUserID returns the caller's user ID. Zero means anonymous.
func GetUserID(c *gin.Context) uint {
	return auth.GetUserID(c)
}

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data       any   `json:"data"`
	Total      int64 `json:"total"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	HasMore    bool  `json:"has_more"`
	TotalPages int   `json:"total_pages,omitempty"`
}

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalid         = "invalid_request"
	CodeUnauthenticated = "unauthenticated"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeUnavailable     = "unavailable"
	CodeTooLarge        = "too_large"
	CodeInternal        = "internal"
)

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: CodeInvalid})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found", Code: CodeNotFound})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	logging.Error().Err(err).Str("context", context).Str("path", c.FullPath()).Msg("Internal error")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: CodeInternal})
}

// respondError sends an error response with the given status code.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

// respondServiceError maps a services.Error to its HTTP status. The
// user-facing message is kept, the cause is only exposed for validation
// failures.
func respondServiceError(c *gin.Context, err error, context string) {
	var serr *services.Error
	if !errors.As(err, &serr) {
		respondInternalError(c, err, context)
		return
	}

	switch serr.Kind {
	case services.KindInvalid:
		resp := ErrorResponse{Error: serr.Message, Code: CodeInvalid}
		var verr *validation.Error
		if errors.As(serr.Err, &verr) {
			resp.Details = verr.Fields
		}
		c.JSON(http.StatusBadRequest, resp)
	case services.KindUnauthenticated:
		respondError(c, http.StatusUnauthorized, CodeUnauthenticated, serr.Message)
	case services.KindUnavailable:
		logging.Warn().Err(err).Str("context", context).Msg("Dependency unavailable")
		respondError(c, http.StatusServiceUnavailable, CodeUnavailable, serr.Message)
	default:
		logging.Error().Err(err).Str("context", context).Str("path", c.FullPath()).Msg(serr.Message)
		respondError(c, http.StatusInternalServerError, CodeInternal, serr.Message)
	}
}

// --- Success Response Helpers ---

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parseYearParam extracts a four digit year from URL parameters.
func parseYearParam(c *gin.Context) (int, bool) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		respondBadRequest(c, "invalid year")
		return 0, false
	}
	if err := services.ValidateGoalYear(year); err != nil {
		respondServiceError(c, err, "parse year")
		return 0, false
	}
	return year, true
}

// parseIntQuery reads an optional integer query parameter.
func parseIntQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		respondBadRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

// bindJSON decodes the request body and reports malformed JSON as a 400.
// An empty body leaves dst untouched.
func bindJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body", Code: CodeInvalid, Details: err.Error()})
		return false
	}
	return true
}
