package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readnext/internal/llm"
	"github.com/mrlokans/readnext/internal/recognition"
	"github.com/mrlokans/readnext/internal/resilience"
	"github.com/mrlokans/readnext/internal/services"
)

// imageFormField is the multipart field carrying the cover photo.
const imageFormField = "image"

// RecognitionController drives photo-to-book recognition.
type RecognitionController struct {
	flows RecognitionFlows
	home  HomeInvalidator
	audit AuditLog
}

func NewRecognitionController(flows RecognitionFlows, auditLog AuditLog) *RecognitionController {
	return &RecognitionController{flows: flows, audit: auditOrNoop(auditLog)}
}

// WithHomeInvalidator drops the user's cached home feed after an accepted recognition.
func (rc *RecognitionController) WithHomeInvalidator(home HomeInvalidator) *RecognitionController {
	rc.home = home
	return rc
}

// AcceptResponse is returned when a recognition is added to the library.
type AcceptResponse struct {
	Book *services.AddBookResult `json:"book"`
	Flow recognition.FlowView    `json:"flow"`
}

// Identify handles POST /api/recognition, a single recognition without a flow.
func (rc *RecognitionController) Identify(c *gin.Context) {
	contentType, data, ok := rc.readImage(c)
	if !ok {
		return
	}

	userID := GetUserID(c)
	rec, err := rc.flows.Identify(c.Request.Context(), contentType, data)
	if err != nil {
		rc.logOutcome(userID, nil, err)
		rc.respondError(c, err, nil)
		return
	}

	rc.logOutcome(userID, rec, nil)
	c.JSON(http.StatusOK, rec)
}

// CreateFlow handles POST /api/recognition/flows.
func (rc *RecognitionController) CreateFlow(c *gin.Context) {
	respondCreated(c, rc.flows.CreateFlow(GetUserID(c)))
}

// GetFlow handles GET /api/recognition/flows/:id.
func (rc *RecognitionController) GetFlow(c *gin.Context) {
	view, err := rc.flows.Flow(c.Param("id"), GetUserID(c))
	if err != nil {
		rc.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Upload handles POST /api/recognition/flows/:id/image. Recognition starts
// as soon as the image is accepted; the response carries the settled flow.
func (rc *RecognitionController) Upload(c *gin.Context) {
	contentType, data, ok := rc.readImage(c)
	if !ok {
		return
	}

	userID := GetUserID(c)
	view, err := rc.flows.Upload(c.Request.Context(), c.Param("id"), userID, contentType, data)
	rc.settle(c, userID, view, err)
}

// Retry handles POST /api/recognition/flows/:id/retry. The cached image is
// sent again.
func (rc *RecognitionController) Retry(c *gin.Context) {
	userID := GetUserID(c)
	view, err := rc.flows.Retry(c.Request.Context(), c.Param("id"), userID)
	rc.settle(c, userID, view, err)
}

// Accept handles POST /api/recognition/flows/:id/accept.
func (rc *RecognitionController) Accept(c *gin.Context) {
	var req recognition.AcceptRequest
	if !bindJSON(c, &req) {
		return
	}

	userID := GetUserID(c)
	title := req.Title
	if prior, err := rc.flows.Flow(c.Param("id"), userID); err == nil && title == "" && prior.Result != nil {
		title = prior.Result.Title
	}

	result, view, err := rc.flows.Accept(c.Request.Context(), c.Param("id"), userID, req)
	if err != nil {
		rc.respondError(c, err, &view)
		return
	}

	rc.audit.LogLibraryAdd(userID, result.BookID, title, req.Status, nil)
	invalidateHome(rc.home, userID)
	c.JSON(http.StatusOK, AcceptResponse{Book: result, Flow: view})
}

// Discard handles POST /api/recognition/flows/:id/discard.
func (rc *RecognitionController) Discard(c *gin.Context) {
	view, err := rc.flows.Discard(c.Param("id"), GetUserID(c))
	if err != nil {
		rc.respondError(c, err, &view)
		return
	}
	c.JSON(http.StatusOK, view)
}

// settle responds with the flow after an upload or retry.
func (rc *RecognitionController) settle(c *gin.Context, userID uint, view recognition.FlowView, err error) {
	if err != nil {
		if !errors.Is(err, recognition.ErrFlowNotFound) && !isConflict(err) {
			rc.logOutcome(userID, nil, err)
		}
		rc.respondError(c, err, &view)
		return
	}
	rc.logOutcome(userID, view.Result, nil)
	c.JSON(http.StatusOK, view)
}

func (rc *RecognitionController) logOutcome(userID uint, rec *recognition.Recognition, err error) {
	if err != nil {
		rc.audit.LogRecognition(userID, "", "", err)
		return
	}
	if rec != nil {
		rc.audit.LogRecognition(userID, rec.Title+" by "+rec.Author, string(rec.Confidence), nil)
	}
}

// readImage reads the uploaded photo. Bodies over the limit are cut at
// MaxBytes+1 so validation reports them as too large.
func (rc *RecognitionController) readImage(c *gin.Context) (string, []byte, bool) {
	maxBytes := rc.flows.Limits().MaxBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+1024*1024)

	fileHeader, err := c.FormFile(imageFormField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(c, http.StatusRequestEntityTooLarge, CodeTooLarge, recognition.ErrImageTooLarge.Error())
			return "", nil, false
		}
		respondBadRequest(c, "No image provided")
		return "", nil, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondInternalError(c, err, "open uploaded image")
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		respondInternalError(c, err, "read uploaded image")
		return "", nil, false
	}
	return fileHeader.Header.Get("Content-Type"), data, true
}

// respondError maps recognition failures to HTTP statuses. When the flow is
// known its view is returned in Details.
func (rc *RecognitionController) respondError(c *gin.Context, err error, view *recognition.FlowView) {
	var details any
	if view != nil && view.ID != "" {
		details = view
	}

	var serr *services.Error
	switch {
	case errors.As(err, &serr):
		respondServiceError(c, err, "recognition")
	case errors.Is(err, recognition.ErrFlowNotFound):
		respondNotFound(c, "Recognition flow")
	case isConflict(err):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: CodeConflict, Details: details})
	case errors.Is(err, recognition.ErrInvalidImage),
		errors.Is(err, recognition.ErrImageTooLarge),
		errors.Is(err, recognition.ErrEmptyImage):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: CodeInvalid, Details: details})
	case errors.Is(err, recognition.ErrNotConfigured),
		errors.Is(err, llm.ErrNotConfigured),
		resilience.IsOpen(err):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Photo recognition is unavailable", Code: CodeUnavailable, Details: details})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to extract book from image", Code: CodeInternal, Details: details})
	}
}

func isConflict(err error) bool {
	return errors.Is(err, recognition.ErrFlowBusy) ||
		errors.Is(err, recognition.ErrInvalidTransition) ||
		errors.Is(err, recognition.ErrNoCachedImage)
}
