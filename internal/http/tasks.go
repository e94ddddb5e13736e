package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/readnext/internal/tasks"
)

// TasksController exposes the background task queue.
type TasksController struct {
	queue              TaskQueue
	auditRetentionDays int
}

func NewTasksController(queue TaskQueue, auditRetentionDays int) *TasksController {
	return &TasksController{queue: queue, auditRetentionDays: auditRetentionDays}
}

// TaskTypeInfo describes a task that can be run on demand.
type TaskTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// TaskStatusResponse reports the state of an enqueued task.
type TaskStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// RunTaskResponse is returned when a task is enqueued.
type RunTaskResponse struct {
	TaskID string `json:"task_id"`
	Type   string `json:"type"`
}

// EnrichBookRequest optionally carries the book to enrich.
type EnrichBookRequest struct {
	BookID uint `json:"book_id"`
}

var taskTypes = []TaskTypeInfo{
	{Type: tasks.NameEnrichBook, Description: "Fetch OpenLibrary metadata for one book"},
	{Type: tasks.NameEnrichAllBooks, Description: "Fetch metadata for every book missing it"},
	{Type: tasks.NameCleanupAuditEvents, Description: "Delete expired audit events and archived imports"},
}

// ListTaskTypes handles GET /api/tasks/types.
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"task_types": taskTypes})
}

// GetTaskStatus handles GET /api/tasks/:id.
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	taskID := c.Param("id")
	status, err := tc.queue.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "get task status")
		return
	}
	if status == backlite.TaskStatusNotFound {
		respondNotFound(c, "Task")
		return
	}

	c.JSON(http.StatusOK, TaskStatusResponse{ID: taskID, Status: taskStatusToString(status)})
}

// RunTask handles POST /api/tasks/:type/run.
func (tc *TasksController) RunTask(c *gin.Context) {
	taskType := c.Param("type")

	var task backlite.Task
	if taskType == tasks.NameEnrichBook {
		var req EnrichBookRequest
		if !bindJSON(c, &req) {
			return
		}
		if req.BookID == 0 {
			respondBadRequest(c, "book_id is required for enrich_book")
			return
		}
		task = tasks.EnrichBookTask{BookID: req.BookID}
	} else {
		var ok bool
		task, ok = tasks.ManualTask(taskType, tc.auditRetentionDays)
		if !ok {
			respondNotFound(c, "Task type")
			return
		}
	}

	tc.enqueue(c, taskType, task)
}

// EnrichBook handles POST /api/books/:id/enrich.
func (tc *TasksController) EnrichBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	tc.enqueue(c, tasks.NameEnrichBook, tasks.EnrichBookTask{BookID: id})
}

func (tc *TasksController) enqueue(c *gin.Context, taskType string, task backlite.Task) {
	id, err := tc.queue.Enqueue(c.Request.Context(), task)
	if err != nil {
		respondInternalError(c, err, "enqueue "+taskType)
		return
	}
	respondAccepted(c, "Task enqueued", RunTaskResponse{TaskID: id, Type: taskType})
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
