package task

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/media-uniquer/internal/api/respond"
	"github.com/aliskhannn/media-uniquer/internal/model"
	"github.com/aliskhannn/media-uniquer/internal/repository/status"
	"github.com/aliskhannn/media-uniquer/internal/runner"
	tasksvc "github.com/aliskhannn/media-uniquer/internal/service/task"
)

// service defines the task operations the HTTP layer needs.
type service interface {
	Submit(ctx context.Context, rawURL string) (model.Task, error)
	Status(ctx context.Context, id string) (model.Status, error)
	Result(ctx context.Context, id string) (string, error)
}

// Handler provides HTTP handlers for task endpoints.
type Handler struct {
	service service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(s service) *Handler {
	return &Handler{service: s}
}

// UploadRequest is the body of POST /upload.
type UploadRequest struct {
	URL string `json:"url" binding:"required"`
}

// UploadResponse is returned once a task has been accepted.
type UploadResponse struct {
	TaskCode string `json:"task_code"`
	Message  string `json:"message"`
}

// Upload downloads the media at the given URL and starts processing it.
func (h *Handler) Upload(c *ginext.Context) {
	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("no url provided")
		respond.Fail(c, http.StatusBadRequest, "No URL provided")
		return
	}

	t, err := h.service.Submit(c.Request.Context(), req.URL)
	if err != nil {
		switch {
		case errors.Is(err, tasksvc.ErrInvalidURL):
			respond.Fail(c, http.StatusBadRequest, "Invalid URL")
		case errors.Is(err, tasksvc.ErrDownload):
			respond.Fail(c, http.StatusBadRequest, "Failed to download file")
		default:
			zlog.Logger.Err(err).Msg("failed to submit task")
			respond.Fail(c, http.StatusInternalServerError, "Failed to start processing")
		}
		return
	}

	respond.Accepted(c, UploadResponse{
		TaskCode: t.ID,
		Message:  "Processing started",
	})
}

// Status returns the status record of a task.
func (h *Handler) Status(c *ginext.Context) {
	s, err := h.service.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, status.ErrStatusNotFound) {
			respond.Fail(c, http.StatusNotFound, "Task not found")
			return
		}

		zlog.Logger.Err(err).Str("task_id", c.Param("id")).Msg("failed to get status")
		respond.Fail(c, http.StatusInternalServerError, "Failed to get status")
		return
	}

	respond.OK(c, s)
}

// Download serves the output file of a completed task.
func (h *Handler) Download(c *ginext.Context) {
	id := c.Param("id")

	path, err := h.service.Result(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, runner.ErrNotReady):
			respond.Fail(c, http.StatusAccepted, "File is still processing")
		case errors.Is(err, status.ErrStatusNotFound),
			errors.Is(err, runner.ErrTaskFailed),
			errors.Is(err, runner.ErrResultNotFound):
			respond.Fail(c, http.StatusNotFound, "File not found")
		default:
			zlog.Logger.Err(err).Str("task_id", id).Msg("failed to resolve result")
			respond.Fail(c, http.StatusInternalServerError, "Failed to get file")
		}
		return
	}

	// The sweeper may remove the file after the status check.
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			respond.Fail(c, http.StatusNotFound, "File not found")
			return
		}

		zlog.Logger.Err(err).Str("task_id", id).Msg("failed to open result")
		respond.Fail(c, http.StatusInternalServerError, "Failed to get file")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		respond.Fail(c, http.StatusInternalServerError, "Failed to get file")
		return
	}

	name := filepath.Base(path)
	respond.Attachment(c, contentType(name), name, info.Size(), f)
}

// Health reports that the process is serving.
func (h *Handler) Health(c *ginext.Context) {
	respond.OK(c, map[string]string{"status": "ok"})
}

func contentType(name string) string {
	if filepath.Ext(name) == ".mp4" {
		return "video/mp4"
	}
	return "image/png"
}
