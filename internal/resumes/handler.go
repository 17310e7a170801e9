package resumes

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-screening/internal/shared/server/middleware"
	"resume-screening/internal/shared/server/respond"
)

// Retrier re-enqueues a FAILED resume. Errors wrapping ErrStatusConflict
// mean the resume is not retryable.
type Retrier interface {
	Retry(ctx context.Context, id, requestID string) (Resume, error)
}

type Handler struct {
	Svc   *Service
	Retry Retrier
}

func NewHandler(svc *Service, retry Retrier) *Handler {
	return &Handler{Svc: svc, Retry: retry}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/jobs/:id/resumes", h.upload)
	rg.GET("/jobs/:id/resumes", h.listByJob)
	rg.GET("/resumes/:id", h.get)
	rg.POST("/resumes/:id/retry", h.retry)
}

func (h *Handler) upload(c *gin.Context) {
	jobID := c.Param("id")
	c.Set(middleware.JobIDKey, jobID)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes+(1<<20))
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds 10MB limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if fileHeader.Size > MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds 10MB limit", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	res, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		UserID:    middleware.UserIDFromContext(c),
		JobID:     jobID,
		FileName:  fileHeader.Filename,
		MimeHint:  fileHeader.Header.Get("Content-Type"),
		RequestID: middleware.RequestIDFromContext(c),
		Body:      file,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrJobNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
		case errors.Is(err, ErrTooLarge):
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds 10MB limit", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to upload resume", nil)
		}
		return
	}
	c.Set(middleware.ResumeIDKey, res.ID)
	respond.Created(c, res)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.ResumeIDKey, id)
	res, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch resume", nil)
		return
	}
	respond.OK(c, res)
}

func (h *Handler) listByJob(c *gin.Context) {
	jobID := c.Param("id")
	c.Set(middleware.JobIDKey, jobID)
	limit, offset := respond.PageParams(c, 20, 100)
	items, err := h.Svc.ListByJob(c.Request.Context(), middleware.UserIDFromContext(c), jobID, limit, offset)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list resumes", nil)
		return
	}
	if items == nil {
		items = []Resume{}
	}
	respond.OK(c, respond.Page[Resume]{Items: items, Limit: limit, Offset: offset})
}

func (h *Handler) retry(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.ResumeIDKey, id)
	ctx := c.Request.Context()

	if _, err := h.Svc.Get(ctx, middleware.UserIDFromContext(c), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch resume", nil)
		return
	}

	res, err := h.Retry.Retry(ctx, id, middleware.RequestIDFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrStatusConflict):
			respond.Error(c, http.StatusConflict, "not_retryable", "resume is not failed or has no retries left", nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to retry resume", nil)
		}
		return
	}
	c.Set(middleware.StatusTransitionKey, TransitionLabel(StatusFailed, StatusPending))
	respond.OK(c, res)
}
