package jobs

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-screening/internal/shared/server/middleware"
	"resume-screening/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/jobs", h.create)
	rg.GET("/jobs", h.list)
	rg.GET("/jobs/:id", h.get)
}

type createRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	job, err := h.Svc.Create(c.Request.Context(), middleware.UserIDFromContext(c), req.Title, req.Description)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create job", nil)
		return
	}
	c.Set(middleware.JobIDKey, job.ID)
	respond.Created(c, job)
}

func (h *Handler) get(c *gin.Context) {
	jobID := c.Param("id")
	c.Set(middleware.JobIDKey, jobID)
	job, err := h.Svc.GetOwned(c.Request.Context(), middleware.UserIDFromContext(c), jobID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch job", nil)
		return
	}
	respond.OK(c, job)
}

func (h *Handler) list(c *gin.Context) {
	limit, offset := respond.PageParams(c, 20, 100)
	items, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list jobs", nil)
		return
	}
	respond.OK(c, respond.Page[Job]{Items: items, Limit: limit, Offset: offset})
}
