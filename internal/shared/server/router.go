package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-screening/internal/jobs"
	"resume-screening/internal/resumes"
	"resume-screening/internal/services/health"
	"resume-screening/internal/shared/config"
	"resume-screening/internal/shared/metrics"
	"resume-screening/internal/shared/server/middleware"
	"resume-screening/internal/shared/server/respond"
	"resume-screening/internal/users"
)

// RouterDeps carries the handlers mounted under /api/v1.
type RouterDeps struct {
	Config        config.Config
	Health        *health.Service
	UserHandler   *users.Handler
	JobHandler    *jobs.Handler
	ResumeHandler *resumes.Handler
	RateLimiter   *middleware.RateLimiter
}

// DefaultRateLimits are per-principal token buckets for each route group.
var DefaultRateLimits = map[string]middleware.RateLimitRule{
	middleware.RateGroupAuth:    {Rate: 0.2, Burst: 5},
	middleware.RateGroupUpload:  {Rate: 1, Burst: 10},
	middleware.RateGroupPolling: {Rate: 10, Burst: 40},
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		metrics.GinMiddleware(),
		middleware.Auth(),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    DefaultRateLimits,
			GroupFor: middleware.RouteGroup,
			Limiter:  deps.RateLimiter,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		body, ok := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, body)
	})

	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(api)
	}
	if deps.JobHandler != nil {
		deps.JobHandler.RegisterRoutes(api)
	}
	if deps.ResumeHandler != nil {
		deps.ResumeHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
