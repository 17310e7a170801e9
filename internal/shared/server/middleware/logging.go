package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resume-screening/internal/shared/telemetry"
)

// Context keys handlers may set to enrich the request log line.
const (
	ResumeIDKey         = "resumeId"
	JobIDKey            = "jobId"
	StatusTransitionKey = "statusTransition"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"user_id":     UserIDFromContext(c),
			"client_ip":   c.ClientIP(),
		}
		for _, key := range []string{ResumeIDKey, JobIDKey, StatusTransitionKey} {
			if v := c.GetString(key); v != "" {
				fields[logKey(key)] = v
			}
		}
		telemetry.Info("request.complete", fields)
	}
}

func logKey(ctxKey string) string {
	switch ctxKey {
	case ResumeIDKey:
		return "resume_id"
	case JobIDKey:
		return "job_id"
	case StatusTransitionKey:
		return "status_transition"
	default:
		return ctxKey
	}
}
