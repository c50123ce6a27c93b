package middleware

import (
	"time"

	"github.com/OldStager01/cold-autoscaler/internal/logger"
	"github.com/gin-gonic/gin"
)

// RequestLogger logs one line per request. Successful requests to skipPaths
// (health checks, scrapes) are not logged at all; failures always are.
func RequestLogger(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if _, ok := skip[c.Request.URL.Path]; ok && status < 400 {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		entry := logger.FromContext(c.Request.Context()).WithFields(map[string]interface{}{
			"status":     status,
			"method":     c.Request.Method,
			"route":      route,
			"path":       c.Request.URL.Path,
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
		})
		if q := c.Request.URL.RawQuery; q != "" {
			entry = entry.WithField("query", q)
		}
		if operator := GetUsername(c); operator != "" {
			entry = entry.WithField("operator", operator)
		}
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("server error")
		case status >= 400:
			entry.Warn("client error")
		case authenticated(c):
			entry.Info("operator request")
		default:
			entry.Debug("request completed")
		}
	}
}

// authenticated reports whether the request went through JWTAuth.
func authenticated(c *gin.Context) bool {
	_, ok := c.Get(UsernameKey)
	return ok
}
