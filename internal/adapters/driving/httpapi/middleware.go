package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docchat/internal/logger"
)

// requestLogging logs each request with method, path, status and latency.
// Server-side failures are always logged; the rest only in verbose mode.
func requestLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		if status >= http.StatusInternalServerError {
			logger.Error("http %s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, latency)
			return
		}
		logger.Debug("http %s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, latency)
	}
}

// cors allows any origin. The API is meant to sit behind a local
// frontend during development; restrict at the proxy in production.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
