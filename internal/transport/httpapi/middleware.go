package httpapi

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sheikh-saqib/transactions-service/internal/correlation"
)

// Correlation takes the request's correlation id from its header, or makes
// one up, puts it in the request context and echoes it on the response.
func Correlation() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if id := strings.TrimSpace(c.GetHeader(correlation.Header)); id != "" {
			ctx = correlation.WithID(ctx, id)
		}
		ctx, id := correlation.Ensure(ctx)
		c.Request = c.Request.WithContext(ctx)
		c.Header(correlation.Header, id)
		c.Next()
	}
}

// RequestLogger writes one log record per request once it has been served
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		slog.InfoContext(c.Request.Context(), "request served",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
