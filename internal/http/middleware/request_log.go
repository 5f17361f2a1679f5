package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/library-backend/internal/platform/ctxutil"
	"github.com/yungbote/library-backend/internal/platform/logger"
)

// routeOf is the registered route pattern, so ids do not explode label and
// log cardinality.
func routeOf(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return "unmatched"
}

// RequestLogger writes one line per request. 4xx log at warn, 5xx at error.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *gin.Context) {
		began := time.Now()
		c.Next()

		status := c.Writer.Status()
		kv := []interface{}{
			"method", c.Request.Method,
			"route", routeOf(c),
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(began).Milliseconds(),
		}
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			kv = append(kv, "trace_id", td.TraceID, "request_id", td.RequestID)
		}
		if last := c.Errors.Last(); last != nil {
			kv = append(kv, "error", last.Err)
		}

		emit := log.Info
		if status >= http.StatusInternalServerError {
			emit = log.Error
		} else if status >= http.StatusBadRequest {
			emit = log.Warn
		}
		emit("HTTP request", kv...)
	}
}
