package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/library-backend/internal/platform/ctxutil"
)

const (
	HeaderTraceID   = "X-Trace-Id"
	HeaderRequestID = "X-Request-Id"
)

// AttachTraceContext stores trace and request ids on the request context,
// where logs and enqueued job payloads pick them up, and echoes them in the
// response. Register it after otelgin so a live span's trace id is used.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		td := &ctxutil.TraceData{
			RequestID: firstID(c.GetHeader(HeaderRequestID)),
			TraceID:   firstID(spanTraceID(span), c.GetHeader(HeaderTraceID)),
		}
		span.SetAttributes(attribute.String("request_id", td.RequestID))

		c.Request = c.Request.WithContext(ctxutil.WithTraceData(c.Request.Context(), td))
		c.Set("trace_id", td.TraceID)
		c.Set("request_id", td.RequestID)
		c.Header(HeaderTraceID, td.TraceID)
		c.Header(HeaderRequestID, td.RequestID)
		c.Next()
	}
}

func spanTraceID(span trace.Span) string {
	if sc := span.SpanContext(); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// firstID returns the first acceptable candidate, or a new uuid.
func firstID(candidates ...string) string {
	for _, v := range candidates {
		if validID(v) {
			return v
		}
	}
	return uuid.NewString()
}

// validID accepts up to 128 printable ASCII characters without spaces; the
// value is echoed into headers and logs.
func validID(v string) bool {
	if v == "" || len(v) > 128 {
		return false
	}
	for i := 0; i < len(v); i++ {
		if v[i] <= ' ' || v[i] > '~' {
			return false
		}
	}
	return true
}
