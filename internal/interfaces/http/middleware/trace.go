package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"lexsim-api/internal/interfaces/http/dto"
	"lexsim-api/pkg/logger"
)

// TraceHeader 响应中回传的 trace id
const TraceHeader = "X-Trace-ID"

// Trace 返回 otelgin 中间件与 trace id 注入中间件；skipPaths 中的探针请求不建 span
func Trace(serviceName string, skipPaths []string) []gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}
	filter := func(r *http.Request) bool {
		_, skipped := skip[r.URL.Path]
		return !skipped
	}
	return []gin.HandlerFunc{
		otelgin.Middleware(serviceName, otelgin.WithFilter(filter)),
		traceContext,
	}
}

// traceContext 把 trace/span id 写入 gin.Context、日志上下文与响应头
func traceContext(c *gin.Context) {
	sc := trace.SpanFromContext(c.Request.Context()).SpanContext()
	if sc.IsValid() {
		traceID := sc.TraceID().String()

		c.Set(dto.CtxKeyTraceID, traceID)
		c.Header(TraceHeader, traceID)

		ctx := logger.WithContext(c.Request.Context(), logger.TraceIDKey, traceID)
		ctx = logger.WithContext(ctx, logger.SpanIDKey, sc.SpanID().String())
		c.Request = c.Request.WithContext(ctx)
	}
	c.Next()
}
