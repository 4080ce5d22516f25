package tracing

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/triviabees/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "triviabees/functions"

// untracedPaths are health checks and metric scrapes.
var untracedPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// GinMiddleware opens a server span per request. Root-level routes are the
// platform functions and their spans are named after the function.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer(tracerName)
	return func(c *gin.Context) {
		if _, skip := untracedPaths[c.Request.URL.Path]; skip || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "triviabees.request", trace.WithSpanKind(trace.SpanKindServer))
		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		name, function := SpanName(c.Request.Method, route)
		span.SetName(name)

		status := c.Writer.Status()
		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", routeOrUnmatched(route)),
			attribute.Int("http.status_code", status),
			attribute.Int64("triviabees.duration_ms", time.Since(start).Milliseconds()),
		}
		if function != "" {
			attrs = append(attrs, attribute.String("triviabees.function", function))
		}
		if requestID := obscontext.RequestIDFromContext(c.Request.Context()); requestID != "" {
			attrs = append(attrs, attribute.String("triviabees.request_id", requestID))
		}
		if actorType, _ := obscontext.ActorFromContext(c.Request.Context()); actorType != "" {
			attrs = append(attrs, attribute.String("triviabees.actor_type", actorType))
		}
		span.SetAttributes(SafeAttributes(attrs...)...)

		if status >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, "function failed")
		}
		span.End()
	}
}

// SpanName returns the span name for a matched route and, for root-level
// routes, the function name.
func SpanName(method, route string) (string, string) {
	if route == "" {
		return "unmatched " + strings.ToUpper(method), ""
	}
	trimmed := strings.Trim(route, "/")
	if trimmed != "" && !strings.Contains(trimmed, "/") && !strings.ContainsAny(trimmed, ":*") {
		return "function " + trimmed, trimmed
	}
	return strings.ToUpper(method) + " " + route, ""
}

func routeOrUnmatched(route string) string {
	if route == "" {
		return "unmatched"
	}
	return route
}
