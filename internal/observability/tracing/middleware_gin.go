package tracing

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/menuya/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// routeParams are the path parameters copied onto the request span.
var routeParams = map[string]string{
	"id":     "menuya.entity_id",
	"number": "menuya.table_number",
	"role":   "menuya.stream_role",
}

// GinMiddleware opens a server span per request, continuing an incoming trace.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("menuya/http")
	return func(c *gin.Context) {
		method := strings.ToUpper(c.Request.Method)
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + method + " " + route)
		span.SetAttributes(requestAttributes(c, route, status)...)

		lastErr := c.Errors.Last()
		switch {
		case status >= http.StatusInternalServerError:
			if lastErr != nil {
				span.RecordError(lastErr.Err)
			}
			span.SetStatus(codes.Error, http.StatusText(status))
		case status == http.StatusConflict && lastErr != nil:
			// Lost races and illegal transitions are expected; keep them visible.
			span.AddEvent("conflict", trace.WithAttributes(attribute.String("reason", lastErr.Err.Error())))
		}
	}
}

func requestAttributes(c *gin.Context, route string, status int) []attribute.KeyValue {
	ctx := c.Request.Context()
	attrs := []attribute.KeyValue{
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		attrs = append(attrs, attribute.String("request_id", requestID))
	}
	if role := obscontext.ActorRoleFromContext(ctx); role != "" {
		attrs = append(attrs, attribute.String("menuya.actor_role", role))
	}
	attrs = append(attrs, attribute.Bool("menuya.customer_identified", obscontext.CustomerKeyFromContext(ctx) != ""))
	for _, param := range c.Params {
		if key, ok := routeParams[param.Key]; ok {
			attrs = append(attrs, attribute.String(key, param.Value))
		}
	}
	return attrs
}
