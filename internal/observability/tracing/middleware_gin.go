package tracing

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/telecomservice/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "telecomservice/http"

// ErrorClassifier names the RPC error a handler failed with.
type ErrorClassifier func(err error) (name string, detail string)

// GinMiddleware opens a server span per request. JSON-RPC failures are
// answered with HTTP 200, so the span status follows the handler error
// instead of the status code.
func GinMiddleware(classify ErrorClassifier) gin.HandlerFunc {
	tracer := otel.Tracer(tracerName)
	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+c.Request.Method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			ctx = withRequestIDBaggage(ctx, requestID)
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		span.SetName("HTTP " + c.Request.Method + " " + route)
		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", c.Writer.Status()),
		}
		if method := c.GetString("rpc_method"); method != "" {
			attrs = append(attrs, attribute.String("rpc.method", method))
		}

		lastErr := c.Errors.Last()
		switch {
		case lastErr != nil:
			name := "error"
			if classify != nil {
				name, _ = classify(lastErr.Err)
			}
			attrs = append(attrs, attribute.String("rpc.error", name))
			if name == "internal_error" {
				span.RecordError(SafeError(lastErr.Err))
				span.SetStatus(codes.Error, name)
			}
		case c.Writer.Status() >= http.StatusInternalServerError:
			span.SetStatus(codes.Error, "request error")
		}
		span.SetAttributes(SafeAttributes(attrs...)...)
	}
}

func withRequestIDBaggage(ctx context.Context, requestID string) context.Context {
	member, err := baggage.NewMember("request_id", requestID)
	if err != nil {
		return ctx
	}
	bag, err := baggage.New(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}
