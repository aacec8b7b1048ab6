// Package correlation carries a per-request correlation ID alongside the
// active trace.
package correlation

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
)

type key struct{}

// FromContext returns the correlation ID stored on ctx, or "".
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(key{}).(string)
	return id
}

// Ensure stores candidate on ctx, or a fresh ULID when candidate is blank
// and ctx has none yet.
func Ensure(ctx context.Context, candidate string) (context.Context, string) {
	id := strings.TrimSpace(candidate)
	if id == "" {
		id = FromContext(ctx)
	}
	if id == "" {
		id = ulid.Make().String()
	}
	return context.WithValue(ctx, key{}, id), id
}

// Fields returns the correlation and trace identifiers found on ctx.
func Fields(ctx context.Context) map[string]string {
	out := make(map[string]string, 3)
	if id := FromContext(ctx); id != "" {
		out["correlation_id"] = id
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		out["trace_id"] = sc.TraceID().String()
		out["span_id"] = sc.SpanID().String()
	}
	return out
}
