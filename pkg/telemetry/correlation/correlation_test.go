package correlation

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestEnsureGeneratesULID(t *testing.T) {
	ctx, id := Ensure(context.Background(), " ")
	_, err := ulid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, FromContext(ctx))

	_, again := Ensure(ctx, "")
	assert.Equal(t, id, again)
}

func TestEnsurePrefersCandidate(t *testing.T) {
	ctx, _ := Ensure(context.Background(), "old")
	ctx, id := Ensure(ctx, " abc ")
	assert.Equal(t, "abc", id)
	assert.Equal(t, "abc", FromContext(ctx))
}

func TestFieldsIncludeTrace(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))
	ctx, _ = Ensure(ctx, "cid")

	fields := Fields(ctx)
	assert.Equal(t, "cid", fields["correlation_id"])
	assert.Equal(t, traceID.String(), fields["trace_id"])
	assert.Equal(t, spanID.String(), fields["span_id"])

	assert.Empty(t, Fields(context.Background()))
}
