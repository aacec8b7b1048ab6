package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/telecomservice/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithCompanyID(ctx, "42")
	ctx = obscontext.WithActor(ctx, "user", "7")

	WithContext(ctx, base).Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-1" {
		t.Fatalf("expected request_id, got %v", fields["request_id"])
	}
	if fields["company_id"] != "42" {
		t.Fatalf("expected company_id, got %v", fields["company_id"])
	}
	if fields["actor_type"] != "user" || fields["actor_id"] != "7" {
		t.Fatalf("unexpected actor fields: %v", fields)
	}
}

func TestGinMiddlewareSetsRequestHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware(MiddlewareConfig{}))
	router.GET("/ping", func(c *gin.Context) {
		if obscontext.RequestIDFromContext(c.Request.Context()) == "" {
			t.Errorf("expected request id on context")
		}
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "given-id")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Header().Get(HeaderRequestID) != "given-id" {
		t.Fatalf("expected request id to be echoed, got %q", rec.Header().Get(HeaderRequestID))
	}
	if rec.Header().Get(HeaderCorrelationID) == "" {
		t.Fatalf("expected generated correlation id")
	}
}

func TestOperationFromSQL(t *testing.T) {
	cases := map[string]string{
		"SELECT * FROM consumption_records":   "SELECT",
		"  insert into audit_logs values (1)": "INSERT",
		"WITH x AS (SELECT 1) SELECT * FROM x": "SELECT",
		"":                                    "UNKNOWN",
	}
	for sql, want := range cases {
		if got := operationFromSQL(sql); got != want {
			t.Fatalf("operationFromSQL(%q) = %s, want %s", sql, got, want)
		}
	}
}

func TestWithContextSkipsMissingFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	WithContext(context.Background(), zap.New(core)).Info("bare")

	fields := logs.All()[0].ContextMap()
	if _, ok := fields["request_id"]; ok {
		t.Fatalf("expected no request_id field, got %v", fields)
	}
}

func TestRequestLevel(t *testing.T) {
	cases := []struct {
		route, errName string
		status         int
		want           zapcore.Level
	}{
		{"/health", "", 200, zapcore.DebugLevel},
		{"/telecomservice/api/v2/consumption/create", "internal_error", 200, zapcore.ErrorLevel},
		{"/telecomservice/api/v2/consumption/create", "user_error", 200, zapcore.DebugLevel},
		{"/telecomservice/api/v2/consumption/list", "", 200, zapcore.InfoLevel},
		{"unknown", "", 502, zapcore.ErrorLevel},
	}
	for _, tc := range cases {
		if got := requestLevel(tc.route, tc.status, tc.errName); got != tc.want {
			t.Fatalf("requestLevel(%q, %d, %q) = %v, want %v", tc.route, tc.status, tc.errName, got, tc.want)
		}
	}
}
