package companycontext

import (
	"context"
	"testing"
)

func TestCompanyIDRoundTrip(t *testing.T) {
	ctx := WithCompanyID(context.Background(), 42)
	id, ok := CompanyIDFromContext(ctx)
	if !ok || id.Int64() != 42 {
		t.Fatalf("expected company 42, got %v (%v)", id, ok)
	}
}

func TestMissingValues(t *testing.T) {
	if _, ok := CompanyIDFromContext(context.Background()); ok {
		t.Fatalf("expected no company")
	}
	if _, ok := UserIDFromContext(nil); ok {
		t.Fatalf("expected no user on nil context")
	}
	if _, ok := UserIDFromContext(WithUserID(context.Background(), 0)); ok {
		t.Fatalf("expected zero user to be treated as missing")
	}
}
