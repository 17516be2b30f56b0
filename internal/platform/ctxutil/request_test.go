package ctxutil

import (
	"context"
	"testing"
)

func TestRequestInfoRoundTrip(t *testing.T) {
	if RequestID(context.Background()) != "" {
		t.Fatalf("expected empty request id")
	}
	ctx := WithRequestInfo(context.Background(), &RequestInfo{RequestID: "r-1", TraceID: "t-1"})
	if got := RequestID(ctx); got != "r-1" {
		t.Fatalf("RequestID=%q", got)
	}
	if got := GetRequestInfo(ctx).TraceID; got != "t-1" {
		t.Fatalf("TraceID=%q", got)
	}
}
