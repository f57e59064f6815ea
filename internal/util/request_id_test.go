package util

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveRequestID(t *testing.T, incoming string) (ctxID, headerID string) {
	t.Helper()
	handler := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = RequestIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	if incoming != "" {
		req.Header.Set("X-Request-Id", incoming)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return ctxID, rec.Header().Get("X-Request-Id")
}

func TestWithRequestIDPropagatesIncomingHeader(t *testing.T) {
	const incoming = "req-incoming_123.a:b"
	ctxID, headerID := serveRequestID(t, incoming)
	if ctxID != incoming || headerID != incoming {
		t.Fatalf("expected %q propagated, got ctx=%q header=%q", incoming, ctxID, headerID)
	}
}

func TestWithRequestIDGeneratesWhenMissing(t *testing.T) {
	ctxID, headerID := serveRequestID(t, "")
	if !ValidID(headerID) || ctxID != headerID {
		t.Fatalf("expected generated uuid, got ctx=%q header=%q", ctxID, headerID)
	}
}

func TestWithRequestIDReplacesUnsafeIDs(t *testing.T) {
	for _, incoming := range []string{"has space", "quote\"d", "line sep", strings.Repeat("a", maxRequestIDLength+1)} {
		ctxID, headerID := serveRequestID(t, incoming)
		if headerID == incoming || !ValidID(headerID) || ctxID != headerID {
			t.Fatalf("expected %q to be replaced, got ctx=%q header=%q", incoming, ctxID, headerID)
		}
	}
}
