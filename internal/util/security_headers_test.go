package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveWithSecurityHeaders(t *testing.T, trusted *TrustedProxies, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	h := WithSecurityHeaders(trusted, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWithSecurityHeaders(t *testing.T) {
	rec := serveWithSecurityHeaders(t, nil, httptest.NewRequest(http.MethodGet, "/books", nil))

	for name, want := range apiSecurityHeaders {
		if got := rec.Header().Get(name); got != want {
			t.Fatalf("%s = %q, want %q", name, got, want)
		}
	}
	if got := rec.Header().Get("Strict-Transport-Security"); got != "" {
		t.Fatalf("did not expect HSTS for plain http, got %q", got)
	}
}

func TestWithSecurityHeadersForwardedHTTPS(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{"10.0.0.0/8"})
	if err != nil {
		t.Fatalf("new trusted proxies: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	req.Header.Set("X-Forwarded-Proto", "https")
	if got := serveWithSecurityHeaders(t, trusted, req).Header().Get("Strict-Transport-Security"); got == "" {
		t.Fatalf("expected HSTS behind a trusted proxy")
	}

	spoofed := httptest.NewRequest(http.MethodGet, "/books", nil)
	spoofed.RemoteAddr = "203.0.113.4:5555"
	spoofed.Header.Set("X-Forwarded-Proto", "https")
	if got := serveWithSecurityHeaders(t, trusted, spoofed).Header().Get("Strict-Transport-Security"); got != "" {
		t.Fatalf("did not expect HSTS from an untrusted peer, got %q", got)
	}
}
