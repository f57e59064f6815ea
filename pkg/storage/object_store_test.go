package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T, endpoint string) *MinioStore {
	t.Helper()
	s, err := newMinioClient(MinioConfig{
		Endpoint:  endpoint,
		AccessKey: "access",
		SecretKey: "secret-key",
		Bucket:    "books",
		Region:    "us-east-1",
	})
	if err != nil {
		t.Fatalf("new minio client: %v", err)
	}
	return s
}

func TestMinioStoreURL(t *testing.T) {
	s := newTestStore(t, "localhost:9000")
	got := s.URL("ebooks/user-1/book-1/novel.pdf")
	want := "http://localhost:9000/books/ebooks/user-1/book-1/novel.pdf"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestMinioStoreRequiresBucket(t *testing.T) {
	if _, err := newMinioClient(MinioConfig{Endpoint: "localhost:9000"}); err == nil {
		t.Fatalf("expected missing bucket to fail")
	}
}

func TestMinioStorePresignGet(t *testing.T) {
	s := newTestStore(t, "localhost:9000")
	raw, err := s.PresignGet(context.Background(), "ebooks/u/b/novel.pdf", 15*time.Minute, "novel.pdf")
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse presigned url: %v", err)
	}
	if u.Path != "/books/ebooks/u/b/novel.pdf" {
		t.Fatalf("unexpected path %q", u.Path)
	}
	q := u.Query()
	if q.Get("X-Amz-Expires") != "900" {
		t.Fatalf("expected 900s expiry, got %q", q.Get("X-Amz-Expires"))
	}
	if q.Get("X-Amz-Signature") == "" {
		t.Fatalf("expected signature in %s", raw)
	}
	if !strings.Contains(q.Get("response-content-disposition"), "novel.pdf") {
		t.Fatalf("expected content disposition, got %q", q.Get("response-content-disposition"))
	}
}

func TestMinioStoreDeleteIgnoresMissingObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "unexpected method", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		switch {
		case strings.HasSuffix(r.URL.Path, "/missing.pdf"):
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message><Key>missing.pdf</Key><BucketName>books</BucketName></Error>`))
		case strings.HasSuffix(r.URL.Path, "/locked.pdf"):
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied.</Message><Key>locked.pdf</Key><BucketName>books</BucketName></Error>`))
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	s := newTestStore(t, strings.TrimPrefix(srv.URL, "http://"))
	ctx := context.Background()
	if err := s.Delete(ctx, "present.pdf"); err != nil {
		t.Fatalf("delete present: %v", err)
	}
	if err := s.Delete(ctx, "missing.pdf"); err != nil {
		t.Fatalf("expected missing object delete to succeed, got %v", err)
	}
	if err := s.Delete(ctx, "locked.pdf"); err == nil {
		t.Fatalf("expected access denied to fail")
	}
}
