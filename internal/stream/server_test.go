package stream

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/xylax/motion-agent/internal/media"
	"github.com/xylax/motion-agent/internal/probe"
)

func testServer(t *testing.T, content []byte) (*Server, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write test media: %v", err)
	}

	registry := media.NewRegistry(probe.NewStubProber(nil), nil)
	t.Cleanup(registry.Close)
	item := registry.AddUpload("clip.mp4", path)
	registry.WaitProbes()

	return NewServer(registry, nil), item.ID
}

func TestServeMediaFull(t *testing.T) {
	content := []byte("0123456789abcdef")
	srv, id := testServer(t, content)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/media/"+id+"/content", nil)
	if err := srv.ServeMedia(rec, req, id); err != nil {
		t.Fatalf("ServeMedia failed: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Accept-Ranges") != "bytes" {
		t.Error("Accept-Ranges header missing")
	}
	if got := rec.Body.String(); got != string(content) {
		t.Errorf("body = %q, want full content", got)
	}
}

func TestServeMediaPartial(t *testing.T) {
	content := []byte("0123456789abcdef")
	srv, id := testServer(t, content)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/media/"+id+"/content", nil)
	req.Header.Set("Range", "bytes=4-7")
	if err := srv.ServeMedia(rec, req, id); err != nil {
		t.Fatalf("ServeMedia failed: %v", err)
	}

	if rec.Code != http.StatusPartialContent {
		t.Errorf("status = %d, want 206", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 4-7/16" {
		t.Errorf("Content-Range = %q", got)
	}
	if got := rec.Body.String(); got != "4567" {
		t.Errorf("body = %q, want 4567", got)
	}
}

func TestServeMediaUnsatisfiableRange(t *testing.T) {
	srv, id := testServer(t, []byte("tiny"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Range", "bytes=100-")
	if err := srv.ServeMedia(rec, req, id); err != nil {
		t.Fatalf("ServeMedia failed: %v", err)
	}

	if rec.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Errorf("status = %d, want 416", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes */4" {
		t.Errorf("Content-Range = %q, want bytes */4", got)
	}
}

func TestServeMediaUnknownID(t *testing.T) {
	srv, _ := testServer(t, []byte("x"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if err := srv.ServeMedia(rec, req, "no-such-id"); err != nil {
		t.Fatalf("ServeMedia failed: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestServeThumbnailAbsent(t *testing.T) {
	srv, id := testServer(t, []byte("x"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if err := srv.ServeThumbnail(rec, req, id); err != nil {
		t.Fatalf("ServeThumbnail failed: %v", err)
	}
	// The stub prober produces no thumbnail.
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
