package stream

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/xylax/motion-agent/internal/media"
)

// Server streams media bytes keyed by registry ID. Paths never appear in
// URLs; the registry is the only authority on where media lives on disk.
type Server struct {
	registry *media.Registry
	logger   *slog.Logger
}

func NewServer(registry *media.Registry, logger *slog.Logger) *Server {
	return &Server{registry: registry, logger: logger}
}

// ServeMedia writes the media item's bytes, honoring a Range header with a
// 206 partial response.
func (s *Server) ServeMedia(w http.ResponseWriter, r *http.Request, mediaID string) error {
	item := s.registry.Get(mediaID)
	if item == nil {
		http.Error(w, "media not found", http.StatusNotFound)
		return nil
	}
	return s.serveFile(w, r, item.Path)
}

// ServeThumbnail writes the item's probe thumbnail, 404 when the probe
// produced none.
func (s *Server) ServeThumbnail(w http.ResponseWriter, r *http.Request, mediaID string) error {
	item := s.registry.Get(mediaID)
	if item == nil || item.ThumbnailPath == "" {
		http.Error(w, "thumbnail not found", http.StatusNotFound)
		return nil
	}
	return s.serveFile(w, r, item.ThumbnailPath)
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "file not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	size := stat.Size()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)

	br, err := ParseRange(r.Header.Get("Range"), size)
	if err == ErrUnsatisfiable {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	}
	if err == ErrInvalidRange {
		// Malformed ranges fall back to a full-body response.
		br = nil
	} else if err != nil {
		return err
	}

	if br == nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
		w.WriteHeader(http.StatusOK)
		io.Copy(w, file)
		return nil
	}

	w.Header().Set("Content-Length", fmt.Sprintf("%d", br.Length()))
	w.Header().Set("Content-Range", br.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)

	if _, err := file.Seek(br.Start, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	if _, err := io.CopyN(w, file, br.Length()); err != nil && s.logger != nil {
		s.logger.Debug("range copy interrupted", "error", err)
	}
	return nil
}
