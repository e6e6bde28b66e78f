package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebsocketOriginCheck(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"no origin (non-browser client)", "", true},
		{"loopback with port", "http://127.0.0.1:5173", true},
		{"localhost", "http://localhost:3000", true},
		{"remote page", "https://evil.example", false},
		{"localhost-prefixed remote host", "http://localhost.evil.example", false},
		{"unparseable", "://bad", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://127.0.0.1/playback/stream", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := upgrader.CheckOrigin(req); got != tt.want {
				t.Errorf("CheckOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}
