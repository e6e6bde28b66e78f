package api

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Only pages served from this machine may open the stream. An absent
	// Origin means a non-browser client, which the auth token already
	// gates.
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return originAllowed(origin)
	},
}

func originAllowed(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "127.0.0.1" || host == "localhost"
}

const wsWriteTimeout = 5 * time.Second

// playbackStreamHandler pushes playhead updates over a websocket so the
// front-end follows the preview clock without polling.
func playbackStreamHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			cfg.Logger.Warn("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		updates, cancel := cfg.Session.Controller().Subscribe()
		defer cancel()

		// Reader goroutine: drains client frames and surfaces the close.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		// Initial snapshot so the client renders before the first tick.
		if err := conn.WriteJSON(cfg.Session.Controller().Snapshot()); err != nil {
			return
		}

		for {
			select {
			case <-closed:
				return
			case <-r.Context().Done():
				return
			case u, ok := <-updates:
				if !ok {
					return
				}
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(u); err != nil {
					cfg.Logger.Debug("playhead stream write failed", "error", err)
					return
				}
			}
		}
	}
}
