package api

import (
	"encoding/json"
	"net/http"

	"github.com/xylax/motion-agent/internal/export"
)

const defaultFrameRate = 30.0

func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		title := req.Title
		if title == "" {
			title = cfg.Composer.ProjectName()
		}
		title = export.SanitizeName(title, 80)

		frameRate := req.FrameRate
		if frameRate <= 0 {
			frameRate = defaultFrameRate
		}

		events, unresolved := export.ResolveEvents(cfg.Session.Timeline(), cfg.Session.Registry())
		if len(events) == 0 {
			WriteError(w, http.StatusBadRequest, "timeline has no exportable clips", "BAD_REQUEST")
			return
		}

		edl := export.GenerateEDL(events, title, frameRate)
		cfg.Logger.Info("EDL exported", "title", title, "events", len(events), "unresolved", len(unresolved))

		WriteJSON(w, http.StatusOK, ExportResponse{
			EDL:             edl,
			EventCount:      len(events),
			UnresolvedClips: unresolved,
		})
	}
}
