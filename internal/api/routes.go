package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xylax/motion-agent/internal/config"
	"github.com/xylax/motion-agent/internal/editor"
	"github.com/xylax/motion-agent/internal/gen"
	"github.com/xylax/motion-agent/internal/playback"
	"github.com/xylax/motion-agent/internal/project"
	"github.com/xylax/motion-agent/internal/timeline"
)

// audioRejectionMessage is what the front-end shows when media without an
// audio stream is dropped on an audio track or speech enhancement.
const audioRejectionMessage = "This media file does not contain audio."

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))

		r.Post("/media", uploadMediaHandler(cfg))
		r.Get("/media", listMediaHandler(cfg))
		r.Get("/media/{id}", getMediaHandler(cfg))
		r.Get("/media/{id}/content", mediaContentHandler(cfg))
		r.Get("/media/{id}/thumbnail", mediaThumbnailHandler(cfg))

		r.Get("/timeline", timelineHandler(cfg))
		r.Post("/timeline/clips", placeClipHandler(cfg))
		r.Post("/timeline/audio-clips", placeAudioClipHandler(cfg))
		r.Post("/timeline/clips/{id}/move", moveClipHandler(cfg))
		r.Post("/timeline/clips/{id}/trim", trimClipHandler(cfg))
		r.Post("/timeline/clips/{id}/split", splitClipHandler(cfg))
		r.Post("/timeline/clips/{id}/enhance", enhanceClipHandler(cfg))
		r.Delete("/timeline/clips/{id}", deleteClipHandler(cfg))
		r.Post("/timeline/tracks/{id}/mix", mixTrackHandler(cfg))
		r.Post("/timeline/selection", selectHandler(cfg))
		r.Post("/timeline/key", keyHandler(cfg))

		r.Post("/playback/play", playHandler(cfg))
		r.Post("/playback/pause", pauseHandler(cfg))
		r.Post("/playback/seek", seekHandler(cfg))
		r.Get("/playback", playbackStateHandler(cfg))
		r.Get("/playback/stream", playbackStreamHandler(cfg))

		r.Get("/studio/scenes", listScenesHandler(cfg))
		r.Post("/studio/scenes", addSceneHandler(cfg))
		r.Put("/studio/scenes/{id}", updateSceneHandler(cfg))
		r.Delete("/studio/scenes/{id}", removeSceneHandler(cfg))
		r.Post("/studio/scenes/{id}/generate", generateSceneHandler(cfg))
		r.Post("/studio/scenes/{id}/extend", extendSceneHandler(cfg))
		r.Post("/studio/generate", generateStoryHandler(cfg))
		r.Post("/studio/storyboard", storyboardHandler(cfg))
		r.Post("/studio/voiceover", voiceoverHandler(cfg))
		r.Post("/studio/handoff", handOffHandler(cfg))
		r.Post("/studio/assist/prompt", creativePromptHandler(cfg))
		r.Post("/studio/assist/analyze", analyzePromptHandler(cfg))
		r.Put("/studio/meta", metaHandler(cfg))

		r.Post("/projects", saveProjectHandler(cfg))
		r.Get("/projects", listProjectsHandler(cfg))
		r.Get("/projects/{name}", getProjectHandler(cfg))
		r.Post("/projects/{name}/load", loadProjectHandler(cfg))
		r.Delete("/projects/{name}", deleteProjectHandler(cfg))

		r.Get("/jobs", listJobsHandler(cfg))
		r.Get("/jobs/{id}", getJobHandler(cfg))

		r.Post("/export/edl", exportEDLHandler(cfg))
	})

	return r
}

// writeDomainError maps model errors to the HTTP surface. The audio
// rejection keeps its exact front-end wording.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, timeline.ErrUnsupportedMedia):
		WriteError(w, http.StatusUnprocessableEntity, audioRejectionMessage, "UNSUPPORTED_MEDIA")
	case errors.Is(err, timeline.ErrUnknownTrack),
		errors.Is(err, timeline.ErrClipNotFound),
		errors.Is(err, editor.ErrUnknownMedia):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, timeline.ErrInvalidTrim),
		errors.Is(err, timeline.ErrSplitOutOfRange),
		errors.Is(err, editor.ErrNoSelection):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	case gen.IsCredentialError(err):
		WriteError(w, http.StatusUnauthorized, err.Error(), "GEN_CREDENTIALS")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:    "ok",
			Version:   config.Version,
			UptimeS:   uptime,
			InstallID: cfg.InstallID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := cfg.Session.Controller().Snapshot()

		jobsRunning := 0
		lastError := ""
		if jobs, err := cfg.Repository.ListJobs(r.Context(), 10); err == nil {
			for _, j := range jobs {
				if j.Status == project.JobStatusRunning {
					jobsRunning++
				}
				if j.Status == project.JobStatusFailed && lastError == "" {
					lastError = j.Error
				}
			}
		}

		WriteJSON(w, http.StatusOK, StatusResponse{
			Playing:       snap.Playing,
			Position:      snap.Position,
			TotalDuration: snap.TotalDuration,
			MediaCount:    cfg.Session.Registry().Count(),
			SceneCount:    len(cfg.Composer.Scenes()),
			ProjectName:   cfg.Composer.ProjectName(),
			JobsRunning:   jobsRunning,
			LastError:     lastError,
		})
	}
}

func uploadMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			WriteError(w, http.StatusBadRequest, "file field is required", "BAD_REQUEST")
			return
		}
		defer file.Close()

		name := filepath.Base(header.Filename)
		dst := filepath.Join(cfg.MediaDir, project.NewID()+"-"+name)
		out, err := os.Create(dst)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to store upload", "INTERNAL_ERROR")
			return
		}
		if _, err := io.Copy(out, file); err != nil {
			out.Close()
			os.Remove(dst)
			WriteError(w, http.StatusInternalServerError, "failed to store upload", "INTERNAL_ERROR")
			return
		}
		out.Close()

		item := cfg.Session.Registry().AddUpload(name, dst)
		WriteJSON(w, http.StatusCreated, MediaToResponse(item))
	}
}

func listMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := cfg.Session.Registry().List()
		resp := MediaListResponse{Media: make([]MediaResponse, len(items))}
		for i, m := range items {
			resp.Media[i] = MediaToResponse(m)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item := cfg.Session.Registry().Get(chi.URLParam(r, "id"))
		if item == nil {
			WriteError(w, http.StatusNotFound, "media not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, MediaToResponse(item))
	}
}

func mediaContentHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := cfg.StreamServer.ServeMedia(w, r, id); err != nil {
			cfg.Logger.Error("media stream error", "error", err, "media_id", id)
		}
	}
}

func mediaThumbnailHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := cfg.StreamServer.ServeThumbnail(w, r, id); err != nil {
			cfg.Logger.Error("thumbnail stream error", "error", err, "media_id", id)
		}
	}
}

func timelineHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tl := cfg.Session.Timeline()
		WriteJSON(w, http.StatusOK, map[string]any{
			"video_tracks":      tl.VideoTracks(),
			"audio_tracks":      tl.AudioTracks(),
			"total_duration":    tl.TotalDuration(),
			"pixels_per_second": cfg.PixelsPerSecond,
			"ruler_gutter_px":   cfg.RulerGutterPx,
			"selected_clip_id":  cfg.Session.Selected(),
		})
	}
}

func placeClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlaceClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		clip, err := cfg.Session.PlaceMedia(req.MediaID, req.TrackID, req.DropXPx)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, clip)
	}
}

func placeAudioClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlaceClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		clip, err := cfg.Session.PlaceMediaAudio(req.MediaID, req.TrackID, req.DropXPx)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, clip)
	}
}

func moveClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MoveClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if err := cfg.Session.MoveClip(chi.URLParam(r, "id"), req.TrackID, req.StartOffset); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func trimClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TrimClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if err := cfg.Session.TrimClip(chi.URLParam(r, "id"), req.TrimmedStart, req.TrimmedDuration); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func splitClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SplitClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if err := cfg.Session.SplitClip(chi.URLParam(r, "id"), req.At); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func enhanceClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Session.EnhanceSpeech(chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Session.DeleteClip(chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func mixTrackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MixRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if err := cfg.Session.SetAudioTrackMix(chi.URLParam(r, "id"), req.Muted, req.Solo, req.Volume, req.Pan); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func selectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if err := cfg.Session.Select(req.ClipID); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// keyHandler is the keyboard surface: "s" splits the selected clip at the
// playhead, "delete" removes the selection.
func keyHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req KeyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		var err error
		switch req.Key {
		case "s":
			err = cfg.Session.SplitSelectedAtPlayhead()
		case "delete", "backspace":
			err = cfg.Session.DeleteSelected()
		default:
			WriteError(w, http.StatusBadRequest, "unknown key", "BAD_REQUEST")
			return
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func playHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl := cfg.Session.Controller()
		if err := ctrl.Play(); err != nil && !errors.Is(err, playback.ErrNothingToPlay) {
			writeDomainError(w, err)
			return
		}
		// Play with no active clip is a no-op, not a failure.
		WriteJSON(w, http.StatusOK, ctrl.Snapshot())
	}
}

func pauseHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl := cfg.Session.Controller()
		ctrl.Pause()
		WriteJSON(w, http.StatusOK, ctrl.Snapshot())
	}
}

func seekHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SeekRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		ctrl := cfg.Session.Controller()
		switch {
		case req.Position != nil:
			ctrl.SetPlayhead(*req.Position)
		case req.ClickXPx != nil:
			ctrl.SeekRuler(*req.ClickXPx, cfg.RulerGutterPx, cfg.PixelsPerSecond)
		default:
			WriteError(w, http.StatusBadRequest, "position or click_x_px is required", "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, ctrl.Snapshot())
	}
}

func playbackStateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Session.Controller().Snapshot())
	}
}

func listScenesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{"scenes": cfg.Composer.Scenes()})
	}
}

func addSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SceneRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		scene := cfg.Composer.AddScene(req.Prompt, req.NegativePrompt)
		if req.ImagePath != "" {
			if err := cfg.Composer.SetSceneImage(scene.ID, req.ImagePath); err == nil {
				scene.ImagePath = req.ImagePath
			}
		}
		WriteJSON(w, http.StatusCreated, scene)
	}
}

func updateSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SceneRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		id := chi.URLParam(r, "id")
		if err := cfg.Composer.UpdateScene(id, req.Prompt, req.NegativePrompt); err != nil {
			WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
			return
		}
		cfg.Composer.SetSceneImage(id, req.ImagePath)
		w.WriteHeader(http.StatusNoContent)
	}
}

func removeSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Composer.RemoveScene(chi.URLParam(r, "id")); err != nil {
			WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func generateSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := cfg.Composer.GenerateScene(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, MediaToResponse(item))
	}
}

func extendSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExtendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		item, err := cfg.Composer.ExtendScene(r.Context(), chi.URLParam(r, "id"), req.Prompt)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, MediaToResponse(item))
	}
}

func generateStoryHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := cfg.Composer.GenerateStory(r.Context())
		resp := MediaListResponse{Media: make([]MediaResponse, len(items))}
		for i, m := range items {
			resp.Media[i] = MediaToResponse(m)
		}
		if err != nil {
			// Partial results are still reported alongside the error.
			cfg.Logger.Error("story generation stopped", "error", err, "generated", len(items))
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func storyboardHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StoryboardRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		scenes, err := cfg.Composer.ScriptToStoryboard(r.Context(), req.Script)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"scenes": scenes})
	}
}

func voiceoverHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VoiceoverRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		item, err := cfg.Composer.Voiceover(r.Context(), req.Text, req.Voice)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, MediaToResponse(item))
	}
}

func handOffHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := cfg.Composer.SendToEditor()
		resp := MediaListResponse{Media: make([]MediaResponse, len(items))}
		for i, m := range items {
			resp.Media[i] = MediaToResponse(m)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func creativePromptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req IdeaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		prompt, negative, err := cfg.Composer.CreativePrompt(r.Context(), req.Idea)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, CreativePromptResponse{Prompt: prompt, NegativePrompt: negative})
	}
}

func analyzePromptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PromptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		analysis, err := cfg.Composer.AnalyzePrompt(r.Context(), req.Prompt)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, analysis)
	}
}

func metaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MetaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		cfg.Composer.SetMeta(req.ProjectName, req.AspectRatio, req.Tags)
		w.WriteHeader(http.StatusNoContent)
	}
}

func saveProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record := cfg.Composer.Record()
		if err := cfg.Projects.Save(r.Context(), &record); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusCreated, record)
	}
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := cfg.Projects.List(r.Context(), r.URL.Query().Get("filter"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list projects", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, ProjectListResponse{Projects: records})
	}
}

func getProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := cfg.Projects.Load(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if record == nil {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, record)
	}
}

func loadProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := cfg.Projects.Load(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if record == nil {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}
		cfg.Composer.Restore(*record)
		WriteJSON(w, http.StatusOK, record)
	}
}

func deleteProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Repository.DeleteProject(r.Context(), chi.URLParam(r, "name")); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := cfg.Repository.ListJobs(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
			return
		}
		resp := JobsResponse{Jobs: make([]JobResponse, len(jobs))}
		for i, j := range jobs {
			resp.Jobs[i] = JobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := cfg.Repository.GetJob(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}
