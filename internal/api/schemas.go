package api

import (
	"time"

	"github.com/xylax/motion-agent/internal/media"
	"github.com/xylax/motion-agent/internal/project"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	UptimeS   int64  `json:"uptime_s"`
	InstallID string `json:"install_id"`
}

type StatusResponse struct {
	Playing       bool    `json:"playing"`
	Position      float64 `json:"position"`
	TotalDuration float64 `json:"total_duration"`
	MediaCount    int     `json:"media_count"`
	SceneCount    int     `json:"scene_count"`
	ProjectName   string  `json:"project_name"`
	JobsRunning   int     `json:"jobs_running"`
	LastError     string  `json:"last_error,omitempty"`
}

type MediaResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Duration       float64 `json:"duration"`
	HasAudio       bool    `json:"has_audio"`
	Origin         string  `json:"origin,omitempty"`
	Prompt         string  `json:"prompt,omitempty"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Probed         bool    `json:"probed"`
	HasThumbnail   bool    `json:"has_thumbnail"`
	CreatedAt      string  `json:"created_at"`
}

type MediaListResponse struct {
	Media []MediaResponse `json:"media"`
}

type PlaceClipRequest struct {
	MediaID string  `json:"media_id"`
	TrackID string  `json:"track_id"`
	DropXPx float64 `json:"drop_x_px"`
}

type MoveClipRequest struct {
	TrackID     string  `json:"track_id,omitempty"`
	StartOffset float64 `json:"start_offset"`
}

type TrimClipRequest struct {
	TrimmedStart    float64 `json:"trimmed_start"`
	TrimmedDuration float64 `json:"trimmed_duration"`
}

type SplitClipRequest struct {
	At float64 `json:"at"`
}

type MixRequest struct {
	Muted  bool    `json:"muted"`
	Solo   bool    `json:"solo"`
	Volume float64 `json:"volume"`
	Pan    float64 `json:"pan"`
}

type SelectRequest struct {
	ClipID string `json:"clip_id"`
}

type KeyRequest struct {
	Key string `json:"key"`
}

type SeekRequest struct {
	// Either an absolute position in seconds or a ruler click x pixel.
	Position *float64 `json:"position,omitempty"`
	ClickXPx *float64 `json:"click_x_px,omitempty"`
}

type SceneRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	ImagePath      string `json:"image_path,omitempty"`
}

type StoryboardRequest struct {
	Script string `json:"script"`
}

type VoiceoverRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

type ExtendRequest struct {
	Prompt string `json:"prompt"`
}

type IdeaRequest struct {
	Idea string `json:"idea"`
}

type PromptRequest struct {
	Prompt string `json:"prompt"`
}

type CreativePromptResponse struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt"`
}

type MetaRequest struct {
	ProjectName string   `json:"project_name"`
	AspectRatio string   `json:"aspect_ratio"`
	Tags        []string `json:"tags"`
}

type ProjectListResponse struct {
	Projects []*project.Record `json:"projects"`
}

type JobResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	SceneID   string `json:"scene_id,omitempty"`
	MediaID   string `json:"media_id,omitempty"`
	Progress  int    `json:"progress"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type ExportRequest struct {
	Title     string  `json:"title,omitempty"`
	FrameRate float64 `json:"frame_rate,omitempty"`
}

type ExportResponse struct {
	EDL             string   `json:"edl"`
	EventCount      int      `json:"event_count"`
	UnresolvedClips []string `json:"unresolved_clips,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func MediaToResponse(m *media.Item) MediaResponse {
	return MediaResponse{
		ID:             m.ID,
		Name:           m.Name,
		Duration:       m.Duration,
		HasAudio:       m.HasAudio,
		Origin:         m.Origin,
		Prompt:         m.Prompt,
		NegativePrompt: m.NegativePrompt,
		Probed:         m.Probed,
		HasThumbnail:   m.ThumbnailPath != "",
		CreatedAt:      m.CreatedAt.Format(time.RFC3339),
	}
}

func JobToResponse(j *project.Job) JobResponse {
	return JobResponse{
		ID:        j.ID,
		Type:      j.Type,
		Status:    j.Status,
		SceneID:   j.SceneID,
		MediaID:   j.MediaID,
		Progress:  j.Progress,
		Error:     j.Error,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.Format(time.RFC3339),
	}
}
