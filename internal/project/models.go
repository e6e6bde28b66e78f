package project

import (
	"time"

	"github.com/google/uuid"
)

// Record is the persisted shape of a studio project. Scenes keep only the
// authoring fields; generated media is session state and is not saved.
type Record struct {
	ProjectName string       `json:"project_name"`
	Scenes      []SceneEntry `json:"scenes"`
	AspectRatio string       `json:"aspect_ratio"`
	Tags        []string     `json:"tags"`
}

type SceneEntry struct {
	ID             string `json:"id"`
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

const (
	JobTypeGenerate = "generate"
	JobTypeExtend   = "extend"
	JobTypeSpeech   = "speech"

	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Job records one generation or speech-synthesis attempt. Attempts are
// one-shot: a failed job is never retried, a new job is created instead.
type Job struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	SceneID   string    `json:"scene_id,omitempty"`
	MediaID   string    `json:"media_id,omitempty"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func NewID() string {
	return uuid.NewString()
}
