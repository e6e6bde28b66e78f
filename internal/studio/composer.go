// Package studio is the authoring side of the agent: an ordered storyboard
// of scenes with prompts, driven through the generation service, whose
// finished media is handed off to the editor's registry.
package studio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xylax/motion-agent/internal/gen"
	"github.com/xylax/motion-agent/internal/media"
	"github.com/xylax/motion-agent/internal/project"
	"github.com/xylax/motion-agent/internal/wav"
)

const handOffNameLimit = 30

// Scene is one storyboard entry. MediaID and Operation are session state
// filled in by generation; they are not part of the persisted record.
type Scene struct {
	ID             string `json:"id"`
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	ImagePath      string `json:"image_path,omitempty"`
	MediaID        string `json:"media_id,omitempty"`
}

// JobLedger records generation attempts. *project.SQLiteRepository
// satisfies it.
type JobLedger interface {
	CreateJob(ctx context.Context, j *project.Job) error
	UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error
}

// Composer owns the storyboard and drives generation. All scene mutation
// happens under one mutex; generation calls run with the mutex released so
// a slow service never blocks scene editing.
type Composer struct {
	mu          sync.Mutex
	projectName string
	aspectRatio string
	tags        []string
	scenes      []Scene

	client   gen.Client
	registry *media.Registry
	jobs     JobLedger
	mediaDir string
	logger   *slog.Logger
}

func NewComposer(client gen.Client, registry *media.Registry, jobs JobLedger, mediaDir string, logger *slog.Logger) *Composer {
	return &Composer{
		projectName: "Untitled Project",
		aspectRatio: "16:9",
		client:      client,
		registry:    registry,
		jobs:        jobs,
		mediaDir:    mediaDir,
		logger:      logger,
	}
}

// SetMeta updates the project metadata. Empty name is rejected at the API
// layer; here it is kept as-is so loads can round-trip whatever was saved.
func (c *Composer) SetMeta(name, aspectRatio string, tags []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projectName = name
	c.aspectRatio = aspectRatio
	c.tags = append([]string(nil), tags...)
}

func (c *Composer) AddScene(prompt, negativePrompt string) Scene {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Scene{ID: project.NewID(), Prompt: prompt, NegativePrompt: negativePrompt}
	c.scenes = append(c.scenes, s)
	return s
}

func (c *Composer) UpdateScene(id, prompt, negativePrompt string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.scenes {
		if c.scenes[i].ID == id {
			c.scenes[i].Prompt = prompt
			c.scenes[i].NegativePrompt = negativePrompt
			return nil
		}
	}
	return fmt.Errorf("scene %s not found", id)
}

// SetSceneImage attaches a reference image used as the generation seed
// frame. An empty path clears it.
func (c *Composer) SetSceneImage(id, imagePath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.scenes {
		if c.scenes[i].ID == id {
			c.scenes[i].ImagePath = imagePath
			return nil
		}
	}
	return fmt.Errorf("scene %s not found", id)
}

func (c *Composer) RemoveScene(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.scenes {
		if c.scenes[i].ID == id {
			c.scenes = append(c.scenes[:i], c.scenes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("scene %s not found", id)
}

// Scenes returns the storyboard in order.
func (c *Composer) Scenes() []Scene {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Scene, len(c.scenes))
	copy(out, c.scenes)
	return out
}

// GenerateScene runs one scene through the generation service and
// registers the result. The attempt is recorded in the job ledger either
// way.
func (c *Composer) GenerateScene(ctx context.Context, sceneID string) (*media.Item, error) {
	c.mu.Lock()
	var scene *Scene
	for i := range c.scenes {
		if c.scenes[i].ID == sceneID {
			scene = &c.scenes[i]
			break
		}
	}
	if scene == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("scene %s not found", sceneID)
	}
	prompt, negative, image := scene.Prompt, scene.NegativePrompt, scene.ImagePath
	aspect := c.aspectRatio
	c.mu.Unlock()

	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("scene %s has no prompt", sceneID)
	}

	now := time.Now()
	job := &project.Job{
		ID:        project.NewID(),
		Type:      project.JobTypeGenerate,
		Status:    project.JobStatusRunning,
		SceneID:   sceneID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("record job: %w", err)
	}

	result, err := c.client.GenerateVideo(ctx, gen.VideoRequest{
		Prompt:         prompt,
		NegativePrompt: negative,
		AspectRatio:    aspect,
		ImagePath:      image,
	})
	if err != nil {
		c.failJob(job.ID, err)
		return nil, err
	}

	item := c.registry.AddGenerated(sceneName(prompt), result.Path, prompt, negative, result.Operation)

	c.mu.Lock()
	for i := range c.scenes {
		if c.scenes[i].ID == sceneID {
			c.scenes[i].MediaID = item.ID
		}
	}
	c.mu.Unlock()

	c.completeJob(ctx, job.ID)
	c.logger.Info("scene generated", "scene_id", sceneID, "media_id", item.ID)
	return item, nil
}

// GenerateStory generates every scene in order, one at a time. Scenes with
// an empty prompt are skipped, not failed. The first service error stops
// the run; earlier results stay registered.
func (c *Composer) GenerateStory(ctx context.Context) ([]*media.Item, error) {
	var items []*media.Item
	for _, s := range c.Scenes() {
		if strings.TrimSpace(s.Prompt) == "" {
			continue
		}
		item, err := c.GenerateScene(ctx, s.ID)
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

// ExtendScene continues a generated scene's video from its operation
// record.
func (c *Composer) ExtendScene(ctx context.Context, sceneID, prompt string) (*media.Item, error) {
	c.mu.Lock()
	var mediaID string
	for i := range c.scenes {
		if c.scenes[i].ID == sceneID {
			mediaID = c.scenes[i].MediaID
		}
	}
	aspect := c.aspectRatio
	c.mu.Unlock()
	if mediaID == "" {
		return nil, fmt.Errorf("scene %s has no generated media to extend", sceneID)
	}
	prev := c.registry.Get(mediaID)
	if prev == nil || len(prev.Operation) == 0 {
		return nil, fmt.Errorf("scene %s media carries no operation record", sceneID)
	}

	now := time.Now()
	job := &project.Job{
		ID:        project.NewID(),
		Type:      project.JobTypeExtend,
		Status:    project.JobStatusRunning,
		SceneID:   sceneID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("record job: %w", err)
	}

	result, err := c.client.ExtendVideo(ctx, gen.ExtendRequest{
		Operation:   prev.Operation,
		Prompt:      prompt,
		AspectRatio: aspect,
	})
	if err != nil {
		c.failJob(job.ID, err)
		return nil, err
	}

	item := c.registry.AddGenerated(sceneName(prompt), result.Path, prompt, prev.NegativePrompt, result.Operation)

	c.mu.Lock()
	for i := range c.scenes {
		if c.scenes[i].ID == sceneID {
			c.scenes[i].MediaID = item.ID
		}
	}
	c.mu.Unlock()

	c.completeJob(ctx, job.ID)
	return item, nil
}

// Voiceover synthesizes narration, wraps it in a WAV container, writes it
// to the media directory, and registers it.
func (c *Composer) Voiceover(ctx context.Context, text, voice string) (*media.Item, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("voiceover text is empty")
	}

	now := time.Now()
	job := &project.Job{
		ID:        project.NewID(),
		Type:      project.JobTypeSpeech,
		Status:    project.JobStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("record job: %w", err)
	}

	pcm, err := c.client.GenerateSpeech(ctx, gen.SpeechRequest{Text: text, Voice: voice})
	if err != nil {
		c.failJob(job.ID, err)
		return nil, err
	}
	encoded, err := wav.EncodeSpeech(pcm)
	if err != nil {
		c.failJob(job.ID, err)
		return nil, err
	}

	path := filepath.Join(c.mediaDir, project.NewID()+".wav")
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		c.failJob(job.ID, err)
		return nil, fmt.Errorf("write voiceover file: %w", err)
	}

	item := c.registry.AddGenerated("Voiceover: "+sceneName(text), path, text, "", nil)
	c.completeJob(ctx, job.ID)
	c.logger.Info("voiceover synthesized", "media_id", item.ID, "bytes", len(encoded))
	return item, nil
}

// ScriptToStoryboard asks the assistant to break a script into shots and
// replaces the storyboard with them.
func (c *Composer) ScriptToStoryboard(ctx context.Context, script string) ([]Scene, error) {
	shots, err := c.client.ShotList(ctx, script)
	if err != nil {
		return nil, err
	}

	scenes := make([]Scene, 0, len(shots))
	for _, sh := range shots {
		scenes = append(scenes, Scene{
			ID:             sh.ID,
			Prompt:         sh.Prompt,
			NegativePrompt: sh.NegativePrompt,
		})
	}

	c.mu.Lock()
	c.scenes = scenes
	c.mu.Unlock()
	return scenes, nil
}

// CreativePrompt and AnalyzePrompt pass through to the assistant.
func (c *Composer) CreativePrompt(ctx context.Context, idea string) (string, string, error) {
	return c.client.CreativePrompt(ctx, idea)
}

func (c *Composer) AnalyzePrompt(ctx context.Context, prompt string) (*gen.PromptAnalysis, error) {
	return c.client.AnalyzePrompt(ctx, prompt)
}

// SendToEditor hands every generated scene's media to the editor registry.
// Each hand-off is named after its prompt's leading words; merged items go
// through the registry's standard probe.
func (c *Composer) SendToEditor() []*media.Item {
	c.mu.Lock()
	var records []media.HandOff
	for _, s := range c.scenes {
		if s.MediaID == "" {
			continue
		}
		src := c.registry.Get(s.MediaID)
		if src == nil {
			continue
		}
		records = append(records, media.HandOff{
			Name:           "Scene: " + sceneName(s.Prompt),
			Path:           src.Path,
			Duration:       src.Duration,
			HasAudio:       src.HasAudio,
			Origin:         media.OriginGenerated,
			Prompt:         s.Prompt,
			NegativePrompt: s.NegativePrompt,
			Operation:      src.Operation,
		})
	}
	c.mu.Unlock()

	items := c.registry.Merge(records)
	c.logger.Info("storyboard handed to editor", "count", len(items))
	return items
}

// Record captures the persistable project state.
func (c *Composer) Record() project.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec := project.Record{
		ProjectName: c.projectName,
		AspectRatio: c.aspectRatio,
		Tags:        append([]string(nil), c.tags...),
		Scenes:      make([]project.SceneEntry, 0, len(c.scenes)),
	}
	for _, s := range c.scenes {
		rec.Scenes = append(rec.Scenes, project.SceneEntry{
			ID:             s.ID,
			Prompt:         s.Prompt,
			NegativePrompt: s.NegativePrompt,
		})
	}
	return rec
}

// Restore replaces the studio state with a loaded record. Generated media
// links are session state and start empty after a load.
func (c *Composer) Restore(rec project.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projectName = rec.ProjectName
	c.aspectRatio = rec.AspectRatio
	c.tags = append([]string(nil), rec.Tags...)
	c.scenes = make([]Scene, 0, len(rec.Scenes))
	for _, s := range rec.Scenes {
		c.scenes = append(c.scenes, Scene{
			ID:             s.ID,
			Prompt:         s.Prompt,
			NegativePrompt: s.NegativePrompt,
		})
	}
}

func (c *Composer) ProjectName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectName
}

func (c *Composer) failJob(id string, cause error) {
	// Job updates after a failure use a fresh context; the caller's may
	// already be cancelled.
	if err := c.jobs.UpdateJobStatus(context.Background(), id, project.JobStatusFailed, cause.Error()); err != nil {
		c.logger.Warn("failed to record job failure", "job_id", id, "error", err)
	}
}

func (c *Composer) completeJob(ctx context.Context, id string) {
	if err := c.jobs.UpdateJobStatus(ctx, id, project.JobStatusCompleted, ""); err != nil {
		c.logger.Warn("failed to record job completion", "job_id", id, "error", err)
	}
}

// sceneName derives a short display name from a prompt: its first words,
// ellipsized past the limit.
func sceneName(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "Untitled Scene"
	}
	runes := []rune(prompt)
	if len(runes) <= handOffNameLimit {
		return prompt
	}
	return string(runes[:handOffNameLimit]) + "..."
}
