// Package media holds the session's catalog of source media. The registry
// is append-only: items are never removed while the session lives, so clips
// can reference them by ID without ownership concerns.
package media

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xylax/motion-agent/internal/probe"
)

const (
	OriginUploaded  = "uploaded"
	OriginGenerated = "generated"
)

// Item is one piece of source media known to the editor. Duration, HasAudio,
// and ThumbnailPath are authoritative only once Probed is true; until then
// the item carries the degraded defaults a failed probe would leave behind.
type Item struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Path           string          `json:"path"`
	Duration       float64         `json:"duration"`
	HasAudio       bool            `json:"has_audio"`
	ThumbnailPath  string          `json:"thumbnail_path,omitempty"`
	Origin         string          `json:"origin,omitempty"`
	Prompt         string          `json:"prompt,omitempty"`
	NegativePrompt string          `json:"negative_prompt,omitempty"`
	Operation      json.RawMessage `json:"operation,omitempty"`
	Probed         bool            `json:"probed"`
	CreatedAt      time.Time       `json:"created_at"`
}

// HandOff is the shape accepted from the studio (or any upstream producer).
// Supplied duration/audio metadata is advisory: the registry re-probes and
// the probe result overwrites it.
type HandOff struct {
	ID             string
	Name           string
	Path           string
	Duration       float64
	HasAudio       bool
	Origin         string
	Prompt         string
	NegativePrompt string
	Operation      json.RawMessage
}

type Registry struct {
	mu     sync.Mutex
	items  []*Item
	byID   map[string]*Item
	closed bool

	prober probe.Prober
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	probes sync.WaitGroup
}

func NewRegistry(prober probe.Prober, logger *slog.Logger) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		byID:   map[string]*Item{},
		prober: prober,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddUpload registers an uploaded file. The item is returned immediately
// with zero metadata; the probe backfills duration, audio presence, and
// thumbnail asynchronously.
func (r *Registry) AddUpload(name, path string) *Item {
	item := &Item{
		ID:        uuid.NewString(),
		Name:      name,
		Path:      path,
		Origin:    OriginUploaded,
		CreatedAt: time.Now(),
	}
	r.insert(item)
	r.probeAsync(item.ID, path)
	return item
}

// AddGenerated registers media produced by the generation service, keeping
// its prompt and opaque operation record as provenance.
func (r *Registry) AddGenerated(name, path, prompt, negativePrompt string, operation json.RawMessage) *Item {
	item := &Item{
		ID:             uuid.NewString(),
		Name:           name,
		Path:           path,
		Origin:         OriginGenerated,
		Prompt:         prompt,
		NegativePrompt: negativePrompt,
		Operation:      operation,
		CreatedAt:      time.Now(),
	}
	r.insert(item)
	r.probeAsync(item.ID, path)
	return item
}

// Merge accepts hand-off records and inserts each as a new item. Every
// merged item goes through the standard probe even when metadata was
// supplied; the probe result wins.
func (r *Registry) Merge(records []HandOff) []*Item {
	items := make([]*Item, 0, len(records))
	for _, rec := range records {
		id := rec.ID
		if id == "" {
			id = uuid.NewString()
		}
		item := &Item{
			ID:             id,
			Name:           rec.Name,
			Path:           rec.Path,
			Duration:       rec.Duration,
			HasAudio:       rec.HasAudio,
			Origin:         rec.Origin,
			Prompt:         rec.Prompt,
			NegativePrompt: rec.NegativePrompt,
			Operation:      rec.Operation,
			CreatedAt:      time.Now(),
		}
		r.insert(item)
		r.probeAsync(item.ID, item.Path)
		items = append(items, item)
	}
	return items
}

func (r *Registry) insert(item *Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, item)
	r.byID[item.ID] = item
}

func (r *Registry) probeAsync(id, path string) {
	r.probes.Add(1)
	go func() {
		defer r.probes.Done()

		result, err := r.prober.Probe(r.ctx, path)
		if err != nil {
			// Degrade, don't fail: the item stays placeable with
			// zero duration and no audio.
			if r.logger != nil {
				r.logger.Warn("media probe failed", "media_id", id, "error", err)
			}
			result = probe.Result{}
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed {
			// Late result after teardown; nothing to update.
			return
		}
		item, ok := r.byID[id]
		if !ok {
			return
		}
		item.Duration = result.Duration
		item.HasAudio = result.HasAudio
		item.ThumbnailPath = result.ThumbnailPath
		item.Probed = true
	}()
}

// Get returns the item with the given ID, or nil.
func (r *Registry) Get(id string) *Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item, ok := r.byID[id]; ok {
		copied := *item
		return &copied
	}
	return nil
}

// List returns the items in insertion order.
func (r *Registry) List() []*Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Item, len(r.items))
	for i, item := range r.items {
		copied := *item
		out[i] = &copied
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// WaitProbes blocks until every in-flight probe has settled.
func (r *Registry) WaitProbes() {
	r.probes.Wait()
}

// Close cancels in-flight probes and discards their late results.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
}
