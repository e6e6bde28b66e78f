// Package timeline models the editor's multi-track arrangement: video and
// audio tracks holding clip placements that reference registry media by ID.
// The model owns no media bytes and performs no rendering; it is pure
// bookkeeping over trim and placement data.
//
// Clips on one track may overlap. Overlap is not rejected at placement
// time; the playback resolver's occlusion rule decides what is visible.
package timeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnknownTrack     = errors.New("unknown track")
	ErrClipNotFound     = errors.New("clip not found")
	ErrUnsupportedMedia = errors.New("media file does not contain audio")
	ErrInvalidTrim      = errors.New("trim out of bounds")
	ErrSplitOutOfRange  = errors.New("split point outside clip")
)

// ClipAudio is the embedded audio sub-record a video clip carries when its
// source media has an audio stream.
type ClipAudio struct {
	Volume     float64 `json:"volume"`
	IsEnhanced bool    `json:"is_enhanced"`
}

type Effect struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// Clip is a placement of one media item on one video track.
//
// Invariant, maintained by every mutator:
//
//	0 <= TrimmedStart, 0 < TrimmedDuration,
//	TrimmedStart+TrimmedDuration <= Duration, StartOffset >= 0.
type Clip struct {
	ID              string          `json:"id"`
	MediaID         string          `json:"media_id"`
	TrackID         string          `json:"track_id"`
	Duration        float64         `json:"duration"`
	TrimmedStart    float64         `json:"trimmed_start"`
	TrimmedDuration float64         `json:"trimmed_duration"`
	StartOffset     float64         `json:"start_offset"`
	Effects         []Effect        `json:"effects"`
	Prompt          string          `json:"prompt,omitempty"`
	NegativePrompt  string          `json:"negative_prompt,omitempty"`
	Operation       json.RawMessage `json:"operation,omitempty"`
	Audio           *ClipAudio      `json:"audio,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// End returns the exclusive end of the clip's timeline interval.
func (c Clip) End() float64 {
	return c.StartOffset + c.TrimmedDuration
}

// Contains reports whether timeline position p falls inside
// [StartOffset, StartOffset+TrimmedDuration).
func (c Clip) Contains(p float64) bool {
	return p >= c.StartOffset && p < c.End()
}

// AudioClip is a placement on an audio track.
type AudioClip struct {
	ID              string    `json:"id"`
	MediaID         string    `json:"media_id"`
	TrackID         string    `json:"track_id"`
	Duration        float64   `json:"duration"`
	TrimmedStart    float64   `json:"trimmed_start"`
	TrimmedDuration float64   `json:"trimmed_duration"`
	StartOffset     float64   `json:"start_offset"`
	Volume          float64   `json:"volume"`
	Pan             float64   `json:"pan"`
	IsEnhanced      bool      `json:"is_enhanced"`
	CreatedAt       time.Time `json:"created_at"`
}

func (c AudioClip) End() float64 {
	return c.StartOffset + c.TrimmedDuration
}

func (c AudioClip) Contains(p float64) bool {
	return p >= c.StartOffset && p < c.End()
}

type Track struct {
	ID    string `json:"id"`
	Clips []Clip `json:"clips"`
}

// AudioTrack carries master mix state alongside its clips. Mute, solo,
// volume, and pan feed the effective-gain computation during playback.
type AudioTrack struct {
	ID      string      `json:"id"`
	Clips   []AudioClip `json:"clips"`
	IsMuted bool        `json:"is_muted"`
	IsSolo  bool        `json:"is_solo"`
	Volume  float64     `json:"volume"`
	Pan     float64     `json:"pan"`
}

// Timeline holds the fixed track set for one editing session. Tracks are
// created up front and never added or removed.
//
// The playback controller's ticker goroutine reads track snapshots while
// the editor session mutates, so the track slices are guarded here rather
// than relying on callers to serialize.
type Timeline struct {
	mu              sync.RWMutex
	pixelsPerSecond float64
	videoTracks     []Track
	audioTracks     []AudioTrack
}

func New(videoTrackCount, audioTrackCount int, pixelsPerSecond float64) *Timeline {
	t := &Timeline{pixelsPerSecond: pixelsPerSecond}
	for i := 0; i < videoTrackCount; i++ {
		t.videoTracks = append(t.videoTracks, Track{ID: fmt.Sprintf("v-track-%d", i+1)})
	}
	for i := 0; i < audioTrackCount; i++ {
		t.audioTracks = append(t.audioTracks, AudioTrack{
			ID:     fmt.Sprintf("a-track-%d", i+1),
			Volume: 1,
			Pan:    0,
		})
	}
	return t
}

// VideoTracks returns a snapshot of the video tracks in bottom-to-top
// order: higher indexes occlude lower ones during playback.
func (t *Timeline) VideoTracks() []Track {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Track, len(t.videoTracks))
	copy(out, t.videoTracks)
	return out
}

func (t *Timeline) AudioTracks() []AudioTrack {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]AudioTrack, len(t.audioTracks))
	copy(out, t.audioTracks)
	return out
}

// TotalDuration is derived, never stored: the furthest clip end across all
// video and audio tracks, 0 for an empty timeline.
func (t *Timeline) TotalDuration() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	max := 0.0
	for _, tr := range t.videoTracks {
		for _, c := range tr.Clips {
			if end := c.End(); end > max {
				max = end
			}
		}
	}
	for _, tr := range t.audioTracks {
		for _, c := range tr.Clips {
			if end := c.End(); end > max {
				max = end
			}
		}
	}
	return max
}

// FindClip locates a video clip by ID.
func (t *Timeline) FindClip(id string) (Clip, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, tr := range t.videoTracks {
		for _, c := range tr.Clips {
			if c.ID == id {
				return c, true
			}
		}
	}
	return Clip{}, false
}

// FindAudioClip locates an audio clip by ID.
func (t *Timeline) FindAudioClip(id string) (AudioClip, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, tr := range t.audioTracks {
		for _, c := range tr.Clips {
			if c.ID == id {
				return c, true
			}
		}
	}
	return AudioClip{}, false
}

// PixelsToSeconds converts a ruler/track pixel offset to seconds, floored
// at zero.
func (t *Timeline) PixelsToSeconds(px float64) float64 {
	s := px / t.pixelsPerSecond
	if s < 0 {
		return 0
	}
	return s
}

func newClipID() string {
	return uuid.NewString()
}
