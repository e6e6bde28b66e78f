// Package editor owns one editing session: the media registry, the
// timeline, the playback controller, and the single-clip selection. All
// timeline mutation funnels through the session mutex, so the model only
// ever sees one writer.
package editor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/xylax/motion-agent/internal/media"
	"github.com/xylax/motion-agent/internal/playback"
	"github.com/xylax/motion-agent/internal/timeline"
)

var (
	ErrUnknownMedia = errors.New("unknown media")
	ErrNoSelection  = errors.New("no clip selected")
)

type Session struct {
	mu       sync.Mutex
	registry *media.Registry
	tl       *timeline.Timeline
	ctrl     *playback.Controller
	selected string
}

func NewSession(registry *media.Registry, tl *timeline.Timeline, ctrl *playback.Controller) *Session {
	return &Session{registry: registry, tl: tl, ctrl: ctrl}
}

func (s *Session) Registry() *media.Registry        { return s.registry }
func (s *Session) Timeline() *timeline.Timeline     { return s.tl }
func (s *Session) Controller() *playback.Controller { return s.ctrl }

// PlaceMedia drops a registry item onto a track. Placing selects the new
// clip, matching the drop gesture's focus behavior.
func (s *Session) PlaceMedia(mediaID, trackID string, dropXPx float64) (timeline.Clip, error) {
	item := s.registry.Get(mediaID)
	if item == nil {
		return timeline.Clip{}, fmt.Errorf("%w: %s", ErrUnknownMedia, mediaID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	clip, err := s.tl.PlaceClip(item, trackID, dropXPx)
	if err != nil {
		return timeline.Clip{}, err
	}
	s.selected = clip.ID
	return clip, nil
}

// PlaceMediaAudio drops a registry item onto an audio track; media without
// an audio stream is rejected.
func (s *Session) PlaceMediaAudio(mediaID, trackID string, dropXPx float64) (timeline.AudioClip, error) {
	item := s.registry.Get(mediaID)
	if item == nil {
		return timeline.AudioClip{}, fmt.Errorf("%w: %s", ErrUnknownMedia, mediaID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	clip, err := s.tl.PlaceAudioClip(item, trackID, dropXPx)
	if err != nil {
		return timeline.AudioClip{}, err
	}
	s.selected = clip.ID
	return clip, nil
}

func (s *Session) MoveClip(id, trackID string, startOffset float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.MoveClip(id, trackID, startOffset)
}

func (s *Session) TrimClip(id string, trimmedStart, trimmedDuration float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.TrimClip(id, trimmedStart, trimmedDuration)
}

// DeleteClip removes a clip; deleting the selected clip clears the
// selection.
func (s *Session) DeleteClip(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tl.DeleteClip(id); err != nil {
		return err
	}
	if s.selected == id {
		s.selected = ""
	}
	return nil
}

// DeleteSelected is the Delete/Backspace key path.
func (s *Session) DeleteSelected() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == "" {
		return ErrNoSelection
	}
	if err := s.tl.DeleteClip(s.selected); err != nil {
		return err
	}
	s.selected = ""
	return nil
}

func (s *Session) SplitClip(id string, at float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.SplitClip(id, at)
}

// SplitSelectedAtPlayhead is the S-key path: cut the selected clip at the
// current playhead position.
func (s *Session) SplitSelectedAtPlayhead() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == "" {
		return ErrNoSelection
	}
	return s.tl.SplitClip(s.selected, s.ctrl.Playhead())
}

func (s *Session) EnhanceSpeech(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.EnhanceSpeech(id)
}

func (s *Session) SetAudioTrackMix(trackID string, muted, solo bool, volume, pan float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.SetAudioTrackMix(trackID, muted, solo, volume, pan)
}

// Select marks a clip as the keyboard target. An empty ID clears the
// selection; an unknown ID is an error.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		s.selected = ""
		return nil
	}
	if _, ok := s.tl.FindClip(id); ok {
		s.selected = id
		return nil
	}
	if _, ok := s.tl.FindAudioClip(id); ok {
		s.selected = id
		return nil
	}
	return fmt.Errorf("%w: %s", timeline.ErrClipNotFound, id)
}

func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}
