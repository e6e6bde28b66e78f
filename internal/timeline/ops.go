package timeline

import (
	"fmt"
	"time"

	"github.com/xylax/motion-agent/internal/media"
)

// Mutators replace a track's whole clip slice under the write lock rather
// than editing in place, so a reader holding a snapshot never observes a
// half-applied change.

// PlaceClip drops a media item onto a video track at the given pixel
// offset. The new clip is untrimmed: it spans the media's full natural
// duration. The embedded audio sub-record exists only when the media has an
// audio stream.
func (t *Timeline) PlaceClip(item *media.Item, trackID string, dropXPx float64) (Clip, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.videoTrackIndex(trackID)
	if idx < 0 {
		return Clip{}, fmt.Errorf("%w: %s", ErrUnknownTrack, trackID)
	}

	clip := Clip{
		ID:              newClipID(),
		MediaID:         item.ID,
		TrackID:         trackID,
		Duration:        item.Duration,
		TrimmedStart:    0,
		TrimmedDuration: item.Duration,
		StartOffset:     t.PixelsToSeconds(dropXPx),
		Effects:         []Effect{},
		Prompt:          item.Prompt,
		NegativePrompt:  item.NegativePrompt,
		Operation:       item.Operation,
		CreatedAt:       time.Now(),
	}
	if item.HasAudio {
		clip.Audio = &ClipAudio{Volume: 1}
	}

	t.replaceVideoClips(idx, append(cloneClips(t.videoTracks[idx].Clips), clip))
	return clip, nil
}

// PlaceAudioClip drops a media item onto an audio track. Media without an
// audio stream is rejected before any state changes.
func (t *Timeline) PlaceAudioClip(item *media.Item, trackID string, dropXPx float64) (AudioClip, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.audioTrackIndex(trackID)
	if idx < 0 {
		return AudioClip{}, fmt.Errorf("%w: %s", ErrUnknownTrack, trackID)
	}
	if !item.HasAudio {
		return AudioClip{}, ErrUnsupportedMedia
	}

	clip := AudioClip{
		ID:              newClipID(),
		MediaID:         item.ID,
		TrackID:         trackID,
		Duration:        item.Duration,
		TrimmedStart:    0,
		TrimmedDuration: item.Duration,
		StartOffset:     t.PixelsToSeconds(dropXPx),
		Volume:          1,
		Pan:             0,
		CreatedAt:       time.Now(),
	}

	t.replaceAudioClips(idx, append(cloneAudioClips(t.audioTracks[idx].Clips), clip))
	return clip, nil
}

// MoveClip relocates a clip (video or audio) to a new start offset,
// optionally onto another track of the same kind. Negative offsets floor
// at zero.
func (t *Timeline) MoveClip(id, trackID string, startOffset float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if startOffset < 0 {
		startOffset = 0
	}

	if ti, ci := t.locateVideoClip(id); ti >= 0 {
		dest := ti
		if trackID != "" {
			dest = t.videoTrackIndex(trackID)
			if dest < 0 {
				return fmt.Errorf("%w: %s", ErrUnknownTrack, trackID)
			}
		}
		clip := t.videoTracks[ti].Clips[ci]
		clip.TrackID = t.videoTracks[dest].ID
		clip.StartOffset = startOffset

		t.replaceVideoClips(ti, removeClip(t.videoTracks[ti].Clips, ci))
		t.replaceVideoClips(dest, append(cloneClips(t.videoTracks[dest].Clips), clip))
		return nil
	}

	if ti, ci := t.locateAudioClip(id); ti >= 0 {
		dest := ti
		if trackID != "" {
			dest = t.audioTrackIndex(trackID)
			if dest < 0 {
				return fmt.Errorf("%w: %s", ErrUnknownTrack, trackID)
			}
		}
		clip := t.audioTracks[ti].Clips[ci]
		clip.TrackID = t.audioTracks[dest].ID
		clip.StartOffset = startOffset

		t.replaceAudioClips(ti, removeAudioClip(t.audioTracks[ti].Clips, ci))
		t.replaceAudioClips(dest, append(cloneAudioClips(t.audioTracks[dest].Clips), clip))
		return nil
	}

	return fmt.Errorf("%w: %s", ErrClipNotFound, id)
}

// TrimClip adjusts the visible sub-range of a clip's source media. The new
// range must stay within the media's natural duration.
func (t *Timeline) TrimClip(id string, trimmedStart, trimmedDuration float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ti, ci := t.locateVideoClip(id); ti >= 0 {
		clip := t.videoTracks[ti].Clips[ci]
		if !trimValid(trimmedStart, trimmedDuration, clip.Duration) {
			return ErrInvalidTrim
		}
		clips := cloneClips(t.videoTracks[ti].Clips)
		clips[ci].TrimmedStart = trimmedStart
		clips[ci].TrimmedDuration = trimmedDuration
		t.replaceVideoClips(ti, clips)
		return nil
	}

	if ti, ci := t.locateAudioClip(id); ti >= 0 {
		clip := t.audioTracks[ti].Clips[ci]
		if !trimValid(trimmedStart, trimmedDuration, clip.Duration) {
			return ErrInvalidTrim
		}
		clips := cloneAudioClips(t.audioTracks[ti].Clips)
		clips[ci].TrimmedStart = trimmedStart
		clips[ci].TrimmedDuration = trimmedDuration
		t.replaceAudioClips(ti, clips)
		return nil
	}

	return fmt.Errorf("%w: %s", ErrClipNotFound, id)
}

// DeleteClip removes a clip from its track.
func (t *Timeline) DeleteClip(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ti, ci := t.locateVideoClip(id); ti >= 0 {
		t.replaceVideoClips(ti, removeClip(t.videoTracks[ti].Clips, ci))
		return nil
	}
	if ti, ci := t.locateAudioClip(id); ti >= 0 {
		t.replaceAudioClips(ti, removeAudioClip(t.audioTracks[ti].Clips, ci))
		return nil
	}
	return fmt.Errorf("%w: %s", ErrClipNotFound, id)
}

// SplitClip cuts a clip at timeline position at, which must fall strictly
// inside the clip's interval. The two halves share the media ID and
// partition both the timeline interval and the trimmed source range
// contiguously: the first keeps the original trimmed start, the second
// advances it by the first half's length.
func (t *Timeline) SplitClip(id string, at float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ti, ci := t.locateVideoClip(id); ti >= 0 {
		clip := t.videoTracks[ti].Clips[ci]
		if at <= clip.StartOffset || at >= clip.End() {
			return ErrSplitOutOfRange
		}
		delta := at - clip.StartOffset

		first := clip
		first.TrimmedDuration = delta

		second := clip
		second.ID = newClipID()
		second.StartOffset = at
		second.TrimmedStart = clip.TrimmedStart + delta
		second.TrimmedDuration = clip.TrimmedDuration - delta
		if clip.Audio != nil {
			audioCopy := *clip.Audio
			second.Audio = &audioCopy
		}

		clips := cloneClips(t.videoTracks[ti].Clips)
		clips[ci] = first
		clips = append(clips, second)
		t.replaceVideoClips(ti, clips)
		return nil
	}

	if ti, ci := t.locateAudioClip(id); ti >= 0 {
		clip := t.audioTracks[ti].Clips[ci]
		if at <= clip.StartOffset || at >= clip.End() {
			return ErrSplitOutOfRange
		}
		delta := at - clip.StartOffset

		first := clip
		first.TrimmedDuration = delta

		second := clip
		second.ID = newClipID()
		second.StartOffset = at
		second.TrimmedStart = clip.TrimmedStart + delta
		second.TrimmedDuration = clip.TrimmedDuration - delta

		clips := cloneAudioClips(t.audioTracks[ti].Clips)
		clips[ci] = first
		clips = append(clips, second)
		t.replaceAudioClips(ti, clips)
		return nil
	}

	return fmt.Errorf("%w: %s", ErrClipNotFound, id)
}

// EnhanceSpeech flags a clip's audio for AI speech enhancement. This is
// metadata only; no signal processing happens in the agent.
func (t *Timeline) EnhanceSpeech(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ti, ci := t.locateVideoClip(id); ti >= 0 {
		clip := t.videoTracks[ti].Clips[ci]
		if clip.Audio == nil {
			return ErrUnsupportedMedia
		}
		clips := cloneClips(t.videoTracks[ti].Clips)
		audioCopy := *clip.Audio
		audioCopy.IsEnhanced = true
		clips[ci].Audio = &audioCopy
		t.replaceVideoClips(ti, clips)
		return nil
	}

	if ti, ci := t.locateAudioClip(id); ti >= 0 {
		clips := cloneAudioClips(t.audioTracks[ti].Clips)
		clips[ci].IsEnhanced = true
		t.replaceAudioClips(ti, clips)
		return nil
	}

	return fmt.Errorf("%w: %s", ErrClipNotFound, id)
}

// SetAudioTrackMix updates an audio track's master mix state.
func (t *Timeline) SetAudioTrackMix(trackID string, muted, solo bool, volume, pan float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.audioTrackIndex(trackID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownTrack, trackID)
	}
	if volume < 0 {
		volume = 0
	} else if volume > 1 {
		volume = 1
	}
	if pan < -1 {
		pan = -1
	} else if pan > 1 {
		pan = 1
	}

	track := t.audioTracks[idx]
	track.IsMuted = muted
	track.IsSolo = solo
	track.Volume = volume
	track.Pan = pan
	t.audioTracks[idx] = track
	return nil
}

func (t *Timeline) videoTrackIndex(id string) int {
	for i, tr := range t.videoTracks {
		if tr.ID == id {
			return i
		}
	}
	return -1
}

func (t *Timeline) audioTrackIndex(id string) int {
	for i, tr := range t.audioTracks {
		if tr.ID == id {
			return i
		}
	}
	return -1
}

func (t *Timeline) locateVideoClip(id string) (trackIdx, clipIdx int) {
	for ti, tr := range t.videoTracks {
		for ci, c := range tr.Clips {
			if c.ID == id {
				return ti, ci
			}
		}
	}
	return -1, -1
}

func (t *Timeline) locateAudioClip(id string) (trackIdx, clipIdx int) {
	for ti, tr := range t.audioTracks {
		for ci, c := range tr.Clips {
			if c.ID == id {
				return ti, ci
			}
		}
	}
	return -1, -1
}

func (t *Timeline) replaceVideoClips(idx int, clips []Clip) {
	track := t.videoTracks[idx]
	track.Clips = clips
	t.videoTracks[idx] = track
}

func (t *Timeline) replaceAudioClips(idx int, clips []AudioClip) {
	track := t.audioTracks[idx]
	track.Clips = clips
	t.audioTracks[idx] = track
}

func trimValid(start, duration, natural float64) bool {
	return start >= 0 && duration > 0 && start+duration <= natural+1e-9
}

func cloneClips(in []Clip) []Clip {
	out := make([]Clip, len(in))
	copy(out, in)
	return out
}

func cloneAudioClips(in []AudioClip) []AudioClip {
	out := make([]AudioClip, len(in))
	copy(out, in)
	return out
}

func removeClip(in []Clip, idx int) []Clip {
	out := make([]Clip, 0, len(in)-1)
	out = append(out, in[:idx]...)
	return append(out, in[idx+1:]...)
}

func removeAudioClip(in []AudioClip, idx int) []AudioClip {
	out := make([]AudioClip, 0, len(in)-1)
	out = append(out, in[:idx]...)
	return append(out, in[idx+1:]...)
}
