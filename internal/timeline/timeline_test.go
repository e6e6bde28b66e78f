package timeline

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/xylax/motion-agent/internal/media"
)

const floatTolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func videoItem(duration float64, hasAudio bool) *media.Item {
	return &media.Item{
		ID:       "media-1",
		Name:     "clip.mp4",
		Path:     "/tmp/clip.mp4",
		Duration: duration,
		HasAudio: hasAudio,
		Probed:   true,
	}
}

func TestPlaceClipDropPosition(t *testing.T) {
	tests := []struct {
		name       string
		dropXPx    float64
		wantOffset float64
	}{
		{"two seconds in", 120, 2.0},
		{"at origin", 0, 0},
		{"negative floors at zero", -30, 0},
		{"fractional", 90, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := New(5, 3, 60)
			clip, err := tl.PlaceClip(videoItem(10, false), "v-track-1", tt.dropXPx)
			if err != nil {
				t.Fatalf("PlaceClip failed: %v", err)
			}
			if !almostEqual(clip.StartOffset, tt.wantOffset) {
				t.Errorf("StartOffset = %v, want %v", clip.StartOffset, tt.wantOffset)
			}
		})
	}
}

func TestPlaceClipUntrimmed(t *testing.T) {
	tl := New(5, 3, 60)
	clip, err := tl.PlaceClip(videoItem(7.5, true), "v-track-2", 60)
	if err != nil {
		t.Fatalf("PlaceClip failed: %v", err)
	}

	if clip.TrimmedStart != 0 {
		t.Errorf("TrimmedStart = %v, want 0", clip.TrimmedStart)
	}
	if clip.TrimmedDuration != 7.5 {
		t.Errorf("TrimmedDuration = %v, want 7.5", clip.TrimmedDuration)
	}
	if clip.Duration != 7.5 {
		t.Errorf("Duration = %v, want 7.5", clip.Duration)
	}
	if clip.Audio == nil {
		t.Fatal("expected audio sub-record for media with audio")
	}
	if clip.Audio.Volume != 1 {
		t.Errorf("Audio.Volume = %v, want 1", clip.Audio.Volume)
	}
}

func TestPlaceClipNoAudioSubRecord(t *testing.T) {
	tl := New(5, 3, 60)
	clip, err := tl.PlaceClip(videoItem(5, false), "v-track-1", 0)
	if err != nil {
		t.Fatalf("PlaceClip failed: %v", err)
	}
	if clip.Audio != nil {
		t.Error("expected no audio sub-record for silent media")
	}
}

func TestPlaceClipUnknownTrack(t *testing.T) {
	tl := New(5, 3, 60)
	if _, err := tl.PlaceClip(videoItem(5, false), "v-track-99", 0); !errors.Is(err, ErrUnknownTrack) {
		t.Errorf("expected ErrUnknownTrack, got %v", err)
	}
}

func TestPlaceAudioClipRejectsSilentMedia(t *testing.T) {
	tl := New(5, 3, 60)
	_, err := tl.PlaceAudioClip(videoItem(5, false), "a-track-1", 0)
	if !errors.Is(err, ErrUnsupportedMedia) {
		t.Fatalf("expected ErrUnsupportedMedia, got %v", err)
	}

	// Rejection must leave no trace on any track.
	for _, tr := range tl.AudioTracks() {
		if len(tr.Clips) != 0 {
			t.Errorf("track %s has %d clips after rejected placement", tr.ID, len(tr.Clips))
		}
	}
}

func TestPlaceAudioClip(t *testing.T) {
	tl := New(5, 3, 60)
	clip, err := tl.PlaceAudioClip(videoItem(4, true), "a-track-2", 120)
	if err != nil {
		t.Fatalf("PlaceAudioClip failed: %v", err)
	}
	if clip.Volume != 1 || clip.Pan != 0 {
		t.Errorf("default mix = (%v, %v), want (1, 0)", clip.Volume, clip.Pan)
	}
	if !almostEqual(clip.StartOffset, 2.0) {
		t.Errorf("StartOffset = %v, want 2.0", clip.StartOffset)
	}
}

func TestSplitClipPartition(t *testing.T) {
	tl := New(5, 3, 60)
	clip, err := tl.PlaceClip(videoItem(10, true), "v-track-1", 0)
	if err != nil {
		t.Fatalf("PlaceClip failed: %v", err)
	}
	if err := tl.TrimClip(clip.ID, 1, 8); err != nil {
		t.Fatalf("TrimClip failed: %v", err)
	}
	if err := tl.MoveClip(clip.ID, "", 2); err != nil {
		t.Fatalf("MoveClip failed: %v", err)
	}

	// Clip now spans [2, 10) on the timeline, source range [1, 9).
	if err := tl.SplitClip(clip.ID, 5); err != nil {
		t.Fatalf("SplitClip failed: %v", err)
	}

	clips := tl.VideoTracks()[0].Clips
	if len(clips) != 2 {
		t.Fatalf("got %d clips after split, want 2", len(clips))
	}

	first, second := clips[0], clips[1]
	if first.ID != clip.ID {
		t.Errorf("first half lost its ID")
	}
	if second.ID == clip.ID {
		t.Errorf("second half kept the original ID")
	}

	// Timeline partition: [2,5) and [5,10), contiguous.
	if !almostEqual(first.StartOffset, 2) || !almostEqual(first.End(), 5) {
		t.Errorf("first half spans [%v, %v), want [2, 5)", first.StartOffset, first.End())
	}
	if !almostEqual(second.StartOffset, 5) || !almostEqual(second.End(), 10) {
		t.Errorf("second half spans [%v, %v), want [5, 10)", second.StartOffset, second.End())
	}

	// Source partition: [1,4) and [4,9), contiguous.
	if !almostEqual(first.TrimmedStart, 1) || !almostEqual(first.TrimmedDuration, 3) {
		t.Errorf("first source range = (%v, %v), want (1, 3)", first.TrimmedStart, first.TrimmedDuration)
	}
	if !almostEqual(second.TrimmedStart, 4) || !almostEqual(second.TrimmedDuration, 5) {
		t.Errorf("second source range = (%v, %v), want (4, 5)", second.TrimmedStart, second.TrimmedDuration)
	}

	if first.MediaID != second.MediaID {
		t.Error("halves reference different media")
	}
	if second.Audio == nil {
		t.Error("second half lost its audio sub-record")
	}
	if first.Audio == second.Audio {
		t.Error("halves share one audio sub-record pointer")
	}
}

func TestSplitClipOutOfRange(t *testing.T) {
	tl := New(5, 3, 60)
	clip, _ := tl.PlaceClip(videoItem(10, false), "v-track-1", 0)

	for _, at := range []float64{0, 10, -1, 15} {
		if err := tl.SplitClip(clip.ID, at); !errors.Is(err, ErrSplitOutOfRange) {
			t.Errorf("SplitClip at %v: expected ErrSplitOutOfRange, got %v", at, err)
		}
	}
	if len(tl.VideoTracks()[0].Clips) != 1 {
		t.Error("failed split mutated the track")
	}
}

func TestTrimClipValidation(t *testing.T) {
	tl := New(5, 3, 60)
	clip, _ := tl.PlaceClip(videoItem(10, false), "v-track-1", 0)

	tests := []struct {
		name     string
		start    float64
		duration float64
		wantErr  bool
	}{
		{"full range", 0, 10, false},
		{"interior", 2, 5, false},
		{"to the end", 4, 6, false},
		{"negative start", -1, 5, true},
		{"zero duration", 2, 0, true},
		{"past natural end", 5, 6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tl.TrimClip(clip.ID, tt.start, tt.duration)
			if tt.wantErr && !errors.Is(err, ErrInvalidTrim) {
				t.Errorf("expected ErrInvalidTrim, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestMoveClipFloorsAtZero(t *testing.T) {
	tl := New(5, 3, 60)
	clip, _ := tl.PlaceClip(videoItem(5, false), "v-track-1", 120)

	if err := tl.MoveClip(clip.ID, "", -3); err != nil {
		t.Fatalf("MoveClip failed: %v", err)
	}
	moved, ok := tl.FindClip(clip.ID)
	if !ok {
		t.Fatal("clip vanished after move")
	}
	if moved.StartOffset != 0 {
		t.Errorf("StartOffset = %v, want 0", moved.StartOffset)
	}
}

func TestMoveClipAcrossTracks(t *testing.T) {
	tl := New(5, 3, 60)
	clip, _ := tl.PlaceClip(videoItem(5, false), "v-track-1", 0)

	if err := tl.MoveClip(clip.ID, "v-track-3", 4); err != nil {
		t.Fatalf("MoveClip failed: %v", err)
	}

	if len(tl.VideoTracks()[0].Clips) != 0 {
		t.Error("clip still on the source track")
	}
	dest := tl.VideoTracks()[2]
	if len(dest.Clips) != 1 {
		t.Fatal("clip missing from the destination track")
	}
	if dest.Clips[0].TrackID != "v-track-3" {
		t.Errorf("TrackID = %s, want v-track-3", dest.Clips[0].TrackID)
	}
}

func TestTotalDuration(t *testing.T) {
	tl := New(5, 3, 60)
	if d := tl.TotalDuration(); d != 0 {
		t.Errorf("empty timeline duration = %v, want 0", d)
	}

	tl.PlaceClip(videoItem(5, false), "v-track-1", 60)      // ends at 6
	tl.PlaceClip(videoItem(3, false), "v-track-2", 300)     // ends at 8
	tl.PlaceAudioClip(videoItem(2, true), "a-track-1", 420) // ends at 9

	if d := tl.TotalDuration(); !almostEqual(d, 9) {
		t.Errorf("TotalDuration = %v, want 9", d)
	}

	// Deleting the furthest clip shrinks the derived duration.
	audioID := tl.AudioTracks()[0].Clips[0].ID
	if err := tl.DeleteClip(audioID); err != nil {
		t.Fatalf("DeleteClip failed: %v", err)
	}
	if d := tl.TotalDuration(); !almostEqual(d, 8) {
		t.Errorf("TotalDuration after delete = %v, want 8", d)
	}
}

func TestEnhanceSpeech(t *testing.T) {
	tl := New(5, 3, 60)

	silent, _ := tl.PlaceClip(videoItem(5, false), "v-track-1", 0)
	if err := tl.EnhanceSpeech(silent.ID); !errors.Is(err, ErrUnsupportedMedia) {
		t.Errorf("expected ErrUnsupportedMedia for silent clip, got %v", err)
	}

	voiced, _ := tl.PlaceClip(videoItem(5, true), "v-track-2", 0)
	if err := tl.EnhanceSpeech(voiced.ID); err != nil {
		t.Fatalf("EnhanceSpeech failed: %v", err)
	}
	got, _ := tl.FindClip(voiced.ID)
	if got.Audio == nil || !got.Audio.IsEnhanced {
		t.Error("clip audio not flagged as enhanced")
	}
}

func TestSetAudioTrackMixClamps(t *testing.T) {
	tl := New(5, 3, 60)
	if err := tl.SetAudioTrackMix("a-track-1", true, false, 2.5, -7); err != nil {
		t.Fatalf("SetAudioTrackMix failed: %v", err)
	}
	tr := tl.AudioTracks()[0]
	if tr.Volume != 1 {
		t.Errorf("Volume = %v, want clamped to 1", tr.Volume)
	}
	if tr.Pan != -1 {
		t.Errorf("Pan = %v, want clamped to -1", tr.Pan)
	}
	if !tr.IsMuted {
		t.Error("IsMuted not set")
	}
}

func TestConcurrentMutationAndSnapshots(t *testing.T) {
	tl := New(5, 3, 60)
	item := videoItem(10, true)

	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			clip, err := tl.PlaceClip(item, "v-track-1", float64(i))
			if err != nil {
				t.Errorf("PlaceClip failed: %v", err)
				return
			}
			if err := tl.DeleteClip(clip.ID); err != nil {
				t.Errorf("DeleteClip failed: %v", err)
				return
			}
		}
		close(done)
	}()

	// Readers take snapshots while the writer churns; the race detector
	// flags any unguarded access.
	for r := 0; r < 2; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				for _, tr := range tl.VideoTracks() {
					_ = len(tr.Clips)
				}
				_ = tl.TotalDuration()
				_, _ = tl.FindClip("nope")
			}
		}()
	}

	wg.Wait()
}
