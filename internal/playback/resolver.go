// Package playback resolves what the preview surface should show at a
// given playhead position and drives it while playing. It never owns time:
// while playing, the controller mirrors the surface's own clock back into
// the shared playhead once per tick.
package playback

import (
	"github.com/xylax/motion-agent/internal/timeline"
)

// Active identifies the single video clip visible at a playhead position,
// together with the position mapped into the clip's source media.
type Active struct {
	Clip       timeline.Clip
	SourceTime float64
}

// ResolveVideo scans video tracks from topmost (highest index) to
// bottommost and selects, from the first track with a clip covering p, that
// clip. Higher tracks occlude lower ones; exactly one clip is active no
// matter how many tracks hold a candidate. The result depends only on the
// playhead, the track order, and the clip set.
func ResolveVideo(tracks []timeline.Track, p float64) (Active, bool) {
	for i := len(tracks) - 1; i >= 0; i-- {
		for _, c := range tracks[i].Clips {
			if c.Contains(p) {
				return Active{
					Clip:       c,
					SourceTime: c.TrimmedStart + (p - c.StartOffset),
				}, true
			}
		}
	}
	return Active{}, false
}

// Sounding is one audio source audible at a playhead position with its
// effective gain already computed.
type Sounding struct {
	ClipID     string
	MediaID    string
	SourceTime float64
	Gain       float64
	Pan        float64
}

// ResolveAudio collects every clip sounding at p: clips on audio tracks,
// weighted by clip volume times track volume, and the embedded audio of
// video clips, weighted by the sub-record volume. A muted track contributes
// nothing; when any track is soloed, only soloed tracks contribute.
func ResolveAudio(audioTracks []timeline.AudioTrack, videoTracks []timeline.Track, p float64) []Sounding {
	anySolo := false
	for _, tr := range audioTracks {
		if tr.IsSolo {
			anySolo = true
			break
		}
	}

	var out []Sounding
	for _, tr := range audioTracks {
		factor := tr.Volume
		if tr.IsMuted || (anySolo && !tr.IsSolo) {
			factor = 0
		}
		for _, c := range tr.Clips {
			if !c.Contains(p) {
				continue
			}
			out = append(out, Sounding{
				ClipID:     c.ID,
				MediaID:    c.MediaID,
				SourceTime: c.TrimmedStart + (p - c.StartOffset),
				Gain:       c.Volume * factor,
				Pan:        clampPan(c.Pan + tr.Pan),
			})
		}
	}

	for _, tr := range videoTracks {
		for _, c := range tr.Clips {
			if c.Audio == nil || !c.Contains(p) {
				continue
			}
			out = append(out, Sounding{
				ClipID:     c.ID,
				MediaID:    c.MediaID,
				SourceTime: c.TrimmedStart + (p - c.StartOffset),
				Gain:       c.Audio.Volume,
			})
		}
	}

	return out
}

func clampPan(p float64) float64 {
	if p < -1 {
		return -1
	}
	if p > 1 {
		return 1
	}
	return p
}
