// Package probe extracts duration, audio presence, and a first-frame
// thumbnail from a media file. The real implementation shells out to
// ffprobe/ffmpeg; environments without them fall back to the stub, which
// reports the same degraded result a failed probe does.
package probe

import (
	"context"
)

// Result carries the metadata backfilled onto a media item after its
// asynchronous probe completes. A failed probe yields the zero Result, never
// an error: the item stays usable with duration 0 and no audio.
type Result struct {
	Duration      float64
	HasAudio      bool
	ThumbnailPath string
}

type Prober interface {
	// Probe inspects the file at path. It must release every decode
	// resource it allocates on all exit paths, including cancellation.
	Probe(ctx context.Context, path string) (Result, error)
}

const (
	maxStderrBytes = 8 * 1024 // tail of stderr kept for diagnostics

	// Seconds into the file the thumbnail frame is grabbed from. Slightly
	// past zero so the first keyframe has decoded.
	thumbnailOffset = 0.1
)
