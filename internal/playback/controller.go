package playback

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/xylax/motion-agent/internal/timeline"
)

// ErrNothingToPlay is returned by Play when no clip is active at the
// current playhead.
var ErrNothingToPlay = errors.New("no clip at playhead")

// seekTolerance is the drift, in seconds, below which the controller
// leaves the surface's position alone during reconciliation. Nudging the
// surface on every tick would cause visible stutter.
const seekTolerance = 0.1

type State int

const (
	StatePaused State = iota
	StatePlaying
)

func (s State) String() string {
	if s == StatePlaying {
		return "playing"
	}
	return "paused"
}

// Update is a playhead snapshot published to subscribers on every tick and
// on every explicit state change.
type Update struct {
	Position      float64 `json:"position"`
	Playing       bool    `json:"playing"`
	ActiveClipID  string  `json:"active_clip_id,omitempty"`
	ActiveMediaID string  `json:"active_media_id,omitempty"`
	TotalDuration float64 `json:"total_duration"`
}

// TrackSource supplies track snapshots for resolution. *timeline.Timeline
// satisfies it.
type TrackSource interface {
	VideoTracks() []timeline.Track
	AudioTracks() []timeline.AudioTrack
	TotalDuration() float64
}

// PathResolver maps a media ID to a playable local path.
type PathResolver func(mediaID string) (string, bool)

// Controller is the playback state machine: Paused or Playing, a shared
// playhead in timeline seconds, and a preview surface it reconciles. While
// playing it samples the surface clock on a fixed tick, maps the surface's
// source time back through the active clip into timeline time, and
// re-resolves. The ticker goroutine is stopped on Pause, on Close, and
// when playback runs off the end of the active material.
type Controller struct {
	mu       sync.Mutex
	state    State
	playhead float64

	surface  Surface
	tracks   TrackSource
	resolve  PathResolver
	interval time.Duration
	logger   *slog.Logger

	stop chan struct{}
	done chan struct{}

	subs map[chan Update]struct{}
}

func NewController(surface Surface, tracks TrackSource, resolve PathResolver, tickRate int, logger *slog.Logger) *Controller {
	if tickRate <= 0 {
		tickRate = 30
	}
	return &Controller{
		surface:  surface,
		tracks:   tracks,
		resolve:  resolve,
		interval: time.Second / time.Duration(tickRate),
		logger:   logger,
		subs:     map[chan Update]struct{}{},
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Playhead() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playhead
}

// Play starts playback from the current playhead. When no clip is active
// there it is a no-op and reports ErrNothingToPlay; the state stays Paused.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StatePlaying {
		return nil
	}

	active, ok := ResolveVideo(c.tracks.VideoTracks(), c.playhead)
	if !ok {
		return ErrNothingToPlay
	}

	c.reconcileLocked(active)
	c.surface.Play()
	c.state = StatePlaying

	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(c.stop, c.done)

	if c.logger != nil {
		c.logger.Debug("playback started",
			"position", c.playhead,
			"clip_id", active.Clip.ID,
			"media_id", active.Clip.MediaID)
	}
	c.publishLocked()
	return nil
}

// Pause stops playback, leaving the playhead where the last tick put it.
// The first caller takes ownership of the stop channel; concurrent callers
// only wait for the run goroutine to finish.
func (c *Controller) Pause() {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop = nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if done != nil {
		<-done
	}
}

// SetPlayhead moves the playhead to an absolute timeline position, clamped
// to [0, TotalDuration]. When paused, the surface is reconciled so the
// preview shows the frame under the new position.
func (c *Controller) SetPlayhead(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seconds < 0 {
		seconds = 0
	}
	if total := c.tracks.TotalDuration(); seconds > total {
		seconds = total
	}
	c.playhead = seconds

	if c.state == StatePaused {
		if active, ok := ResolveVideo(c.tracks.VideoTracks(), c.playhead); ok {
			c.reconcileLocked(active)
		}
	}
	c.publishLocked()
}

// SeekRuler converts a click on the timeline ruler to a playhead position:
// the gutter is subtracted from the click's x pixel and the remainder
// divided by the scale. Clicks inside the gutter (negative after
// subtraction) are ignored. Seeking never implies playing.
func (c *Controller) SeekRuler(clickXPx, gutterPx, pixelsPerSecond float64) {
	x := clickXPx - gutterPx
	if x < 0 {
		return
	}
	c.SetPlayhead(x / pixelsPerSecond)
}

// Subscribe registers an update channel. The returned cancel function
// removes it; updates are dropped rather than blocking a slow subscriber.
func (c *Controller) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 16)
	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.subs[ch]; ok {
			delete(c.subs, ch)
			close(ch)
		}
	}
}

// Snapshot returns the current playhead state without mutating anything.
func (c *Controller) Snapshot() Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close stops playback and drops all subscribers.
func (c *Controller) Close() {
	c.Pause()
	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.subs {
		delete(c.subs, ch)
		close(ch)
	}
}

func (c *Controller) run(stop, done chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(done)
	defer func() {
		c.mu.Lock()
		c.surface.Pause()
		c.state = StatePaused
		c.stop = nil
		c.publishLocked()
		c.mu.Unlock()
	}()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !c.step() {
				return
			}
		}
	}
}

// step performs one playback tick: mirror the surface clock into the
// playhead via the active clip's mapping, re-resolve, and reconcile. It
// returns false when playback should stop (no active clip, the implicit
// pause).
func (c *Controller) step() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying {
		return false
	}

	active, ok := ResolveVideo(c.tracks.VideoTracks(), c.playhead)
	if ok && active.Clip.MediaID == c.surface.SourceID() {
		// The surface owns time while its source is the active clip:
		// map its source position back into timeline time.
		st := c.surface.CurrentTime()
		c.playhead = active.Clip.StartOffset + (st - active.Clip.TrimmedStart)
	} else {
		// Source mismatch (or gap): advance by the tick so the playhead
		// walks forward into the next clip or off the end.
		c.playhead += c.interval.Seconds()
	}

	active, ok = ResolveVideo(c.tracks.VideoTracks(), c.playhead)
	if !ok {
		if c.logger != nil {
			c.logger.Debug("playback ran out of material", "position", c.playhead)
		}
		return false
	}

	c.reconcileLocked(active)
	c.publishLocked()
	return true
}

// reconcileLocked drives the surface toward the active clip: switch the
// source only when it differs, then correct the position only when drift
// exceeds the tolerance. Source before seek, always.
func (c *Controller) reconcileLocked(active Active) {
	if active.Clip.MediaID != c.surface.SourceID() {
		path, ok := c.resolve(active.Clip.MediaID)
		if !ok {
			if c.logger != nil {
				c.logger.Warn("active clip references unknown media", "media_id", active.Clip.MediaID)
			}
			return
		}
		c.surface.SetSource(active.Clip.MediaID, path)
		c.surface.Seek(active.SourceTime)
		return
	}

	drift := c.surface.CurrentTime() - active.SourceTime
	if drift < 0 {
		drift = -drift
	}
	if drift > seekTolerance {
		c.surface.Seek(active.SourceTime)
	}
}

func (c *Controller) snapshotLocked() Update {
	u := Update{
		Position:      c.playhead,
		Playing:       c.state == StatePlaying,
		TotalDuration: c.tracks.TotalDuration(),
	}
	if active, ok := ResolveVideo(c.tracks.VideoTracks(), c.playhead); ok {
		u.ActiveClipID = active.Clip.ID
		u.ActiveMediaID = active.Clip.MediaID
	}
	return u
}

func (c *Controller) publishLocked() {
	u := c.snapshotLocked()
	for ch := range c.subs {
		select {
		case ch <- u:
		default:
		}
	}
}
