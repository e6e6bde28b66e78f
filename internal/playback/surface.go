package playback

import (
	"sync"
	"time"
)

// Surface is the preview element the resolver reconciles: one media source
// at a time, a seekable position in source time, and its own playback
// clock. The browser's video element is the real surface; ClockSurface
// mirrors it inside the agent so the controller has a clock to sample.
type Surface interface {
	// SetSource switches the surface to a new media source. The switch
	// completes before any subsequent Seek takes effect.
	SetSource(mediaID, path string)
	SourceID() string
	Seek(sourceTime float64)
	Play()
	Pause()
	// CurrentTime returns the surface's position in source-media time.
	CurrentTime() float64
}

// ClockSurface advances its position with wall time while playing. The
// clock function is injectable so tests can step it deterministically.
type ClockSurface struct {
	mu       sync.Mutex
	mediaID  string
	path     string
	position float64
	playing  bool
	lastTick time.Time
	now      func() time.Time
}

func NewClockSurface() *ClockSurface {
	return &ClockSurface{now: time.Now}
}

// NewClockSurfaceWithClock creates a surface on an injected clock.
func NewClockSurfaceWithClock(now func() time.Time) *ClockSurface {
	return &ClockSurface{now: now}
}

func (s *ClockSurface) SetSource(mediaID, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mediaID == mediaID {
		return
	}
	s.advanceLocked()
	s.mediaID = mediaID
	s.path = path
}

func (s *ClockSurface) SourceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mediaID
}

func (s *ClockSurface) Seek(sourceTime float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sourceTime < 0 {
		sourceTime = 0
	}
	s.lastTick = s.now()
	s.position = sourceTime
}

func (s *ClockSurface) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing {
		return
	}
	s.playing = true
	s.lastTick = s.now()
}

func (s *ClockSurface) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		return
	}
	s.advanceLocked()
	s.playing = false
}

func (s *ClockSurface) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked()
	return s.position
}

func (s *ClockSurface) advanceLocked() {
	if !s.playing {
		return
	}
	now := s.now()
	s.position += now.Sub(s.lastTick).Seconds()
	s.lastTick = now
}
