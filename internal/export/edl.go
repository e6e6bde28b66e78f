// Package export renders the timeline to interchange formats for external
// editors. Only the edit decision list is supported; media is referenced,
// never copied.
package export

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/xylax/motion-agent/internal/media"
	"github.com/xylax/motion-agent/internal/timeline"
)

// Event is one EDL edit: a trimmed source interval placed on the record
// timeline.
type Event struct {
	ClipName  string
	MediaPath string
	SourceIn  float64
	SourceOut float64
	RecordIn  float64
	RecordOut float64
	Audio     bool
}

// ResolveEvents flattens the timeline into EDL events: video clips first,
// then audio clips, each ordered by record position. Clip names come from
// the registry; clips referencing unknown media are collected, not
// exported.
func ResolveEvents(tl *timeline.Timeline, reg *media.Registry) (events []Event, unresolved []string) {
	for _, tr := range tl.VideoTracks() {
		for _, c := range tr.Clips {
			item := reg.Get(c.MediaID)
			if item == nil {
				unresolved = append(unresolved, c.ID)
				continue
			}
			events = append(events, Event{
				ClipName:  item.Name,
				MediaPath: item.Path,
				SourceIn:  c.TrimmedStart,
				SourceOut: c.TrimmedStart + c.TrimmedDuration,
				RecordIn:  c.StartOffset,
				RecordOut: c.End(),
			})
		}
	}
	for _, tr := range tl.AudioTracks() {
		for _, c := range tr.Clips {
			item := reg.Get(c.MediaID)
			if item == nil {
				unresolved = append(unresolved, c.ID)
				continue
			}
			events = append(events, Event{
				ClipName:  item.Name,
				MediaPath: item.Path,
				SourceIn:  c.TrimmedStart,
				SourceOut: c.TrimmedStart + c.TrimmedDuration,
				RecordIn:  c.StartOffset,
				RecordOut: c.End(),
				Audio:     true,
			})
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Audio != events[j].Audio {
			return !events[i].Audio
		}
		return events[i].RecordIn < events[j].RecordIn
	})
	return events, unresolved
}

// GenerateEDL renders events as a CMX-style edit decision list.
func GenerateEDL(events []Event, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = 30
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	for i, ev := range events {
		channel := "V"
		if ev.Audio {
			channel = "A"
		}
		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s",
				i+1, "AX", channel,
				secondsToTimecode(ev.SourceIn, fps),
				secondsToTimecode(ev.SourceOut, fps),
				secondsToTimecode(ev.RecordIn, fps),
				secondsToTimecode(ev.RecordOut, fps)),
			fmt.Sprintf("* FROM CLIP NAME:  %s", ev.ClipName),
			fmt.Sprintf("* MEDIA PATH:  %s", ev.MediaPath),
		)
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func secondsToTimecode(s float64, fps int) string {
	totalFrames := int(math.Round(s * float64(fps)))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}
