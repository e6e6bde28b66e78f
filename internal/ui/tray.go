package ui

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"
	"github.com/xylax/motion-agent/internal/editor"
	"github.com/xylax/motion-agent/internal/playback"
)

type Tray struct {
	session *editor.Session
	logger  *slog.Logger

	statusItem *systray.MenuItem
	mediaItem  *systray.MenuItem
	pauseItem  *systray.MenuItem

	mu sync.Mutex

	onQuit func()
}

type TrayConfig struct {
	Session *editor.Session
	Logger  *slog.Logger
	OnQuit  func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		session: cfg.Session,
		logger:  cfg.Logger,
		onQuit:  cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Xylax Motion")
	systray.SetTooltip("Xylax Motion Agent")

	t.statusItem = systray.AddMenuItem("Playback: Paused", "Current playback state")
	t.statusItem.Disable()

	t.mediaItem = systray.AddMenuItem("Media: 0", "Items in the media bin")
	t.mediaItem.Disable()

	systray.AddSeparator()

	t.pauseItem = systray.AddMenuItem("Pause Playback", "Pause the preview")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Xylax Motion Agent")

	go func() {
		for {
			select {
			case <-t.pauseItem.ClickedCh:
				t.pausePlayback()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	go t.followPlayhead()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) pausePlayback() {
	t.session.Controller().Pause()
}

// followPlayhead mirrors playback state into the tray menu.
func (t *Tray) followPlayhead() {
	updates, cancel := t.session.Controller().Subscribe()
	defer cancel()

	for u := range updates {
		state := playback.StatePaused
		if u.Playing {
			state = playback.StatePlaying
		}
		t.UpdateStatus(state)

		t.mu.Lock()
		if t.mediaItem != nil {
			t.mediaItem.SetTitle(fmt.Sprintf("Media: %d", t.session.Registry().Count()))
		}
		t.mu.Unlock()
	}
}

// UpdateStatus sets the playback line in the tray menu. Safe to call before
// the tray is ready; updates arriving that early are dropped.
func (t *Tray) UpdateStatus(state playback.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.statusItem == nil {
		return
	}
	if state == playback.StatePlaying {
		t.statusItem.SetTitle("Playback: Playing")
	} else {
		t.statusItem.SetTitle("Playback: Paused")
	}
}

// Quit tears down the tray loop; used by the agent's shutdown path so a
// signal-initiated exit does not leave the tray running.
func (t *Tray) Quit() {
	systray.Quit()
}
