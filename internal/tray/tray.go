// Package tray provides the system tray icon and menu using
// getlantern/systray.
package tray

import (
	"github.com/getlantern/systray"
	"github.com/rs/zerolog"
)

// Action is a user request coming from the tray menu.
type Action int

const (
	ActionTogglePause Action = iota
	ActionToggleDrag
	ActionOpenSettings
	ActionQuit
)

// Tray wraps the systray event loop. Menu clicks are delivered on
// Actions; the consumer loop drains them alongside input events.
type Tray struct {
	log     zerolog.Logger
	actions chan Action
	readyCh chan struct{}
	quitCh  chan struct{}

	pauseItem *systray.MenuItem
	dragItem  *systray.MenuItem

	// Desired states applied when the menu comes up, and kept current
	// afterwards.
	paused      bool
	dragEnabled bool
}

func New(log zerolog.Logger) *Tray {
	return &Tray{
		log:     log.With().Str("component", "tray").Logger(),
		actions: make(chan Action, 8),
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}
}

// Actions returns the channel of menu clicks.
func (t *Tray) Actions() <-chan Action {
	return t.actions
}

// Run starts the systray loop. It blocks until Stop is called or the
// user quits from the menu.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Stop ends the tray loop, which unblocks Run.
func (t *Tray) Stop() {
	systray.Quit()
}

// SetPaused updates the pause menu entry. Safe to call before the menu
// exists; the state is applied when it comes up.
func (t *Tray) SetPaused(paused bool) {
	t.paused = paused
	if t.pauseItem == nil {
		return
	}
	if paused {
		t.pauseItem.SetTitle("Resume")
	} else {
		t.pauseItem.SetTitle("Pause")
	}
}

// SetDragEnabled updates the drag checkbox.
func (t *Tray) SetDragEnabled(enabled bool) {
	t.dragEnabled = enabled
	if t.dragItem == nil {
		return
	}
	if enabled {
		t.dragItem.Check()
	} else {
		t.dragItem.Uncheck()
	}
}

func (t *Tray) onReady() {
	systray.SetTitle("keyviz")
	systray.SetTooltip("Keystroke overlay")
	systray.SetIcon(getIcon())

	t.pauseItem = systray.AddMenuItem("Pause", "Pause or resume the overlay")
	t.dragItem = systray.AddMenuItemCheckbox("Drag mode", "Let the overlay be moved with the mouse", t.dragEnabled)
	settingsItem := systray.AddMenuItem("Open settings", "Open the settings file in the default editor")
	systray.AddSeparator()
	quitItem := systray.AddMenuItem("Quit", "Exit")

	// Re-apply state set before the menu existed.
	t.SetPaused(t.paused)
	t.SetDragEnabled(t.dragEnabled)

	close(t.readyCh)

	go func() {
		for {
			select {
			case <-t.pauseItem.ClickedCh:
				t.emit(ActionTogglePause)
			case <-t.dragItem.ClickedCh:
				t.emit(ActionToggleDrag)
			case <-settingsItem.ClickedCh:
				t.emit(ActionOpenSettings)
			case <-quitItem.ClickedCh:
				t.emit(ActionQuit)
			case <-t.quitCh:
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	close(t.quitCh)
}

// emit never blocks the click goroutine; a stalled consumer just loses
// the click.
func (t *Tray) emit(a Action) {
	select {
	case t.actions <- a:
	default:
		t.log.Warn().Int("action", int(a)).Msg("dropping tray action, consumer busy")
	}
}

// getIcon returns a minimal valid 16x16 32-bit ICO, transparent.
func getIcon() []byte {
	icon := make([]byte, 1118)
	copy(icon[0:6], []byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x00})
	copy(icon[6:22], []byte{
		0x10, 0x10, 0x00, 0x00, 0x01, 0x00, 0x20, 0x00,
		0x48, 0x04, 0x00, 0x00,
		0x16, 0x00, 0x00, 0x00,
	})
	copy(icon[22:62], []byte{
		0x28, 0x00, 0x00, 0x00,
		0x10, 0x00, 0x00, 0x00,
		0x20, 0x00, 0x00, 0x00,
		0x01, 0x00,
		0x20, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x04, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	})
	return icon
}
