// Package combo turns the normalized input stream into the decaying
// list of key-combo entries the overlay displays. It owns the held
// modifier set, repeat coalescing, the pause hotkey, and expiry.
package combo

import (
	"time"

	evdev "github.com/holoplot/go-evdev"

	"keyviz/internal/hotkey"
	"keyviz/internal/input"
	"keyviz/internal/layout"
)

// Item is one displayed entry. At is the time of the last keystroke
// that produced or refreshed it; age and expiry derive from it.
type Item struct {
	Text string
	At   time.Time
}

// Options are the tunables the engine consults on every event. Updates
// take effect immediately via UpdateOptions.
type Options struct {
	MaxItems       int
	TTL            time.Duration
	RepeatCoalesce time.Duration
	ModifierGrace  time.Duration
	PauseHotkey    hotkey.Hotkey
}

// Action reports what an event changed, so the caller knows whether to
// re-render and whether the paused state flipped.
type Action struct {
	Render        bool
	PausedChanged bool
	Paused        bool
}

// Engine is single-goroutine: the consumer loop owns it and feeds it
// events and ticks. The injectable clock keeps expiry testable.
type Engine struct {
	opts   Options
	layout *layout.State

	heldMods     map[evdev.EvCode]struct{}
	modReleaseAt map[evdev.EvCode]time.Time
	items        []Item
	paused       bool

	now func() time.Time
}

func New(opts Options, lay *layout.State) *Engine {
	return &Engine{
		opts:         opts,
		layout:       lay,
		heldMods:     make(map[evdev.EvCode]struct{}),
		modReleaseAt: make(map[evdev.EvCode]time.Time),
		now:          time.Now,
	}
}

// HandleEvent processes one input event and reports what changed.
func (e *Engine) HandleEvent(ev input.Event) Action {
	now := e.now()
	e.pruneMods(now)

	switch ev.Type {
	case input.KeyDown:
		return e.keyDown(ev.Code, now)
	case input.KeyRepeat:
		return e.keyRepeat(ev.Code, now)
	case input.KeyUp:
		e.keyUp(ev.Code, now)
		return Action{}
	case input.MouseDown:
		return e.mouseDown(ev.Code, now)
	default:
		return Action{}
	}
}

// HandleEventSuppressed keeps layout and modifier state warm while the
// active application suppresses display, so resuming is seamless. It
// never produces items and never checks the pause hotkey.
func (e *Engine) HandleEventSuppressed(ev input.Event) {
	now := e.now()
	e.pruneMods(now)

	switch ev.Type {
	case input.KeyDown:
		e.layout.UpdateKey(ev.Code, true)
		if layout.IsModifier(ev.Code) {
			e.heldMods[ev.Code] = struct{}{}
			delete(e.modReleaseAt, ev.Code)
		}
	case input.KeyRepeat:
		// Repeats count as presses for lock keys, same as the active
		// path; otherwise lock state drifts while suppressed.
		e.layout.UpdateKey(ev.Code, true)
	case input.KeyUp:
		e.keyUp(ev.Code, now)
	}
}

func (e *Engine) keyDown(code evdev.EvCode, now time.Time) Action {
	e.layout.UpdateKey(code, true)

	if layout.IsModifier(code) {
		e.heldMods[code] = struct{}{}
		delete(e.modReleaseAt, code)
		return Action{}
	}

	label := e.layout.Label(code)

	// The pause hotkey fires even while paused; that is the only way
	// back out.
	if e.opts.PauseHotkey.Matches(e.mods(), label) {
		e.setPaused(!e.paused, now)
		return Action{Render: true, PausedChanged: true, Paused: e.paused}
	}

	if e.paused {
		return Action{}
	}

	e.pushCombo(e.formatCombo(label), now)
	return Action{Render: true}
}

func (e *Engine) keyRepeat(code evdev.EvCode, now time.Time) Action {
	e.layout.UpdateKey(code, true)

	// Repeats never trigger the pause hotkey; holding it down toggles
	// exactly once.
	if layout.IsModifier(code) || e.paused {
		return Action{}
	}

	e.pushCombo(e.formatCombo(e.layout.Label(code)), now)
	return Action{Render: true}
}

func (e *Engine) keyUp(code evdev.EvCode, now time.Time) {
	e.layout.UpdateKey(code, false)

	if layout.IsModifier(code) {
		if _, held := e.heldMods[code]; held {
			// Keep the modifier counted as held for the grace window,
			// so Ctrl+C typed with a slightly early Ctrl release still
			// shows the prefix.
			e.modReleaseAt[code] = now.Add(e.opts.ModifierGrace)
		}
	}
}

func (e *Engine) mouseDown(code evdev.EvCode, now time.Time) Action {
	if e.paused {
		return Action{}
	}

	label, ok := mouseLabel(code)
	if !ok {
		return Action{}
	}
	e.pushCombo(e.formatCombo(label), now)
	return Action{Render: true}
}

// PruneExpired drops items older than the TTL and expires modifier
// grace windows. It reports whether the display changed.
func (e *Engine) PruneExpired() bool {
	now := e.now()
	e.pruneMods(now)

	changed := false
	for len(e.items) > 0 && now.Sub(e.items[0].At) > e.opts.TTL {
		e.items = e.items[1:]
		changed = true
	}
	return changed
}

// Items returns the current entries, oldest first.
func (e *Engine) Items() []Item {
	return e.items
}

// ClearItems drops all entries without touching modifier or lock
// state. The app filter uses it when display becomes suppressed.
func (e *Engine) ClearItems() {
	e.items = nil
}

// Paused reports the current paused state.
func (e *Engine) Paused() bool {
	return e.paused
}

// TogglePause flips the paused state, as if the hotkey fired.
func (e *Engine) TogglePause() Action {
	e.setPaused(!e.paused, e.now())
	return Action{Render: true, PausedChanged: true, Paused: e.paused}
}

// SetPaused sets the paused state explicitly; a no-op when already
// there.
func (e *Engine) SetPaused(paused bool) Action {
	if paused == e.paused {
		return Action{}
	}
	e.setPaused(paused, e.now())
	return Action{Render: true, PausedChanged: true, Paused: e.paused}
}

// UpdateOptions swaps the tunables in place. A smaller MaxItems evicts
// the oldest entries immediately.
func (e *Engine) UpdateOptions(opts Options) {
	e.opts = opts
	for len(e.items) > opts.MaxItems {
		e.items = e.items[1:]
	}
}

func (e *Engine) setPaused(paused bool, now time.Time) {
	e.paused = paused

	// The status entry is informational and decays like any other.
	text := "Resumed"
	if paused {
		text = "Paused"
	}
	e.pushCombo(text, now)
}

// pruneMods drops modifiers whose grace window has passed.
func (e *Engine) pruneMods(now time.Time) {
	for code, deadline := range e.modReleaseAt {
		if now.After(deadline) {
			delete(e.modReleaseAt, code)
			delete(e.heldMods, code)
		}
	}
}

// mods collapses the held codes (including those inside their grace
// window) into modifier groups.
func (e *Engine) mods() hotkey.Mods {
	var m hotkey.Mods
	for code := range e.heldMods {
		switch code {
		case evdev.KEY_LEFTCTRL, evdev.KEY_RIGHTCTRL:
			m.Ctrl = true
		case evdev.KEY_LEFTSHIFT, evdev.KEY_RIGHTSHIFT:
			m.Shift = true
		case evdev.KEY_LEFTALT, evdev.KEY_RIGHTALT:
			m.Alt = true
		case evdev.KEY_LEFTMETA, evdev.KEY_RIGHTMETA:
			m.Super = true
		}
	}
	return m
}

// formatCombo prefixes the key label with the held modifier groups in
// fixed Ctrl, Shift, Alt, Super order.
func (e *Engine) formatCombo(label string) string {
	m := e.mods()

	out := ""
	if m.Ctrl {
		out += "Ctrl+"
	}
	if m.Shift {
		out += "Shift+"
	}
	if m.Alt {
		out += "Alt+"
	}
	if m.Super {
		out += "Super+"
	}
	return out + label
}

// pushCombo appends a new entry or, when the newest entry has the same
// text and is within the coalesce window, refreshes its timestamp so
// held keys do not flood the list.
func (e *Engine) pushCombo(text string, now time.Time) {
	if n := len(e.items); n > 0 {
		last := &e.items[n-1]
		if last.Text == text && now.Sub(last.At) <= e.opts.RepeatCoalesce {
			last.At = now
			return
		}
	}

	e.items = append(e.items, Item{Text: text, At: now})
	for len(e.items) > e.opts.MaxItems {
		e.items = e.items[1:]
	}
}

func mouseLabel(code evdev.EvCode) (string, bool) {
	switch code {
	case evdev.BTN_LEFT:
		return "LMB", true
	case evdev.BTN_RIGHT:
		return "RMB", true
	case evdev.BTN_MIDDLE:
		return "MMB", true
	}
	return "", false
}
