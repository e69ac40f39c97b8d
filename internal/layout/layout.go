// Package layout resolves evdev key codes into display labels.
//
// A State tracks the keyboard's layout-relevant keys (shift, caps lock,
// num lock) so that composed characters follow what the user actually
// typed. The caller must feed every observed press and release, in event
// order, through UpdateKey or composed-character resolution desyncs from
// the real layout state.
package layout

import (
	"strings"

	evdev "github.com/holoplot/go-evdev"
)

// State is the mutable layout state machine. It is exclusively owned by
// the single event consumer and must not be shared across goroutines.
type State struct {
	shiftHeld map[evdev.EvCode]struct{}
	capsLock  bool
	numLock   bool
}

// NewState returns a layout state with no keys held and locks off.
func NewState() *State {
	return &State{shiftHeld: make(map[evdev.EvCode]struct{})}
}

// UpdateKey records a press or release of the given key. Repeats count
// as presses.
func (s *State) UpdateKey(code evdev.EvCode, pressed bool) {
	switch code {
	case evdev.KEY_LEFTSHIFT, evdev.KEY_RIGHTSHIFT:
		if pressed {
			s.shiftHeld[code] = struct{}{}
		} else {
			delete(s.shiftHeld, code)
		}
	case evdev.KEY_CAPSLOCK:
		if pressed {
			s.capsLock = !s.capsLock
		}
	case evdev.KEY_NUMLOCK:
		if pressed {
			s.numLock = !s.numLock
		}
	}
}

// Label returns the best display label for a key code in the current
// layout state. Special keys map to short canonical names; printable
// keys compose through the character map; anything else falls back to
// a token derived from the key's symbolic name.
func (s *State) Label(code evdev.EvCode) string {
	if label, ok := specialLabels[code]; ok {
		return label
	}

	if ch, ok := s.composed(code); ok {
		if ch == " " {
			return "Space"
		}
		if len(ch) == 1 {
			return strings.ToUpper(ch)
		}
		return ch
	}

	return fallbackLabel(code)
}

func (s *State) composed(code evdev.EvCode) (string, bool) {
	if s.numLock {
		if ch, ok := keypadChars[code]; ok {
			return ch, true
		}
	}

	kc, ok := keyChars[code]
	if !ok {
		return "", false
	}

	shifted := len(s.shiftHeld) > 0
	if s.capsLock && isLetterKey(code) {
		shifted = !shifted
	}

	if shifted {
		return kc.shifted, true
	}
	return kc.normal, true
}

// IsModifier reports whether the key is one of the modifier keys whose
// held state contributes to combo prefixes.
func IsModifier(code evdev.EvCode) bool {
	switch code {
	case evdev.KEY_LEFTCTRL, evdev.KEY_RIGHTCTRL,
		evdev.KEY_LEFTSHIFT, evdev.KEY_RIGHTSHIFT,
		evdev.KEY_LEFTALT, evdev.KEY_RIGHTALT,
		evdev.KEY_LEFTMETA, evdev.KEY_RIGHTMETA:
		return true
	}
	return false
}

// fallbackLabel derives a readable token from the key's symbolic evdev
// name, e.g. KEY_PLAYPAUSE -> "PLAYPAUSE".
func fallbackLabel(code evdev.EvCode) string {
	ev := evdev.InputEvent{Type: evdev.EV_KEY, Code: code}
	name := ev.CodeName()
	if stripped, ok := strings.CutPrefix(name, "KEY_"); ok {
		return stripped
	}
	if stripped, ok := strings.CutPrefix(name, "BTN_"); ok {
		return stripped
	}
	return name
}

func isLetterKey(code evdev.EvCode) bool {
	_, ok := letterKeys[code]
	return ok
}
