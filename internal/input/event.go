// Package input discovers evdev input devices and streams normalized
// key and mouse-button events from them.
package input

import evdev "github.com/holoplot/go-evdev"

// EventType discriminates normalized input events.
type EventType uint8

const (
	KeyDown EventType = iota
	KeyUp
	KeyRepeat
	MouseDown
	MouseUp
)

// String returns a short name for logging.
func (t EventType) String() string {
	switch t {
	case KeyDown:
		return "key-down"
	case KeyUp:
		return "key-up"
	case KeyRepeat:
		return "key-repeat"
	case MouseDown:
		return "mouse-down"
	case MouseUp:
		return "mouse-up"
	default:
		return "unknown"
	}
}

// Event is one normalized input event. For MouseUp the code carries no
// meaning; for all other types it is the evdev key or button code.
type Event struct {
	Type EventType
	Code evdev.EvCode
}

// IsMouseButton reports whether the code is one of the pointer buttons
// the listener forwards.
func IsMouseButton(code evdev.EvCode) bool {
	switch code {
	case evdev.BTN_LEFT, evdev.BTN_RIGHT, evdev.BTN_MIDDLE:
		return true
	}
	return false
}
