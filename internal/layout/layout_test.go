package layout

import (
	"testing"

	evdev "github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
)

func TestLabelSpecialKeys(t *testing.T) {
	s := NewState()

	assert.Equal(t, "Enter", s.Label(evdev.KEY_ENTER))
	assert.Equal(t, "Esc", s.Label(evdev.KEY_ESC))
	assert.Equal(t, "PgUp", s.Label(evdev.KEY_PAGEUP))
	assert.Equal(t, "Space", s.Label(evdev.KEY_SPACE))
}

func TestLabelLettersUppercasedForDisplay(t *testing.T) {
	s := NewState()

	// Unshifted letters compose to lowercase but display uppercase.
	assert.Equal(t, "A", s.Label(evdev.KEY_A))

	s.UpdateKey(evdev.KEY_LEFTSHIFT, true)
	assert.Equal(t, "A", s.Label(evdev.KEY_A))
}

func TestLabelShiftedPunctuation(t *testing.T) {
	s := NewState()

	assert.Equal(t, "1", s.Label(evdev.KEY_1))
	assert.Equal(t, "/", s.Label(evdev.KEY_SLASH))

	s.UpdateKey(evdev.KEY_RIGHTSHIFT, true)
	assert.Equal(t, "!", s.Label(evdev.KEY_1))
	assert.Equal(t, "?", s.Label(evdev.KEY_SLASH))

	s.UpdateKey(evdev.KEY_RIGHTSHIFT, false)
	assert.Equal(t, "1", s.Label(evdev.KEY_1))
}

func TestCapsLockAffectsOnlyLetters(t *testing.T) {
	s := NewState()

	s.UpdateKey(evdev.KEY_CAPSLOCK, true)
	s.UpdateKey(evdev.KEY_CAPSLOCK, false)

	// Caps+shift cancel out for letters; punctuation ignores caps.
	assert.Equal(t, "A", s.Label(evdev.KEY_A))
	assert.Equal(t, "1", s.Label(evdev.KEY_1))

	s.UpdateKey(evdev.KEY_LEFTSHIFT, true)
	assert.Equal(t, "A", s.Label(evdev.KEY_A))
	assert.Equal(t, "!", s.Label(evdev.KEY_1))
}

func TestNumLockKeypad(t *testing.T) {
	s := NewState()

	// Num lock off: keypad digits fall through to symbolic names.
	assert.Equal(t, "KP7", s.Label(evdev.KEY_KP7))

	s.UpdateKey(evdev.KEY_NUMLOCK, true)
	s.UpdateKey(evdev.KEY_NUMLOCK, false)
	assert.Equal(t, "7", s.Label(evdev.KEY_KP7))
	assert.Equal(t, ".", s.Label(evdev.KEY_KPDOT))
}

func TestFallbackStripsPrefix(t *testing.T) {
	s := NewState()

	assert.Equal(t, "F13", s.Label(evdev.KEY_F13))
	assert.Equal(t, "PLAYPAUSE", s.Label(evdev.KEY_PLAYPAUSE))
}

func TestIsModifier(t *testing.T) {
	mods := []evdev.EvCode{
		evdev.KEY_LEFTCTRL, evdev.KEY_RIGHTCTRL,
		evdev.KEY_LEFTSHIFT, evdev.KEY_RIGHTSHIFT,
		evdev.KEY_LEFTALT, evdev.KEY_RIGHTALT,
		evdev.KEY_LEFTMETA, evdev.KEY_RIGHTMETA,
	}
	for _, code := range mods {
		assert.True(t, IsModifier(code), "code %d", code)
	}

	assert.False(t, IsModifier(evdev.KEY_A))
	assert.False(t, IsModifier(evdev.KEY_CAPSLOCK))
}
