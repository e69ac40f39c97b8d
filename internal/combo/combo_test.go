package combo

import (
	"testing"
	"time"

	evdev "github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyviz/internal/hotkey"
	"keyviz/internal/input"
	"keyviz/internal/layout"
)

// fakeClock drives the engine deterministically.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestEngine(t *testing.T, opts Options) (*Engine, *fakeClock) {
	t.Helper()
	if opts.PauseHotkey.Key == "" {
		hk, err := hotkey.Parse("Ctrl+Shift+P")
		require.NoError(t, err)
		opts.PauseHotkey = hk
	}

	e := New(opts, layout.NewState())
	clock := &fakeClock{t: time.Unix(1000, 0)}
	e.now = clock.now
	return e, clock
}

func defaultOptions() Options {
	return Options{
		MaxItems:       5,
		TTL:            900 * time.Millisecond,
		RepeatCoalesce: 200 * time.Millisecond,
		ModifierGrace:  120 * time.Millisecond,
	}
}

func press(e *Engine, code evdev.EvCode) Action {
	return e.HandleEvent(input.Event{Type: input.KeyDown, Code: code})
}

func release(e *Engine, code evdev.EvCode) Action {
	return e.HandleEvent(input.Event{Type: input.KeyUp, Code: code})
}

func texts(e *Engine) []string {
	var out []string
	for _, it := range e.Items() {
		out = append(out, it.Text)
	}
	return out
}

func TestPlainKeyProducesLabel(t *testing.T) {
	e, _ := newTestEngine(t, defaultOptions())

	act := press(e, evdev.KEY_A)
	assert.True(t, act.Render)
	assert.Equal(t, []string{"A"}, texts(e))
}

func TestModifierPrefixOrder(t *testing.T) {
	e, _ := newTestEngine(t, defaultOptions())

	press(e, evdev.KEY_LEFTMETA)
	press(e, evdev.KEY_LEFTALT)
	press(e, evdev.KEY_RIGHTSHIFT)
	press(e, evdev.KEY_LEFTCTRL)
	press(e, evdev.KEY_T)

	assert.Equal(t, []string{"Ctrl+Shift+Alt+Super+T"}, texts(e))
}

func TestModifierAloneProducesNothing(t *testing.T) {
	e, _ := newTestEngine(t, defaultOptions())

	act := press(e, evdev.KEY_LEFTCTRL)
	assert.False(t, act.Render)
	assert.Empty(t, e.Items())
}

func TestModifierGraceWindow(t *testing.T) {
	e, clock := newTestEngine(t, defaultOptions())

	press(e, evdev.KEY_LEFTCTRL)
	release(e, evdev.KEY_LEFTCTRL)

	// Within the grace window the modifier still counts as held.
	clock.advance(50 * time.Millisecond)
	press(e, evdev.KEY_C)
	assert.Equal(t, []string{"Ctrl+C"}, texts(e))

	e.ClearItems()
	release(e, evdev.KEY_C)

	// Past the window it does not.
	press(e, evdev.KEY_LEFTCTRL)
	release(e, evdev.KEY_LEFTCTRL)
	clock.advance(150 * time.Millisecond)
	press(e, evdev.KEY_C)
	assert.Equal(t, []string{"C"}, texts(e))
}

func TestRepeatCoalescing(t *testing.T) {
	e, clock := newTestEngine(t, defaultOptions())

	press(e, evdev.KEY_A)
	clock.advance(100 * time.Millisecond)
	e.HandleEvent(input.Event{Type: input.KeyRepeat, Code: evdev.KEY_A})

	require.Len(t, e.Items(), 1)
	// The timestamp was refreshed by the repeat.
	assert.Equal(t, clock.t, e.Items()[0].At)

	// Beyond the coalesce window the same text becomes a new entry.
	clock.advance(250 * time.Millisecond)
	press(e, evdev.KEY_A)
	assert.Equal(t, []string{"A", "A"}, texts(e))
}

func TestCoalescedEntryExpiresFromRefreshedTimestamp(t *testing.T) {
	e, clock := newTestEngine(t, defaultOptions())

	press(e, evdev.KEY_A) // t=0
	clock.advance(100 * time.Millisecond)
	press(e, evdev.KEY_A) // refreshes to t=100

	clock.advance(950 * time.Millisecond) // t=1050, age 950 > 900
	assert.True(t, e.PruneExpired())
	assert.Empty(t, e.Items())
}

func TestMaxItemsEvictsOldest(t *testing.T) {
	opts := defaultOptions()
	opts.MaxItems = 3
	e, clock := newTestEngine(t, opts)

	keys := []evdev.EvCode{evdev.KEY_A, evdev.KEY_B, evdev.KEY_C, evdev.KEY_D}
	for _, k := range keys {
		press(e, k)
		release(e, k)
		clock.advance(300 * time.Millisecond)
	}

	assert.Equal(t, []string{"B", "C", "D"}, texts(e))
}

func TestExpiryIsOldestFirst(t *testing.T) {
	e, clock := newTestEngine(t, defaultOptions())

	press(e, evdev.KEY_A)
	release(e, evdev.KEY_A)
	clock.advance(500 * time.Millisecond)
	press(e, evdev.KEY_B)

	clock.advance(500 * time.Millisecond) // A at age 1000, B at age 500
	assert.True(t, e.PruneExpired())
	assert.Equal(t, []string{"B"}, texts(e))

	assert.False(t, e.PruneExpired(), "no further change until B expires")

	clock.advance(500 * time.Millisecond)
	assert.True(t, e.PruneExpired())
	assert.Empty(t, e.Items())
}

func TestPauseHotkeyToggles(t *testing.T) {
	e, _ := newTestEngine(t, defaultOptions())

	press(e, evdev.KEY_LEFTCTRL)
	press(e, evdev.KEY_LEFTSHIFT)
	act := press(e, evdev.KEY_P)

	assert.True(t, act.PausedChanged)
	assert.True(t, act.Paused)
	assert.True(t, e.Paused())
	// The toggle itself is announced, not shown as a combo.
	assert.Equal(t, []string{"Paused"}, texts(e))

	release(e, evdev.KEY_P)

	// While paused, ordinary keys are dropped.
	release(e, evdev.KEY_LEFTCTRL)
	release(e, evdev.KEY_LEFTSHIFT)
	press(e, evdev.KEY_A)
	assert.Equal(t, []string{"Paused"}, texts(e))

	// The hotkey still works while paused.
	press(e, evdev.KEY_LEFTCTRL)
	press(e, evdev.KEY_LEFTSHIFT)
	act = press(e, evdev.KEY_P)
	assert.True(t, act.PausedChanged)
	assert.False(t, e.Paused())
}

func TestHotkeyRequiresExactModifiers(t *testing.T) {
	opts := defaultOptions()
	hk, err := hotkey.Parse("Ctrl+Shift+P")
	require.NoError(t, err)
	opts.PauseHotkey = hk
	e, _ := newTestEngine(t, opts)

	// Ctrl+P alone is an ordinary combo, not the hotkey.
	press(e, evdev.KEY_LEFTCTRL)
	press(e, evdev.KEY_P)

	assert.False(t, e.Paused())
	assert.Equal(t, []string{"Ctrl+P"}, texts(e))
}

func TestRepeatNeverTriggersHotkey(t *testing.T) {
	e, _ := newTestEngine(t, defaultOptions())

	press(e, evdev.KEY_LEFTCTRL)
	press(e, evdev.KEY_LEFTSHIFT)
	press(e, evdev.KEY_P)
	require.True(t, e.Paused())

	// Holding the key produces repeats; the pause state must not
	// oscillate.
	e.HandleEvent(input.Event{Type: input.KeyRepeat, Code: evdev.KEY_P})
	e.HandleEvent(input.Event{Type: input.KeyRepeat, Code: evdev.KEY_P})
	assert.True(t, e.Paused())
}

func TestMouseButtons(t *testing.T) {
	e, _ := newTestEngine(t, defaultOptions())

	e.HandleEvent(input.Event{Type: input.MouseDown, Code: evdev.BTN_LEFT})
	e.HandleEvent(input.Event{Type: input.MouseUp, Code: evdev.BTN_LEFT})
	e.HandleEvent(input.Event{Type: input.MouseDown, Code: evdev.BTN_MIDDLE})

	assert.Equal(t, []string{"LMB", "MMB"}, texts(e))
}

func TestMouseWithModifierPrefix(t *testing.T) {
	e, _ := newTestEngine(t, defaultOptions())

	press(e, evdev.KEY_LEFTCTRL)
	e.HandleEvent(input.Event{Type: input.MouseDown, Code: evdev.BTN_RIGHT})

	assert.Equal(t, []string{"Ctrl+RMB"}, texts(e))
}

func TestSuppressedKeepsModifierState(t *testing.T) {
	e, _ := newTestEngine(t, defaultOptions())

	// Modifier pressed while suppressed; nothing is displayed.
	e.HandleEventSuppressed(input.Event{Type: input.KeyDown, Code: evdev.KEY_LEFTCTRL})
	e.HandleEventSuppressed(input.Event{Type: input.KeyDown, Code: evdev.KEY_A})
	assert.Empty(t, e.Items())

	// Back to active: the still-held modifier prefixes immediately.
	press(e, evdev.KEY_C)
	assert.Equal(t, []string{"Ctrl+C"}, texts(e))
}

func TestSuppressedTracksLockKeysLikeActive(t *testing.T) {
	active, _ := newTestEngine(t, defaultOptions())
	suppressed, _ := newTestEngine(t, defaultOptions())

	// The same raw stream: NumLock held long enough to repeat once.
	stream := []input.Event{
		{Type: input.KeyDown, Code: evdev.KEY_NUMLOCK},
		{Type: input.KeyRepeat, Code: evdev.KEY_NUMLOCK},
		{Type: input.KeyUp, Code: evdev.KEY_NUMLOCK},
	}
	for _, ev := range stream {
		active.HandleEvent(ev)
		suppressed.HandleEventSuppressed(ev)
	}
	active.ClearItems()

	press(active, evdev.KEY_KP7)
	press(suppressed, evdev.KEY_KP7)

	// Down plus repeat toggles twice, so num lock ends up off on both.
	assert.Equal(t, []string{"KP7"}, texts(active))
	assert.Equal(t, []string{"KP7"}, texts(suppressed))
}

func TestUpdateOptionsTrimsImmediately(t *testing.T) {
	e, clock := newTestEngine(t, defaultOptions())

	for _, k := range []evdev.EvCode{evdev.KEY_A, evdev.KEY_B, evdev.KEY_C} {
		press(e, k)
		release(e, k)
		clock.advance(300 * time.Millisecond)
	}
	require.Len(t, e.Items(), 3)

	opts := defaultOptions()
	opts.MaxItems = 1
	opts.PauseHotkey = e.opts.PauseHotkey
	e.UpdateOptions(opts)

	assert.Equal(t, []string{"C"}, texts(e))
}

func TestSetPausedIdempotent(t *testing.T) {
	e, _ := newTestEngine(t, defaultOptions())

	act := e.SetPaused(true)
	assert.True(t, act.PausedChanged)
	assert.Equal(t, []string{"Paused"}, texts(e))

	act = e.SetPaused(true)
	assert.False(t, act.PausedChanged)
	assert.Equal(t, []string{"Paused"}, texts(e), "no duplicate status entry")
}
