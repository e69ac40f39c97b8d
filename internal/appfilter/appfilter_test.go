package appfilter

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeProbe struct {
	win WindowInfo
	err error
}

func (f *fakeProbe) probe() (WindowInfo, error) { return f.win, f.err }

func newTestPoller(probe *fakeProbe) (*Poller, *time.Time) {
	p := NewPoller(probe.probe, zerolog.Nop())
	now := time.Unix(3000, 0)
	p.now = func() time.Time { return now }
	return p, &now
}

func TestMatchesCaseInsensitiveSubstring(t *testing.T) {
	win := WindowInfo{Class: "1Password", Title: "1Password - Vault"}

	assert.True(t, matches(win, []string{"1password"}))
	assert.True(t, matches(win, []string{"vault"}), "title matches too")
	assert.False(t, matches(win, []string{"krita"}))
	assert.False(t, matches(win, []string{"", "  "}), "blank patterns never match")
}

func TestUpdateTogglesSuppression(t *testing.T) {
	probe := &fakeProbe{win: WindowInfo{Class: "firefox"}}
	p, now := newTestPoller(probe)
	p.Configure(true, []string{"1password"})

	assert.False(t, p.Update())
	assert.False(t, p.Suppressed())

	probe.win = WindowInfo{Class: "1Password"}
	*now = now.Add(time.Second)
	assert.True(t, p.Update(), "focus change reported")
	assert.True(t, p.Suppressed())

	probe.win = WindowInfo{Class: "firefox"}
	*now = now.Add(time.Second)
	assert.True(t, p.Update())
	assert.False(t, p.Suppressed())
}

func TestUpdateThrottles(t *testing.T) {
	probe := &fakeProbe{win: WindowInfo{Class: "1Password"}}
	p, now := newTestPoller(probe)
	p.Configure(true, []string{"1password"})

	assert.True(t, p.Update())

	// Inside the throttle window the focus change is not yet seen.
	probe.win = WindowInfo{Class: "firefox"}
	*now = now.Add(100 * time.Millisecond)
	assert.False(t, p.Update())
	assert.True(t, p.Suppressed())

	*now = now.Add(500 * time.Millisecond)
	assert.True(t, p.Update())
	assert.False(t, p.Suppressed())
}

func TestProbeFailureFailsOpen(t *testing.T) {
	probe := &fakeProbe{win: WindowInfo{Class: "1Password"}}
	p, now := newTestPoller(probe)
	p.Configure(true, []string{"1password"})

	assert.True(t, p.Update())
	assert.True(t, p.Suppressed())

	probe.err = errors.New("hyprctl: command not found")
	*now = now.Add(time.Second)
	assert.True(t, p.Update(), "suppression lifts when the probe dies")
	assert.False(t, p.Suppressed())
}

func TestDisabledNeverSuppresses(t *testing.T) {
	probe := &fakeProbe{win: WindowInfo{Class: "1Password"}}
	p, _ := newTestPoller(probe)

	p.Configure(false, []string{"1password"})
	assert.False(t, p.Update())
	assert.False(t, p.Suppressed())

	// Enabled but with no patterns behaves as disabled.
	p.Configure(true, nil)
	assert.False(t, p.Update())
	assert.False(t, p.Suppressed())
}

func TestConfigureDisableClearsSuppression(t *testing.T) {
	probe := &fakeProbe{win: WindowInfo{Class: "1Password"}}
	p, _ := newTestPoller(probe)
	p.Configure(true, []string{"1password"})

	assert.True(t, p.Update())
	assert.True(t, p.Suppressed())

	p.Configure(false, nil)
	assert.False(t, p.Suppressed())
}
