// Package appfilter suppresses the overlay while a configured
// application holds focus, so keystrokes never show on top of password
// prompts and the like.
package appfilter

import (
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// pollInterval throttles focus queries; window focus does not change
// faster than this matters.
const pollInterval = 500 * time.Millisecond

// WindowInfo describes the currently focused window.
type WindowInfo struct {
	Class string
	Title string
}

// ProbeFunc returns the focused window. Injectable for tests and for
// compositors other than Hyprland.
type ProbeFunc func() (WindowInfo, error)

// HyprctlProbe queries Hyprland for the active window.
func HyprctlProbe() (WindowInfo, error) {
	out, err := exec.Command("hyprctl", "-j", "activewindow").Output()
	if err != nil {
		return WindowInfo{}, err
	}

	var win struct {
		Class string `json:"class"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(out, &win); err != nil {
		return WindowInfo{}, err
	}
	return WindowInfo{Class: win.Class, Title: win.Title}, nil
}

// Poller tracks whether the focused application matches the disabled
// list. It is driven from the consumer loop; all methods are
// single-goroutine.
type Poller struct {
	log   zerolog.Logger
	probe ProbeFunc
	now   func() time.Time

	enabled  bool
	patterns []string

	lastPoll   time.Time
	suppressed bool
	warned     bool
}

func NewPoller(probe ProbeFunc, log zerolog.Logger) *Poller {
	if probe == nil {
		probe = HyprctlProbe
	}
	return &Poller{
		log:   log.With().Str("component", "appfilter").Logger(),
		probe: probe,
		now:   time.Now,
	}
}

// Configure applies the current settings. Disabling clears any active
// suppression immediately.
func (p *Poller) Configure(enabled bool, patterns []string) {
	p.enabled = enabled && len(patterns) > 0
	p.patterns = patterns
	if !p.enabled {
		p.suppressed = false
	}
	// Re-check on the next Update rather than waiting out the throttle.
	p.lastPoll = time.Time{}
}

// Suppressed reports whether display is currently suppressed.
func (p *Poller) Suppressed() bool {
	return p.suppressed
}

// Update re-polls the focused window if the throttle allows and
// reports whether the suppressed state changed.
func (p *Poller) Update() bool {
	if !p.enabled {
		return false
	}

	now := p.now()
	if !p.lastPoll.IsZero() && now.Sub(p.lastPoll) < pollInterval {
		return false
	}
	p.lastPoll = now

	win, err := p.probe()
	if err != nil {
		// Probe failure means the compositor query is unavailable;
		// fail open so the overlay keeps working.
		if !p.warned {
			p.warned = true
			p.log.Warn().Err(err).Msg("focused-window query failed, app filter inactive")
		}
		if p.suppressed {
			p.suppressed = false
			return true
		}
		return false
	}
	p.warned = false

	match := matches(win, p.patterns)
	if match != p.suppressed {
		p.suppressed = match
		p.log.Debug().Bool("suppressed", match).Str("class", win.Class).Msg("app filter state changed")
		return true
	}
	return false
}

// matches does case-insensitive substring matching of each pattern
// against the window class and title.
func matches(win WindowInfo, patterns []string) bool {
	class := strings.ToLower(win.Class)
	title := strings.ToLower(win.Title)

	for _, pat := range patterns {
		p := strings.ToLower(strings.TrimSpace(pat))
		if p == "" {
			continue
		}
		if strings.Contains(class, p) || strings.Contains(title, p) {
			return true
		}
	}
	return false
}
