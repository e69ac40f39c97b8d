// Package config loads, validates, persists, and watches the
// application settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Settings is the on-disk configuration. Durations are stored as
// milliseconds to keep the file format simple.
type Settings struct {
	Position         string   `mapstructure:"position"`
	Margin           int      `mapstructure:"margin"`
	MaxItems         int      `mapstructure:"max_items"`
	TTLMs            int      `mapstructure:"ttl_ms"`
	ShowMouse        bool     `mapstructure:"show_mouse"`
	PauseHotkey      string   `mapstructure:"pause_hotkey"`
	RepeatCoalesceMs int      `mapstructure:"repeat_coalesce_ms"`
	ModifierGraceMs  int      `mapstructure:"modifier_grace_ms"`
	DragEnabled      bool     `mapstructure:"drag_enabled"`
	CustomX          int      `mapstructure:"custom_x"`
	CustomY          int      `mapstructure:"custom_y"`
	AppFilterEnabled bool     `mapstructure:"app_filter_enabled"`
	DisabledApps     []string `mapstructure:"disabled_apps"`
	FeedEnabled      bool     `mapstructure:"feed_enabled"`
	FeedPort         int      `mapstructure:"feed_port"`
}

var validPositions = map[string]bool{
	"top-left": true, "top-center": true, "top-right": true,
	"bottom-left": true, "bottom-center": true, "bottom-right": true,
	"center": true, "custom": true,
}

// DefaultSettings returns the configuration used on first run and as
// the fallback when the file cannot be parsed.
func DefaultSettings() Settings {
	return Settings{
		Position:         "bottom-right",
		Margin:           40,
		MaxItems:         5,
		TTLMs:            900,
		ShowMouse:        true,
		PauseHotkey:      "Ctrl+Shift+P",
		RepeatCoalesceMs: 200,
		ModifierGraceMs:  120,
		DragEnabled:      false,
		CustomX:          40,
		CustomY:          40,
		AppFilterEnabled: false,
		DisabledApps:     []string{},
		FeedEnabled:      false,
		FeedPort:         3117,
	}
}

// Validate checks ranges and enumerations. It does not parse the pause
// hotkey; that is the hotkey package's job and the caller's decision
// what to do on failure.
func (s Settings) Validate() error {
	if !validPositions[s.Position] {
		return fmt.Errorf("invalid position %q", s.Position)
	}
	if s.MaxItems < 1 || s.MaxItems > 50 {
		return fmt.Errorf("max_items %d out of range [1,50]", s.MaxItems)
	}
	if s.TTLMs < 100 {
		return fmt.Errorf("ttl_ms %d too small (min 100)", s.TTLMs)
	}
	if s.Margin < 0 {
		return fmt.Errorf("margin %d must not be negative", s.Margin)
	}
	if s.RepeatCoalesceMs < 0 || s.ModifierGraceMs < 0 {
		return fmt.Errorf("coalesce and grace windows must not be negative")
	}
	if s.FeedPort < 1 || s.FeedPort > 65535 {
		return fmt.Errorf("feed_port %d out of range", s.FeedPort)
	}
	return nil
}

// TTL returns the entry lifetime as a duration.
func (s Settings) TTL() time.Duration { return time.Duration(s.TTLMs) * time.Millisecond }

// RepeatCoalesce returns the coalesce window as a duration.
func (s Settings) RepeatCoalesce() time.Duration {
	return time.Duration(s.RepeatCoalesceMs) * time.Millisecond
}

// ModifierGrace returns the modifier grace window as a duration.
func (s Settings) ModifierGrace() time.Duration {
	return time.Duration(s.ModifierGraceMs) * time.Millisecond
}

// Manager owns the settings file: loading, saving, and change
// notification via the file watcher.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	path      string
	settings  Settings
	onChanged func(Settings)
	log       zerolog.Logger
}

// NewManager creates a manager for the given file path. An empty path
// selects the default location under the user config directory.
func NewManager(path string, log zerolog.Logger) (*Manager, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		path = filepath.Join(dir, "keyviz", "config.toml")
	}

	v := viper.New()
	v.SetConfigFile(path)

	return &Manager{
		v:        v,
		path:     path,
		settings: DefaultSettings(),
		log:      log.With().Str("component", "config").Logger(),
	}, nil
}

// Path returns the resolved settings file path.
func (m *Manager) Path() string { return m.path }

// Load reads the settings file. A missing file is first-run: defaults
// are written out so the user has something to edit. A file that fails
// to parse or validate is kept on disk untouched and defaults are used
// for this session.
func (m *Manager) Load() (Settings, error) {
	setViperDefaults(m.v)

	if err := m.v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) || isConfigNotFound(err) {
			m.log.Info().Str("path", m.path).Msg("no settings file, writing defaults")
			if werr := m.Save(DefaultSettings()); werr != nil {
				m.log.Warn().Err(werr).Msg("could not write default settings")
			}
			return m.Get(), nil
		}

		m.log.Warn().Err(err).Str("path", m.path).Msg("settings unreadable, using defaults")
		return m.Get(), nil
	}

	var s Settings
	if err := m.v.Unmarshal(&s); err != nil {
		m.log.Warn().Err(err).Msg("settings malformed, using defaults")
		return m.Get(), nil
	}
	if err := s.Validate(); err != nil {
		m.log.Warn().Err(err).Msg("settings invalid, using defaults")
		return m.Get(), nil
	}

	m.mu.Lock()
	m.settings = s
	m.mu.Unlock()
	return s, nil
}

// Save validates, persists, and adopts the given settings.
func (m *Manager) Save(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	m.v.Set("position", s.Position)
	m.v.Set("margin", s.Margin)
	m.v.Set("max_items", s.MaxItems)
	m.v.Set("ttl_ms", s.TTLMs)
	m.v.Set("show_mouse", s.ShowMouse)
	m.v.Set("pause_hotkey", s.PauseHotkey)
	m.v.Set("repeat_coalesce_ms", s.RepeatCoalesceMs)
	m.v.Set("modifier_grace_ms", s.ModifierGraceMs)
	m.v.Set("drag_enabled", s.DragEnabled)
	m.v.Set("custom_x", s.CustomX)
	m.v.Set("custom_y", s.CustomY)
	m.v.Set("app_filter_enabled", s.AppFilterEnabled)
	m.v.Set("disabled_apps", s.DisabledApps)
	m.v.Set("feed_enabled", s.FeedEnabled)
	m.v.Set("feed_port", s.FeedPort)

	if err := m.v.WriteConfigAs(m.path); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	m.mu.Lock()
	m.settings = s
	m.mu.Unlock()
	return nil
}

// Get returns the current settings snapshot.
func (m *Manager) Get() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Set adopts the given settings in memory without persisting them.
// Flag overrides use this so they do not leak into the file.
func (m *Manager) Set(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.settings = s
	m.mu.Unlock()
	return nil
}

// RegisterChangeCallback sets the function invoked when the watched
// file changes and re-parses cleanly. Must be called before Watch.
func (m *Manager) RegisterChangeCallback(fn func(Settings)) {
	m.onChanged = fn
}

// Watch starts watching the settings file for edits. Reload failures
// are logged and the previous settings stay in effect.
func (m *Manager) Watch() {
	m.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		var s Settings
		if err := m.v.Unmarshal(&s); err != nil {
			m.log.Warn().Err(err).Msg("ignoring malformed settings edit")
			return
		}
		if err := s.Validate(); err != nil {
			m.log.Warn().Err(err).Msg("ignoring invalid settings edit")
			return
		}

		m.mu.Lock()
		m.settings = s
		m.mu.Unlock()

		m.log.Info().Str("path", e.Name).Msg("settings reloaded")
		if m.onChanged != nil {
			m.onChanged(s)
		}
	})
	m.v.WatchConfig()
}

func setViperDefaults(v *viper.Viper) {
	d := DefaultSettings()
	v.SetDefault("position", d.Position)
	v.SetDefault("margin", d.Margin)
	v.SetDefault("max_items", d.MaxItems)
	v.SetDefault("ttl_ms", d.TTLMs)
	v.SetDefault("show_mouse", d.ShowMouse)
	v.SetDefault("pause_hotkey", d.PauseHotkey)
	v.SetDefault("repeat_coalesce_ms", d.RepeatCoalesceMs)
	v.SetDefault("modifier_grace_ms", d.ModifierGraceMs)
	v.SetDefault("drag_enabled", d.DragEnabled)
	v.SetDefault("custom_x", d.CustomX)
	v.SetDefault("custom_y", d.CustomY)
	v.SetDefault("app_filter_enabled", d.AppFilterEnabled)
	v.SetDefault("disabled_apps", d.DisabledApps)
	v.SetDefault("feed_enabled", d.FeedEnabled)
	v.SetDefault("feed_port", d.FeedPort)
}

func isConfigNotFound(err error) bool {
	_, ok := err.(viper.ConfigFileNotFoundError)
	return ok
}
