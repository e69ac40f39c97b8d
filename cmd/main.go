package main

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"keyviz/internal/appfilter"
	"keyviz/internal/combo"
	"keyviz/internal/config"
	"keyviz/internal/hotkey"
	"keyviz/internal/input"
	"keyviz/internal/layout"
	"keyviz/internal/logging"
	"keyviz/internal/overlay"
	"keyviz/internal/tray"
)

// tickInterval paces the consumer loop; roughly one display frame.
const tickInterval = 16 * time.Millisecond

type app struct {
	log zerolog.Logger
	cfg *config.Manager

	engine       *combo.Engine
	hk           hotkey.Hotkey
	settings     config.Settings
	allKeyboards bool

	listener *input.Listener
	handle   *input.Handle
	sink     chan input.Event

	feed    *overlay.FeedServer
	console *overlay.ConsoleRenderer
	poller  *appfilter.Poller
	tray    *tray.Tray

	settingsCh chan config.Settings
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

func main() {
	var (
		flagConfig    string
		flagConsole   bool
		flagFeed      bool
		flagAllKbd    bool
		flagPosition  string
		flagMargin    int
		flagMaxItems  int
		flagTTL       int
		flagShowMouse bool
		flagHotkey    string
		flagCoalesce  int
		flagGrace     int
		flagDrag      bool
		flagCustomX   int
		flagCustomY   int
		flagAppFilter bool
		flagDisabled  []string
		flagFeedPort  int
	)

	root := &cobra.Command{
		Use:   "keyviz",
		Short: "Keystroke overlay for Linux",
		Long:  "keyviz reads keyboard and mouse events from evdev and publishes a decaying list of key combos for on-screen display.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.NewFromEnv()

			mgr, err := config.NewManager(flagConfig, log)
			if err != nil {
				return err
			}
			settings, err := mgr.Load()
			if err != nil {
				return err
			}

			// Flags override the file for this session only.
			f := cmd.Flags()
			if f.Changed("position") {
				settings.Position = flagPosition
			}
			if f.Changed("margin") {
				settings.Margin = flagMargin
			}
			if f.Changed("max-items") {
				settings.MaxItems = flagMaxItems
			}
			if f.Changed("ttl-ms") {
				settings.TTLMs = flagTTL
			}
			if f.Changed("show-mouse") {
				settings.ShowMouse = flagShowMouse
			}
			if f.Changed("pause-hotkey") {
				settings.PauseHotkey = flagHotkey
			}
			if f.Changed("repeat-coalesce-ms") {
				settings.RepeatCoalesceMs = flagCoalesce
			}
			if f.Changed("modifier-grace-ms") {
				settings.ModifierGraceMs = flagGrace
			}
			if f.Changed("drag-enabled") {
				settings.DragEnabled = flagDrag
			}
			if f.Changed("custom-x") {
				settings.CustomX = flagCustomX
			}
			if f.Changed("custom-y") {
				settings.CustomY = flagCustomY
			}
			if f.Changed("app-filter") {
				settings.AppFilterEnabled = flagAppFilter
			}
			if f.Changed("disabled-app") {
				settings.DisabledApps = flagDisabled
			}
			if f.Changed("feed-port") {
				settings.FeedPort = flagFeedPort
			}
			if flagFeed {
				settings.FeedEnabled = true
			}
			if err := mgr.Set(settings); err != nil {
				return err
			}

			a := &app{
				log:        log,
				cfg:        mgr,
				settings:   settings,
				settingsCh: make(chan config.Settings, 1),
				stopCh:     make(chan struct{}),
				sink:       make(chan input.Event, 256),
			}
			return a.run(flagConsole, flagAllKbd)
		},
	}

	d := config.DefaultSettings()
	root.Flags().StringVarP(&flagConfig, "config", "c", "", "settings file path")
	root.Flags().BoolVar(&flagConsole, "console", false, "render the combo list on the terminal")
	root.Flags().BoolVar(&flagFeed, "feed", false, "serve the overlay feed even if disabled in settings")
	root.Flags().BoolVar(&flagAllKbd, "all-keyboards", true, "listen on every keyboard instead of the first")
	root.Flags().StringVar(&flagPosition, "position", d.Position, "overlay placement (top-left, top-center, top-right, bottom-left, bottom-center, bottom-right, center, custom)")
	root.Flags().IntVar(&flagMargin, "margin", d.Margin, "overlay margin in pixels")
	root.Flags().IntVar(&flagMaxItems, "max-items", d.MaxItems, "maximum visible entries")
	root.Flags().IntVar(&flagTTL, "ttl-ms", d.TTLMs, "entry lifetime in milliseconds")
	root.Flags().BoolVar(&flagShowMouse, "show-mouse", d.ShowMouse, "include mouse button clicks")
	root.Flags().StringVar(&flagHotkey, "pause-hotkey", d.PauseHotkey, "pause toggle hotkey")
	root.Flags().IntVar(&flagCoalesce, "repeat-coalesce-ms", d.RepeatCoalesceMs, "window for merging repeated identical combos")
	root.Flags().IntVar(&flagGrace, "modifier-grace-ms", d.ModifierGraceMs, "modifier release grace window")
	root.Flags().BoolVar(&flagDrag, "drag-enabled", d.DragEnabled, "let the overlay be dragged")
	root.Flags().IntVar(&flagCustomX, "custom-x", d.CustomX, "overlay x position for --position=custom")
	root.Flags().IntVar(&flagCustomY, "custom-y", d.CustomY, "overlay y position for --position=custom")
	root.Flags().BoolVar(&flagAppFilter, "app-filter", d.AppFilterEnabled, "hide the overlay for listed applications")
	root.Flags().StringSliceVar(&flagDisabled, "disabled-app", d.DisabledApps, "application to hide the overlay for (repeatable)")
	root.Flags().IntVar(&flagFeedPort, "feed-port", d.FeedPort, "overlay feed port on localhost")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) run(console, allKeyboards bool) error {
	hk, err := hotkey.Parse(a.settings.PauseHotkey)
	if err != nil {
		return fmt.Errorf("pause hotkey: %w", err)
	}
	a.hk = hk
	a.allKeyboards = allKeyboards

	a.engine = combo.New(a.options(), layout.NewState())

	a.listener = input.NewListener(a.sink, input.ListenerConfig{
		AllKeyboards: allKeyboards,
		IncludeMouse: a.settings.ShowMouse,
	}, a.log)
	a.handle, err = a.listener.Start()
	if err != nil {
		return err
	}

	if a.settings.FeedEnabled {
		a.feed = overlay.NewFeedServer(a.log)
		if err := a.feed.Start(a.settings.FeedPort); err != nil {
			a.handle.Stop()
			return err
		}
	}
	if console {
		a.console = overlay.NewConsoleRenderer()
	}

	a.poller = appfilter.NewPoller(nil, a.log)
	a.poller.Configure(a.settings.AppFilterEnabled, a.settings.DisabledApps)

	a.tray = tray.New(a.log)
	a.tray.SetDragEnabled(a.settings.DragEnabled)

	a.cfg.RegisterChangeCallback(func(s config.Settings) {
		// Keep only the newest pending snapshot.
		select {
		case a.settingsCh <- s:
		default:
			select {
			case <-a.settingsCh:
			default:
			}
			a.settingsCh <- s
		}
	})
	a.cfg.Watch()

	a.wg.Add(1)
	go a.consume()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		a.log.Info().Str("signal", sig.String()).Msg("shutting down")
		a.tray.Stop()
	}()

	a.log.Info().Str("config", a.cfg.Path()).Msg("keyviz started")
	a.tray.Run()

	close(a.stopCh)
	a.wg.Wait()
	a.handle.Stop()
	if a.feed != nil {
		a.feed.Close()
	}
	if a.console != nil {
		a.console.Clear()
	}
	return nil
}

// consume is the single goroutine that owns the engine and all display
// state. Everything funnels through it: input events, settings edits,
// tray clicks, the app filter, and expiry.
func (a *app) consume() {
	defer a.wg.Done()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
		}

		changed := false

		select {
		case s := <-a.settingsCh:
			a.applySettings(s)
			changed = true
		default:
		}

		for drained := false; !drained; {
			select {
			case action := <-a.tray.Actions():
				changed = a.handleTrayAction(action) || changed
			default:
				drained = true
			}
		}

		if a.poller.Update() {
			if a.poller.Suppressed() {
				a.engine.ClearItems()
			}
			changed = true
		}
		suppressed := a.poller.Suppressed()

		for drained := false; !drained; {
			select {
			case ev := <-a.sink:
				if suppressed {
					a.engine.HandleEventSuppressed(ev)
					continue
				}
				act := a.engine.HandleEvent(ev)
				changed = changed || act.Render
				if act.PausedChanged {
					a.tray.SetPaused(act.Paused)
				}
			default:
				drained = true
			}
		}

		if a.engine.PruneExpired() {
			changed = true
		}

		if changed {
			a.render()
		}
	}
}

func (a *app) render() {
	if a.feed == nil && a.console == nil {
		return
	}

	frame := overlay.BuildFrame(a.engine.Items(), a.engine.Paused(), overlay.Hints{
		Position: a.settings.Position,
		Margin:   a.settings.Margin,
		CustomX:  a.settings.CustomX,
		CustomY:  a.settings.CustomY,
		Drag:     a.settings.DragEnabled,
	}, time.Now())

	if a.feed != nil {
		a.feed.Broadcast(frame)
	}
	if a.console != nil {
		a.console.Render(frame)
	}
}

// applySettings adopts a reloaded settings snapshot. A bad hotkey spec
// keeps the previous hotkey; a changed show_mouse restarts the
// listener so mouse devices get opened or dropped.
func (a *app) applySettings(s config.Settings) {
	if s.PauseHotkey != a.settings.PauseHotkey {
		hk, err := hotkey.Parse(s.PauseHotkey)
		if err != nil {
			a.log.Warn().Err(err).Msg("ignoring invalid pause hotkey, keeping previous")
			s.PauseHotkey = a.settings.PauseHotkey
		} else {
			a.hk = hk
		}
	}

	restartListener := s.ShowMouse != a.settings.ShowMouse
	a.settings = s

	a.engine.UpdateOptions(a.options())
	a.poller.Configure(s.AppFilterEnabled, s.DisabledApps)
	a.tray.SetDragEnabled(s.DragEnabled)

	if restartListener {
		a.handle.Stop()
		a.listener = input.NewListener(a.sink, input.ListenerConfig{
			AllKeyboards: a.allKeyboards,
			IncludeMouse: s.ShowMouse,
		}, a.log)
		handle, err := a.listener.Start()
		if err != nil {
			a.log.Error().Err(err).Msg("listener restart failed, input is dead")
			return
		}
		a.handle = handle
	}
}

func (a *app) handleTrayAction(action tray.Action) bool {
	switch action {
	case tray.ActionTogglePause:
		act := a.engine.TogglePause()
		a.tray.SetPaused(act.Paused)
		return true

	case tray.ActionToggleDrag:
		s := a.cfg.Get()
		s.DragEnabled = !s.DragEnabled
		if err := a.cfg.Save(s); err != nil {
			a.log.Warn().Err(err).Msg("could not persist drag mode")
		}
		a.settings.DragEnabled = s.DragEnabled
		a.tray.SetDragEnabled(s.DragEnabled)
		return true

	case tray.ActionOpenSettings:
		path := a.cfg.Path()
		go func() {
			if err := exec.Command("xdg-open", path).Start(); err != nil {
				a.log.Warn().Err(err).Str("path", path).Msg("could not open settings file")
			}
		}()
		return false

	case tray.ActionQuit:
		a.tray.Stop()
		return false
	}
	return false
}

func (a *app) options() combo.Options {
	return combo.Options{
		MaxItems:       a.settings.MaxItems,
		TTL:            a.settings.TTL(),
		RepeatCoalesce: a.settings.RepeatCoalesce(),
		ModifierGrace:  a.settings.ModifierGrace(),
		PauseHotkey:    a.hk,
	}
}
