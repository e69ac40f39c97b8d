package input

import (
	"sync"
	"sync/atomic"
	"time"

	evdev "github.com/holoplot/go-evdev"
	"github.com/rs/zerolog"
)

// reconcileInterval is how often each worker cross-checks its pressed
// set against the kernel's key state, in addition to the check that
// runs after every burst of key activity.
const reconcileInterval = 2 * time.Second

// ListenerConfig selects which devices the listener opens.
type ListenerConfig struct {
	// AllKeyboards opens every discovered keyboard instead of only the
	// first one.
	AllKeyboards bool
	// IncludeMouse additionally opens pointer devices and forwards
	// their button events.
	IncludeMouse bool
}

// Listener owns a set of per-device reader goroutines and feeds
// normalized events into the sink channel. Sends never block: when the
// consumer falls behind, events are dropped and counted.
type Listener struct {
	sink chan<- Event
	cfg  ListenerConfig
	log  zerolog.Logger
}

// Handle controls a running listener.
type Handle struct {
	running atomic.Bool
	stop    chan struct{}
	devices []*evdev.InputDevice
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

func NewListener(sink chan<- Event, cfg ListenerConfig, log zerolog.Logger) *Listener {
	return &Listener{sink: sink, cfg: cfg, log: log.With().Str("component", "input").Logger()}
}

// Start discovers devices, opens them, and spawns one reader goroutine
// per device. It returns ErrNoKeyboards (with a permission hint when
// applicable) if no keyboard can be opened.
func (l *Listener) Start() (*Handle, error) {
	keyboards, err := l.listKeyboards()
	if err != nil {
		return nil, err
	}

	h := &Handle{stop: make(chan struct{})}
	h.running.Store(true)

	opened := 0
	for _, d := range keyboards {
		dev, err := evdev.Open(d.Path)
		if err != nil {
			l.log.Warn().Str("path", d.Path).Err(err).Msg("keyboard vanished before open")
			continue
		}
		h.devices = append(h.devices, dev)
		opened++

		h.wg.Add(1)
		go l.readDevice(h, dev, d, false)
	}

	if opened == 0 {
		return nil, NoKeyboardsError()
	}

	if l.cfg.IncludeMouse {
		mice, err := ListMice(l.log)
		if err != nil {
			l.log.Warn().Err(err).Msg("mouse discovery failed; continuing keyboard-only")
		}
		// A combo device shows up in both lists; its keyboard reader
		// already forwards button events, so don't open it twice.
		for _, d := range excludePaths(mice, keyboards) {
			dev, err := evdev.Open(d.Path)
			if err != nil {
				l.log.Warn().Str("path", d.Path).Err(err).Msg("could not open mouse")
				continue
			}
			h.devices = append(h.devices, dev)

			h.wg.Add(1)
			go l.readDevice(h, dev, d, true)
		}
	}

	return h, nil
}

// excludePaths drops devices whose path is already present in taken.
func excludePaths(devices, taken []Device) []Device {
	used := make(map[string]struct{}, len(taken))
	for _, d := range taken {
		used[d.Path] = struct{}{}
	}

	var out []Device
	for _, d := range devices {
		if _, dup := used[d.Path]; !dup {
			out = append(out, d)
		}
	}
	return out
}

func (l *Listener) listKeyboards() ([]Device, error) {
	keyboards, err := ListKeyboards(l.log)
	if err != nil {
		return nil, err
	}
	if len(keyboards) == 0 {
		return nil, NoKeyboardsError()
	}
	if !l.cfg.AllKeyboards {
		keyboards = keyboards[:1]
	}
	return keyboards, nil
}

// readDevice is the per-device worker. It blocks in ReadOne; Stop
// unblocks it by closing the device file descriptor.
func (l *Listener) readDevice(h *Handle, dev *evdev.InputDevice, d Device, isMouse bool) {
	defer h.wg.Done()

	log := l.log.With().Str("device", d.Name).Logger()
	log.Debug().Str("path", d.Path).Msg("reader started")

	pressed := newPressedSet()
	keyActivity := false

	if !isMouse {
		go l.reconcileLoop(h, dev, pressed, log)
	}

	for h.running.Load() {
		ev, err := dev.ReadOne()
		if err != nil {
			if h.running.Load() {
				log.Warn().Err(err).Msg("device read failed; stopping reader")
			}
			return
		}

		switch ev.Type {
		case evdev.EV_KEY:
			if l.handleKey(h, ev, pressed, isMouse, log) {
				keyActivity = true
			}
		case evdev.EV_SYN:
			if ev.Code == evdev.SYN_REPORT && keyActivity {
				keyActivity = false
				l.reconcile(h, dev, pressed, log)
			}
		}
	}
}

// handleKey normalizes one EV_KEY event and reports whether it was a
// keyboard key (which arms the post-SYN_REPORT reconcile).
func (l *Listener) handleKey(h *Handle, ev *evdev.InputEvent, pressed *pressedSet, isMouse bool, log zerolog.Logger) bool {
	if IsMouseButton(ev.Code) {
		if !isMouse && !l.cfg.IncludeMouse {
			return false
		}
		switch ev.Value {
		case 1:
			l.send(h, Event{Type: MouseDown, Code: ev.Code}, log)
		case 0:
			l.send(h, Event{Type: MouseUp, Code: ev.Code}, log)
		}
		return false
	}

	if isMouse {
		// Extra buttons on pointer devices are not forwarded.
		return false
	}

	switch ev.Value {
	case 1:
		pressed.add(ev.Code)
		l.send(h, Event{Type: KeyDown, Code: ev.Code}, log)
	case 0:
		pressed.remove(ev.Code)
		l.send(h, Event{Type: KeyUp, Code: ev.Code}, log)
	case 2:
		l.send(h, Event{Type: KeyRepeat, Code: ev.Code}, log)
	default:
		return false
	}
	return true
}

func (l *Listener) send(h *Handle, ev Event, log zerolog.Logger) {
	select {
	case l.sink <- ev:
	default:
		n := h.dropped.Add(1)
		log.Warn().Uint64("dropped", n).Str("type", ev.Type.String()).Msg("event channel full, dropping event")
	}
}

// reconcileLoop periodically cross-checks the pressed set against the
// kernel even when the device is idle, so a release swallowed during a
// VT switch or grab is corrected within the interval.
func (l *Listener) reconcileLoop(h *Handle, dev *evdev.InputDevice, pressed *pressedSet, log zerolog.Logger) {
	ticker := time.NewTicker(reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			l.reconcile(h, dev, pressed, log)
		}
	}
}

// reconcile queries the kernel's current key bitmap and synthesizes
// KeyUp events for any key we believe is held but the kernel does not.
func (l *Listener) reconcile(h *Handle, dev *evdev.InputDevice, pressed *pressedSet, log zerolog.Logger) {
	state, err := dev.State(evdev.EV_KEY)
	if err != nil {
		return
	}

	for _, code := range pressed.stale(state) {
		log.Warn().Uint16("code", uint16(code)).Msg("releasing stuck key")
		l.send(h, Event{Type: KeyUp, Code: code}, log)
	}
}

// Stop shuts the listener down: workers observe the cleared running
// flag, and closing the devices unblocks any reader parked in ReadOne.
func (h *Handle) Stop() {
	if !h.running.CompareAndSwap(true, false) {
		return
	}
	close(h.stop)
	for _, dev := range h.devices {
		dev.Close()
	}
	h.wg.Wait()
}

// Dropped returns the number of events discarded because the sink was
// full.
func (h *Handle) Dropped() uint64 {
	return h.dropped.Load()
}

// pressedSet tracks keys this worker believes are held. ReadOne events
// and the periodic reconciler touch it from different goroutines.
type pressedSet struct {
	mu   sync.Mutex
	keys map[evdev.EvCode]struct{}
}

func newPressedSet() *pressedSet {
	return &pressedSet{keys: make(map[evdev.EvCode]struct{})}
}

func (p *pressedSet) add(code evdev.EvCode) {
	p.mu.Lock()
	p.keys[code] = struct{}{}
	p.mu.Unlock()
}

func (p *pressedSet) remove(code evdev.EvCode) {
	p.mu.Lock()
	delete(p.keys, code)
	p.mu.Unlock()
}

// stale returns the keys held locally but not in the kernel state, and
// drops them from the local set.
func (p *pressedSet) stale(state evdev.StateMap) []evdev.EvCode {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []evdev.EvCode
	for code := range p.keys {
		if down, ok := state[code]; !ok || !down {
			out = append(out, code)
			delete(p.keys, code)
		}
	}
	return out
}
