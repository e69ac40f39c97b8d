package input

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	evdev "github.com/holoplot/go-evdev"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// ErrNoKeyboards is returned when discovery finds no usable keyboard
// device. The wrapped message carries a permission hint when device
// nodes exist but are not readable.
var ErrNoKeyboards = errors.New("no keyboard devices found")

// Device identifies one discovered input device.
type Device struct {
	Path string
	Name string
}

// ListKeyboards enumerates /dev/input/event* and returns the devices
// that look like real keyboards. Devices that fail to open are skipped.
// An error is returned only when the device directory itself cannot be
// enumerated.
func ListKeyboards(log zerolog.Logger) ([]Device, error) {
	return listDevices(log, "keyboard", isKeyboardCaps)
}

// ListMice returns the devices that report pointer buttons. An empty
// result is not an error.
func ListMice(log zerolog.Logger) ([]Device, error) {
	return listDevices(log, "mouse", isMouseCaps)
}

// NoKeyboardsError builds the diagnosable startup failure for an empty
// keyboard list, probing read access on the device nodes so the message
// can point at permissions rather than absent hardware.
func NoKeyboardsError() error {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoKeyboards, err)
	}

	denied := 0
	for _, p := range paths {
		if unix.Access(p.Path, unix.R_OK) != nil {
			denied++
		}
	}

	if denied > 0 {
		return fmt.Errorf("%w: %d device node(s) not readable; add your user to the 'input' group or run with sufficient privileges", ErrNoKeyboards, denied)
	}
	return ErrNoKeyboards
}

func listDevices(log zerolog.Logger, kind string, match func(types []evdev.EvType, keys []evdev.EvCode) bool) ([]Device, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, fmt.Errorf("enumerate input devices: %w", err)
	}

	var devices []Device
	for _, p := range paths {
		if !strings.HasPrefix(filepath.Base(p.Path), "event") {
			continue
		}

		dev, err := evdev.Open(p.Path)
		if err != nil {
			// Permission failure or a race with unplug; skip.
			log.Debug().Str("path", p.Path).Err(err).Msg("could not open device")
			continue
		}

		if match(dev.CapableTypes(), dev.CapableEvents(evdev.EV_KEY)) {
			name, err := dev.Name()
			if err != nil || name == "" {
				name = p.Name
			}
			log.Info().Str("kind", kind).Str("name", name).Str("path", p.Path).Msg("found input device")
			devices = append(devices, Device{Path: p.Path, Name: name})
		}

		dev.Close()
	}

	return devices, nil
}

// isKeyboardCaps reports whether the capability sets describe a real
// keyboard: key events covering the alphabetic range plus space. This
// filters out power buttons and other devices that expose a handful of
// EV_KEY codes.
func isKeyboardCaps(types []evdev.EvType, keys []evdev.EvCode) bool {
	if !supportsKeys(types) {
		return false
	}

	var hasA, hasZ, hasSpace bool
	for _, code := range keys {
		switch code {
		case evdev.KEY_A:
			hasA = true
		case evdev.KEY_Z:
			hasZ = true
		case evdev.KEY_SPACE:
			hasSpace = true
		}
	}
	return hasA && hasZ && hasSpace
}

// isMouseCaps reports whether the capability sets describe a pointer
// device with at least one of the primary buttons.
func isMouseCaps(types []evdev.EvType, keys []evdev.EvCode) bool {
	if !supportsKeys(types) {
		return false
	}

	for _, code := range keys {
		if code == evdev.BTN_LEFT || code == evdev.BTN_RIGHT {
			return true
		}
	}
	return false
}

func supportsKeys(types []evdev.EvType) bool {
	for _, t := range types {
		if t == evdev.EV_KEY {
			return true
		}
	}
	return false
}
