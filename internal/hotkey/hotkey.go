// Package hotkey parses and matches human-readable hotkey
// specifications such as "Ctrl+Shift+P".
package hotkey

import (
	"fmt"
	"strings"
)

// Hotkey is an immutable parsed hotkey specification. Equality is
// structural: "Control+p" and "Ctrl+P" parse to the same value.
type Hotkey struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Super bool
	Key   string
}

// Mods is the set of modifier groups currently held, with left/right
// variants already collapsed.
type Mods struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Super bool
}

// Parse splits a spec on '+', recognizing modifier tokens (with common
// synonyms) and exactly one non-modifier key token. Zero or more than
// one key tokens is a parse error; the caller must not fall back to a
// default.
func Parse(spec string) (Hotkey, error) {
	var hk Hotkey
	var haveKey bool

	for _, token := range strings.Split(spec, "+") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		switch strings.ToLower(token) {
		case "ctrl", "control":
			hk.Ctrl = true
		case "shift":
			hk.Shift = true
		case "alt", "option":
			hk.Alt = true
		case "super", "meta", "cmd", "command", "win", "logo":
			hk.Super = true
		default:
			if haveKey {
				return Hotkey{}, fmt.Errorf("hotkey %q: more than one non-modifier key (%q and %q)", spec, hk.Key, token)
			}
			hk.Key = normalizeKeyToken(token)
			haveKey = true
		}
	}

	if !haveKey {
		return Hotkey{}, fmt.Errorf("hotkey %q: requires a non-modifier key", spec)
	}

	return hk, nil
}

// Matches reports whether the held modifiers and pressed key satisfy
// the hotkey. Modifier matching is exact: an extra held modifier does
// not match.
func (h Hotkey) Matches(held Mods, keyLabel string) bool {
	if normalizeKeyToken(keyLabel) != h.Key {
		return false
	}
	return h.Ctrl == held.Ctrl &&
		h.Shift == held.Shift &&
		h.Alt == held.Alt &&
		h.Super == held.Super
}

// Describe renders the hotkey in fixed Ctrl, Shift, Alt, Super order
// followed by the key. Describe output round-trips through Parse.
func (h Hotkey) Describe() string {
	var parts []string
	if h.Ctrl {
		parts = append(parts, "Ctrl")
	}
	if h.Shift {
		parts = append(parts, "Shift")
	}
	if h.Alt {
		parts = append(parts, "Alt")
	}
	if h.Super {
		parts = append(parts, "Super")
	}

	// "+" would collide with the separator and fail to re-parse; use
	// its named token instead.
	key := h.Key
	if key == "+" {
		key = "Plus"
	}
	parts = append(parts, key)
	return strings.Join(parts, "+")
}

// normalizeKeyToken maps a key token to its canonical display form so
// that configured specs compare equal to resolved key labels.
func normalizeKeyToken(token string) string {
	trimmed := strings.TrimSpace(token)
	lower := strings.ToLower(trimmed)
	if lower == "" {
		return ""
	}

	if len(lower) == 1 {
		ch := lower[0]
		if ch >= 'a' && ch <= 'z' {
			return strings.ToUpper(lower)
		}
		return trimmed
	}

	// F1..F24
	if lower[0] == 'f' && len(lower) <= 3 {
		return strings.ToUpper(lower)
	}

	if canonical, ok := canonicalKeyTokens[lower]; ok {
		return canonical
	}
	return trimmed
}

var canonicalKeyTokens = map[string]string{
	"esc":         "Esc",
	"escape":      "Esc",
	"enter":       "Enter",
	"return":      "Enter",
	"space":       "Space",
	"tab":         "Tab",
	"backspace":   "Backspace",
	"bksp":        "Backspace",
	"del":         "Del",
	"delete":      "Del",
	"ins":         "Ins",
	"insert":      "Ins",
	"pgup":        "PgUp",
	"pageup":      "PgUp",
	"pgdn":        "PgDn",
	"pagedown":    "PgDn",
	"home":        "Home",
	"end":         "End",
	"left":        "Left",
	"right":       "Right",
	"up":          "Up",
	"down":        "Down",
	"prtsc":       "PrtSc",
	"print":       "PrtSc",
	"printscreen": "PrtSc",
	"plus":        "+",
	"add":         "+",
	"minus":       "-",
	"dash":        "-",
	"subtract":    "-",
	"equal":       "=",
	"equals":      "=",
	"comma":       ",",
	"period":      ".",
	"dot":         ".",
	"slash":       "/",
	"backslash":   "\\",
	"grave":       "`",
	"backtick":    "`",
	"apostrophe":   "'",
	"quote":        "'",
	"semicolon":    ";",
	"leftbracket":  "[",
	"lbracket":     "[",
	"rightbracket": "]",
	"rbracket":     "]",
}
