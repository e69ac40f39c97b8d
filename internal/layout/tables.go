package layout

import evdev "github.com/holoplot/go-evdev"

// specialLabels maps keys to short canonical names independent of the
// layout state. Checked before character composition.
var specialLabels = map[evdev.EvCode]string{
	evdev.KEY_ENTER:      "Enter",
	evdev.KEY_KPENTER:    "Enter",
	evdev.KEY_ESC:        "Esc",
	evdev.KEY_BACKSPACE:  "Backspace",
	evdev.KEY_TAB:        "Tab",
	evdev.KEY_CAPSLOCK:   "Caps",
	evdev.KEY_SPACE:      "Space",
	evdev.KEY_LEFT:       "Left",
	evdev.KEY_RIGHT:      "Right",
	evdev.KEY_UP:         "Up",
	evdev.KEY_DOWN:       "Down",
	evdev.KEY_DELETE:     "Del",
	evdev.KEY_HOME:       "Home",
	evdev.KEY_END:        "End",
	evdev.KEY_PAGEUP:     "PgUp",
	evdev.KEY_PAGEDOWN:   "PgDn",
	evdev.KEY_INSERT:     "Ins",
	evdev.KEY_PRINT:      "PrtSc",
	evdev.KEY_SYSRQ:      "SysRq",
	evdev.KEY_PAUSE:      "Pause",
	evdev.KEY_NUMLOCK:    "Num",
	evdev.KEY_SCROLLLOCK: "Scroll",
}

type keyChar struct {
	normal  string
	shifted string
}

// keyChars maps key codes to their normal and shifted characters for a
// US layout.
var keyChars = map[evdev.EvCode]keyChar{
	evdev.KEY_A: {"a", "A"}, evdev.KEY_B: {"b", "B"},
	evdev.KEY_C: {"c", "C"}, evdev.KEY_D: {"d", "D"},
	evdev.KEY_E: {"e", "E"}, evdev.KEY_F: {"f", "F"},
	evdev.KEY_G: {"g", "G"}, evdev.KEY_H: {"h", "H"},
	evdev.KEY_I: {"i", "I"}, evdev.KEY_J: {"j", "J"},
	evdev.KEY_K: {"k", "K"}, evdev.KEY_L: {"l", "L"},
	evdev.KEY_M: {"m", "M"}, evdev.KEY_N: {"n", "N"},
	evdev.KEY_O: {"o", "O"}, evdev.KEY_P: {"p", "P"},
	evdev.KEY_Q: {"q", "Q"}, evdev.KEY_R: {"r", "R"},
	evdev.KEY_S: {"s", "S"}, evdev.KEY_T: {"t", "T"},
	evdev.KEY_U: {"u", "U"}, evdev.KEY_V: {"v", "V"},
	evdev.KEY_W: {"w", "W"}, evdev.KEY_X: {"x", "X"},
	evdev.KEY_Y: {"y", "Y"}, evdev.KEY_Z: {"z", "Z"},

	evdev.KEY_1: {"1", "!"}, evdev.KEY_2: {"2", "@"},
	evdev.KEY_3: {"3", "#"}, evdev.KEY_4: {"4", "$"},
	evdev.KEY_5: {"5", "%"}, evdev.KEY_6: {"6", "^"},
	evdev.KEY_7: {"7", "&"}, evdev.KEY_8: {"8", "*"},
	evdev.KEY_9: {"9", "("}, evdev.KEY_0: {"0", ")"},

	evdev.KEY_MINUS:      {"-", "_"},
	evdev.KEY_EQUAL:      {"=", "+"},
	evdev.KEY_LEFTBRACE:  {"[", "{"},
	evdev.KEY_RIGHTBRACE: {"]", "}"},
	evdev.KEY_SEMICOLON:  {";", ":"},
	evdev.KEY_APOSTROPHE: {"'", "\""},
	evdev.KEY_GRAVE:      {"`", "~"},
	evdev.KEY_BACKSLASH:  {"\\", "|"},
	evdev.KEY_COMMA:      {",", "<"},
	evdev.KEY_DOT:        {".", ">"},
	evdev.KEY_SLASH:      {"/", "?"},

	evdev.KEY_KPASTERISK: {"*", "*"},
	evdev.KEY_KPMINUS:    {"-", "-"},
	evdev.KEY_KPPLUS:     {"+", "+"},
	evdev.KEY_KPSLASH:    {"/", "/"},
}

// keypadChars apply only while num lock is on; otherwise the keypad
// keys fall through to their symbolic names (KP7 etc.).
var keypadChars = map[evdev.EvCode]string{
	evdev.KEY_KP0:   "0",
	evdev.KEY_KP1:   "1",
	evdev.KEY_KP2:   "2",
	evdev.KEY_KP3:   "3",
	evdev.KEY_KP4:   "4",
	evdev.KEY_KP5:   "5",
	evdev.KEY_KP6:   "6",
	evdev.KEY_KP7:   "7",
	evdev.KEY_KP8:   "8",
	evdev.KEY_KP9:   "9",
	evdev.KEY_KPDOT: ".",
}

var letterKeys = map[evdev.EvCode]struct{}{
	evdev.KEY_A: {}, evdev.KEY_B: {}, evdev.KEY_C: {}, evdev.KEY_D: {},
	evdev.KEY_E: {}, evdev.KEY_F: {}, evdev.KEY_G: {}, evdev.KEY_H: {},
	evdev.KEY_I: {}, evdev.KEY_J: {}, evdev.KEY_K: {}, evdev.KEY_L: {},
	evdev.KEY_M: {}, evdev.KEY_N: {}, evdev.KEY_O: {}, evdev.KEY_P: {},
	evdev.KEY_Q: {}, evdev.KEY_R: {}, evdev.KEY_S: {}, evdev.KEY_T: {},
	evdev.KEY_U: {}, evdev.KEY_V: {}, evdev.KEY_W: {}, evdev.KEY_X: {},
	evdev.KEY_Y: {}, evdev.KEY_Z: {},
}
