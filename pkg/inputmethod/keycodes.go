package inputmethod

// Linux evdev key codes (linux/input-event-codes.h) for the keys the
// default keymap lays out.
const (
	KeyEsc        = 1
	Key1          = 2
	Key2          = 3
	Key3          = 4
	Key4          = 5
	Key5          = 6
	Key6          = 7
	Key7          = 8
	Key8          = 9
	Key9          = 10
	Key0          = 11
	KeyMinus      = 12
	KeyEqual      = 13
	KeyBackspace  = 14
	KeyTab        = 15
	KeyQ          = 16
	KeyW          = 17
	KeyE          = 18
	KeyR          = 19
	KeyT          = 20
	KeyY          = 21
	KeyU          = 22
	KeyI          = 23
	KeyO          = 24
	KeyP          = 25
	KeyLeftBrace  = 26
	KeyRightBrace = 27
	KeyEnter      = 28
	KeyLeftCtrl   = 29
	KeyA          = 30
	KeyS          = 31
	KeyD          = 32
	KeyF          = 33
	KeyG          = 34
	KeyH          = 35
	KeyJ          = 36
	KeyK          = 37
	KeyL          = 38
	KeySemicolon  = 39
	KeyApostrophe = 40
	KeyGrave      = 41
	KeyLeftShift  = 42
	KeyBackslash  = 43
	KeyZ          = 44
	KeyX          = 45
	KeyC          = 46
	KeyV          = 47
	KeyB          = 48
	KeyN          = 49
	KeyM          = 50
	KeyComma      = 51
	KeyDot        = 52
	KeySlash      = 53
	KeyRightShift = 54
	KeyLeftAlt    = 56
	KeySpace      = 57
	KeyCapsLock   = 58
	KeyLeftMeta   = 125
)

// Modifier masks of the default keymap, for Modifiers.
const (
	ModShift   uint32 = 1 << 0
	ModCaps    uint32 = 1 << 1
	ModControl uint32 = 1 << 2
	ModAlt     uint32 = 1 << 3
	ModLogo    uint32 = 1 << 6
)

type usKey struct {
	code  uint32
	shift bool
}

var usLetters = [26]uint32{
	KeyA, KeyB, KeyC, KeyD, KeyE, KeyF, KeyG, KeyH, KeyI, KeyJ, KeyK, KeyL, KeyM,
	KeyN, KeyO, KeyP, KeyQ, KeyR, KeyS, KeyT, KeyU, KeyV, KeyW, KeyX, KeyY, KeyZ,
}

var usSymbols = map[rune]usKey{
	'0': {Key0, false}, '1': {Key1, false}, '2': {Key2, false}, '3': {Key3, false},
	'4': {Key4, false}, '5': {Key5, false}, '6': {Key6, false}, '7': {Key7, false},
	'8': {Key8, false}, '9': {Key9, false},
	')': {Key0, true}, '!': {Key1, true}, '@': {Key2, true}, '#': {Key3, true},
	'$': {Key4, true}, '%': {Key5, true}, '^': {Key6, true}, '&': {Key7, true},
	'*': {Key8, true}, '(': {Key9, true},

	' ': {KeySpace, false}, '\n': {KeyEnter, false}, '\t': {KeyTab, false},
	'-': {KeyMinus, false}, '_': {KeyMinus, true},
	'=': {KeyEqual, false}, '+': {KeyEqual, true},
	'[': {KeyLeftBrace, false}, '{': {KeyLeftBrace, true},
	']': {KeyRightBrace, false}, '}': {KeyRightBrace, true},
	';': {KeySemicolon, false}, ':': {KeySemicolon, true},
	'\'': {KeyApostrophe, false}, '"': {KeyApostrophe, true},
	'`': {KeyGrave, false}, '~': {KeyGrave, true},
	'\\': {KeyBackslash, false}, '|': {KeyBackslash, true},
	',': {KeyComma, false}, '<': {KeyComma, true},
	'.': {KeyDot, false}, '>': {KeyDot, true},
	'/': {KeySlash, false}, '?': {KeySlash, true},
}

func lookupRune(r rune) (usKey, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return usKey{code: usLetters[r-'a']}, true
	case r >= 'A' && r <= 'Z':
		return usKey{code: usLetters[r-'A'], shift: true}, true
	}
	k, ok := usSymbols[r]
	return k, ok
}

// KeycodeForRune returns the evdev code typing r on a US layout and
// whether shift has to be held.
func KeycodeForRune(r rune) (code uint32, shift bool, ok bool) {
	k, ok := lookupRune(r)
	return k.code, k.shift, ok
}
