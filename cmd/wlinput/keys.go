package main

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pentamassiv/wayland-input/pkg/inputmethod"
)

var keyNames = map[string]uint32{
	"esc":       inputmethod.KeyEsc,
	"escape":    inputmethod.KeyEsc,
	"backspace": inputmethod.KeyBackspace,
	"tab":       inputmethod.KeyTab,
	"enter":     inputmethod.KeyEnter,
	"return":    inputmethod.KeyEnter,
	"space":     inputmethod.KeySpace,
	"ctrl":      inputmethod.KeyLeftCtrl,
	"shift":     inputmethod.KeyLeftShift,
	"alt":       inputmethod.KeyLeftAlt,
	"super":     inputmethod.KeyLeftMeta,
	"capslock":  inputmethod.KeyCapsLock,
}

// parseKey accepts a single character of the US layout, a key name or an
// evdev code. Single characters win, so "1" is the 1 key and not evdev code
// 1; codes below 10 are reachable by name or character.
func parseKey(s string) (uint32, error) {
	if utf8.RuneCountInString(s) == 1 {
		r, _ := utf8.DecodeRuneInString(s)
		if code, _, ok := inputmethod.KeycodeForRune(r); ok {
			return code, nil
		}
	}
	if code, ok := keyNames[strings.ToLower(s)]; ok {
		return code, nil
	}
	if code, err := strconv.ParseUint(s, 10, 32); err == nil {
		return uint32(code), nil
	}
	return 0, fmt.Errorf("unknown key %q", s)
}

var modifierNames = map[string]uint32{
	"shift":   inputmethod.ModShift,
	"caps":    inputmethod.ModCaps,
	"ctrl":    inputmethod.ModControl,
	"control": inputmethod.ModControl,
	"alt":     inputmethod.ModAlt,
	"logo":    inputmethod.ModLogo,
	"super":   inputmethod.ModLogo,
}

// parseModifiers accepts a numeric mask or a comma separated list of
// modifier names.
func parseModifiers(s string) (uint32, error) {
	if mask, err := strconv.ParseUint(s, 0, 32); err == nil {
		return uint32(mask), nil
	}
	var mask uint32
	for _, name := range strings.Split(s, ",") {
		m, ok := modifierNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("unknown modifier %q", name)
		}
		mask |= m
	}
	return mask, nil
}
