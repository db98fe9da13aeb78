package inputmethod

import (
	"errors"
	"fmt"

	"github.com/pentamassiv/wayland-input/internal/keymap"
)

// Errors returned by request methods. Any error means the single request
// did not take effect; nothing is retried.
var (
	// ErrNotAlive means the remote object or its connection is gone. The
	// session has to be recreated.
	ErrNotAlive = errors.New("remote object is not alive")

	// ErrIMNotAvailable means the compositor never offered
	// zwp_input_method_manager_v2.
	ErrIMNotAvailable = errors.New("input method protocol is not available")

	// ErrVKNotAvailable means the compositor never offered
	// zwp_virtual_keyboard_manager_v1.
	ErrVKNotAvailable = errors.New("virtual keyboard protocol is not available")

	// ErrTextTooLong means a commit_string payload exceeds MaxTextBytes.
	ErrTextTooLong = errors.New("text exceeds maximum request payload")

	// ErrUnmappedRune means TypeString met a character with no key in the
	// built-in US layout table.
	ErrUnmappedRune = errors.New("character has no key in the US layout")

	// ErrAllocationFailed means the keymap could not be published. A
	// virtual keyboard session cannot exist without one.
	ErrAllocationFailed = keymap.ErrAllocationFailed
)

// notAlive wraps a transport failure so callers can match ErrNotAlive.
func notAlive(err error) error {
	return fmt.Errorf("%w: %w", ErrNotAlive, err)
}
