package inputmethod

import (
	"context"
	"os"
)

// Seat identifies the seat both sessions are created on.
type Seat interface {
	ID() uint32
}

// RemoteInputMethod is a zwp_input_method_v2 object. Request methods queue
// the request and return an error only if it could not be queued.
type RemoteInputMethod interface {
	Alive() bool
	CommitString(text string) error
	DeleteSurroundingText(before, after uint32) error
	Commit(serial uint32) error
	Destroy() error
}

// RemoteVirtualKeyboard is a zwp_virtual_keyboard_v1 object.
type RemoteVirtualKeyboard interface {
	Alive() bool
	// Keymap takes ownership of file. It is closed after it was sent, or
	// immediately when the request cannot be queued.
	Keymap(format uint32, file *os.File, size uint32) error
	Key(time, key, state uint32) error
	Modifiers(depressed, latched, locked, group uint32) error
	Destroy() error
}

// InputMethodManager creates input method objects. handler receives every
// event for the new object, in order, during round trips.
type InputMethodManager interface {
	GetInputMethod(seat Seat, handler func(Event)) (RemoteInputMethod, error)
}

// VirtualKeyboardManager creates virtual keyboard objects.
type VirtualKeyboardManager interface {
	CreateVirtualKeyboard(seat Seat) (RemoteVirtualKeyboard, error)
}

// UnhandledEvent describes an event that arrived for an object nobody
// listens to.
type UnhandledEvent struct {
	Object    uint32
	Interface string
	Opcode    uint16
}

// Roundtripper flushes queued requests and dispatches events until the
// compositor has processed everything sent before the call.
type Roundtripper interface {
	Roundtrip(ctx context.Context, unhandled func(UnhandledEvent)) error
}

// Bootstrap is what global discovery hands to NewService. A nil manager
// means the compositor does not support that protocol.
type Bootstrap struct {
	Transport              Roundtripper
	Seat                   Seat
	InputMethodManager     InputMethodManager
	VirtualKeyboardManager VirtualKeyboardManager
}
