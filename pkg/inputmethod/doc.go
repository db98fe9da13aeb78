// Package inputmethod drives a Wayland compositor as an input method and a
// virtual keyboard.
//
// # Architecture Overview
//
// Two protocol objects are used, both bound to the same seat:
//
//	┌────────────────────────────┬──────────────────────────────────────┐
//	│ Object                     │ Used for                             │
//	├────────────────────────────┼──────────────────────────────────────┤
//	│ zwp_input_method_v2        │ commit text, delete surrounding text │
//	│ zwp_virtual_keyboard_v1    │ raw key and modifier events          │
//	└────────────────────────────┴──────────────────────────────────────┘
//
// Service is the facade. It holds an InputMethodSession and a
// VirtualKeyboardSession, either of which may be absent when the compositor
// does not advertise the matching manager global.
//
// # Event Flow
//
//	compositor ──events──▶ Roundtripper ──▶ Dispatcher ──▶ Connector
//	application ──requests──▶ Service ──▶ sessions ──▶ queued on transport
//
// Requests are queued and sent on the next SyncEventQueue, which also
// dispatches all pending events to the Connector in arrival order.
//
// # Commits
//
// CommitString and DeleteSurroundingText only stage changes. Commit applies
// them and carries a serial that starts at 0 and wraps at 2^32. The serial
// advances only when the commit request was queued.
//
// # Transport
//
// The interfaces in transport.go decouple this package from the wire. The
// pkg/wayland package implements them over a Unix socket; tests use fakes.
package inputmethod
