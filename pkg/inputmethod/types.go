package inputmethod

import "fmt"

// KeyState is the state carried by a virtual keyboard key event.
type KeyState uint32

const (
	Released KeyState = 0
	Pressed  KeyState = 1
)

func (s KeyState) String() string {
	switch s {
	case Released:
		return "released"
	case Pressed:
		return "pressed"
	default:
		return fmt.Sprintf("KeyState(%d)", uint32(s))
	}
}

// ChangeCause tells why the surrounding text changed (text-input-v3).
type ChangeCause uint32

const (
	// CauseInputMethod is a change caused by this input method.
	CauseInputMethod ChangeCause = 0
	// CauseOther is any other change, such as the user editing directly.
	CauseOther ChangeCause = 1
)

func (c ChangeCause) String() string {
	switch c {
	case CauseInputMethod:
		return "input_method"
	case CauseOther:
		return "other"
	default:
		return fmt.Sprintf("ChangeCause(%d)", uint32(c))
	}
}

// ContentHint is a bitmask of text field hints (text-input-v3).
type ContentHint uint32

const (
	HintNone               ContentHint = 0x0
	HintCompletion         ContentHint = 0x1
	HintSpellcheck         ContentHint = 0x2
	HintAutoCapitalization ContentHint = 0x4
	HintLowercase          ContentHint = 0x8
	HintUppercase          ContentHint = 0x10
	HintTitlecase          ContentHint = 0x20
	HintHiddenText         ContentHint = 0x40
	HintSensitiveData      ContentHint = 0x80
	HintLatin              ContentHint = 0x100
	HintMultiline          ContentHint = 0x200
)

// Has reports whether all bits of flag are set.
func (h ContentHint) Has(flag ContentHint) bool {
	return h&flag == flag
}

// ContentPurpose describes what a text field is for (text-input-v3).
type ContentPurpose uint32

const (
	PurposeNormal ContentPurpose = iota
	PurposeAlpha
	PurposeDigits
	PurposeNumber
	PurposePhone
	PurposeURL
	PurposeEmail
	PurposeName
	PurposePassword
	PurposePin
	PurposeDate
	PurposeTime
	PurposeDatetime
	PurposeTerminal
)

var purposeNames = [...]string{
	"normal", "alpha", "digits", "number", "phone", "url", "email",
	"name", "password", "pin", "date", "time", "datetime", "terminal",
}

func (p ContentPurpose) String() string {
	if int(p) < len(purposeNames) {
		return purposeNames[p]
	}
	return fmt.Sprintf("ContentPurpose(%d)", uint32(p))
}

// Event is an input method event delivered by the compositor.
type Event interface {
	isEvent()
}

// ActivateEvent: a text field gained focus and wants input.
type ActivateEvent struct{}

// DeactivateEvent: the text field lost focus.
type DeactivateEvent struct{}

// SurroundingTextEvent carries the text around the cursor. Cursor and
// Anchor are byte offsets into Text.
type SurroundingTextEvent struct {
	Text   string
	Cursor uint32
	Anchor uint32
}

// TextChangeCauseEvent reports the cause of the last text change.
type TextChangeCauseEvent struct {
	Cause ChangeCause
}

// ContentTypeEvent describes the focused text field.
type ContentTypeEvent struct {
	Hint    ContentHint
	Purpose ContentPurpose
}

// DoneEvent ends one atomically delivered batch of state.
type DoneEvent struct{}

// UnavailableEvent: the compositor revoked the input method, usually
// because another one is already bound to the seat.
type UnavailableEvent struct{}

// UnknownEvent is any opcode this package does not understand.
type UnknownEvent struct {
	Opcode uint16
}

func (ActivateEvent) isEvent()        {}
func (DeactivateEvent) isEvent()      {}
func (SurroundingTextEvent) isEvent() {}
func (TextChangeCauseEvent) isEvent() {}
func (ContentTypeEvent) isEvent()     {}
func (DoneEvent) isEvent()            {}
func (UnavailableEvent) isEvent()     {}
func (UnknownEvent) isEvent()         {}
