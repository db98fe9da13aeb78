package inputmethod

import "sync"

// SurroundingTextState is the last text field state the compositor reported.
type SurroundingTextState struct {
	Text    string
	Cursor  uint32
	Anchor  uint32
	Hint    ContentHint
	Purpose ContentPurpose
	Cause   ChangeCause
	Active  bool
}

// StateTracker is a Connector that caches the reported state and forwards
// every event to another Connector.
//
// Events are double buffered as zwp_input_method_v2 requires: they update a
// pending copy which becomes current on Done. Activate resets the pending
// copy to defaults.
type StateTracker struct {
	next Connector

	mu      sync.RWMutex
	pending SurroundingTextState
	current SurroundingTextState
}

// NewStateTracker wraps next, which may be nil.
func NewStateTracker(next Connector) *StateTracker {
	if next == nil {
		next = NopConnector{}
	}
	return &StateTracker{next: next}
}

// State returns the state as of the last Done.
func (t *StateTracker) State() SurroundingTextState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

func (t *StateTracker) Activated() {
	t.mu.Lock()
	t.pending = SurroundingTextState{Active: true}
	t.mu.Unlock()
	t.next.Activated()
}

func (t *StateTracker) Deactivated() {
	t.mu.Lock()
	t.pending.Active = false
	t.mu.Unlock()
	t.next.Deactivated()
}

func (t *StateTracker) SurroundingText(text string, cursor, anchor uint32) {
	t.mu.Lock()
	t.pending.Text = text
	t.pending.Cursor = cursor
	t.pending.Anchor = anchor
	t.mu.Unlock()
	t.next.SurroundingText(text, cursor, anchor)
}

func (t *StateTracker) TextChangeCause(cause ChangeCause) {
	t.mu.Lock()
	t.pending.Cause = cause
	t.mu.Unlock()
	t.next.TextChangeCause(cause)
}

func (t *StateTracker) ContentType(hint ContentHint, purpose ContentPurpose) {
	t.mu.Lock()
	t.pending.Hint = hint
	t.pending.Purpose = purpose
	t.mu.Unlock()
	t.next.ContentType(hint, purpose)
}

func (t *StateTracker) Done() {
	t.mu.Lock()
	t.current = t.pending
	t.mu.Unlock()
	t.next.Done()
}

func (t *StateTracker) Unavailable() {
	t.mu.Lock()
	t.pending = SurroundingTextState{}
	t.current = SurroundingTextState{}
	t.mu.Unlock()
	t.next.Unavailable()
}

var _ Connector = (*StateTracker)(nil)
