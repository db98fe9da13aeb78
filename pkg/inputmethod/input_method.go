package inputmethod

import (
	"fmt"
	"log/slog"
	"sync"
)

// MaxTextBytes is the largest text CommitString accepts. A Wayland message
// is at most 4096 bytes; this leaves room for the header and length word.
const MaxTextBytes = 4000

// SessionState is the lifecycle state of an InputMethodSession.
type SessionState int

const (
	// StateUnbound: no remote object assigned yet.
	StateUnbound SessionState = iota
	// StateLive: remote object assigned and events flowing.
	StateLive
	// StateDead: the remote object's connection was lost. Observed lazily on
	// the next request.
	StateDead
	// StateDestroyed: torn down by MakeUnavailable. Terminal.
	StateDestroyed
)

func (s SessionState) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateLive:
		return "live"
	case StateDead:
		return "dead"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// InputMethodSession stages text edits on a zwp_input_method_v2 object and
// finalizes them with serial-carrying commits.
//
// CommitString and DeleteSurroundingText only stage requests; the
// compositor applies them atomically on the next Commit.
type InputMethodSession struct {
	mu     sync.Mutex
	im     RemoteInputMethod
	state  SessionState
	serial *SerialTracker
	log    *slog.Logger
}

// NewInputMethodSession binds an input method on seat. Events for it are
// routed through a Dispatcher to connector (NopConnector if nil).
func NewInputMethodSession(mgr InputMethodManager, seat Seat, connector Connector, log *slog.Logger) (*InputMethodSession, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &InputMethodSession{
		state:  StateUnbound,
		serial: NewSerialTracker(0),
		log:    log,
	}
	im, err := mgr.GetInputMethod(seat, NewDispatcher(connector, log).Dispatch)
	if err != nil {
		return nil, fmt.Errorf("get input method: %w", err)
	}
	s.im = im
	s.state = StateLive
	log.Debug("input method session created")
	return s, nil
}

// alive re-checks liveness. Callers hold s.mu.
func (s *InputMethodSession) alive() bool {
	if s.state != StateLive {
		return false
	}
	if !s.im.Alive() {
		s.state = StateDead
		s.log.Warn("input method is no longer alive")
		return false
	}
	return true
}

// CommitString stages text for insertion at the cursor.
func (s *InputMethodSession) CommitString(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive() {
		return ErrNotAlive
	}
	if len(text) > MaxTextBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrTextTooLong, len(text), MaxTextBytes)
	}
	s.log.Debug("commit string", "text", text)
	if err := s.im.CommitString(text); err != nil {
		return notAlive(err)
	}
	return nil
}

// DeleteSurroundingText stages deletion of before characters left of the
// cursor and after characters right of it.
func (s *InputMethodSession) DeleteSurroundingText(before, after uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive() {
		return ErrNotAlive
	}
	s.log.Debug("delete surrounding text", "before", before, "after", after)
	if err := s.im.DeleteSurroundingText(before, after); err != nil {
		return notAlive(err)
	}
	return nil
}

// Commit applies all staged requests as one batch. The serial advances only
// when the commit request was queued.
func (s *InputMethodSession) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive() {
		return ErrNotAlive
	}
	return s.serial.Do(func(serial uint32) error {
		s.log.Debug("commit", "serial", serial)
		if err := s.im.Commit(serial); err != nil {
			return notAlive(err)
		}
		return nil
	})
}

// MakeUnavailable destroys the remote input method. Errors are dropped and
// the session ends up Destroyed whatever its prior state.
func (s *InputMethodSession) MakeUnavailable() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDestroyed {
		return
	}
	if s.im != nil {
		if err := s.im.Destroy(); err != nil {
			s.log.Debug("destroy input method", "error", err)
		}
	}
	s.state = StateDestroyed
}

// State returns the lifecycle state as last observed.
func (s *InputMethodSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Serial returns the serial the next commit will carry.
func (s *InputMethodSession) Serial() uint32 {
	return s.serial.Current()
}
