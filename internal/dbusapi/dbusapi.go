// Package dbusapi exposes the input method service on D-Bus.
//
// The exported object implements org.wlinput.InputMethod1. Request methods
// map one to one onto inputmethod.Service; compositor events are re-emitted
// as signals of the same interface.
package dbusapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/pentamassiv/wayland-input/internal/metrics"
	"github.com/pentamassiv/wayland-input/pkg/inputmethod"
)

// Interface is the D-Bus interface name of the exported object.
const Interface = "org.wlinput.InputMethod1"

// D-Bus error names returned by the exported methods.
const (
	ErrorNotAlive                    = "org.wlinput.Error.NotAlive"
	ErrorInputMethodNotAvailable     = "org.wlinput.Error.InputMethodNotAvailable"
	ErrorVirtualKeyboardNotAvailable = "org.wlinput.Error.VirtualKeyboardNotAvailable"
	ErrorTextTooLong                 = "org.wlinput.Error.TextTooLong"
	ErrorUnmappedCharacter           = "org.wlinput.Error.UnmappedCharacter"
	ErrorInvalidArgs                 = "org.wlinput.Error.InvalidArgs"
	ErrorFailed                      = "org.wlinput.Error.Failed"
)

// Backend is the part of inputmethod.Service the object drives.
type Backend interface {
	HasInputMethod() bool
	HasVirtualKeyboard() bool
	CommitString(text string) error
	DeleteSurroundingText(before, after uint32) error
	Commit() error
	MakeUnavailable() error
	SendKey(keycode uint32, state inputmethod.KeyState) error
	Modifiers(depressed, latched, locked, group uint32) error
	PressKey(keycode uint32) error
	TypeString(text string) error
}

// Options configures New.
type Options struct {
	Backend Backend
	// Sync drains compositor events; it runs with the object lock held.
	Sync func(ctx context.Context) error
	// State reports the tracked text field state. Optional.
	State   func() inputmethod.SurroundingTextState
	Metrics *metrics.ServiceMetrics
	Logger  *slog.Logger
}

// Object is the exported D-Bus object. Every method that touches the
// backend holds mu, so D-Bus calls and event syncs never interleave.
type Object struct {
	mu      sync.Mutex
	backend Backend
	sync    func(ctx context.Context) error
	state   func() inputmethod.SurroundingTextState
	metrics *metrics.ServiceMetrics
	log     *slog.Logger
}

// New creates the object.
func New(opts Options) *Object {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewServiceMetrics(nil)
	}
	if opts.State == nil {
		opts.State = func() inputmethod.SurroundingTextState { return inputmethod.SurroundingTextState{} }
	}
	return &Object{
		backend: opts.Backend,
		sync:    opts.Sync,
		state:   opts.State,
		metrics: opts.Metrics,
		log:     opts.Logger,
	}
}

// dbusError converts a service error into a named D-Bus error.
func dbusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	name := ErrorFailed
	switch {
	case errors.Is(err, inputmethod.ErrNotAlive):
		name = ErrorNotAlive
	case errors.Is(err, inputmethod.ErrIMNotAvailable):
		name = ErrorInputMethodNotAvailable
	case errors.Is(err, inputmethod.ErrVKNotAvailable):
		name = ErrorVirtualKeyboardNotAvailable
	case errors.Is(err, inputmethod.ErrTextTooLong):
		name = ErrorTextTooLong
	case errors.Is(err, inputmethod.ErrUnmappedRune):
		name = ErrorUnmappedCharacter
	}
	return dbus.NewError(name, []interface{}{err.Error()})
}

func (o *Object) call(method string, c *metrics.Counter, fn func() error) *dbus.Error {
	o.mu.Lock()
	err := o.metrics.Record(c, fn())
	o.mu.Unlock()
	if err != nil {
		o.log.Warn("request failed", "method", method, "error", err)
	}
	return dbusError(err)
}

// CommitString queues text for the next Commit.
func (o *Object) CommitString(text string) *dbus.Error {
	o.log.Debug("CommitString", "text", text)
	return o.call("CommitString", o.metrics.CommitStringsTotal, func() error {
		return o.backend.CommitString(text)
	})
}

// DeleteSurroundingText queues a deletion for the next Commit.
func (o *Object) DeleteSurroundingText(before, after uint32) *dbus.Error {
	return o.call("DeleteSurroundingText", o.metrics.DeletesTotal, func() error {
		return o.backend.DeleteSurroundingText(before, after)
	})
}

// Commit applies the queued input method state.
func (o *Object) Commit() *dbus.Error {
	return o.call("Commit", o.metrics.CommitsTotal, o.backend.Commit)
}

// CommitText is CommitString followed by Commit in one call.
func (o *Object) CommitText(text string) *dbus.Error {
	o.log.Debug("CommitText", "text", text)
	return o.call("CommitText", o.metrics.CommitsTotal, func() error {
		if err := o.backend.CommitString(text); err != nil {
			return err
		}
		o.metrics.CommitStringsTotal.Inc()
		return o.backend.Commit()
	})
}

// MakeUnavailable destroys the input method.
func (o *Object) MakeUnavailable() *dbus.Error {
	o.mu.Lock()
	err := o.backend.MakeUnavailable()
	o.mu.Unlock()
	return dbusError(err)
}

// SendKey emits a key event. state is 0 for released, 1 for pressed.
func (o *Object) SendKey(keycode, state uint32) *dbus.Error {
	if state > uint32(inputmethod.Pressed) {
		return dbus.NewError(ErrorInvalidArgs, []interface{}{fmt.Sprintf("invalid key state %d", state)})
	}
	return o.call("SendKey", o.metrics.KeysTotal, func() error {
		return o.backend.SendKey(keycode, inputmethod.KeyState(state))
	})
}

// PressKey emits a press and a release of keycode.
func (o *Object) PressKey(keycode uint32) *dbus.Error {
	return o.call("PressKey", o.metrics.KeysTotal, func() error {
		return o.backend.PressKey(keycode)
	})
}

// Modifiers sets the modifier state.
func (o *Object) Modifiers(depressed, latched, locked, group uint32) *dbus.Error {
	return o.call("Modifiers", o.metrics.ModifiersTotal, func() error {
		return o.backend.Modifiers(depressed, latched, locked, group)
	})
}

// TypeString types text on the virtual keyboard.
func (o *Object) TypeString(text string) *dbus.Error {
	o.log.Debug("TypeString", "text", text)
	return o.call("TypeString", o.metrics.KeysTotal, func() error {
		return o.backend.TypeString(text)
	})
}

// Status reports which protocols are available and whether a text input
// is focused.
func (o *Object) Status() (hasInputMethod, hasVirtualKeyboard, active bool, dbusErr *dbus.Error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.backend.HasInputMethod(), o.backend.HasVirtualKeyboard(), o.state().Active, nil
}

// SurroundingText returns the last reported text field state.
func (o *Object) SurroundingText() (text string, cursor, anchor, hint, purpose uint32, dbusErr *dbus.Error) {
	o.mu.Lock()
	st := o.state()
	o.mu.Unlock()
	return st.Text, st.Cursor, st.Anchor, uint32(st.Hint), uint32(st.Purpose), nil
}

// Stats returns the daemon metrics.
func (o *Object) Stats() (map[string]float64, *dbus.Error) {
	return o.metrics.Snapshot(), nil
}

// syncOnce runs one event sync with the lock held.
func (o *Object) syncOnce(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	timer := o.metrics.RoundtripDuration.Timer()
	err := o.sync(ctx)
	timer.Stop()
	if err := o.metrics.Record(o.metrics.RoundtripsTotal, err); err != nil {
		return err
	}
	o.metrics.InputMethodActive.SetBool(o.state().Active)
	return nil
}

// RunSync syncs compositor events every interval until ctx ends or a sync
// fails. It returns nil on cancellation.
func RunSync(ctx context.Context, o *Object, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := o.syncOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("sync events: %w", err)
			}
		}
	}
}

// Exporter is the part of *dbus.Conn used by Export.
type Exporter interface {
	Export(v interface{}, path dbus.ObjectPath, iface string) error
}

// Export publishes o and its introspection data at path.
func Export(conn Exporter, o *Object, path dbus.ObjectPath) error {
	if err := conn.Export(o, path, Interface); err != nil {
		return fmt.Errorf("export object: %w", err)
	}
	node := &introspect.Node{
		Name: string(path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: introspect.Methods(o),
				Signals: signals,
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), path, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("export introspection: %w", err)
	}
	return nil
}
