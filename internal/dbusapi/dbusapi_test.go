package dbusapi

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pentamassiv/wayland-input/internal/metrics"
	"github.com/pentamassiv/wayland-input/pkg/inputmethod"
)

type fakeBackend struct {
	noIM, noVK bool
	err        error
	calls      []string
}

func (b *fakeBackend) do(format string, args ...any) error {
	b.calls = append(b.calls, fmt.Sprintf(format, args...))
	return b.err
}

func (b *fakeBackend) HasInputMethod() bool     { return !b.noIM }
func (b *fakeBackend) HasVirtualKeyboard() bool { return !b.noVK }

func (b *fakeBackend) CommitString(text string) error {
	if b.noIM {
		return inputmethod.ErrIMNotAvailable
	}
	return b.do("commit_string %s", text)
}

func (b *fakeBackend) DeleteSurroundingText(before, after uint32) error {
	return b.do("delete %d %d", before, after)
}

func (b *fakeBackend) Commit() error          { return b.do("commit") }
func (b *fakeBackend) MakeUnavailable() error { return b.do("unavailable") }

func (b *fakeBackend) SendKey(keycode uint32, state inputmethod.KeyState) error {
	if b.noVK {
		return inputmethod.ErrVKNotAvailable
	}
	return b.do("key %d %s", keycode, state)
}

func (b *fakeBackend) Modifiers(d, l, k, g uint32) error {
	return b.do("modifiers %d %d %d %d", d, l, k, g)
}

func (b *fakeBackend) PressKey(keycode uint32) error { return b.do("press %d", keycode) }
func (b *fakeBackend) TypeString(text string) error  { return b.do("type %s", text) }

type emitted struct {
	path   dbus.ObjectPath
	name   string
	values []interface{}
}

type fakeEmitter struct {
	signals []emitted
	err     error
}

func (e *fakeEmitter) Emit(path dbus.ObjectPath, name string, values ...interface{}) error {
	e.signals = append(e.signals, emitted{path, name, values})
	return e.err
}

type fakeExporter struct {
	exported map[string]interface{}
}

func (e *fakeExporter) Export(v interface{}, path dbus.ObjectPath, iface string) error {
	if e.exported == nil {
		e.exported = map[string]interface{}{}
	}
	e.exported[string(path)+" "+iface] = v
	return nil
}

func newObject(b *fakeBackend) (*Object, *metrics.ServiceMetrics) {
	m := metrics.NewServiceMetrics(nil)
	return New(Options{
		Backend: b,
		Sync:    func(context.Context) error { return nil },
		Metrics: m,
	}), m
}

func TestRequestsReachBackend(t *testing.T) {
	b := &fakeBackend{}
	o, m := newObject(b)

	require.Nil(t, o.CommitString("hello"))
	require.Nil(t, o.DeleteSurroundingText(2, 1))
	require.Nil(t, o.Commit())
	require.Nil(t, o.CommitText("world"))
	require.Nil(t, o.SendKey(21, 1))
	require.Nil(t, o.PressKey(28))
	require.Nil(t, o.Modifiers(1, 0, 2, 0))
	require.Nil(t, o.TypeString("hi"))
	require.Nil(t, o.MakeUnavailable())

	assert.Equal(t, []string{
		"commit_string hello",
		"delete 2 1",
		"commit",
		"commit_string world",
		"commit",
		"key 21 pressed",
		"press 28",
		"modifiers 1 0 2 0",
		"type hi",
		"unavailable",
	}, b.calls)

	assert.EqualValues(t, 2, m.CommitsTotal.Value())
	assert.EqualValues(t, 2, m.CommitStringsTotal.Value())
	assert.EqualValues(t, 3, m.KeysTotal.Value())
	assert.EqualValues(t, 1, m.ModifiersTotal.Value())
	assert.Zero(t, m.ErrorsTotal.Value())
}

func TestErrorNames(t *testing.T) {
	tests := []struct {
		err  error
		name string
	}{
		{fmt.Errorf("%w: broken pipe", inputmethod.ErrNotAlive), ErrorNotAlive},
		{inputmethod.ErrIMNotAvailable, ErrorInputMethodNotAvailable},
		{inputmethod.ErrVKNotAvailable, ErrorVirtualKeyboardNotAvailable},
		{inputmethod.ErrTextTooLong, ErrorTextTooLong},
		{fmt.Errorf("%w: 'é'", inputmethod.ErrUnmappedRune), ErrorUnmappedCharacter},
		{errors.New("boom"), ErrorFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			derr := dbusError(tt.err)
			require.NotNil(t, derr)
			assert.Equal(t, tt.name, derr.Name)
			assert.Equal(t, []interface{}{tt.err.Error()}, derr.Body)
		})
	}
	assert.Nil(t, dbusError(nil))
}

func TestMissingProtocols(t *testing.T) {
	b := &fakeBackend{noIM: true, noVK: true}
	o, m := newObject(b)

	derr := o.CommitString("x")
	require.NotNil(t, derr)
	assert.Equal(t, ErrorInputMethodNotAvailable, derr.Name)

	derr = o.SendKey(30, 0)
	require.NotNil(t, derr)
	assert.Equal(t, ErrorVirtualKeyboardNotAvailable, derr.Name)

	assert.EqualValues(t, 2, m.ErrorsTotal.Value())
	assert.Empty(t, b.calls)

	hasIM, hasVK, active, derr := o.Status()
	assert.Nil(t, derr)
	assert.False(t, hasIM)
	assert.False(t, hasVK)
	assert.False(t, active)
}

func TestSendKeyRejectsBadState(t *testing.T) {
	b := &fakeBackend{}
	o, _ := newObject(b)
	derr := o.SendKey(30, 7)
	require.NotNil(t, derr)
	assert.Equal(t, ErrorInvalidArgs, derr.Name)
	assert.Empty(t, b.calls)
}

func TestSurroundingTextAndStats(t *testing.T) {
	b := &fakeBackend{}
	st := inputmethod.SurroundingTextState{
		Text: "hello", Cursor: 5, Anchor: 2,
		Hint: inputmethod.ContentHint(0x100), Purpose: inputmethod.PurposeEmail, Active: true,
	}
	m := metrics.NewServiceMetrics(nil)
	o := New(Options{
		Backend: b,
		Sync:    func(context.Context) error { return nil },
		State:   func() inputmethod.SurroundingTextState { return st },
		Metrics: m,
	})

	text, cursor, anchor, hint, purpose, derr := o.SurroundingText()
	assert.Nil(t, derr)
	assert.Equal(t, "hello", text)
	assert.EqualValues(t, 5, cursor)
	assert.EqualValues(t, 2, anchor)
	assert.EqualValues(t, 0x100, hint)
	assert.EqualValues(t, inputmethod.PurposeEmail, purpose)

	require.NoError(t, o.syncOnce(context.Background()))
	assert.EqualValues(t, 1, m.InputMethodActive.Value())

	stats, derr := o.Stats()
	assert.Nil(t, derr)
	assert.Equal(t, float64(1), stats["wlinput_roundtrips_total"])
	assert.Equal(t, float64(1), stats["wlinput_roundtrip_duration_seconds_count"])
}

func TestRunSync(t *testing.T) {
	var trips atomic.Int32
	syncErr := errors.New("connection lost")
	o := New(Options{
		Backend: &fakeBackend{},
		Sync: func(context.Context) error {
			if trips.Add(1) == 3 {
				return syncErr
			}
			return nil
		},
	})

	err := RunSync(context.Background(), o, time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, syncErr)
	assert.EqualValues(t, 3, trips.Load())
}

func TestRunSyncCancelled(t *testing.T) {
	o := New(Options{
		Backend: &fakeBackend{},
		Sync:    func(context.Context) error { return nil },
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, RunSync(ctx, o, time.Hour))
}

func TestSignalConnector(t *testing.T) {
	e := &fakeEmitter{}
	s := NewSignalConnector(e, "/org/wlinput/InputMethod", nil)

	tracker := inputmethod.NewStateTracker(s)
	d := inputmethod.NewDispatcher(tracker, nil)
	d.Dispatch(inputmethod.ActivateEvent{})
	d.Dispatch(inputmethod.SurroundingTextEvent{Text: "abc", Cursor: 3, Anchor: 1})
	d.Dispatch(inputmethod.TextChangeCauseEvent{Cause: inputmethod.CauseOther})
	d.Dispatch(inputmethod.ContentTypeEvent{Hint: 4, Purpose: inputmethod.PurposeDigits})
	d.Dispatch(inputmethod.DoneEvent{})
	d.Dispatch(inputmethod.DeactivateEvent{})
	d.Dispatch(inputmethod.UnavailableEvent{})

	names := make([]string, len(e.signals))
	for i, sig := range e.signals {
		names[i] = sig.name
		assert.Equal(t, dbus.ObjectPath("/org/wlinput/InputMethod"), sig.path)
	}
	assert.Equal(t, []string{
		Interface + ".Activated",
		Interface + ".SurroundingText",
		Interface + ".TextChangeCause",
		Interface + ".ContentType",
		Interface + ".Done",
		Interface + ".Deactivated",
		Interface + ".Unavailable",
	}, names)
	assert.Equal(t, []interface{}{"abc", uint32(3), uint32(1)}, e.signals[1].values)
	assert.Equal(t, []interface{}{uint32(4), uint32(inputmethod.PurposeDigits)}, e.signals[3].values)
	assert.False(t, tracker.State().Active)
}

func TestSignalConnectorEmitFailure(t *testing.T) {
	e := &fakeEmitter{err: errors.New("bus gone")}
	s := NewSignalConnector(e, "/x", nil)
	s.Done()
	assert.Len(t, e.signals, 1)
}

func TestExport(t *testing.T) {
	exp := &fakeExporter{}
	o, _ := newObject(&fakeBackend{})
	require.NoError(t, Export(exp, o, "/org/wlinput/InputMethod"))

	assert.Same(t, o, exp.exported["/org/wlinput/InputMethod "+Interface])
	assert.Contains(t, exp.exported, "/org/wlinput/InputMethod org.freedesktop.DBus.Introspectable")
}
