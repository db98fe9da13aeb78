package inputmethod

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/pentamassiv/wayland-input/internal/keymap"
)

var errQueue = errors.New("queue closed")

type fakeSeat uint32

func (s fakeSeat) ID() uint32 { return uint32(s) }

// fakeIM records requests as strings.
type fakeIM struct {
	mu       sync.Mutex
	dead     bool
	failNext bool
	calls    []string
	handler  func(Event)
}

func (f *fakeIM) Alive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.dead
}

func (f *fakeIM) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return errQueue
	}
	f.calls = append(f.calls, call)
	return nil
}

func (f *fakeIM) CommitString(text string) error {
	return f.record("commit_string " + text)
}

func (f *fakeIM) DeleteSurroundingText(before, after uint32) error {
	return f.record(fmt.Sprintf("delete_surrounding_text %d %d", before, after))
}

func (f *fakeIM) Commit(serial uint32) error {
	return f.record(fmt.Sprintf("commit %d", serial))
}

func (f *fakeIM) Destroy() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "destroy")
	f.dead = true
	return nil
}

func (f *fakeIM) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeIMManager struct {
	im      *fakeIM
	created int
	err     error
}

func (m *fakeIMManager) GetInputMethod(seat Seat, handler func(Event)) (RemoteInputMethod, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.created++
	if m.im == nil {
		m.im = &fakeIM{}
	}
	m.im.handler = handler
	return m.im, nil
}

type keyCall struct {
	Time, Key, State uint32
}

type fakeVK struct {
	mu         sync.Mutex
	dead       bool
	keymap     []byte
	format     uint32
	keys       []keyCall
	mods       [][4]uint32
	destroyed  bool
	keymapErr  error
	failKeyErr error
}

func (f *fakeVK) Alive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.dead
}

func (f *fakeVK) Keymap(format uint32, file *os.File, size uint32) error {
	defer file.Close()
	if f.keymapErr != nil {
		return f.keymapErr
	}
	buf := make([]byte, size)
	if _, err := file.ReadAt(buf, 0); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.format = format
	f.keymap = buf
	return nil
}

func (f *fakeVK) Key(time, key, state uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failKeyErr != nil {
		return f.failKeyErr
	}
	f.keys = append(f.keys, keyCall{time, key, state})
	return nil
}

func (f *fakeVK) Modifiers(depressed, latched, locked, group uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mods = append(f.mods, [4]uint32{depressed, latched, locked, group})
	return nil
}

func (f *fakeVK) Destroy() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = true
	f.dead = true
	return nil
}

type fakeVKManager struct {
	vk      *fakeVK
	created int
}

func (m *fakeVKManager) CreateVirtualKeyboard(seat Seat) (RemoteVirtualKeyboard, error) {
	m.created++
	if m.vk == nil {
		m.vk = &fakeVK{}
	}
	return m.vk, nil
}

type failingPublisher struct{}

func (failingPublisher) Publish([]byte) (*keymap.Descriptor, error) {
	return nil, fmt.Errorf("%w: out of memory", keymap.ErrAllocationFailed)
}

// fakeTransport delivers queued events to the handler on Roundtrip.
type fakeTransport struct {
	mgr       *fakeIMManager
	events    []Event
	unhandled []UnhandledEvent
	err       error
	trips     int
}

func (t *fakeTransport) Roundtrip(ctx context.Context, unhandled func(UnhandledEvent)) error {
	t.trips++
	if t.err != nil {
		return t.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, ev := range t.events {
		if t.mgr != nil && t.mgr.im != nil && t.mgr.im.handler != nil {
			t.mgr.im.handler(ev)
		}
	}
	t.events = nil
	for _, ev := range t.unhandled {
		unhandled(ev)
	}
	return nil
}

// recorder is a Connector that logs each callback.
type recorder struct {
	mu  sync.Mutex
	log []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.log = append(r.log, s)
	r.mu.Unlock()
}

func (r *recorder) Activated()   { r.add("activated") }
func (r *recorder) Deactivated() { r.add("deactivated") }
func (r *recorder) SurroundingText(text string, cursor, anchor uint32) {
	r.add(fmt.Sprintf("surrounding_text %q %d %d", text, cursor, anchor))
}
func (r *recorder) TextChangeCause(cause ChangeCause) { r.add("text_change_cause " + cause.String()) }
func (r *recorder) ContentType(hint ContentHint, purpose ContentPurpose) {
	r.add(fmt.Sprintf("content_type %#x %s", uint32(hint), purpose))
}
func (r *recorder) Done()        { r.add("done") }
func (r *recorder) Unavailable() { r.add("unavailable") }

func (r *recorder) Log() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.log...)
}
