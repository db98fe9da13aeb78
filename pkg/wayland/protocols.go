package wayland

import (
	"fmt"
	"os"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	"golang.org/x/sys/unix"

	"github.com/pentamassiv/wayland-input/pkg/inputmethod"
)

// zwp_input_method_manager_v2
const (
	imManagerGetInputMethod = 0
)

// zwp_input_method_v2
const (
	imCommitString          = 0
	imSetPreeditString      = 1
	imDeleteSurroundingText = 2
	imCommit                = 3
	imDestroy               = 6

	imEventActivate        = 0
	imEventDeactivate      = 1
	imEventSurroundingText = 2
	imEventTextChangeCause = 3
	imEventContentType     = 4
	imEventDone            = 5
	imEventUnavailable     = 6
)

// zwp_virtual_keyboard_manager_v1
const (
	vkManagerCreateVirtualKeyboard = 0
)

// zwp_virtual_keyboard_v1
const (
	vkKeymap    = 0
	vkKey       = 1
	vkModifiers = 2
	vkDestroy   = 3
)

// Seat is a bound wl_seat.
type Seat struct {
	*client.Seat
	version uint32
}

// Version returns the version the seat was bound at.
func (s *Seat) Version() uint32 { return s.version }

// BindSeat binds g at the highest version both sides support.
func (r *Registry) BindSeat(g Global) (*Seat, error) {
	c := r.conn
	version := min(g.Version, maxSeatVersion)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Err(); err != nil {
		return nil, err
	}
	s := client.NewSeat(c.wctx)
	c.names[s.ID()] = SeatInterface
	s.SetCapabilitiesHandler(func(e client.SeatCapabilitiesEvent) {
		c.log.Debug("seat capabilities", "capabilities", e.Capabilities)
	})
	if err := r.reg.Bind(g.Name, g.Interface, version, s); err != nil {
		return nil, c.failed("bind "+g.Interface, err)
	}
	return &Seat{Seat: s, version: version}, nil
}

// InputMethodManager is a bound zwp_input_method_manager_v2.
type InputMethodManager struct {
	proxy
}

func (r *Registry) BindInputMethodManager(g Global) (*InputMethodManager, error) {
	m := &InputMethodManager{}
	m.init(r.conn, g.Interface, 1)
	if err := r.bind(g, 1, m); err != nil {
		return nil, err
	}
	return m, nil
}

// GetInputMethod creates an input method for seat. handler receives its
// decoded events during Roundtrip.
func (m *InputMethodManager) GetInputMethod(seat inputmethod.Seat, handler func(inputmethod.Event)) (inputmethod.RemoteInputMethod, error) {
	im := &InputMethod{handler: handler}
	im.init(m.conn, "zwp_input_method_v2", m.version)
	err := m.conn.create(im, im.iface, func(id uint32) *request {
		return m.request(imManagerGetInputMethod).putUint(seat.ID()).putUint(id)
	})
	if err != nil {
		return nil, fmt.Errorf("get_input_method: %w", err)
	}
	return im, nil
}

// InputMethod is a zwp_input_method_v2 object.
type InputMethod struct {
	proxy
	handler func(inputmethod.Event)
}

// Dispatch decodes one event. Delivery to the handler is deferred until
// the connection lock is released.
func (im *InputMethod) Dispatch(op uint32, fd int, data []byte) {
	opcode := uint16(op)
	a := eventArgs{data: data}
	var ev inputmethod.Event
	switch opcode {
	case imEventActivate:
		ev = inputmethod.ActivateEvent{}
	case imEventDeactivate:
		ev = inputmethod.DeactivateEvent{}
	case imEventSurroundingText:
		ev = inputmethod.SurroundingTextEvent{Text: a.string(), Cursor: a.uint(), Anchor: a.uint()}
	case imEventTextChangeCause:
		ev = inputmethod.TextChangeCauseEvent{Cause: inputmethod.ChangeCause(a.uint())}
	case imEventContentType:
		ev = inputmethod.ContentTypeEvent{
			Hint:    inputmethod.ContentHint(a.uint()),
			Purpose: inputmethod.ContentPurpose(a.uint()),
		}
	case imEventDone:
		ev = inputmethod.DoneEvent{}
	case imEventUnavailable:
		ev = inputmethod.UnavailableEvent{}
	default:
		ev = inputmethod.UnknownEvent{Opcode: opcode}
	}
	if a.err != nil {
		im.conn.log.Warn("malformed event", "interface", im.iface, "object", im.ID(), "opcode", opcode, "error", a.err)
		return
	}
	if im.handler != nil {
		handler := im.handler
		im.conn.later(func() { handler(ev) })
	}
}

func (im *InputMethod) CommitString(text string) error {
	return im.send(im.request(imCommitString).putString(text))
}

// SetPreeditString shows text as preedit with the cursor spanning
// [begin, end) bytes. Like other edits it applies on Commit.
func (im *InputMethod) SetPreeditString(text string, begin, end int32) error {
	return im.send(im.request(imSetPreeditString).putString(text).putInt(begin).putInt(end))
}

func (im *InputMethod) DeleteSurroundingText(before, after uint32) error {
	return im.send(im.request(imDeleteSurroundingText).putUint(before).putUint(after))
}

func (im *InputMethod) Commit(serial uint32) error {
	return im.send(im.request(imCommit).putUint(serial))
}

func (im *InputMethod) Destroy() error {
	return im.destroy(imDestroy)
}

// VirtualKeyboardManager is a bound zwp_virtual_keyboard_manager_v1.
type VirtualKeyboardManager struct {
	proxy
}

func (r *Registry) BindVirtualKeyboardManager(g Global) (*VirtualKeyboardManager, error) {
	m := &VirtualKeyboardManager{}
	m.init(r.conn, g.Interface, 1)
	if err := r.bind(g, 1, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *VirtualKeyboardManager) CreateVirtualKeyboard(seat inputmethod.Seat) (inputmethod.RemoteVirtualKeyboard, error) {
	vk := &VirtualKeyboard{}
	vk.init(m.conn, "zwp_virtual_keyboard_v1", m.version)
	err := m.conn.create(vk, vk.iface, func(id uint32) *request {
		return m.request(vkManagerCreateVirtualKeyboard).putUint(seat.ID()).putUint(id)
	})
	if err != nil {
		return nil, fmt.Errorf("create_virtual_keyboard: %w", err)
	}
	return vk, nil
}

// VirtualKeyboard is a zwp_virtual_keyboard_v1 object.
type VirtualKeyboard struct {
	proxy
}

// Keymap sends the keymap fd alongside the request. file is closed once
// the request is written or has failed.
func (vk *VirtualKeyboard) Keymap(format uint32, file *os.File, size uint32) error {
	defer file.Close()
	oob := unix.UnixRights(int(file.Fd()))
	return vk.sendFD(vk.request(vkKeymap).putUint(format).putUint(size), oob)
}

func (vk *VirtualKeyboard) Key(time, key, state uint32) error {
	return vk.send(vk.request(vkKey).putUint(time).putUint(key).putUint(state))
}

func (vk *VirtualKeyboard) Modifiers(depressed, latched, locked, group uint32) error {
	return vk.send(vk.request(vkModifiers).putUint(depressed).putUint(latched).putUint(locked).putUint(group))
}

func (vk *VirtualKeyboard) Destroy() error {
	return vk.destroy(vkDestroy)
}

var (
	_ inputmethod.Seat                   = (*Seat)(nil)
	_ inputmethod.InputMethodManager     = (*InputMethodManager)(nil)
	_ inputmethod.RemoteInputMethod      = (*InputMethod)(nil)
	_ inputmethod.VirtualKeyboardManager = (*VirtualKeyboardManager)(nil)
	_ inputmethod.RemoteVirtualKeyboard  = (*VirtualKeyboard)(nil)
)
