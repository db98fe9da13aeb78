package wayland

import (
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// wl_display events and requests as the server sees them.
const (
	displaySync        = 0
	displayGetRegistry = 1

	displayEventError    = 0
	displayEventDeleteID = 1

	registryEventGlobal = 0
)

// fakeCompositor is an in-process server speaking just enough of the
// protocol to exercise Conn.
type fakeCompositor struct {
	sock    *net.UnixConn
	globals []Global
	done    chan struct{}

	mu         sync.Mutex
	fds        []int
	objects    map[uint32]string
	requests   []string
	keymap     []byte
	failCommit bool
	ignoreSync bool
	serial     uint32
}

func startCompositor(t *testing.T, globals ...Global) (*Conn, *fakeCompositor) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wayland-test")
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	require.NoError(t, err)
	defer ln.Close()

	conn, err := Dial(testContext(t), DialConfig{Display: path})
	require.NoError(t, err)
	server, err := ln.AcceptUnix()
	require.NoError(t, err)

	fc := &fakeCompositor{
		sock:    server,
		globals: globals,
		done:    make(chan struct{}),
		objects: map[uint32]string{displayID: "wl_display"},
	}
	go fc.serve()

	t.Cleanup(func() {
		conn.Close()
		<-fc.done
		server.Close()
		for _, fd := range fc.fds {
			unix.Close(fd)
		}
	})
	return conn, fc
}

func defaultGlobals() []Global {
	return []Global{
		{Name: 1, Interface: SeatInterface, Version: 8},
		{Name: 2, Interface: "wl_output", Version: 4},
		{Name: 3, Interface: InputMethodManagerInterface, Version: 1},
		{Name: 4, Interface: VirtualKeyboardManagerInterface, Version: 1},
	}
}

func (fc *fakeCompositor) Requests() []string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]string(nil), fc.requests...)
}

func (fc *fakeCompositor) Keymap() []byte {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.keymap
}

func (fc *fakeCompositor) set(fn func()) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fn()
}

func (fc *fakeCompositor) record(format string, args ...any) {
	fc.requests = append(fc.requests, fmt.Sprintf(format, args...))
}

// serve reads requests until the client hangs up.
func (fc *fakeCompositor) serve() {
	defer close(fc.done)
	buf := make([]byte, 0, 64*1024)
	chunk := make([]byte, 16*1024)
	oob := make([]byte, unix.CmsgSpace(4*28))
	for {
		n, oobn, _, _, err := fc.sock.ReadMsgUnix(chunk, oob)
		if oobn > 0 {
			fc.takeFDs(oob[:oobn])
		}
		if n < 0 {
			n = 0
		}
		buf = append(buf, chunk[:n]...)
		for len(buf) >= 8 {
			size := int(binary.NativeEndian.Uint32(buf[4:8]) >> 16)
			if size < 8 || len(buf) < size {
				break
			}
			fc.handle(serverFrame{
				sender: binary.NativeEndian.Uint32(buf[0:4]),
				opcode: uint16(binary.NativeEndian.Uint32(buf[4:8])),
				args:   &serverArgs{data: buf[8:size]},
			})
			buf = buf[size:]
		}
		if err != nil {
			return
		}
	}
}

func (fc *fakeCompositor) takeFDs(oob []byte) {
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	for i := range msgs {
		if fds, err := unix.ParseUnixRights(&msgs[i]); err == nil {
			fc.fds = append(fc.fds, fds...)
		}
	}
}

type serverFrame struct {
	sender uint32
	opcode uint16
	args   *serverArgs
}

type serverArgs struct {
	data []byte
}

func (a *serverArgs) uint() uint32 {
	if len(a.data) < 4 {
		return 0
	}
	v := binary.NativeEndian.Uint32(a.data)
	a.data = a.data[4:]
	return v
}

func (a *serverArgs) int() int32 { return int32(a.uint()) }

func (a *serverArgs) string() string {
	n := uint64(a.uint())
	padded := (n + 3) &^ 3
	if n == 0 || padded > uint64(len(a.data)) {
		return ""
	}
	s := string(a.data[:n-1])
	a.data = a.data[padded:]
	return s
}

// event builds one server to client message.
type event struct {
	sender uint32
	opcode uint16
	args   []byte
}

func newEvent(sender uint32, opcode uint16) *event {
	return &event{sender: sender, opcode: opcode}
}

func (e *event) uint(v uint32) *event {
	e.args = binary.NativeEndian.AppendUint32(e.args, v)
	return e
}

func (e *event) string(s string) *event {
	e.uint(uint32(len(s) + 1))
	e.args = append(e.args, s...)
	e.args = append(e.args, 0)
	for len(e.args)%4 != 0 {
		e.args = append(e.args, 0)
	}
	return e
}

func (e *event) bytes() []byte {
	b := binary.NativeEndian.AppendUint32(nil, e.sender)
	b = binary.NativeEndian.AppendUint32(b, uint32(8+len(e.args))<<16|uint32(e.opcode))
	return append(b, e.args...)
}

// emit writes evs with a single write so the client reads them together.
func (fc *fakeCompositor) emit(evs ...*event) {
	var data []byte
	for _, e := range evs {
		data = append(data, e.bytes()...)
	}
	fc.sock.Write(data)
}

func (fc *fakeCompositor) deleteID(id uint32) {
	delete(fc.objects, id)
	fc.emit(newEvent(displayID, displayEventDeleteID).uint(id))
}

func (fc *fakeCompositor) popFD() *os.File {
	if len(fc.fds) == 0 {
		return nil
	}
	fd := fc.fds[0]
	fc.fds = fc.fds[1:]
	return os.NewFile(uintptr(fd), "keymap")
}

func (fc *fakeCompositor) handle(f serverFrame) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	a := f.args
	switch iface := fc.objects[f.sender]; iface {
	case "wl_display":
		switch f.opcode {
		case displaySync:
			cb := a.uint()
			if fc.ignoreSync {
				return
			}
			fc.serial++
			fc.emit(
				newEvent(cb, 0).uint(fc.serial),
				newEvent(displayID, displayEventDeleteID).uint(cb),
			)
		case displayGetRegistry:
			id := a.uint()
			fc.objects[id] = "wl_registry"
			for _, g := range fc.globals {
				fc.emit(newEvent(id, registryEventGlobal).uint(g.Name).string(g.Interface).uint(g.Version))
			}
		}

	case "wl_registry":
		name, bound, version, id := a.uint(), a.string(), a.uint(), a.uint()
		fc.objects[id] = bound
		fc.record("bind %d %s %d", name, bound, version)
		switch bound {
		case SeatInterface:
			// capabilities: keyboard | pointer
			fc.emit(newEvent(id, 0).uint(3))
		case VirtualKeyboardManagerInterface:
			// The manager has no events; the client must report this one.
			fc.emit(newEvent(id, 0))
		}

	case InputMethodManagerInterface:
		seat, id := a.uint(), a.uint()
		fc.objects[id] = "zwp_input_method_v2"
		fc.record("get_input_method seat=%d", seat)
		fc.emit(newEvent(id, imEventActivate))
		fc.emit(newEvent(id, imEventSurroundingText).string("hello").uint(5).uint(5))
		fc.emit(newEvent(id, imEventContentType).uint(0x100).uint(6))
		fc.emit(newEvent(id, 42))
		fc.emit(newEvent(id, imEventDone))

	case "zwp_input_method_v2":
		switch f.opcode {
		case imCommitString:
			fc.record("commit_string %s", a.string())
		case imSetPreeditString:
			fc.record("set_preedit_string %s %d %d", a.string(), a.int(), a.int())
		case imDeleteSurroundingText:
			fc.record("delete_surrounding_text %d %d", a.uint(), a.uint())
		case imCommit:
			serial := a.uint()
			fc.record("commit %d", serial)
			if fc.failCommit {
				fc.emit(newEvent(displayID, displayEventError).
					uint(f.sender).uint(1).string("invalid serial"))
			}
		case imDestroy:
			fc.record("destroy input method")
			fc.deleteID(f.sender)
		}

	case VirtualKeyboardManagerInterface:
		seat, id := a.uint(), a.uint()
		fc.objects[id] = "zwp_virtual_keyboard_v1"
		fc.record("create_virtual_keyboard seat=%d", seat)

	case "zwp_virtual_keyboard_v1":
		switch f.opcode {
		case vkKeymap:
			format, size := a.uint(), a.uint()
			file := fc.popFD()
			if file == nil {
				fc.record("keymap without fd")
				return
			}
			buf := make([]byte, size)
			file.ReadAt(buf, 0)
			file.Close()
			fc.keymap = buf
			fc.record("keymap format=%d size=%d", format, size)
		case vkKey:
			fc.record("key %d %d %d", a.uint(), a.uint(), a.uint())
		case vkModifiers:
			fc.record("modifiers %d %d %d %d", a.uint(), a.uint(), a.uint(), a.uint())
		case vkDestroy:
			fc.record("destroy virtual keyboard")
			fc.deleteID(f.sender)
		}

	default:
		fc.record("request on unknown object %d opcode %d", f.sender, f.opcode)
	}
}
