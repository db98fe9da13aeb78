package wayland

import (
	"errors"
	"sync/atomic"

	"github.com/rajveermalviya/go-wayland/wayland/client"
)

// maxMessageSize is the largest message libwayland accepts, header included.
const maxMessageSize = 4096

var (
	errMessageTooLarge = errors.New("request exceeds maximum message size")
	errTruncated       = errors.New("argument runs past end of event")
	errBadString       = errors.New("string is not NUL terminated")
)

// proxy is the client side of one protocol object created by this package.
// Typed objects embed it and are registered with the go-wayland context.
type proxy struct {
	client.BaseProxy
	conn    *Conn
	iface   string
	version uint32

	// dead is set on destroy or delete_id.
	dead atomic.Bool
}

func (p *proxy) init(c *Conn, iface string, version uint32) {
	p.conn, p.iface, p.version = c, iface, version
}

// Interface returns the protocol interface name, e.g. "zwp_input_method_v2".
func (p *proxy) Interface() string { return p.iface }

// Version returns the version the object was bound at.
func (p *proxy) Version() uint32 { return p.version }

// Alive reports whether requests on the object can still be sent.
func (p *proxy) Alive() bool {
	return !p.dead.Load() && p.conn.Err() == nil
}

func (p *proxy) markDead() { p.dead.Store(true) }

// Dispatch reports events of objects without a decoder as unhandled. It
// runs inside Roundtrip with the connection lock held.
func (p *proxy) Dispatch(opcode uint32, fd int, data []byte) {
	p.conn.reportUnhandled(p.ID(), uint16(opcode))
}

func (p *proxy) request(opcode uint16) *request {
	return newRequest(p.ID(), opcode)
}

func (p *proxy) send(r *request) error {
	return p.sendFD(r, nil)
}

func (p *proxy) sendFD(r *request, oob []byte) error {
	if p.dead.Load() {
		return ErrDestroyed
	}
	return p.conn.write(r, oob)
}

// destroy sends a destructor request and marks the proxy dead. The object
// stays registered until the compositor confirms with delete_id.
func (p *proxy) destroy(opcode uint16) error {
	if err := p.send(p.request(opcode)); err != nil {
		return err
	}
	p.markDead()
	return nil
}

// request encodes one message the way generated go-wayland proxies do:
// sender ID, then size<<16|opcode, then 32-bit aligned arguments.
type request struct {
	buf    []byte
	opcode uint16
}

func newRequest(id uint32, opcode uint16) *request {
	r := &request{buf: make([]byte, 8, 32), opcode: opcode}
	client.PutUint32(r.buf[0:4], id)
	return r
}

func (r *request) putUint(v uint32) *request {
	r.buf = append(r.buf, 0, 0, 0, 0)
	client.PutUint32(r.buf[len(r.buf)-4:], v)
	return r
}

func (r *request) putInt(v int32) *request {
	return r.putUint(uint32(v))
}

// putString appends a length-prefixed, NUL terminated and padded string.
func (r *request) putString(s string) *request {
	r.putUint(uint32(len(s) + 1))
	r.buf = append(r.buf, s...)
	r.buf = append(r.buf, 0)
	for len(r.buf)%4 != 0 {
		r.buf = append(r.buf, 0)
	}
	return r
}

func (r *request) bytes() ([]byte, error) {
	if len(r.buf) > maxMessageSize {
		return nil, errMessageTooLarge
	}
	client.PutUint32(r.buf[4:8], uint32(len(r.buf))<<16|uint32(r.opcode))
	return r.buf, nil
}

// eventArgs reads the arguments of one event. The first short or malformed
// argument sets err; later reads return zero values.
type eventArgs struct {
	data []byte
	err  error
}

func (a *eventArgs) uint() uint32 {
	if a.err != nil {
		return 0
	}
	if len(a.data) < 4 {
		a.err = errTruncated
		return 0
	}
	v := client.Uint32(a.data[:4])
	a.data = a.data[4:]
	return v
}

func (a *eventArgs) string() string {
	n := a.uint()
	if a.err != nil || n == 0 {
		return ""
	}
	// Compare before converting: n comes off the wire.
	padded := (uint64(n) + 3) &^ 3
	if padded > uint64(len(a.data)) {
		a.err = errTruncated
		return ""
	}
	b := a.data[:n]
	if b[n-1] != 0 {
		a.err = errBadString
		return ""
	}
	a.data = a.data[padded:]
	return string(b[:n-1])
}
