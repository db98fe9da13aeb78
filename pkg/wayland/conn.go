package wayland

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/rajveermalviya/go-wayland/wayland/client"

	"github.com/pentamassiv/wayland-input/pkg/inputmethod"
)

// DefaultDisplay is used when neither the config nor WAYLAND_DISPLAY names
// a compositor socket.
const DefaultDisplay = "wayland-0"

const displayID = 1

// Common errors
var (
	ErrNoRuntimeDir = errors.New("XDG_RUNTIME_DIR is not set")
	ErrClosed       = errors.New("wayland connection closed")
	ErrDestroyed    = errors.New("object already destroyed")
	ErrNoSeat       = errors.New("compositor advertises no wl_seat")
)

// ProtocolError is a fatal wl_display.error sent by the compositor. The
// connection is unusable afterwards.
type ProtocolError struct {
	Object    uint32
	Interface string
	Code      uint32
	Message   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error on %s@%d (code %d): %s", e.Interface, e.Object, e.Code, e.Message)
}

// DialConfig configures Dial.
type DialConfig struct {
	// Display is a socket name relative to RuntimeDir or an absolute path.
	// Empty means $WAYLAND_DISPLAY, then DefaultDisplay.
	Display string
	// RuntimeDir overrides $XDG_RUNTIME_DIR.
	RuntimeDir string
	Logger     *slog.Logger
}

// DefaultDialConfig returns a config that connects the way libwayland
// clients do.
func DefaultDialConfig() DialConfig {
	return DialConfig{}
}

// SocketPath resolves the compositor socket path for cfg.
func (cfg DialConfig) SocketPath() (string, error) {
	name := cfg.Display
	if name == "" {
		name = os.Getenv("WAYLAND_DISPLAY")
	}
	if name == "" {
		name = DefaultDisplay
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	dir := cfg.RuntimeDir
	if dir == "" {
		dir = os.Getenv("XDG_RUNTIME_DIR")
	}
	if dir == "" {
		return "", ErrNoRuntimeDir
	}
	return filepath.Join(dir, name), nil
}

// object is a protocol object created by this package.
type object interface {
	client.Proxy
	markDead()
}

// Conn is a client connection to a Wayland compositor.
//
// Requests are written as they are made. Events are read and dispatched
// only inside Roundtrip; handlers run on the calling goroutine after the
// connection lock is released, so they may issue requests.
type Conn struct {
	display *client.Display
	wctx    *client.Context
	log     *slog.Logger

	// rmu serializes readers.
	rmu sync.Mutex

	// mu guards the object table of wctx, socket writes and the fields
	// below.
	mu        sync.Mutex
	names     map[uint32]string
	owned     map[uint32]object
	queued    []func()
	unhandled func(inputmethod.UnhandledEvent)

	errMu sync.Mutex
	err   error

	closeOnce sync.Once
	closeErr  error
}

// Dial connects to the compositor socket cfg resolves to.
func Dial(ctx context.Context, cfg DialConfig) (*Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := cfg.SocketPath()
	if err != nil {
		return nil, err
	}
	display, err := client.Connect(path)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", path, err)
	}
	c := newConn(display, cfg.Logger)
	c.log.Debug("connected to compositor", "socket", path)
	return c, nil
}

func newConn(display *client.Display, log *slog.Logger) *Conn {
	if log == nil {
		log = slog.Default()
	}
	c := &Conn{
		display: display,
		wctx:    display.Context(),
		log:     log,
		names:   map[uint32]string{displayID: "wl_display"},
		owned:   make(map[uint32]object),
	}
	display.SetErrorHandler(c.handleError)
	display.SetDeleteIdHandler(c.handleDeleteID)
	return c
}

// Err returns the error that made the connection unusable, or nil.
func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// fail records the first fatal error.
func (c *Conn) fail(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
		c.log.Warn("wayland connection failed", "error", err)
	}
}

// failed records err as fatal after a write to the socket went wrong.
func (c *Conn) failed(op string, err error) error {
	err = fmt.Errorf("%s: %w", op, err)
	c.fail(err)
	return c.Err()
}

// register adds obj to the object table. Callers hold mu.
func (c *Conn) register(obj object, iface string) {
	c.wctx.Register(obj)
	c.names[obj.ID()] = iface
	c.owned[obj.ID()] = obj
}

// create registers obj and writes the request that creates it.
func (c *Conn) create(obj object, iface string, req func(id uint32) *request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Err(); err != nil {
		return err
	}
	c.register(obj, iface)
	return c.writeLocked(req(obj.ID()), nil)
}

func (c *Conn) write(r *request, oob []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(r, oob)
}

func (c *Conn) writeLocked(r *request, oob []byte) error {
	if err := c.Err(); err != nil {
		return err
	}
	data, err := r.bytes()
	if err != nil {
		return err
	}
	if err := c.wctx.WriteMsg(data, oob); err != nil {
		return c.failed("send request", err)
	}
	return nil
}

// later queues fn to run once the current dispatch has released mu.
// Callers hold mu.
func (c *Conn) later(fn func()) {
	c.queued = append(c.queued, fn)
}

// reportUnhandled queues an event nobody decoded. Callers hold mu.
func (c *Conn) reportUnhandled(id uint32, opcode uint16) {
	if c.unhandled == nil {
		return
	}
	ev := inputmethod.UnhandledEvent{Object: id, Interface: c.names[id], Opcode: opcode}
	fn := c.unhandled
	c.later(func() { fn(ev) })
}

// Roundtrip dispatches events until the compositor answers a
// wl_display.sync sent after every request made so far.
//
// The wait cannot be interrupted without losing the position in the event
// stream, so cancelling ctx closes the connection and Roundtrip returns an
// error wrapping ctx's error.
func (c *Conn) Roundtrip(ctx context.Context, unhandled func(inputmethod.UnhandledEvent)) error {
	c.rmu.Lock()
	defer c.rmu.Unlock()

	if err := c.Err(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("roundtrip: %w", err)
	}

	done := false
	c.mu.Lock()
	cb, err := c.display.Sync()
	if err == nil {
		c.names[cb.ID()] = "wl_callback"
		cb.SetDoneHandler(func(client.CallbackDoneEvent) { done = true })
	}
	c.unhandled = unhandled
	c.mu.Unlock()
	if err != nil {
		return c.failed("sync", err)
	}
	defer func() {
		c.mu.Lock()
		cb.Destroy()
		delete(c.names, cb.ID())
		c.unhandled = nil
		c.mu.Unlock()
	}()

	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		c.fail(fmt.Errorf("roundtrip: %w", context.Cause(ctx)))
		c.closeSocket()
		close(fired)
	})
	defer func() {
		if !stop() {
			<-fired
		}
	}()

	for !done {
		c.mu.Lock()
		derr := c.wctx.Dispatch()
		queued := c.queued
		c.queued = nil
		c.mu.Unlock()

		for _, fn := range queued {
			fn()
		}
		if err := c.Err(); err != nil {
			return err
		}
		if derr != nil {
			return c.failed("read event", derr)
		}
	}
	return nil
}

func (c *Conn) handleError(e client.DisplayErrorEvent) {
	id := objectID(e.ObjectId)
	iface := c.names[id]
	if iface == "" {
		iface = "unknown"
	}
	c.fail(&ProtocolError{Object: id, Interface: iface, Code: e.Code, Message: e.Message})
}

func (c *Conn) handleDeleteID(e client.DisplayDeleteIdEvent) {
	obj, ok := c.owned[e.Id]
	if !ok {
		return
	}
	obj.markDead()
	c.wctx.Unregister(obj)
	delete(c.owned, e.Id)
	delete(c.names, e.Id)
}

// objectID extracts the object ID carried by a wl_display.error event.
func objectID(v any) uint32 {
	switch o := v.(type) {
	case interface{ ID() uint32 }:
		return o.ID()
	case uint32:
		return o
	}
	return 0
}

// Close closes the socket. Pending requests are dropped.
func (c *Conn) Close() error {
	c.fail(ErrClosed)
	return c.closeSocket()
}

func (c *Conn) closeSocket() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.wctx.Close()
	})
	return c.closeErr
}

var _ inputmethod.Roundtripper = (*Conn)(nil)
