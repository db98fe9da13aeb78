package wayland

import (
	"context"
	"fmt"
	"sync"

	"github.com/rajveermalviya/go-wayland/wayland/client"

	"github.com/pentamassiv/wayland-input/pkg/inputmethod"
)

// Interface names and the versions this package speaks.
const (
	SeatInterface                   = "wl_seat"
	InputMethodManagerInterface     = "zwp_input_method_manager_v2"
	VirtualKeyboardManagerInterface = "zwp_virtual_keyboard_manager_v1"

	maxSeatVersion = 7
)

// Global is one entry the compositor advertised through wl_registry.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Registry tracks the compositor's globals.
type Registry struct {
	conn *Conn
	reg  *client.Registry

	mu      sync.Mutex
	globals map[uint32]Global
	order   []uint32
}

// Registry requests the global registry. Globals are filled in by the next
// Roundtrip.
func (c *Conn) Registry() (*Registry, error) {
	r := &Registry{conn: c, globals: make(map[uint32]Global)}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Err(); err != nil {
		return nil, err
	}
	reg, err := c.display.GetRegistry()
	if err != nil {
		return nil, c.failed("get registry", err)
	}
	c.names[reg.ID()] = "wl_registry"
	reg.SetGlobalHandler(r.handleGlobal)
	reg.SetGlobalRemoveHandler(r.handleGlobalRemove)
	r.reg = reg
	return r, nil
}

func (r *Registry) handleGlobal(e client.RegistryGlobalEvent) {
	g := Global{Name: e.Name, Interface: e.Interface, Version: e.Version}
	r.mu.Lock()
	if _, ok := r.globals[g.Name]; !ok {
		r.order = append(r.order, g.Name)
	}
	r.globals[g.Name] = g
	r.mu.Unlock()
	r.conn.log.Debug("global", "name", g.Name, "interface", g.Interface, "version", g.Version)
}

func (r *Registry) handleGlobalRemove(e client.RegistryGlobalRemoveEvent) {
	r.mu.Lock()
	delete(r.globals, e.Name)
	r.mu.Unlock()
	r.conn.log.Debug("global removed", "name", e.Name)
}

// Globals returns the advertised globals in announcement order.
func (r *Registry) Globals() []Global {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Global, 0, len(r.globals))
	for _, name := range r.order {
		if g, ok := r.globals[name]; ok {
			out = append(out, g)
		}
	}
	return out
}

// Find returns the first global implementing iface.
func (r *Registry) Find(iface string) (Global, bool) {
	for _, g := range r.Globals() {
		if g.Interface == iface {
			return g, true
		}
	}
	return Global{}, false
}

// bind registers obj and binds global g to it at version.
func (r *Registry) bind(g Global, version uint32, obj object) error {
	c := r.conn
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Err(); err != nil {
		return err
	}
	c.register(obj, g.Interface)
	if err := r.reg.Bind(g.Name, g.Interface, version, obj); err != nil {
		return c.failed("bind "+g.Interface, err)
	}
	return nil
}

// Bootstrap discovers the compositor's globals with one round trip and binds
// the seat and both managers. Missing managers are left nil; a missing seat
// is an error.
func (c *Conn) Bootstrap(ctx context.Context) (inputmethod.Bootstrap, error) {
	reg, err := c.Registry()
	if err != nil {
		return inputmethod.Bootstrap{}, err
	}
	if err := c.Roundtrip(ctx, nil); err != nil {
		return inputmethod.Bootstrap{}, fmt.Errorf("discover globals: %w", err)
	}

	b := inputmethod.Bootstrap{Transport: c}

	sg, ok := reg.Find(SeatInterface)
	if !ok {
		return inputmethod.Bootstrap{}, ErrNoSeat
	}
	seat, err := reg.BindSeat(sg)
	if err != nil {
		return inputmethod.Bootstrap{}, err
	}
	b.Seat = seat

	if g, ok := reg.Find(InputMethodManagerInterface); ok {
		m, err := reg.BindInputMethodManager(g)
		if err != nil {
			return inputmethod.Bootstrap{}, err
		}
		b.InputMethodManager = m
	}
	if g, ok := reg.Find(VirtualKeyboardManagerInterface); ok {
		m, err := reg.BindVirtualKeyboardManager(g)
		if err != nil {
			return inputmethod.Bootstrap{}, err
		}
		b.VirtualKeyboardManager = m
	}

	c.log.Info("bootstrap complete",
		"seat_version", seat.Version(),
		"input_method", b.InputMethodManager != nil,
		"virtual_keyboard", b.VirtualKeyboardManager != nil,
	)
	return b, nil
}
