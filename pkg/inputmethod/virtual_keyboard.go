package inputmethod

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pentamassiv/wayland-input/internal/keymap"
)

// KeymapPublisher turns keymap bytes into a descriptor the compositor can map.
type KeymapPublisher interface {
	Publish(b []byte) (*keymap.Descriptor, error)
}

// VirtualKeyboardSession emits key and modifier events through a
// zwp_virtual_keyboard_v1 object. The keymap is published once, when the
// session is created.
type VirtualKeyboardSession struct {
	mu    sync.Mutex
	vk    RemoteVirtualKeyboard
	clock *TimeSource
	log   *slog.Logger
}

// VirtualKeyboardOptions configures NewVirtualKeyboardSession. Zero fields
// fall back to the default keymap, a memfd publisher, a clock starting now
// and slog.Default.
type VirtualKeyboardOptions struct {
	Keymap    []byte
	Publisher KeymapPublisher
	Clock     *TimeSource
	Logger    *slog.Logger
}

// NewVirtualKeyboardSession publishes the keymap and creates the virtual
// keyboard on seat. It fails with ErrAllocationFailed when the keymap
// cannot be published; no remote object is created in that case.
func NewVirtualKeyboardSession(mgr VirtualKeyboardManager, seat Seat, opts VirtualKeyboardOptions) (*VirtualKeyboardSession, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Keymap == nil {
		opts.Keymap = keymap.Default()
	}
	if opts.Publisher == nil {
		opts.Publisher = keymap.NewPublisher()
	}
	if opts.Clock == nil {
		opts.Clock = NewTimeSource(nil)
	}

	desc, err := opts.Publisher.Publish(opts.Keymap)
	if err != nil {
		return nil, fmt.Errorf("publish keymap: %w", err)
	}

	vk, err := mgr.CreateVirtualKeyboard(seat)
	if err != nil {
		desc.Close()
		return nil, fmt.Errorf("create virtual keyboard: %w", err)
	}
	if err := vk.Keymap(keymap.FormatXKBV1, desc.File, desc.Size); err != nil {
		vk.Destroy()
		return nil, fmt.Errorf("send keymap: %w", err)
	}
	opts.Logger.Debug("virtual keyboard session created", "keymap_bytes", desc.Size)

	return &VirtualKeyboardSession{
		vk:    vk,
		clock: opts.Clock,
		log:   opts.Logger,
	}, nil
}

// SendKey emits one key state change stamped with the session clock.
// keycode is a Linux evdev code. Repeated presses are passed through.
func (s *VirtualKeyboardSession) SendKey(keycode uint32, state KeyState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendKey(keycode, state)
}

func (s *VirtualKeyboardSession) sendKey(keycode uint32, state KeyState) error {
	if !s.vk.Alive() {
		return ErrNotAlive
	}
	ts := s.clock.ElapsedMS()
	s.log.Debug("key", "time", ts, "keycode", keycode, "state", state)
	if err := s.vk.Key(ts, keycode, uint32(state)); err != nil {
		return notAlive(err)
	}
	return nil
}

// Modifiers sets the modifier state. The masks follow the published keymap
// and are passed through unchanged.
func (s *VirtualKeyboardSession) Modifiers(depressed, latched, locked, group uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modifiers(depressed, latched, locked, group)
}

func (s *VirtualKeyboardSession) modifiers(depressed, latched, locked, group uint32) error {
	if !s.vk.Alive() {
		return ErrNotAlive
	}
	s.log.Debug("modifiers", "depressed", depressed, "latched", latched, "locked", locked, "group", group)
	if err := s.vk.Modifiers(depressed, latched, locked, group); err != nil {
		return notAlive(err)
	}
	return nil
}

// PressKey sends a press followed by a release of keycode.
func (s *VirtualKeyboardSession) PressKey(keycode uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sendKey(keycode, Pressed); err != nil {
		return err
	}
	return s.sendKey(keycode, Released)
}

// TypeString types text key by key using the US layout of the default
// keymap, holding shift where needed. It stops at the first character that
// has no key.
func (s *VirtualKeyboardSession) TypeString(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	shifted := false
	defer func() {
		if !shifted {
			return
		}
		// Release shift even when a key failed mid-character.
		if rerr := s.modifiers(0, 0, 0, 0); rerr != nil {
			s.log.Debug("release shift", "error", rerr)
		}
	}()

	for _, r := range text {
		k, ok := lookupRune(r)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnmappedRune, r)
		}
		if k.shift {
			if err := s.modifiers(ModShift, 0, 0, 0); err != nil {
				return err
			}
			shifted = true
		}
		if err := s.sendKey(k.code, Pressed); err != nil {
			return err
		}
		if err := s.sendKey(k.code, Released); err != nil {
			return err
		}
		if k.shift {
			shifted = false
			if err := s.modifiers(0, 0, 0, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

// Alive reports whether the remote keyboard is still usable.
func (s *VirtualKeyboardSession) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vk.Alive()
}

// Close destroys the remote keyboard.
func (s *VirtualKeyboardSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.vk.Alive() {
		return nil
	}
	return s.vk.Destroy()
}
