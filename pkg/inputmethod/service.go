package inputmethod

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	log       *slog.Logger
	keymap    []byte
	publisher KeymapPublisher
	clock     *TimeSource
}

// WithLogger sets the logger used by the service and its sessions.
func WithLogger(l *slog.Logger) Option {
	return func(o *serviceOptions) { o.log = l }
}

// WithKeymap replaces the built-in keymap. b must be an XKB v1 text keymap,
// NUL terminated.
func WithKeymap(b []byte) Option {
	return func(o *serviceOptions) { o.keymap = b }
}

// WithPublisher sets how the keymap is shared with the compositor.
func WithPublisher(p KeymapPublisher) Option {
	return func(o *serviceOptions) { o.publisher = p }
}

// WithClock sets the time source for key event timestamps.
func WithClock(c *TimeSource) Option {
	return func(o *serviceOptions) { o.clock = c }
}

// Service is the single entry point for callers. It owns up to one input
// method session and up to one virtual keyboard session; either can be
// absent when the compositor lacks the protocol.
type Service struct {
	transport Roundtripper
	im        *InputMethodSession
	vk        *VirtualKeyboardSession
	log       *slog.Logger
}

// NewService creates the sessions the bootstrap supports. A missing manager
// is not an error; the corresponding requests fail with ErrIMNotAvailable or
// ErrVKNotAvailable instead.
func NewService(b Bootstrap, connector Connector, opts ...Option) (*Service, error) {
	o := serviceOptions{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.Default()
	}

	s := &Service{transport: b.Transport, log: o.log}

	if b.InputMethodManager != nil {
		im, err := NewInputMethodSession(b.InputMethodManager, b.Seat, connector, o.log)
		if err != nil {
			return nil, err
		}
		s.im = im
	} else {
		o.log.Info("compositor does not offer zwp_input_method_manager_v2")
	}

	if b.VirtualKeyboardManager != nil {
		vk, err := NewVirtualKeyboardSession(b.VirtualKeyboardManager, b.Seat, VirtualKeyboardOptions{
			Keymap:    o.keymap,
			Publisher: o.publisher,
			Clock:     o.clock,
			Logger:    o.log,
		})
		if err != nil {
			if s.im != nil {
				s.im.MakeUnavailable()
			}
			return nil, err
		}
		s.vk = vk
	} else {
		o.log.Info("compositor does not offer zwp_virtual_keyboard_manager_v1")
	}

	return s, nil
}

// HasInputMethod reports whether an input method session exists.
func (s *Service) HasInputMethod() bool { return s.im != nil }

// HasVirtualKeyboard reports whether a virtual keyboard session exists.
func (s *Service) HasVirtualKeyboard() bool { return s.vk != nil }

// InputMethod returns the input method session, or nil.
func (s *Service) InputMethod() *InputMethodSession { return s.im }

// VirtualKeyboard returns the virtual keyboard session, or nil.
func (s *Service) VirtualKeyboard() *VirtualKeyboardSession { return s.vk }

func (s *Service) CommitString(text string) error {
	if s.im == nil {
		return ErrIMNotAvailable
	}
	return s.im.CommitString(text)
}

func (s *Service) DeleteSurroundingText(before, after uint32) error {
	if s.im == nil {
		return ErrIMNotAvailable
	}
	return s.im.DeleteSurroundingText(before, after)
}

func (s *Service) Commit() error {
	if s.im == nil {
		return ErrIMNotAvailable
	}
	return s.im.Commit()
}

// MakeUnavailable tears the input method down. Later input method requests
// fail with ErrNotAlive.
func (s *Service) MakeUnavailable() error {
	if s.im == nil {
		return ErrIMNotAvailable
	}
	s.im.MakeUnavailable()
	return nil
}

func (s *Service) SendKey(keycode uint32, state KeyState) error {
	if s.vk == nil {
		return ErrVKNotAvailable
	}
	return s.vk.SendKey(keycode, state)
}

func (s *Service) Modifiers(depressed, latched, locked, group uint32) error {
	if s.vk == nil {
		return ErrVKNotAvailable
	}
	return s.vk.Modifiers(depressed, latched, locked, group)
}

func (s *Service) PressKey(keycode uint32) error {
	if s.vk == nil {
		return ErrVKNotAvailable
	}
	return s.vk.PressKey(keycode)
}

func (s *Service) TypeString(text string) error {
	if s.vk == nil {
		return ErrVKNotAvailable
	}
	return s.vk.TypeString(text)
}

// SyncEventQueue sends all queued requests and dispatches every event the
// compositor produced in response. Events nobody handles are logged.
func (s *Service) SyncEventQueue(ctx context.Context) error {
	if s.transport == nil {
		return errors.New("no transport")
	}
	err := s.transport.Roundtrip(ctx, func(ev UnhandledEvent) {
		s.log.Debug("unhandled event",
			"object", ev.Object,
			"interface", ev.Interface,
			"opcode", ev.Opcode,
		)
	})
	if err != nil {
		return fmt.Errorf("roundtrip: %w", err)
	}
	return nil
}

// Close destroys both sessions. The transport is left to its owner.
func (s *Service) Close() error {
	var errs []error
	if s.im != nil {
		s.im.MakeUnavailable()
	}
	if s.vk != nil {
		if err := s.vk.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close virtual keyboard: %w", err))
		}
	}
	return errors.Join(errs...)
}
