// Package client wires configuration, the Wayland connection and the
// input method service together for the wlinput programs.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pentamassiv/wayland-input/internal/config"
	"github.com/pentamassiv/wayland-input/internal/keymap"
	"github.com/pentamassiv/wayland-input/pkg/inputmethod"
	"github.com/pentamassiv/wayland-input/pkg/wayland"
)

// ErrNotConnected is returned after Close.
var ErrNotConnected = errors.New("not connected to compositor")

// Client owns a compositor connection and the Service built on it.
type Client struct {
	svc    *inputmethod.Service
	closer io.Closer
	cfg    *config.Config
	log    *slog.Logger
	sleep  func(time.Duration)
}

// Connect dials the compositor named by cfg.Display, discovers globals and
// creates the sessions cfg enables. connector may be nil.
func Connect(ctx context.Context, cfg *config.Config, connector inputmethod.Connector, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}

	dialCfg := wayland.DefaultDialConfig()
	dialCfg.Display = cfg.Display.Name
	dialCfg.RuntimeDir = cfg.Display.RuntimeDir
	dialCfg.Logger = log.With("component", "wayland")

	conn, err := wayland.Dial(ctx, dialCfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	bctx := ctx
	if timeout := cfg.RoundtripTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		bctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	b, err := conn.Bootstrap(bctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	c, err := New(b, conn, cfg, connector, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// New builds a Client on an already discovered bootstrap. closer is
// closed by Close after the sessions are destroyed; it may be nil.
func New(b inputmethod.Bootstrap, closer io.Closer, cfg *config.Config, connector inputmethod.Connector, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	if !cfg.InputMethod.Enabled {
		b.InputMethodManager = nil
	}
	if !cfg.VirtualKeyboard.Enabled {
		b.VirtualKeyboardManager = nil
	}

	opts := []inputmethod.Option{inputmethod.WithLogger(log)}
	if b.VirtualKeyboardManager != nil {
		km, err := keymap.Load(cfg.VirtualKeyboard.KeymapPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, inputmethod.WithKeymap(km))
	}

	svc, err := inputmethod.NewService(b, connector, opts...)
	if err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	return &Client{
		svc:    svc,
		closer: closer,
		cfg:    cfg,
		log:    log,
		sleep:  time.Sleep,
	}, nil
}

// Service returns the facade, or nil after Close.
func (c *Client) Service() *inputmethod.Service {
	return c.svc
}

// Sync runs one event queue round trip bounded by the configured timeout.
func (c *Client) Sync(ctx context.Context) error {
	if c.svc == nil {
		return ErrNotConnected
	}
	if timeout := c.cfg.RoundtripTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.svc.SyncEventQueue(ctx)
}

// TypeString types text through the virtual keyboard. With a type delay
// configured every character is flushed on its own and followed by the
// delay.
func (c *Client) TypeString(ctx context.Context, text string) error {
	if c.svc == nil {
		return ErrNotConnected
	}
	delay := c.cfg.TypeDelay()
	if delay <= 0 {
		return c.svc.TypeString(text)
	}
	for _, r := range text {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.svc.TypeString(string(r)); err != nil {
			return err
		}
		if err := c.Sync(ctx); err != nil {
			return err
		}
		c.sleep(delay)
	}
	return nil
}

// Close destroys the sessions, flushes the destroy requests and closes the
// connection.
func (c *Client) Close() error {
	if c.svc == nil {
		return nil
	}
	errs := []error{c.svc.Close()}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.svc.SyncEventQueue(ctx); err != nil {
		c.log.Debug("final sync failed", "error", err)
	}
	if c.closer != nil {
		errs = append(errs, c.closer.Close())
	}
	c.svc = nil
	return errors.Join(errs...)
}
