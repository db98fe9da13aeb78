// wlinput sends text, deletions and key events to the focused Wayland
// client through the input method and virtual keyboard protocols.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pentamassiv/wayland-input/internal/client"
	"github.com/pentamassiv/wayland-input/internal/config"
	"github.com/pentamassiv/wayland-input/internal/logging"
	"github.com/pentamassiv/wayland-input/pkg/inputmethod"
)

var (
	configPath = flag.String("config", "", "path to config file")
	display    = flag.String("display", "", "Wayland display name or socket path")
	logLevel   = flag.String("log-level", "", "log level (debug, info, warn, error)")
	keymapPath = flag.String("keymap", "", "xkb_v1 keymap file for the virtual keyboard")
	delayMs    = flag.Int("delay", 0, "milliseconds between typed characters")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	if cmd == "help" {
		usage()
		return
	}
	run, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(2)
	}

	cfg := loadConfig()
	logger := setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := execute(ctx, cfg, logger.Logger, run, args)
	stop()
	logger.Close()
	if err != nil {
		fatal(err)
	}
}

var connect = client.Connect

// execute runs one command on a fresh connection. The connection is closed
// before execute returns, whatever the outcome.
func execute(ctx context.Context, cfg *config.Config, log *slog.Logger, run command, args []string) error {
	tracker := inputmethod.NewStateTracker(nil)
	c, err := connect(ctx, cfg, tracker, log)
	if err != nil {
		return err
	}
	defer c.Close()

	// Receive activation and surrounding text before acting.
	if err := c.Sync(ctx); err != nil {
		return err
	}
	if err := run(ctx, c, tracker, args); err != nil {
		return err
	}
	return c.Sync(ctx)
}

func usage() {
	fmt.Fprintln(os.Stderr, `wlinput - Wayland input method and virtual keyboard client

Usage: wlinput [options] <command> [args]

Commands:
  commit <text>                      Commit text through the input method
  type <text>                        Type text key by key (US layout)
  delete <before> [after]            Delete characters around the cursor
  key <char|name|code>...            Press and release keys (e.g. y, enter, 21)
                                     A single character is a key, not an evdev code
  modifiers <depressed> [latched locked group]
                                     Set the modifier state (masks or shift,ctrl,alt,logo,caps)
  status                             Show which protocols the compositor offers
  help                               Show this help message

Options:`)
	flag.PrintDefaults()
}

func loadConfig() *config.Config {
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	flags := &config.Config{}
	flags.Display.Name = *display
	flags.Logging.Level = *logLevel
	flags.VirtualKeyboard.KeymapPath = *keymapPath
	flags.VirtualKeyboard.TypeDelayMs = *delayMs
	cfg = config.Merge(cfg, flags)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging(cfg *config.Config) *logging.Logger {
	lc, err := cfg.LoggerConfig("wlinput")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid logging configuration: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(lc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not initialize logging: %v\n", err)
		logger = logging.Default()
	}
	logging.SetDefault(logger)
	return logger
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "wlinput: %v\n", err)
	switch {
	case errors.Is(err, inputmethod.ErrIMNotAvailable):
		fmt.Fprintln(os.Stderr, "The compositor does not support zwp_input_method_v2.")
	case errors.Is(err, inputmethod.ErrVKNotAvailable):
		fmt.Fprintln(os.Stderr, "The compositor does not support zwp_virtual_keyboard_v1.")
	}
	os.Exit(1)
}

type command func(ctx context.Context, c *client.Client, tracker *inputmethod.StateTracker, args []string) error

var commands = map[string]command{
	"commit":    cmdCommit,
	"type":      cmdType,
	"delete":    cmdDelete,
	"key":       cmdKey,
	"modifiers": cmdModifiers,
	"status":    cmdStatus,
}

func cmdCommit(_ context.Context, c *client.Client, _ *inputmethod.StateTracker, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: wlinput commit <text>")
	}
	svc := c.Service()
	if err := svc.CommitString(strings.Join(args, " ")); err != nil {
		return err
	}
	return svc.Commit()
}

func cmdType(ctx context.Context, c *client.Client, _ *inputmethod.StateTracker, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: wlinput type <text>")
	}
	return c.TypeString(ctx, strings.Join(args, " "))
}

func cmdDelete(_ context.Context, c *client.Client, _ *inputmethod.StateTracker, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: wlinput delete <before> [after]")
	}
	before, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid count %q: %w", args[0], err)
	}
	var after uint64
	if len(args) == 2 {
		if after, err = strconv.ParseUint(args[1], 10, 32); err != nil {
			return fmt.Errorf("invalid count %q: %w", args[1], err)
		}
	}
	svc := c.Service()
	if err := svc.DeleteSurroundingText(uint32(before), uint32(after)); err != nil {
		return err
	}
	return svc.Commit()
}

func cmdKey(_ context.Context, c *client.Client, _ *inputmethod.StateTracker, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: wlinput key <name|code>...")
	}
	codes := make([]uint32, 0, len(args))
	for _, a := range args {
		code, err := parseKey(a)
		if err != nil {
			return err
		}
		codes = append(codes, code)
	}
	for _, code := range codes {
		if err := c.Service().PressKey(code); err != nil {
			return err
		}
	}
	return nil
}

func cmdModifiers(_ context.Context, c *client.Client, _ *inputmethod.StateTracker, args []string) error {
	if len(args) < 1 || len(args) > 4 {
		return errors.New("usage: wlinput modifiers <depressed> [latched locked group]")
	}
	var masks [4]uint32
	for i, a := range args {
		m, err := parseModifiers(a)
		if err != nil {
			return err
		}
		masks[i] = m
	}
	return c.Service().Modifiers(masks[0], masks[1], masks[2], masks[3])
}

func cmdStatus(ctx context.Context, c *client.Client, tracker *inputmethod.StateTracker, _ []string) error {
	svc := c.Service()
	fmt.Println("=== wlinput Status ===")
	fmt.Printf("Input method:     %s\n", availability(svc.HasInputMethod()))
	fmt.Printf("Virtual keyboard: %s\n", availability(svc.HasVirtualKeyboard()))
	if !svc.HasInputMethod() {
		return nil
	}

	st := tracker.State()
	fmt.Println()
	fmt.Printf("Session:          %s (serial %d)\n", svc.InputMethod().State(), svc.InputMethod().Serial())
	fmt.Printf("Text input:       %s\n", map[bool]string{true: "active", false: "inactive"}[st.Active])
	if st.Active {
		fmt.Printf("Surrounding text: %q (cursor %d, anchor %d)\n", st.Text, st.Cursor, st.Anchor)
		fmt.Printf("Content purpose:  %s\n", st.Purpose)
		fmt.Printf("Change cause:     %s\n", st.Cause)
	}
	return nil
}

func availability(ok bool) string {
	if ok {
		return "available"
	}
	return "not offered by compositor"
}
