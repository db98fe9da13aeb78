package main

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/pentamassiv/wayland-input/internal/client"
	"github.com/pentamassiv/wayland-input/internal/config"
	"github.com/pentamassiv/wayland-input/pkg/inputmethod"
)

type testSeat struct{}

func (testSeat) ID() uint32 { return 1 }

type testTransport struct {
	err   error
	trips int
}

func (t *testTransport) Roundtrip(context.Context, func(inputmethod.UnhandledEvent)) error {
	t.trips++
	return t.err
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// connectWith replaces connect for one test with a client on transport.
func connectWith(t *testing.T, transport *testTransport, closed *bool) {
	t.Helper()
	orig := connect
	t.Cleanup(func() { connect = orig })
	connect = func(_ context.Context, cfg *config.Config, conn inputmethod.Connector, log *slog.Logger) (*client.Client, error) {
		b := inputmethod.Bootstrap{Transport: transport, Seat: testSeat{}}
		return client.New(b, closerFunc(func() error { *closed = true; return nil }), cfg, conn, log)
	}
}

func TestExecuteClosesOnFirstSyncFailure(t *testing.T) {
	lost := errors.New("connection lost")
	transport := &testTransport{err: lost}
	var closed, ran bool
	connectWith(t, transport, &closed)

	run := func(context.Context, *client.Client, *inputmethod.StateTracker, []string) error {
		ran = true
		return nil
	}
	err := execute(context.Background(), config.DefaultConfig(), slog.Default(), run, nil)
	if !errors.Is(err, lost) {
		t.Fatalf("execute error = %v, want %v", err, lost)
	}
	if ran {
		t.Error("command ran after failed sync")
	}
	if !closed {
		t.Error("connection not closed")
	}
}

func TestExecuteClosesOnCommandFailure(t *testing.T) {
	transport := &testTransport{}
	var closed bool
	connectWith(t, transport, &closed)

	boom := errors.New("boom")
	run := func(context.Context, *client.Client, *inputmethod.StateTracker, []string) error {
		return boom
	}
	err := execute(context.Background(), config.DefaultConfig(), slog.Default(), run, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("execute error = %v, want %v", err, boom)
	}
	if !closed {
		t.Error("connection not closed")
	}
}

func TestExecuteSuccess(t *testing.T) {
	transport := &testTransport{}
	var closed bool
	connectWith(t, transport, &closed)

	err := execute(context.Background(), config.DefaultConfig(), slog.Default(), cmdStatus, nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !closed {
		t.Error("connection not closed")
	}
	// before, after, and the final sync inside Close
	if transport.trips != 3 {
		t.Errorf("round trips = %d, want 3", transport.trips)
	}
}
