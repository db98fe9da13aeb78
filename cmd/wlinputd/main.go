// wlinputd binds the Wayland input method and virtual keyboard and exposes
// them on D-Bus as org.wlinput.InputMethod1, so that on-screen keyboards,
// dictation tools and scripts can send text without speaking Wayland.
//
// Compositor events (activate, surrounding text, content type, ...) are
// re-emitted as signals of the same interface.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/pentamassiv/wayland-input/internal/client"
	"github.com/pentamassiv/wayland-input/internal/config"
	"github.com/pentamassiv/wayland-input/internal/dbusapi"
	"github.com/pentamassiv/wayland-input/internal/logging"
	"github.com/pentamassiv/wayland-input/internal/metrics"
	"github.com/pentamassiv/wayland-input/pkg/inputmethod"
)

var (
	configPath  = flag.String("config", "", "path to config file")
	metricsAddr = flag.String("metrics-addr", "", "serve metrics over HTTP on this address (e.g. 127.0.0.1:9464)")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wlinputd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}
	loader := config.NewLoader(path)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	defer loader.Close()

	if !cfg.DBus.Enabled {
		return errors.New("dbus is disabled in the configuration")
	}

	logCfg, err := cfg.LoggerConfig("wlinputd")
	if err != nil {
		return err
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer logger.Close()
	logging.SetDefault(logger)
	log := logger.Logger

	crash := &logging.CrashHandler{
		Dir:       logging.DefaultCrashDir(),
		Component: "wlinputd",
		Log:       log,
	}
	defer crash.Recover()

	conn, err := connectBus(cfg.DBus.Bus)
	if err != nil {
		return fmt.Errorf("connect to %s bus: %w", cfg.DBus.Bus, err)
	}
	defer conn.Close()

	reply, err := conn.RequestName(cfg.DBus.BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", cfg.DBus.BusName)
	}
	defer conn.ReleaseName(cfg.DBus.BusName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	objPath := dbus.ObjectPath(cfg.DBus.ObjectPath)
	tracker := inputmethod.NewStateTracker(dbusapi.NewSignalConnector(conn, objPath, log))
	c, err := client.Connect(ctx, cfg, tracker, log)
	if err != nil {
		return err
	}
	defer c.Close()

	svc := c.Service()
	m := metrics.NewServiceMetrics(nil)
	obj := dbusapi.New(dbusapi.Options{
		Backend: svc,
		Sync:    c.Sync,
		State:   tracker.State,
		Metrics: m,
		Logger:  log,
	})
	if err := dbusapi.Export(conn, obj, objPath); err != nil {
		return err
	}

	log.Info("wlinputd started",
		"bus", cfg.DBus.Bus,
		"name", cfg.DBus.BusName,
		"path", objPath,
		"input_method", svc.HasInputMethod(),
		"virtual_keyboard", svc.HasVirtualKeyboard(),
	)

	if *metricsAddr != "" {
		srv := &http.Server{
			Addr:              *metricsAddr,
			Handler:           m.Registry().HTTPHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			defer crash.Recover()
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", "addr", *metricsAddr, "error", err)
			}
		}()
		defer srv.Close()
		log.Info("serving metrics", "addr", *metricsAddr)
	}

	applyConfig := func(next *config.Config) {
		level, err := logging.ParseLevel(next.Logging.Level)
		if err != nil {
			log.Warn("ignoring log level", "level", next.Logging.Level, "error", err)
			return
		}
		if level != logger.GetLevel() {
			logger.SetLevel(level)
			log.Info("log level changed", "level", logging.LevelString(level))
		}
	}
	loader.OnChange(applyConfig)
	if err := loader.Watch(); err != nil {
		log.Warn("config watch unavailable", "path", loader.Path(), "error", err)
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-loader.Errors():
				log.Warn("config reload failed", "path", loader.Path(), "error", err)
			}
		}
	}()

	syncErr := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				crash.HandlePanic(r)
				syncErr <- fmt.Errorf("sync loop panicked: %v", r)
			}
		}()
		syncErr <- dbusapi.RunSync(ctx, obj, cfg.SyncInterval())
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				next, err := config.Load(loader.Path())
				if err != nil {
					log.Warn("config reload failed", "path", loader.Path(), "error", err)
					continue
				}
				applyConfig(next)
				continue
			}
			log.Info("shutting down", "signal", sig.String())
			cancel()
			<-syncErr
			return nil

		case err := <-syncErr:
			if err == nil {
				return nil
			}
			log.Error("lost compositor connection", "error", err)
			return err
		}
	}
}

func connectBus(bus string) (*dbus.Conn, error) {
	if bus == "system" {
		return dbus.ConnectSystemBus()
	}
	return dbus.ConnectSessionBus()
}
