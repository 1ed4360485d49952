package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"dwinhmi/internal/buzzer"
	"dwinhmi/internal/hmi"
	"dwinhmi/internal/ipc"
	"dwinhmi/internal/moonraker"
	"dwinhmi/internal/simprinter"
	"dwinhmi/internal/store"
	"dwinhmi/internal/termview"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("dwinhmi v%s\n", version)
	fmt.Println("DWIN T5UID1 touchscreen controller for 3D printers")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  dwinhmi [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Drives a DWIN serial display from a rotary encoder. Menus, print")
	fmt.Println("  progress, filament runout and power-loss recovery run against either")
	fmt.Println("  a simulated printer or Klipper through Moonraker.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        YAML config file (default $DWINHMI_CONFIG, then /etc/dwinhmi/config.yaml if present)")
	fmt.Println()
	fmt.Println("  -encoder-device string      Single evdev node for the encoder")
	fmt.Println("  -display string             Display backend: dwin|none")
	fmt.Println("  -display-device string      Serial device for the display")
	fmt.Println("  -display-baud int           Serial baud rate")
	fmt.Println("  -printer string             Printer backend: sim|moonraker")
	fmt.Println("  -moonraker-url string       Moonraker websocket URL")
	fmt.Println("  -update-hz int              Controller tick rate")
	fmt.Println("  -settings-file string       Settings YAML path")
	fmt.Println("  -database string            SQLite database path")
	fmt.Println("  -buzzer                     Enable the buzzer")
	fmt.Println("  -ipc-socket string          Unix domain socket path for IPC")
	fmt.Println("  -web-port int               HTTP API port (0 disables)")
	fmt.Println("  -public-url string          URL shown on the info screen and QR code")
	fmt.Println("  -log-level string           error, warn, info, debug")
	fmt.Println()
	fmt.Println("  -version                    Print version and exit")
	fmt.Println("  -help                       Print this help message")
	fmt.Println()
	fmt.Println("ENVIRONMENT:")
	fmt.Println("  A .env file in the working directory is loaded first.")
	fmt.Println("  DWINHMI_CONFIG   default for -config")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Bench test without hardware")
	fmt.Println("  dwinhmi -display none -printer sim")
	fmt.Println()
	fmt.Println("  # Klipper host")
	fmt.Println("  dwinhmi -config /etc/dwinhmi/config.yaml -printer moonraker")
	fmt.Println()
}

func main() {
	_ = godotenv.Load()

	var (
		configPath     = flag.String("config", os.Getenv("DWINHMI_CONFIG"), "YAML config file")
		encoderDevice  = flag.String("encoder-device", "", "Single evdev node for the encoder")
		displayBackend = flag.String("display", "", "Display backend: dwin|none")
		displayDevice  = flag.String("display-device", "", "Serial device for the display")
		displayBaud    = flag.Int("display-baud", 0, "Serial baud rate")
		printerBackend = flag.String("printer", "", "Printer backend: sim|moonraker")
		moonrakerURL   = flag.String("moonraker-url", "", "Moonraker websocket URL")
		updateHz       = flag.Int("update-hz", 0, "Controller tick rate")
		settingsFile   = flag.String("settings-file", "", "Settings YAML path")
		database       = flag.String("database", "", "SQLite database path")
		buzzerEnabled  = flag.Bool("buzzer", false, "Enable the buzzer")
		ipcSocketPath  = flag.String("ipc-socket", "", "Unix domain socket path for IPC")
		webPort        = flag.Int("web-port", 0, "HTTP API port (0 disables)")
		publicURL      = flag.String("public-url", "", "URL shown on the info screen and QR code")
		logLevelStr    = flag.String("log-level", "", "Log level: error, warn, info, debug")
		showVersion    = flag.Bool("version", false, "Print version and exit")
		showHelp       = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	cfg := DefaultConfig()
	path := *configPath
	if path == "" {
		if _, err := os.Stat("/etc/dwinhmi/config.yaml"); err == nil {
			path = "/etc/dwinhmi/config.yaml"
		}
	}
	if path != "" {
		loaded, err := LoadConfigFile(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Only flags given on the command line override the file.
	var o FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "encoder-device":
			o.EncoderDevice = encoderDevice
		case "display":
			o.DisplayBackend = displayBackend
		case "display-device":
			o.DisplayDevice = displayDevice
		case "display-baud":
			o.DisplayBaud = displayBaud
		case "printer":
			o.PrinterBackend = printerBackend
		case "moonraker-url":
			o.MoonrakerWsURL = moonrakerURL
		case "update-hz":
			o.UpdateHz = updateHz
		case "settings-file":
			o.SettingsFile = settingsFile
		case "database":
			o.Database = database
		case "buzzer":
			o.BuzzerEnabled = buzzerEnabled
		case "ipc-socket":
			o.IPCSocketPath = ipcSocketPath
		case "web-port":
			o.WebPort = webPort
		case "public-url":
			o.PublicURL = publicURL
		case "log-level":
			o.LogLevel = logLevelStr
		}
	})
	o.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := setupLogger(logLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("dwinhmi stopped", "error", err)
		os.Exit(1)
	}
}

// run wires the components and blocks until a signal or a fatal error.
func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	// ------------------------------------------------------------------------
	// Display
	// ------------------------------------------------------------------------
	mirror := termview.New()
	renderer, displayCloser, err := openDisplay(cfg.Display, mirror, logger)
	if err != nil {
		return err
	}
	if displayCloser != nil {
		closers = append(closers, displayCloser)
	}

	// ------------------------------------------------------------------------
	// Persistence
	// ------------------------------------------------------------------------
	settings := store.NewSettingsFile(ExpandPath(cfg.Storage.SettingsFile), cfg.ToProfile().Defaults)

	dbPath := ExpandPath(cfg.Storage.Database)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create database dir: %w", err)
	}
	db, err := store.OpenDB(dbPath)
	if err != nil {
		return err
	}
	closers = append(closers, db)

	// ------------------------------------------------------------------------
	// Daemon state and printer backend
	// ------------------------------------------------------------------------
	events := make(chan ipc.Event, 64)
	d := &daemon{
		queue:  hmi.NewInputQueue(cfg.HMI.InputQueueLimit),
		logger: logger,
	}
	// Without the web API nobody consumes broadcasts.
	var broadcasts chan broadcast
	if cfg.Web.Port > 0 {
		broadcasts = make(chan broadcast, 64)
		d.broadcasts = broadcasts
	}

	g, ctx := errgroup.WithContext(ctx)

	var (
		media   hmi.Media
		machine hmi.Machine
		runout  hmi.RunoutSensor
		poller  *moonraker.Printer
	)
	switch cfg.Printer.Backend {
	case "moonraker":
		mc := cfg.Printer.Moonraker
		client, err := moonraker.Dial(mc.WsURL, logger, time.Duration(mc.TimeoutMS)*time.Millisecond, 0)
		if err != nil {
			return fmt.Errorf("connect to moonraker: %w", err)
		}
		closers = append(closers, client)
		p := moonraker.NewPrinter(client, cfg.ToMoonrakerConfig(), logger, d.notify)
		media, machine, runout = p, p, p
		poller = p
	default:
		p := simprinter.New(cfg.ToSimConfig(), logger, d.notify)
		d.sim = p
		media, machine, runout = p, p, p
	}

	var beeper hmi.Buzzer
	if cfg.Buzzer.Enabled {
		b, err := buzzer.New(logger)
		if err != nil {
			logger.Warn("buzzer unavailable", "error", err)
		} else {
			beeper = b
			g.Go(func() error { return b.Run(ctx) })
		}
	}

	ctrl, err := hmi.New(cfg.ToHMIConfig(), hmi.Deps{
		Renderer: renderer,
		Media:    media,
		Machine:  machine,
		Input:    d.queue,
		Settings: settings,
		Recovery: db,
		Runout:   runout,
		Buzzer:   beeper,
		History:  db,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	d.ctrl = ctrl

	// ------------------------------------------------------------------------
	// Goroutines
	// ------------------------------------------------------------------------
	g.Go(func() error { return runDaemon(ctx, events, d, cfg.HMI.UpdateHz) })
	if poller != nil {
		// Polling notifies the controller, so it starts only once d.ctrl is set.
		g.Go(func() error { return poller.Run(ctx) })
	}

	g.Go(func() error { return ipc.Serve(ctx, cfg.IPC.SocketPath, events, logger) })

	if cfg.Web.Port > 0 {
		state := NewStateServer(logger, events, HubConfig{})
		web := NewWebServer(events, state, db, mirror, cfg.Web.PublicURL, logger)
		window := time.Duration(cfg.HMI.BroadcastCoalesceMS) * time.Millisecond
		g.Go(func() error { state.Hub().Run(ctx); return nil })
		g.Go(func() error { RunBroadcaster(ctx, state.Hub(), broadcasts, window, logger); return nil })
		g.Go(func() error { return web.Run(ctx, cfg.Web.Port) })
	}

	if len(cfg.Encoder.Devices) > 0 {
		devs, err := openDevices(cfg.Encoder.Devices)
		if err != nil {
			logger.Error("failed to open input device", "error", err, "tip", "run as root or add user to 'input' group")
			return err
		}
		for _, dev := range devs {
			closers = append(closers, dev)
		}
		g.Go(func() error { return pumpInput(ctx, devs, d.queue, logger) })
	}

	logger.Info("listening",
		"display", cfg.Display.Backend,
		"printer", cfg.Printer.Backend,
		"encoder", cfg.Encoder.Devices,
		"ipc", cfg.IPC.SocketPath,
		"web_port", cfg.Web.Port,
		"update_rate_hz", cfg.HMI.UpdateHz)

	err = g.Wait()
	logger.Info("shutting down")
	return err
}

// pumpInput translates evdev events into queued encoder input until ctx is
// canceled or a reader fails.
func pumpInput(ctx context.Context, devs []*inputDevice, queue *hmi.InputQueue, logger *slog.Logger) error {
	events := make(chan inputEvent, 64)
	readErr := make(chan error, 1)
	if len(devs) == 1 {
		go watchDevice(devs[0], events, readErr)
	} else {
		go watchDevices(devs, events, readErr)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if ctx.Err() != nil || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return fmt.Errorf("input reader stopped: %w", err)
		case ev := <-events:
			in, n := translateEvent(ev)
			for i := 0; i < n; i++ {
				queue.Push(in)
			}
			if n > 0 {
				logger.Debug("encoder input", "input", in.String(), "count", n)
			}
		}
	}
}

// buildInfo returns the VCS revision baked in by the Go toolchain.
func buildInfo() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var rev, at string
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.time":
			at = s.Value
		}
	}
	if len(rev) > 8 {
		rev = rev[:8]
	}
	if rev == "" {
		return info.GoVersion
	}
	return rev + " " + at
}
