package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"dwinhmi/internal/hmi"
	"dwinhmi/internal/simprinter"
)

var errNoTerminal = errors.New("dwinsim needs an interactive terminal")

func main() {
	var (
		updateHz = flag.Int("update-hz", 50, "Controller tick rate (Hz)")
		speed    = flag.Float64("speed", 1, "Simulation speed multiplier for heating and printing")
		noCard   = flag.Bool("no-card", false, "Start with the card removed")
		logFile  = flag.String("log", "", "Write logs to this file (default: discard)")
		logLevel = flag.String("log-level", "debug", "Log level: error|warn|info|debug")
	)
	flag.Parse()

	if err := run(*updateHz, *speed, *noCard, *logFile, *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(updateHz int, speed float64, noCard bool, logFile, logLevel string) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return errNoTerminal
	}
	if updateHz <= 0 || updateHz > 1000 {
		return fmt.Errorf("update-hz must be between 1 and 1000")
	}
	if speed <= 0 {
		return fmt.Errorf("speed must be > 0")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid log level: %s", logLevel)
	}

	var w io.Writer = io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		w = f
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))

	sim := simprinter.DefaultConfig()
	sim.HotendRate *= speed
	sim.BedRate *= speed
	sim.CoolRate *= speed
	sim.JobRate *= speed
	sim.HomeTime = time.Duration(float64(sim.HomeTime) / speed)
	sim.LevelTime = time.Duration(float64(sim.LevelTime) / speed)
	sim.Mounted = !noCard

	m, err := newModel(options{
		hmi:      hmi.DefaultConfig(),
		sim:      sim,
		interval: time.Second / time.Duration(updateHz),
		logger:   logger,
	})
	if err != nil {
		return err
	}

	logger.Info("simulator starting", "update_hz", updateHz, "speed", speed)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}
