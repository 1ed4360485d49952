package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"dwinhmi/internal/dwin"
	"dwinhmi/internal/hmi"
	"dwinhmi/internal/termview"
)

// teeRenderer draws every primitive to each renderer in order.
type teeRenderer []hmi.Renderer

func (t teeRenderer) Clear(bg hmi.Color) {
	for _, r := range t {
		r.Clear(bg)
	}
}

func (t teeRenderer) Rect(fill bool, c hmi.Color, rect hmi.Rect) {
	for _, r := range t {
		r.Rect(fill, c, rect)
	}
}

func (t teeRenderer) Line(c hmi.Color, x0, y0, x1, y1 int) {
	for _, r := range t {
		r.Line(c, x0, y0, x1, y1)
	}
}

func (t teeRenderer) Text(f hmi.Font, fg, bg hmi.Color, x, y int, s string) {
	for _, r := range t {
		r.Text(f, fg, bg, x, y, s)
	}
}

func (t teeRenderer) Number(f hmi.Font, fg, bg hmi.Color, x, y int, value int64, digits, frac int) {
	for _, r := range t {
		r.Number(f, fg, bg, x, y, value, digits, frac)
	}
}

func (t teeRenderer) Icon(lib, id uint8, x, y int) {
	for _, r := range t {
		r.Icon(lib, id, x, y)
	}
}

func (t teeRenderer) Scroll(dir hmi.ScrollDir, dist int, bg hmi.Color, rect hmi.Rect) {
	for _, r := range t {
		r.Scroll(dir, dist, bg, rect)
	}
}

func (t teeRenderer) Update() {
	for _, r := range t {
		r.Update()
	}
}

// openDisplay returns the renderer for the configured backend. The mirror
// canvas always receives a copy so the web API can show the screen.
func openDisplay(cfg DisplayConfig, mirror *termview.Canvas, logger *slog.Logger) (hmi.Renderer, io.Closer, error) {
	if cfg.Backend == "none" {
		logger.Info("display disabled; rendering to mirror only")
		return mirror, nil, nil
	}

	port, err := dwin.OpenPort(cfg.Device, cfg.Baud)
	if err != nil {
		return nil, nil, fmt.Errorf("open display: %w", err)
	}

	wait := time.Duration(handshakeWaitMS) * time.Millisecond
	if err := dwin.Handshake(port, handshakeAttempts, wait); err != nil {
		// Some panels never answer the handshake but still draw.
		logger.Warn("display handshake failed; continuing", "device", cfg.Device, "error", err)
	} else {
		logger.Info("display connected", "device", cfg.Device, "baud", cfg.Baud)
	}

	panel := dwin.NewRenderer(port, dwin.Options{Logger: logger})
	return teeRenderer{panel, mirror}, port, nil
}
