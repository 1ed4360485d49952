package dwin

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"dwinhmi/internal/hmi"
)

// ErrNoHandshake is returned when the display never answers the handshake.
var ErrNoHandshake = errors.New("dwin: no handshake reply")

var handshakeReply = []byte{frameHeader, cmdHandshake, 'O', 'K'}

// Renderer implements hmi.Renderer over a byte stream to the display.
//
// Drawing calls never return errors. A failed write is logged once; later
// failures stay quiet until a write succeeds again.
type Renderer struct {
	mu      sync.Mutex
	w       io.Writer
	text    TextEncoder
	logger  *slog.Logger
	failing bool
	frames  uint64
}

// Options tune a Renderer.
type Options struct {
	// Text encodes labels. Defaults to GBK.
	Text   TextEncoder
	Logger *slog.Logger
}

// NewRenderer writes frames to w.
func NewRenderer(w io.Writer, opts Options) *Renderer {
	if opts.Text == nil {
		opts.Text = NewGBK()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Renderer{w: w, text: opts.Text, logger: opts.Logger}
}

// Frames returns how many frames were written successfully.
func (r *Renderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

func (r *Renderer) send(frame []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.w.Write(frame); err != nil {
		if !r.failing {
			r.logger.Warn("display write failed", "error", err)
			r.failing = true
		}
		return
	}
	if r.failing {
		r.logger.Info("display write recovered")
		r.failing = false
	}
	r.frames++
}

func (r *Renderer) Clear(bg hmi.Color) { r.send(clearFrame(bg)) }
func (r *Renderer) Update()            { r.send(updateFrame()) }

func (r *Renderer) Rect(fill bool, c hmi.Color, rect hmi.Rect) {
	r.send(rectFrameBytes(fill, c, rect))
}

func (r *Renderer) Line(c hmi.Color, x0, y0, x1, y1 int) {
	r.send(lineFrame(c, x0, y0, x1, y1))
}

func (r *Renderer) Text(f hmi.Font, fg, bg hmi.Color, x, y int, s string) {
	r.send(stringFrame(f, fg, bg, x, y, r.text.Encode(s)))
}

// Number draws negative values as a '-' glyph followed by the magnitude.
func (r *Renderer) Number(f hmi.Font, fg, bg hmi.Color, x, y int, value int64, digits, frac int) {
	if value < 0 {
		r.send(stringFrame(f, fg, bg, x, y, []byte{'-'}))
		x += GlyphWidth(f)
		value = -value
	}
	r.send(numberFrame(f, fg, bg, x, y, uint64(value), digits, frac))
}

func (r *Renderer) Icon(lib, id uint8, x, y int) {
	r.send(iconFrame(lib, id, x, y))
}

func (r *Renderer) Scroll(dir hmi.ScrollDir, dist int, bg hmi.Color, rect hmi.Rect) {
	r.send(areaMoveFrame(dir, dist, bg, rect))
}

// Backlight sets the panel brightness (0x1F..0xFF).
func (r *Renderer) Backlight(level uint8) {
	r.send(backlightFrame(level))
}

// GlyphWidth returns the advance of one character in font f.
func GlyphWidth(f hmi.Font) int {
	return 6 + 2*int(f)
}

// Handshake pings the display until it answers or attempts run out. Reads
// on rw are expected to time out (return 0 bytes) rather than block forever.
func Handshake(rw io.ReadWriter, attempts int, wait time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	buf := make([]byte, 64)
	for i := 0; i < attempts; i++ {
		if _, err := rw.Write(handshakeFrame()); err != nil {
			return fmt.Errorf("dwin: write handshake: %w", err)
		}

		var got []byte
		deadline := time.Now().Add(wait)
		for time.Now().Before(deadline) {
			n, err := rw.Read(buf)
			if n > 0 {
				got = append(got, buf[:n]...)
				if bytes.Contains(got, handshakeReply) {
					return nil
				}
			}
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("dwin: read handshake: %w", err)
			}
			if n == 0 {
				time.Sleep(10 * time.Millisecond)
			}
		}
	}
	return ErrNoHandshake
}
