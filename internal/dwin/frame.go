// Package dwin drives a DWIN T5 serial display.
//
// Every command is one frame: a 0xAA header, a command byte, big-endian
// arguments and the CC 33 C3 3C tail.
package dwin

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"

	"dwinhmi/internal/hmi"
)

const (
	frameHeader = 0xAA

	cmdHandshake = 0x00
	cmdClear     = 0x01
	cmdLine      = 0x03
	cmdRect      = 0x05
	cmdAreaMove  = 0x09
	cmdString    = 0x11
	cmdNumber    = 0x14
	cmdIcon      = 0x23
	cmdBacklight = 0x30
	cmdUpdate    = 0x3D
)

// Rect modes.
const (
	rectFrame = 0x00
	rectFill  = 0x01
)

// maxTextBytes bounds the payload of one string frame (one 272px row of the
// smallest font, two bytes per glyph).
const maxTextBytes = 90

var frameTail = [...]byte{0xCC, 0x33, 0xC3, 0x3C}

// Frame accumulates one command.
type Frame struct {
	buf []byte
}

// NewFrame starts a frame for cmd.
func NewFrame(cmd byte) *Frame {
	f := &Frame{buf: make([]byte, 0, 32)}
	f.buf = append(f.buf, frameHeader, cmd)
	return f
}

func (f *Frame) u8(b byte) *Frame {
	f.buf = append(f.buf, b)
	return f
}

func (f *Frame) u16(v int) *Frame {
	f.buf = append(f.buf, byte(v>>8), byte(v))
	return f
}

func (f *Frame) u32(v uint32) *Frame {
	f.buf = append(f.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	return f
}

func (f *Frame) u64(v uint64) *Frame {
	for shift := 56; shift >= 0; shift -= 8 {
		f.buf = append(f.buf, byte(v>>shift))
	}
	return f
}

func (f *Frame) raw(b []byte) *Frame {
	f.buf = append(f.buf, b...)
	return f
}

func (f *Frame) rect(r hmi.Rect) *Frame {
	return f.u16(r.X0).u16(r.Y0).u16(r.X1).u16(r.Y1)
}

// Bytes terminates the frame and returns it.
func (f *Frame) Bytes() []byte {
	out := make([]byte, 0, len(f.buf)+len(frameTail))
	out = append(out, f.buf...)
	return append(out, frameTail[:]...)
}

// ============================================================================
// Command encoders
// ============================================================================

func handshakeFrame() []byte { return NewFrame(cmdHandshake).Bytes() }
func updateFrame() []byte    { return NewFrame(cmdUpdate).Bytes() }

func clearFrame(bg hmi.Color) []byte {
	return NewFrame(cmdClear).u16(int(bg)).Bytes()
}

func backlightFrame(level uint8) []byte {
	if level < 0x1F {
		level = 0x1F
	}
	return NewFrame(cmdBacklight).u8(level).Bytes()
}

func lineFrame(c hmi.Color, x0, y0, x1, y1 int) []byte {
	return NewFrame(cmdLine).u16(int(c)).u16(x0).u16(y0).u16(x1).u16(y1).Bytes()
}

func rectFrameBytes(fill bool, c hmi.Color, r hmi.Rect) []byte {
	mode := byte(rectFrame)
	if fill {
		mode = rectFill
	}
	return NewFrame(cmdRect).u8(mode).u16(int(c)).rect(r).Bytes()
}

// areaMoveFrame shifts r by dist pixels in translational mode, filling the
// exposed strip with bg.
func areaMoveFrame(dir hmi.ScrollDir, dist int, bg hmi.Color, r hmi.Rect) []byte {
	const translate = 1
	return NewFrame(cmdAreaMove).u8(translate<<7 | byte(dir)).u16(dist).u16(int(bg)).rect(r).Bytes()
}

// stringFrame draws text with a background fill. text is already encoded.
func stringFrame(f hmi.Font, fg, bg hmi.Color, x, y int, text []byte) []byte {
	const (
		widthAdjust = 0x80
		showBG      = 0x40
	)
	return NewFrame(cmdString).
		u8(widthAdjust | showBG | byte(f)).
		u16(int(fg)).u16(int(bg)).
		u16(x).u16(y).
		raw(text).
		Bytes()
}

// numberFrame draws a non-negative fixed-point value with digits integer
// places and frac decimals, zero-padded with spaces.
func numberFrame(f hmi.Font, fg, bg hmi.Color, x, y int, value uint64, digits, frac int) []byte {
	const (
		showBG   = 0x80
		zeroFill = 0x20 // pad to digits; zeroMode clear pads with spaces
	)
	flags := byte(showBG|zeroFill) | byte(f)

	fr := NewFrame(cmdNumber).u8(flags).u16(int(fg)).u16(int(bg)).u8(byte(digits)).u8(byte(frac)).u16(x).u16(y)
	if frac == 0 {
		fr.u64(value)
	} else {
		fr.u32(uint32(value))
	}
	return fr.Bytes()
}

func iconFrame(lib, id uint8, x, y int) []byte {
	return NewFrame(cmdIcon).u16(x).u16(y).u8(0x80 | lib).u8(id).Bytes()
}

// ============================================================================
// Text encoding
// ============================================================================

// TextEncoder converts UTF-8 labels to the display's font charset.
type TextEncoder interface {
	Encode(s string) []byte
}

// ASCII passes bytes through and replaces anything outside 0x20..0x7E with '?'.
type ASCII struct{}

func (ASCII) Encode(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r < 0x20 || r > 0x7E {
			r = '?'
		}
		out = append(out, byte(r))
		if len(out) == maxTextBytes {
			break
		}
	}
	return out
}

// GBK encodes for the display's simplified-Chinese font library. ASCII maps
// to itself.
type GBK struct {
	enc *encoding.Encoder
}

// NewGBK returns a GBK encoder that substitutes unsupported runes.
func NewGBK() *GBK {
	return &GBK{enc: encoding.ReplaceUnsupported(simplifiedchinese.GBK.NewEncoder())}
}

func (g *GBK) Encode(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, err := g.enc.Bytes([]byte(string(r)))
		if err != nil {
			b = []byte{'?'}
		}
		if len(out)+len(b) > maxTextBytes {
			break
		}
		out = append(out, b...)
	}
	return out
}
