package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"dwinhmi/internal/hmi"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

var inputEventSize = binary.Size(inputEvent{})

// eventsPerRead bounds one read; evdev hands out whole events only.
const eventsPerRead = 16

type deviceRole string

const (
	roleUnknown deviceRole = "input device"
	roleEncoder deviceRole = "encoder"
	roleButton  deviceRole = "button"
)

// inputDevice is one evdev node. Its role is learned from the events it
// produces so errors can say which part of the knob failed.
type inputDevice struct {
	path string
	f    *os.File
	src  io.Reader
	role deviceRole
	buf  []byte
}

func newInputDevice(path string, f *os.File) *inputDevice {
	d := newDeviceReader(path, f)
	d.f = f
	return d
}

func newDeviceReader(path string, r io.Reader) *inputDevice {
	return &inputDevice{
		path: path,
		src:  r,
		role: roleUnknown,
		buf:  make([]byte, eventsPerRead*inputEventSize),
	}
}

func (d *inputDevice) String() string { return string(d.role) + " " + d.path }

func (d *inputDevice) Close() error {
	if d.f == nil {
		return nil
	}
	return d.f.Close()
}

// read blocks for the next batch of events.
func (d *inputDevice) read() ([]inputEvent, error) {
	n, err := d.src.Read(d.buf)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", d, err)
	}
	evs := decodeEvents(d.buf[:n])
	for _, ev := range evs {
		switch {
		case ev.Type == EV_REL:
			d.role = roleEncoder
		case ev.Type == EV_KEY && d.role == roleUnknown:
			d.role = roleButton
		}
	}
	return evs, nil
}

// decodeEvents splits a read into events. A trailing partial record is
// dropped.
func decodeEvents(b []byte) []inputEvent {
	out := make([]inputEvent, 0, len(b)/inputEventSize)
	for len(b) >= inputEventSize {
		var ev inputEvent
		if _, err := binary.Decode(b[:inputEventSize], binary.LittleEndian, &ev); err == nil {
			out = append(out, ev)
		}
		b = b[inputEventSize:]
	}
	return out
}

// watchDevice reads one node on a dedicated goroutine.
func watchDevice(d *inputDevice, events chan<- inputEvent, readErr chan<- error) {
	for {
		batch, err := d.read()
		if err != nil {
			readErr <- err
			return
		}
		for _, ev := range batch {
			events <- ev
		}
	}
}

// openDevices opens every configured node. On failure the ones already
// opened are closed again.
func openDevices(paths []string) ([]*inputDevice, error) {
	devs := make([]*inputDevice, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			for _, d := range devs {
				d.Close()
			}
			return nil, fmt.Errorf("open %s: %w", p, err)
		}
		devs = append(devs, newInputDevice(p, f))
	}
	return devs, nil
}

// translateEvent maps one evdev event to encoder input.
//
// Relative axes produce one input per detent (clockwise is Increase). Key
// presses on the encoder button produce Confirm; arrow keys let a plain
// keyboard drive the display. Releases, repeats and sync events yield nothing.
func translateEvent(ev inputEvent) (hmi.Input, int) {
	switch ev.Type {
	case EV_REL:
		switch ev.Code {
		case REL_X, REL_Y, REL_DIAL, REL_WHEEL, REL_MISC:
		default:
			return hmi.InputNone, 0
		}
		n := int(ev.Value)
		in := hmi.InputIncrease
		if n < 0 {
			in = hmi.InputDecrease
			n = -n
		}
		if n == 0 {
			return hmi.InputNone, 0
		}
		return in, min(n, maxDetentsPerEvent)

	case EV_KEY:
		if ev.Value != evValuePress {
			return hmi.InputNone, 0
		}
		switch ev.Code {
		case KEY_ENTER, KEY_OK, KEY_SELECT, BTN_0:
			return hmi.InputConfirm, 1
		case KEY_DOWN:
			return hmi.InputIncrease, 1
		case KEY_UP:
			return hmi.InputDecrease, 1
		}
	}
	return hmi.InputNone, 0
}
