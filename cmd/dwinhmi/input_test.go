package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"dwinhmi/internal/hmi"
)

func encodeEvents(t *testing.T, evs ...inputEvent) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, ev := range evs {
		if err := binary.Write(&buf, binary.LittleEndian, ev); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	return buf.Bytes()
}

// TestInputDevice_ReadBatch tests that one read yields every queued event and
// names the node an encoder
func TestInputDevice_ReadBatch(t *testing.T) {
	raw := encodeEvents(t,
		inputEvent{Type: EV_REL, Code: REL_DIAL, Value: 1},
		inputEvent{Type: EV_REL, Code: REL_DIAL, Value: -1},
		inputEvent{Type: EV_SYN},
	)
	d := newDeviceReader("/dev/input/event1", bytes.NewReader(raw))
	if got := d.String(); got != "input device /dev/input/event1" {
		t.Errorf("expected unknown role before any event, got %q", got)
	}

	evs, err := d.read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(evs) != 3 {
		t.Fatalf("expected 3 events, got %d", len(evs))
	}
	if evs[1].Value != -1 {
		t.Errorf("expected second value -1, got %d", evs[1].Value)
	}
	if got := d.String(); got != "encoder /dev/input/event1" {
		t.Errorf("expected encoder role, got %q", got)
	}
}

// TestInputDevice_ButtonRole tests that a key-only node is named a button
func TestInputDevice_ButtonRole(t *testing.T) {
	raw := encodeEvents(t, inputEvent{Type: EV_KEY, Code: BTN_0, Value: evValuePress})
	d := newDeviceReader("/dev/input/event2", bytes.NewReader(raw))
	if _, err := d.read(); err != nil {
		t.Fatalf("read: %v", err)
	}
	if d.role != roleButton {
		t.Errorf("expected button role, got %q", d.role)
	}
}

// TestInputDevice_ReadErrorNamesRole tests that a failing node is identified
func TestInputDevice_ReadErrorNamesRole(t *testing.T) {
	raw := encodeEvents(t, inputEvent{Type: EV_REL, Code: REL_DIAL, Value: 1})
	d := newDeviceReader("/dev/input/event1", io.MultiReader(bytes.NewReader(raw), errReader{os.ErrClosed}))
	if _, err := d.read(); err != nil {
		t.Fatalf("first read: %v", err)
	}

	_, err := d.read()
	if !errors.Is(err, os.ErrClosed) {
		t.Fatalf("expected os.ErrClosed, got %v", err)
	}
	if !strings.Contains(err.Error(), "encoder /dev/input/event1") {
		t.Errorf("expected error to name the encoder, got %q", err)
	}
}

// TestDecodeEvents_DropsPartial tests that a truncated record is ignored
func TestDecodeEvents_DropsPartial(t *testing.T) {
	raw := encodeEvents(t, inputEvent{Type: EV_KEY, Code: KEY_ENTER, Value: 1})
	raw = append(raw, 0x01, 0x02, 0x03)
	if evs := decodeEvents(raw); len(evs) != 1 || evs[0].Code != KEY_ENTER {
		t.Errorf("expected one KEY_ENTER event, got %+v", evs)
	}
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

// TestTranslateEvent tests evdev to encoder input mapping
func TestTranslateEvent(t *testing.T) {
	tests := []struct {
		name  string
		ev    inputEvent
		in    hmi.Input
		count int
	}{
		{"dial clockwise", inputEvent{Type: EV_REL, Code: REL_DIAL, Value: 1}, hmi.InputIncrease, 1},
		{"dial counter-clockwise", inputEvent{Type: EV_REL, Code: REL_DIAL, Value: -3}, hmi.InputDecrease, 3},
		{"wheel fast spin capped", inputEvent{Type: EV_REL, Code: REL_WHEEL, Value: 40}, hmi.InputIncrease, maxDetentsPerEvent},
		{"relative zero", inputEvent{Type: EV_REL, Code: REL_X, Value: 0}, hmi.InputNone, 0},
		{"unrelated relative axis", inputEvent{Type: EV_REL, Code: 0x06, Value: 1}, hmi.InputNone, 0},
		{"enter press", inputEvent{Type: EV_KEY, Code: KEY_ENTER, Value: evValuePress}, hmi.InputConfirm, 1},
		{"encoder button press", inputEvent{Type: EV_KEY, Code: BTN_0, Value: evValuePress}, hmi.InputConfirm, 1},
		{"enter release", inputEvent{Type: EV_KEY, Code: KEY_ENTER, Value: evValueRelease}, hmi.InputNone, 0},
		{"enter repeat", inputEvent{Type: EV_KEY, Code: KEY_ENTER, Value: evValueRepeat}, hmi.InputNone, 0},
		{"arrow down", inputEvent{Type: EV_KEY, Code: KEY_DOWN, Value: evValuePress}, hmi.InputIncrease, 1},
		{"arrow up", inputEvent{Type: EV_KEY, Code: KEY_UP, Value: evValuePress}, hmi.InputDecrease, 1},
		{"unmapped key", inputEvent{Type: EV_KEY, Code: 30, Value: evValuePress}, hmi.InputNone, 0},
		{"sync", inputEvent{Type: EV_SYN}, hmi.InputNone, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, n := translateEvent(tt.ev)
			if in != tt.in || n != tt.count {
				t.Errorf("expected %v x%d, got %v x%d", tt.in, tt.count, in, n)
			}
		})
	}
}
