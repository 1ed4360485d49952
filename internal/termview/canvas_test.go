package termview

import (
	"strings"
	"testing"

	"dwinhmi/internal/hmi"
)

// TestFormatNumber tests padding and decimal placement
func TestFormatNumber(t *testing.T) {
	tests := []struct {
		value        int64
		digits, frac int
		want         string
	}{
		{215, 3, 0, "215"},
		{7, 3, 0, "  7"},
		{1234, 3, 1, "123.4"},
		{5, 1, 2, "0.05"},
		{-15, 2, 2, "-0.15"},
		{4200, 2, 0, "4200"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.value, tt.digits, tt.frac); got != tt.want {
			t.Errorf("FormatNumber(%d, %d, %d): expected %q, got %q", tt.value, tt.digits, tt.frac, tt.want, got)
		}
	}
}

// TestHex tests RGB565 conversion
func TestHex(t *testing.T) {
	if got := Hex(hmi.ColorWhite); got != "#ffffff" {
		t.Errorf("expected #ffffff, got %s", got)
	}
	if got := Hex(hmi.ColorRed); got != "#ff0000" {
		t.Errorf("expected #ff0000, got %s", got)
	}
	if got := Hex(hmi.ColorBlack); got != "#000000" {
		t.Errorf("expected #000000, got %s", got)
	}
}

// TestCanvas_UpdatePublishes tests that drawing is invisible until Update
func TestCanvas_UpdatePublishes(t *testing.T) {
	c := NewSized(10, 3)
	c.Text(hmi.FontMenu, hmi.ColorWhite, hmi.ColorBlack, 8, 16, "Print")

	if strings.TrimSpace(c.Lines()[1]) != "" {
		t.Error("expected text hidden before Update")
	}
	c.Update()
	if got := c.Lines()[1]; got != " Print    " {
		t.Errorf("expected %q, got %q", " Print    ", got)
	}
	if c.Frames() != 1 {
		t.Errorf("expected 1 frame, got %d", c.Frames())
	}
}

// TestCanvas_WideRunes tests double-width glyph placement and clipping
func TestCanvas_WideRunes(t *testing.T) {
	c := NewSized(5, 1)
	c.Text(hmi.FontMenu, hmi.ColorWhite, hmi.ColorBlack, 0, 0, "返回主页")
	c.Update()

	if got := c.Lines()[0]; got != "返回 " {
		t.Errorf("expected two glyphs and a blank, got %q", got)
	}
}

// TestCanvas_Scroll tests row shifting in both directions
func TestCanvas_Scroll(t *testing.T) {
	c := NewSized(3, 4)
	for i, s := range []string{"aaa", "bbb", "ccc", "ddd"} {
		c.Text(hmi.FontMenu, hmi.ColorWhite, hmi.ColorBlack, 0, i*CellHeight, s)
	}
	area := hmi.Rect{X0: 0, Y0: CellHeight, X1: 3*CellWidth - 1, Y1: 4*CellHeight - 1}

	c.Scroll(hmi.ScrollDirUp, CellHeight, hmi.ColorBlack, area)
	c.Update()
	if got := strings.Join(c.Lines(), "|"); got != "aaa|ccc|ddd|   " {
		t.Errorf("scroll up: got %q", got)
	}

	c.Scroll(hmi.ScrollDirDown, CellHeight, hmi.ColorBlack, area)
	c.Update()
	if got := strings.Join(c.Lines(), "|"); got != "aaa|   |ccc|ddd" {
		t.Errorf("scroll down: got %q", got)
	}
}

// TestCanvas_RectAndClear tests fills and frames
func TestCanvas_RectAndClear(t *testing.T) {
	c := NewSized(4, 3)
	c.Rect(false, hmi.ColorLine, hmi.Rect{X0: 0, Y0: 0, X1: 3 * CellWidth, Y1: 2 * CellHeight})
	c.Icon(1, 2, CellWidth, CellHeight)
	c.Update()
	if got := strings.Join(c.Lines(), "|"); got != "│──│|│◆ │|│──│" {
		t.Errorf("unexpected frame %q", got)
	}

	c.Clear(hmi.ColorBackground)
	c.Update()
	if got := strings.Join(c.Lines(), "|"); got != "    |    |    " {
		t.Errorf("expected cleared canvas, got %q", got)
	}
	if c.View() == "" {
		t.Error("expected a styled view")
	}
}
