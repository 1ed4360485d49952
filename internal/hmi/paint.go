package hmi

import (
	"fmt"
	"strconv"
	"time"
)

// Landscape 480x272 layout. The left column is the status panel, the cursor
// bar sits in the gutter and list rows scroll inside the list area.
const (
	screenWidth  = 480
	screenHeight = 272
	titleHeight  = 30

	menuLine = 44
	listX0   = 160
	listY0   = 45
	listX1   = 470
	listY1   = listY0 + TotalRows*menuLine - 1
	labelX   = 170
	valueX   = 380
	cursorX0 = 140
	cursorX1 = 150

	panelX0 = 0
	panelX1 = 130
	panelY0 = titleHeight + 10

	popupX0 = 60
	popupY0 = 50
	popupX1 = 420
	popupY1 = 240

	iconLib = 9
)

const (
	iconPrint    uint8 = 0
	iconControl  uint8 = 2
	iconPrepare  uint8 = 4
	iconInfo     uint8 = 6
	iconTune     uint8 = 8
	iconPause    uint8 = 10
	iconResume   uint8 = 12
	iconStop     uint8 = 14
	iconHotend   uint8 = 20
	iconBed      uint8 = 21
	iconFeedrate uint8 = 22
	iconZ        uint8 = 23
)

// menuBase is the text baseline of a list row.
func menuBase(row int) int { return listY0 + 10 + row*menuLine }

// field is a value drawn in a list row's right column.
type field struct {
	text   string
	raw    int64
	digits int
	frac   int
}

func textField(s string) *field { return &field{text: s} }

func numField(v float64, digits, frac int) *field {
	scale := 1.0
	for i := 0; i < frac; i++ {
		scale *= 10
	}
	return &field{raw: toRaw(v, scale), digits: digits, frac: frac}
}

func intField(v, digits int) *field { return &field{raw: int64(v), digits: digits} }

// digitsFor returns the integer width needed to show max.
func digitsFor(max float64) int {
	if max < 0 {
		max = -max
	}
	n := len(strconv.Itoa(int(max)))
	if n < 1 {
		n = 1
	}
	return n
}

// painter turns layout intents into Renderer primitives.
type painter struct {
	r Renderer
}

func (p painter) frame(title string) {
	p.r.Clear(ColorBackground)
	p.r.Rect(true, ColorSelect, Rect{0, 0, screenWidth - 1, titleHeight})
	p.r.Text(FontHeader, ColorWhite, ColorSelect, 14, 4, title)
}

func (p painter) label(row int, s string) {
	y := menuBase(row)
	p.r.Rect(true, ColorBackground, Rect{listX0, y - 10, listX1, y - 10 + menuLine - 1})
	p.r.Text(FontMenu, ColorWhite, ColorBackground, labelX, y, s)
	p.r.Line(ColorLine, listX0, y+menuLine-12, listX1, y+menuLine-12)
}

func (p painter) field(row int, f *field, highlight bool) {
	if f == nil || row < 0 {
		return
	}
	bg := ColorBackground
	if highlight {
		bg = ColorSelect
	}
	y := menuBase(row)
	p.r.Rect(true, bg, Rect{valueX - 4, y - 4, listX1, y + 20})
	if f.text != "" {
		p.r.Text(FontMenu, ColorWhite, bg, valueX, y, f.text)
		return
	}
	p.r.Number(FontMenu, ColorWhite, bg, valueX, y, f.raw, f.digits, f.frac)
}

func (p painter) cursor(row int, on bool) {
	if row < 0 {
		return
	}
	c := ColorBackground
	if on {
		c = ColorSelect
	}
	y := menuBase(row) - 10
	p.r.Rect(true, c, Rect{cursorX0, y, cursorX1, y + menuLine - 2})
}

func (p painter) scroll(dir ScrollDir) {
	p.r.Scroll(dir, menuLine, ColorBackground, Rect{listX0, listY0, listX1, listY1})
}

// tile draws one icon tile of a 2x2 (main menu) or 1x3 (print screen) grid.
func (p painter) tile(x, y int, icon uint8, label string, selected bool) {
	const w, h = 140, 95
	if selected {
		icon++
	}
	p.r.Icon(iconLib, icon, x+45, y+10)
	p.r.Text(FontMenu, ColorWhite, ColorBackground, x+10, y+h-25, label)
	c := ColorBackground
	if selected {
		c = ColorWhite
	}
	p.r.Rect(false, c, Rect{x, y, x + w, y + h})
}

func (p painter) popup(title, body string) {
	p.r.Rect(true, ColorPopup, Rect{popupX0, popupY0, popupX1, popupY1})
	p.r.Text(FontHeader, ColorWhite, ColorPopup, popupX0+20, popupY0+20, title)
	if body != "" {
		p.r.Text(FontMenu, ColorWhite, ColorPopup, popupX0+20, popupY0+70, body)
	}
}

func (p painter) yesNo(yesLabel, noLabel string, yes bool) {
	const w, h = 120, 38
	yx, nx, y := popupX0+40, popupX1-40-w, popupY1-60
	p.r.Rect(true, ColorBackground, Rect{yx, y, yx + w, y + h})
	p.r.Rect(true, ColorBackground, Rect{nx, y, nx + w, y + h})
	p.r.Text(FontStatus, ColorWhite, ColorBackground, yx+30, y+9, yesLabel)
	p.r.Text(FontStatus, ColorWhite, ColorBackground, nx+30, y+9, noLabel)
	sel, other := yx, nx
	if !yes {
		sel, other = nx, yx
	}
	p.r.Rect(false, ColorPopup, Rect{other - 2, y - 2, other + w + 2, y + h + 2})
	p.r.Rect(false, ColorWhite, Rect{sel - 2, y - 2, sel + w + 2, y + h + 2})
}

func (p painter) button(label string) {
	const w, h = 160, 38
	x, y := (popupX0+popupX1-w)/2, popupY1-60
	p.r.Rect(true, ColorBackground, Rect{x, y, x + w, y + h})
	p.r.Text(FontStatus, ColorWhite, ColorBackground, x+20, y+9, label)
	p.r.Rect(false, ColorWhite, Rect{x - 2, y - 2, x + w + 2, y + h + 2})
}

func (p painter) progress(pct int) {
	const x0, y0, w, h = listX0, listY0 + 10, listX1 - listX0, 16
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	fill := w * pct / 100
	p.r.Rect(true, ColorLine, Rect{x0, y0, x0 + w, y0 + h})
	if fill > 0 {
		p.r.Rect(true, ColorSelect, Rect{x0, y0, x0 + fill, y0 + h})
	}
	p.r.Number(FontStatus, ColorWhite, ColorBackground, x0+w/2-20, y0+h+8, int64(pct), 3, 0)
	p.r.Text(FontStatus, ColorWhite, ColorBackground, x0+w/2+12, y0+h+8, "%")
}

// clock draws d at minute granularity as HH:MM, or --:-- when unknown.
func (p painter) clock(x, y int, label string, d time.Duration, known bool) {
	s := "--:--"
	if known {
		m := int(d / time.Minute)
		s = fmt.Sprintf("%02d:%02d", m/60, m%60)
	}
	p.r.Text(FontMenu, ColorWhite, ColorBackground, x, y, label)
	p.r.Text(FontStatus, ColorWhite, ColorBackground, x, y+20, s)
}

// panelState is what the status panel shows.
type panelState struct {
	hotend, hotendTarget int
	bed, bedTarget       int
	feedrate             int
	z                    float64
}

func (p painter) panel(s panelState) {
	const rowH = 50
	x := panelX0 + 8
	y := panelY0
	p.r.Rect(true, ColorBackground, Rect{panelX0, panelY0, panelX1, screenHeight - 1})

	p.r.Icon(iconLib, iconHotend, x, y)
	p.r.Number(FontMenu, ColorWhite, ColorBackground, x+30, y+4, int64(s.hotend), 3, 0)
	p.r.Text(FontMenu, ColorWhite, ColorBackground, x+58, y+4, "/")
	p.r.Number(FontMenu, ColorWhite, ColorBackground, x+68, y+4, int64(s.hotendTarget), 3, 0)
	y += rowH

	p.r.Icon(iconLib, iconBed, x, y)
	p.r.Number(FontMenu, ColorWhite, ColorBackground, x+30, y+4, int64(s.bed), 3, 0)
	p.r.Text(FontMenu, ColorWhite, ColorBackground, x+58, y+4, "/")
	p.r.Number(FontMenu, ColorWhite, ColorBackground, x+68, y+4, int64(s.bedTarget), 3, 0)
	y += rowH

	p.r.Icon(iconLib, iconFeedrate, x, y)
	p.r.Number(FontMenu, ColorWhite, ColorBackground, x+30, y+4, int64(s.feedrate), 3, 0)
	p.r.Text(FontMenu, ColorWhite, ColorBackground, x+58, y+4, "%")
	y += rowH

	p.r.Icon(iconLib, iconZ, x, y)
	p.r.Number(FontMenu, ColorWhite, ColorBackground, x+30, y+4, toRaw(s.z, 100), 3, 2)
}
