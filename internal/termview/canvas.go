// Package termview renders the display onto a character grid for terminals.
//
// One cell stands for an 8x16 pixel block, so the 272x480 panel becomes 34
// columns by 30 rows. Drawing goes to a back buffer; Update publishes it.
package termview

import (
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"

	"dwinhmi/internal/hmi"
)

const (
	CellWidth  = 8
	CellHeight = 16

	PanelWidth  = 272
	PanelHeight = 480
)

// iconGlyph stands in for every icon.
const iconGlyph = '◆'

type cell struct {
	r  rune
	fg hmi.Color
	bg hmi.Color
	// cont marks the right half of a double-width rune.
	cont bool
}

// Canvas implements hmi.Renderer.
type Canvas struct {
	mu    sync.Mutex
	cols  int
	rows  int
	back  []cell
	front []cell
	// frames counts Update calls.
	frames int
}

// New returns a canvas for the standard panel.
func New() *Canvas {
	return NewSized(PanelWidth/CellWidth, PanelHeight/CellHeight)
}

// NewSized returns a canvas of cols x rows cells.
func NewSized(cols, rows int) *Canvas {
	c := &Canvas{
		cols:  cols,
		rows:  rows,
		back:  make([]cell, cols*rows),
		front: make([]cell, cols*rows),
	}
	c.fill(c.back, 0, 0, cols-1, rows-1, hmi.ColorBackground)
	copy(c.front, c.back)
	return c
}

func (c *Canvas) fill(buf []cell, c0, r0, c1, r1 int, bg hmi.Color) {
	for r := max(r0, 0); r <= min(r1, c.rows-1); r++ {
		for col := max(c0, 0); col <= min(c1, c.cols-1); col++ {
			buf[r*c.cols+col] = cell{r: ' ', fg: hmi.ColorWhite, bg: bg}
		}
	}
}

func (c *Canvas) put(col, row int, ch cell) {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return
	}
	c.back[row*c.cols+col] = ch
}

// text writes s starting at a cell, clipped to the row.
func (c *Canvas) text(col, row int, fg, bg hmi.Color, s string) {
	s = runewidth.Truncate(s, c.cols-col, "")
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		c.put(col, row, cell{r: r, fg: fg, bg: bg})
		if w == 2 {
			c.put(col+1, row, cell{fg: fg, bg: bg, cont: true})
		}
		col += w
	}
}

// ============================================================================
// hmi.Renderer
// ============================================================================

func (c *Canvas) Clear(bg hmi.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fill(c.back, 0, 0, c.cols-1, c.rows-1, bg)
}

func (c *Canvas) Rect(fill bool, col hmi.Color, r hmi.Rect) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c0, r0 := r.X0/CellWidth, r.Y0/CellHeight
	c1, r1 := r.X1/CellWidth, r.Y1/CellHeight
	if fill {
		c.fill(c.back, c0, r0, c1, r1, col)
		return
	}
	for x := c0; x <= c1; x++ {
		c.put(x, r0, cell{r: '─', fg: col, bg: c.bgAt(x, r0)})
		c.put(x, r1, cell{r: '─', fg: col, bg: c.bgAt(x, r1)})
	}
	for y := r0; y <= r1; y++ {
		c.put(c0, y, cell{r: '│', fg: col, bg: c.bgAt(c0, y)})
		c.put(c1, y, cell{r: '│', fg: col, bg: c.bgAt(c1, y)})
	}
}

func (c *Canvas) bgAt(col, row int) hmi.Color {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return hmi.ColorBackground
	}
	return c.back[row*c.cols+col].bg
}

// Line draws horizontal and vertical lines; other angles become their
// bounding box's top edge.
func (c *Canvas) Line(col hmi.Color, x0, y0, x1, y1 int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c0, r0 := x0/CellWidth, y0/CellHeight
	c1, r1 := x1/CellWidth, y1/CellHeight
	if c0 == c1 && r0 != r1 {
		for y := min(r0, r1); y <= max(r0, r1); y++ {
			c.put(c0, y, cell{r: '│', fg: col, bg: c.bgAt(c0, y)})
		}
		return
	}
	for x := min(c0, c1); x <= max(c0, c1); x++ {
		c.put(x, r0, cell{r: '─', fg: col, bg: c.bgAt(x, r0)})
	}
}

func (c *Canvas) Text(_ hmi.Font, fg, bg hmi.Color, x, y int, s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text(x/CellWidth, y/CellHeight, fg, bg, s)
}

func (c *Canvas) Number(_ hmi.Font, fg, bg hmi.Color, x, y int, value int64, digits, frac int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text(x/CellWidth, y/CellHeight, fg, bg, FormatNumber(value, digits, frac))
}

func (c *Canvas) Icon(_, _ uint8, x, y int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, row := x/CellWidth, y/CellHeight
	c.put(col, row, cell{r: iconGlyph, fg: hmi.ColorWhite, bg: c.bgAt(col, row)})
}

// Scroll moves the cells inside r by dist pixels, rounded to whole rows.
func (c *Canvas) Scroll(dir hmi.ScrollDir, dist int, bg hmi.Color, r hmi.Rect) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := max(dist/CellHeight, 1)
	c0, r0 := r.X0/CellWidth, r.Y0/CellHeight
	c1, r1 := min(r.X1/CellWidth, c.cols-1), min(r.Y1/CellHeight, c.rows-1)

	switch dir {
	case hmi.ScrollDirUp:
		for y := r0; y <= r1-n; y++ {
			copy(c.back[y*c.cols+c0:y*c.cols+c1+1], c.back[(y+n)*c.cols+c0:(y+n)*c.cols+c1+1])
		}
		c.fill(c.back, c0, r1-n+1, c1, r1, bg)
	case hmi.ScrollDirDown:
		for y := r1; y >= r0+n; y-- {
			copy(c.back[y*c.cols+c0:y*c.cols+c1+1], c.back[(y-n)*c.cols+c0:(y-n)*c.cols+c1+1])
		}
		c.fill(c.back, c0, r0, c1, r0+n-1, bg)
	}
}

func (c *Canvas) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	copy(c.front, c.back)
	c.frames++
}

// ============================================================================
// Output
// ============================================================================

// Frames returns how many times Update was called.
func (c *Canvas) Frames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// Lines returns the published frame as plain text, one string per row.
func (c *Canvas) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, c.rows)
	for r := 0; r < c.rows; r++ {
		var b strings.Builder
		for _, ch := range c.front[r*c.cols : (r+1)*c.cols] {
			if !ch.cont {
				b.WriteRune(ch.r)
			}
		}
		out[r] = b.String()
	}
	return out
}

// View renders the published frame with colors.
func (c *Canvas) View() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows := make([]string, c.rows)
	for r := 0; r < c.rows; r++ {
		var (
			b   strings.Builder
			run strings.Builder
			cur cell
		)
		flush := func() {
			if run.Len() == 0 {
				return
			}
			b.WriteString(styleFor(cur.fg, cur.bg).Render(run.String()))
			run.Reset()
		}
		for i, ch := range c.front[r*c.cols : (r+1)*c.cols] {
			if ch.cont {
				continue
			}
			if i == 0 || ch.fg != cur.fg || ch.bg != cur.bg {
				flush()
				cur = ch
			}
			run.WriteRune(ch.r)
		}
		flush()
		rows[r] = b.String()
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

var (
	styleMu    sync.Mutex
	styleCache = map[[2]hmi.Color]lipgloss.Style{}
)

func styleFor(fg, bg hmi.Color) lipgloss.Style {
	styleMu.Lock()
	defer styleMu.Unlock()
	key := [2]hmi.Color{fg, bg}
	if s, ok := styleCache[key]; ok {
		return s
	}
	s := lipgloss.NewStyle().
		Foreground(lipgloss.Color(Hex(fg))).
		Background(lipgloss.Color(Hex(bg)))
	styleCache[key] = s
	return s
}

// Hex converts an RGB565 color to "#rrggbb".
func Hex(c hmi.Color) string {
	r := float64(c>>11&0x1F) / 0x1F
	g := float64(c>>5&0x3F) / 0x3F
	b := float64(c&0x1F) / 0x1F
	return colorful.Color{R: r, G: g, B: b}.Hex()
}

// FormatNumber renders a fixed-point value right-aligned in digits integer
// places, with frac decimals.
func FormatNumber(value int64, digits, frac int) string {
	neg := value < 0
	if neg {
		value = -value
	}
	s := strconv.FormatInt(value, 10)
	if frac > 0 {
		if len(s) <= frac {
			s = strings.Repeat("0", frac-len(s)+1) + s
		}
		s = s[:len(s)-frac] + "." + s[len(s)-frac:]
	}
	if neg {
		s = "-" + s
	}
	width := digits
	if frac > 0 {
		width += frac + 1
	}
	if pad := width - len(s); pad > 0 {
		s = strings.Repeat(" ", pad) + s
	}
	return s
}
