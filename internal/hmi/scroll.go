package hmi

const (
	// TotalRows is the number of list rows visible at once, including Back.
	TotalRows = 5
	// MenuRows is the number of visible rows below the Back row.
	MenuRows = TotalRows - 1
)

// StepKind says how much of a list has to be redrawn after a cursor move.
type StepKind int

const (
	// StepHighlight moves the cursor bar; no list content changes.
	StepHighlight StepKind = iota
	// StepScrollUp shifts the list up one row and reveals a new bottom row.
	StepScrollUp
	// StepScrollDown shifts the list down one row and reveals a new top row.
	StepScrollDown
)

// ScrollStep is the minimal redraw for one cursor move.
type ScrollStep struct {
	Kind StepKind

	// Row is the screen row that receives the cursor (and, for scroll steps,
	// the freshly revealed item).
	Row int

	// Item is the list index that must be drawn into Row on a scroll step.
	Item int

	// Back is set when the revealed top row is the fixed Back label.
	Back bool
}

// ScrollWindow tracks which slice of a long list is on screen.
//
// top is the list index shown in the bottom visible row. It never drops
// below MenuRows, so an unscrolled list has top == MenuRows.
type ScrollWindow struct {
	top int
}

// NewScrollWindow returns an unscrolled window.
func NewScrollWindow() ScrollWindow { return ScrollWindow{top: MenuRows} }

// Reset returns the window to the unscrolled position.
func (w *ScrollWindow) Reset() { w.top = MenuRows }

// Top returns the list index currently shown in the bottom row.
func (w *ScrollWindow) Top() int {
	if w.top < MenuRows {
		return MenuRows
	}
	return w.top
}

// Reveal positions the window so sel is visible, scrolling as little as
// possible from the unscrolled position. Used when re-entering a list.
func (w *ScrollWindow) Reveal(sel int) {
	if sel > MenuRows {
		w.top = sel
	} else {
		w.top = MenuRows
	}
}

// RowOf returns the screen row of list index sel, or -1 when off screen.
func (w *ScrollWindow) RowOf(sel int) int {
	row := sel + MenuRows - w.Top()
	if row < 0 || row > MenuRows {
		return -1
	}
	return row
}

// ItemAt returns the list index drawn in screen row.
func (w *ScrollWindow) ItemAt(row int) int {
	return w.Top() - MenuRows + row
}

// Follow updates the window after the selector moved to sel and returns the
// redraw it requires. The window moves by at most one row per call.
func (w *ScrollWindow) Follow(sel int) ScrollStep {
	if w.top < MenuRows {
		w.top = MenuRows
	}
	switch {
	case sel > MenuRows && sel > w.top:
		w.top = sel
		return ScrollStep{Kind: StepScrollUp, Row: MenuRows, Item: sel}
	case sel < w.top-MenuRows:
		w.top--
		return ScrollStep{Kind: StepScrollDown, Row: 0, Item: sel, Back: w.top == MenuRows}
	default:
		return ScrollStep{Kind: StepHighlight, Row: sel + MenuRows - w.top, Item: sel}
	}
}
