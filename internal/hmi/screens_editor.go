package hmi

import "time"

// editorScreen hosts the ValueEditor over the list it was opened from. The
// list stays on screen; only the edited value is redrawn.
type editorScreen struct{}

func (editorScreen) enter(c *Controller, _ int) {
	drawEditor(c, true)
}

func drawEditor(c *Controller, highlight bool) {
	q := c.editor.Quantity()
	c.paint.field(c.win.RowOf(q.Row), &field{
		raw:    c.editor.Raw(),
		digits: q.Digits,
		frac:   q.frac(),
	}, highlight)
}

func (editorScreen) handle(c *Controller, in Input, at time.Time) {
	switch in {
	case InputIncrease:
		c.editor.Increase(c.rate.step(1, at))
		drawEditor(c, true)
	case InputDecrease:
		c.editor.Decrease(c.rate.step(-1, at))
		drawEditor(c, true)
	case InputConfirm:
		q := c.editor.Quantity()
		ret, _ := c.editor.Confirm()
		c.logger.Debug("value committed", "quantity", q.Name, "value", c.editor.Value())
		drawEditor(c, false)
		c.switchTo(ret)
	}
}

func (editorScreen) refresh(c *Controller) { c.drawPanel() }
