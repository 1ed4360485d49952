package hmi

import "math"

// Quantity parameterizes one ValueEditor session.
type Quantity struct {
	Name string

	// Min and Max are in display units; Scale is the number of raw steps per
	// unit (1, 10 or 100).
	Min   float64
	Max   float64
	Scale float64

	// Digits is the integer width used when drawing.
	Digits int

	Set func(v float64)

	// Return is the list screen restored on Confirm; Row is the list item
	// being edited there.
	Return Screen
	Row    int
}

func (q Quantity) frac() int {
	switch {
	case q.Scale >= 100:
		return 2
	case q.Scale >= 10:
		return 1
	default:
		return 0
	}
}

// ValueEditor is transient encoder-driven tuning of one number.
type ValueEditor struct {
	q        Quantity
	raw      int64
	min, max int64
	active   bool
}

// Begin starts editing q from initial, clamped into range.
func (e *ValueEditor) Begin(q Quantity, initial float64) {
	if q.Scale <= 0 {
		q.Scale = 1
	}
	e.q = q
	e.min = toRaw(q.Min, q.Scale)
	e.max = toRaw(q.Max, q.Scale)
	if e.max < e.min {
		e.max = e.min
	}
	e.raw = e.clamp(toRaw(initial, q.Scale))
	e.active = true
}

// Increase adds step raw units, saturating at max.
func (e *ValueEditor) Increase(step int) {
	e.raw = e.clamp(e.raw + int64(step))
}

// Decrease subtracts step raw units, saturating at min.
func (e *ValueEditor) Decrease(step int) {
	e.raw = e.clamp(e.raw - int64(step))
}

// Confirm commits the value through the quantity's setter and returns the
// screen and row to restore.
func (e *ValueEditor) Confirm() (Screen, int) {
	e.raw = e.clamp(e.raw)
	if e.q.Set != nil {
		e.q.Set(e.Value())
	}
	e.active = false
	return e.q.Return, e.q.Row
}

func (e *ValueEditor) Active() bool       { return e.active }
func (e *ValueEditor) Raw() int64         { return e.raw }
func (e *ValueEditor) Quantity() Quantity { return e.q }

// Value returns the current value in display units.
func (e *ValueEditor) Value() float64 {
	return float64(e.raw) / e.q.Scale
}

func (e *ValueEditor) clamp(v int64) int64 {
	if v < e.min {
		return e.min
	}
	if v > e.max {
		return e.max
	}
	return v
}

func toRaw(v, scale float64) int64 {
	return int64(math.Round(v * scale))
}
