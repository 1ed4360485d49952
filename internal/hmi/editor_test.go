package hmi

import "testing"

// TestValueEditor_ClampsInitial tests that an out-of-range start value is clamped
func TestValueEditor_ClampsInitial(t *testing.T) {
	var e ValueEditor
	e.Begin(Quantity{Min: 0, Max: 260, Scale: 1}, 300)
	if e.Value() != 260 {
		t.Errorf("expected 260, got %v", e.Value())
	}
	e.Begin(Quantity{Min: 10, Max: 999, Scale: 1}, 0)
	if e.Value() != 10 {
		t.Errorf("expected 10, got %v", e.Value())
	}
}

// TestValueEditor_Saturates tests that steps never leave [min, max]
func TestValueEditor_Saturates(t *testing.T) {
	var e ValueEditor
	e.Begin(Quantity{Min: 0, Max: 255, Scale: 1}, 250)

	e.Increase(100)
	if e.Raw() != 255 {
		t.Errorf("expected 255 after overshoot, got %d", e.Raw())
	}
	e.Decrease(1000)
	if e.Raw() != 0 {
		t.Errorf("expected 0 after undershoot, got %d", e.Raw())
	}
}

// TestValueEditor_ConfirmCommits tests the setter and the returned position
func TestValueEditor_ConfirmCommits(t *testing.T) {
	var e ValueEditor
	var got float64
	calls := 0
	e.Begin(Quantity{
		Min:    -10,
		Max:    10,
		Scale:  100,
		Set:    func(v float64) { got = v; calls++ },
		Return: ScreenTune,
		Row:    5,
	}, -0.05)

	e.Decrease(3)
	s, row := e.Confirm()
	if s != ScreenTune || row != 5 {
		t.Errorf("expected return to tune row 5, got %s row %d", s, row)
	}
	if calls != 1 || got != -0.08 {
		t.Errorf("expected one commit of -0.08, got %d commits of %v", calls, got)
	}
	if e.Active() {
		t.Error("editor still active after Confirm")
	}
}

// TestValueEditor_FixedPointRoundTrip tests that unedited values commit unchanged
func TestValueEditor_FixedPointRoundTrip(t *testing.T) {
	tests := []struct {
		v, scale float64
	}{
		{93, 10},
		{0.3, 10},
		{12.3, 10},
		{-1.25, 100},
		{5000, 1},
	}
	for _, tt := range tests {
		var e ValueEditor
		var got float64
		e.Begin(Quantity{Min: -10000, Max: 10000, Scale: tt.scale, Set: func(v float64) { got = v }}, tt.v)
		e.Confirm()
		if got != tt.v {
			t.Errorf("scale %v: committed %v, expected %v", tt.scale, got, tt.v)
		}
	}
}
