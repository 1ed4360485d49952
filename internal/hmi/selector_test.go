package hmi

import "testing"

// TestSelector_Saturates tests that moves stop at both bounds
func TestSelector_Saturates(t *testing.T) {
	var s Selector

	if s.Dec() {
		t.Error("Dec at 0 reported a change")
	}
	if s.Current() != 0 {
		t.Errorf("expected 0, got %d", s.Current())
	}

	for i := 0; i < 10; i++ {
		s.Inc(3)
	}
	if s.Current() != 3 {
		t.Errorf("expected saturation at 3, got %d", s.Current())
	}
	if s.Inc(3) {
		t.Error("Inc at max reported a change")
	}
}

// TestSelector_ChangedOncePerMove tests that each real move is reported exactly once
func TestSelector_ChangedOncePerMove(t *testing.T) {
	var s Selector
	changes := 0
	for i := 0; i < 6; i++ {
		if s.Inc(4) {
			changes++
		}
	}
	for i := 0; i < 6; i++ {
		if s.Dec() {
			changes++
		}
	}
	if changes != 8 {
		t.Errorf("expected 8 changes (4 down, 4 up), got %d", changes)
	}
}

// TestSelector_SetIsSilent tests that Set does not leave a pending change
func TestSelector_SetIsSilent(t *testing.T) {
	var s Selector
	s.Set(5)
	if s.Current() != 5 {
		t.Errorf("expected 5, got %d", s.Current())
	}
	if !s.Dec() || s.Current() != 4 {
		t.Errorf("expected a single change to 4, got %d", s.Current())
	}
	s.Set(-3)
	if s.Current() != 0 {
		t.Errorf("expected negative Set to clamp to 0, got %d", s.Current())
	}
}
