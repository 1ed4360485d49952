package hmi

// Selector is the bounded cursor shared by every list-style screen.
//
// Moves saturate at the bounds instead of wrapping. Inc and Dec report
// whether the position actually changed and then resynchronize prev.
type Selector struct {
	cur  int
	prev int
}

// Current returns the highlighted position.
func (s *Selector) Current() int { return s.cur }

// Set moves the cursor without reporting a change.
func (s *Selector) Set(n int) {
	if n < 0 {
		n = 0
	}
	s.cur, s.prev = n, n
}

// Reset moves the cursor to the top.
func (s *Selector) Reset() { s.Set(0) }

// Inc moves down one position, saturating at max.
func (s *Selector) Inc(max int) bool {
	if s.cur < max {
		s.cur++
	} else {
		s.cur = max
	}
	return s.changed()
}

// Dec moves up one position, saturating at zero.
func (s *Selector) Dec() bool {
	if s.cur > 0 {
		s.cur--
	}
	return s.changed()
}

func (s *Selector) changed() bool {
	if s.cur == s.prev {
		return false
	}
	s.prev = s.cur
	return true
}
