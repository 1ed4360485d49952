package hmi

import (
	"sync"
	"time"
)

// Input is one decoded encoder event.
type Input int

const (
	InputNone Input = iota
	InputIncrease
	InputDecrease
	InputConfirm
)

func (in Input) String() string {
	switch in {
	case InputNone:
		return "none"
	case InputIncrease:
		return "increase"
	case InputDecrease:
		return "decrease"
	case InputConfirm:
		return "confirm"
	default:
		return "unknown"
	}
}

// ParseInput maps the wire names used by IPC and the HTTP API to an Input.
func ParseInput(s string) (Input, bool) {
	switch s {
	case "increase", "cw", "up":
		return InputIncrease, true
	case "decrease", "ccw", "down":
		return InputDecrease, true
	case "confirm", "enter", "press":
		return InputConfirm, true
	case "none", "":
		return InputNone, true
	}
	return InputNone, false
}

// InputSource yields at most one pending event per call and never blocks.
type InputSource interface {
	Poll() (Input, time.Time)
}

// ============================================================================
// InputQueue
// ============================================================================
// Producers (evdev reader, IPC, HTTP, simulator) push from their own
// goroutines; the controller drains one event per tick from the loop goroutine.
// ============================================================================

// InputQueue is a bounded FIFO of encoder events.
//
// Thread-safe: Push may be called from any goroutine.
type InputQueue struct {
	mu    sync.Mutex
	items []queuedInput
	limit int
	now   func() time.Time
}

type queuedInput struct {
	in Input
	at time.Time
}

// NewInputQueue creates a queue that keeps at most limit pending events.
// Older events are dropped first when the queue is full.
func NewInputQueue(limit int) *InputQueue {
	if limit <= 0 {
		limit = 64
	}
	return &InputQueue{
		items: make([]queuedInput, 0, limit),
		limit: limit,
		now:   time.Now,
	}
}

// Push appends an event stamped with the current time. InputNone is ignored.
func (q *InputQueue) Push(in Input) {
	q.PushAt(in, q.now())
}

// PushAt appends an event with an explicit timestamp.
func (q *InputQueue) PushAt(in Input, at time.Time) {
	if in == InputNone {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.limit {
		copy(q.items, q.items[1:])
		q.items = q.items[:len(q.items)-1]
	}
	q.items = append(q.items, queuedInput{in: in, at: at})
}

// Poll removes and returns the oldest event, or InputNone when empty.
func (q *InputQueue) Poll() (Input, time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return InputNone, time.Time{}
	}
	it := q.items[0]
	copy(q.items, q.items[1:])
	q.items = q.items[:len(q.items)-1]
	return it.in, it.at
}

// Len returns the number of pending events.
func (q *InputQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
