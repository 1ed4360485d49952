package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"dwinhmi/internal/hmi"
	"dwinhmi/internal/ipc"
	"dwinhmi/internal/simprinter"
	"dwinhmi/internal/termview"
)

// newTestDaemon wires a real controller to a simulated printer and a
// terminal canvas, with a fixed clock and no debounce.
func newTestDaemon(t *testing.T) (*daemon, chan broadcast) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	broadcasts := make(chan broadcast, 32)
	d := &daemon{
		queue:      hmi.NewInputQueue(16),
		broadcasts: broadcasts,
		logger:     logger,
	}

	sim := simprinter.New(simprinter.DefaultConfig(), logger, d.notify)
	d.sim = sim

	cfg := hmi.DefaultConfig()
	cfg.Debounce = 0
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	ctrl, err := hmi.New(cfg, hmi.Deps{
		Renderer: termview.NewSized(34, 30),
		Media:    sim,
		Machine:  sim,
		Input:    d.queue,
		Runout:   sim,
		Logger:   logger,
		Clock:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("hmi.New: %v", err)
	}
	d.ctrl = ctrl
	return d, broadcasts
}

func drainBroadcasts(ch chan broadcast) []broadcast {
	var out []broadcast
	for {
		select {
		case b := <-ch:
			out = append(out, b)
		default:
			return out
		}
	}
}

// TestDaemon_InputMovesSelection tests that queued encoder input reaches the controller
func TestDaemon_InputMovesSelection(t *testing.T) {
	d, _ := newTestDaemon(t)
	d.ctrl.Init()

	d.apply(ipc.Input{Input: "cw", Count: 1})
	if d.queue.Len() != 1 {
		t.Fatalf("expected 1 queued input, got %d", d.queue.Len())
	}

	d.tick(20 * time.Millisecond)

	snap := d.ctrl.Snapshot()
	if snap.Screen != "main_menu" {
		t.Errorf("expected main_menu, got %q", snap.Screen)
	}
	if snap.Selected != 1 {
		t.Errorf("expected selection 1, got %d", snap.Selected)
	}
}

// TestDaemon_ConfirmEntersFileList tests a confirm on the first tile
func TestDaemon_ConfirmEntersFileList(t *testing.T) {
	d, _ := newTestDaemon(t)
	d.ctrl.Init()

	d.apply(ipc.Input{Input: "press"})
	d.tick(20 * time.Millisecond)

	if got := d.ctrl.Snapshot().Screen; got != "select_file" {
		t.Errorf("expected select_file, got %q", got)
	}
}

// TestDaemon_InvalidInputDropped tests that a bad input name queues nothing
func TestDaemon_InvalidInputDropped(t *testing.T) {
	d, _ := newTestDaemon(t)
	d.ctrl.Init()

	d.apply(ipc.Input{Input: "sideways", Count: 2})
	if d.queue.Len() != 0 {
		t.Errorf("expected empty queue, got %d", d.queue.Len())
	}
}

// TestDaemon_NotifyBroadcasts tests that notifications fan out to observers
func TestDaemon_NotifyBroadcasts(t *testing.T) {
	d, broadcasts := newTestDaemon(t)
	d.ctrl.Init()
	drainBroadcasts(broadcasts)

	d.apply(ipc.Notify{Name: "homing_complete"})

	got := drainBroadcasts(broadcasts)
	if len(got) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(got))
	}
	n, ok := got[0].(broadcastNotification)
	if !ok {
		t.Fatalf("expected broadcastNotification, got %T", got[0])
	}
	if n.Name != "homing_complete" {
		t.Errorf("expected homing_complete, got %q", n.Name)
	}
}

// TestDaemon_SimMedia tests that card events reach the simulator
func TestDaemon_SimMedia(t *testing.T) {
	d, _ := newTestDaemon(t)
	d.ctrl.Init()
	if !d.ctrl.Snapshot().Mounted {
		t.Fatal("expected simulator card mounted at start")
	}

	d.apply(ipc.SimMedia{Mounted: false})
	d.tick(20 * time.Millisecond)

	if d.ctrl.Snapshot().Mounted {
		t.Error("expected card removed after sim_media event")
	}
}

// TestDaemon_SimEventsWithoutSimulator tests that sim events are ignored on real backends
func TestDaemon_SimEventsWithoutSimulator(t *testing.T) {
	d, _ := newTestDaemon(t)
	d.ctrl.Init()
	d.sim = nil

	// Must not panic.
	d.apply(ipc.SimMedia{Mounted: false})
	d.apply(ipc.SimRunout{Runout: true})
}

// TestDaemon_RequestSnapshot tests the in-process snapshot request
func TestDaemon_RequestSnapshot(t *testing.T) {
	d, _ := newTestDaemon(t)
	d.ctrl.Init()

	reply := make(chan hmi.Snapshot, 1)
	d.apply(ipc.RequestSnapshot{Reply: reply})

	select {
	case snap := <-reply:
		if snap.Screen != "main_menu" {
			t.Errorf("expected main_menu, got %q", snap.Screen)
		}
	default:
		t.Fatal("expected a snapshot reply")
	}

	// A nil reply channel is ignored.
	d.apply(ipc.RequestSnapshot{})
}

// TestDaemon_PublishDedupes tests that unchanged state is broadcast once
func TestDaemon_PublishDedupes(t *testing.T) {
	d, broadcasts := newTestDaemon(t)
	d.ctrl.Init()

	d.publish()
	d.publish()
	d.publish()

	if got := len(drainBroadcasts(broadcasts)); got != 1 {
		t.Fatalf("expected 1 state broadcast, got %d", got)
	}

	d.queue.Push(hmi.InputIncrease)
	d.tick(20 * time.Millisecond)

	got := drainBroadcasts(broadcasts)
	if len(got) != 1 {
		t.Fatalf("expected 1 broadcast after change, got %d", len(got))
	}
	st, ok := got[0].(broadcastState)
	if !ok {
		t.Fatalf("expected broadcastState, got %T", got[0])
	}
	if st.Snapshot.Selected != 1 {
		t.Errorf("expected selection 1 in broadcast, got %d", st.Snapshot.Selected)
	}
}

// TestDaemon_NilBroadcasts tests that a daemon without observers still runs
func TestDaemon_NilBroadcasts(t *testing.T) {
	d, _ := newTestDaemon(t)
	d.broadcasts = nil
	d.ctrl.Init()

	d.apply(ipc.Notify{Name: "heating_complete"})
	d.tick(20 * time.Millisecond)
}

// TestRunDaemon_StopsOnCancel tests loop shutdown on context cancel
func TestRunDaemon_StopsOnCancel(t *testing.T) {
	d, broadcasts := newTestDaemon(t)
	events := make(chan ipc.Event, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runDaemon(ctx, events, d, 100)
	}()

	reply := make(chan hmi.Snapshot, 1)
	events <- ipc.RequestSnapshot{Reply: reply}
	select {
	case snap := <-reply:
		if snap.Screen != "main_menu" {
			t.Errorf("expected main_menu, got %q", snap.Screen)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for snapshot")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for daemon to stop")
	}

	if len(drainBroadcasts(broadcasts)) == 0 {
		t.Error("expected the initial state to be published")
	}
}

// TestRunDaemon_StopsOnClosedEvents tests loop shutdown when the source closes
func TestRunDaemon_StopsOnClosedEvents(t *testing.T) {
	d, _ := newTestDaemon(t)
	events := make(chan ipc.Event)
	close(events)

	done := make(chan error, 1)
	go func() {
		done <- runDaemon(context.Background(), events, d, 100)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for daemon to stop")
	}
}
