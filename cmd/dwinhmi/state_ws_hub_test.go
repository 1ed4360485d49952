package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"dwinhmi/internal/hmi"
)

// Clients here carry a nil websocket.Conn; the hub guards every Close so the
// fanout and eviction paths run without network I/O.

func newTestHub(t *testing.T, sendBuf int, broadcastBuf int) *Hub {
	t.Helper()
	return NewHub(slog.Default(), HubConfig{
		SendBuf:      sendBuf,
		BroadcastBuf: broadcastBuf,
	})
}

func runHub(t *testing.T, hub *Hub) (context.CancelFunc, <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()
	return cancel, done
}

func registerClient(t *testing.T, hub *Hub, name string) *Client {
	t.Helper()
	c := NewClient(hub, nil, name, slog.Default())
	hub.register <- c
	waitUntil(t, 500*time.Millisecond, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		_, ok := hub.clients[c]
		return ok
	}, name+" not registered in time")
	return c
}

// TestHub_BroadcastDeliveredToAllClients tests fanout to every client
func TestHub_BroadcastDeliveredToAllClients(t *testing.T) {
	hub := newTestHub(t, 4, 8)
	cancel, done := runHub(t, hub)
	defer cancel()

	c1 := registerClient(t, hub, "panel-a")
	c2 := registerClient(t, hub, "panel-b")
	if n := hub.Clients(); n != 2 {
		t.Fatalf("expected 2 clients, got %d", n)
	}

	msg := []byte(`{"type":"state","data":{"screen":"main_menu"}}`)
	hub.broadcast <- msg

	for _, c := range []*Client{c1, c2} {
		select {
		case got := <-c.send:
			if string(got) != string(msg) {
				t.Fatalf("%s: expected %q, got %q", c.remoteAddr, msg, got)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("%s: timeout waiting for broadcast", c.remoteAddr)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for hub to stop")
	}

	// Shutdown closes every client queue.
	if _, ok := <-c1.send; ok {
		t.Error("expected client send channel closed after shutdown")
	}
}

// TestHub_SlowClientDisconnectedOnFullSendBuffer tests eviction of stuck clients
func TestHub_SlowClientDisconnectedOnFullSendBuffer(t *testing.T) {
	hub := newTestHub(t, 1, 8)
	cancel, _ := runHub(t, hub)
	defer cancel()

	slow := registerClient(t, hub, "slow")
	fast := &Client{
		hub:        hub,
		send:       make(chan []byte, 8),
		remoteAddr: "fast",
		logger:     slog.Default(),
	}
	hub.register <- fast
	waitUntil(t, 500*time.Millisecond, func() bool { return hub.Clients() == 2 }, "fast client not registered in time")

	slow.send <- []byte(`"already queued"`)

	msg := []byte(`{"type":"notification","data":{"name":"print_finished"}}`)
	hub.broadcast <- msg

	select {
	case got := <-fast.send:
		if string(got) != string(msg) {
			t.Fatalf("expected %q, got %q", msg, got)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for fast client to receive broadcast")
	}

	select {
	case <-slow.send:
	default:
	}
	waitUntil(t, 750*time.Millisecond, func() bool {
		select {
		case _, ok := <-slow.send:
			return !ok
		default:
			return false
		}
	}, "expected slow send channel to be closed")

	if n := hub.Clients(); n != 1 {
		t.Errorf("expected 1 client after eviction, got %d", n)
	}
}

// TestHub_BroadcastBytesDropsWhenFull tests the non-blocking enqueue
func TestHub_BroadcastBytesDropsWhenFull(t *testing.T) {
	hub := newTestHub(t, 1, 1)

	hub.BroadcastBytes([]byte("first"))
	hub.BroadcastBytes([]byte("second"))

	if got := len(hub.broadcast); got != 1 {
		t.Fatalf("expected 1 queued message, got %d", got)
	}
	if got := string(<-hub.broadcast); got != "first" {
		t.Errorf("expected first message kept, got %q", got)
	}
}

// ============================================================================
// Broadcaster
// ============================================================================

func readEnvelope(t *testing.T, hub *Hub, timeout time.Duration) map[string]any {
	t.Helper()
	select {
	case msg := <-hub.broadcast:
		var env map[string]any
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatalf("unmarshal broadcast: %v", err)
		}
		return env
	case <-time.After(timeout):
		t.Fatal("timeout waiting for broadcast")
		return nil
	}
}

func screenOf(t *testing.T, env map[string]any) string {
	t.Helper()
	data, ok := env["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected object data, got %T", env["data"])
	}
	s, _ := data["screen"].(string)
	return s
}

// TestRunBroadcaster_CoalescesState tests that bursts of state collapse to the latest
func TestRunBroadcaster_CoalescesState(t *testing.T) {
	hub := newTestHub(t, 4, 8)
	src := make(chan broadcast, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go RunBroadcaster(ctx, hub, src, 50*time.Millisecond, slog.Default())

	src <- broadcastState{Snapshot: hmi.Snapshot{Screen: "main_menu"}}
	src <- broadcastState{Snapshot: hmi.Snapshot{Screen: "prepare"}}
	src <- broadcastState{Snapshot: hmi.Snapshot{Screen: "control"}}

	env := readEnvelope(t, hub, 500*time.Millisecond)
	if env["type"] != "state" {
		t.Fatalf("expected state, got %v", env["type"])
	}
	if got := screenOf(t, env); got != "control" {
		t.Errorf("expected latest screen control, got %q", got)
	}

	select {
	case msg := <-hub.broadcast:
		t.Errorf("expected a single coalesced frame, got extra %s", msg)
	case <-time.After(120 * time.Millisecond):
	}
}

// TestRunBroadcaster_NotificationFlushesPending tests ordering of state before notification
func TestRunBroadcaster_NotificationFlushesPending(t *testing.T) {
	hub := newTestHub(t, 4, 8)
	src := make(chan broadcast, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go RunBroadcaster(ctx, hub, src, time.Hour, slog.Default())

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	src <- broadcastState{Snapshot: hmi.Snapshot{Screen: "printing"}}
	src <- broadcastNotification{Name: "print_finished", At: at}

	first := readEnvelope(t, hub, 500*time.Millisecond)
	if first["type"] != "state" {
		t.Fatalf("expected pending state first, got %v", first["type"])
	}
	second := readEnvelope(t, hub, 500*time.Millisecond)
	if second["type"] != "notification" {
		t.Fatalf("expected notification second, got %v", second["type"])
	}
	data, _ := second["data"].(map[string]any)
	if data["name"] != "print_finished" {
		t.Errorf("expected print_finished, got %v", data["name"])
	}
	if second["ts"] != "2024-03-01T12:00:00Z" {
		t.Errorf("expected notification timestamp, got %v", second["ts"])
	}
}

// TestRunBroadcaster_FlushesOnClose tests that a closed source flushes pending state
func TestRunBroadcaster_FlushesOnClose(t *testing.T) {
	hub := newTestHub(t, 4, 8)
	src := make(chan broadcast, 2)

	done := make(chan struct{})
	go func() {
		defer close(done)
		RunBroadcaster(context.Background(), hub, src, time.Hour, slog.Default())
	}()

	src <- broadcastState{Snapshot: hmi.Snapshot{Screen: "info"}}
	close(src)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for broadcaster to stop")
	}

	env := readEnvelope(t, hub, 100*time.Millisecond)
	if got := screenOf(t, env); got != "info" {
		t.Errorf("expected info, got %q", got)
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout: %s", msg)
}
