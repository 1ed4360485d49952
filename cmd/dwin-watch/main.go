package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"dwinhmi/internal/hmi"
)

func main() {
	var (
		wsURL = flag.String("ws", "ws://127.0.0.1:3002/ws", "dwinhmi state websocket URL")
		raw   = flag.Bool("raw", false, "Print every frame as indented JSON")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	var writeMu sync.Mutex

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})

	w := &watcher{out: os.Stdout, raw: *raw}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			if messageType == websocket.TextMessage {
				w.handle(message)
			}
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// frame is the envelope the daemon sends on /ws.
type frame struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// watcher prints what changed between consecutive state frames.
type watcher struct {
	out  io.Writer
	raw  bool
	last *hmi.Snapshot
}

func (w *watcher) handle(message []byte) {
	var f frame
	if err := json.Unmarshal(message, &f); err != nil {
		fmt.Fprintf(w.out, "[TEXT] %s\n", string(message))
		return
	}

	if w.raw {
		var v any
		if err := json.Unmarshal(message, &v); err == nil {
			pretty, _ := json.MarshalIndent(v, "", "  ")
			fmt.Fprintf(w.out, "%s\n", pretty)
		}
		return
	}

	switch f.Type {
	case "state_init", "state":
		var snap hmi.Snapshot
		if err := json.Unmarshal(f.Data, &snap); err != nil {
			fmt.Fprintf(w.out, "[BAD STATE] %v\n", err)
			return
		}
		w.state(snap)

	case "notification":
		var n struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(f.Data, &n); err != nil {
			return
		}
		fmt.Fprintf(w.out, "[NOTIFY] %s\n", n.Name)

	default:
		fmt.Fprintf(w.out, "[%s] %s\n", f.Type, string(f.Data))
	}
}

func (w *watcher) state(s hmi.Snapshot) {
	prev := w.last
	w.last = &s

	if prev == nil || prev.Screen != s.Screen || prev.Selected != s.Selected {
		fmt.Fprintf(w.out, "[SCREEN] %s row=%d\n", s.Screen, s.Selected)
	}
	if prev == nil || prev.Session != s.Session || prev.File != s.File {
		if s.File != "" {
			fmt.Fprintf(w.out, "[SESSION] %s %s\n", s.Session, s.File)
		} else {
			fmt.Fprintf(w.out, "[SESSION] %s\n", s.Session)
		}
	}
	if prev != nil && prev.Percent != s.Percent {
		fmt.Fprintf(w.out, "[PROGRESS] %d%%\n", s.Percent)
	}
	if prev == nil || prev.Hotend.Target != s.Hotend.Target || prev.Bed.Target != s.Bed.Target {
		fmt.Fprintf(w.out, "[TARGETS] hotend=%d bed=%d\n", s.Hotend.Target, s.Bed.Target)
	}
	if prev == nil || prev.Mounted != s.Mounted {
		card := "removed"
		if s.Mounted {
			card = "inserted"
		}
		fmt.Fprintf(w.out, "[CARD] %s\n", card)
	}
	if s.Editor != nil && (prev == nil || prev.Editor == nil || *prev.Editor != *s.Editor) {
		fmt.Fprintf(w.out, "[EDIT] %s=%g\n", s.Editor.Quantity, s.Editor.Value)
	}
}
