package main

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"dwinhmi/internal/hmi"
	"dwinhmi/internal/simprinter"
)

type simHarness struct {
	m      *model
	now    time.Time
	copied []string
}

func newSimHarness(t *testing.T) *simHarness {
	t.Helper()
	h := &simHarness{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}

	cfg := hmi.DefaultConfig()
	cfg.Debounce = 0

	m, err := newModel(options{
		hmi:      cfg,
		sim:      simprinter.DefaultConfig(),
		interval: 20 * time.Millisecond,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:    func() time.Time { return h.now },
		copy: func(s string) error {
			h.copied = append(h.copied, s)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("newModel: %v", err)
	}
	h.m = m
	return h
}

func (h *simHarness) key(msg tea.KeyMsg) tea.Cmd {
	_, cmd := h.m.Update(msg)
	return cmd
}

func (h *simHarness) runes(s string) tea.Cmd {
	return h.key(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (h *simHarness) tick() {
	h.now = h.now.Add(h.m.interval)
	h.m.Update(tickMsg(h.now))
}

// TestModel_KeysDriveController tests that arrow keys and enter reach the menu
func TestModel_KeysDriveController(t *testing.T) {
	h := newSimHarness(t)

	h.key(tea.KeyMsg{Type: tea.KeyDown})
	h.tick()
	if got := h.m.ctrl.Snapshot().Selected; got != 1 {
		t.Fatalf("expected selection 1, got %d", got)
	}

	h.key(tea.KeyMsg{Type: tea.KeyUp})
	h.tick()
	h.key(tea.KeyMsg{Type: tea.KeyEnter})
	h.tick()

	if got := h.m.ctrl.Snapshot().Screen; got != "select_file" {
		t.Errorf("expected select_file, got %q", got)
	}
	if last := h.m.events[len(h.m.events)-1]; !strings.HasSuffix(last, "screen select_file") {
		t.Errorf("expected screen change logged, got %q", last)
	}
}

// TestModel_CardToggle tests card removal from the keyboard
func TestModel_CardToggle(t *testing.T) {
	h := newSimHarness(t)

	h.runes("c")
	h.tick()

	if h.m.sim.Mounted() {
		t.Error("expected card removed in the simulator")
	}
	if h.m.ctrl.Snapshot().Mounted {
		t.Error("expected controller to see the card removed")
	}

	h.runes("c")
	h.tick()
	if !h.m.ctrl.Snapshot().Mounted {
		t.Error("expected card inserted again")
	}
}

// TestModel_RunoutToggle tests the filament sensor key
func TestModel_RunoutToggle(t *testing.T) {
	h := newSimHarness(t)

	h.runes("r")
	if out, _ := h.m.sim.Runout(); !out {
		t.Error("expected runout after toggle")
	}
	h.runes("r")
	if out, _ := h.m.sim.Runout(); out {
		t.Error("expected filament present after second toggle")
	}
}

// TestModel_PromptCommand tests the command prompt
func TestModel_PromptCommand(t *testing.T) {
	h := newSimHarness(t)

	h.runes(":")
	if !h.m.prompt.Focused() {
		t.Fatal("expected prompt focused")
	}
	h.runes("cw 3")
	if got := h.m.prompt.Value(); got != "cw 3" {
		t.Fatalf("expected prompt value %q, got %q", "cw 3", got)
	}

	// Keys go to the prompt while it is focused.
	if h.m.queue.Len() != 0 {
		t.Fatalf("expected no input while typing, got %d", h.m.queue.Len())
	}

	h.key(tea.KeyMsg{Type: tea.KeyEnter})
	if h.m.prompt.Focused() {
		t.Error("expected prompt closed after enter")
	}
	if got := h.m.queue.Len(); got != 3 {
		t.Errorf("expected 3 queued inputs, got %d", got)
	}
}

// TestModel_PromptError tests that a bad command shows an error status
func TestModel_PromptError(t *testing.T) {
	h := newSimHarness(t)

	h.runes(":")
	h.runes("notify coffee_ready")
	h.key(tea.KeyMsg{Type: tea.KeyEnter})

	if !h.m.statusErr || !strings.Contains(h.m.status, "coffee_ready") {
		t.Errorf("expected error status naming the notification, got %q", h.m.status)
	}
}

// TestModel_PromptEscape tests cancelling the prompt
func TestModel_PromptEscape(t *testing.T) {
	h := newSimHarness(t)

	h.runes(":")
	h.runes("press")
	h.key(tea.KeyMsg{Type: tea.KeyEsc})

	if h.m.prompt.Focused() || h.m.prompt.Value() != "" {
		t.Error("expected prompt closed and cleared")
	}
	if h.m.queue.Len() != 0 {
		t.Errorf("expected nothing queued, got %d", h.m.queue.Len())
	}
}

// TestModel_NotifyLogged tests that notifications are logged and delivered
func TestModel_NotifyLogged(t *testing.T) {
	h := newSimHarness(t)

	if err := h.m.runCommand("notify homing_complete"); err != nil {
		t.Fatalf("runCommand: %v", err)
	}
	if last := h.m.events[len(h.m.events)-1]; !strings.HasSuffix(last, "notify homing_complete") {
		t.Errorf("expected notification logged, got %q", last)
	}
}

// TestModel_CopySnapshot tests copying state to the clipboard
func TestModel_CopySnapshot(t *testing.T) {
	h := newSimHarness(t)

	h.runes("y")
	if len(h.copied) != 1 {
		t.Fatalf("expected 1 copy, got %d", len(h.copied))
	}
	if !strings.Contains(h.copied[0], `"screen": "main_menu"`) {
		t.Errorf("expected snapshot JSON, got %s", h.copied[0])
	}
	if h.m.statusErr {
		t.Errorf("expected success status, got %q", h.m.status)
	}

	h.m.copy = func(string) error { return errors.New("no clipboard utility") }
	h.runes("y")
	if !h.m.statusErr {
		t.Error("expected error status when copy fails")
	}
}

// TestModel_Quit tests the quit binding
func TestModel_Quit(t *testing.T) {
	h := newSimHarness(t)

	cmd := h.runes("q")
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

// TestModel_View tests that the view shows the panel and the state
func TestModel_View(t *testing.T) {
	h := newSimHarness(t)
	h.m.Update(tea.WindowSizeMsg{Width: 120, Height: 48})
	h.tick()

	v := h.m.View()
	for _, want := range []string{"printer", "events", "main_menu", "inserted"} {
		if !strings.Contains(v, want) {
			t.Errorf("expected %q in view", want)
		}
	}
}
