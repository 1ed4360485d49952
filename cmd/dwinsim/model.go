package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dwinhmi/internal/hmi"
	"dwinhmi/internal/ipc"
	"dwinhmi/internal/simprinter"
	"dwinhmi/internal/termview"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#52525b"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#fde68a"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa")).
			Width(9)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))
)

const maxEventLines = 200

type tickMsg time.Time

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// options configures a simulator session.
type options struct {
	hmi      hmi.Config
	sim      simprinter.Config
	interval time.Duration
	logger   *slog.Logger
	clock    func() time.Time
	copy     func(string) error
}

// model drives a controller against the simulated printer and shows the
// panel in the terminal.
type model struct {
	ctrl   *hmi.Controller
	sim    *simprinter.Printer
	queue  *hmi.InputQueue
	canvas *termview.Canvas
	logger *slog.Logger
	now    func() time.Time
	copy   func(string) error

	interval time.Duration
	lastTick time.Time

	keys   keyMap
	help   help.Model
	prompt textinput.Model
	log    viewport.Model

	events     []string
	lastScreen string
	status     string
	statusErr  bool

	width  int
	height int
}

func newModel(opts options) (*model, error) {
	if opts.logger == nil {
		opts.logger = slog.Default()
	}
	if opts.clock == nil {
		opts.clock = time.Now
	}
	if opts.copy == nil {
		opts.copy = clipboard.WriteAll
	}
	if opts.interval <= 0 {
		opts.interval = 20 * time.Millisecond
	}

	ti := textinput.New()
	ti.Prompt = ": "
	ti.Placeholder = "cw 3 | notify homing_complete | card remove | runout on"
	ti.CharLimit = 64

	m := &model{
		queue:    hmi.NewInputQueue(64),
		canvas:   termview.New(),
		logger:   opts.logger,
		now:      opts.clock,
		copy:     opts.copy,
		interval: opts.interval,
		keys:     newKeyMap(),
		help:     help.New(),
		prompt:   ti,
		log:      viewport.New(40, 12),
	}
	m.sim = simprinter.New(opts.sim, opts.logger, m.onNotify)

	ctrl, err := hmi.New(opts.hmi, hmi.Deps{
		Renderer: m.canvas,
		Media:    m.sim,
		Machine:  m.sim,
		Input:    m.queue,
		Runout:   m.sim,
		Logger:   opts.logger,
		Clock:    opts.clock,
	})
	if err != nil {
		return nil, err
	}
	m.ctrl = ctrl
	m.ctrl.Init()
	m.lastTick = m.now()
	m.lastScreen = m.ctrl.Snapshot().Screen
	m.logEvent("screen " + m.lastScreen)
	return m, nil
}

func (m *model) Init() tea.Cmd {
	return tick(m.interval)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.log.Width = max(msg.Width-termview.PanelWidth/termview.CellWidth-4, 24)
		m.log.Height = max(msg.Height-20, 4)
		return m, nil

	case tickMsg:
		now := time.Time(msg)
		m.step(now.Sub(m.lastTick))
		m.lastTick = now
		return m, tick(m.interval)

	case tea.KeyMsg:
		if m.prompt.Focused() {
			return m.updatePrompt(msg)
		}
		return m.updateKeys(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.cw):
		m.queue.Push(hmi.InputIncrease)
	case key.Matches(msg, m.keys.ccw):
		m.queue.Push(hmi.InputDecrease)
	case key.Matches(msg, m.keys.confirm):
		m.queue.Push(hmi.InputConfirm)
	case key.Matches(msg, m.keys.card):
		m.apply(ipc.SimMedia{Mounted: !m.sim.Mounted()})
	case key.Matches(msg, m.keys.runout):
		out, _ := m.sim.Runout()
		m.apply(ipc.SimRunout{Runout: !out})
	case key.Matches(msg, m.keys.command):
		m.prompt.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.copySnap):
		m.copySnapshot()
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m *model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		line := m.prompt.Value()
		m.prompt.Reset()
		m.prompt.Blur()
		if err := m.runCommand(line); err != nil {
			m.setStatus(err.Error(), true)
		}
		return m, nil
	case tea.KeyEsc, tea.KeyCtrlC:
		m.prompt.Reset()
		m.prompt.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

// step advances the printer and the controller by dt.
func (m *model) step(dt time.Duration) {
	if dt <= 0 || dt > 4*m.interval {
		dt = m.interval
	}
	m.sim.Step(dt)
	m.ctrl.Tick()

	if s := m.ctrl.Snapshot().Screen; s != m.lastScreen {
		m.lastScreen = s
		m.logEvent("screen " + s)
	}
}

// onNotify receives printer callbacks from the simulator.
func (m *model) onNotify(n hmi.Notification) {
	m.ctrl.Notify(n)
	m.logEvent("notify " + n.String())
}

func (m *model) runCommand(line string) error {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	ev, err := ipc.ParseCommandLine(line)
	if err != nil {
		return err
	}
	return m.apply(ev)
}

// apply handles one event the way the daemon loop would.
func (m *model) apply(ev ipc.Event) error {
	switch ev := ev.(type) {
	case ipc.Input:
		inputs, err := ev.Inputs()
		if err != nil {
			return err
		}
		for _, in := range inputs {
			m.queue.Push(in)
		}
	case ipc.Notify:
		n, err := ev.Notification()
		if err != nil {
			return err
		}
		m.onNotify(n)
	case ipc.SimMedia:
		m.sim.SetMounted(ev.Mounted)
		if ev.Mounted {
			m.logEvent("card inserted")
		} else {
			m.logEvent("card removed")
		}
	case ipc.SimRunout:
		m.sim.SetRunout(ev.Runout)
		m.logEvent(fmt.Sprintf("runout %t", ev.Runout))
	default:
		return fmt.Errorf("unsupported event %T", ev)
	}
	return nil
}

func (m *model) copySnapshot() {
	b, err := json.MarshalIndent(m.ctrl.Snapshot(), "", "  ")
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	if err := m.copy(string(b)); err != nil {
		m.setStatus("copy failed: "+err.Error(), true)
		return
	}
	m.setStatus("state copied to clipboard", false)
}

func (m *model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m *model) logEvent(s string) {
	line := m.now().Format("15:04:05.000") + " " + s
	m.events = append(m.events, line)
	if len(m.events) > maxEventLines {
		m.events = m.events[len(m.events)-maxEventLines:]
	}
	m.log.SetContent(strings.Join(m.events, "\n"))
	m.log.GotoBottom()
}

// ── View ─────────────────────────────────────────────────────────

func (m *model) View() string {
	panel := panelStyle.Render(m.canvas.View())
	side := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("printer"),
		m.stateView(),
		"",
		titleStyle.Render("events"),
		m.log.View(),
	)
	body := lipgloss.JoinHorizontal(lipgloss.Top, panel, "  ", side)

	var footer string
	switch {
	case m.prompt.Focused():
		footer = m.prompt.View()
	case m.statusErr:
		footer = errorStyle.Render(m.status)
	default:
		footer = statusStyle.Render(m.status)
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, footer, m.help.View(m.keys))
}

func (m *model) stateView() string {
	s := m.ctrl.Snapshot()
	runout, err := m.sim.Runout()
	filament := "present"
	switch {
	case err != nil:
		filament = "unknown"
	case runout:
		filament = "RUNOUT"
	}
	card := "removed"
	if s.Mounted {
		card = "inserted"
	}
	session := s.Session
	if s.File != "" {
		session += " " + s.File
	}

	rows := [][2]string{
		{"screen", fmt.Sprintf("%s [%d]", s.Screen, s.Selected)},
		{"session", session},
		{"progress", fmt.Sprintf("%d%%", s.Percent)},
		{"hotend", fmt.Sprintf("%.1f / %d °C", s.Hotend.Temperature, s.Hotend.Target)},
		{"bed", fmt.Sprintf("%.1f / %d °C", s.Bed.Temperature, s.Bed.Target)},
		{"fan", fmt.Sprintf("%d", s.Fan)},
		{"speed", fmt.Sprintf("%d%%", s.Feedrate)},
		{"position", fmt.Sprintf("X%.1f Y%.1f Z%.2f", s.Position.X, s.Position.Y, s.Position.Z)},
		{"card", card},
		{"filament", filament},
	}
	if s.Editor != nil {
		rows = append(rows, [2]string{"editing", fmt.Sprintf("%s = %g", s.Editor.Quantity, s.Editor.Value)})
	}

	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = labelStyle.Render(r[0]) + valueStyle.Render(r[1])
	}
	return strings.Join(lines, "\n")
}
