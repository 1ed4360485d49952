package hmi

import "time"

// Snapshot is an immutable view of the controller for observers.
type Snapshot struct {
	At       time.Time `json:"at"`
	Screen   string    `json:"screen"`
	Selected int       `json:"selected"`
	Language string    `json:"language"`
	Mounted  bool      `json:"mounted"`

	Session        string `json:"session"`
	File           string `json:"file,omitempty"`
	Percent        int    `json:"percent"`
	ElapsedSec     int64  `json:"elapsed_sec"`
	RemainingSec   int64  `json:"remaining_sec"`
	RemainingKnown bool   `json:"remaining_known"`
	Heating        bool   `json:"heating"`
	PausePending   bool   `json:"pause_pending"`

	Hotend   ThermalSnapshot `json:"hotend"`
	Bed      ThermalSnapshot `json:"bed"`
	Fan      int             `json:"fan"`
	Feedrate int             `json:"feedrate_percent"`
	Position Position        `json:"position"`

	Filament FilamentSnapshot  `json:"filament"`
	Recovery *RecoverySnapshot `json:"recovery,omitempty"`
	Editor   *EditorSnapshot   `json:"editor,omitempty"`
}

type ThermalSnapshot struct {
	Temperature float64 `json:"temperature"`
	Target      int     `json:"target"`
}

type FilamentSnapshot struct {
	Enabled   bool `json:"enabled"`
	Armed     bool `json:"armed"`
	Triggered bool `json:"triggered"`
	Awaiting  bool `json:"awaiting"`
	Replaying bool `json:"replaying"`
}

type RecoverySnapshot struct {
	File         string `json:"file"`
	Offset       int64  `json:"offset"`
	HighlightYes bool   `json:"highlight_yes"`
}

type EditorSnapshot struct {
	Quantity string  `json:"quantity"`
	Value    float64 `json:"value"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// Screen returns the active screen.
func (c *Controller) Screen() Screen { return c.screen }

// Session returns the print session. Callers must not mutate it.
func (c *Controller) Session() *Session { return c.session }

// Snapshot copies the observable state.
func (c *Controller) Snapshot() Snapshot {
	remaining, known := c.session.Remaining()
	s := Snapshot{
		At:             c.now(),
		Screen:         c.screen.String(),
		Selected:       c.sel.Current(),
		Language:       string(c.settings.Language),
		Mounted:        c.mounted,
		Session:        c.session.State().String(),
		File:           c.session.File(),
		Percent:        c.session.Percent(),
		ElapsedSec:     int64(c.session.Elapsed() / time.Second),
		RemainingSec:   int64(remaining / time.Second),
		RemainingKnown: known,
		Heating:        c.session.Heating(),
		PausePending:   c.session.PausePending(),
		Hotend: ThermalSnapshot{
			Temperature: c.machine.Temperature(HeaterHotend),
			Target:      c.machine.Target(HeaterHotend),
		},
		Bed: ThermalSnapshot{
			Temperature: c.machine.Temperature(HeaterBed),
			Target:      c.machine.Target(HeaterBed),
		},
		Fan:      c.machine.FanSpeed(),
		Feedrate: c.machine.FeedratePercent(),
		Position: c.machine.Position(),
		Filament: FilamentSnapshot{
			Enabled:   c.filament.Enabled(),
			Armed:     c.filament.Armed(),
			Triggered: c.filament.Triggered(),
			Awaiting:  c.filament.Awaiting(),
			Replaying: c.filament.Replaying(),
		},
	}
	if c.ticket != nil {
		s.Recovery = &RecoverySnapshot{
			File:         c.ticket.Record.Filename,
			Offset:       c.ticket.Record.Offset,
			HighlightYes: c.ticket.HighlightYes(),
		}
	}
	if c.screen.IsEditor() && c.editor.Active() {
		q := c.editor.Quantity()
		s.Editor = &EditorSnapshot{Quantity: q.Name, Value: c.editor.Value(), Min: q.Min, Max: q.Max}
	}
	return s
}
