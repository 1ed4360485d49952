package hmi

import "time"

// ============================================================================
// Collaborator ports
// ============================================================================
// The controller core never talks to hardware directly. Everything it needs
// from the display, the motion/thermal subsystem, the job subsystem and the
// persistence layer is declared here and implemented elsewhere.
// ============================================================================

// Color is an RGB565 display color.
type Color uint16

const (
	ColorBlack      Color = 0x0000
	ColorWhite      Color = 0xFFFF
	ColorBackground Color = 0x0000
	ColorSelect     Color = 0x33BB
	ColorLine       Color = 0x3A6A
	ColorRed        Color = 0xF800
	ColorPopup      Color = 0x31E8
)

// Font selects one of the display's built-in font sizes.
type Font uint8

const (
	FontMenu   Font = 0x01 // 8x16
	FontStatus Font = 0x02 // 10x20
	FontHeader Font = 0x03 // 12x24
)

// Rect is an inclusive pixel rectangle.
type Rect struct {
	X0, Y0, X1, Y1 int
}

// ScrollDir is the direction of an area move.
type ScrollDir uint8

const (
	ScrollDirUp   ScrollDir = 2
	ScrollDirDown ScrollDir = 3
)

// Renderer draws primitives. Calls are synchronous and never fail from the
// caller's point of view; implementations log their own transport errors.
type Renderer interface {
	Clear(bg Color)
	Rect(fill bool, c Color, r Rect)
	Line(c Color, x0, y0, x1, y1 int)
	Text(f Font, fg, bg Color, x, y int, s string)
	// Number draws value as a fixed-point number with frac decimal places.
	Number(f Font, fg, bg Color, x, y int, value int64, digits, frac int)
	Icon(lib, id uint8, x, y int)
	Scroll(dir ScrollDir, dist int, bg Color, r Rect)
	Update()
}

// Media is the removable-media and job-streaming subsystem.
type Media interface {
	Mounted() bool
	// Files lists printable files in a stable sort order.
	Files() ([]string, error)
	Open(name string) error
	// Resume reopens name at a byte offset recorded before power loss.
	Resume(name string, offset int64) error
	End()
	Printing() bool
	Paused() bool
	PercentDone() int
	Elapsed() time.Duration
	Offset() int64
}

// Heater selects a thermal zone.
type Heater int

const (
	HeaterHotend Heater = iota
	HeaterBed
)

func (h Heater) String() string {
	if h == HeaterBed {
		return "bed"
	}
	return "hotend"
}

// Axis selects a motion axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
	AxisE
)

// Axes lists every axis in display order.
var Axes = [...]Axis{AxisX, AxisY, AxisZ, AxisE}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	case AxisE:
		return "E"
	}
	return "?"
}

// LimitKind selects a planner limit.
type LimitKind int

const (
	LimitFeedrate LimitKind = iota
	LimitAcceleration
	LimitJerk
	LimitSteps
)

func (k LimitKind) String() string {
	switch k {
	case LimitFeedrate:
		return "max_feedrate"
	case LimitAcceleration:
		return "max_acceleration"
	case LimitJerk:
		return "max_jerk"
	case LimitSteps:
		return "steps_per_mm"
	}
	return "unknown"
}

// Position is the toolhead's logical position in mm.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	E float64 `json:"e"`
}

// Get returns the coordinate for axis a.
func (p Position) Get(a Axis) float64 {
	switch a {
	case AxisX:
		return p.X
	case AxisY:
		return p.Y
	case AxisZ:
		return p.Z
	default:
		return p.E
	}
}

// Machine is the motion and thermal subsystem. Inject is fire-and-forget.
type Machine interface {
	Inject(script string)
	HasQueuedMoves() bool

	Temperature(h Heater) float64
	Target(h Heater) int
	SetTarget(h Heater, celsius int)
	FanSpeed() int
	SetFanSpeed(speed int)
	DisableHeaters()

	// FinishAndDisable flushes the planner and releases the steppers.
	FinishAndDisable()
	Position() Position
	FeedratePercent() int
	SetFeedratePercent(pct int)

	Limit(kind LimitKind, axis Axis) float64
	SetLimit(kind LimitKind, axis Axis, v float64)
	ZOffset() float64
	SetZOffset(z float64)
}

// SettingsStore persists tuned values.
type SettingsStore interface {
	Load() (Settings, error)
	Save(Settings) error
}

// RecoveryRecord is the persisted power-loss ticket.
type RecoveryRecord struct {
	Filename        string        `json:"filename"`
	Offset          int64         `json:"offset"`
	HotendTarget    int           `json:"hotend_target"`
	BedTarget       int           `json:"bed_target"`
	FanSpeed        int           `json:"fan_speed"`
	FeedratePercent int           `json:"feedrate_percent"`
	Z               float64       `json:"z"`
	Elapsed         time.Duration `json:"elapsed"`
	SavedAt         time.Time     `json:"saved_at"`
}

// Valid reports whether the record can drive a resume.
func (r RecoveryRecord) Valid() bool {
	return r.Filename != "" && r.Offset >= 0
}

// RecoveryStore persists the power-loss ticket. Load returns ErrNoRecord
// when nothing is stored. Cancel retires the active record; Purge erases
// everything.
type RecoveryStore interface {
	Load() (RecoveryRecord, error)
	Save(RecoveryRecord) error
	Cancel() error
	Purge() error
}

// JobRecord is one entry in the print history.
type JobRecord struct {
	File    string        `json:"file"`
	Outcome string        `json:"outcome"`
	Percent int           `json:"percent"`
	Elapsed time.Duration `json:"elapsed"`
	Started time.Time     `json:"started"`
	Ended   time.Time     `json:"ended"`
}

// History records finished and aborted jobs.
type History interface {
	Record(JobRecord) error
}

// RunoutSensor reads the filament sensor. true means no filament.
type RunoutSensor interface {
	Runout() (bool, error)
}

// Buzzer plays a single tone and returns when it has been queued.
type Buzzer interface {
	Tone(d time.Duration, hz int)
}
