package hmi

import "time"

// Profile describes the physical machine the display is attached to.
type Profile struct {
	AxisMin AxisValues
	AxisMax AxisValues

	HotendMin int
	HotendMax int
	BedMin    int
	BedMax    int

	// ExtrudeMinTemp guards manual extrusion from the axis-move menu.
	ExtrudeMinTemp int
	// ExtrudeMaxLength bounds one manual extrusion relative to the entry position.
	ExtrudeMaxLength float64

	ProbeOffsetMin float64
	ProbeOffsetMax float64

	// Feedrates in mm/min.
	HomingFeedrateXY float64
	HomingFeedrateZ  float64
	ExtrudeFeedrate  float64

	PrintSpeedMin int
	PrintSpeedMax int

	FilamentChangeTemp int
	ParkScript         string
	LoadScript         string
	UnloadScript       string

	// Defaults are the compile-time settings. Editor ceilings are twice these.
	Defaults Settings
}

// DefaultProfile returns a 220x220x250 bed-slinger.
func DefaultProfile() Profile {
	return Profile{
		AxisMin:            AxisValues{X: 0, Y: 0, Z: 0},
		AxisMax:            AxisValues{X: 220, Y: 220, Z: 250},
		HotendMin:          0,
		HotendMax:          260,
		BedMin:             0,
		BedMax:             110,
		ExtrudeMinTemp:     170,
		ExtrudeMaxLength:   200,
		ProbeOffsetMin:     -10,
		ProbeOffsetMax:     10,
		HomingFeedrateXY:   3000,
		HomingFeedrateZ:    240,
		ExtrudeFeedrate:    300,
		PrintSpeedMin:      10,
		PrintSpeedMax:      999,
		FilamentChangeTemp: 235,
		ParkScript:         "G1 F1200 X0 Y0",
		LoadScript:         "G92 Z0 E0\nG1 F800 Z10\nG1 F500 E350\nG1 F100 E500\nM400\nM104 S0",
		UnloadScript:       "G92 Z0 E0\nG1 F800 Z10\nG1 F500 E50\nG1 F800 E-600\nM400\nM104 S0",
		Defaults:           DefaultSettings(),
	}
}

// Config tunes the controller.
type Config struct {
	// Debounce is the minimum spacing between actionable events on menu
	// screens. Value editors are not debounced.
	Debounce time.Duration
	Rate     RateConfig

	RefreshInterval      time.Duration
	RemainingInterval    time.Duration
	RemainingGrace       time.Duration
	RecoverySaveInterval time.Duration
	// WaitTimeout bounds the homing and leveling wait screens. Zero waits
	// forever.
	WaitTimeout time.Duration

	// AbortKeepHeaters leaves targets alone when an abort settles.
	AbortKeepHeaters bool

	Profile Profile

	FirmwareVersion string
	BuildInfo       string
	WebURL          string
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		Debounce:             20 * time.Millisecond,
		Rate:                 DefaultRateConfig(),
		RefreshInterval:      2 * time.Second,
		RemainingInterval:    20 * time.Second,
		RemainingGrace:       5 * time.Minute,
		RecoverySaveInterval: 30 * time.Second,
		WaitTimeout:          5 * time.Minute,
		Profile:              DefaultProfile(),
		FirmwareVersion:      "dwinhmi",
	}
}
