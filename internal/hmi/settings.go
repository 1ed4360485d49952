package hmi

// Language selects the built-in label set.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageChinese Language = "zh"
)

// Toggle returns the other language.
func (l Language) Toggle() Language {
	if l == LanguageChinese {
		return LanguageEnglish
	}
	return LanguageChinese
}

// Preset is a material preheat profile.
type Preset struct {
	Hotend int `yaml:"hotend" json:"hotend"`
	Bed    int `yaml:"bed" json:"bed"`
	Fan    int `yaml:"fan" json:"fan"`
}

// AxisValues holds one number per axis.
type AxisValues struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
	E float64 `yaml:"e" json:"e"`
}

// Get returns the value for axis a.
func (v AxisValues) Get(a Axis) float64 {
	switch a {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	case AxisZ:
		return v.Z
	default:
		return v.E
	}
}

// Set stores the value for axis a.
func (v *AxisValues) Set(a Axis, f float64) {
	switch a {
	case AxisX:
		v.X = f
	case AxisY:
		v.Y = f
	case AxisZ:
		v.Z = f
	default:
		v.E = f
	}
}

// Settings is everything the user can tune and persist from the display.
type Settings struct {
	Language        Language   `yaml:"language" json:"language"`
	RunoutEnabled   bool       `yaml:"runout_enabled" json:"runout_enabled"`
	PLA             Preset     `yaml:"pla" json:"pla"`
	ABS             Preset     `yaml:"abs" json:"abs"`
	MaxFeedrate     AxisValues `yaml:"max_feedrate" json:"max_feedrate"`
	MaxAcceleration AxisValues `yaml:"max_acceleration" json:"max_acceleration"`
	MaxJerk         AxisValues `yaml:"max_jerk" json:"max_jerk"`
	StepsPerMM      AxisValues `yaml:"steps_per_mm" json:"steps_per_mm"`
	ZOffset         float64    `yaml:"z_offset" json:"z_offset"`
}

// DefaultSettings returns the stock Ender-class defaults.
func DefaultSettings() Settings {
	return Settings{
		Language:        LanguageEnglish,
		RunoutEnabled:   true,
		PLA:             Preset{Hotend: 200, Bed: 60, Fan: 0},
		ABS:             Preset{Hotend: 240, Bed: 100, Fan: 0},
		MaxFeedrate:     AxisValues{X: 500, Y: 500, Z: 5, E: 25},
		MaxAcceleration: AxisValues{X: 500, Y: 500, Z: 100, E: 5000},
		MaxJerk:         AxisValues{X: 10, Y: 10, Z: 0.3, E: 5},
		StepsPerMM:      AxisValues{X: 80, Y: 80, Z: 400, E: 93},
	}
}

// Limits returns the per-axis values for kind.
func (s *Settings) Limits(kind LimitKind) *AxisValues {
	switch kind {
	case LimitAcceleration:
		return &s.MaxAcceleration
	case LimitJerk:
		return &s.MaxJerk
	case LimitSteps:
		return &s.StepsPerMM
	default:
		return &s.MaxFeedrate
	}
}

// Preset returns the preheat profile for material index 0 (PLA) or 1 (ABS).
func (s *Settings) Preset(material int) *Preset {
	if material == 1 {
		return &s.ABS
	}
	return &s.PLA
}

var limitKinds = [...]LimitKind{LimitFeedrate, LimitAcceleration, LimitJerk, LimitSteps}

// applySettings pushes persisted values into the machine.
func applySettings(m Machine, s Settings) {
	for _, kind := range limitKinds {
		lim := s.Limits(kind)
		for _, a := range Axes {
			if v := lim.Get(a); v > 0 {
				m.SetLimit(kind, a, v)
			}
		}
	}
	m.SetZOffset(s.ZOffset)
}

// captureSettings copies the machine's live values into s.
func captureSettings(m Machine, s *Settings) {
	for _, kind := range limitKinds {
		lim := s.Limits(kind)
		for _, a := range Axes {
			lim.Set(a, m.Limit(kind, a))
		}
	}
	s.ZOffset = m.ZOffset()
}
