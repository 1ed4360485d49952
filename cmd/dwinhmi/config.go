package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"dwinhmi/internal/hmi"
	"dwinhmi/internal/moonraker"
	"dwinhmi/internal/simprinter"
)

// Config is the top-level YAML configuration for the dwinhmi daemon.
//
// Defaults live in DefaultConfig and invariants in Validate so the rest of the
// code can assume a well-formed config.
type Config struct {
	Encoder EncoderConfig `yaml:"encoder"`
	Display DisplayConfig `yaml:"display"`
	Printer PrinterConfig `yaml:"printer"`
	Machine MachineConfig `yaml:"machine"`
	HMI     HMIConfig     `yaml:"hmi"`
	Storage StorageConfig `yaml:"storage"`
	Buzzer  BuzzerConfig  `yaml:"buzzer"`
	IPC     IPCConfig     `yaml:"ipc"`
	Web     WebConfig     `yaml:"web"`
	Logging LoggingConfig `yaml:"logging"`
}

type EncoderConfig struct {
	Devices      []string `yaml:"devices"` // evdev nodes; empty means IPC/HTTP input only
	DebounceMS   int      `yaml:"debounce_ms"`
	RateWindowMS int      `yaml:"rate_window_ms"`
	Rate5        float64  `yaml:"rate_x5_steps_per_sec"`
	Rate10       float64  `yaml:"rate_x10_steps_per_sec"`
	Rate100      float64  `yaml:"rate_x100_steps_per_sec"`
}

type DisplayConfig struct {
	Backend string `yaml:"backend"` // "dwin" or "none"
	Device  string `yaml:"device"`
	Baud    int    `yaml:"baud"`
}

type PrinterConfig struct {
	Backend   string          `yaml:"backend"` // "sim" or "moonraker"
	Moonraker MoonrakerConfig `yaml:"moonraker"`
}

type MoonrakerConfig struct {
	WsURL        string `yaml:"ws_url"`
	TimeoutMS    int    `yaml:"timeout_ms"`
	PollMS       int    `yaml:"poll_ms"`
	RunoutSensor string `yaml:"runout_sensor"`
}

// MachineConfig describes the physical printer.
type MachineConfig struct {
	AxisMax          AxisConfig `yaml:"axis_max"`
	HotendMax        int        `yaml:"hotend_max"`
	BedMax           int        `yaml:"bed_max"`
	ExtrudeMinTemp   int        `yaml:"extrude_min_temp"`
	ProbeOffsetRange float64    `yaml:"probe_offset_range"`

	MaxFeedrate     AxisConfig `yaml:"max_feedrate"`
	MaxAcceleration AxisConfig `yaml:"max_acceleration"`
	MaxJerk         AxisConfig `yaml:"max_jerk"`
	StepsPerMM      AxisConfig `yaml:"steps_per_mm"`

	ParkScript   string `yaml:"park_script"`
	LoadScript   string `yaml:"load_script"`
	UnloadScript string `yaml:"unload_script"`
}

type AxisConfig struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
	E float64 `yaml:"e,omitempty"`
}

type HMIConfig struct {
	UpdateHz            int    `yaml:"update_hz"`
	RefreshMS           int    `yaml:"refresh_ms"`
	RemainingUpdateMS   int    `yaml:"remaining_update_ms"`
	RemainingGraceSec   int    `yaml:"remaining_grace_sec"`
	RecoverySaveSec     int    `yaml:"recovery_save_sec"`
	WaitTimeoutSec      int    `yaml:"wait_timeout_sec"`
	AbortKeepHeaters    bool   `yaml:"abort_keep_heaters"`
	FirmwareVersion     string `yaml:"firmware_version"`
	InputQueueLimit     int    `yaml:"input_queue_limit"`
	BroadcastCoalesceMS int    `yaml:"broadcast_coalesce_ms"`
}

type StorageConfig struct {
	SettingsFile string `yaml:"settings_file"`
	Database     string `yaml:"database"`
}

type BuzzerConfig struct {
	Enabled bool `yaml:"enabled"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type WebConfig struct {
	Port      int    `yaml:"port"`
	PublicURL string `yaml:"public_url"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	p := hmi.DefaultProfile()
	d := p.Defaults
	rate := hmi.DefaultRateConfig()
	return Config{
		Encoder: EncoderConfig{
			Devices:      []string{},
			DebounceMS:   defaultDebounceMS,
			RateWindowMS: int(rate.Window / time.Millisecond),
			Rate5:        rate.Threshold5,
			Rate10:       rate.Threshold10,
			Rate100:      rate.Threshold100,
		},
		Display: DisplayConfig{
			Backend: "dwin",
			Device:  "/dev/ttyS2",
			Baud:    defaultBaud,
		},
		Printer: PrinterConfig{
			Backend: "sim",
			Moonraker: MoonrakerConfig{
				WsURL:        "ws://127.0.0.1:7125/websocket",
				TimeoutMS:    defaultMoonrakerTimeoutMS,
				PollMS:       defaultMoonrakerPollMS,
				RunoutSensor: "runout",
			},
		},
		Machine: MachineConfig{
			AxisMax:          AxisConfig{X: p.AxisMax.X, Y: p.AxisMax.Y, Z: p.AxisMax.Z},
			HotendMax:        p.HotendMax,
			BedMax:           p.BedMax,
			ExtrudeMinTemp:   p.ExtrudeMinTemp,
			ProbeOffsetRange: p.ProbeOffsetMax,
			MaxFeedrate:      axisConfig(d.MaxFeedrate),
			MaxAcceleration:  axisConfig(d.MaxAcceleration),
			MaxJerk:          axisConfig(d.MaxJerk),
			StepsPerMM:       axisConfig(d.StepsPerMM),
			ParkScript:       p.ParkScript,
			LoadScript:       p.LoadScript,
			UnloadScript:     p.UnloadScript,
		},
		HMI: HMIConfig{
			UpdateHz:            defaultUpdateHz,
			RefreshMS:           2000,
			RemainingUpdateMS:   20000,
			RemainingGraceSec:   300,
			RecoverySaveSec:     30,
			WaitTimeoutSec:      300,
			FirmwareVersion:     "dwinhmi " + version,
			InputQueueLimit:     64,
			BroadcastCoalesceMS: defaultBroadcastCoalesceMS,
		},
		Storage: StorageConfig{
			SettingsFile: "~/.config/dwinhmi/settings.yaml",
			Database:     "~/.local/share/dwinhmi/dwinhmi.db",
		},
		Buzzer: BuzzerConfig{
			Enabled: false,
		},
		IPC: IPCConfig{
			SocketPath: "/tmp/dwinhmi.sock",
		},
		Web: WebConfig{
			Port: 3002,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func axisConfig(v hmi.AxisValues) AxisConfig {
	return AxisConfig{X: v.X, Y: v.Y, Z: v.Z, E: v.E}
}

func (a AxisConfig) values() hmi.AxisValues {
	return hmi.AxisValues{X: a.X, Y: a.Y, Z: a.Z, E: a.E}
}

// LoadConfigFile reads and parses a YAML config file over the defaults.
// Unknown fields and trailing documents are rejected.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides carries flag values that take precedence over the file.
// Each override is only applied when its pointer is non-nil.
type FlagOverrides struct {
	EncoderDevice *string

	DisplayBackend *string
	DisplayDevice  *string
	DisplayBaud    *int

	PrinterBackend *string
	MoonrakerWsURL *string

	UpdateHz *int

	SettingsFile *string
	Database     *string

	BuzzerEnabled *bool
	IPCSocketPath *string
	WebPort       *int
	PublicURL     *string

	LogLevel *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.EncoderDevice != nil {
		cfg.Encoder.Devices = []string{*o.EncoderDevice}
	}

	if o.DisplayBackend != nil {
		cfg.Display.Backend = *o.DisplayBackend
	}
	if o.DisplayDevice != nil {
		cfg.Display.Device = *o.DisplayDevice
	}
	if o.DisplayBaud != nil {
		cfg.Display.Baud = *o.DisplayBaud
	}

	if o.PrinterBackend != nil {
		cfg.Printer.Backend = *o.PrinterBackend
	}
	if o.MoonrakerWsURL != nil {
		cfg.Printer.Moonraker.WsURL = *o.MoonrakerWsURL
	}

	if o.UpdateHz != nil {
		cfg.HMI.UpdateHz = *o.UpdateHz
	}

	if o.SettingsFile != nil {
		cfg.Storage.SettingsFile = *o.SettingsFile
	}
	if o.Database != nil {
		cfg.Storage.Database = *o.Database
	}

	if o.BuzzerEnabled != nil {
		cfg.Buzzer.Enabled = *o.BuzzerEnabled
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.WebPort != nil {
		cfg.Web.Port = *o.WebPort
	}
	if o.PublicURL != nil {
		cfg.Web.PublicURL = *o.PublicURL
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// It is called after defaults, file and overrides are applied.
func (c *Config) Validate() error {
	for i, dev := range c.Encoder.Devices {
		if dev == "" {
			return fmt.Errorf("encoder.devices[%d] is empty", i)
		}
	}
	if c.Encoder.DebounceMS < 0 {
		return errors.New("encoder.debounce_ms must be >= 0")
	}
	if c.Encoder.RateWindowMS <= 0 {
		return errors.New("encoder.rate_window_ms must be > 0")
	}
	if !(c.Encoder.Rate5 <= c.Encoder.Rate10 && c.Encoder.Rate10 <= c.Encoder.Rate100) {
		return errors.New("encoder rate thresholds must be ascending (x5 <= x10 <= x100)")
	}

	switch c.Display.Backend {
	case "dwin":
		if c.Display.Device == "" {
			return errors.New("display.device must not be empty for the dwin backend")
		}
		if c.Display.Baud <= 0 {
			return errors.New("display.baud must be > 0")
		}
	case "none":
	default:
		return fmt.Errorf("display.backend must be %q or %q", "dwin", "none")
	}

	switch c.Printer.Backend {
	case "sim":
	case "moonraker":
		if c.Printer.Moonraker.WsURL == "" {
			return errors.New("printer.moonraker.ws_url must not be empty")
		}
		if c.Printer.Moonraker.TimeoutMS <= 0 {
			return errors.New("printer.moonraker.timeout_ms must be > 0")
		}
		if c.Printer.Moonraker.PollMS <= 0 {
			return errors.New("printer.moonraker.poll_ms must be > 0")
		}
	default:
		return fmt.Errorf("printer.backend must be %q or %q", "sim", "moonraker")
	}

	m := c.Machine
	if m.AxisMax.X <= 0 || m.AxisMax.Y <= 0 || m.AxisMax.Z <= 0 {
		return errors.New("machine.axis_max values must be > 0")
	}
	if m.HotendMax <= 0 || m.BedMax <= 0 {
		return errors.New("machine.hotend_max and machine.bed_max must be > 0")
	}
	if m.ExtrudeMinTemp < 0 || m.ExtrudeMinTemp > m.HotendMax {
		return errors.New("machine.extrude_min_temp must be between 0 and machine.hotend_max")
	}
	if m.ProbeOffsetRange <= 0 {
		return errors.New("machine.probe_offset_range must be > 0")
	}

	if c.HMI.UpdateHz <= 0 || c.HMI.UpdateHz > 1000 {
		return errors.New("hmi.update_hz must be between 1 and 1000")
	}
	if c.HMI.RefreshMS <= 0 {
		return errors.New("hmi.refresh_ms must be > 0")
	}
	if c.HMI.RemainingUpdateMS <= 0 {
		return errors.New("hmi.remaining_update_ms must be > 0")
	}
	if c.HMI.RemainingGraceSec < 0 {
		return errors.New("hmi.remaining_grace_sec must be >= 0")
	}
	if c.HMI.RecoverySaveSec <= 0 {
		return errors.New("hmi.recovery_save_sec must be > 0")
	}
	if c.HMI.WaitTimeoutSec < 0 {
		return errors.New("hmi.wait_timeout_sec must be >= 0 (0 waits forever)")
	}

	if c.Web.Port < 0 || c.Web.Port > 65535 {
		return errors.New("web.port must be between 0 and 65535 (0 disables)")
	}

	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}

	return nil
}

// ToHMIConfig converts the file config into the controller's tuning.
func (c *Config) ToHMIConfig() hmi.Config {
	cfg := hmi.DefaultConfig()
	cfg.Debounce = time.Duration(c.Encoder.DebounceMS) * time.Millisecond
	cfg.Rate = hmi.RateConfig{
		Window:       time.Duration(c.Encoder.RateWindowMS) * time.Millisecond,
		Threshold5:   c.Encoder.Rate5,
		Threshold10:  c.Encoder.Rate10,
		Threshold100: c.Encoder.Rate100,
	}
	cfg.RefreshInterval = time.Duration(c.HMI.RefreshMS) * time.Millisecond
	cfg.RemainingInterval = time.Duration(c.HMI.RemainingUpdateMS) * time.Millisecond
	cfg.RemainingGrace = time.Duration(c.HMI.RemainingGraceSec) * time.Second
	cfg.RecoverySaveInterval = time.Duration(c.HMI.RecoverySaveSec) * time.Second
	cfg.WaitTimeout = time.Duration(c.HMI.WaitTimeoutSec) * time.Second
	cfg.AbortKeepHeaters = c.HMI.AbortKeepHeaters
	cfg.FirmwareVersion = c.HMI.FirmwareVersion
	cfg.BuildInfo = buildInfo()
	cfg.WebURL = c.Web.PublicURL
	cfg.Profile = c.ToProfile()
	return cfg
}

// ToProfile builds the machine profile from the machine section.
func (c *Config) ToProfile() hmi.Profile {
	m := c.Machine
	p := hmi.DefaultProfile()
	p.AxisMax = hmi.AxisValues{X: m.AxisMax.X, Y: m.AxisMax.Y, Z: m.AxisMax.Z}
	p.HotendMax = m.HotendMax
	p.BedMax = m.BedMax
	p.ExtrudeMinTemp = m.ExtrudeMinTemp
	p.ProbeOffsetMin = -m.ProbeOffsetRange
	p.ProbeOffsetMax = m.ProbeOffsetRange
	p.ParkScript = m.ParkScript
	p.LoadScript = m.LoadScript
	p.UnloadScript = m.UnloadScript

	d := hmi.DefaultSettings()
	d.MaxFeedrate = m.MaxFeedrate.values()
	d.MaxAcceleration = m.MaxAcceleration.values()
	d.MaxJerk = m.MaxJerk.values()
	d.StepsPerMM = m.StepsPerMM.values()
	p.Defaults = d
	return p
}

// ToSimConfig seeds the simulated printer with the machine defaults.
func (c *Config) ToSimConfig() simprinter.Config {
	cfg := simprinter.DefaultConfig()
	cfg.Limits = c.ToProfile().Defaults
	return cfg
}

// ToMoonrakerConfig converts the moonraker section.
func (c *Config) ToMoonrakerConfig() moonraker.Config {
	cfg := moonraker.DefaultConfig()
	cfg.PollInterval = time.Duration(c.Printer.Moonraker.PollMS) * time.Millisecond
	cfg.RunoutSensor = c.Printer.Moonraker.RunoutSensor
	cfg.Limits = c.ToProfile().Defaults
	return cfg
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
