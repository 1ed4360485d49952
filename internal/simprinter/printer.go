// Package simprinter is an in-process printer: thermal ramps, a timed
// G-code queue and a byte-rate job streamer behind the hmi collaborator
// interfaces. It drives the terminal simulator and the daemon's "sim"
// backend.
package simprinter

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"dwinhmi/internal/hmi"
)

// Config tunes the simulation.
type Config struct {
	Ambient float64
	// Heating and cooling rates in °C per second.
	HotendRate float64
	BedRate    float64
	CoolRate   float64

	// JobRate is how many file bytes are consumed per second while printing.
	JobRate float64

	HomeTime  time.Duration
	LevelTime time.Duration
	// DefaultFeed is used for moves without an F word, in mm/min.
	DefaultFeed float64

	Limits  hmi.Settings
	Files   map[string]int64
	Mounted bool
}

// DefaultConfig returns a fast-forward simulation with two sample files.
func DefaultConfig() Config {
	return Config{
		Ambient:     25,
		HotendRate:  8,
		BedRate:     3,
		CoolRate:    2,
		JobRate:     4096,
		HomeTime:    2 * time.Second,
		LevelTime:   5 * time.Second,
		DefaultFeed: 3000,
		Limits:      hmi.DefaultSettings(),
		Files: map[string]int64{
			"benchy.gcode":      1 << 20,
			"calibration.gcode": 64 << 10,
		},
		Mounted: true,
	}
}

// heatTolerance is how close a heater must be to its target for M109/M190
// and the heating-complete callback.
const heatTolerance = 1.0

// op is a queued command with its remaining run time.
type op struct {
	l         line
	remaining time.Duration
	started   bool
}

type job struct {
	name    string
	size    int64
	offset  float64
	elapsed time.Duration
	paused  bool
	heated  bool
}

type limitKey struct {
	kind hmi.LimitKind
	axis hmi.Axis
}

// Printer is safe for concurrent use. Notifications are delivered outside
// the internal lock.
type Printer struct {
	mu     sync.Mutex
	cfg    Config
	logger *slog.Logger
	notify func(hmi.Notification)

	mounted bool
	files   map[string]int64
	job     *job

	temp     [2]float64
	target   [2]int
	fan      int
	feedrate int
	pos      hmi.Position
	feed     float64
	limits   map[limitKey]float64
	zOffset  float64
	runout   bool
	steppers bool

	queue []*op
}

// New builds a cold, idle printer. notify may be nil.
func New(cfg Config, logger *slog.Logger, notify func(hmi.Notification)) *Printer {
	if logger == nil {
		logger = slog.Default()
	}
	if notify == nil {
		notify = func(hmi.Notification) {}
	}
	if cfg.DefaultFeed <= 0 {
		cfg.DefaultFeed = 3000
	}
	p := &Printer{
		cfg:      cfg,
		logger:   logger,
		notify:   notify,
		mounted:  cfg.Mounted,
		files:    make(map[string]int64, len(cfg.Files)),
		temp:     [2]float64{cfg.Ambient, cfg.Ambient},
		feedrate: 100,
		feed:     cfg.DefaultFeed,
		limits:   make(map[limitKey]float64),
	}
	for name, size := range cfg.Files {
		p.files[name] = size
	}
	for _, kind := range []hmi.LimitKind{hmi.LimitFeedrate, hmi.LimitAcceleration, hmi.LimitJerk, hmi.LimitSteps} {
		lim := cfg.Limits.Limits(kind)
		for _, a := range hmi.Axes {
			p.limits[limitKey{kind, a}] = lim.Get(a)
		}
	}
	return p
}

// ============================================================================
// Simulation
// ============================================================================

// Step advances the simulation by dt.
func (p *Printer) Step(dt time.Duration) {
	if dt <= 0 {
		return
	}
	p.mu.Lock()
	var out []hmi.Notification
	p.stepThermal(dt)
	out = p.stepQueue(dt, out)
	out = p.stepJob(dt, out)
	p.mu.Unlock()

	for _, n := range out {
		p.logger.Debug("sim notification", "notification", n.String())
		p.notify(n)
	}
}

func (p *Printer) stepThermal(dt time.Duration) {
	rates := [2]float64{p.cfg.HotendRate, p.cfg.BedRate}
	for h := range p.temp {
		goal := float64(p.target[h])
		rate := rates[h]
		if goal < p.cfg.Ambient {
			goal = p.cfg.Ambient
		}
		if goal < p.temp[h] {
			rate = p.cfg.CoolRate
		}
		step := rate * dt.Seconds()
		diff := goal - p.temp[h]
		if math.Abs(diff) <= step {
			p.temp[h] = goal
		} else {
			p.temp[h] += math.Copysign(step, diff)
		}
	}
}

func (p *Printer) reached(h hmi.Heater) bool {
	return math.Abs(p.temp[h]-float64(p.target[h])) <= heatTolerance
}

func (p *Printer) stepQueue(dt time.Duration, out []hmi.Notification) []hmi.Notification {
	budget := dt
	for len(p.queue) > 0 {
		o := p.queue[0]
		if !o.started {
			o.started = true
			o.remaining = p.begin(o.l)
		}
		if p.blocked(o.l) {
			return out
		}
		if o.remaining > budget {
			o.remaining -= budget
			return out
		}
		budget -= o.remaining
		p.queue = p.queue[1:]
		out = p.finish(o.l, out)
	}
	return out
}

// begin applies a command's immediate effects and returns how long it runs.
func (p *Printer) begin(l line) time.Duration {
	switch l.code {
	case "G0", "G1":
		if f := l.get('F', 0); f > 0 {
			p.feed = f
		}
		var dist float64
		for _, a := range []struct {
			letter byte
			cur    float64
		}{{'X', p.pos.X}, {'Y', p.pos.Y}, {'Z', p.pos.Z}, {'E', p.pos.E}} {
			if v, ok := l.args[a.letter]; ok {
				dist = math.Max(dist, math.Abs(v-a.cur))
			}
		}
		speed := p.feed / 60 * float64(p.feedrate) / 100
		if speed <= 0 {
			return 0
		}
		return time.Duration(dist / speed * float64(time.Second))
	case "G28":
		return p.cfg.HomeTime
	case "G29":
		return p.cfg.LevelTime
	case "M104", "M109":
		p.target[hmi.HeaterHotend] = int(l.get('S', 0))
	case "M140", "M190":
		p.target[hmi.HeaterBed] = int(l.get('S', 0))
	}
	return 0
}

func (p *Printer) blocked(l line) bool {
	switch l.code {
	case "M109":
		return !p.reached(hmi.HeaterHotend)
	case "M190":
		return !p.reached(hmi.HeaterBed)
	}
	return false
}

// finish applies a command's completion effects.
func (p *Printer) finish(l line, out []hmi.Notification) []hmi.Notification {
	switch l.code {
	case "G0", "G1":
		p.steppers = true
		if v, ok := l.args['X']; ok {
			p.pos.X = v
		}
		if v, ok := l.args['Y']; ok {
			p.pos.Y = v
		}
		if v, ok := l.args['Z']; ok {
			p.pos.Z = v
		}
		if v, ok := l.args['E']; ok {
			p.pos.E = v
		}
	case "G28":
		p.steppers = true
		p.pos.X, p.pos.Y, p.pos.Z = 0, 0, 0
		out = append(out, hmi.NotifyHomingComplete)
	case "G29":
		out = append(out, hmi.NotifyLevelingComplete)
	case "G92":
		if l.has('X') {
			p.pos.X = l.args['X']
		}
		if l.has('Y') {
			p.pos.Y = l.args['Y']
		}
		if l.has('Z') {
			p.pos.Z = l.args['Z']
		}
		if l.has('E') {
			p.pos.E = l.args['E']
		}
	case "M84", "M18":
		p.steppers = false
	case "M106":
		p.fan = clamp(int(l.get('S', 255)), 0, 255)
	case "M107":
		p.fan = 0
	case "M220":
		p.feedrate = clamp(int(l.get('S', 100)), 1, 999)
	case "M23":
		if size, ok := p.files[l.text]; ok {
			p.job = &job{name: l.text, size: size, paused: true}
		}
	case "M26":
		if p.job != nil {
			p.job.offset = math.Min(l.get('S', 0), float64(p.job.size))
		}
	case "M24":
		if p.job != nil {
			p.job.paused = false
		}
	case "M25":
		if p.job != nil {
			p.job.paused = true
		}
	case "M400", "M500", "M104", "M109", "M140", "M190":
	default:
		p.logger.Debug("sim ignoring command", "code", l.code)
	}
	return out
}

func (p *Printer) stepJob(dt time.Duration, out []hmi.Notification) []hmi.Notification {
	j := p.job
	if j == nil || j.paused {
		return out
	}
	j.elapsed += dt

	hot := p.target[hmi.HeaterHotend] > 0 && p.reached(hmi.HeaterHotend)
	if !hot {
		return out
	}
	if !j.heated {
		j.heated = true
		out = append(out, hmi.NotifyHeatingComplete)
	}

	j.offset += p.cfg.JobRate * dt.Seconds() * float64(p.feedrate) / 100
	if j.offset >= float64(j.size) {
		j.offset = float64(j.size)
		p.logger.Info("sim job finished", "file", j.name, "elapsed", j.elapsed)
		p.job = nil
		out = append(out, hmi.NotifyPrintFinished)
	}
	return out
}

// ============================================================================
// Test and simulator controls
// ============================================================================

// SetMounted inserts or removes the card. Removal drops the running job.
func (p *Printer) SetMounted(m bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mounted = m
	if !m {
		p.job = nil
	}
}

// SetRunout sets the filament sensor state. true means no filament.
func (p *Printer) SetRunout(r bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runout = r
}

// AddFile places a file of size bytes on the card.
func (p *Printer) AddFile(name string, size int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.files[name] = size
}

// StepperEnabled reports whether the motors are holding.
func (p *Printer) StepperEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.steppers
}

// Queued returns the number of pending commands.
func (p *Printer) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// ============================================================================
// hmi.Media
// ============================================================================

func (p *Printer) Mounted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mounted
}

func (p *Printer) Files() ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.mounted {
		return nil, hmi.ErrNotMounted
	}
	names := make([]string, 0, len(p.files))
	for name := range p.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (p *Printer) Open(name string) error {
	return p.Resume(name, 0)
}

func (p *Printer) Resume(name string, offset int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.mounted {
		return hmi.ErrNotMounted
	}
	size, ok := p.files[name]
	if !ok {
		return fmt.Errorf("%w: %s", hmi.ErrNoSuchFile, name)
	}
	if offset < 0 || offset > size {
		offset = 0
	}
	p.job = &job{name: name, size: size, offset: float64(offset)}
	p.logger.Info("sim job started", "file", name, "offset", offset)
	return nil
}

func (p *Printer) End() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.job = nil
}

func (p *Printer) Printing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.job != nil && !p.job.paused
}

func (p *Printer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.job != nil && p.job.paused
}

func (p *Printer) PercentDone() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.job == nil || p.job.size == 0 {
		return 0
	}
	return int(p.job.offset * 100 / float64(p.job.size))
}

func (p *Printer) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.job == nil {
		return 0
	}
	return p.job.elapsed
}

func (p *Printer) Offset() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.job == nil {
		return 0
	}
	return int64(p.job.offset)
}

// ============================================================================
// hmi.Machine
// ============================================================================

func (p *Printer) Inject(script string) {
	lines := parseScript(script)
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, l := range lines {
		p.queue = append(p.queue, &op{l: l})
	}
}

func (p *Printer) HasQueuedMoves() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue) > 0
}

func (p *Printer) Temperature(h hmi.Heater) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.temp[h]
}

func (p *Printer) Target(h hmi.Heater) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target[h]
}

func (p *Printer) SetTarget(h hmi.Heater, celsius int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.target[h] = max(celsius, 0)
}

func (p *Printer) FanSpeed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fan
}

func (p *Printer) SetFanSpeed(speed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fan = clamp(speed, 0, 255)
}

func (p *Printer) DisableHeaters() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.target = [2]int{}
}

// FinishAndDisable discards queued commands and releases the motors.
func (p *Printer) FinishAndDisable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = nil
	p.steppers = false
}

func (p *Printer) Position() hmi.Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos
}

func (p *Printer) FeedratePercent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.feedrate
}

func (p *Printer) SetFeedratePercent(pct int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.feedrate = clamp(pct, 1, 999)
}

func (p *Printer) Limit(kind hmi.LimitKind, axis hmi.Axis) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.limits[limitKey{kind, axis}]
}

func (p *Printer) SetLimit(kind hmi.LimitKind, axis hmi.Axis, v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limits[limitKey{kind, axis}] = v
}

func (p *Printer) ZOffset() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.zOffset
}

func (p *Printer) SetZOffset(z float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.zOffset = z
}

// ============================================================================
// hmi.RunoutSensor
// ============================================================================

func (p *Printer) Runout() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runout, nil
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
