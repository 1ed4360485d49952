package moonraker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"dwinhmi/internal/hmi"
)

// ErrNoSensor is returned by Runout when no filament sensor is reported.
var ErrNoSensor = errors.New("moonraker: no filament sensor")

// Config tunes the printer backend.
type Config struct {
	// PollInterval is how often printer objects are queried.
	PollInterval time.Duration
	// RunoutSensor names the filament_switch_sensor section; empty disables it.
	RunoutSensor string
	// Rewrite maps Marlin commands the display emits to Klipper equivalents.
	// An empty replacement drops the line.
	Rewrite map[string]string
	// Limits seeds the per-axis values Klipper does not expose.
	Limits hmi.Settings
}

// DefaultConfig returns the stock Klipper mapping.
func DefaultConfig() Config {
	return Config{
		PollInterval: 250 * time.Millisecond,
		RunoutSensor: "runout",
		Rewrite: map[string]string{
			"G29":  "BED_MESH_CALIBRATE",
			"M500": "",
		},
		Limits: hmi.DefaultSettings(),
	}
}

const (
	jobQueueSize  = 64
	heatTolerance = 2.0
)

type request struct {
	method string
	params any
	// done lists notifications raised once the request succeeds.
	done []hmi.Notification
}

type limitKey struct {
	kind hmi.LimitKind
	axis hmi.Axis
}

// status is the last polled printer state plus optimistic local writes.
type status struct {
	ok       bool
	state    string
	file     string
	progress float64
	position int64
	duration float64

	temp     [2]float64
	target   [2]int
	fan      int
	feedrate int
	zOffset  float64
	pos      hmi.Position

	sensorSeen bool
	filament   bool
}

// Printer implements hmi.Media, hmi.Machine and hmi.RunoutSensor against a
// Moonraker instance.
type Printer struct {
	client *Client
	cfg    Config
	logger *slog.Logger
	notify func(hmi.Notification)

	work chan request

	mu       sync.Mutex
	st       status
	limits   map[limitKey]float64
	inflight int
	heated   bool
}

// NewPrinter wraps a connected client. notify may be nil.
func NewPrinter(client *Client, cfg Config, logger *slog.Logger, notify func(hmi.Notification)) *Printer {
	if logger == nil {
		logger = slog.Default()
	}
	if notify == nil {
		notify = func(hmi.Notification) {}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	p := &Printer{
		client: client,
		cfg:    cfg,
		logger: logger,
		notify: notify,
		work:   make(chan request, jobQueueSize),
		st:     status{feedrate: 100},
		limits: make(map[limitKey]float64),
	}
	for _, kind := range []hmi.LimitKind{hmi.LimitFeedrate, hmi.LimitAcceleration, hmi.LimitJerk, hmi.LimitSteps} {
		lim := cfg.Limits.Limits(kind)
		for _, a := range hmi.Axes {
			p.limits[limitKey{kind, a}] = lim.Get(a)
		}
	}
	return p
}

// Run sends queued requests and polls status until ctx is cancelled.
func (p *Printer) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case req := <-p.work:
				p.send(req)
			}
		}
	})
	g.Go(func() error {
		ticker := time.NewTicker(p.cfg.PollInterval)
		defer ticker.Stop()
		for {
			if err := p.Poll(); err != nil {
				p.logger.Debug("moonraker poll failed", "error", err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})
	return g.Wait()
}

func (p *Printer) send(req request) {
	err := p.client.Call(req.method, req.params, nil)

	p.mu.Lock()
	p.inflight--
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("moonraker request failed", "method", req.method, "error", err)
		p.fail(req)
		return
	}
	for _, n := range req.done {
		p.notify(n)
	}
}

// fail tells the display that a request it is waiting on will never finish.
func (p *Printer) fail(req request) {
	if len(req.done) > 0 {
		p.notify(hmi.NotifyCommandFailed)
	}
}

func (p *Printer) enqueue(req request) {
	p.mu.Lock()
	p.inflight++
	p.mu.Unlock()

	select {
	case p.work <- req:
	default:
		p.mu.Lock()
		p.inflight--
		p.mu.Unlock()
		p.logger.Warn("moonraker queue full, request dropped", "method", req.method)
		p.fail(req)
	}
}

// ============================================================================
// Polling
// ============================================================================

type heaterStatus struct {
	Temperature float64 `json:"temperature"`
	Target      float64 `json:"target"`
}

type printStats struct {
	State         string  `json:"state"`
	Filename      string  `json:"filename"`
	PrintDuration float64 `json:"print_duration"`
}

type sdcardStatus struct {
	Progress     float64 `json:"progress"`
	FilePosition int64   `json:"file_position"`
}

type gcodeMove struct {
	SpeedFactor   float64    `json:"speed_factor"`
	HomingOrigin  [4]float64 `json:"homing_origin"`
	GCodePosition [4]float64 `json:"gcode_position"`
}

type toolhead struct {
	MaxVelocity          float64 `json:"max_velocity"`
	MaxAccel             float64 `json:"max_accel"`
	SquareCornerVelocity float64 `json:"square_corner_velocity"`
}

type sensorStatus struct {
	FilamentDetected bool `json:"filament_detected"`
	Enabled          bool `json:"enabled"`
}

func (p *Printer) sensorObject() string {
	return "filament_switch_sensor " + p.cfg.RunoutSensor
}

// Poll queries the printer once and raises transition notifications.
func (p *Printer) Poll() error {
	objects := map[string]any{
		"print_stats":    nil,
		"virtual_sdcard": nil,
		"extruder":       nil,
		"heater_bed":     nil,
		"fan":            nil,
		"gcode_move":     nil,
		"toolhead":       nil,
	}
	if p.cfg.RunoutSensor != "" {
		objects[p.sensorObject()] = nil
	}

	var res struct {
		Status map[string]json.RawMessage `json:"status"`
	}
	if err := p.client.Call("printer.objects.query", map[string]any{"objects": objects}, &res); err != nil {
		p.mu.Lock()
		p.st.ok = false
		p.mu.Unlock()
		return err
	}

	var (
		ps    printStats
		sd    sdcardStatus
		hot   heaterStatus
		bed   heaterStatus
		fan   struct{ Speed float64 `json:"speed"` }
		move  gcodeMove
		head  toolhead
		fs    sensorStatus
		fsHit bool
	)
	decode := func(name string, v any) bool {
		raw, ok := res.Status[name]
		if !ok {
			return false
		}
		if err := json.Unmarshal(raw, v); err != nil {
			p.logger.Debug("failed to decode printer object", "object", name, "error", err)
			return false
		}
		return true
	}
	decode("print_stats", &ps)
	decode("virtual_sdcard", &sd)
	decode("extruder", &hot)
	decode("heater_bed", &bed)
	decode("fan", &fan)
	hasMove := decode("gcode_move", &move)
	hasHead := decode("toolhead", &head)
	if p.cfg.RunoutSensor != "" {
		fsHit = decode(p.sensorObject(), &fs) && fs.Enabled
	}

	var out []hmi.Notification

	p.mu.Lock()
	prev := p.st.state
	p.st.ok = true
	p.st.state = ps.State
	p.st.file = ps.Filename
	p.st.duration = ps.PrintDuration
	p.st.progress = sd.Progress
	p.st.position = sd.FilePosition
	p.st.temp = [2]float64{hot.Temperature, bed.Temperature}
	p.st.target = [2]int{int(hot.Target + 0.5), int(bed.Target + 0.5)}
	p.st.fan = int(fan.Speed*255 + 0.5)
	if hasMove {
		if move.SpeedFactor > 0 {
			p.st.feedrate = int(move.SpeedFactor*100 + 0.5)
		}
		p.st.zOffset = move.HomingOrigin[2]
		p.st.pos = hmi.Position{X: move.GCodePosition[0], Y: move.GCodePosition[1], Z: move.GCodePosition[2], E: move.GCodePosition[3]}
	}
	if hasHead {
		for _, a := range []hmi.Axis{hmi.AxisX, hmi.AxisY} {
			p.limits[limitKey{hmi.LimitFeedrate, a}] = head.MaxVelocity
			p.limits[limitKey{hmi.LimitAcceleration, a}] = head.MaxAccel
			p.limits[limitKey{hmi.LimitJerk, a}] = head.SquareCornerVelocity
		}
	}
	p.st.sensorSeen = fsHit
	p.st.filament = fs.FilamentDetected

	switch {
	case ps.State != "printing" && ps.State != "paused":
		p.heated = false
	case !p.heated && p.st.target[0] > 0 && math.Abs(hot.Temperature-hot.Target) <= heatTolerance:
		p.heated = true
		out = append(out, hmi.NotifyHeatingComplete)
	}
	if prev == "printing" && ps.State == "complete" {
		out = append(out, hmi.NotifyPrintFinished)
	}
	p.mu.Unlock()

	for _, n := range out {
		p.logger.Debug("moonraker notification", "notification", n.String())
		p.notify(n)
	}
	return nil
}

// ============================================================================
// Script translation
// ============================================================================

// translate applies the rewrite table and reports which completion
// callbacks the script earns.
func (p *Printer) translate(script string) (string, []hmi.Notification) {
	var (
		lines []string
		done  []hmi.Notification
	)
	for _, raw := range strings.Split(script, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		code := strings.ToUpper(strings.Fields(line)[0])
		switch code {
		case "G28":
			done = append(done, hmi.NotifyHomingComplete)
		case "G29":
			done = append(done, hmi.NotifyLevelingComplete)
		}
		if repl, ok := p.cfg.Rewrite[code]; ok {
			if repl == "" {
				continue
			}
			line = repl
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), done
}

// ============================================================================
// hmi.Media
// ============================================================================

func (p *Printer) Mounted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.ok
}

type fileEntry struct {
	Path     string  `json:"path"`
	Modified float64 `json:"modified"`
	Size     int64   `json:"size"`
}

func (p *Printer) Files() ([]string, error) {
	if !p.Mounted() {
		return nil, hmi.ErrNotMounted
	}
	var entries []fileEntry
	if err := p.client.Call("server.files.list", map[string]any{"root": "gcodes"}, &entries); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Path)
	}
	sort.Strings(names)
	return names, nil
}

func (p *Printer) Open(name string) error {
	if !p.Mounted() {
		return hmi.ErrNotMounted
	}
	if err := p.client.Call("printer.print.start", map[string]any{"filename": name}, nil); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	p.mu.Lock()
	p.st.state = "printing"
	p.st.file = name
	p.st.progress = 0
	p.st.position = 0
	p.st.duration = 0
	p.heated = false
	p.mu.Unlock()
	return nil
}

// Resume selects name, seeks to offset and starts it.
func (p *Printer) Resume(name string, offset int64) error {
	if !p.Mounted() {
		return hmi.ErrNotMounted
	}
	if offset < 0 {
		offset = 0
	}
	p.enqueue(request{
		method: "printer.gcode.script",
		params: map[string]any{"script": "M23 " + name + "\nM26 S" + strconv.FormatInt(offset, 10) + "\nM24"},
	})
	p.mu.Lock()
	p.st.state = "printing"
	p.st.file = name
	p.st.position = offset
	p.heated = false
	p.mu.Unlock()
	return nil
}

func (p *Printer) End() {
	p.enqueue(request{method: "printer.print.cancel"})
	p.mu.Lock()
	p.st.state = "cancelled"
	p.mu.Unlock()
}

func (p *Printer) Printing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.state == "printing"
}

func (p *Printer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.state == "paused"
}

func (p *Printer) PercentDone() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return min(int(p.st.progress*100), 100)
}

func (p *Printer) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Duration(p.st.duration * float64(time.Second))
}

func (p *Printer) Offset() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.position
}

// ============================================================================
// hmi.Machine
// ============================================================================

func (p *Printer) Inject(script string) {
	script, done := p.translate(script)
	if script == "" {
		for _, n := range done {
			p.notify(n)
		}
		return
	}
	p.enqueue(request{method: "printer.gcode.script", params: map[string]any{"script": script}, done: done})
}

// HasQueuedMoves reports whether any request is still waiting for Klipper.
// printer.gcode.script replies only once the script has run.
func (p *Printer) HasQueuedMoves() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inflight > 0
}

func (p *Printer) Temperature(h hmi.Heater) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.temp[h]
}

func (p *Printer) Target(h hmi.Heater) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.target[h]
}

func (p *Printer) SetTarget(h hmi.Heater, celsius int) {
	celsius = max(celsius, 0)
	p.mu.Lock()
	p.st.target[h] = celsius
	p.mu.Unlock()

	code := "M104"
	if h == hmi.HeaterBed {
		code = "M140"
	}
	p.Inject(fmt.Sprintf("%s S%d", code, celsius))
}

func (p *Printer) FanSpeed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.fan
}

func (p *Printer) SetFanSpeed(speed int) {
	speed = min(max(speed, 0), 255)
	p.mu.Lock()
	p.st.fan = speed
	p.mu.Unlock()
	p.Inject(fmt.Sprintf("M106 S%d", speed))
}

func (p *Printer) DisableHeaters() {
	p.mu.Lock()
	p.st.target = [2]int{}
	p.mu.Unlock()
	p.Inject("TURN_OFF_HEATERS")
}

func (p *Printer) FinishAndDisable() {
	p.Inject("M400\nM84")
}

func (p *Printer) Position() hmi.Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.pos
}

func (p *Printer) FeedratePercent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.feedrate
}

func (p *Printer) SetFeedratePercent(pct int) {
	p.mu.Lock()
	p.st.feedrate = pct
	p.mu.Unlock()
	p.Inject(fmt.Sprintf("M220 S%d", pct))
}

func (p *Printer) Limit(kind hmi.LimitKind, axis hmi.Axis) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.limits[limitKey{kind, axis}]
}

// SetLimit forwards X/Y planner limits to Klipper's shared toolhead limits.
// Other values are kept locally.
func (p *Printer) SetLimit(kind hmi.LimitKind, axis hmi.Axis, v float64) {
	p.mu.Lock()
	p.limits[limitKey{kind, axis}] = v
	p.mu.Unlock()

	if axis != hmi.AxisX && axis != hmi.AxisY {
		return
	}
	var param string
	switch kind {
	case hmi.LimitFeedrate:
		param = "VELOCITY"
	case hmi.LimitAcceleration:
		param = "ACCEL"
	case hmi.LimitJerk:
		param = "SQUARE_CORNER_VELOCITY"
	default:
		return
	}
	p.Inject(fmt.Sprintf("SET_VELOCITY_LIMIT %s=%s", param, strconv.FormatFloat(v, 'f', -1, 64)))
}

func (p *Printer) ZOffset() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.zOffset
}

func (p *Printer) SetZOffset(z float64) {
	p.mu.Lock()
	p.st.zOffset = z
	p.mu.Unlock()
	p.Inject("SET_GCODE_OFFSET Z=" + strconv.FormatFloat(z, 'f', 3, 64))
}

// ============================================================================
// hmi.RunoutSensor
// ============================================================================

func (p *Printer) Runout() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.st.sensorSeen {
		return false, ErrNoSensor
	}
	return !p.st.filament, nil
}
