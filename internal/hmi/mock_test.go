package hmi

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordRenderer counts drawing primitives.
type recordRenderer struct {
	clears  int
	scrolls []ScrollDir
	texts   []string
	numbers []int64
	updates int
}

func (r *recordRenderer) Clear(Color)                                { r.clears++ }
func (r *recordRenderer) Rect(bool, Color, Rect)                     {}
func (r *recordRenderer) Line(Color, int, int, int, int)             {}
func (r *recordRenderer) Icon(uint8, uint8, int, int)                {}
func (r *recordRenderer) Update()                                    { r.updates++ }
func (r *recordRenderer) Scroll(d ScrollDir, _ int, _ Color, _ Rect) { r.scrolls = append(r.scrolls, d) }

func (r *recordRenderer) Text(_ Font, _, _ Color, _, _ int, s string) {
	r.texts = append(r.texts, s)
}

func (r *recordRenderer) Number(_ Font, _, _ Color, _, _ int, v int64, _, _ int) {
	r.numbers = append(r.numbers, v)
}

func (r *recordRenderer) reset() {
	r.clears = 0
	r.scrolls = nil
	r.texts = nil
	r.numbers = nil
}

func (r *recordRenderer) drew(s string) bool {
	for _, t := range r.texts {
		if t == s {
			return true
		}
	}
	return false
}

// mockMedia is an in-memory card.
type mockMedia struct {
	mounted  bool
	files    []string
	open     string
	offset   int64
	printing bool
	paused   bool
	percent  int
	elapsed  time.Duration
	openErr  error

	opened  []string
	resumed []string
	ends    int
}

func (m *mockMedia) Mounted() bool { return m.mounted }

func (m *mockMedia) Files() ([]string, error) {
	if !m.mounted {
		return nil, ErrNotMounted
	}
	return m.files, nil
}

func (m *mockMedia) Open(name string) error {
	if m.openErr != nil {
		return m.openErr
	}
	m.opened = append(m.opened, name)
	m.open = name
	m.printing = true
	return nil
}

func (m *mockMedia) Resume(name string, offset int64) error {
	m.resumed = append(m.resumed, name)
	m.open = name
	m.offset = offset
	m.printing = true
	return nil
}

func (m *mockMedia) End() {
	m.ends++
	m.printing = false
	m.open = ""
}

func (m *mockMedia) Printing() bool         { return m.printing }
func (m *mockMedia) Paused() bool           { return m.paused }
func (m *mockMedia) PercentDone() int       { return m.percent }
func (m *mockMedia) Elapsed() time.Duration { return m.elapsed }
func (m *mockMedia) Offset() int64          { return m.offset }

// mockMachine records injected scripts and keeps thermal/planner state.
type mockMachine struct {
	scripts  []string
	queued   bool
	temps    [2]float64
	targets  [2]int
	fan      int
	feedrate int
	pos      Position
	limits   map[LimitKind]*AxisValues
	zOffset  float64

	// targetLog records every SetTarget call in order; injectTargets
	// records the targets in force when each script was injected.
	targetLog        []Targets
	injectTargets    []Targets
	disableHeaters   int
	finishAndDisable int
}

func newMockMachine() *mockMachine {
	d := DefaultSettings()
	return &mockMachine{
		feedrate: 100,
		limits: map[LimitKind]*AxisValues{
			LimitFeedrate:     &d.MaxFeedrate,
			LimitAcceleration: &d.MaxAcceleration,
			LimitJerk:         &d.MaxJerk,
			LimitSteps:        &d.StepsPerMM,
		},
	}
}

func (m *mockMachine) Inject(script string) {
	m.scripts = append(m.scripts, script)
	m.injectTargets = append(m.injectTargets, Targets{Hotend: m.targets[HeaterHotend], Bed: m.targets[HeaterBed]})
}

func (m *mockMachine) HasQueuedMoves() bool { return m.queued }

func (m *mockMachine) Temperature(h Heater) float64 { return m.temps[h] }
func (m *mockMachine) Target(h Heater) int          { return m.targets[h] }

func (m *mockMachine) SetTarget(h Heater, c int) {
	m.targets[h] = c
	m.targetLog = append(m.targetLog, Targets{Hotend: m.targets[HeaterHotend], Bed: m.targets[HeaterBed]})
}

func (m *mockMachine) FanSpeed() int     { return m.fan }
func (m *mockMachine) SetFanSpeed(s int) { m.fan = s }

func (m *mockMachine) DisableHeaters() {
	m.disableHeaters++
	m.targets = [2]int{}
}

func (m *mockMachine) FinishAndDisable() {
	m.finishAndDisable++
	m.queued = false
}

func (m *mockMachine) Position() Position         { return m.pos }
func (m *mockMachine) FeedratePercent() int       { return m.feedrate }
func (m *mockMachine) SetFeedratePercent(pct int) { m.feedrate = pct }

func (m *mockMachine) Limit(k LimitKind, a Axis) float64 { return m.limits[k].Get(a) }
func (m *mockMachine) SetLimit(k LimitKind, a Axis, v float64) {
	m.limits[k].Set(a, v)
}

func (m *mockMachine) ZOffset() float64     { return m.zOffset }
func (m *mockMachine) SetZOffset(z float64) { m.zOffset = z }

func (m *mockMachine) injected(prefix string) bool {
	return m.injectedAt(prefix) >= 0
}

// injectedAt returns the index of the last script starting with prefix, or -1.
func (m *mockMachine) injectedAt(prefix string) int {
	for i := len(m.scripts) - 1; i >= 0; i-- {
		if strings.HasPrefix(m.scripts[i], prefix) {
			return i
		}
	}
	return -1
}

// mockRecovery is an in-memory RecoveryStore.
type mockRecovery struct {
	rec     *RecoveryRecord
	saves   int
	cancels int
	purges  int
	loadErr error
}

func (m *mockRecovery) Load() (RecoveryRecord, error) {
	if m.loadErr != nil {
		return RecoveryRecord{}, m.loadErr
	}
	if m.rec == nil {
		return RecoveryRecord{}, ErrNoRecord
	}
	return *m.rec, nil
}

func (m *mockRecovery) Save(r RecoveryRecord) error {
	m.saves++
	m.rec = &r
	return nil
}

func (m *mockRecovery) Cancel() error {
	m.cancels++
	m.rec = nil
	return nil
}

func (m *mockRecovery) Purge() error {
	m.purges++
	m.rec = nil
	return nil
}

// mockSettings is an in-memory SettingsStore.
type mockSettings struct {
	saved   *Settings
	saveErr error
	loadErr error
}

func (m *mockSettings) Load() (Settings, error) {
	if m.loadErr != nil {
		return Settings{}, m.loadErr
	}
	if m.saved == nil {
		return DefaultSettings(), nil
	}
	return *m.saved, nil
}

func (m *mockSettings) Save(s Settings) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = &s
	return nil
}

type mockSensor struct {
	runout bool
	err    error
	reads  int
}

func (m *mockSensor) Runout() (bool, error) {
	m.reads++
	return m.runout, m.err
}

type tone struct {
	d  time.Duration
	hz int
}

type mockBuzzer struct {
	tones []tone
}

func (m *mockBuzzer) Tone(d time.Duration, hz int) { m.tones = append(m.tones, tone{d, hz}) }

type mockHistory struct {
	mu   sync.Mutex
	jobs []JobRecord
}

func (m *mockHistory) Record(j JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, j)
	return nil
}

// fakeClock is advanced by hand.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

// rig bundles a controller with every mock.
type rig struct {
	c        *Controller
	r        *recordRenderer
	media    *mockMedia
	machine  *mockMachine
	input    *InputQueue
	recovery *mockRecovery
	settings *mockSettings
	sensor   *mockSensor
	buzzer   *mockBuzzer
	history  *mockHistory
	clock    *fakeClock
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRig(t *testing.T, mutate ...func(*Config)) *rig {
	t.Helper()
	rg := &rig{
		r:        &recordRenderer{},
		media:    &mockMedia{},
		machine:  newMockMachine(),
		input:    NewInputQueue(16),
		recovery: &mockRecovery{},
		settings: &mockSettings{},
		sensor:   &mockSensor{},
		buzzer:   &mockBuzzer{},
		history:  &mockHistory{},
		clock:    &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
	}
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := New(cfg, Deps{
		Renderer: rg.r,
		Media:    rg.media,
		Machine:  rg.machine,
		Input:    rg.input,
		Settings: rg.settings,
		Recovery: rg.recovery,
		Runout:   rg.sensor,
		Buzzer:   rg.buzzer,
		History:  rg.history,
		Logger:   testLogger(),
		Clock:    rg.clock.now,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rg.c = c
	return rg
}

// press queues one input and runs a tick after the debounce window.
func (rg *rig) press(in Input) {
	rg.clock.advance(25 * time.Millisecond)
	rg.input.PushAt(in, rg.clock.t)
	rg.c.Tick()
}

func (rg *rig) tick() {
	rg.clock.advance(25 * time.Millisecond)
	rg.c.Tick()
}

// pressN sends n copies of in.
func (rg *rig) pressN(in Input, n int) {
	for i := 0; i < n; i++ {
		rg.press(in)
	}
}

// startPrint walks the UI from the main menu into a print of the first file.
func (rg *rig) startPrint(t *testing.T) {
	t.Helper()
	rg.media.mounted = true
	if len(rg.media.files) == 0 {
		rg.media.files = []string{"benchy.gcode"}
	}
	rg.c.Init()
	rg.tick()
	rg.press(InputConfirm)  // main: Print
	rg.press(InputIncrease) // Back -> first file
	rg.press(InputConfirm)
	if rg.c.Screen() != ScreenPrintProcess {
		t.Fatalf("screen = %s, want print_process", rg.c.Screen())
	}
	if rg.c.Session().State() != SessionPrinting {
		t.Fatalf("session = %s, want printing", rg.c.Session().State())
	}
}
