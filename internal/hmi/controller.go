package hmi

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Deps are the controller's collaborators. Renderer, Media, Machine and Input
// are required; the rest may be nil and the matching feature degrades.
type Deps struct {
	Renderer Renderer
	Media    Media
	Machine  Machine
	Input    InputSource

	Settings SettingsStore
	Recovery RecoveryStore
	Runout   RunoutSensor
	Buzzer   Buzzer
	History  History

	Logger *slog.Logger
	Clock  func() time.Time
}

// Controller is the display's UI and print-lifecycle state machine.
//
// Not safe for concurrent use: Init, Tick and Snapshot must be called from a
// single goroutine. The On* callbacks and Notify may be called from any
// goroutine; they queue work for the next Tick.
type Controller struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	r        Renderer
	media    Media
	machine  Machine
	input    InputSource
	store    SettingsStore
	recovery RecoveryStore
	runout   RunoutSensor
	buzzer   Buzzer
	history  History

	paint   painter
	screens map[Screen]screenHandler
	screen  Screen
	sel     Selector
	win     ScrollWindow
	editor  ValueEditor
	rate    *encoderRate
	readyAt time.Time

	session  *Session
	filament FilamentMonitor
	resumer  *Resumer
	ticket   *Ticket
	checkDue bool

	settings Settings
	labels   map[string]string

	notifyMu sync.Mutex
	pending  []Notification

	mounted          bool
	nextRefresh      time.Time
	nextRecoverySave time.Time
	waitDeadline     time.Time

	// Screen scratch.
	confirmYes      bool
	stopPrompt      bool
	leveled         bool
	filamentHeated  bool
	filamentRunning bool
	eBase           float64
	files           []string
}

// New builds a controller. Call Init before the first Tick.
func New(cfg Config, deps Deps) (*Controller, error) {
	if deps.Renderer == nil || deps.Media == nil || deps.Machine == nil || deps.Input == nil {
		return nil, errors.New("hmi: renderer, media, machine and input are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 2 * time.Second
	}
	if cfg.Profile.Defaults.MaxFeedrate.X == 0 {
		cfg.Profile = DefaultProfile()
	}

	session := NewSession(SessionConfig{
		RemainingInterval: cfg.RemainingInterval,
		RemainingGrace:    cfg.RemainingGrace,
		AbortKeepHeaters:  cfg.AbortKeepHeaters,
		ParkScript:        cfg.Profile.ParkScript,
	})

	c := &Controller{
		cfg:      cfg,
		logger:   deps.Logger,
		now:      deps.Clock,
		r:        deps.Renderer,
		media:    deps.Media,
		machine:  deps.Machine,
		input:    deps.Input,
		store:    deps.Settings,
		recovery: deps.Recovery,
		runout:   deps.Runout,
		buzzer:   deps.Buzzer,
		history:  deps.History,
		paint:    painter{r: deps.Renderer},
		win:      NewScrollWindow(),
		rate:     newEncoderRate(cfg.Rate),
		session:  session,
		settings: cfg.Profile.Defaults,
	}
	if deps.Recovery != nil {
		c.resumer = NewResumer(deps.Recovery, deps.Logger)
	}
	c.labels = labelsFor(c.settings.Language)
	c.filament.SetEnabled(c.settings.RunoutEnabled)
	c.screens = buildScreens()
	return c, nil
}

// Init loads persisted settings, samples the media slot and shows the main
// menu. A mounted card at boot is treated as a mount edge.
func (c *Controller) Init() {
	if c.store != nil {
		if err := c.loadSettings(); err != nil {
			c.logger.Warn("using default settings", "error", err)
		}
	}
	c.mounted = c.media.Mounted()
	c.checkDue = c.mounted
	c.logger.Info("hmi started", "mounted", c.mounted, "language", string(c.settings.Language))
	c.enter(ScreenMainMenu, 0)
}

// Tick runs one iteration of the controller.
//
// Order: fold notifications, media edges, session bookkeeping, wait timeout,
// recovery check, filament monitor, throttled refresh, then at most one input
// event. While a recovery prompt is open only the prompt receives input.
func (c *Controller) Tick() {
	now := c.now()

	c.foldNotifications(now)
	c.checkMedia()
	c.bookkeeping(now)
	c.checkWait(now)
	if c.checkRecovery(now) {
		return
	}
	c.checkFilament()
	c.refresh(now)
	c.dispatchNext(now)
}

// ============================================================================
// Notifications
// ============================================================================

// Notify queues a subsystem callback for the next Tick.
func (c *Controller) Notify(n Notification) {
	c.notifyMu.Lock()
	c.pending = append(c.pending, n)
	c.notifyMu.Unlock()
}

func (c *Controller) OnHomingComplete()     { c.Notify(NotifyHomingComplete) }
func (c *Controller) OnLevelingComplete()   { c.Notify(NotifyLevelingComplete) }
func (c *Controller) OnFilamentCleared()    { c.Notify(NotifyFilamentCleared) }
func (c *Controller) OnHeatingComplete()    { c.Notify(NotifyHeatingComplete) }
func (c *Controller) OnPrintFinished()      { c.Notify(NotifyPrintFinished) }
func (c *Controller) OnFilamentHeated()     { c.Notify(NotifyFilamentHeated) }
func (c *Controller) OnFilamentChangeDone() { c.Notify(NotifyFilamentChangeDone) }

func (c *Controller) foldNotifications(now time.Time) {
	c.notifyMu.Lock()
	pending := c.pending
	c.pending = nil
	c.notifyMu.Unlock()

	for _, n := range pending {
		c.logger.Debug("notification", "notification", n.String(), "screen", c.screen.String())
		switch n {
		case NotifyHomingComplete:
			if c.screen == ScreenHomingWait {
				c.enter(ScreenControl, rowHome)
			}

		case NotifyCommandFailed:
			if c.waiting() {
				c.abandonWait("machine command failed")
			}

		case NotifyLevelingComplete:
			c.leveled = true
			c.inject("M500")
			if c.screen == ScreenLeveling {
				c.enter(ScreenLeveling, 0)
			}

		case NotifyFilamentCleared:
			c.filament.SetReplay(false)

		case NotifyHeatingComplete:
			c.session.HeatingDone(c.media.Elapsed())

		case NotifyPrintFinished:
			cmds := c.session.Complete(now)
			if cmds == nil {
				continue
			}
			c.logger.Info("print finished", "file", c.session.File(), "elapsed", c.session.Elapsed())
			c.run(cmds)
			c.enter(ScreenMainMenu, 0)

		case NotifyFilamentHeated:
			c.filamentReady()

		case NotifyFilamentChangeDone:
			c.filamentDone()
		}
	}
}

// ============================================================================
// Tick stages
// ============================================================================

func (c *Controller) checkMedia() {
	mounted := c.media.Mounted()
	if mounted == c.mounted {
		return
	}
	c.mounted = mounted

	if mounted {
		c.logger.Info("media mounted")
		c.checkDue = true
		if c.screen == ScreenSelectFile {
			c.enter(ScreenSelectFile, 0)
		}
		return
	}

	c.logger.Info("media removed")
	c.checkDue = false
	if c.session.Active() {
		c.logger.Warn("media removed during print, aborting", "file", c.session.File())
		c.run(c.session.Abort())
	}
	if c.screen == ScreenSelectFile {
		c.enter(ScreenMainMenu, 0)
	}
}

func (c *Controller) bookkeeping(now time.Time) {
	switch c.session.State() {
	case SessionPrinting:
		c.session.Progress(c.media.PercentDone(), c.media.Elapsed(), now)
		// A recovered job is back on its own once it streams hot again.
		if c.filament.Replaying() && !c.session.Heating() && c.media.Printing() {
			c.filament.SetReplay(false)
			c.logger.Info("recovered job printing, runout monitor live", "file", c.session.File())
		}
		if c.cfg.RecoverySaveInterval > 0 && !now.Before(c.nextRecoverySave) {
			c.nextRecoverySave = now.Add(c.cfg.RecoverySaveInterval)
			c.run([]Command{CmdSaveRecovery{File: c.session.File(), Targets: c.targets()}})
		}

	case SessionPaused:
		if cmds := c.session.Drain(c.machine.HasQueuedMoves()); cmds != nil {
			c.logger.Info("pause drained, parking", "keep_hot", c.session.KeepHot())
			c.run(cmds)
		}

	case SessionAborting, SessionCompleted:
		cmds, aborted := c.session.Settle(now)
		c.run(cmds)
		if aborted {
			c.logger.Info("print aborted", "file", c.session.File())
			c.enter(ScreenMainMenu, 0)
		}
	}

	c.filamentProgress()
}

// waiting reports whether the active screen only leaves on a machine callback.
func (c *Controller) waiting() bool {
	return c.screen == ScreenHomingWait || (c.screen == ScreenLeveling && !c.leveled)
}

// checkWait gives up on a homing or leveling callback that never arrives.
func (c *Controller) checkWait(now time.Time) {
	if c.cfg.WaitTimeout <= 0 || !c.waiting() || now.Before(c.waitDeadline) {
		return
	}
	c.abandonWait("timed out waiting for machine")
}

func (c *Controller) abandonWait(reason string) {
	row := rowHome
	if c.screen == ScreenLeveling {
		row = rowAutoLevel
	}
	c.logger.Warn(reason, "screen", c.screen.String())
	c.failTone()
	c.enter(ScreenControl, row)
}

// checkRecovery reports whether the rest of the tick is suspended by an open
// recovery prompt.
func (c *Controller) checkRecovery(now time.Time) bool {
	if c.ticket != nil {
		c.dispatchNext(now)
		return true
	}
	if !c.checkDue {
		return false
	}
	c.checkDue = false
	if c.resumer == nil || c.session.State() != SessionIdle {
		return false
	}

	files, err := c.media.Files()
	if err != nil {
		c.logger.Warn("list media for recovery", "error", err)
		return false
	}
	t, err := c.resumer.Check(files)
	if err != nil {
		c.logger.Warn("recovery check failed", "error", err)
		return false
	}
	if t == nil {
		return false
	}
	c.logger.Info("recovery record found", "file", t.Record.Filename, "offset", t.Record.Offset)
	c.ticket = t
	c.enter(ScreenResumeConfirm, 0)
	return true
}

func (c *Controller) resolveRecovery() {
	t := c.ticket
	c.ticket = nil
	if t == nil {
		return
	}
	c.logger.Info("recovery decided", "file", t.Record.Filename, "decision", t.Decision().String())

	if t.Decision() == DecisionYes {
		c.filament.Arm()
		c.filament.SetReplay(true)
		if cmds := c.session.Recover(t.Record, c.now()); cmds != nil {
			c.nextRecoverySave = c.now().Add(c.cfg.RecoverySaveInterval)
			c.enter(ScreenPrintProcess, 0)
			c.run(cmds)
			return
		}
	}
	c.run([]Command{CmdCancelRecovery{}})
	c.enter(ScreenMainMenu, 0)
}

func (c *Controller) checkFilament() {
	if c.runout == nil || !c.filament.Armed() || c.session.State() != SessionPrinting {
		return
	}
	if c.screen != ScreenPrintProcess && c.screen != ScreenTune {
		return
	}
	runout, err := c.runout.Runout()
	if err != nil {
		if c.filament.Fault() {
			c.logger.Warn("runout sensor unavailable, monitor disarmed", "error", err)
		}
		return
	}
	if !c.filament.Evaluate(runout) {
		return
	}
	c.logger.Warn("filament runout, pausing", "file", c.session.File())
	c.run(c.session.Pause(c.targets(), true))
	c.enter(ScreenRunoutConfirm, 0)
}

func (c *Controller) refresh(now time.Time) {
	if now.Before(c.nextRefresh) {
		return
	}
	c.nextRefresh = now.Add(c.cfg.RefreshInterval)
	if h, ok := c.screens[c.screen].(refresher); ok {
		h.refresh(c)
		c.r.Update()
	}
}

// dispatchNext feeds at most one pending input event to the active screen.
// Menu screens leave events queued until the debounce window has passed.
func (c *Controller) dispatchNext(now time.Time) {
	editing := c.screen.IsEditor()
	if !editing && now.Before(c.readyAt) {
		return
	}
	in, at := c.input.Poll()
	if in == InputNone {
		return
	}
	if at.IsZero() {
		at = now
	}
	if !editing {
		c.readyAt = now.Add(c.cfg.Debounce)
	}
	c.dispatch(in, at)
	c.r.Update()
}

func (c *Controller) dispatch(in Input, at time.Time) {
	if in == InputNone {
		return
	}
	h, ok := c.screens[c.screen]
	if !ok {
		c.logger.Error("no handler for screen", "screen", c.screen.String())
		return
	}
	h.handle(c, in, at)
}

// ============================================================================
// Screen transitions
// ============================================================================

// enter activates s and repaints it. row is the re-entry position for list
// screens; zero means the top.
func (c *Controller) enter(s Screen, row int) {
	c.switchTo(s)
	if h, ok := c.screens[s]; ok {
		h.enter(c, row)
	}
	c.r.Update()
}

// switchTo changes the routing key without repainting.
func (c *Controller) switchTo(s Screen) {
	if s != c.screen {
		c.logger.Debug("screen", "from", c.screen.String(), "to", s.String())
		c.waitDeadline = c.now().Add(c.cfg.WaitTimeout)
	}
	c.screen = s
	c.rate.enable(s.IsEditor())
}

// edit opens a value editor for q over the current list.
func (c *Controller) edit(s Screen, q Quantity, initial float64) {
	if q.Digits == 0 {
		q.Digits = digitsFor(q.Max)
	}
	c.editor.Begin(q, initial)
	c.enter(s, q.Row)
}

func (c *Controller) text(key string) string {
	if s, ok := c.labels[key]; ok {
		return s
	}
	if s, ok := labelsEnglish[key]; ok {
		return s
	}
	return key
}

func (c *Controller) textf(key string, args ...any) string {
	return fmt.Sprintf(c.text(key), args...)
}

func (c *Controller) drawPanel() {
	c.paint.panel(panelState{
		hotend:       int(c.machine.Temperature(HeaterHotend) + 0.5),
		hotendTarget: c.machine.Target(HeaterHotend),
		bed:          int(c.machine.Temperature(HeaterBed) + 0.5),
		bedTarget:    c.machine.Target(HeaterBed),
		feedrate:     c.machine.FeedratePercent(),
		z:            c.machine.Position().Z,
	})
}

// ============================================================================
// Settings
// ============================================================================

func (c *Controller) loadSettings() error {
	if c.store == nil {
		return errors.New("no settings store")
	}
	s, err := c.store.Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if s.Language == "" {
		s.Language = LanguageEnglish
	}
	c.settings = s
	c.labels = labelsFor(s.Language)
	c.filament.SetEnabled(s.RunoutEnabled)
	applySettings(c.machine, s)
	return nil
}

// saveSettings captures live machine values and persists everything. The
// outcome is reported audibly; chime controls the success tone only.
func (c *Controller) saveSettings(chime bool) bool {
	captureSettings(c.machine, &c.settings)
	if c.store == nil {
		c.failTone()
		return false
	}
	if err := c.store.Save(c.settings); err != nil {
		c.logger.Warn("save settings failed", "error", err)
		c.failTone()
		return false
	}
	if chime {
		c.chime()
	}
	return true
}

// resetSettings restores the built-in defaults, keeping the language.
func (c *Controller) resetSettings() {
	lang := c.settings.Language
	c.settings = c.cfg.Profile.Defaults
	c.settings.Language = lang
	c.settings.ZOffset = 0
	c.filament.SetEnabled(c.settings.RunoutEnabled)
	applySettings(c.machine, c.settings)
	c.chime()
}

// Settings returns a copy of the current settings.
func (c *Controller) Settings() Settings { return c.settings }
