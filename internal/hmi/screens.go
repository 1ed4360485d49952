package hmi

import "time"

// screenHandler interprets input for one Screen and paints it.
type screenHandler interface {
	// enter repaints the screen. row is the re-entry position.
	enter(c *Controller, row int)
	handle(c *Controller, in Input, at time.Time)
}

// refresher is implemented by screens with live readouts.
type refresher interface {
	refresh(c *Controller)
}

// List rows the back navigation returns to.
const (
	rowControlMove    = 1
	rowHome           = 3
	rowLoadFilament   = 7
	rowUnloadFilament = 8
	rowAutoLevel      = 10

	rowTemperature = 1
	rowMotion      = 2
	rowPLASettings = 4

	rowAxisE = 4

	tilePrint   = 0
	tileControl = 1
	tilePrepare = 2
	tileInfo    = 3

	tileTune  = 0
	tilePause = 1
	tileStop  = 2
)

func buildScreens() map[Screen]screenHandler {
	m := map[Screen]screenHandler{
		ScreenMainMenu:       mainMenu{},
		ScreenPrintProcess:   printScreen{},
		ScreenInfo:           infoScreen{},
		ScreenPauseOrStop:    pauseOrStopPopup{},
		ScreenRunoutConfirm:  runoutPopup{},
		ScreenResumeConfirm:  resumePopup{},
		ScreenColdExtrusion:  coldExtrusionPopup{},
		ScreenHomingWait:     waitPopup{title: "auto_home", body: "homing_wait"},
		ScreenAbortWait:      waitPopup{title: "stop", body: "stopping"},
		ScreenLeveling:       levelingScreen{},
		ScreenFilamentLoad:   filamentScreen{load: true},
		ScreenFilamentUnload: filamentScreen{load: false},
	}
	for s, l := range listScreens() {
		m[s] = l
	}
	for s := ScreenMoveX; s <= ScreenStepsValue; s++ {
		m[s] = editorScreen{}
	}
	return m
}

// ============================================================================
// Main menu
// ============================================================================

type mainMenu struct{}

var mainTiles = [...]struct {
	icon  uint8
	label string
}{
	tilePrint:   {iconPrint, "print"},
	tileControl: {iconControl, "control"},
	tilePrepare: {iconPrepare, "prepare"},
	tileInfo:    {iconInfo, "info"},
}

func mainTileOrigin(i int) (int, int) {
	return listX0 + (i%2)*155, listY0 + (i/2)*110
}

func (mainMenu) enter(c *Controller, row int) {
	c.sel.Set(row)
	c.paint.frame(c.text("home"))
	for i, t := range mainTiles {
		x, y := mainTileOrigin(i)
		c.paint.tile(x, y, t.icon, c.text(t.label), i == row)
	}
	c.drawPanel()
}

func (m mainMenu) handle(c *Controller, in Input, _ time.Time) {
	prev := c.sel.Current()
	switch in {
	case InputIncrease:
		if c.sel.Inc(len(mainTiles) - 1) {
			m.moveTile(c, prev)
		}
	case InputDecrease:
		if c.sel.Dec() {
			m.moveTile(c, prev)
		}
	case InputConfirm:
		switch c.sel.Current() {
		case tilePrint:
			c.enter(ScreenSelectFile, 0)
		case tileControl:
			c.enter(ScreenControl, 0)
		case tilePrepare:
			c.enter(ScreenPrepare, 0)
		case tileInfo:
			c.enter(ScreenInfo, 0)
		}
	}
}

func (mainMenu) moveTile(c *Controller, prev int) {
	x, y := mainTileOrigin(prev)
	c.paint.tile(x, y, mainTiles[prev].icon, c.text(mainTiles[prev].label), false)
	cur := c.sel.Current()
	x, y = mainTileOrigin(cur)
	c.paint.tile(x, y, mainTiles[cur].icon, c.text(mainTiles[cur].label), true)
}

func (mainMenu) refresh(c *Controller) { c.drawPanel() }

// ============================================================================
// Print screen
// ============================================================================

type printScreen struct{}

const printTileY = listY0 + 110

func printTileX(i int) int { return listX0 + i*105 }

func (p printScreen) enter(c *Controller, row int) {
	c.sel.Set(row)
	c.paint.frame(c.session.File())
	p.drawTiles(c)
	p.refresh(c)
}

func (printScreen) drawTiles(c *Controller) {
	pause, pauseLabel := iconPause, "pause"
	if c.session.State() == SessionPaused {
		pause, pauseLabel = iconResume, "resume"
	}
	tiles := [...]struct {
		icon  uint8
		label string
	}{
		tileTune:  {iconTune, "tune"},
		tilePause: {pause, pauseLabel},
		tileStop:  {iconStop, "stop"},
	}
	for i, t := range tiles {
		c.paint.tile(printTileX(i), printTileY, t.icon, c.text(t.label), i == c.sel.Current())
	}
}

func (printScreen) refresh(c *Controller) {
	c.drawPanel()
	c.paint.progress(c.session.Percent())
	remaining, known := c.session.Remaining()
	c.paint.clock(listX0, listY0+58, c.text("elapsed"), c.session.Elapsed(), true)
	c.paint.clock(listX0+160, listY0+58, c.text("remaining"), remaining, known)
}

func (p printScreen) handle(c *Controller, in Input, _ time.Time) {
	switch in {
	case InputIncrease:
		if c.sel.Inc(tileStop) {
			p.drawTiles(c)
		}
	case InputDecrease:
		if c.sel.Dec() {
			p.drawTiles(c)
		}
	case InputConfirm:
		switch c.sel.Current() {
		case tileTune:
			c.enter(ScreenTune, 0)
		case tilePause:
			if c.session.State() == SessionPaused {
				p.resume(c)
				return
			}
			c.stopPrompt = false
			c.enter(ScreenPauseOrStop, 0)
		case tileStop:
			c.stopPrompt = true
			c.enter(ScreenPauseOrStop, 0)
		}
	}
}

// resume is refused while the runout sensor reports no filament.
func (p printScreen) resume(c *Controller) {
	if c.runout != nil && c.filament.Enabled() {
		if out, err := c.runout.Runout(); err == nil && out {
			c.failTone()
			return
		}
	}
	cmds := c.session.Resume()
	if cmds == nil {
		return
	}
	c.logger.Info("print resumed", "file", c.session.File())
	c.run(cmds)
	p.drawTiles(c)
}

// ============================================================================
// Info
// ============================================================================

type infoScreen struct{}

func (infoScreen) enter(c *Controller, _ int) {
	c.paint.frame(c.text("info"))
	rows := [...][2]string{
		{c.text("version"), c.cfg.FirmwareVersion},
		{c.text("build"), c.cfg.BuildInfo},
		{c.text("web"), c.cfg.WebURL},
	}
	for i, r := range rows {
		y := listY0 + 10 + i*70
		c.r.Text(FontMenu, ColorWhite, ColorBackground, listX0, y, r[0])
		c.r.Text(FontMenu, ColorWhite, ColorBackground, listX0, y+22, r[1])
	}
	c.drawPanel()
}

func (infoScreen) handle(c *Controller, in Input, _ time.Time) {
	if in == InputConfirm {
		c.enter(ScreenMainMenu, tileInfo)
	}
}

// ============================================================================
// Popups
// ============================================================================

// yesNo applies the shared popup convention: clockwise highlights No,
// counter-clockwise highlights Yes. It reports whether the highlight moved.
func yesNo(yes *bool, in Input) bool {
	switch in {
	case InputIncrease:
		if *yes {
			*yes = false
			return true
		}
	case InputDecrease:
		if !*yes {
			*yes = true
			return true
		}
	}
	return false
}

type pauseOrStopPopup struct{}

func (pauseOrStopPopup) enter(c *Controller, _ int) {
	c.confirmYes = true
	prompt := "pause_prompt"
	title := "pause"
	if c.stopPrompt {
		prompt, title = "stop_prompt", "stop"
	}
	c.paint.popup(c.text(title), c.text(prompt))
	c.paint.yesNo(c.text("yes"), c.text("no"), c.confirmYes)
}

func (pauseOrStopPopup) handle(c *Controller, in Input, _ time.Time) {
	if in != InputConfirm {
		if yesNo(&c.confirmYes, in) {
			c.paint.yesNo(c.text("yes"), c.text("no"), c.confirmYes)
		}
		return
	}
	back := tilePause
	if c.stopPrompt {
		back = tileStop
	}
	if !c.confirmYes {
		c.enter(ScreenPrintProcess, back)
		return
	}
	if c.stopPrompt {
		c.logger.Info("print stopped by user", "file", c.session.File())
		c.run(c.session.Abort())
		if c.session.State() == SessionAborting {
			c.enter(ScreenAbortWait, 0)
			return
		}
		c.enter(ScreenMainMenu, 0)
		return
	}
	c.logger.Info("print paused by user", "file", c.session.File())
	c.run(c.session.Pause(c.targets(), false))
	c.enter(ScreenPrintProcess, back)
}

type runoutPopup struct{}

func (runoutPopup) enter(c *Controller, _ int) {
	c.confirmYes = true
	c.paint.popup(c.text("runout"), c.text("runout_prompt"))
	c.paint.yesNo(c.text("resume"), c.text("stop"), c.confirmYes)
}

func (runoutPopup) handle(c *Controller, in Input, _ time.Time) {
	if in != InputConfirm {
		if yesNo(&c.confirmYes, in) {
			c.paint.yesNo(c.text("resume"), c.text("stop"), c.confirmYes)
		}
		return
	}
	if c.confirmYes {
		if c.runout != nil {
			if out, err := c.runout.Runout(); err == nil && out {
				c.failTone()
				return
			}
		}
		c.filament.Resolve()
		c.logger.Info("filament reloaded, resuming", "file", c.session.File())
		c.run(c.session.Resume())
		c.enter(ScreenPrintProcess, tilePause)
		return
	}
	c.filament.Resolve()
	c.logger.Info("print stopped after runout", "file", c.session.File())
	c.run(c.session.Abort())
	c.enter(ScreenAbortWait, 0)
}

type resumePopup struct{}

func (resumePopup) enter(c *Controller, _ int) {
	if c.ticket == nil {
		return
	}
	c.paint.frame(c.text("print"))
	c.paint.popup(c.text("resume_prompt"), c.ticket.Record.Filename)
	c.paint.yesNo(c.text("yes"), c.text("no"), c.ticket.HighlightYes())
}

func (resumePopup) handle(c *Controller, in Input, _ time.Time) {
	if c.ticket == nil {
		c.enter(ScreenMainMenu, 0)
		return
	}
	if !c.ticket.Input(in) {
		return
	}
	if c.ticket.Decision() == DecisionPending {
		c.paint.yesNo(c.text("yes"), c.text("no"), c.ticket.HighlightYes())
		return
	}
	c.resolveRecovery()
}

type coldExtrusionPopup struct{}

func (coldExtrusionPopup) enter(c *Controller, _ int) {
	c.paint.popup(c.text("cold_extrusion"), "")
	c.r.Text(FontMenu, ColorWhite, ColorPopup, popupX0+20, popupY0+70, c.text("hotend"))
	c.r.Number(FontMenu, ColorWhite, ColorPopup, popupX0+120, popupY0+70, int64(c.cfg.Profile.ExtrudeMinTemp), 3, 0)
	c.paint.button(c.text("confirm"))
}

func (coldExtrusionPopup) handle(c *Controller, in Input, _ time.Time) {
	if in == InputConfirm {
		c.enter(ScreenAxisMove, rowAxisE)
	}
}

// waitPopup ignores input until a callback or the session moves on.
type waitPopup struct {
	title, body string
}

func (w waitPopup) enter(c *Controller, _ int) {
	c.paint.popup(c.text(w.title), c.text(w.body))
}

func (waitPopup) handle(*Controller, Input, time.Time) {}

// ============================================================================
// Leveling
// ============================================================================

type levelingScreen struct{}

func (levelingScreen) enter(c *Controller, _ int) {
	body := "leveling"
	if c.leveled {
		body = "leveling_done"
	}
	c.paint.popup(c.text("auto_level"), c.text(body))
	if c.leveled {
		c.paint.button(c.text("confirm"))
	}
}

func (levelingScreen) handle(c *Controller, in Input, _ time.Time) {
	if in == InputConfirm && c.leveled {
		c.enter(ScreenControl, rowAutoLevel)
	}
}

// ============================================================================
// Filament load / unload
// ============================================================================

type filamentScreen struct {
	load bool
}

func (f filamentScreen) enter(c *Controller, _ int) {
	title, body := "unload_filament", "unloading"
	if f.load {
		title, body = "load_filament", "loading"
	}
	if !c.filamentHeated {
		body = "heating"
	}
	c.paint.popup(c.text(title), c.text(body))
	c.paint.button(c.text("press_to_cancel"))
	f.refresh(c)
}

func (filamentScreen) refresh(c *Controller) {
	c.r.Number(FontStatus, ColorWhite, ColorPopup, popupX1-90, popupY0+20,
		int64(c.machine.Temperature(HeaterHotend)+0.5), 3, 0)
}

// handle cancels the operation on Confirm.
func (f filamentScreen) handle(c *Controller, in Input, _ time.Time) {
	if in != InputConfirm {
		return
	}
	c.filamentHeated = false
	c.filamentRunning = false
	c.run([]Command{CmdDisableHeaters{}, CmdInject{Script: "M410"}})
	row := rowUnloadFilament
	if f.load {
		row = rowLoadFilament
	}
	c.enter(ScreenControl, row)
}

func (c *Controller) startFilamentChange(s Screen) {
	c.filamentHeated = false
	c.filamentRunning = false
	c.run([]Command{CmdSetTargets{Targets: Targets{Hotend: c.cfg.Profile.FilamentChangeTemp}}})
	c.enter(s, 0)
}

// filamentReady injects the load or unload script once the nozzle is hot.
func (c *Controller) filamentReady() {
	if c.filamentHeated {
		return
	}
	var script string
	switch c.screen {
	case ScreenFilamentLoad:
		script = c.cfg.Profile.LoadScript
	case ScreenFilamentUnload:
		script = c.cfg.Profile.UnloadScript
	default:
		return
	}
	c.filamentHeated = true
	c.filamentRunning = true
	c.inject(script)
	c.enter(c.screen, 0)
}

func (c *Controller) filamentDone() {
	if c.screen != ScreenFilamentLoad && c.screen != ScreenFilamentUnload {
		return
	}
	if !c.filamentRunning {
		return
	}
	c.filamentHeated = false
	c.filamentRunning = false
	c.enter(ScreenMainMenu, 0)
}

// filamentProgress detects heat-up and script completion for backends that
// do not deliver the callbacks themselves.
func (c *Controller) filamentProgress() {
	if c.screen != ScreenFilamentLoad && c.screen != ScreenFilamentUnload {
		return
	}
	if !c.filamentHeated {
		if c.machine.Temperature(HeaterHotend) >= float64(c.cfg.Profile.FilamentChangeTemp)-2 {
			c.filamentReady()
		}
		return
	}
	if c.filamentRunning && !c.machine.HasQueuedMoves() {
		c.filamentDone()
	}
}
