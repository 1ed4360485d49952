package hmi

import (
	"fmt"
	"time"
)

// listItem is one row below Back. label is a label key; caption, when set,
// is shown verbatim instead. value and pick may be nil.
type listItem struct {
	label   string
	caption string
	value   func(c *Controller) *field
	pick    func(c *Controller)
}

// listScreen is the generic scrolling menu. Index 0 is always Back; items
// occupy indices 1..n.
type listScreen struct {
	title string
	// load runs before the first paint, for lists backed by live data.
	load  func(c *Controller)
	items func(c *Controller) []listItem
	back  func(c *Controller)
}

func (l *listScreen) enter(c *Controller, row int) {
	if l.load != nil {
		l.load(c)
	}
	items := l.items(c)
	if row > len(items) {
		row = len(items)
	}
	c.sel.Set(row)
	c.win.Reveal(row)

	c.paint.frame(c.text(l.title))
	for r := 0; r <= MenuRows; r++ {
		l.drawRow(c, items, c.win.ItemAt(r), r)
	}
	c.paint.cursor(c.win.RowOf(row), true)
	c.drawPanel()
}

func (l *listScreen) drawRow(c *Controller, items []listItem, idx, row int) {
	if idx == 0 {
		c.paint.label(row, c.text("back"))
		return
	}
	if idx < 0 || idx > len(items) {
		return
	}
	it := items[idx-1]
	text := it.caption
	if text == "" {
		text = c.text(it.label)
	}
	c.paint.label(row, text)
	if it.value != nil {
		c.paint.field(row, it.value(c), false)
	}
}

func (l *listScreen) handle(c *Controller, in Input, _ time.Time) {
	items := l.items(c)
	prevRow := c.win.RowOf(c.sel.Current())

	switch in {
	case InputIncrease:
		if c.sel.Inc(len(items)) {
			l.follow(c, items, prevRow)
		}
	case InputDecrease:
		if c.sel.Dec() {
			l.follow(c, items, prevRow)
		}
	case InputConfirm:
		i := c.sel.Current()
		if i == 0 {
			l.back(c)
			return
		}
		if i <= len(items) && items[i-1].pick != nil {
			items[i-1].pick(c)
		}
	}
}

// follow applies the minimal redraw for one cursor move.
func (l *listScreen) follow(c *Controller, items []listItem, prevRow int) {
	step := c.win.Follow(c.sel.Current())
	switch step.Kind {
	case StepHighlight:
		c.paint.cursor(prevRow, false)
		c.paint.cursor(step.Row, true)
	case StepScrollUp:
		c.paint.scroll(ScrollDirUp)
		l.drawRow(c, items, step.Item, step.Row)
	case StepScrollDown:
		c.paint.scroll(ScrollDirDown)
		if step.Back {
			l.drawRow(c, items, 0, step.Row)
		} else {
			l.drawRow(c, items, step.Item, step.Row)
		}
	}
}

func (l *listScreen) refresh(c *Controller) { c.drawPanel() }

// redrawValue repaints the value column of list item idx if it is visible.
func (c *Controller) redrawValue(idx int) {
	l, ok := c.screens[c.screen].(*listScreen)
	if !ok || idx <= 0 {
		return
	}
	items := l.items(c)
	if idx > len(items) || items[idx-1].value == nil {
		return
	}
	c.paint.field(c.win.RowOf(idx), items[idx-1].value(c), false)
}

func back(s Screen, row int) func(*Controller) {
	return func(c *Controller) { c.enter(s, row) }
}

func goTo(s Screen) func(*Controller) {
	return func(c *Controller) { c.enter(s, 0) }
}

func static(items ...listItem) func(*Controller) []listItem {
	return func(*Controller) []listItem { return items }
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// ============================================================================
// List registry
// ============================================================================

func listScreens() map[Screen]*listScreen {
	m := map[Screen]*listScreen{
		ScreenSelectFile: {
			title: "select_file",
			load: func(c *Controller) {
				c.files = nil
				if !c.media.Mounted() {
					return
				}
				files, err := c.media.Files()
				if err != nil {
					c.logger.Warn("list media", "error", err)
					return
				}
				c.files = files
			},
			items: fileItems,
			back:  back(ScreenMainMenu, tilePrint),
		},
		ScreenControl: {
			title: "control",
			items: static(
				listItem{label: "move", pick: goTo(ScreenAxisMove)},
				listItem{label: "disable_steppers", pick: func(c *Controller) { c.inject("M84") }},
				listItem{label: "auto_home", pick: func(c *Controller) {
					c.inject("G28")
					c.enter(ScreenHomingWait, 0)
				}},
				listItem{label: "zero_position", pick: func(c *Controller) {
					c.inject("G92 X0 Y0 Z0")
					c.chime()
				}},
				listItem{label: "preheat_pla", pick: func(c *Controller) { c.preheat(0) }},
				listItem{label: "preheat_abs", pick: func(c *Controller) { c.preheat(1) }},
				listItem{label: "load_filament", pick: func(c *Controller) { c.startFilamentChange(ScreenFilamentLoad) }},
				listItem{label: "unload_filament", pick: func(c *Controller) { c.startFilamentChange(ScreenFilamentUnload) }},
				listItem{label: "cooldown", pick: func(c *Controller) {
					c.run([]Command{CmdSetFan{Speed: 0}, CmdDisableHeaters{}})
				}},
				listItem{label: "auto_level", pick: func(c *Controller) {
					c.leveled = false
					c.inject("G28\nG29")
					c.enter(ScreenLeveling, 0)
				}},
			),
			back: back(ScreenMainMenu, tileControl),
		},
		ScreenPrepare: {
			title: "prepare",
			items: static(
				listItem{label: "temperature", pick: goTo(ScreenTemperature)},
				listItem{label: "motion", pick: goTo(ScreenMotion)},
				listItem{
					label: "runout_sensor",
					value: func(c *Controller) *field { return textField(c.text(onOff(c.settings.RunoutEnabled))) },
					pick: func(c *Controller) {
						c.settings.RunoutEnabled = !c.settings.RunoutEnabled
						c.filament.SetEnabled(c.settings.RunoutEnabled)
						c.saveSettings(false)
						c.redrawValue(3)
					},
				},
				listItem{label: "load_settings", pick: func(c *Controller) {
					if err := c.loadSettings(); err != nil {
						c.logger.Warn("load settings failed", "error", err)
						c.failTone()
						return
					}
					c.chime()
					c.enter(ScreenPrepare, 4)
				}},
				listItem{
					label: "language",
					value: func(c *Controller) *field { return textField(c.text("language_name")) },
					pick: func(c *Controller) {
						c.settings.Language = c.settings.Language.Toggle()
						c.labels = labelsFor(c.settings.Language)
						c.saveSettings(false)
						c.enter(ScreenMainMenu, 0)
					},
				},
				listItem{label: "reset_settings", pick: func(c *Controller) {
					c.resetSettings()
					c.enter(ScreenPrepare, 6)
				}},
			),
			back: back(ScreenMainMenu, tilePrepare),
		},
		ScreenTemperature: {
			title: "temperature",
			items: static(
				valued("hotend", func(c *Controller) *field { return intField(c.machine.Target(HeaterHotend), 3) },
					func(c *Controller) { c.editTarget(HeaterHotend, ScreenTemperature, 1) }),
				valued("bed", func(c *Controller) *field { return intField(c.machine.Target(HeaterBed), 3) },
					func(c *Controller) { c.editTarget(HeaterBed, ScreenTemperature, 2) }),
				valued("fan", func(c *Controller) *field { return intField(c.machine.FanSpeed(), 3) },
					func(c *Controller) { c.editFan(ScreenTemperature, 3) }),
				listItem{label: "pla_settings", pick: goTo(ScreenPLAPreheat)},
				listItem{label: "abs_settings", pick: goTo(ScreenABSPreheat)},
			),
			back: back(ScreenPrepare, rowTemperature),
		},
		ScreenPLAPreheat: presetList(0, ScreenPLAPreheat),
		ScreenABSPreheat: presetList(1, ScreenABSPreheat),
		ScreenMotion: {
			title: "motion",
			items: static(
				listItem{label: "max_speed", pick: goTo(ScreenMaxSpeed)},
				listItem{label: "max_acceleration", pick: goTo(ScreenMaxAcceleration)},
				listItem{label: "max_jerk", pick: goTo(ScreenMaxJerk)},
				listItem{label: "steps_per_mm", pick: goTo(ScreenSteps)},
			),
			back: back(ScreenPrepare, rowMotion),
		},
		ScreenAxisMove: {
			title: "move",
			load: func(c *Controller) {
				c.eBase = c.machine.Position().E
			},
			items: axisMoveItems,
			back:  back(ScreenControl, rowControlMove),
		},
		ScreenTune: {
			title: "tune",
			items: static(
				valued("print_speed", func(c *Controller) *field { return intField(c.machine.FeedratePercent(), 3) },
					func(c *Controller) {
						p := c.cfg.Profile
						c.edit(ScreenPrintSpeed, Quantity{
							Name:   "print_speed",
							Min:    float64(p.PrintSpeedMin),
							Max:    float64(p.PrintSpeedMax),
							Scale:  1,
							Set:    func(v float64) { c.run([]Command{CmdSetFeedrate{Percent: int(v)}}) },
							Return: ScreenTune,
							Row:    1,
						}, float64(c.machine.FeedratePercent()))
					}),
				valued("hotend", func(c *Controller) *field { return intField(c.machine.Target(HeaterHotend), 3) },
					func(c *Controller) { c.editTarget(HeaterHotend, ScreenTune, 2) }),
				valued("bed", func(c *Controller) *field { return intField(c.machine.Target(HeaterBed), 3) },
					func(c *Controller) { c.editTarget(HeaterBed, ScreenTune, 3) }),
				valued("fan", func(c *Controller) *field { return intField(c.machine.FanSpeed(), 3) },
					func(c *Controller) { c.editFan(ScreenTune, 4) }),
				valued("z_offset", func(c *Controller) *field { return numField(c.machine.ZOffset(), 2, 2) },
					func(c *Controller) {
						p := c.cfg.Profile
						c.edit(ScreenHomeOffset, Quantity{
							Name:   "z_offset",
							Min:    p.ProbeOffsetMin,
							Max:    p.ProbeOffsetMax,
							Scale:  100,
							Set:    c.machine.SetZOffset,
							Return: ScreenTune,
							Row:    5,
						}, c.machine.ZOffset())
					}),
			),
			back: back(ScreenPrintProcess, tileTune),
		},
	}
	for kind, s := range limitLists {
		m[s.list] = limitList(kind)
	}
	return m
}

func valued(label string, value func(*Controller) *field, pick func(*Controller)) listItem {
	return listItem{label: label, value: value, pick: pick}
}

func fileItems(c *Controller) []listItem {
	if len(c.files) == 0 && !c.mounted {
		return []listItem{{label: "no_media"}}
	}
	items := make([]listItem, 0, len(c.files))
	for _, name := range c.files {
		items = append(items, listItem{
			caption: name,
			pick:    func(c *Controller) { c.startPrint(name) },
		})
	}
	return items
}

func (c *Controller) startPrint(name string) {
	cmds := c.session.Start(name, c.now())
	if cmds == nil {
		c.failTone()
		return
	}
	c.logger.Info("print started", "file", name)
	c.filament.Arm()
	c.filament.SetReplay(false)
	c.nextRecoverySave = c.now().Add(c.cfg.RecoverySaveInterval)
	c.enter(ScreenPrintProcess, 0)
	c.run(cmds)
}

func (c *Controller) preheat(material int) {
	p := c.settings.Preset(material)
	c.run([]Command{
		CmdSetTargets{Targets: Targets{Hotend: p.Hotend, Bed: p.Bed}},
		CmdSetFan{Speed: p.Fan},
	})
}

// ============================================================================
// Editors launched from lists
// ============================================================================

func (c *Controller) heaterRange(h Heater) (float64, float64) {
	p := c.cfg.Profile
	if h == HeaterBed {
		return float64(p.BedMin), float64(p.BedMax)
	}
	return float64(p.HotendMin), float64(p.HotendMax)
}

func (c *Controller) editTarget(h Heater, ret Screen, row int) {
	screen := ScreenHotendTemp
	if h == HeaterBed {
		screen = ScreenBedTemp
	}
	lo, hi := c.heaterRange(h)
	c.edit(screen, Quantity{
		Name:   h.String(),
		Min:    lo,
		Max:    hi,
		Scale:  1,
		Set:    func(v float64) { c.machine.SetTarget(h, int(v)) },
		Return: ret,
		Row:    row,
	}, float64(c.machine.Target(h)))
}

func (c *Controller) editFan(ret Screen, row int) {
	c.edit(ScreenFanSpeed, Quantity{
		Name:   "fan",
		Min:    0,
		Max:    255,
		Scale:  1,
		Set:    func(v float64) { c.run([]Command{CmdSetFan{Speed: int(v)}}) },
		Return: ret,
		Row:    row,
	}, float64(c.machine.FanSpeed()))
}

// presetList edits one material preheat profile in the settings.
func presetList(material int, self Screen) *listScreen {
	preset := func(c *Controller) *Preset { return c.settings.Preset(material) }
	editPreset := func(c *Controller, screen Screen, name string, lo, hi float64, row int, dst func(*Preset) *int) {
		c.edit(screen, Quantity{
			Name:   name,
			Min:    lo,
			Max:    hi,
			Scale:  1,
			Set:    func(v float64) { *dst(preset(c)) = int(v) },
			Return: self,
			Row:    row,
		}, float64(*dst(preset(c))))
	}
	title := "pla_settings"
	if material == 1 {
		title = "abs_settings"
	}
	return &listScreen{
		title: title,
		items: static(
			valued("hotend", func(c *Controller) *field { return intField(preset(c).Hotend, 3) },
				func(c *Controller) {
					lo, hi := c.heaterRange(HeaterHotend)
					editPreset(c, ScreenHotendTemp, "preset_hotend", lo, hi, 1, func(p *Preset) *int { return &p.Hotend })
				}),
			valued("bed", func(c *Controller) *field { return intField(preset(c).Bed, 3) },
				func(c *Controller) {
					lo, hi := c.heaterRange(HeaterBed)
					editPreset(c, ScreenBedTemp, "preset_bed", lo, hi, 2, func(p *Preset) *int { return &p.Bed })
				}),
			valued("fan", func(c *Controller) *field { return intField(preset(c).Fan, 3) },
				func(c *Controller) {
					editPreset(c, ScreenFanSpeed, "preset_fan", 0, 255, 3, func(p *Preset) *int { return &p.Fan })
				}),
			listItem{label: "save", pick: func(c *Controller) { c.saveSettings(true) }},
		),
		back: back(ScreenTemperature, rowPLASettings+material),
	}
}

// ============================================================================
// Axis tables
// ============================================================================

// limitSpec describes one planner limit list: its screens, the raw scale and
// the hard minimum. The soft maximum is twice the profile default.
type limitSpec struct {
	list, editor Screen
	title        string
	axisLabel    string
	scale        float64
	min          float64
	motionRow    int
}

var limitLists = map[LimitKind]limitSpec{
	LimitFeedrate:     {ScreenMaxSpeed, ScreenMaxSpeedValue, "max_speed", "max_speed_axis", 1, 1, 1},
	LimitAcceleration: {ScreenMaxAcceleration, ScreenMaxAccelerationValue, "max_acceleration", "max_accel_axis", 1, 1, 2},
	LimitJerk:         {ScreenMaxJerk, ScreenMaxJerkValue, "max_jerk", "max_jerk_axis", 10, 0.1, 3},
	LimitSteps:        {ScreenSteps, ScreenStepsValue, "steps_per_mm", "steps_axis", 10, 0.1, 4},
}

func (c *Controller) limitQuantity(kind LimitKind, a Axis) Quantity {
	lim := limitLists[kind]
	def := c.cfg.Profile.Defaults
	return Quantity{
		Name:   fmt.Sprintf("%s_%s", kind, a),
		Min:    lim.min,
		Max:    2 * def.Limits(kind).Get(a),
		Scale:  lim.scale,
		Set:    func(v float64) { c.machine.SetLimit(kind, a, v) },
		Return: lim.list,
		Row:    int(a) + 1,
	}
}

func limitList(kind LimitKind) *listScreen {
	lim := limitLists[kind]
	frac := 0
	if lim.scale >= 10 {
		frac = 1
	}
	return &listScreen{
		title: lim.title,
		items: func(c *Controller) []listItem {
			items := make([]listItem, 0, len(Axes)+1)
			for _, a := range Axes {
				items = append(items, listItem{
					caption: c.textf(lim.axisLabel, a),
					value:   func(c *Controller) *field {
						q := c.limitQuantity(kind, a)
						return numField(c.machine.Limit(kind, a), digitsFor(q.Max), frac)
					},
					pick: func(c *Controller) {
						c.edit(lim.editor, c.limitQuantity(kind, a), c.machine.Limit(kind, a))
					},
				})
			}
			return append(items, listItem{label: "save", pick: func(c *Controller) { c.saveSettings(true) }})
		},
		back: back(ScreenMotion, lim.motionRow),
	}
}

var moveScreens = [...]Screen{
	AxisX: ScreenMoveX,
	AxisY: ScreenMoveY,
	AxisZ: ScreenMoveZ,
	AxisE: ScreenExtruder,
}

func axisMoveItems(c *Controller) []listItem {
	items := make([]listItem, 0, len(Axes))
	for _, a := range Axes {
		items = append(items, listItem{
			caption: c.textf("move_axis", a),
			value:   func(c *Controller) *field { return numField(c.machine.Position().Get(a), 3, 1) },
			pick: func(c *Controller) {
				if a == AxisE && c.machine.Temperature(HeaterHotend) < float64(c.cfg.Profile.ExtrudeMinTemp) {
					c.enter(ScreenColdExtrusion, 0)
					return
				}
				c.edit(moveScreens[a], c.moveQuantity(a), c.machine.Position().Get(a))
			},
		})
	}
	return items
}

// moveQuantity bounds X/Y/Z to the machine envelope and E to one maximum
// extrusion length either side of the position on entry.
func (c *Controller) moveQuantity(a Axis) Quantity {
	p := c.cfg.Profile
	q := Quantity{
		Name:   "move_" + a.String(),
		Scale:  10,
		Return: ScreenAxisMove,
		Row:    int(a) + 1,
	}
	switch a {
	case AxisE:
		q.Min = c.eBase - p.ExtrudeMaxLength
		q.Max = c.eBase + p.ExtrudeMaxLength
		q.Set = func(v float64) { c.inject(fmt.Sprintf("G1 E%.1f F%g", v, p.ExtrudeFeedrate)) }
	default:
		feed := p.HomingFeedrateXY
		if a == AxisZ {
			feed = p.HomingFeedrateZ
		}
		q.Min = p.AxisMin.Get(a)
		q.Max = p.AxisMax.Get(a)
		q.Set = func(v float64) { c.inject(fmt.Sprintf("G1 F%g %s%.1f", feed, a, v)) }
	}
	return q
}
