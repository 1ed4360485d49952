package hmi

// Screen identifies the active UI mode. Exactly one screen is active and it
// is the only routing key for encoder input.
type Screen int

const (
	ScreenMainMenu Screen = iota
	ScreenSelectFile
	ScreenControl
	ScreenPrepare
	ScreenLeveling
	ScreenPrintProcess
	ScreenPauseOrStop
	ScreenAxisMove
	ScreenColdExtrusion
	ScreenTemperature
	ScreenMotion
	ScreenInfo
	ScreenTune
	ScreenPLAPreheat
	ScreenABSPreheat
	ScreenMaxSpeed
	ScreenMaxAcceleration
	ScreenMaxJerk
	ScreenSteps

	// Value editors
	ScreenMoveX
	ScreenMoveY
	ScreenMoveZ
	ScreenExtruder
	ScreenHomeOffset
	ScreenHotendTemp
	ScreenBedTemp
	ScreenFanSpeed
	ScreenPrintSpeed
	ScreenMaxSpeedValue
	ScreenMaxAccelerationValue
	ScreenMaxJerkValue
	ScreenStepsValue

	// Popups and waits
	ScreenFilamentLoad
	ScreenFilamentUnload
	ScreenRunoutConfirm
	ScreenHomingWait
	ScreenAbortWait
	ScreenResumeConfirm

	screenCount
)

var screenNames = [...]string{
	ScreenMainMenu:             "main_menu",
	ScreenSelectFile:           "select_file",
	ScreenControl:              "control",
	ScreenPrepare:              "prepare",
	ScreenLeveling:             "leveling",
	ScreenPrintProcess:         "print_process",
	ScreenPauseOrStop:          "pause_or_stop",
	ScreenAxisMove:             "axis_move",
	ScreenColdExtrusion:        "cold_extrusion",
	ScreenTemperature:          "temperature",
	ScreenMotion:               "motion",
	ScreenInfo:                 "info",
	ScreenTune:                 "tune",
	ScreenPLAPreheat:           "pla_preheat",
	ScreenABSPreheat:           "abs_preheat",
	ScreenMaxSpeed:             "max_speed",
	ScreenMaxAcceleration:      "max_acceleration",
	ScreenMaxJerk:              "max_jerk",
	ScreenSteps:                "steps",
	ScreenMoveX:                "move_x",
	ScreenMoveY:                "move_y",
	ScreenMoveZ:                "move_z",
	ScreenExtruder:             "extruder",
	ScreenHomeOffset:           "home_offset",
	ScreenHotendTemp:           "hotend_temp",
	ScreenBedTemp:              "bed_temp",
	ScreenFanSpeed:             "fan_speed",
	ScreenPrintSpeed:           "print_speed",
	ScreenMaxSpeedValue:        "max_speed_value",
	ScreenMaxAccelerationValue: "max_acceleration_value",
	ScreenMaxJerkValue:         "max_jerk_value",
	ScreenStepsValue:           "steps_value",
	ScreenFilamentLoad:         "filament_load",
	ScreenFilamentUnload:       "filament_unload",
	ScreenRunoutConfirm:        "runout_confirm",
	ScreenHomingWait:           "homing_wait",
	ScreenAbortWait:            "abort_wait",
	ScreenResumeConfirm:        "resume_confirm",
}

func (s Screen) String() string {
	if s < 0 || int(s) >= len(screenNames) {
		return "unknown"
	}
	return screenNames[s]
}

// IsEditor reports whether s hosts the value editor.
func (s Screen) IsEditor() bool {
	return s >= ScreenMoveX && s <= ScreenStepsValue
}
