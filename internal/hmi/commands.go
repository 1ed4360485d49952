package hmi

import (
	"fmt"
	"strconv"
)

// ==============================
// Commands (side effects)
// ==============================

// Command is a side effect requested by the session state machine or a screen
// handler. The controller executes Commands against its collaborators; the
// code that produces them never touches hardware.
type Command interface {
	commandMarker()
	String() string
}

// CmdOpenFile starts streaming a job from media.
type CmdOpenFile struct {
	Name string
}

func (CmdOpenFile) commandMarker()   {}
func (c CmdOpenFile) String() string { return fmt.Sprintf("CmdOpenFile(name=%q)", c.Name) }

// CmdResumeFile reopens a job at a byte offset.
type CmdResumeFile struct {
	Name   string
	Offset int64
}

func (CmdResumeFile) commandMarker() {}
func (c CmdResumeFile) String() string {
	return fmt.Sprintf("CmdResumeFile(name=%q, offset=%d)", c.Name, c.Offset)
}

// CmdEndFile stops streaming the current job.
type CmdEndFile struct{}

func (CmdEndFile) commandMarker() {}
func (CmdEndFile) String() string { return "CmdEndFile()" }

// CmdInject queues a G-code script.
type CmdInject struct {
	Script string
}

func (CmdInject) commandMarker()   {}
func (c CmdInject) String() string { return fmt.Sprintf("CmdInject(%q)", c.Script) }

// CmdSetFan sets the part cooling fan (0..255).
type CmdSetFan struct {
	Speed int
}

func (CmdSetFan) commandMarker()   {}
func (c CmdSetFan) String() string { return fmt.Sprintf("CmdSetFan(speed=%d)", c.Speed) }

// CmdSetTargets restores both heater targets.
type CmdSetTargets struct {
	Targets Targets
}

func (CmdSetTargets) commandMarker() {}
func (c CmdSetTargets) String() string {
	return fmt.Sprintf("CmdSetTargets(hotend=%d, bed=%d)", c.Targets.Hotend, c.Targets.Bed)
}

// CmdDisableHeaters zeroes every heater target.
type CmdDisableHeaters struct{}

func (CmdDisableHeaters) commandMarker() {}
func (CmdDisableHeaters) String() string { return "CmdDisableHeaters()" }

// CmdSetFeedrate sets the feedrate override percentage.
type CmdSetFeedrate struct {
	Percent int
}

func (CmdSetFeedrate) commandMarker()   {}
func (c CmdSetFeedrate) String() string { return fmt.Sprintf("CmdSetFeedrate(percent=%d)", c.Percent) }

// CmdFinishAndDisable flushes motion and releases the steppers.
type CmdFinishAndDisable struct{}

func (CmdFinishAndDisable) commandMarker() {}
func (CmdFinishAndDisable) String() string { return "CmdFinishAndDisable()" }

// CmdSaveRecovery persists a power-loss record for the running job.
type CmdSaveRecovery struct {
	File    string
	Targets Targets
}

func (CmdSaveRecovery) commandMarker() {}
func (c CmdSaveRecovery) String() string {
	return fmt.Sprintf("CmdSaveRecovery(file=%q)", c.File)
}

// CmdCancelRecovery retires the persisted power-loss record.
type CmdCancelRecovery struct{}

func (CmdCancelRecovery) commandMarker() {}
func (CmdCancelRecovery) String() string { return "CmdCancelRecovery()" }

// CmdRecordJob appends an entry to the print history.
type CmdRecordJob struct {
	Job JobRecord
}

func (CmdRecordJob) commandMarker() {}
func (c CmdRecordJob) String() string {
	return fmt.Sprintf("CmdRecordJob(file=%q, outcome=%s)", c.Job.File, c.Job.Outcome)
}

// heatScript builds the blocking heat-up lines for a resume. Zero targets are
// skipped so a cold bed is not waited on.
func heatScript(t Targets) string {
	var s string
	if t.Bed > 0 {
		s += "M190 S" + strconv.Itoa(t.Bed) + "\n"
	}
	if t.Hotend > 0 {
		s += "M109 S" + strconv.Itoa(t.Hotend) + "\n"
	}
	return s
}
