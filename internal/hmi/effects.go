package hmi

import (
	"fmt"
	"time"
)

// run executes Commands in order against the collaborators.
//
// A failed OpenFile or ResumeFile aborts the session and drops the rest of
// the batch so the UI never waits on a job that never started. Other
// failures are logged and the batch continues.
func (c *Controller) run(cmds []Command) {
	for _, cmd := range cmds {
		c.logger.Debug("command", "command", cmd.String())
		err := c.runCommand(cmd)
		if err == nil {
			continue
		}
		switch cmd.(type) {
		case CmdOpenFile, CmdResumeFile:
			c.logger.Error("job start failed, aborting", "command", cmd.String(), "error", err)
			c.run(c.session.Abort())
			return
		default:
			c.logger.Warn("command failed", "command", cmd.String(), "error", err)
		}
	}
}

func (c *Controller) runCommand(cmd Command) error {
	switch cm := cmd.(type) {
	case CmdOpenFile:
		return c.media.Open(cm.Name)

	case CmdResumeFile:
		return c.media.Resume(cm.Name, cm.Offset)

	case CmdEndFile:
		c.media.End()

	case CmdInject:
		c.machine.Inject(cm.Script)

	case CmdSetFan:
		c.machine.SetFanSpeed(cm.Speed)

	case CmdSetTargets:
		c.machine.SetTarget(HeaterHotend, cm.Targets.Hotend)
		c.machine.SetTarget(HeaterBed, cm.Targets.Bed)

	case CmdDisableHeaters:
		c.machine.DisableHeaters()

	case CmdSetFeedrate:
		c.machine.SetFeedratePercent(cm.Percent)

	case CmdFinishAndDisable:
		c.machine.FinishAndDisable()

	case CmdSaveRecovery:
		if c.recovery == nil {
			return nil
		}
		return c.recovery.Save(RecoveryRecord{
			Filename:        cm.File,
			Offset:          c.media.Offset(),
			HotendTarget:    cm.Targets.Hotend,
			BedTarget:       cm.Targets.Bed,
			FanSpeed:        c.machine.FanSpeed(),
			FeedratePercent: c.machine.FeedratePercent(),
			Z:               c.machine.Position().Z,
			Elapsed:         c.session.Elapsed(),
			SavedAt:         c.now(),
		})

	case CmdCancelRecovery:
		if c.recovery == nil {
			return nil
		}
		return c.recovery.Cancel()

	case CmdRecordJob:
		if c.history == nil {
			return nil
		}
		return c.history.Record(cm.Job)

	default:
		return fmt.Errorf("unknown command %T", cmd)
	}
	return nil
}

func (c *Controller) inject(script string) {
	c.run([]Command{CmdInject{Script: script}})
}

func (c *Controller) targets() Targets {
	return Targets{
		Hotend: c.machine.Target(HeaterHotend),
		Bed:    c.machine.Target(HeaterBed),
	}
}

// ============================================================================
// Tones
// ============================================================================

func (c *Controller) tone(d time.Duration, hz int) {
	if c.buzzer != nil {
		c.buzzer.Tone(d, hz)
	}
}

// chime acknowledges a successful settings operation.
func (c *Controller) chime() {
	c.tone(100*time.Millisecond, 659)
	c.tone(100*time.Millisecond, 698)
}

// failTone reports a failed or refused operation.
func (c *Controller) failTone() {
	c.tone(20*time.Millisecond, 440)
}
