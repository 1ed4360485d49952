package hmi

import "time"

// SessionState is the lifecycle phase of a print job.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionPrinting
	SessionPaused
	SessionAborting
	SessionCompleted
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionPrinting:
		return "printing"
	case SessionPaused:
		return "paused"
	case SessionAborting:
		return "aborting"
	case SessionCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Targets are heater setpoints in °C.
type Targets struct {
	Hotend int `json:"hotend"`
	Bed    int `json:"bed"`
}

// SessionConfig tunes bookkeeping.
type SessionConfig struct {
	RemainingInterval time.Duration
	RemainingGrace    time.Duration
	AbortKeepHeaters  bool
	ParkScript        string
}

// Session is the print job state machine.
//
// Transition methods never perform I/O. They return the Commands the caller
// must execute, in order. Calling a transition from a state that does not
// allow it returns nil and leaves the session untouched.
//
// Not thread-safe; owned by the controller loop.
type Session struct {
	cfg SessionConfig

	state   SessionState
	file    string
	started time.Time

	percent        int
	elapsed        time.Duration
	remaining      time.Duration
	remainingKnown bool
	nextRemaining  time.Time

	heating bool
	warmup  time.Duration

	pausePending bool
	keepHot      bool
	captured     Targets
}

// NewSession returns an idle session.
func NewSession(cfg SessionConfig) *Session {
	if cfg.ParkScript == "" {
		cfg.ParkScript = "G1 F1200 X0 Y0"
	}
	return &Session{cfg: cfg}
}

func (s *Session) State() SessionState    { return s.state }
func (s *Session) File() string           { return s.file }
func (s *Session) Percent() int           { return s.percent }
func (s *Session) Elapsed() time.Duration { return s.elapsed }
func (s *Session) Heating() bool          { return s.heating }
func (s *Session) PausePending() bool     { return s.pausePending }
func (s *Session) KeepHot() bool          { return s.keepHot }
func (s *Session) Captured() Targets      { return s.captured }

// Remaining returns the estimate and whether one has been computed yet.
func (s *Session) Remaining() (time.Duration, bool) {
	return s.remaining, s.remainingKnown
}

// Active reports whether a job owns the machine.
func (s *Session) Active() bool {
	return s.state == SessionPrinting || s.state == SessionPaused
}

func (s *Session) reset(file string, now time.Time) {
	s.file = file
	s.started = now
	s.percent = 0
	s.elapsed = 0
	s.remaining = 0
	s.remainingKnown = false
	s.nextRemaining = time.Time{}
	s.heating = true
	s.warmup = 0
	s.pausePending = false
	s.keepHot = false
	s.captured = Targets{}
}

// Start begins a fresh job.
func (s *Session) Start(file string, now time.Time) []Command {
	if s.state != SessionIdle && s.state != SessionCompleted {
		return nil
	}
	s.reset(file, now)
	s.state = SessionPrinting
	return []Command{
		CmdOpenFile{Name: file},
		CmdSetFan{Speed: 255},
	}
}

// Recover re-enters Printing from a power-loss record without the normal
// file-open path.
func (s *Session) Recover(rec RecoveryRecord, now time.Time) []Command {
	if s.state != SessionIdle && s.state != SessionCompleted {
		return nil
	}
	s.reset(rec.Filename, now)
	s.elapsed = rec.Elapsed
	s.state = SessionPrinting

	t := Targets{Hotend: rec.HotendTarget, Bed: rec.BedTarget}
	feed := rec.FeedratePercent
	if feed <= 0 {
		feed = 100
	}
	cmds := []Command{
		CmdSetTargets{Targets: t},
		CmdSetFan{Speed: rec.FanSpeed},
		CmdSetFeedrate{Percent: feed},
	}
	if hs := heatScript(t); hs != "" {
		cmds = append(cmds, CmdInject{Script: hs[:len(hs)-1]})
	}
	return append(cmds, CmdResumeFile{Name: rec.Filename, Offset: rec.Offset})
}

// Pause captures targets and stops the job. Parking and heater shutdown are
// deferred to Drain. keepHot suppresses the heater shutdown.
func (s *Session) Pause(targets Targets, keepHot bool) []Command {
	if s.state != SessionPrinting {
		return nil
	}
	s.state = SessionPaused
	s.captured = targets
	s.keepHot = keepHot
	s.pausePending = true
	return []Command{
		CmdSaveRecovery{File: s.file, Targets: targets},
		CmdInject{Script: "M25"},
	}
}

// Drain completes a pending pause once the motion queue is empty.
func (s *Session) Drain(queued bool) []Command {
	if s.state != SessionPaused || !s.pausePending || queued {
		return nil
	}
	s.pausePending = false
	cmds := []Command{CmdInject{Script: s.cfg.ParkScript}}
	if !s.keepHot {
		cmds = append(cmds, CmdDisableHeaters{})
	}
	return cmds
}

// Resume restores the captured targets and continues the job. The targets
// are set before any motion is queued.
func (s *Session) Resume() []Command {
	if s.state != SessionPaused {
		return nil
	}
	s.state = SessionPrinting
	s.pausePending = false
	s.keepHot = false
	return []Command{
		CmdSetTargets{Targets: s.captured},
		CmdInject{Script: heatScript(s.captured) + "M24"},
	}
}

// Abort stops the job. It settles to Idle on the next Settle call.
func (s *Session) Abort() []Command {
	if s.state != SessionPrinting && s.state != SessionPaused {
		return nil
	}
	s.state = SessionAborting
	s.pausePending = false
	return []Command{
		CmdEndFile{},
		CmdCancelRecovery{},
	}
}

// Complete marks the job finished.
func (s *Session) Complete(now time.Time) []Command {
	if s.state != SessionPrinting {
		return nil
	}
	s.state = SessionCompleted
	s.percent = 100
	return []Command{
		CmdCancelRecovery{},
		CmdFinishAndDisable{},
		CmdRecordJob{Job: s.job("finished", now)},
	}
}

// Settle moves Aborting and Completed to Idle. aborted reports whether an
// abort was settled.
func (s *Session) Settle(now time.Time) (cmds []Command, aborted bool) {
	switch s.state {
	case SessionAborting:
		s.state = SessionIdle
		cmds = []Command{
			CmdSetFeedrate{Percent: 100},
			CmdFinishAndDisable{},
		}
		if !s.cfg.AbortKeepHeaters {
			cmds = append(cmds, CmdDisableHeaters{})
		}
		cmds = append(cmds, CmdRecordJob{Job: s.job("aborted", now)})
		s.percent = 0
		return cmds, true
	case SessionCompleted:
		s.state = SessionIdle
	}
	return nil, false
}

// HeatingDone ends the warm-up period. The elapsed time at this point is
// excluded from the remaining-time estimate.
func (s *Session) HeatingDone(elapsed time.Duration) {
	if !s.heating {
		return
	}
	s.heating = false
	s.warmup = elapsed
}

// Progress folds the latest job progress. A zero percent never overwrites a
// known one.
func (s *Session) Progress(percent int, elapsed time.Duration, now time.Time) {
	if !s.Active() {
		return
	}
	if percent > 100 {
		percent = 100
	}
	if percent > 0 {
		s.percent = percent
	}
	if elapsed > s.elapsed {
		s.elapsed = elapsed
	}

	// The grace period counts whole elapsed minutes.
	if s.elapsed.Truncate(time.Minute) <= s.cfg.RemainingGrace || s.heating || s.percent <= 0 {
		return
	}
	if now.Before(s.nextRemaining) {
		return
	}
	s.nextRemaining = now.Add(s.cfg.RemainingInterval)
	s.remaining = estimateRemaining(s.percent, s.elapsed, s.warmup)
	s.remainingKnown = true
}

// estimateRemaining extrapolates linearly from progress made since warm-up.
func estimateRemaining(percent int, elapsed, warmup time.Duration) time.Duration {
	if percent <= 0 {
		return 0
	}
	active := elapsed - warmup
	if active < 0 {
		active = 0
	}
	return time.Duration(int64(100-percent) * int64(active) / int64(percent))
}

func (s *Session) job(outcome string, now time.Time) JobRecord {
	return JobRecord{
		File:    s.file,
		Outcome: outcome,
		Percent: s.percent,
		Elapsed: s.elapsed,
		Started: s.started,
		Ended:   now,
	}
}
