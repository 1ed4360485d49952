package hmi

import (
	"reflect"
	"testing"
	"time"
)

func testSession() *Session {
	return NewSession(SessionConfig{
		RemainingInterval: 20 * time.Second,
		RemainingGrace:    5 * time.Minute,
		ParkScript:        "G1 F1200 X0 Y0",
	})
}

// TestSession_Start tests the fresh-job commands
func TestSession_Start(t *testing.T) {
	s := testSession()
	t0 := time.Unix(1000, 0)

	cmds := s.Start("cube.gcode", t0)
	want := []Command{CmdOpenFile{Name: "cube.gcode"}, CmdSetFan{Speed: 255}}
	if !reflect.DeepEqual(cmds, want) {
		t.Errorf("expected %v, got %v", want, cmds)
	}
	if s.State() != SessionPrinting || s.File() != "cube.gcode" {
		t.Errorf("expected printing cube.gcode, got %s %q", s.State(), s.File())
	}
	if !s.Heating() {
		t.Error("expected a fresh job to start in warm-up")
	}
	if again := s.Start("other.gcode", t0); again != nil {
		t.Errorf("expected Start while printing to be refused, got %v", again)
	}
}

// TestSession_PauseResume_RestoresTargets tests that resume re-applies the exact
// captured targets before the job is continued
func TestSession_PauseResume_RestoresTargets(t *testing.T) {
	s := testSession()
	s.Start("cube.gcode", time.Unix(0, 0))

	captured := Targets{Hotend: 215, Bed: 60}
	cmds := s.Pause(captured, false)
	want := []Command{
		CmdSaveRecovery{File: "cube.gcode", Targets: captured},
		CmdInject{Script: "M25"},
	}
	if !reflect.DeepEqual(cmds, want) {
		t.Fatalf("pause: expected %v, got %v", want, cmds)
	}
	if !s.PausePending() {
		t.Error("expected pause to be pending until the queue drains")
	}

	if cmds := s.Drain(true); cmds != nil {
		t.Errorf("expected no parking while moves are queued, got %v", cmds)
	}
	cmds = s.Drain(false)
	want = []Command{CmdInject{Script: "G1 F1200 X0 Y0"}, CmdDisableHeaters{}}
	if !reflect.DeepEqual(cmds, want) {
		t.Errorf("drain: expected %v, got %v", want, cmds)
	}
	if cmds := s.Drain(false); cmds != nil {
		t.Errorf("expected drain to run once, got %v", cmds)
	}

	cmds = s.Resume()
	want = []Command{
		CmdSetTargets{Targets: captured},
		CmdInject{Script: "M190 S60\nM109 S215\nM24"},
	}
	if !reflect.DeepEqual(cmds, want) {
		t.Errorf("resume: expected %v, got %v", want, cmds)
	}
	if s.State() != SessionPrinting {
		t.Errorf("expected printing after resume, got %s", s.State())
	}
}

// TestSession_PauseKeepHot tests that a runout pause leaves heaters on
func TestSession_PauseKeepHot(t *testing.T) {
	s := testSession()
	s.Start("cube.gcode", time.Unix(0, 0))
	s.Pause(Targets{Hotend: 200}, true)

	cmds := s.Drain(false)
	for _, c := range cmds {
		if _, ok := c.(CmdDisableHeaters); ok {
			t.Fatalf("expected heaters kept hot, got %v", cmds)
		}
	}
	if len(cmds) != 1 {
		t.Errorf("expected park only, got %v", cmds)
	}
}

// TestSession_ResumeSkipsColdHeaters tests that zero targets are not waited on
func TestSession_ResumeSkipsColdHeaters(t *testing.T) {
	s := testSession()
	s.Start("cube.gcode", time.Unix(0, 0))
	s.Pause(Targets{Hotend: 210, Bed: 0}, false)

	cmds := s.Resume()
	inj, ok := cmds[len(cmds)-1].(CmdInject)
	if !ok || inj.Script != "M109 S210\nM24" {
		t.Errorf("expected hotend-only heat script, got %v", cmds)
	}
}

// TestSession_Abort_Idempotent tests that aborting twice is a no-op the second time
func TestSession_Abort_Idempotent(t *testing.T) {
	s := testSession()
	t0 := time.Unix(0, 0)
	s.Start("cube.gcode", t0)

	cmds := s.Abort()
	want := []Command{CmdEndFile{}, CmdCancelRecovery{}}
	if !reflect.DeepEqual(cmds, want) {
		t.Fatalf("expected %v, got %v", want, cmds)
	}
	if again := s.Abort(); again != nil {
		t.Errorf("expected second abort to be a no-op, got %v", again)
	}

	cmds, aborted := s.Settle(t0.Add(time.Minute))
	if !aborted || s.State() != SessionIdle {
		t.Fatalf("expected settle to idle, got %s aborted=%v", s.State(), aborted)
	}
	var disabled, recorded bool
	for _, c := range cmds {
		switch c := c.(type) {
		case CmdDisableHeaters:
			disabled = true
		case CmdRecordJob:
			recorded = c.Job.Outcome == "aborted"
		}
	}
	if !disabled || !recorded {
		t.Errorf("expected heaters disabled and job recorded, got %v", cmds)
	}

	if cmds, aborted := s.Settle(t0); cmds != nil || aborted {
		t.Errorf("expected idle settle to be a no-op, got %v %v", cmds, aborted)
	}
	if again := s.Abort(); again != nil {
		t.Errorf("expected abort from idle to be a no-op, got %v", again)
	}
}

// TestSession_AbortKeepHeaters tests the configurable heater shutdown
func TestSession_AbortKeepHeaters(t *testing.T) {
	s := NewSession(SessionConfig{AbortKeepHeaters: true})
	s.Start("cube.gcode", time.Unix(0, 0))
	s.Abort()
	cmds, _ := s.Settle(time.Unix(60, 0))
	for _, c := range cmds {
		if _, ok := c.(CmdDisableHeaters); ok {
			t.Fatalf("expected heaters left on, got %v", cmds)
		}
	}
}

// TestSession_Complete tests the finished path
func TestSession_Complete(t *testing.T) {
	s := testSession()
	t0 := time.Unix(0, 0)
	s.Start("cube.gcode", t0)
	s.Progress(97, time.Hour, t0.Add(time.Hour))

	cmds := s.Complete(t0.Add(time.Hour))
	if len(cmds) != 3 {
		t.Fatalf("expected 3 commands, got %v", cmds)
	}
	rec, ok := cmds[2].(CmdRecordJob)
	if !ok || rec.Job.Outcome != "finished" || rec.Job.Percent != 100 {
		t.Errorf("expected finished job at 100%%, got %v", cmds[2])
	}
	if s.State() != SessionCompleted {
		t.Errorf("expected completed, got %s", s.State())
	}
	if cmds, aborted := s.Settle(t0); cmds != nil || aborted || s.State() != SessionIdle {
		t.Errorf("expected quiet settle to idle, got %v %v %s", cmds, aborted, s.State())
	}
	if cmds := s.Complete(t0); cmds != nil {
		t.Errorf("expected complete from idle to be refused, got %v", cmds)
	}
}

// TestSession_RemainingEstimate tests the linear extrapolation after the grace period
func TestSession_RemainingEstimate(t *testing.T) {
	s := testSession()
	t0 := time.Unix(0, 0)
	s.Start("cube.gcode", t0)

	s.Progress(1, 2*time.Minute, t0.Add(2*time.Minute))
	if _, known := s.Remaining(); known {
		t.Fatal("expected no estimate inside the grace period")
	}

	warmup := 60 * time.Second
	s.HeatingDone(warmup)
	s.Progress(10, 600*time.Second, t0.Add(600*time.Second))

	got, known := s.Remaining()
	want := time.Duration((100 - 10) * (600 - 60) / 10 * int64(time.Second))
	if !known || got != want {
		t.Errorf("expected %v, got %v (known=%v)", want, got, known)
	}

	// Throttled until the interval passes.
	s.Progress(20, 700*time.Second, t0.Add(610*time.Second))
	if got, _ := s.Remaining(); got != want {
		t.Errorf("expected throttled estimate %v, got %v", want, got)
	}
	s.Progress(20, 700*time.Second, t0.Add(620*time.Second))
	want = time.Duration((100 - 20) * (700 - 60) / 20 * int64(time.Second))
	if got, _ := s.Remaining(); got != want {
		t.Errorf("expected %v after interval, got %v", want, got)
	}
}

// TestSession_RemainingGraceWholeMinutes tests that the estimate starts at the
// sixth elapsed minute
func TestSession_RemainingGraceWholeMinutes(t *testing.T) {
	s := testSession()
	t0 := time.Unix(0, 0)
	s.Start("cube.gcode", t0)
	s.HeatingDone(0)

	s.Progress(5, 5*time.Minute+59*time.Second, t0.Add(5*time.Minute+59*time.Second))
	if _, known := s.Remaining(); known {
		t.Fatal("expected no estimate at 5:59")
	}

	s.Progress(5, 6*time.Minute, t0.Add(6*time.Minute))
	got, known := s.Remaining()
	want := time.Duration(95 * int64(6*time.Minute) / 5)
	if !known || got != want {
		t.Errorf("expected %v at 6:00, got %v (known=%v)", want, got, known)
	}
}

// TestSession_RemainingZeroPercent tests that a stalled 0% never divides by zero
func TestSession_RemainingZeroPercent(t *testing.T) {
	s := testSession()
	t0 := time.Unix(0, 0)
	s.Start("cube.gcode", t0)
	s.HeatingDone(0)

	s.Progress(0, 10*time.Minute, t0.Add(10*time.Minute))
	if _, known := s.Remaining(); known {
		t.Error("expected the estimate to stay unknown at 0%")
	}
}

// TestSession_ProgressKeepsPercent tests that a zero reading never overwrites a known percent
func TestSession_ProgressKeepsPercent(t *testing.T) {
	s := testSession()
	t0 := time.Unix(0, 0)
	s.Start("cube.gcode", t0)

	s.Progress(42, time.Minute, t0)
	s.Progress(0, 2*time.Minute, t0)
	if s.Percent() != 42 {
		t.Errorf("expected 42, got %d", s.Percent())
	}
	if s.Elapsed() != 2*time.Minute {
		t.Errorf("expected elapsed to advance, got %v", s.Elapsed())
	}
}

// TestSession_Recover tests re-entry from a power-loss record
func TestSession_Recover(t *testing.T) {
	s := testSession()
	rec := RecoveryRecord{
		Filename:     "cube.gcode",
		Offset:       4096,
		HotendTarget: 205,
		BedTarget:    55,
		FanSpeed:     128,
		Elapsed:      20 * time.Minute,
	}
	cmds := s.Recover(rec, time.Unix(0, 0))
	want := []Command{
		CmdSetTargets{Targets: Targets{Hotend: 205, Bed: 55}},
		CmdSetFan{Speed: 128},
		CmdSetFeedrate{Percent: 100},
		CmdInject{Script: "M190 S55\nM109 S205"},
		CmdResumeFile{Name: "cube.gcode", Offset: 4096},
	}
	if !reflect.DeepEqual(cmds, want) {
		t.Errorf("expected %v, got %v", want, cmds)
	}
	if s.State() != SessionPrinting || s.Elapsed() != 20*time.Minute {
		t.Errorf("expected printing with restored elapsed, got %s %v", s.State(), s.Elapsed())
	}
}
