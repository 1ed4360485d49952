package hmi

import "testing"

// TestFilamentMonitor_Edge tests that only the rising edge triggers
func TestFilamentMonitor_Edge(t *testing.T) {
	var f FilamentMonitor
	f.SetEnabled(true)
	f.Arm()

	if f.Evaluate(false) {
		t.Error("present filament triggered")
	}
	if !f.Evaluate(true) {
		t.Fatal("runout did not trigger")
	}
	if !f.Triggered() || !f.Awaiting() {
		t.Errorf("expected triggered and awaiting, got %+v", f)
	}
	if f.Evaluate(true) {
		t.Error("held runout triggered twice")
	}

	// Filament back before the user answers: clears triggered only.
	f.Evaluate(false)
	if f.Triggered() || !f.Awaiting() {
		t.Errorf("expected awaiting without triggered, got %+v", f)
	}
	if f.Evaluate(true) {
		t.Error("retriggered while a confirmation is open")
	}

	f.Resolve()
	f.Evaluate(false)
	if !f.Evaluate(true) {
		t.Error("expected a new trigger after resolve")
	}
}

// TestFilamentMonitor_Disarmed tests that a disabled feature never triggers
func TestFilamentMonitor_Disarmed(t *testing.T) {
	var f FilamentMonitor
	f.Arm()
	if f.Armed() || f.Evaluate(true) {
		t.Error("monitor armed while disabled")
	}

	f.SetEnabled(true)
	f.Arm()
	f.SetEnabled(false)
	if f.Armed() || f.Evaluate(true) {
		t.Error("disabling did not disarm")
	}
}

// TestFilamentMonitor_Replay tests that recovery replay suppresses triggers
func TestFilamentMonitor_Replay(t *testing.T) {
	var f FilamentMonitor
	f.SetEnabled(true)
	f.Arm()
	f.SetReplay(true)

	if f.Evaluate(true) {
		t.Error("triggered during replay")
	}
	f.SetReplay(false)
	if !f.Evaluate(true) {
		t.Error("expected trigger after replay cleared")
	}
}

// TestFilamentMonitor_FaultOnce tests that a sensor error disarms and reports once
func TestFilamentMonitor_FaultOnce(t *testing.T) {
	var f FilamentMonitor
	f.SetEnabled(true)
	f.Arm()

	if !f.Fault() {
		t.Error("expected first fault to report")
	}
	if f.Fault() {
		t.Error("expected second fault to be silent")
	}
	if f.Armed() {
		t.Error("expected fault to disarm")
	}

	f.Arm()
	if !f.Armed() || !f.Fault() {
		t.Error("expected a fresh print to clear the fault")
	}
}
